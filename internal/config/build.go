package config

import (
	"github.com/GriffinCanCode/inkglow/internal/calibrate"
	"github.com/GriffinCanCode/inkglow/internal/capture"
	"github.com/GriffinCanCode/inkglow/internal/classify"
	"github.com/GriffinCanCode/inkglow/internal/compose"
	"github.com/GriffinCanCode/inkglow/internal/denoise"
	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/pipeline"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// SourceOptions returns the capture settings.
func (c *Config) SourceOptions() (capture.Options, error) {
	kind, err := capture.ParseKind(c.Source)
	if err != nil {
		return capture.Options{}, err
	}
	if kind != capture.KindPattern && c.SourceInput == "" {
		return capture.Options{}, apperr.Newf(apperr.ConfigInvalid, "SOURCE=%s needs SOURCE_INPUT", kind)
	}
	return capture.Options{
		Kind:       kind,
		Input:      c.SourceInput,
		Format:     c.SourceFormat,
		Width:      c.FrameWidth,
		Height:     c.FrameHeight,
		FrameRate:  c.FrameRate,
		Dedup:      c.SourceDedup,
		ForceEvery: int(c.FrameRate),
	}, nil
}

// SuperviseOptions returns the source restart policy. A session counts as
// healthy after one second of frames.
func (c *Config) SuperviseOptions() capture.SuperviseOptions {
	opts := capture.DefaultSuperviseOptions()
	opts.MaxRestarts = c.SourceMaxRestarts
	opts.HealthyFrames = max(1, int(c.FrameRate))
	return opts
}

// Signatures returns the start-up signature set: the defaults with the
// configured tolerances and threshold, then any signatures from the rules
// file.
func (c *Config) Signatures() *signature.Set {
	defs := signature.Defaults()
	for i := range defs {
		defs[i].Tolerance = c.Tolerance
		if defs[i].Label == signature.Pink {
			defs[i].Tolerance = c.PinkTolerance
		}
		defs[i].Threshold = c.LuminanceThreshold
	}
	set := signature.NewSet(defs...)
	if c.Rules == nil {
		return set
	}
	for _, spec := range c.Rules.Signatures {
		sig := signature.Signature{
			Label:     signature.Label(spec.Label),
			Reference: spec.Reference,
			Tolerance: c.Tolerance,
			Threshold: c.LuminanceThreshold,
			Active:    true,
		}
		if spec.Tolerance != nil {
			sig.Tolerance = *spec.Tolerance
		}
		if spec.Threshold != nil {
			sig.Threshold = *spec.Threshold
		}
		if spec.Active != nil {
			sig.Active = *spec.Active
		}
		set = set.With(sig)
	}
	return set
}

// Pipeline returns the per-stage configuration.
func (c *Config) Pipeline() (pipeline.Config, error) {
	return c.stages()
}

func (c *Config) stages() (pipeline.Config, error) {
	mode, err := classify.ParseMode(c.DetectionMode)
	if err != nil {
		return pipeline.Config{}, err
	}
	alpha, err := classify.ParseAlphaMode(c.AlphaMode)
	if err != nil {
		return pipeline.Config{}, err
	}
	den, err := denoise.ParsePolicy(c.Denoise)
	if err != nil {
		return pipeline.Config{}, err
	}
	policy, err := calibrate.ParsePolicyKind(c.CalibrationPolicy)
	if err != nil {
		return pipeline.Config{}, err
	}
	interp, err := compose.ParseInterpolation(c.Interpolation)
	if err != nil {
		return pipeline.Config{}, err
	}
	rules, err := c.rules()
	if err != nil {
		return pipeline.Config{}, err
	}

	precedence := c.Precedence
	if c.Rules != nil && len(c.Rules.Precedence) > 0 {
		precedence = c.Rules.Precedence
	}
	labels := make([]signature.Label, 0, len(precedence))
	for _, p := range precedence {
		labels = append(labels, signature.Label(p))
	}

	cls := classify.DefaultConfig()
	cls.Mode = mode
	cls.Brightness = c.Brightness
	cls.Rules = rules
	cls.Precedence = labels
	cls.Guard = classify.Guard{MinSaturation: c.MinSaturation, MinVariance: c.MinVariance}
	cls.DistanceGuard = classify.Guard{MinSaturation: c.MinSaturation}
	cls.AlphaMode = alpha

	glow := make(map[signature.Label]string, len(rules))
	for label, r := range rules {
		if r.Glow != "" {
			glow[label] = r.Glow
		}
	}

	return pipeline.Config{
		Classify: cls,
		Denoise:  den,
		Compose: compose.Options{
			DisplayWidth:  c.DisplayWidth,
			DisplayHeight: c.DisplayHeight,
			Mirrored:      c.Mirrored,
			GlowRadius:    c.GlowRadius,
			GlowStrength:  c.GlowStrength,
			Interpolation: interp,
			GlowColors:    glow,
		},
		Calibrate: calibrate.Options{
			Radius: c.CalibrationRadius,
			Policy: calibrate.Policy{
				Kind:           policy,
				Tolerance:      c.Tolerance,
				LabelTolerance: map[signature.Label]float64{signature.Pink: c.PinkTolerance},
				Threshold:      c.LuminanceThreshold,
				Fraction:       c.CalibrationFraction,
				Floor:          calibrate.DefaultThresholdFloor,
			},
			LabelRatio: c.LabelRatio,
		},
	}, nil
}

func (c *Config) rules() (map[signature.Label]classify.Rule, error) {
	rules := classify.DefaultRules()
	if c.Rules == nil {
		return rules, nil
	}
	for name, spec := range c.Rules.Rules {
		label := signature.Label(name)
		base, ok := rules[label]
		if !ok {
			base = classify.GenericRule()
		}
		r, err := spec.apply(base)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.ConfigInvalid, "rule %q", name)
		}
		rules[label] = r
	}
	return rules, nil
}
