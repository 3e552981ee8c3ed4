package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GriffinCanCode/inkglow/internal/classify"
	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// RulesFile is the YAML schema of INKGLOW_RULES_FILE. Every section is
// optional; a rule section replaces that part of the built-in rule.
//
//	signatures:
//	  - label: green
//	    reference: {r: 0, g: 180, b: 50}
//	    tolerance: 70
//	precedence: [pink, green, blue]
//	rules:
//	  green:
//	    distance: {channel: g, over: {r: 1, b: 1}}
//	    tint: {boost: [g], alpha: 220}
//	    glow: "#00ffaa"
type RulesFile struct {
	Signatures []SignatureSpec     `yaml:"signatures"`
	Precedence []string            `yaml:"precedence"`
	Rules      map[string]RuleSpec `yaml:"rules"`
}

type SignatureSpec struct {
	Label     string        `yaml:"label"`
	Reference signature.RGB `yaml:"reference"`
	Tolerance *float64      `yaml:"tolerance"`
	Threshold *float64      `yaml:"threshold"`
	Active    *bool         `yaml:"active"`
}

type RuleSpec struct {
	Distance      *DominanceSpec `yaml:"distance"`
	Luminance     *DominanceSpec `yaml:"luminance"`
	Hue           *HueSpec       `yaml:"hue"`
	Tint          *TintSpec      `yaml:"tint"`
	LuminanceTint *TintSpec      `yaml:"luminance_tint"`
	Glow          string         `yaml:"glow"`
}

type DominanceSpec struct {
	Channel        string     `yaml:"channel"`
	Floor          float64    `yaml:"floor"`
	AboveThreshold bool       `yaml:"above_threshold"`
	Over           RatiosSpec `yaml:"over"`
	Partner        string     `yaml:"partner"`
	PartnerOver    RatiosSpec `yaml:"partner_over"`
	MaxImbalance   float64    `yaml:"max_imbalance"`
}

type RatiosSpec struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

type HueSpec struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type TintSpec struct {
	Boost []string   `yaml:"boost"`
	Scale RatiosSpec `yaml:"scale"`
	Alpha uint8      `yaml:"alpha"`
}

// LoadRules reads and strictly decodes a rules file.
func LoadRules(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.ConfigInvalid, "read rules file %s", path)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules, rejecting unknown keys.
func ParseRules(data []byte) (*RulesFile, error) {
	var rf RulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Wrap(err, apperr.ConfigInvalid, "decode rules")
	}
	return &rf, nil
}

func (r RatiosSpec) ratios() classify.Ratios {
	return classify.Ratios{R: r.R, G: r.G, B: r.B}
}

func (d DominanceSpec) dominance() (classify.Dominance, error) {
	ch, err := classify.ParseChannel(d.Channel)
	if err != nil {
		return classify.Dominance{}, err
	}
	partner, err := classify.ParseChannel(d.Partner)
	if err != nil {
		return classify.Dominance{}, err
	}
	return classify.Dominance{
		Channel:        ch,
		Floor:          d.Floor,
		AboveThreshold: d.AboveThreshold,
		Over:           d.Over.ratios(),
		Partner:        partner,
		PartnerOver:    d.PartnerOver.ratios(),
		MaxImbalance:   d.MaxImbalance,
	}, nil
}

func (t TintSpec) tint() (classify.Tint, error) {
	out := classify.Tint{Scale: t.Scale.ratios(), Alpha: t.Alpha}
	for _, b := range t.Boost {
		ch, err := classify.ParseChannel(b)
		if err != nil {
			return classify.Tint{}, err
		}
		if ch != classify.NoChannel {
			out.Boost = append(out.Boost, ch)
		}
	}
	return out, nil
}

// apply overlays spec onto base.
func (s RuleSpec) apply(base classify.Rule) (classify.Rule, error) {
	if s.Distance != nil {
		d, err := s.Distance.dominance()
		if err != nil {
			return base, err
		}
		base.Distance = d
	}
	if s.Luminance != nil {
		d, err := s.Luminance.dominance()
		if err != nil {
			return base, err
		}
		base.Luminance = d
	}
	if s.Hue != nil {
		base.Hue = classify.HueRange{Min: s.Hue.Min, Max: s.Hue.Max}
	}
	if s.Tint != nil {
		t, err := s.Tint.tint()
		if err != nil {
			return base, err
		}
		base.Tint = t
	}
	if s.LuminanceTint != nil {
		t, err := s.LuminanceTint.tint()
		if err != nil {
			return base, err
		}
		base.LuminanceTint = &t
	}
	if s.Glow != "" {
		base.Glow = s.Glow
	}
	return base, nil
}
