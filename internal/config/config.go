// Package config loads service configuration from the environment and an
// optional YAML rules file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	AllowedOrigins []string

	Source            string
	SourceInput       string
	SourceFormat      string
	SourceDedup       bool
	SourceMaxRestarts int // 0 is unlimited
	FrameWidth        int
	FrameHeight       int
	FrameRate         float64 // Hz

	DetectionMode      string
	Brightness         float64
	AlphaMode          string
	Tolerance          float64
	PinkTolerance      float64
	LuminanceThreshold float64
	MinSaturation      float64
	MinVariance        float64
	Precedence         []string

	Mirrored      bool
	DisplayWidth  int
	DisplayHeight int
	GlowRadius    int
	GlowStrength  float64
	Interpolation string
	Denoise       string

	CalibrationRadius   int
	CalibrationPolicy   string
	CalibrationFraction float64 // 0 uses the policy's own default
	LabelRatio          float64

	BroadcastForceEvery int // frames

	RulesFile string
	Rules     *RulesFile
}

// Load reads the environment and, when INKGLOW_RULES_FILE is set, the rules
// file. Malformed numbers fall back to defaults; the result is validated.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		Source:            getEnv("SOURCE", "pattern"),
		SourceInput:       getEnv("SOURCE_INPUT", ""),
		SourceFormat:      getEnv("SOURCE_FORMAT", ""),
		SourceDedup:       getEnvBool("SOURCE_DEDUP", false),
		SourceMaxRestarts: getEnvInt("SOURCE_MAX_RESTARTS", 0),
		FrameWidth:        getEnvInt("FRAME_WIDTH", 640),
		FrameHeight:       getEnvInt("FRAME_HEIGHT", 480),
		FrameRate:         getEnvFloat("FRAME_RATE", 30),

		DetectionMode:      getEnv("DETECTION_MODE", "distance"),
		Brightness:         getEnvFloat("BRIGHTNESS", 1.5),
		AlphaMode:          getEnv("ALPHA_MODE", "fixed"),
		Tolerance:          getEnvFloat("TOLERANCE", 70),
		PinkTolerance:      getEnvFloat("PINK_TOLERANCE", 90),
		LuminanceThreshold: getEnvFloat("LUMINANCE_THRESHOLD", 100),
		MinSaturation:      getEnvFloat("MIN_SATURATION", 0.3),
		MinVariance:        getEnvFloat("MIN_VARIANCE", 60),
		Precedence:         getEnvList("PRECEDENCE", []string{"pink", "green", "blue"}),

		Mirrored:      getEnvBool("MIRRORED", false),
		DisplayWidth:  getEnvInt("DISPLAY_WIDTH", 0),
		DisplayHeight: getEnvInt("DISPLAY_HEIGHT", 0),
		GlowRadius:    getEnvInt("GLOW_RADIUS", 10),
		GlowStrength:  getEnvFloat("GLOW_STRENGTH", 1.0),
		Interpolation: getEnv("INTERPOLATION", "nearest"),
		Denoise:       getEnv("DENOISE", "tight"),

		CalibrationRadius:   getEnvInt("CALIBRATION_RADIUS", 3),
		CalibrationPolicy:   getEnv("CALIBRATION_POLICY", "luminance"),
		CalibrationFraction: getEnvFloat("CALIBRATION_FRACTION", 0),
		LabelRatio:          getEnvFloat("LABEL_RATIO", 1.2),

		BroadcastForceEvery: getEnvInt("BROADCAST_FORCE_EVERY", 30),

		RulesFile: getEnv("INKGLOW_RULES_FILE", ""),
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate reports every invalid setting in one ConfigInvalid error.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.HTTPAddr != "", "HTTP_ADDR is empty")
	check(c.FrameWidth > 0 && c.FrameHeight > 0, "FRAME_WIDTH and FRAME_HEIGHT must be positive")
	check(c.FrameRate > 0, "FRAME_RATE must be positive")
	check(c.SourceMaxRestarts >= 0, "SOURCE_MAX_RESTARTS must be non-negative")
	check(c.Brightness >= 0, "BRIGHTNESS must be non-negative")
	check(c.Tolerance >= 0 && c.PinkTolerance >= 0 && c.LuminanceThreshold >= 0, "tolerances must be non-negative")
	check(c.MinSaturation >= 0 && c.MinSaturation <= 1, "MIN_SATURATION must be in [0, 1]")
	check(c.MinVariance >= 0, "MIN_VARIANCE must be non-negative")
	check(c.DisplayWidth >= 0 && c.DisplayHeight >= 0, "display size must be non-negative")
	check(c.GlowRadius >= 0 && c.GlowStrength >= 0, "glow settings must be non-negative")
	check(c.CalibrationRadius >= 0, "CALIBRATION_RADIUS must be non-negative")
	check(c.CalibrationFraction >= 0 && c.CalibrationFraction <= 1, "CALIBRATION_FRACTION must be in [0, 1]")
	check(c.LabelRatio >= 1, "LABEL_RATIO must be at least 1")
	check(len(c.Precedence) > 0 || c.Rules != nil, "PRECEDENCE is empty")
	check(c.Signatures().Len() <= signature.MaxLabels, "rules file declares too many signatures")

	if _, err := c.stages(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.SourceOptions(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return apperr.New(apperr.ConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
