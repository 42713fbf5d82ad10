// Package config loads application configuration from file and
// environment via viper. Pipeline tuning overrides are applied on top
// of the engine defaults, so partial configs are safe.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/singharyan006/ride-secure/internal/vision"
)

// ErrInvalidAppConfig wraps all application-level validation failures.
var ErrInvalidAppConfig = errors.New("invalid application config")

// ServerConfig holds the HTTP front-end settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SessionConfig describes the processing session: the source identity
// and its nominal frame rate, used for duration and export labeling.
type SessionConfig struct {
	VideoName string  `mapstructure:"video_name"`
	FPS       float64 `mapstructure:"fps"`
}

// PipelineOverrides are optional tuning values applied over the engine
// defaults. Pointer fields distinguish "not set" from zero.
type PipelineOverrides struct {
	DetectorConfidence       *float64          `mapstructure:"detector_confidence" json:"detector_confidence,omitempty"`
	RiderOverlapThreshold    *float64          `mapstructure:"rider_overlap_threshold" json:"rider_overlap_threshold,omitempty"`
	RiderCenterFactor        *float64          `mapstructure:"rider_center_factor" json:"rider_center_factor,omitempty"`
	VehicleClasses           []string          `mapstructure:"vehicle_classes" json:"vehicle_classes,omitempty"`
	TreatAllAsRiders         *bool             `mapstructure:"treat_all_as_riders" json:"treat_all_as_riders,omitempty"`
	HeadFraction             *float64          `mapstructure:"head_fraction" json:"head_fraction,omitempty"`
	HeadgearOverlapThreshold *float64          `mapstructure:"headgear_overlap_threshold" json:"headgear_overlap_threshold,omitempty"`
	ReLogInterval            *int              `mapstructure:"relog_interval" json:"relog_interval,omitempty"`
	MinPlateConfidence       *float64          `mapstructure:"min_plate_confidence" json:"min_plate_confidence,omitempty"`
	RequirePlate             *bool             `mapstructure:"require_plate" json:"require_plate,omitempty"`
	PlatePatterns            map[string]string `mapstructure:"plate_patterns" json:"plate_patterns,omitempty"`
}

// Config is the root application configuration.
type Config struct {
	LogLevel string            `mapstructure:"log_level"`
	Server   ServerConfig      `mapstructure:"server"`
	Session  SessionConfig     `mapstructure:"session"`
	Pipeline PipelineOverrides `mapstructure:"pipeline"`
}

// Default returns the built-in configuration: local-only server, no
// auth secret (config mutation disabled), 30 fps session.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:         ":8080",
			CORSOrigins:  []string{"http://localhost:3000"},
			TokenTTL:     time.Hour,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Session: SessionConfig{
			VideoName: "session",
			FPS:       30,
		},
	}
}

// Load reads configuration from the optional file path plus RIDESECURE_*
// environment variables and validates the result. An empty path loads
// defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ridesecure")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key must be registered or Unmarshal never consults the
	// environment for it. Defaults mirror Default().
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("session.video_name", d.Session.VideoName)
	v.SetDefault("session.fps", d.Session.FPS)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the application-level fields. Pipeline overrides are
// validated after merging, by the engine's own config validation.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server address is empty", ErrInvalidAppConfig)
	}
	if c.Session.FPS <= 0 {
		return fmt.Errorf("%w: session fps must be positive, got %v", ErrInvalidAppConfig, c.Session.FPS)
	}
	if c.Session.VideoName == "" {
		return fmt.Errorf("%w: session video name is empty", ErrInvalidAppConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidAppConfig, c.LogLevel)
	}
	return nil
}

// PipelineConfig merges the overrides onto the engine defaults. The
// result still goes through the engine's Validate at session
// construction.
func (c Config) PipelineConfig() vision.PipelineConfig {
	pc := vision.DefaultPipelineConfig()
	o := c.Pipeline

	if o.DetectorConfidence != nil {
		pc.DetectorConfidence = *o.DetectorConfidence
	}
	if o.RiderOverlapThreshold != nil {
		pc.RiderOverlapThreshold = *o.RiderOverlapThreshold
	}
	if o.RiderCenterFactor != nil {
		pc.RiderCenterFactor = *o.RiderCenterFactor
	}
	if len(o.VehicleClasses) > 0 {
		pc.VehicleClasses = pc.VehicleClasses[:0]
		for _, name := range o.VehicleClasses {
			pc.VehicleClasses = append(pc.VehicleClasses, vision.ParseClassLabel(name))
		}
	}
	if o.TreatAllAsRiders != nil {
		pc.TreatAllAsRiders = *o.TreatAllAsRiders
	}
	if o.HeadFraction != nil {
		pc.HeadFraction = *o.HeadFraction
	}
	if o.HeadgearOverlapThreshold != nil {
		pc.HeadgearOverlapThreshold = *o.HeadgearOverlapThreshold
	}
	if o.ReLogInterval != nil {
		pc.ReLogInterval = *o.ReLogInterval
	}
	if o.MinPlateConfidence != nil {
		pc.MinPlateConfidence = *o.MinPlateConfidence
	}
	if o.RequirePlate != nil {
		pc.RequirePlate = *o.RequirePlate
	}
	if len(o.PlatePatterns) > 0 {
		pc.PlatePatterns = o.PlatePatterns
	}
	return pc
}
