// Package config loads CLI settings from a YAML file, QUALYS_* environment
// variables, and flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "QUALYS"

var validate = validator.New()

// Config holds connection and runtime settings.
type Config struct {
	Username   string        `mapstructure:"username" validate:"required_without=Token"`
	Password   string        `mapstructure:"password" validate:"required_with=Username"`
	Token      string        `mapstructure:"token"`
	Platform   string        `mapstructure:"platform" validate:"required_without_all=APIURL GatewayURL"`
	APIURL     string        `mapstructure:"api_url" validate:"omitempty,url"`
	GatewayURL string        `mapstructure:"gateway_url" validate:"omitempty,url"`
	RateLimit  float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst  int           `mapstructure:"rate_burst" validate:"gte=1"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	LogLevel   string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat  string        `mapstructure:"log_format" validate:"oneof=text json"`
}

var defaults = map[string]any{
	"username":    "",
	"password":    "",
	"token":       "",
	"platform":    "",
	"api_url":     "",
	"gateway_url": "",
	"rate_limit":  2.0,
	"rate_burst":  1,
	"timeout":     "2m",
	"log_level":   "warn",
	"log_format":  "text",
}

// New returns a viper instance with defaults and environment binding applied.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads the config file (an explicit path, or qualys.yaml in the usual
// locations) and decodes the merged settings. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("qualys")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/qualys")
		v.AddConfigPath("/etc/qualys")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
