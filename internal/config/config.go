package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the full application configuration.
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Data      DataConfig      `mapstructure:"data"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type DataConfig struct {
	Dir  string `mapstructure:"dir"`
	File string `mapstructure:"file" validate:"required"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// AllowedOrigins is a comma-separated CORS allow list.
	AllowedOrigins string `mapstructure:"allowedOrigins"`
	Mode           string `mapstructure:"mode" validate:"oneof=debug release test"`
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}

type WorkflowConfig struct {
	CatalogPath          string `mapstructure:"catalogPath"`
	PoliciesDir          string `mapstructure:"policiesDir"`
	MaxRequirementLength int    `mapstructure:"maxRequirementLength" validate:"min=1"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"apiKey"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

var validate = validator.New()

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", "")
	v.SetDefault("data.file", DefaultDataFile)

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowedOrigins", DefaultAllowedOrigins)
	v.SetDefault("server.mode", DefaultServerMode)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")

	v.SetDefault("workflow.catalogPath", "")
	v.SetDefault("workflow.policiesDir", "")
	v.SetDefault("workflow.maxRequirementLength", DefaultMaxRequirementLength)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.apiKey", "")
	v.SetDefault("telemetry.endpoint", "")
}

// Load unmarshals v into an AppConfig and validates it.
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
