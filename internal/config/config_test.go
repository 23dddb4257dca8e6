package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataFile, cfg.Data.File)
	assert.Equal(t, 5080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.Server.Origins())
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500, cfg.Workflow.MaxRequirementLength)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.port", 9000)
	v.Set("server.allowedOrigins", "http://a.test, ,http://b.test")
	v.Set("log.format", "json")
	v.Set("workflow.maxRequirementLength", 64)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.Origins())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 64, cfg.Workflow.MaxRequirementLength)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"port out of range", "server.port", 70000},
		{"unknown mode", "server.mode", "turbo"},
		{"unknown level", "log.level", "trace"},
		{"unknown format", "log.format", "xml"},
		{"zero max length", "workflow.maxRequirementLength", 0},
		{"bad endpoint", "telemetry.endpoint", "not a url"},
		{"empty data file", "data.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)

			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
