package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// runCLI executes the root command with fresh viper state and flag values.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		_ = f.Value.Set(f.DefValue)
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCmd(t *testing.T) {
	output, err := runCLI(t, "--help")
	assert.NoError(t, err)

	assert.Contains(t, output, "TaskFlow moves tasks through typed") // Short desc
	assert.Contains(t, output, "Usage:")
	assert.Contains(t, output, "Available Commands:")
	for _, name := range []string{"serve", "mcp", "task", "types", "users", "seed", "version"} {
		assert.Contains(t, output, name)
	}
}

func TestTaskCmdHelp(t *testing.T) {
	output, err := runCLI(t, "task", "--help")
	assert.NoError(t, err)
	for _, name := range []string{"list", "show", "create", "advance", "reverse", "close", "delete", "history"} {
		assert.Contains(t, output, name)
	}
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "0.1.0", GetVersion())

	output, err := runCLI(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, output, "taskflow 0.1.0")
}

func TestInitConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKFLOW_DATA_DIR", dir)
	t.Setenv("TASKFLOW_SERVER_PORT", "6100")
	viper.Reset()

	InitConfig()

	cfg, err := GetConfig()
	assert.NoError(t, err)
	assert.Equal(t, dir, cfg.Data.Dir)
	assert.Equal(t, 6100, cfg.Server.Port)
	assert.Equal(t, "taskflow.db", cfg.Data.File)
}

func TestInitConfig_InvalidValue(t *testing.T) {
	t.Setenv("TASKFLOW_LOG_LEVEL", "loud")
	viper.Reset()

	InitConfig()

	_, err := GetConfig()
	assert.Error(t, err)

	// Commands that need configuration surface the error.
	t.Setenv("TASKFLOW_DATA_DIR", t.TempDir())
	_, err = runCLI(t, "users")
	assert.Error(t, err)
}
