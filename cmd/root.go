/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version.
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "TaskFlow moves tasks through typed, evidence-gated workflows.",
	Long: `TaskFlow tracks tasks that walk an ordered sequence of statuses defined per
task type. Leaving a status may require evidence (a requirement text), which is
validated, saved as history, and shown again when the task is reversed.

Run the HTTP API with 'taskflow serve', expose the workflow to AI tools with
'taskflow mcp', or work with tasks directly through 'taskflow task'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		PrintError("Error: "+err.Error(), err)
		os.Exit(1)
	}
}

// GetVersion returns the application version.
func GetVersion() string {
	return version
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.taskflow/.taskflow.yaml or $HOME/.taskflow.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	bindPersistentFlags()
}

// bindPersistentFlags binds the global flags to viper. InitConfig calls it
// again so a viper.Reset in tests does not drop the bindings.
func bindPersistentFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}
