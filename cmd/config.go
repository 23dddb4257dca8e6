package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/josephgoksu/taskflow/internal/config"
)

const (
	configName = ".taskflow"
	envPrefix  = "TASKFLOW"
)

var (
	// GlobalAppConfig holds the configuration loaded by InitConfig.
	GlobalAppConfig *config.AppConfig
	// configErr is reported by the first command that needs the configuration.
	configErr error
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// It's okay if .env doesn't exist.
	_ = godotenv.Load()

	bindPersistentFlags()

	viper.SetEnvPrefix(envPrefix) // e.g., TASKFLOW_SERVER_PORT
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfgFileFlag := viper.GetString("config")
	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		// A project-local .taskflow/ directory wins over the home directory.
		if info, err := os.Stat(config.DefaultDataDir); err == nil && info.IsDir() {
			viper.AddConfigPath(config.DefaultDataDir)
		} else {
			if home, err := os.UserHomeDir(); err == nil {
				viper.AddConfigPath(home)
			}
			viper.AddConfigPath(".")
		}
		viper.SetConfigName(configName)
	}

	if err := viper.ReadInConfig(); err == nil {
		LogError("Using config file: "+viper.ConfigFileUsed(), nil)
	} else {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			LogError("No config file found. Using defaults and environment variables.", nil)
		case cfgFileFlag != "" && os.IsNotExist(err):
			fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFileFlag)
		default:
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	config.SetDefaults(viper.GetViper())

	GlobalAppConfig, configErr = config.Load(viper.GetViper())
}

// GetConfig returns the loaded configuration, or the error that prevented
// loading it.
func GetConfig() (*config.AppConfig, error) {
	if configErr != nil {
		return nil, configErr
	}
	if GlobalAppConfig == nil {
		return nil, errors.New("configuration not initialized")
	}
	return GlobalAppConfig, nil
}
