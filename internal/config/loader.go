package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"gridbalancer/internal/types"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
	logger     types.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string, logger types.Logger) *Loader {
	return &Loader{
		configPath: configPath,
		logger:     logger,
	}
}

// LoadConfig loads configuration from file or environment
func (l *Loader) LoadConfig() (*types.Config, error) {
	if l.configPath != "" {
		viper.SetConfigFile(l.configPath)
	} else {
		viper.SetConfigName("gridbalancer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/gridbalancer/")
	}

	// Enable environment variables
	viper.SetEnvPrefix("GRIDBALANCER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			l.logger.Warn("No config file found, using defaults and environment")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		l.logger.Info("Loaded configuration", "file", viper.ConfigFileUsed())
	}

	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfiguration, err)
	}

	return &cfg, nil
}

// LoadFromBytes loads configuration from byte array (for testing)
func LoadFromBytes(data []byte, format string) (*types.Config, error) {
	v := viper.New()
	v.SetConfigType(format)

	setDefaultsOn(v)

	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfiguration, err)
	}

	return &cfg, nil
}
