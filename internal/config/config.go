package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configData Config
	v          *viper.Viper
)

// Config holds all configuration settings.
type Config struct {
	// Reader configuration
	Reader struct {
		Name         string
		WaitRetries  int           `mapstructure:"wait_retries"`
		WaitInterval time.Duration `mapstructure:"wait_interval"`
	}
	// Logging configuration
	Log struct {
		Level  string
		Format string
	}
	// Session behaviour
	Session struct {
		Debug      bool
		Simulation bool
	}
	// Card profile
	Profile struct {
		Path string
	}
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"reader":     "reader.name",
	"profile":    "profile.path",
	"debug":      "session.debug",
	"simulate":   "session.simulation",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Initialize sets up the configuration system. An empty path searches the default
// locations; a missing file there is not an error. Flags that were set override the
// file and the environment.
func Initialize(path string, flags *pflag.FlagSet) error {
	v = viper.New()

	if path != "" {
		v.SetConfigFile(path) // explicit file, any extension viper knows
	} else {
		v.SetConfigName("config")       // name of config file (without extension)
		v.SetConfigType("yaml")         // config file type
		v.AddConfigPath(".")            // optionally look for config in working directory
		v.AddConfigPath("$HOME/.fmcos") // look for config in .fmcos directory in home
		v.AddConfigPath("/etc/fmcos/")  // path to look for the config file in
	}

	// Set default values
	setDefaults()

	// Environment variables
	v.SetEnvPrefix("FMCOS") // prefix for env vars
	v.AutomaticEnv()        // read in environment variables that match
	v.SetEnvKeyReplacer(    // replace dots with underscores in env vars
		strings.NewReplacer(".", "_"),
	)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	// Read in config file
	if err := v.ReadInConfig(); err != nil {
		// Defaults are enough when no file was asked for
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal config into struct
	configData = Config{}
	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return validate(&configData)
}

// setDefaults sets default values for all configuration options.
func setDefaults() {
	// Reader defaults
	v.SetDefault("reader.name", "")
	v.SetDefault("reader.wait_retries", 30)
	v.SetDefault("reader.wait_interval", time.Second)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")

	// Session defaults
	v.SetDefault("session.debug", false)
	v.SetDefault("session.simulation", false)

	// Profile defaults
	v.SetDefault("profile.path", "fmcos.yaml")
}

func validate(c *Config) error {
	switch c.Log.Format {
	case "human", "json":
	default:
		return fmt.Errorf("log.format must be human or json, got %q", c.Log.Format)
	}
	if c.Reader.WaitRetries < 1 {
		return fmt.Errorf("reader.wait_retries must be at least 1, got %d", c.Reader.WaitRetries)
	}
	if c.Reader.WaitInterval <= 0 {
		return fmt.Errorf("reader.wait_interval must be positive, got %s", c.Reader.WaitInterval)
	}
	return nil
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}
