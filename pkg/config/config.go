package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "nextact"
	configFile = "config.json"
	cacheFile  = "cache.json"

	BackendRTM    = "rtm"
	BackendGTasks = "gtasks"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrConfig is wrapped by every configuration failure.
var ErrConfig = errors.New("configuration error")

// Error describes a configuration failure for a given file.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s: %s", ErrConfig, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfig}
	}
	return []error{ErrConfig, e.Err}
}

// Log configures the diagnostic logger.
type Log struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Config struct {
	APIKey        string `mapstructure:"api_key"`
	SharedSecret  string `mapstructure:"shared_secret"`
	Backend       string `mapstructure:"backend"`
	ProjectPrefix string `mapstructure:"project_prefix"`
	NextActionTag string `mapstructure:"next_action_tag"`
	Color         string `mapstructure:"color"`
	Timezone      string `mapstructure:"timezone"`
	Log           Log    `mapstructure:"log"`
}

// AppDir returns ~/.config/nextact.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func GetCachePath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cacheFile), nil
}

// Load reads the JSON config at path. A missing file, a missing required key
// or an unknown value is reported as an *Error.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Path: path, Reason: "config file not found"}
		}
		return nil, &Error{Path: path, Reason: "cannot stat config file", Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, &Error{Path: path, Reason: "cannot read config file", Err: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Path: path, Reason: "cannot decode config file", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Reason: err.Error()}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendRTM)
	v.SetDefault("project_prefix", "P: ")
	v.SetDefault("next_action_tag", "next-action")
	v.SetDefault("color", ColorAuto)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")
}

func (c *Config) validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if c.SharedSecret == "" {
		missing = append(missing, "shared_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required key(s): %s", strings.Join(missing, ", "))
	}

	switch c.Backend {
	case BackendRTM, BackendGTasks:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendRTM, BackendGTasks)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("unknown color mode %q", c.Color)
	}
	if c.ProjectPrefix == "" {
		return errors.New("project_prefix must not be empty")
	}
	if strings.TrimSpace(c.NextActionTag) == "" {
		return errors.New("next_action_tag must not be empty")
	}
	return nil
}
