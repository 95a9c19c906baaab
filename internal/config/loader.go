package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/vitals-sh/vitals/internal/errors"
)

// defaultConfigYAML is the commented template written by WriteDefault. It
// mirrors Default(); keep the two in sync.
const defaultConfigYAML = `# vitals configuration

# Telemetry collection interval.
rate: 1s

# How much metric history to keep in memory.
retention: 10m

# Graph span shown at startup (adjustable at runtime with + / -).
window: 2m

# Temperature unit: celsius, fahrenheit, or kelvin.
temperature: celsius

# Match filter text case-sensitively.
case_sensitive: false

# Initial process table order: cpu, mem, pid, name, read, write, user, state.
default_sort: cpu
default_sort_descending: true

# Start in tree or grouped view (tree wins if both are true).
tree: false
group: false

# Show only the average CPU graph instead of per-core graphs.
avg_cpu: false

# Ticks a graph peak must stay low before the axis scales back down.
shrink_ticks: 3
`

const (
	// ConfigDir is the config directory under the user config root.
	ConfigDir = "vitals"
	// ConfigFile is the config file name.
	ConfigFile = "config.yaml"
)

// Path returns the default config file location, honoring XDG_CONFIG_HOME.
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDir, ConfigFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", ConfigDir, ConfigFile)
}

// Load reads the config file at path. An explicit path that does not exist
// is an error; callers that want fallback behavior use LoadOrDefault.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Check the path, or run without --config to use defaults")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file: "+path,
			"Check the file is readable and valid YAML")
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config file: "+path,
			"Check field names and value types against the documented settings")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config at the explicit path if given, otherwise
// the default location, otherwise built-in defaults. Only an explicit path
// that fails to load is an error.
func LoadOrDefault(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}

	path := Path()
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// WriteDefault writes the default config to the standard location, creating
// parent directories. It refuses to overwrite an existing file.
func WriteDefault() (string, error) {
	path := Path()
	if path == "" {
		return "", errors.New(errors.ErrConfig,
			"Cannot determine the config directory",
			"Set XDG_CONFIG_HOME or HOME and try again")
	}
	if _, err := os.Stat(path); err == nil {
		return "", errors.New(errors.ErrConfig,
			"Config file already exists: "+path,
			"Edit it directly, or delete it to regenerate defaults")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to create config directory",
			"Check permissions on "+filepath.Dir(path))
	}

	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file",
			"Check permissions on "+filepath.Dir(path))
	}
	return path, nil
}
