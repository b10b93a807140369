package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. COPYVIOS_SEARCH_ENGINE.
const EnvPrefix = "COPYVIOS"

// credentialKeys are the backend credentials that can also come from the
// environment, e.g. COPYVIOS_SEARCH_CREDENTIALS_KEY.
var credentialKeys = []string{"url", "key", "cx", "path"}

// NewViper returns a viper instance carrying DefaultConfig as defaults and
// bound to COPYVIOS_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := setDefaults(v, DefaultConfig()); err != nil {
		// DefaultConfig always marshals
		panic(err)
	}
	for _, k := range credentialKeys {
		_ = v.BindEnv("search.credentials." + k)
	}
	return v
}

// setDefaults registers every leaf of cfg as a viper default so that
// AutomaticEnv can see the key.
func setDefaults(v *viper.Viper, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok && len(sub) > 0 && key != "search.credentials" {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

// DefaultConfigPath is $HOME/.copyvios/config.yaml, or empty when there is no
// home directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".copyvios", "config.yaml")
}

// LoadConfig reads path (or the default location when empty) into v and
// decodes the merged result. A missing default file is not an error; a
// missing explicit file is. The returned string is the file actually used.
func LoadConfig(v *viper.Viper, path string) (Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	used := ""
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return Config{}, "", fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			used = v.ConfigFileUsed()
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decode config: %w", err)
	}
	if cfg.Search.Credentials == nil {
		cfg.Search.Credentials = map[string]string{}
	}
	return cfg, used, nil
}

// MarshalYAML renders cfg for display or for a new config file. Secrets are
// masked when redact is set.
func MarshalYAML(cfg Config, redact bool) ([]byte, error) {
	if redact {
		if cfg.Wiki.Password != "" {
			cfg.Wiki.Password = "********"
		}
		creds := make(map[string]string, len(cfg.Search.Credentials))
		for k, val := range cfg.Search.Credentials {
			if k == "key" && val != "" {
				val = "********"
			}
			creds[k] = val
		}
		cfg.Search.Credentials = creds
	}
	return yaml.Marshal(cfg)
}

// WriteConfigFile writes cfg to path, refusing to overwrite an existing file.
func WriteConfigFile(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := MarshalYAML(cfg, false)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# copyvios configuration\n" +
		"# precedence: flags > " + EnvPrefix + "_* environment > this file > defaults\n\n"
	return os.WriteFile(path, append([]byte(header), b...), 0o600)
}
