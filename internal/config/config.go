// Package config manages YAML-based configuration for the asset repository, its serializer and server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Serializer configures the external tool that regenerates sidecar files.
type Serializer struct {
	Path string `yaml:"path" json:"path"`
	// Args are passed before the asset path, e.g. ["serialize"].
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
	// LockDir enables cross-process locking of serializer runs when set.
	LockDir string `yaml:"lock_dir,omitempty" json:"lock_dir,omitempty"`
}

// Log holds logging options.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config holds all configuration options for AssetHub
type Config struct {
	// Root directory of the asset tree
	Root string `yaml:"root" json:"root"`

	AssetExt    string `yaml:"asset_ext" json:"asset_ext"`
	CacheExt    string `yaml:"cache_ext" json:"cache_ext"`
	DataVersion int64  `yaml:"data_version" json:"data_version"`
	VersionKey  string `yaml:"version_key" json:"version_key"`
	TypeKey     string `yaml:"type_key" json:"type_key"`

	Serializer Serializer `yaml:"serializer" json:"serializer"`

	Port      int      `yaml:"port"`
	Watch     bool     `yaml:"watch"`
	Open      bool     `yaml:"open"`
	Exclude   []string `yaml:"exclude"`
	CacheSize int      `yaml:"cache_size"`

	Log Log `yaml:"log"`

	// Internal: path to config file for saving
	configPath string
}

// Overrides carries command line values that take precedence over the file.
// Zero values mean "not set".
type Overrides struct {
	Root           string
	SerializerPath string
	Port           int
	LogLevel       string
	Watch          *bool
	Open           *bool
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Root:        ".",
		AssetExt:    ".uasset",
		CacheExt:    ".json",
		DataVersion: 21,
		VersionKey:  "_apoc_data_ver",
		TypeKey:     "export_type",
		Serializer: Serializer{
			Path: "JWP",
			Args: []string{"serialize"},
		},
		Port:      8080,
		Watch:     true,
		Open:      false,
		Exclude:   []string{".git", ".svn"},
		CacheSize: 512,
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/assethub"
	}
	return filepath.Join(home, ".config", "assethub")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load loads configuration from configFile, or from the first default
// location that exists when configFile is empty.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	var cfgPath string
	if configFile != "" {
		cfgPath = configFile
	} else {
		// Try ~/.config/assethub/config.yaml first
		globalConfig := GetConfigPath()
		if _, err := os.Stat(globalConfig); err == nil {
			cfgPath = globalConfig
		} else if _, err := os.Stat("assethub.yaml"); err == nil {
			// Fall back to local assethub.yaml
			cfgPath = "assethub.yaml"
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil && configFile != "" {
			// Only return error if user explicitly specified config file
			return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		cfg.configPath = cfgPath
	} else {
		// Set default config path for saving
		cfg.configPath = GetConfigPath()
	}

	return cfg, nil
}

// Apply merges command line overrides into the configuration and
// normalizes derived fields.
func (c *Config) Apply(o Overrides) {
	if o.Root != "" {
		c.Root = o.Root
	}
	if o.SerializerPath != "" {
		c.Serializer.Path = o.SerializerPath
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.Watch != nil {
		c.Watch = *o.Watch
	}
	if o.Open != nil {
		c.Open = *o.Open
	}
	c.normalize()
}

// normalize resolves the root to an absolute, symlink-free path and makes
// sure extensions carry a dot.
func (c *Config) normalize() {
	if c.Root != "" {
		if absPath, err := filepath.Abs(c.Root); err == nil {
			c.Root = absPath
		}
		if resolved, err := filepath.EvalSymlinks(c.Root); err == nil {
			c.Root = resolved
		}
	}
	c.AssetExt = normalizeExt(c.AssetExt)
	c.CacheExt = normalizeExt(c.CacheExt)
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Validate reports configuration errors that would make the repository unusable.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if c.AssetExt == "" || c.CacheExt == "" {
		errs = append(errs, errors.New("asset_ext and cache_ext are required"))
	} else if strings.EqualFold(c.AssetExt, c.CacheExt) {
		errs = append(errs, fmt.Errorf("asset_ext and cache_ext must differ (both %q)", c.AssetExt))
	}
	if strings.ContainsAny(c.AssetExt+c.CacheExt, `/\`) {
		errs = append(errs, errors.New("extensions must not contain path separators"))
	}
	if c.VersionKey == "" || c.TypeKey == "" {
		errs = append(errs, errors.New("version_key and type_key are required"))
	}
	if c.Serializer.Path == "" {
		errs = append(errs, errors.New("serializer.path is required"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, errors.New("cache_size must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	// Ensure config directory exists
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// IsExcluded checks if a path should be excluded
func (c *Config) IsExcluded(path string) bool {
	base := filepath.Base(path)
	for _, exclude := range c.Exclude {
		if matched, _ := filepath.Match(exclude, base); matched {
			return true
		}
	}
	return false
}

// IsAssetFile checks if a file carries the binary asset extension. The
// comparison is case-sensitive, like the repository's own listing.
func (c *Config) IsAssetFile(path string) bool {
	return filepath.Ext(path) == c.AssetExt
}

// IsCacheFile checks if a file carries the sidecar cache extension
func (c *Config) IsCacheFile(path string) bool {
	return filepath.Ext(path) == c.CacheExt
}
