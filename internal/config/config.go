package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/cryptoassets-importer/internal/engine/cache"
	"github.com/rshade/cryptoassets-importer/internal/registry"
)

// Defaults for a fresh configuration.
const (
	// CurrentVersion is the config schema version written by WriteDefault.
	CurrentVersion = "1.0.0"

	// DefaultConcurrency matches the batch window the registry loaders were tuned for.
	DefaultConcurrency = 50

	DefaultOutputDir = "generated"
	DefaultFormat    = FormatJSON

	// DefaultAssetFile is read from every asset directory.
	DefaultAssetFile = "common.json"

	configFileName = "config.yaml"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Loader kinds.
const (
	// LoaderJSON reads a single JSON document per asset.
	LoaderJSON = "json"

	// LoaderSigned reads the asset document plus a detached signature.
	LoaderSigned = "signed"
)

// Environment overrides applied after the config file.
const (
	EnvHome        = "ASSETIMPORT_HOME"
	EnvConcurrency = "ASSETIMPORT_CONCURRENCY"
	EnvOutputDir   = "ASSETIMPORT_OUTPUT_DIR"
	EnvFormat      = "ASSETIMPORT_FORMAT"
	EnvTickersURL  = "ASSETIMPORT_TICKERS_URL"
	EnvLogLevel    = "ASSETIMPORT_LOG_LEVEL"
	EnvLogFormat   = "ASSETIMPORT_LOG_FORMAT"
)

// ErrConfigExists is returned by WriteDefault when the file exists and force is false.
var ErrConfigExists = errors.New("config file already exists")

// Config is the full assetimport configuration.
type Config struct {
	Version   string           `yaml:"version"`
	Import    ImportConfig     `yaml:"import"`
	Registry  RegistryConfig   `yaml:"registry"`
	Cache     CacheConfig      `yaml:"cache"`
	Logging   LoggingConfig    `yaml:"logging"`
	Importers []ImporterConfig `yaml:"importers"`
}

// ImportConfig controls how importers are run and where they write.
type ImportConfig struct {
	// Concurrency is the number of assets loaded at once per registry path.
	Concurrency int `yaml:"concurrency"`

	// ParallelImporters bounds how many importers run at once (0 = all).
	ParallelImporters int `yaml:"parallel_importers"`

	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`
}

// RegistryConfig points at the remote countervalues registry.
type RegistryConfig struct {
	TickersURL string        `yaml:"tickers_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig controls the on-disk registry response cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Directory string        `yaml:"directory"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// ImporterConfig defines one generated data file and the registry folders it is built from.
type ImporterConfig struct {
	Name string `yaml:"name"`

	// Paths are folders under <registry>/assets/ holding one directory per asset.
	Paths []string `yaml:"paths"`

	// Output is the base name of the generated file (defaults to Name).
	Output string `yaml:"output,omitempty"`

	Loader        string   `yaml:"loader,omitempty"`
	File          string   `yaml:"file,omitempty"`
	SignatureFile string   `yaml:"signature_file,omitempty"`
	Skip          []string `yaml:"skip,omitempty"`

	// RequireTicker drops assets whose ticker has no countervalue.
	RequireTicker bool `yaml:"require_ticker,omitempty"`

	// KeyByID writes an object keyed by asset id instead of a list.
	KeyByID bool `yaml:"key_by_id,omitempty"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return NewWithEnv(os.LookupEnv)
}

// NewWithEnv is New with an explicit environment lookup, used to place the
// cache directory under $ASSETIMPORT_HOME.
func NewWithEnv(lookupEnv func(string) (string, bool)) *Config {
	cacheDir := ""
	if dir, err := ConfigDirWithEnv(lookupEnv); err == nil {
		cacheDir = filepath.Join(dir, "cache")
	}

	return &Config{
		Version: CurrentVersion,
		Import: ImportConfig{
			Concurrency: DefaultConcurrency,
			OutputDir:   DefaultOutputDir,
			Format:      DefaultFormat,
		},
		Registry: RegistryConfig{
			TickersURL: registry.DefaultTickersURL,
			Timeout:    registry.DefaultTimeout,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: cacheDir,
			TTL:       cache.DefaultTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Importers: DefaultImporters(),
	}
}

// DefaultImporters returns the token importers generated out of the box.
func DefaultImporters() []ImporterConfig {
	return []ImporterConfig{
		{
			Name:          "erc20",
			Paths:         []string{"tokens/ethereum_erc20"},
			Loader:        LoaderSigned,
			File:          DefaultAssetFile,
			SignatureFile: "signature",
		},
		{
			Name:          "bep20",
			Paths:         []string{"tokens/bsc_bep20"},
			Loader:        LoaderSigned,
			File:          DefaultAssetFile,
			SignatureFile: "signature",
		},
		{
			Name:          "polygon-erc20",
			Paths:         []string{"tokens/polygon_erc20"},
			Loader:        LoaderSigned,
			File:          DefaultAssetFile,
			SignatureFile: "signature",
		},
		{
			Name:          "currencies-exchange",
			Paths:         []string{"currencies"},
			Loader:        LoaderJSON,
			File:          DefaultAssetFile,
			RequireTicker: true,
			KeyByID:       true,
		},
	}
}

// DefaultPath returns the config file location under the config directory.
func DefaultPath() (string, error) {
	return DefaultPathWithEnv(os.LookupEnv)
}

// DefaultPathWithEnv is DefaultPath with an explicit environment lookup.
func DefaultPathWithEnv(lookupEnv func(string) (string, bool)) (string, error) {
	dir, err := ConfigDirWithEnv(lookupEnv)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup for testability.
func LoadWithEnv(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := NewWithEnv(lookupEnv)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if mergeErr := ShallowMergeYAML(cfg, path); mergeErr != nil {
				return nil, mergeErr
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, lookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		cfg.Import.Concurrency = n
	}
	if v, ok := lookupEnv(EnvOutputDir); ok && v != "" {
		cfg.Import.OutputDir = v
	}
	if v, ok := lookupEnv(EnvFormat); ok && v != "" {
		cfg.Import.Format = v
	}
	if v, ok := lookupEnv(EnvTickersURL); ok {
		cfg.Registry.TickersURL = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookupEnv(EnvLogFormat); ok && v != "" {
		cfg.Logging.Format = v
	}
	if v, ok := lookupEnv(cache.EnvCacheDir); ok && v != "" {
		cfg.Cache.Directory = v
	}
	if v, ok := lookupEnv(cache.EnvCacheEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", cache.EnvCacheEnabled, err)
		}
		cfg.Cache.Enabled = enabled
	}
	if v, ok := lookupEnv(cache.EnvCacheTTL); ok && v != "" {
		ttl, err := cache.ParseTTL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", cache.EnvCacheTTL, err)
		}
		cfg.Cache.TTL = ttl
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating parent directories.
func WriteDefault(path string, force bool) error {
	return New().Write(path, force)
}

// Write saves the configuration to path, creating parent directories. An
// existing file is only replaced when force is set.
func (c *Config) Write(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Importer returns the importer definition with the given name.
func (c *Config) Importer(name string) (ImporterConfig, bool) {
	for _, imp := range c.Importers {
		if imp.Name == name {
			return imp, true
		}
	}
	return ImporterConfig{}, false
}
