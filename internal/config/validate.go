package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rshade/cryptoassets-importer/internal/engine/cache"
)

// SupportedVersions is the semver constraint a config file's version must satisfy.
const SupportedVersions = "^1.0"

// Validation errors.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUnsupportedVersion = errors.New("unsupported config version")
)

// Validate checks the configuration and returns every problem found, joined.
// Each problem wraps ErrInvalidConfig (or ErrUnsupportedVersion).
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if err := checkVersion(c.Version); err != nil {
		errs = append(errs, err)
	}

	if c.Import.Concurrency < 1 {
		invalid("import.concurrency must be at least 1, got %d", c.Import.Concurrency)
	}
	if c.Import.ParallelImporters < 0 {
		invalid("import.parallel_importers must be >= 0, got %d", c.Import.ParallelImporters)
	}
	if !IsKnownFormat(c.Import.Format) {
		invalid("import.format must be %q or %q, got %q", FormatJSON, FormatYAML, c.Import.Format)
	}
	if c.Import.OutputDir == "" {
		invalid("import.output_dir is required")
	}
	if c.Registry.Timeout < 0 {
		invalid("registry.timeout must be >= 0")
	}
	if c.Cache.TTL < 0 || c.Cache.TTL > cache.MaxTTL {
		invalid("cache.ttl must be between 0 and %s", cache.FormatDuration(cache.MaxTTL))
	}
	if c.Cache.Enabled && c.Cache.Directory == "" {
		invalid("cache.directory is required when the cache is enabled")
	}

	seen := make(map[string]bool, len(c.Importers))
	for i, imp := range c.Importers {
		label := imp.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			invalid("importers[%d].name is required", i)
		} else if seen[imp.Name] {
			invalid("importer %q is defined more than once", imp.Name)
		}
		seen[imp.Name] = true

		if len(imp.Paths) == 0 {
			invalid("importer %s: at least one path is required", label)
		}
		for _, p := range imp.Paths {
			if strings.TrimSpace(p) == "" || filepath.IsAbs(p) || strings.Contains(filepath.ToSlash(p), "..") {
				invalid("importer %s: path %q must be a relative folder under assets/", label, p)
			}
		}
		switch imp.Loader {
		case "", LoaderJSON:
		case LoaderSigned:
			if imp.SignatureFile == "" {
				invalid("importer %s: loader %q requires signature_file", label, LoaderSigned)
			}
		default:
			invalid("importer %s: unknown loader %q", label, imp.Loader)
		}
		for _, pattern := range imp.Skip {
			if _, err := filepath.Match(pattern, ""); err != nil {
				invalid("importer %s: bad skip pattern %q", label, pattern)
			}
		}
	}

	return errors.Join(errs...)
}

// IsKnownFormat reports whether format names a supported output format.
func IsKnownFormat(format string) bool {
	return format == FormatJSON || format == FormatYAML
}

// checkVersion accepts an empty version as the current one.
func checkVersion(version string) error {
	if version == "" {
		return nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q is not a semantic version: %w", ErrUnsupportedVersion, version, err)
	}

	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("parsing version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, SupportedVersions)
	}
	return nil
}
