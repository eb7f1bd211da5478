package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyVersion   = "version"
	keyImport    = "import"
	keyRegistry  = "registry"
	keyCache     = "cache"
	keyLogging   = "logging"
	keyImporters = "importers"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyVersion:   true,
	keyImport:    true,
	keyRegistry:  true,
	keyCache:     true,
	keyLogging:   true,
	keyImporters: true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. A key present in the file replaces that whole section;
// fields missing inside a replaced section take their built-in defaults,
// not the target's previous values. Keys absent in the file are left unchanged.
func ShallowMergeYAML(target *Config, path string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config YAML from %s: %w", path, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		// Re-marshal the single section so we can unmarshal it onto the
		// strongly-typed target field.
		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling config section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying config section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes one section onto a copy of its defaults and
// stores it in target.
func unmarshalSection(target *Config, key string, data []byte) error {
	defaults := New()

	switch key {
	case keyVersion:
		var v string
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Version = v
	case keyImport:
		v := defaults.Import
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Import = v
	case keyRegistry:
		v := defaults.Registry
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Registry = v
	case keyCache:
		v := defaults.Cache
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Cache = v
	case keyLogging:
		v := defaults.Logging
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
	case keyImporters:
		var v []ImporterConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Importers = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
