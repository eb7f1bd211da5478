package importer

import (
	"path/filepath"
	"strings"

	"github.com/rshade/cryptoassets-importer/internal/config"
)

// Definition describes one generated file and how its assets are loaded.
type Definition struct {
	Name  string
	Paths []string

	// Output is the base name of the generated file, without extension.
	Output string

	Loader        string
	File          string
	SignatureFile string
	Skip          []string

	RequireTicker bool
	KeyByID       bool

	// Filter, when set, replaces the default id predicate. Skip patterns
	// still apply.
	Filter func(folder, id string) bool
}

// FromConfig builds a Definition from its configuration, filling defaults.
func FromConfig(ic config.ImporterConfig) Definition {
	def := Definition{
		Name:          ic.Name,
		Paths:         append([]string(nil), ic.Paths...),
		Output:        ic.Output,
		Loader:        ic.Loader,
		File:          ic.File,
		SignatureFile: ic.SignatureFile,
		Skip:          append([]string(nil), ic.Skip...),
		RequireTicker: ic.RequireTicker,
		KeyByID:       ic.KeyByID,
	}
	if def.Output == "" {
		def.Output = def.Name
	}
	if def.Loader == "" {
		def.Loader = config.LoaderJSON
	}
	if def.File == "" {
		def.File = config.DefaultAssetFile
	}
	return def
}

// Definitions converts a list of importer configurations.
func Definitions(list []config.ImporterConfig) []Definition {
	defs := make([]Definition, 0, len(list))
	for _, ic := range list {
		defs = append(defs, FromConfig(ic))
	}
	return defs
}

// ShouldLoad reports whether the asset directory id inside folder is imported.
// By default ids ending in ".json" are rejected; ids matching a Skip glob are
// always rejected.
func (d Definition) ShouldLoad(folder, id string) bool {
	for _, pattern := range d.Skip {
		if ok, err := filepath.Match(pattern, id); err == nil && ok {
			return false
		}
	}
	if d.Filter != nil {
		return d.Filter(folder, id)
	}
	return !strings.HasSuffix(id, ".json")
}

// OutputFile returns the generated file name for format.
func (d Definition) OutputFile(format string) string {
	return d.Output + "." + format
}
