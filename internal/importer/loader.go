package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rshade/cryptoassets-importer/internal/config"
	"github.com/rshade/cryptoassets-importer/internal/logging"
)

// Registry layout.
const (
	assetsDir     = "assets"
	signaturesDir = "signatures/prod"
)

// Loader errors.
var (
	ErrUnknownLoader = errors.New("unknown loader")
	ErrNotAnObject   = errors.New("asset document is not a JSON object")
)

// Source locates one asset directory in a registry checkout.
type Source struct {
	Path            string
	ID              string
	Folder          string
	SignatureFolder string
}

// LoadFunc loads one asset.
type LoadFunc func(ctx context.Context, src Source) (Asset, error)

// loaderFor returns the load function for def.Loader.
func loaderFor(def Definition) (LoadFunc, error) {
	switch def.Loader {
	case "", config.LoaderJSON:
		return func(ctx context.Context, src Source) (Asset, error) {
			return loadJSON(ctx, src, def.File)
		}, nil
	case config.LoaderSigned:
		return func(ctx context.Context, src Source) (Asset, error) {
			asset, err := loadJSON(ctx, src, def.File)
			if err != nil {
				return Asset{}, err
			}
			sigPath := filepath.Join(src.SignatureFolder, src.ID, def.SignatureFile)
			raw, err := os.ReadFile(sigPath)
			if err != nil {
				return Asset{}, fmt.Errorf("reading signature: %w", err)
			}
			if asset.Signature, err = encodeSignature(raw); err != nil {
				return Asset{}, fmt.Errorf("%s: %w", sigPath, err)
			}
			return asset, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownLoader, def.Loader)
	}
}

func loadJSON(ctx context.Context, src Source, file string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	path := filepath.Join(src.Folder, src.ID, file)
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, fmt.Errorf("reading asset: %w", err)
	}

	var doc any
	if err = json.Unmarshal(data, &doc); err != nil {
		return Asset{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Asset{}, fmt.Errorf("%s: %w", path, ErrNotAnObject)
	}

	return Asset{Path: src.Path, ID: src.ID, Data: obj}, nil
}

// discover lists the asset directories of one registry path, sorted by
// name and filtered by def.ShouldLoad.
func discover(ctx context.Context, registryDir string, def Definition, path string) ([]Source, error) {
	folder := filepath.Join(registryDir, assetsDir, filepath.FromSlash(path))
	signatureFolder := filepath.Join(registryDir, filepath.FromSlash(signaturesDir), filepath.FromSlash(path))

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", folder, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)

	sources := make([]Source, 0, len(ids))
	for _, id := range ids {
		if !def.ShouldLoad(folder, id) {
			continue
		}
		sources = append(sources, Source{
			Path:            path,
			ID:              id,
			Folder:          folder,
			SignatureFolder: signatureFolder,
		})
	}

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "importer").
		Str("importer", def.Name).
		Str("folder", folder).
		Int("directories", len(ids)).
		Int("selected", len(sources)).
		Msg("discovered assets")

	return sources, nil
}
