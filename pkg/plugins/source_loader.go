package plugins

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/platinummonkey/cornerstone/pkg/plugins/script"
)

// SourceLoader loads plugins from a directory holding plugin.toml and Lua sources
type SourceLoader struct {
	baseLoader
	cache *script.ModuleCache
}

// NewSourceLoader creates a loader claiming files named plugin.toml.
// Modules are shared through cache across every source plugin; pass the
// same cache to all source loaders using rt.
func NewSourceLoader(server Server, rt *script.Runtime, cache *script.ModuleCache, opts ...Option) *SourceLoader {
	if cache == nil {
		cache = script.NewModuleCache()
	}

	return &SourceLoader{
		baseLoader: newBaseLoader("source", []string{"^" + regexp.QuoteMeta(ManifestFile) + "$"}, server, rt, opts),
		cache:      cache,
	}
}

// ModuleCache returns the cache modules are registered in
func (l *SourceLoader) ModuleCache() *script.ModuleCache {
	return l.cache
}

// LoadPlugin loads the plugin whose manifest is at path. The manifest's
// directory is the root modules are resolved from.
func (l *SourceLoader) LoadPlugin(ctx context.Context, path string) (*Instance, error) {
	return l.load(ctx, l, path, l.open)
}

// ReadDescription parses the manifest at path
func (l *SourceLoader) ReadDescription(path string) (*Description, error) {
	return l.readDescription(path, l.open)
}

func (l *SourceLoader) open(path string) (script.Namespace, []byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, err
	}

	return script.NewSourceNamespace(filepath.Dir(abs), l.cache), data, nil
}
