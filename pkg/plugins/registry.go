package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// matchCacheSize bounds the number of file names whose loader is remembered
const matchCacheSize = 1024

type registryEntry struct {
	loader   Loader
	patterns []*regexp.Regexp
}

// Registry holds the loaders available to the host and picks one for a path
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry

	// base name -> matching loader, nil when none matched
	matches *lru.Cache[string, Loader]
}

// NewRegistry creates an empty loader registry
func NewRegistry() *Registry {
	matches, err := lru.New[string, Loader](matchCacheSize)
	if err != nil {
		panic(fmt.Sprintf("plugins: match cache: %v", err))
	}
	return &Registry{matches: matches}
}

// Register adds a loader. Its filters are compiled once here; loaders are
// consulted in registration order.
func (r *Registry) Register(loader Loader) error {
	if loader == nil {
		return fmt.Errorf("cannot register nil loader")
	}

	filters := loader.PluginFileFilters()
	patterns := make([]*regexp.Regexp, 0, len(filters))
	for _, f := range filters {
		re, err := regexp.Compile(f)
		if err != nil {
			return fmt.Errorf("loader %s has invalid filter %q: %w", loader.Name(), f, err)
		}
		patterns = append(patterns, re)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.loader.Name() == loader.Name() {
			return fmt.Errorf("loader already registered: %s", loader.Name())
		}
	}

	r.entries = append(r.entries, registryEntry{loader: loader, patterns: patterns})
	r.matches.Purge()
	return nil
}

// Get retrieves a loader by name
func (r *Registry) Get(name string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.loader.Name() == name {
			return e.loader, true
		}
	}
	return nil, false
}

// Loaders returns the registered loaders in registration order
func (r *Registry) Loaders() []Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Loader, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.loader)
	}
	return result
}

// Filters returns a copy of each loader's filters keyed by loader name
func (r *Registry) Filters() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]string, len(r.entries))
	for _, e := range r.entries {
		result[e.loader.Name()] = e.loader.PluginFileFilters()
	}
	return result
}

// Match returns the first loader with a filter matching the file name of path.
// Results are remembered per file name until the next Register.
func (r *Registry) Match(path string) (Loader, bool) {
	base := filepath.Base(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if loader, ok := r.matches.Get(base); ok {
		return loader, loader != nil
	}

	var found Loader
	for _, e := range r.entries {
		if e.matches(base) {
			found = e.loader
			break
		}
	}
	r.matches.Add(base, found)
	return found, found != nil
}

func (e registryEntry) matches(base string) bool {
	for _, re := range e.patterns {
		if re.MatchString(base) {
			return true
		}
	}
	return false
}

// Len returns the number of registered loaders
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
