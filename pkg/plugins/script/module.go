package script

import (
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/sync/singleflight"
)

// Module is an executed Lua chunk.
type Module struct {
	Name    string      // Qualified name, e.g. "a.b"
	File    string      // File or archive member the chunk was read from
	Package bool        // True when loaded from an init.lua
	Exports *lua.LTable // Table returned by the chunk, or its environment
}

// ModuleCache maps qualified module names to executed modules.
// A name is compiled at most once; later lookups return the same *Module.
type ModuleCache struct {
	mu      sync.RWMutex
	modules map[string]*Module
	group   singleflight.Group
}

// NewModuleCache creates an empty module cache
func NewModuleCache() *ModuleCache {
	return &ModuleCache{
		modules: make(map[string]*Module),
	}
}

// Get returns the cached module for name
func (c *ModuleCache) Get(name string) (*Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.modules[name]
	return m, ok
}

// LoadOrCompile returns the cached module for name, calling compile to build
// and register it on a miss. Concurrent callers for the same name share a
// single compile. Failed compiles are not cached.
func (c *ModuleCache) LoadOrCompile(name string, compile func() (*Module, error)) (*Module, error) {
	if m, ok := c.Get(name); ok {
		return m, nil
	}

	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		if m, ok := c.Get(name); ok {
			return m, nil
		}

		m, err := compile()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.modules[name]; ok {
			return existing, nil
		}
		c.modules[name] = m
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Module), nil
}

// Len returns the number of cached modules
func (c *ModuleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.modules)
}

// Names returns the cached module names in sorted order
func (c *ModuleCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
