package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

const defaultLoadConcurrency = 4

type loadResult struct {
	path string
	inst *plugins.Instance
}

// PluginManager loads plugin units through the registry and tracks the
// resulting instances in load order
type PluginManager struct {
	registry    *plugins.Registry
	logger      *logrus.Entry
	concurrency int

	mu         sync.RWMutex
	order      []*plugins.Instance
	byName     map[string]*plugins.Instance
	byPath     map[string]*plugins.Instance
	onRegister []func(*plugins.Instance)
}

// NewPluginManager creates a manager loading at most concurrency units at once
func NewPluginManager(registry *plugins.Registry, logger *logrus.Entry, concurrency int) *PluginManager {
	if concurrency <= 0 {
		concurrency = defaultLoadConcurrency
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PluginManager{
		registry:    registry,
		logger:      logger,
		concurrency: concurrency,
		byName:      make(map[string]*plugins.Instance),
		byPath:      make(map[string]*plugins.Instance),
	}
}

// OnRegister adds a callback run for every plugin after it is loaded
func (m *PluginManager) OnRegister(fn func(*plugins.Instance)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRegister = append(m.onRegister, fn)
}

// Discover lists the plugin units in dir that some loader claims: top-level
// files and directories holding a plugin.toml. The result is sorted.
func (m *PluginManager) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			manifest := filepath.Join(path, plugins.ManifestFile)
			if _, err := os.Stat(manifest); err != nil {
				continue
			}
			path = manifest
		}
		if _, ok := m.registry.Match(path); ok {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// LoadPlugins loads every unit found in dir. Units that fail to load are
// logged and skipped. Returns the plugins loaded by this call in path order.
func (m *PluginManager) LoadPlugins(ctx context.Context, dir string) ([]*plugins.Instance, error) {
	paths, err := m.Discover(dir)
	if err != nil {
		return nil, err
	}

	results := make([]loadResult, len(paths))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(m.concurrency)

	for i, path := range paths {
		eg.Go(func() error {
			if m.IsLoaded(path) {
				return nil
			}
			inst, err := m.loadUnit(egCtx, path)
			if err != nil {
				m.logger.WithError(err).WithField("path", path).Error("Could not load plugin")
				return nil
			}
			results[i] = loadResult{path: path, inst: inst}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded := make([]*plugins.Instance, 0, len(results))
	for _, r := range results {
		if r.inst == nil {
			continue
		}
		if err := m.register(r.path, r.inst); err != nil {
			m.logger.WithError(err).WithField("path", r.path).Error("Could not load plugin")
			continue
		}
		loaded = append(loaded, r.inst)
	}

	m.logger.Infof("Loaded %d of %d plugin(s) from %s", len(loaded), len(paths), dir)
	return loaded, nil
}

// LoadPlugin loads and registers the single unit at path
func (m *PluginManager) LoadPlugin(ctx context.Context, path string) (*plugins.Instance, error) {
	if m.IsLoaded(path) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, path)
	}

	inst, err := m.loadUnit(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := m.register(path, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (m *PluginManager) loadUnit(ctx context.Context, path string) (*plugins.Instance, error) {
	loader, ok := m.registry.Match(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, path)
	}
	return loader.LoadPlugin(ctx, path)
}

// register records inst under its name, runs its OnLoad hook and notifies
// the OnRegister callbacks. The name is reserved before OnLoad runs so a
// duplicate never sees its hook called.
func (m *PluginManager) register(path string, inst *plugins.Instance) error {
	name := inst.Name()

	m.mu.Lock()
	if existing, ok := m.byName[name]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s (already loaded as %s)", ErrDuplicatePlugin, name, existing.Description().FullName())
	}
	m.byName[name] = inst
	m.byPath[path] = inst
	m.mu.Unlock()

	inst.Logger().Infof("Loading %s", inst.Description().FullName())
	if err := inst.Load(); err != nil {
		m.mu.Lock()
		delete(m.byName, name)
		delete(m.byPath, path)
		m.mu.Unlock()
		return fmt.Errorf("error occurred while loading %s: %w", inst.Description().FullName(), err)
	}

	m.mu.Lock()
	m.order = append(m.order, inst)
	callbacks := append([]func(*plugins.Instance){}, m.onRegister...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(inst)
	}
	return nil
}

// EnablePlugins enables every loaded plugin in load order
func (m *PluginManager) EnablePlugins() {
	for _, inst := range m.Plugins() {
		inst.Loader().EnablePlugin(inst)
	}
}

// DisablePlugins disables every loaded plugin in reverse load order
func (m *PluginManager) DisablePlugins() {
	all := m.Plugins()
	for i := len(all) - 1; i >= 0; i-- {
		all[i].Loader().DisablePlugin(all[i])
	}
}

// EnablePlugin enables the named plugin
func (m *PluginManager) EnablePlugin(name string) error {
	inst, ok := m.GetPlugin(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	inst.Loader().EnablePlugin(inst)
	return nil
}

// DisablePlugin disables the named plugin
func (m *PluginManager) DisablePlugin(name string) error {
	inst, ok := m.GetPlugin(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	inst.Loader().DisablePlugin(inst)
	return nil
}

// GetPlugin returns the plugin with the given name
func (m *PluginManager) GetPlugin(name string) (*plugins.Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	for _, loaded := range m.order {
		if loaded == inst {
			return inst, true
		}
	}
	return nil, false
}

// Plugins returns the loaded plugins in load order
func (m *PluginManager) Plugins() []*plugins.Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*plugins.Instance, len(m.order))
	copy(result, m.order)
	return result
}

// IsLoaded reports whether the unit at path has been loaded or is loading
func (m *PluginManager) IsLoaded(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byPath[path]
	return ok
}
