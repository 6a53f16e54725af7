package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/cornerstone/pkg/observability"
	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

// DefaultDebounce is how long a unit must stay quiet before it is loaded
const DefaultDebounce = 500 * time.Millisecond

// Watcher loads and enables plugin units that appear in a directory while
// the host runs. Changes to units that are already loaded are only logged.
type Watcher struct {
	manager  *PluginManager
	dir      string
	logger   *logrus.Entry
	debounce time.Duration
	fsw      *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
	done   chan struct{}
	once   sync.Once

	// OnLoaded is called with each plugin the watcher enabled
	OnLoaded func(*plugins.Instance)
}

// NewWatcher watches dir and its immediate subdirectories
func NewWatcher(manager *PluginManager, dir string, logger *logrus.Entry, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		manager:  manager,
		dir:      filepath.Clean(dir),
		logger:   logger,
		debounce: debounce,
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 16),
		done:     make(chan struct{}),
	}

	if err := w.setup(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) setup() error {
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read plugin directory %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.fsw.Add(filepath.Join(w.dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to watch %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

// Run processes file system events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Infof("Watching %s for new plugins", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		case path := <-w.ready:
			w.process(ctx, path)
		}
	}
}

// Close stops watching and cancels pending loads
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })

	w.mu.Lock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	name := filepath.Clean(event.Name)
	parent := filepath.Dir(name)

	if event.Op&fsnotify.Create != 0 && parent == w.dir {
		if fi, err := os.Stat(name); err == nil && fi.IsDir() {
			w.logger.Debugf("New directory: %s", name)
			if err := w.fsw.Add(name); err != nil {
				w.logger.WithError(err).Warnf("Error watching new directory %s", name)
			}
			if manifest := filepath.Join(name, plugins.ManifestFile); fileExists(manifest) {
				w.schedule(manifest)
			}
			return
		}
	}

	switch {
	case parent == w.dir:
		if _, ok := w.manager.registry.Match(name); ok {
			w.schedule(name)
		}
	case filepath.Dir(parent) == w.dir && filepath.Base(name) == plugins.ManifestFile:
		w.schedule(name)
	case filepath.Dir(parent) == w.dir:
		manifest := filepath.Join(parent, plugins.ManifestFile)
		if w.manager.IsLoaded(manifest) {
			w.logger.Debugf("Ignoring change to %s; restart to reload it", name)
		}
	}
}

// schedule queues path once no further events arrive for it within the
// debounce interval
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) process(ctx context.Context, path string) {
	defer observability.RecoverPanic(w.logger, "plugin watcher")

	if w.manager.IsLoaded(path) {
		w.logger.Infof("Plugin unit %s changed; restart to reload it", path)
		return
	}

	inst, err := w.manager.LoadPlugin(ctx, path)
	if err != nil {
		w.logger.WithError(err).WithField("path", path).Error("Could not load plugin")
		return
	}
	inst.Loader().EnablePlugin(inst)

	if w.OnLoaded != nil {
		w.OnLoaded(inst)
	}
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
