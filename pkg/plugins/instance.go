package plugins

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// binder is implemented by plugins that need the bound instance, e.g. to
// expose the description and logger to script code.
type binder interface {
	bind(inst *Instance) error
}

// Instance is a loaded plugin together with its description and lifecycle state
type Instance struct {
	id     uuid.UUID
	plugin Plugin

	mu          sync.RWMutex
	description *Description
	loader      Loader
	server      Server
	logger      *logrus.Entry

	lifecycleMu sync.Mutex
	enabled     atomic.Bool
}

// NewInstance wraps p in an unbound, disabled instance
func NewInstance(p Plugin) *Instance {
	return &Instance{
		id:     uuid.New(),
		plugin: p,
	}
}

// Bind attaches the description, owning loader and host. It succeeds once;
// later calls return an error matching ErrAlreadyBound.
func (i *Instance) Bind(d *Description, loader Loader, server Server) error {
	if d == nil {
		return invalidInputError("description must not be nil")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.description != nil {
		return alreadyBoundError(i.description.FullName())
	}

	base := logrus.StandardLogger()
	if server != nil && server.Logger() != nil {
		base = server.Logger()
	}

	i.description = d
	i.loader = loader
	i.server = server
	i.logger = base.WithField("plugin", d.Prefix())

	if b, ok := i.plugin.(binder); ok {
		if err := b.bind(i); err != nil {
			i.description, i.loader, i.server, i.logger = nil, nil, nil, nil
			return err
		}
	}

	return nil
}

func (i *Instance) mustBeBound() {
	if i.description == nil {
		panic("plugins: instance used before a description was bound")
	}
}

// ID returns the runtime identifier assigned when the instance was created
func (i *Instance) ID() uuid.UUID {
	return i.id
}

// Plugin returns the wrapped entry-point object
func (i *Instance) Plugin() Plugin {
	return i.plugin
}

// IsBound reports whether Bind has succeeded
func (i *Instance) IsBound() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.description != nil
}

func (i *Instance) Description() *Description {
	i.mu.RLock()
	defer i.mu.RUnlock()
	i.mustBeBound()
	return i.description
}

func (i *Instance) Name() string {
	return i.Description().Name()
}

func (i *Instance) Logger() *logrus.Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	i.mustBeBound()
	return i.logger
}

func (i *Instance) Loader() Loader {
	i.mu.RLock()
	defer i.mu.RUnlock()
	i.mustBeBound()
	return i.loader
}

func (i *Instance) Server() Server {
	i.mu.RLock()
	defer i.mu.RUnlock()
	i.mustBeBound()
	return i.server
}

// IsEnabled reports the lifecycle flag
func (i *Instance) IsEnabled() bool {
	i.Description()
	return i.enabled.Load()
}

// Load runs the plugin's OnLoad hook
func (i *Instance) Load() error {
	i.Description()
	return i.plugin.OnLoad()
}

// Command passes a command to the plugin's OnCommand hook
func (i *Instance) Command(sender CommandSender, command Command, label string, args []string) (bool, error) {
	i.Description()
	return i.plugin.OnCommand(sender, command, label, args)
}

// setEnabled flips the lifecycle flag and runs the matching hook. announce is
// called only when the flag actually changes, before the hook runs. Hook
// errors are logged. Reports whether the flag changed.
func (i *Instance) setEnabled(enabled bool, announce func()) bool {
	logger := i.Logger()

	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()

	if i.enabled.Load() == enabled {
		return false
	}

	announce()
	i.enabled.Store(enabled)

	if enabled {
		if err := i.plugin.OnEnable(); err != nil {
			logger.WithError(err).Errorf("Error occurred while enabling %s", i.Description().FullName())
		}
	} else {
		if err := i.plugin.OnDisable(); err != nil {
			logger.WithError(err).Errorf("Error occurred while disabling %s", i.Description().FullName())
		}
	}

	return true
}
