package plugins

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Plugin is the capability set every entry point must provide
type Plugin interface {
	OnLoad() error
	OnEnable() error
	OnDisable() error
	OnCommand(sender CommandSender, command Command, label string, args []string) (bool, error)
}

// Server is the host handle injected into plugins
type Server interface {
	Name() string
	Version() string
	Logger() *logrus.Logger
}

// CommandSender is whoever issued a command
type CommandSender interface {
	Name() string
	SendMessage(message string)
}

// Command is a command declared in a plugin manifest
type Command struct {
	Name        string   `toml:"-" yaml:"-" json:"-"`
	Description string   `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Usages      []string `toml:"usages" yaml:"usages,omitempty" json:"usages,omitempty"`
	Aliases     []string `toml:"aliases" yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Permissions []string `toml:"permissions" yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// Loader recognizes and loads one physical form of plugin unit
type Loader interface {
	// Name identifies the loader in logs and metrics
	Name() string

	// LoadPlugin loads the plugin unit at path into a bound, disabled instance
	LoadPlugin(ctx context.Context, path string) (*Instance, error)

	// ReadDescription parses the manifest of the unit at path without loading code
	ReadDescription(path string) (*Description, error)

	// PluginFileFilters returns a copy of the file name patterns this loader claims
	PluginFileFilters() []string

	// EnablePlugin and DisablePlugin are idempotent and never fail
	EnablePlugin(inst *Instance)
	DisablePlugin(inst *Instance)

	// Server returns the host the loader injects into plugins
	Server() Server
}

// Observer receives load and lifecycle events, typically to record metrics
type Observer interface {
	PluginLoaded(loader string, duration time.Duration, err error)
	PluginTransitioned(name string, enabled bool)
}
