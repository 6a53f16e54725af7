package host

import "errors"

var (
	// ErrPluginNotFound is returned when no loaded plugin has the requested name
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrDuplicatePlugin is returned when a plugin with the same name is already loaded
	ErrDuplicatePlugin = errors.New("plugin already loaded")

	// ErrNoLoader is returned when no registered loader claims a path
	ErrNoLoader = errors.New("no loader matches path")

	// ErrUnknownCommand is returned when dispatching a command nobody registered
	ErrUnknownCommand = errors.New("unknown command")

	// ErrPluginDisabled is returned when the plugin owning a command is disabled
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrEmptyCommand is returned when dispatching a blank command line
	ErrEmptyCommand = errors.New("empty command line")
)
