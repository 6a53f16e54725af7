package script

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is returned when no package or module file exists for a name
	ErrModuleNotFound = errors.New("module not found")

	// ErrImportCycle is returned when a module requires itself, directly or not
	ErrImportCycle = errors.New("import cycle")

	// ErrInvalidModuleName is returned for names that are not dotted identifiers
	ErrInvalidModuleName = errors.New("invalid module name")

	// ErrNotInstantiable is returned when an entry point is neither a class table nor a constructor
	ErrNotInstantiable = errors.New("value is not instantiable")

	// ErrRuntimeClosed is returned when using a closed runtime
	ErrRuntimeClosed = errors.New("runtime is closed")
)

// ModuleNotFoundError reports the qualified name that could not be resolved.
type ModuleNotFoundError struct {
	Name string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no module named '%s'", e.Name)
}

// Is lets errors.Is match ErrModuleNotFound.
func (e *ModuleNotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}
