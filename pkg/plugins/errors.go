package plugins

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies plugin loading failures
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindManifest
	KindModuleResolution
	KindLoad
	KindCapabilityMismatch
	KindAlreadyBound
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown error",
	KindInvalidInput:       "invalid input",
	KindManifest:           "invalid manifest",
	KindModuleResolution:   "module resolution failed",
	KindLoad:               "load failed",
	KindCapabilityMismatch: "capability mismatch",
	KindAlreadyBound:       "already bound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned by loaders. It carries a Kind callers can
// branch on, the subject it concerns (plugin full name, module name or path),
// and the wrapped cause.
type Error struct {
	Kind    Kind
	Subject string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrModuleResolution)
// holds anywhere in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Subject == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	// ErrInvalidInput matches errors caused by a missing or empty path
	ErrInvalidInput = &Error{Kind: KindInvalidInput}

	// ErrManifest matches unreadable, malformed or incomplete manifests
	ErrManifest = &Error{Kind: KindManifest}

	// ErrModuleResolution matches entry-point modules that could not be found
	ErrModuleResolution = &Error{Kind: KindModuleResolution}

	// ErrLoad matches every failure returned by LoadPlugin
	ErrLoad = &Error{Kind: KindLoad}

	// ErrCapabilityMismatch matches entry points missing a lifecycle method
	ErrCapabilityMismatch = &Error{Kind: KindCapabilityMismatch}

	// ErrAlreadyBound matches a second Bind on the same instance
	ErrAlreadyBound = &Error{Kind: KindAlreadyBound}
)

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func invalidInputError(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg}
}

func manifestError(msg string, err error) *Error {
	return &Error{Kind: KindManifest, Msg: msg, Err: err}
}

func manifestPathError(path, msg string, err error) *Error {
	return &Error{
		Kind:    KindManifest,
		Subject: path,
		Msg:     fmt.Sprintf("%s %s", msg, path),
		Err:     err,
	}
}

func moduleResolutionError(module string, err error) *Error {
	return &Error{
		Kind:    KindModuleResolution,
		Subject: module,
		Msg:     fmt.Sprintf("unable to resolve module %s", module),
		Err:     err,
	}
}

func capabilityMismatchError(main string, missing []string) *Error {
	return &Error{
		Kind:    KindCapabilityMismatch,
		Subject: main,
		Msg: fmt.Sprintf("main class %s does not implement the plugin capability set (missing %s)",
			main, strings.Join(missing, ", ")),
	}
}

func alreadyBoundError(name string) *Error {
	return &Error{
		Kind:    KindAlreadyBound,
		Subject: name,
		Msg:     fmt.Sprintf("plugin %s is already bound to a description", name),
	}
}

// manifestLoadError wraps failures that happen before the plugin name is known.
func manifestLoadError(path string, err error) *Error {
	return &Error{
		Kind:    KindLoad,
		Subject: path,
		Msg:     fmt.Sprintf("unable to load manifest from %s", path),
		Err:     err,
	}
}

func pluginLoadError(fullName string, err error) *Error {
	return &Error{
		Kind:    KindLoad,
		Subject: fullName,
		Msg:     fmt.Sprintf("unable to load plugin %s", fullName),
		Err:     err,
	}
}
