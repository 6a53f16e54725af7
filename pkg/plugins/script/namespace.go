package script

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

const (
	// SourceExt is the file extension of Lua modules
	SourceExt = ".lua"

	// PackageIndex is the file that turns a directory into a package
	PackageIndex = "init" + SourceExt
)

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Namespace is a place code can be imported from.
type Namespace interface {
	// Root identifies the namespace (archive path or directory)
	Root() string

	// ReadFile returns the contents of a slash-separated member name
	ReadFile(name string) ([]byte, error)

	// Import resolves and executes the module with the given qualified name.
	// The caller must hold the runtime (see Runtime.Do).
	Import(L *lua.LState, name string) (*Module, error)
}

// locateFunc resolves a qualified module name to a file and whether it is a package.
type locateFunc func(name string) (file string, pkg bool, err error)

// importer holds the import machinery shared by namespaces: cycle tracking,
// cache lookups, and module execution. Resolution is namespace specific.
type importer struct {
	cache   *ModuleCache
	locate  locateFunc
	read    func(file string) ([]byte, error)
	loading map[string]bool // guarded by the runtime lock
}

func newImporter(cache *ModuleCache, locate locateFunc, read func(string) ([]byte, error)) *importer {
	return &importer{
		cache:   cache,
		locate:  locate,
		read:    read,
		loading: make(map[string]bool),
	}
}

// ValidateModuleName checks that name is a dotted sequence of identifiers
func ValidateModuleName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModuleName)
	}
	for _, part := range strings.Split(name, ".") {
		if !identRegex.MatchString(part) {
			return fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
		}
	}
	return nil
}

func (im *importer) importModule(L *lua.LState, name string) (*Module, error) {
	if err := ValidateModuleName(name); err != nil {
		return nil, err
	}

	if m, ok := im.cache.Get(name); ok {
		return m, nil
	}

	if im.loading[name] {
		return nil, fmt.Errorf("%w: %s", ErrImportCycle, name)
	}
	im.loading[name] = true
	defer delete(im.loading, name)

	return im.cache.LoadOrCompile(name, func() (*Module, error) {
		file, pkg, err := im.locate(name)
		if err != nil {
			return nil, err
		}

		src, err := im.read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read module %s: %w", name, err)
		}

		return im.exec(L, name, file, pkg, src)
	})
}

// exec compiles and runs a chunk in a fresh environment that inherits globals.
func (im *importer) exec(L *lua.LState, name, file string, pkg bool, src []byte) (*Module, error) {
	fn, err := L.Load(bytes.NewReader(src), file)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module %s: %w", name, err)
	}

	env := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.Get(lua.GlobalsIndex))
	L.SetMetatable(env, mt)
	env.RawSetString("require", L.NewFunction(im.require))
	env.RawSetString("_NAME", lua.LString(name))
	fn.Env = env

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil, fmt.Errorf("failed to execute module %s: %w", name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	exports := env
	switch ret.Type() {
	case lua.LTTable:
		exports = ret.(*lua.LTable)
	case lua.LTNil:
	default:
		return nil, fmt.Errorf("module %s returned a %s, expected a table", name, ret.Type())
	}

	return &Module{
		Name:    name,
		File:    file,
		Package: pkg,
		Exports: exports,
	}, nil
}

// require is the Lua-visible import function bound to this namespace.
func (im *importer) require(L *lua.LState) int {
	name := L.CheckString(1)

	m, err := im.importModule(L, name)
	if err == nil {
		L.Push(m.Exports)
		return 1
	}

	if errors.Is(err, ErrModuleNotFound) {
		if lib := standardModule(L, name); lib != lua.LNil {
			L.Push(lib)
			return 1
		}
	}

	L.RaiseError("%s", err.Error())
	return 0
}

// standardModule looks name up in package.loaded, where the Lua standard library lives.
func standardModule(L *lua.LState, name string) lua.LValue {
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return lua.LNil
	}
	loaded, ok := pkg.RawGetString("loaded").(*lua.LTable)
	if !ok {
		return lua.LNil
	}
	return loaded.RawGetString(name)
}
