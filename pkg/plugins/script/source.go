package script

import (
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// SourceNamespace imports modules from a directory tree on disk.
// Modules are registered in the shared cache under their qualified name, so
// two source trees providing the same module name share one module.
type SourceNamespace struct {
	root    string
	imports *importer
}

// NewSourceNamespace creates a namespace rooted at dir
func NewSourceNamespace(dir string, cache *ModuleCache) *SourceNamespace {
	ns := &SourceNamespace{root: dir}
	ns.imports = newImporter(cache, ns.locate, os.ReadFile)
	return ns
}

// Root returns the plugin directory
func (ns *SourceNamespace) Root() string {
	return ns.root
}

// ReadFile reads a slash-separated path relative to the root
func (ns *SourceNamespace) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(ns.root, filepath.FromSlash(name)))
}

// Import resolves name on disk and executes it unless already cached
func (ns *SourceNamespace) Import(L *lua.LState, name string) (*Module, error) {
	return ns.imports.importModule(L, name)
}

// locate checks <root>/a/b/init.lua, then <root>/a/b.lua.
func (ns *SourceNamespace) locate(name string) (string, bool, error) {
	parts := strings.Split(name, ".")

	pkgFile := filepath.Join(ns.root, filepath.Join(parts...), PackageIndex)
	if isFile(pkgFile) {
		return pkgFile, true, nil
	}

	last := len(parts) - 1
	modFile := filepath.Join(ns.root, filepath.Join(parts[:last]...), parts[last]+SourceExt)
	if isFile(modFile) {
		return modFile, false, nil
	}

	return "", false, &ModuleNotFoundError{Name: name}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
