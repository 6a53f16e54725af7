package script

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

type archiveEntry struct {
	member string
	pkg    bool
}

// ArchiveNamespace imports modules from a zip archive held in memory.
// Its module cache is private to the archive.
type ArchiveNamespace struct {
	path    string
	zr      *zip.Reader
	toc     map[string]archiveEntry
	imports *importer
}

// OpenArchive reads the archive at path and indexes the modules it contains.
// No file handle is kept open once OpenArchive returns.
func OpenArchive(path string) (*ArchiveNamespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	return NewArchiveNamespace(path, data)
}

// NewArchiveNamespace indexes an archive already read into memory
func NewArchiveNamespace(name string, data []byte) (*ArchiveNamespace, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", name, err)
	}

	ns := &ArchiveNamespace{
		path: name,
		zr:   zr,
		toc:  buildTOC(zr),
	}
	ns.imports = newImporter(NewModuleCache(), ns.locate, ns.ReadFile)
	return ns, nil
}

// buildTOC maps module names to archive members. A package (init.lua) takes
// precedence over a plain module with the same name.
func buildTOC(zr *zip.Reader) map[string]archiveEntry {
	toc := make(map[string]archiveEntry)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, SourceExt) {
			continue
		}

		member := strings.TrimPrefix(path.Clean(f.Name), "/")
		dir, file := path.Split(member)
		dir = strings.TrimSuffix(dir, "/")

		if file == PackageIndex {
			if dir == "" {
				continue
			}
			if name, ok := moduleNameFromParts(strings.Split(dir, "/")); ok {
				toc[name] = archiveEntry{member: member, pkg: true}
			}
			continue
		}

		parts := strings.Split(strings.TrimSuffix(member, SourceExt), "/")
		name, ok := moduleNameFromParts(parts)
		if !ok {
			continue
		}
		if existing, found := toc[name]; found && existing.pkg {
			continue
		}
		toc[name] = archiveEntry{member: member}
	}

	return toc
}

func moduleNameFromParts(parts []string) (string, bool) {
	for _, p := range parts {
		if !identRegex.MatchString(p) {
			return "", false
		}
	}
	return strings.Join(parts, "."), true
}

// Root returns the archive path
func (ns *ArchiveNamespace) Root() string {
	return ns.path
}

// ReadFile returns the contents of an archive member
func (ns *ArchiveNamespace) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(ns.zr, name)
}

// Import resolves name against the archive's table of contents
func (ns *ArchiveNamespace) Import(L *lua.LState, name string) (*Module, error) {
	return ns.imports.importModule(L, name)
}

// Modules lists the module names the archive provides
func (ns *ArchiveNamespace) Modules() []string {
	names := make([]string, 0, len(ns.toc))
	for name := range ns.toc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ns *ArchiveNamespace) locate(name string) (string, bool, error) {
	entry, ok := ns.toc[name]
	if !ok {
		return "", false, &ModuleNotFoundError{Name: name}
	}
	return entry.member, entry.pkg, nil
}
