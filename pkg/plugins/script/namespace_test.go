package script

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func zipFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// namespaceFactories builds the same file set as each namespace kind
var namespaceFactories = map[string]func(t *testing.T, files map[string]string) Namespace{
	"source": func(t *testing.T, files map[string]string) Namespace {
		root := t.TempDir()
		writeFiles(t, root, files)
		return NewSourceNamespace(root, NewModuleCache())
	},
	"archive": func(t *testing.T, files map[string]string) Namespace {
		ns, err := NewArchiveNamespace("test.zip", zipFiles(t, files))
		require.NoError(t, err)
		return ns
	},
}

func importIn(t *testing.T, ns Namespace, name string) (*Module, error) {
	t.Helper()
	rt := NewRuntime()
	t.Cleanup(rt.Close)

	var m *Module
	err := rt.Do(context.Background(), func(L *lua.LState) error {
		var err error
		m, err = ns.Import(L, name)
		return err
	})
	return m, err
}

func TestNamespace_Import(t *testing.T) {
	for kind, newNS := range namespaceFactories {
		t.Run(kind, func(t *testing.T) {
			t.Run("package takes precedence over module", func(t *testing.T) {
				ns := newNS(t, map[string]string{
					"a/b/init.lua": `return { kind = "package" }`,
					"a/b.lua":      `return { kind = "module" }`,
				})

				m, err := importIn(t, ns, "a.b")
				require.NoError(t, err)
				assert.True(t, m.Package)
				assert.Equal(t, "a.b", m.Name)
				assert.Equal(t, lua.LString("package"), m.Exports.RawGetString("kind"))
			})

			t.Run("plain module", func(t *testing.T) {
				ns := newNS(t, map[string]string{
					"a/b.lua": `return { kind = "module" }`,
				})

				m, err := importIn(t, ns, "a.b")
				require.NoError(t, err)
				assert.False(t, m.Package)
				assert.Equal(t, lua.LString("module"), m.Exports.RawGetString("kind"))
			})

			t.Run("environment is the export table when nothing is returned", func(t *testing.T) {
				ns := newNS(t, map[string]string{
					"plain.lua": `Greeting = "hi from " .. _NAME`,
				})

				m, err := importIn(t, ns, "plain")
				require.NoError(t, err)
				assert.Equal(t, lua.LString("hi from plain"), m.Exports.RawGetString("Greeting"))
			})

			t.Run("require resolves in the same namespace", func(t *testing.T) {
				ns := newNS(t, map[string]string{
					"util.lua": `return { greet = function() return "hi" end }`,
					"main.lua": `local util = require("util") return { value = util.greet() }`,
				})

				m, err := importIn(t, ns, "main")
				require.NoError(t, err)
				assert.Equal(t, lua.LString("hi"), m.Exports.RawGetString("value"))
			})

			t.Run("require falls back to the standard library", func(t *testing.T) {
				ns := newNS(t, map[string]string{
					"main.lua": `local s = require("string") return { value = s.upper("x") }`,
				})

				m, err := importIn(t, ns, "main")
				require.NoError(t, err)
				assert.Equal(t, lua.LString("X"), m.Exports.RawGetString("value"))
			})

			t.Run("missing module", func(t *testing.T) {
				ns := newNS(t, map[string]string{"other.lua": `return {}`})

				_, err := importIn(t, ns, "a.b")
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrModuleNotFound)

				var notFound *ModuleNotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.Equal(t, "a.b", notFound.Name)
				assert.Equal(t, "no module named 'a.b'", err.Error())
			})

			t.Run("invalid module name", func(t *testing.T) {
				ns := newNS(t, map[string]string{"a.lua": `return {}`})

				for _, name := range []string{"", "a..b", "1a", "a-b", ".a"} {
					_, err := importIn(t, ns, name)
					assert.ErrorIs(t, err, ErrInvalidModuleName, name)
				}
			})

			t.Run("import cycle", func(t *testing.T) {
				ns := newNS(t, map[string]string{
					"a.lua": `local b = require("b") return {}`,
					"b.lua": `local a = require("a") return {}`,
				})

				_, err := importIn(t, ns, "a")
				require.Error(t, err)
				assert.Contains(t, err.Error(), "import cycle")
			})

			t.Run("syntax error", func(t *testing.T) {
				ns := newNS(t, map[string]string{"bad.lua": `return {`})

				_, err := importIn(t, ns, "bad")
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to compile module bad")
			})

			t.Run("non-table result", func(t *testing.T) {
				ns := newNS(t, map[string]string{"num.lua": `return 42`})

				_, err := importIn(t, ns, "num")
				require.Error(t, err)
				assert.Contains(t, err.Error(), "expected a table")
			})

			t.Run("module globals stay private", func(t *testing.T) {
				ns := newNS(t, map[string]string{"leak.lua": `Leaked = true`})

				rt := NewRuntime()
				defer rt.Close()

				err := rt.Do(context.Background(), func(L *lua.LState) error {
					if _, err := ns.Import(L, "leak"); err != nil {
						return err
					}
					assert.Equal(t, lua.LNil, L.GetGlobal("Leaked"))
					return nil
				})
				require.NoError(t, err)
			})
		})
	}
}

// TestNamespace_ImportCached tests that a module body runs once per cache
func TestNamespace_ImportCached(t *testing.T) {
	for kind, newNS := range namespaceFactories {
		t.Run(kind, func(t *testing.T) {
			ns := newNS(t, map[string]string{
				"counter.lua": `_G.runs = (_G.runs or 0) + 1 return {}`,
			})

			rt := NewRuntime()
			defer rt.Close()

			err := rt.Do(context.Background(), func(L *lua.LState) error {
				first, err := ns.Import(L, "counter")
				require.NoError(t, err)
				second, err := ns.Import(L, "counter")
				require.NoError(t, err)

				assert.Same(t, first, second)
				assert.Equal(t, lua.LNumber(1), L.GetGlobal("runs"))
				return nil
			})
			require.NoError(t, err)
		})
	}
}

// TestSourceNamespace_SharedCache tests that two trees providing the same
// name share the module registered first
func TestSourceNamespace_SharedCache(t *testing.T) {
	cache := NewModuleCache()

	rootA, rootB := t.TempDir(), t.TempDir()
	writeFiles(t, rootA, map[string]string{"shared.lua": `return { from = "a" }`})
	writeFiles(t, rootB, map[string]string{
		"shared.lua": `return { from = "b" }`,
		"other.lua":  `return { from = "b" }`,
	})

	nsA := NewSourceNamespace(rootA, cache)
	nsB := NewSourceNamespace(rootB, cache)

	rt := NewRuntime()
	defer rt.Close()

	err := rt.Do(context.Background(), func(L *lua.LState) error {
		a, err := nsA.Import(L, "shared")
		require.NoError(t, err)
		b, err := nsB.Import(L, "shared")
		require.NoError(t, err)
		other, err := nsB.Import(L, "other")
		require.NoError(t, err)

		assert.Same(t, a, b)
		assert.Equal(t, lua.LString("a"), b.Exports.RawGetString("from"))
		assert.NotSame(t, a, other)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"other", "shared"}, cache.Names())
	assert.Equal(t, rootA, nsA.Root())
}

func TestArchiveNamespace(t *testing.T) {
	data := zipFiles(t, map[string]string{
		"plugin.toml":      `name = "x"`,
		"hello.lua":        `return {}`,
		"pkg/init.lua":     `return {}`,
		"pkg/sub/leaf.lua": `return {}`,
		"not-ident.lua":    `return {}`,
		"init.lua":         `return {}`,
		"README.md":        `docs`,
	})

	ns, err := NewArchiveNamespace("bundle.zip", data)
	require.NoError(t, err)

	assert.Equal(t, "bundle.zip", ns.Root())
	assert.Equal(t, []string{"hello", "pkg", "pkg.sub.leaf"}, ns.Modules())

	manifest, err := ns.ReadFile("plugin.toml")
	require.NoError(t, err)
	assert.Equal(t, `name = "x"`, string(manifest))

	_, err = ns.ReadFile("missing.toml")
	assert.Error(t, err)
}

func TestOpenArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, os.WriteFile(path, zipFiles(t, map[string]string{"m.lua": `return {}`}), 0644))

	ns, err := OpenArchive(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, ns.Modules())

	_, err = OpenArchive(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)

	notZip := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0644))
	_, err = OpenArchive(notZip)
	assert.Error(t, err)
}

func TestValidateModuleName(t *testing.T) {
	valid := []string{"a", "a.b", "_x.y2", "Hello"}
	for _, name := range valid {
		assert.NoError(t, ValidateModuleName(name), name)
	}

	invalid := []string{"", ".", "a.", "a b", "a/b", "9"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateModuleName(name), ErrInvalidModuleName, name)
	}
}
