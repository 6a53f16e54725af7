package plugins

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const helloManifest = `
name = "Hello"
version = "1.0"
main = "hello.HelloPlugin"
`

const helloModule = `
local HelloPlugin = {}

function HelloPlugin:on_load()
	self.loaded = true
end

function HelloPlugin:on_enable()
	self.enable_calls = (self.enable_calls or 0) + 1
end

function HelloPlugin:on_disable()
	self.disable_calls = (self.disable_calls or 0) + 1
end

function HelloPlugin:on_command(sender, command, label, args)
	sender:send_message("hello " .. (args[1] or "world") .. " from " .. self.description.full_name)
	return true
end

return { HelloPlugin = HelloPlugin }
`

type testServer struct {
	logger *logrus.Logger
}

func newTestServer() (*testServer, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &testServer{logger: logger}, hook
}

func (s *testServer) Name() string           { return "test-server" }
func (s *testServer) Version() string        { return "0.0.1" }
func (s *testServer) Logger() *logrus.Logger { return s.logger }

type recordingSender struct {
	messages []string
}

func (s *recordingSender) Name() string           { return "tester" }
func (s *recordingSender) SendMessage(msg string) { s.messages = append(s.messages, msg) }

// writeArchive creates a zip archive at path containing files.
func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// writeTree creates files under root, making parent directories as needed.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// stubPlugin is a Go plugin that records hook calls.
type stubPlugin struct {
	loads, enables, disables, commands int
	enableErr                          error
}

func (p *stubPlugin) OnLoad() error { p.loads++; return nil }
func (p *stubPlugin) OnEnable() error {
	p.enables++
	return p.enableErr
}
func (p *stubPlugin) OnDisable() error { p.disables++; return nil }
func (p *stubPlugin) OnCommand(sender CommandSender, command Command, label string, args []string) (bool, error) {
	p.commands++
	return true, nil
}

func mustParse(t *testing.T, manifest string) *Description {
	t.Helper()
	d, err := ParseDescription(strings.NewReader(manifest))
	require.NoError(t, err)
	return d
}
