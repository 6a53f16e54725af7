package host

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

const helloManifest = `
name = "Hello"
version = "1.0"
main = "hello.HelloPlugin"

[commands.hello]
description = "Greets someone"
usages = ["/hello [name: str]"]
aliases = ["hi"]

[commands.quiet]
description = "Never handled"
usages = ["/quiet <reason: str>"]

[commands.explode]
description = "Always fails"
`

const helloModule = `
local HelloPlugin = {}

function HelloPlugin:on_load()
	self.loaded = true
end

function HelloPlugin:on_enable() end
function HelloPlugin:on_disable() end

function HelloPlugin:on_command(sender, command, label, args)
	if command.name == "quiet" then
		return false
	end
	if command.name == "explode" then
		error("boom")
	end
	sender:send_message("hello " .. (args[1] or "world") .. " from " .. self.description.full_name)
	return true
end

return { HelloPlugin = HelloPlugin }
`

const greeterManifest = `
name = "Greeter"
version = "2.1"
main = "greeter.Greeter"

[commands.greet]
description = "Greets back"
`

const greeterModule = `
Greeter = {}

function Greeter:on_load() end
function Greeter:on_enable() end
function Greeter:on_disable() end

function Greeter:on_command(sender, command, label, args)
	sender:send_message("greetings via " .. label)
	return true
end
`

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func newTestServer(t *testing.T, opts Options) (*Server, *test.Hook) {
	t.Helper()

	logger, hook := newTestLogger()
	if opts.Logger == nil {
		opts.Logger = logger
	}
	opts.Name = "test-server"

	s, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, hook
}

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

func writeHello(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "hello.zip")
	writeArchive(t, path, map[string]string{
		"plugin.toml": helloManifest,
		"hello.lua":   helloModule,
	})
	return path
}

func writeGreeter(t *testing.T, dir string) string {
	t.Helper()
	root := filepath.Join(dir, "greeter")
	writeTree(t, root, map[string]string{
		"plugin.toml": greeterManifest,
		"greeter.lua": greeterModule,
	})
	return filepath.Join(root, plugins.ManifestFile)
}

type transition struct {
	name    string
	enabled bool
}

type recordingObserver struct {
	mu          sync.Mutex
	loads       []error
	transitions []transition
}

func (o *recordingObserver) PluginLoaded(loader string, duration time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, err)
}

func (o *recordingObserver) PluginTransitioned(name string, enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, transition{name: name, enabled: enabled})
}

func (o *recordingObserver) Transitions() []transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]transition(nil), o.transitions...)
}

type commandRecord struct {
	command, status string
}

type recordingRecorder struct {
	mu      sync.Mutex
	records []commandRecord
}

func (r *recordingRecorder) RecordCommand(command, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, commandRecord{command: command, status: status})
}

func (r *recordingRecorder) Last() commandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return commandRecord{}
	}
	return r.records[len(r.records)-1]
}

func hasMessage(hook *test.Hook, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}
