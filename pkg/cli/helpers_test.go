package cli

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const echoManifest = `
name = "Echo"
version = "0.3"
main = "echo.Echo"
authors = ["cornerstone"]

[commands.echo]
description = "Repeats its arguments"
usages = ["/echo <text: message>"]
`

const echoModule = `
local Echo = {}

function Echo:on_load() end
function Echo:on_enable() end
function Echo:on_disable() end

function Echo:on_command(sender, command, label, args)
	if #args == 0 then
		return false
	end
	sender:send_message(table.concat(args, " "))
	return true
end

return { Echo = Echo }
`

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureOutput redirects stdout and stderr for the duration of the test
func captureOutput(t *testing.T) (out, errOut *syncBuffer) {
	t.Helper()

	out, errOut = &syncBuffer{}, &syncBuffer{}
	oldOut, oldErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() {
		stdout, stderr = oldOut, oldErr
	})
	return out, errOut
}

func writeEchoArchive(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "echo.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"plugin.toml": echoManifest,
		"echo.lua":    echoModule,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
