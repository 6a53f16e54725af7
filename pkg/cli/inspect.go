package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/cornerstone/pkg/host"
	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

func newInspectCommand() *Command {
	cmd := &Command{
		Name:        "inspect",
		Description: "Print the manifest of a plugin unit",
		Flags:       flag.NewFlagSet("inspect", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(stderr)
	asJSON := cmd.Flags.Bool("json", false, "Output in JSON format")
	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if cmd.Flags.NArg() != 1 {
			return fmt.Errorf("usage: cornerstone inspect [-json] <path>")
		}
		return runInspect(cmd.Flags.Arg(0), *asJSON)
	}
	return cmd
}

// runInspect prints the manifest of the unit at path. A directory is
// treated as a source tree.
func runInspect(path string, asJSON bool) error {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, plugins.ManifestFile)
	}

	server, err := newQuietServer()
	if err != nil {
		return err
	}
	defer server.Close()

	loader, ok := server.Registry().Match(path)
	if !ok {
		return fmt.Errorf("%w: %s", host.ErrNoLoader, path)
	}

	desc, err := loader.ReadDescription(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "# loader: %s\n", loader.Name())
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(desc); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}

// newQuietServer creates a host used only for its loader registry
func newQuietServer() (*host.Server, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return host.NewServer(host.Options{Logger: logger})
}
