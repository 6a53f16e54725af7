package plugins

import (
	"context"
	"fmt"

	"github.com/platinummonkey/cornerstone/pkg/plugins/script"
)

// ArchiveLoader loads plugins packaged as zip archives with plugin.toml at the archive root
type ArchiveLoader struct {
	baseLoader
}

// NewArchiveLoader creates a loader for *.zip and *.plugin archives
func NewArchiveLoader(server Server, rt *script.Runtime, opts ...Option) *ArchiveLoader {
	return &ArchiveLoader{
		baseLoader: newBaseLoader("archive", []string{`\.zip$`, `\.plugin$`}, server, rt, opts),
	}
}

// LoadPlugin loads the archive at path. Modules, including those required at
// runtime by the plugin, resolve inside the archive only.
func (l *ArchiveLoader) LoadPlugin(ctx context.Context, path string) (*Instance, error) {
	return l.load(ctx, l, path, openArchive)
}

// ReadDescription parses the archive's manifest without running plugin code
func (l *ArchiveLoader) ReadDescription(path string) (*Description, error) {
	return l.readDescription(path, openArchive)
}

func openArchive(path string) (script.Namespace, []byte, error) {
	ns, err := script.OpenArchive(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := ns.ReadFile(ManifestFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", ManifestFile, err)
	}

	return ns, data, nil
}
