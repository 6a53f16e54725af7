package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the fixed name of the plugin manifest
const ManifestFile = "plugin.toml"

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9 _.-]+$`)

// rawDescription mirrors the manifest document
type rawDescription struct {
	Name         string                 `toml:"name" yaml:"name" json:"name"`
	Version      string                 `toml:"version" yaml:"version" json:"version"`
	Main         string                 `toml:"main" yaml:"main" json:"main"`
	APIVersion   string                 `toml:"api_version" yaml:"api_version,omitempty" json:"api_version,omitempty"`
	Description  string                 `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Load         string                 `toml:"load" yaml:"load,omitempty" json:"load,omitempty"`
	Authors      []string               `toml:"authors" yaml:"authors,omitempty" json:"authors,omitempty"`
	Contributors []string               `toml:"contributors" yaml:"contributors,omitempty" json:"contributors,omitempty"`
	Website      string                 `toml:"website" yaml:"website,omitempty" json:"website,omitempty"`
	Prefix       string                 `toml:"prefix" yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Depend       []string               `toml:"depend" yaml:"depend,omitempty" json:"depend,omitempty"`
	SoftDepend   []string               `toml:"soft_depend" yaml:"soft_depend,omitempty" json:"soft_depend,omitempty"`
	LoadBefore   []string               `toml:"load_before" yaml:"load_before,omitempty" json:"load_before,omitempty"`
	Commands     map[string]Command     `toml:"commands" yaml:"commands,omitempty" json:"commands,omitempty"`
	Permissions  map[string]interface{} `toml:"permissions" yaml:"permissions,omitempty" json:"permissions,omitempty"`
	Extra        map[string]interface{} `toml:"-" yaml:"extra,omitempty" json:"extra,omitempty"`
}

// requiredFields is decoded strictly; a wrongly typed name, version or
// main fails the parse.
type requiredFields struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Main    string `toml:"main"`
}

var requiredKeys = map[string]bool{"name": true, "version": true, "main": true}

var knownKeys = map[string]bool{
	"name": true, "version": true, "main": true, "api_version": true,
	"description": true, "load": true, "authors": true, "contributors": true,
	"website": true, "prefix": true, "depend": true, "soft_depend": true,
	"load_before": true, "commands": true, "permissions": true,
}

// Description is the parsed, immutable form of a plugin manifest.
type Description struct {
	raw rawDescription
	// values holds every optional key exactly as parsed
	values map[string]interface{}
}

// ParseDescription reads a manifest from r.
// name, version and main are required; everything else is carried through
// without validation. Optional keys of an unexpected type are kept as raw
// values and read as empty by the typed accessors.
func ParseDescription(r io.Reader) (*Description, error) {
	if r == nil {
		return nil, manifestError("manifest stream is nil", nil)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, manifestError("failed to read manifest", err)
	}

	var req requiredFields
	if err := toml.Unmarshal(data, &req); err != nil {
		return nil, manifestError("failed to parse manifest", err)
	}

	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, manifestError("failed to parse manifest", err)
	}

	raw := rawDescription{
		Name:         req.Name,
		Version:      req.Version,
		Main:         req.Main,
		APIVersion:   scalarString(doc["api_version"]),
		Description:  scalarString(doc["description"]),
		Load:         scalarString(doc["load"]),
		Authors:      stringList(doc["authors"]),
		Contributors: stringList(doc["contributors"]),
		Website:      scalarString(doc["website"]),
		Prefix:       scalarString(doc["prefix"]),
		Depend:       stringList(doc["depend"]),
		SoftDepend:   stringList(doc["soft_depend"]),
		LoadBefore:   stringList(doc["load_before"]),
		Commands:     commandTable(doc["commands"]),
	}
	if perms, ok := doc["permissions"].(map[string]interface{}); ok {
		raw.Permissions = perms
	}

	values := make(map[string]interface{}, len(doc))
	for key, value := range doc {
		if requiredKeys[key] {
			continue
		}
		values[key] = value
		if !knownKeys[key] {
			if raw.Extra == nil {
				raw.Extra = make(map[string]interface{})
			}
			raw.Extra[key] = value
		}
	}

	if err := validateDescription(&raw); err != nil {
		return nil, err
	}

	return &Description{raw: raw, values: values}, nil
}

// LoadDescription reads and parses the manifest file at path
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, manifestError("failed to read manifest", err)
	}
	return ParseDescription(bytes.NewReader(data))
}

func validateDescription(raw *rawDescription) error {
	var missing []string
	if strings.TrimSpace(raw.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(raw.Version) == "" {
		missing = append(missing, "version")
	}
	if strings.TrimSpace(raw.Main) == "" {
		missing = append(missing, "main")
	}
	if len(missing) > 0 {
		return manifestError(fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")), nil)
	}

	if !nameRegex.MatchString(raw.Name) {
		return manifestError(fmt.Sprintf("invalid plugin name %q: must match %s", raw.Name, nameRegex), nil)
	}

	idx := strings.LastIndex(raw.Main, ".")
	if idx <= 0 || idx == len(raw.Main)-1 {
		return manifestError(fmt.Sprintf("invalid main %q: expected <module>.<Type>", raw.Main), nil)
	}

	return nil
}

// Name returns the plugin name
func (d *Description) Name() string { return d.raw.Name }

// Version returns the plugin version
func (d *Description) Version() string { return d.raw.Version }

// Main returns the entry-point reference
func (d *Description) Main() string { return d.raw.Main }

// FullName returns "<name> v<version>"
func (d *Description) FullName() string {
	return fmt.Sprintf("%s v%s", d.raw.Name, d.raw.Version)
}

// SplitMain splits the entry-point reference on its final separator
// into the module path and the type name.
func (d *Description) SplitMain() (module, typeName string) {
	idx := strings.LastIndex(d.raw.Main, ".")
	return d.raw.Main[:idx], d.raw.Main[idx+1:]
}

func (d *Description) APIVersion() string  { return d.raw.APIVersion }
func (d *Description) Description() string { return d.raw.Description }
func (d *Description) Load() string        { return d.raw.Load }
func (d *Description) Website() string     { return d.raw.Website }

// Prefix returns the logging prefix, defaulting to the plugin name
func (d *Description) Prefix() string {
	if d.raw.Prefix == "" {
		return d.raw.Name
	}
	return d.raw.Prefix
}

func (d *Description) Authors() []string      { return copyStrings(d.raw.Authors) }
func (d *Description) Contributors() []string { return copyStrings(d.raw.Contributors) }
func (d *Description) Depend() []string       { return copyStrings(d.raw.Depend) }
func (d *Description) SoftDepend() []string   { return copyStrings(d.raw.SoftDepend) }
func (d *Description) LoadBefore() []string   { return copyStrings(d.raw.LoadBefore) }

// Commands returns the declared commands sorted by name
func (d *Description) Commands() []Command {
	cmds := make([]Command, 0, len(d.raw.Commands))
	for name, c := range d.raw.Commands {
		c.Name = name
		c.Usages = copyStrings(c.Usages)
		c.Aliases = copyStrings(c.Aliases)
		c.Permissions = copyStrings(c.Permissions)
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Permissions returns a deep copy of the opaque permissions table
func (d *Description) Permissions() map[string]interface{} {
	if d.raw.Permissions == nil {
		return nil
	}
	return deepCopy(d.raw.Permissions).(map[string]interface{})
}

// Extra returns a deep copy of the value of any optional manifest key as it
// was parsed, including keys this package does not interpret. name,
// version and main are not reported.
func (d *Description) Extra(key string) (interface{}, bool) {
	v, ok := d.values[key]
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// MarshalYAML renders the manifest fields
func (d *Description) MarshalYAML() (interface{}, error) {
	return d.raw, nil
}

// MarshalJSON renders the manifest fields plus the derived full name
func (d *Description) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		rawDescription
		FullName string `json:"full_name"`
	}{d.raw, d.FullName()})
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// deepCopy copies the tables and arrays a TOML document decodes into.
// Scalars are values and are returned as is.
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopy(e).(map[string]interface{})
		}
		return out
	default:
		return v
	}
}

// scalarString renders a TOML scalar as a string; tables and arrays read as "".
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}, []interface{}, []map[string]interface{}:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// stringList reads an array of scalars; a lone scalar becomes a one-element list.
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := scalarString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := scalarString(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

// commandTable reads [commands.<name>] tables. Entries that are not tables are skipped.
func commandTable(v interface{}) map[string]Command {
	table, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}

	cmds := make(map[string]Command, len(table))
	for name, entry := range table {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		cmds[name] = Command{
			Description: scalarString(fields["description"]),
			Usages:      stringList(fields["usages"]),
			Aliases:     stringList(fields["aliases"]),
			Permissions: stringList(fields["permissions"]),
		}
	}
	return cmds
}
