package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Overrides is the on-disk shape of keymap.json:
//
//	{"bindings": {"table:ctrl+s": "export-csv", "ctrl+q": "quit"}}
//
// A key without a context prefix applies globally.
type Overrides struct {
	Bindings map[string]string `json:"bindings"`
}

// ConfigPath returns the keymap file inside the config directory.
func ConfigPath(configDir string) string {
	return filepath.Join(configDir, "keymap.json")
}

func readOverrides(path string) (Overrides, error) {
	var o Overrides
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return o, nil
	}
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return o, nil
}

var knownContexts = map[Context]bool{
	ContextGlobal: true, ContextTable: true, ContextSearch: true,
	ContextEdit: true, ContextForm: true, ContextHelp: true, ContextError: true,
}

// apply installs every valid override and returns a description of each
// entry it skipped.
func (o Overrides) apply(r *Registry) []string {
	known := make(map[Command]bool)
	for _, b := range DefaultBindings() {
		known[b.Command] = true
	}

	var skipped []string
	for binding, id := range o.Bindings {
		ctx, key := ContextGlobal, binding
		if i := strings.IndexByte(binding, ':'); i >= 0 {
			ctx, key = Context(binding[:i]), binding[i+1:]
		}
		switch {
		case key == "":
			skipped = append(skipped, fmt.Sprintf("%q: empty key", binding))
		case !knownContexts[ctx]:
			skipped = append(skipped, fmt.Sprintf("%q: unknown context %q", binding, ctx))
		case !known[Command(id)]:
			skipped = append(skipped, fmt.Sprintf("%q: unknown command %q", binding, id))
		default:
			r.SetUserOverride(ctx, key, Command(id))
		}
	}
	sort.Strings(skipped)
	return skipped
}

// Load returns a registry with the default bindings plus the overrides found
// in configDir. The registry is always usable; the error describes a file
// that could not be read or entries that were ignored.
func Load(configDir string) (*Registry, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	o, err := readOverrides(ConfigPath(configDir))
	if err != nil {
		return r, err
	}
	if skipped := o.apply(r); len(skipped) > 0 {
		return r, fmt.Errorf("ignored keymap entries: %s", strings.Join(skipped, "; "))
	}
	return r, nil
}
