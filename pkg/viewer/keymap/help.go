package keymap

import (
	"fmt"
	"strings"
)

var helpSections = []struct {
	title   string
	context Context
}{
	{"TABLE", ContextTable},
	{"SEARCH", ContextSearch},
	{"EDITING A CELL", ContextEdit},
	{"ADD COLUMN FORM", ContextForm},
}

// GenerateHelp renders every context's bindings as plain text.
func (r *Registry) GenerateHelp() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("TABLE VIEWER - Key Bindings\n")
	for _, s := range helpSections {
		groups := groupByCommand(r.bindings[s.context])
		if len(groups) == 0 {
			continue
		}
		sb.WriteString("\n" + s.title + ":\n")
		for _, g := range groups {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", strings.Join(g.keys, " / "), g.desc))
		}
	}
	if len(r.userOverrides) > 0 {
		sb.WriteString("\nOVERRIDES (keymap.json):\n")
		for k, cmd := range r.userOverrides {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", k, cmd))
		}
	}
	return sb.String()
}
