// Package keymap maps keys to viewer commands per UI context. User
// overrides are loaded from keymap.json in the config directory.
package keymap

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const sequenceTimeout = 500 * time.Millisecond

// Context represents a UI context for keybindings
type Context string

const (
	ContextGlobal Context = "global"
	ContextTable  Context = "table"  // grid focused, nothing else open
	ContextSearch Context = "search" // typing a search term
	ContextEdit   Context = "edit"   // editing a custom cell
	ContextForm   Context = "form"   // add-column form open
	ContextHelp   Context = "help"   // help overlay open
	ContextError  Context = "error"  // initial load failed
)

// Command represents a named command that can be triggered by key bindings
type Command string

const (
	// Global commands
	CmdQuit       Command = "quit"
	CmdToggleHelp Command = "toggle-help"

	// Table navigation
	CmdCursorUp    Command = "cursor-up"
	CmdCursorDown  Command = "cursor-down"
	CmdCursorLeft  Command = "cursor-left"
	CmdCursorRight Command = "cursor-right"
	CmdNextPage    Command = "next-page"
	CmdPrevPage    Command = "prev-page"
	CmdFirstPage   Command = "first-page"
	CmdLastPage    Command = "last-page"

	// Table actions
	CmdRefresh     Command = "refresh"
	CmdSearch      Command = "search"
	CmdSearchClear Command = "search-clear"
	CmdEditCell    Command = "edit-cell"
	CmdAddColumn   Command = "add-column"
	CmdExportCSV   Command = "export-csv"
	CmdExportXLSX  Command = "export-xlsx"

	// Search
	CmdSearchConfirm Command = "search-confirm"
	CmdSearchCancel  Command = "search-cancel"

	// Cell edit
	CmdSaveCell   Command = "save-cell"
	CmdCancelEdit Command = "cancel-edit"

	// Form
	CmdFormCancel Command = "form-cancel"

	// Error view
	CmdRetry Command = "retry"

	// Help overlay
	CmdCloseHelp Command = "close-help"
)

// Binding maps a key or key sequence to a command in a specific context
type Binding struct {
	Key         string  // e.g., "tab", "ctrl+d", "g g"
	Command     Command // Command ID
	Context     Context
	Description string // Human-readable description for help text
}

// Registry manages key bindings and command dispatch
type Registry struct {
	bindings      map[Context][]Binding // context -> bindings
	userOverrides map[string]Command    // "context:key" -> command
	pendingKey    string
	pendingTime   time.Time
	mu            sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		bindings:      make(map[Context][]Binding),
		userOverrides: make(map[string]Command),
	}
}

// RegisterBinding adds a key binding
func (r *Registry) RegisterBinding(b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[b.Context] = append(r.bindings[b.Context], b)
}

// RegisterBindings adds multiple key bindings
func (r *Registry) RegisterBindings(bindings []Binding) {
	for _, b := range bindings {
		r.RegisterBinding(b)
	}
}

// SetUserOverride sets a user-configured key override for a specific context
func (r *Registry) SetUserOverride(context Context, key string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userOverrides[string(context)+":"+key] = cmd
}

// Lookup finds the command for a key in the active context.
// Checks: user overrides -> context bindings -> global bindings
func (r *Registry) Lookup(msg tea.KeyMsg, activeContext Context) (Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keyStr := KeyToString(msg)

	if r.pendingKey != "" {
		if time.Since(r.pendingTime) < sequenceTimeout {
			seq := r.pendingKey + " " + keyStr
			r.pendingKey = ""
			if cmd, found := r.findCommand(seq, activeContext); found {
				return cmd, true
			}
		} else {
			r.pendingKey = ""
		}
	}

	if r.isSequenceStart(keyStr, activeContext) {
		r.pendingKey = keyStr
		r.pendingTime = time.Now()
		return "", false
	}

	return r.findCommand(keyStr, activeContext)
}

func (r *Registry) findCommand(key string, activeContext Context) (Command, bool) {
	if activeContext != "" && activeContext != ContextGlobal {
		if cmd, ok := r.userOverrides[string(activeContext)+":"+key]; ok {
			return cmd, true
		}
	}
	if cmd, ok := r.userOverrides[string(ContextGlobal)+":"+key]; ok {
		return cmd, true
	}

	if activeContext != "" && activeContext != ContextGlobal {
		if cmd, found := r.findInContext(key, activeContext); found {
			return cmd, true
		}
	}
	return r.findInContext(key, ContextGlobal)
}

func (r *Registry) findInContext(key string, context Context) (Command, bool) {
	for _, b := range r.bindings[context] {
		if b.Key == key {
			return b.Command, true
		}
	}
	return "", false
}

// isSequenceStart checks if this key could start a multi-key sequence
func (r *Registry) isSequenceStart(key string, activeContext Context) bool {
	prefix := key + " "

	contexts := []Context{ContextGlobal}
	if activeContext != "" && activeContext != ContextGlobal {
		contexts = append(contexts, activeContext)
	}
	for _, ctx := range contexts {
		for _, b := range r.bindings[ctx] {
			if strings.HasPrefix(b.Key, prefix) {
				return true
			}
		}
	}
	for k := range r.userOverrides {
		parts := strings.SplitN(k, ":", 2)
		if len(parts) == 2 && strings.HasPrefix(parts[1], prefix) {
			return true
		}
	}
	return false
}

// HasPending returns true if there's a pending key sequence
func (r *Registry) HasPending() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pendingKey != "" && time.Since(r.pendingTime) < sequenceTimeout
}

// BindingsForContext returns all bindings for a given context (including global)
func (r *Registry) BindingsForContext(context Context) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Binding
	result = append(result, r.bindings[context]...)
	if context != ContextGlobal {
		result = append(result, r.bindings[ContextGlobal]...)
	}
	return result
}

// ShortHelp returns one key.Binding per command in context, for the
// bubbles help footer. Keys bound to the same command are merged.
func (r *Registry) ShortHelp(context Context) []key.Binding {
	var out []key.Binding
	for _, g := range groupByCommand(r.BindingsForContext(context)) {
		out = append(out, key.NewBinding(
			key.WithKeys(g.keys...),
			key.WithHelp(strings.Join(g.keys, "/"), g.desc),
		))
	}
	return out
}

type commandGroup struct {
	cmd  Command
	keys []string
	desc string
}

func groupByCommand(bindings []Binding) []commandGroup {
	var groups []commandGroup
	index := make(map[Command]int)
	for _, b := range bindings {
		if i, ok := index[b.Command]; ok {
			groups[i].keys = append(groups[i].keys, b.Key)
			continue
		}
		index[b.Command] = len(groups)
		groups = append(groups, commandGroup{cmd: b.Command, keys: []string{b.Key}, desc: b.Description})
	}
	return groups
}

// KeyToString converts a tea.KeyMsg to the string form used in bindings
func KeyToString(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyRunes:
		return string(msg.Runes)
	case tea.KeySpace:
		return "space"
	case tea.KeyEsc:
		return "esc"
	case tea.KeyEnter:
		return "enter"
	case tea.KeyPgUp:
		return "pgup"
	case tea.KeyPgDown:
		return "pgdown"
	default:
		return msg.String()
	}
}
