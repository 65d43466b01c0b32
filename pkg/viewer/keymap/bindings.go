package keymap

// DefaultBindings returns the default key bindings for the table viewer.
func DefaultBindings() []Binding {
	return []Binding{
		// Global
		{Key: "ctrl+c", Command: CmdQuit, Context: ContextGlobal, Description: "Quit"},

		// Table
		{Key: "q", Command: CmdQuit, Context: ContextTable, Description: "Quit"},
		{Key: "?", Command: CmdToggleHelp, Context: ContextTable, Description: "Help"},
		{Key: "j", Command: CmdCursorDown, Context: ContextTable, Description: "Next row"},
		{Key: "down", Command: CmdCursorDown, Context: ContextTable, Description: "Next row"},
		{Key: "k", Command: CmdCursorUp, Context: ContextTable, Description: "Previous row"},
		{Key: "up", Command: CmdCursorUp, Context: ContextTable, Description: "Previous row"},
		{Key: "h", Command: CmdCursorLeft, Context: ContextTable, Description: "Previous custom column"},
		{Key: "left", Command: CmdCursorLeft, Context: ContextTable, Description: "Previous custom column"},
		{Key: "l", Command: CmdCursorRight, Context: ContextTable, Description: "Next custom column"},
		{Key: "right", Command: CmdCursorRight, Context: ContextTable, Description: "Next custom column"},
		{Key: "n", Command: CmdNextPage, Context: ContextTable, Description: "Next page"},
		{Key: "pgdown", Command: CmdNextPage, Context: ContextTable, Description: "Next page"},
		{Key: "p", Command: CmdPrevPage, Context: ContextTable, Description: "Previous page"},
		{Key: "pgup", Command: CmdPrevPage, Context: ContextTable, Description: "Previous page"},
		{Key: "g g", Command: CmdFirstPage, Context: ContextTable, Description: "First page"},
		{Key: "G", Command: CmdLastPage, Context: ContextTable, Description: "Last page"},
		{Key: "/", Command: CmdSearch, Context: ContextTable, Description: "Search"},
		{Key: "esc", Command: CmdSearchClear, Context: ContextTable, Description: "Clear search"},
		{Key: "enter", Command: CmdEditCell, Context: ContextTable, Description: "Edit cell"},
		{Key: "e", Command: CmdEditCell, Context: ContextTable, Description: "Edit cell"},
		{Key: "a", Command: CmdAddColumn, Context: ContextTable, Description: "Add column"},
		{Key: "r", Command: CmdRefresh, Context: ContextTable, Description: "Refresh"},
		{Key: "x", Command: CmdExportCSV, Context: ContextTable, Description: "Export CSV"},
		{Key: "X", Command: CmdExportXLSX, Context: ContextTable, Description: "Export XLSX"},

		// Search
		{Key: "enter", Command: CmdSearchConfirm, Context: ContextSearch, Description: "Apply"},
		{Key: "esc", Command: CmdSearchCancel, Context: ContextSearch, Description: "Cancel"},

		// Cell edit
		{Key: "enter", Command: CmdSaveCell, Context: ContextEdit, Description: "Save"},
		{Key: "esc", Command: CmdCancelEdit, Context: ContextEdit, Description: "Cancel"},

		// Form
		{Key: "esc", Command: CmdFormCancel, Context: ContextForm, Description: "Cancel"},

		// Error view
		{Key: "r", Command: CmdRetry, Context: ContextError, Description: "Retry"},
		{Key: "q", Command: CmdQuit, Context: ContextError, Description: "Quit"},

		// Help
		{Key: "?", Command: CmdCloseHelp, Context: ContextHelp, Description: "Close help"},
		{Key: "esc", Command: CmdCloseHelp, Context: ContextHelp, Description: "Close help"},
		{Key: "q", Command: CmdCloseHelp, Context: ContextHelp, Description: "Close help"},
	}
}

// RegisterDefaults registers all default bindings
func RegisterDefaults(r *Registry) {
	r.RegisterBindings(DefaultBindings())
}
