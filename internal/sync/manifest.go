package sync

// The fixed manifest: files always synced regardless of what the zshrc
// declares. Order matters (core, then library, then tools) because it
// fixes the ordering of audit log and ledger entries.

// CoreFiles are the framework entry files
var CoreFiles = []string{
	"oh-my-zsh.sh",
}

// LibFiles are the library files
var LibFiles = []string{
	"lib/completion.zsh",
	"lib/history.zsh",
	"lib/key-bindings.zsh",
	"lib/termcap.zsh",
}

// ToolFiles are the maintenance scripts
var ToolFiles = []string{
	"tools/upgrade.sh",
	"tools/install.sh",
	"tools/uninstall.sh",
}

// Manifest returns the core, library and tool paths concatenated in that
// literal order
func Manifest() []string {
	m := make([]string, 0, len(CoreFiles)+len(LibFiles)+len(ToolFiles))
	m = append(m, CoreFiles...)
	m = append(m, LibFiles...)
	m = append(m, ToolFiles...)
	return m
}
