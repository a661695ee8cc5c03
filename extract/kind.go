package extract

// ToolKind is the closed set of tool categories the extractor dispatches on.
// Mapping tag names to a compact enum (instead of a string-keyed lookup)
// gives switch statements compile-time coverage checking; names outside the
// known set resolve to KindUnknown and are routed to a registered custom
// handler when one matches the name, or to the fallback handler.
type ToolKind int

const (
	// KindUnknown is the custom/unknown arm of the dispatch.
	KindUnknown ToolKind = iota
	// KindRead reads file contents.
	KindRead
	// KindWrite creates or overwrites a file.
	KindWrite
	// KindEdit performs a targeted in-place rewrite. Edit invocations are the
	// deferred-batch class in the dispatcher.
	KindEdit
	// KindTerminal executes a terminal command.
	KindTerminal
	// KindSearch searches the workspace.
	KindSearch
	// KindThink is the synthetic invocation wrapping reasoning output.
	KindThink
	// KindSpawnAgents spawns child agents.
	KindSpawnAgents
	// KindCustom marks a host tool outside the canonical tag set. Custom
	// invocations are recognized by their registered name, never by KindOf.
	KindCustom
)

// String returns the canonical tag name for the kind.
func (k ToolKind) String() string {
	switch k {
	case KindRead:
		return "read_file"
	case KindWrite:
		return "write_file"
	case KindEdit:
		return "edit_file"
	case KindTerminal:
		return "run_terminal_command"
	case KindSearch:
		return "search"
	case KindThink:
		return "think"
	case KindSpawnAgents:
		return "spawn_agents"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// KindOf resolves a tag name to its ToolKind.
func KindOf(name string) ToolKind {
	switch name {
	case "read_file":
		return KindRead
	case "write_file":
		return KindWrite
	case "edit_file":
		return KindEdit
	case "run_terminal_command":
		return KindTerminal
	case "search":
		return KindSearch
	case "think":
		return KindThink
	case "spawn_agents":
		return KindSpawnAgents
	default:
		return KindUnknown
	}
}
