package core

// Event is a tagged display event relayed to the host through the response
// sink. Concrete event types implement the unexported isEvent marker enabling
// a closed set; the core is agnostic to how events are rendered or
// transported.
type Event interface{ isEvent() }

// TextEvent carries a fragment of assistant (or reasoning) text.
type TextEvent struct {
	Text      string
	Reasoning bool
}

func (TextEvent) isEvent() {}

// ToolCallEvent announces a recognized tool invocation. For deferred
// rewrite-class tools it is emitted immediately even though execution is
// withheld until the batch flush.
type ToolCallEvent struct {
	Invocation ToolInvocation
}

func (ToolCallEvent) isEvent() {}

// ToolResultEvent carries the completed result of one invocation.
type ToolResultEvent struct {
	Result ToolResult
}

func (ToolResultEvent) isEvent() {}

// SubagentStartEvent brackets the beginning of a child agent's relayed
// output so a UI can group output per child.
type SubagentStartEvent struct {
	AgentID     string
	DisplayName string
}

func (SubagentStartEvent) isEvent() {}

// SubagentFinishEvent brackets the end of a child agent's relayed output.
// Failed is true when the child run concluded with an error; CreditsUsed is
// the child's total at conclusion either way.
type SubagentFinishEvent struct {
	AgentID     string
	DisplayName string
	CreditsUsed float64
	Failed      bool
}

func (SubagentFinishEvent) isEvent() {}

// ErrorEvent surfaces a recoverable error to the display without halting
// processing.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) isEvent() {}

// ResponseHandler receives display events. Implementations must be fast,
// must not block, and must be safe for concurrent use: the handler is
// invoked synchronously from whichever goroutine produced the event (the
// stream loop for text, chained dispatcher goroutines for tool results,
// concurrent sibling runs for relayed child events).
type ResponseHandler func(Event)

// NopResponseHandler discards all events. Used where a sink is optional.
func NopResponseHandler(Event) {}

// SubagentRelay wraps a ResponseHandler so every event from a child run is
// forwarded to the parent sink unchanged, preserving real-time interleaving.
// Start/finish bracketing is emitted by the spawn manager, not here.
func SubagentRelay(parent ResponseHandler) ResponseHandler {
	if parent == nil {
		return NopResponseHandler
	}
	return func(ev Event) { parent(ev) }
}
