package core

// StreamChunk is a single unit of model output. Concrete chunk types implement
// the unexported isChunk marker enabling a closed set.
type StreamChunk interface{ isChunk() }

// TextChunk is a fragment of plain assistant text. Tag boundaries may fall
// anywhere inside or across TextChunks; the extractor is responsible for
// reassembly.
type TextChunk struct {
	Text string
}

func (TextChunk) isChunk() {}

// ReasoningChunk is a fragment of model reasoning ("thinking") text. The
// extractor re-wraps these as a synthetic think tool invocation so downstream
// consumers need no separate code path.
type ReasoningChunk struct {
	Text string
}

func (ReasoningChunk) isChunk() {}

// ToolCallChunk is a tool invocation boundary marker. A single invocation may
// span several ToolCallChunks: Name is set from the first chunk onward, Attrs
// carries the attribute pairs decoded so far, Raw accumulates the raw
// attribute text delta, and Done is true on the chunk that completes the
// invocation's attribute set.
type ToolCallChunk struct {
	Name  string
	Attrs map[string]string
	Raw   string
	Done  bool
}

func (ToolCallChunk) isChunk() {}

// ErrorChunk reports a provider-side stream error. The stream may still carry
// a FinishChunk afterwards.
type ErrorChunk struct {
	Err error
}

func (ErrorChunk) isChunk() {}

// FinishChunk terminates a model turn. Credits is the cost of this turn as
// reported by the model-call collaborator.
type FinishChunk struct {
	Reason  string
	Credits float64
}

func (FinishChunk) isChunk() {}
