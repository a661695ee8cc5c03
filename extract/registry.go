package extract

// Handler is the callback pair invoked for a recognized tool invocation.
// OnTagStart fires when the opening boundary is recognized with the
// attributes available at that point; OnTagEnd fires exactly once when the
// complete attribute set has been buffered. Both are invoked synchronously
// with respect to chunk arrival order.
type Handler struct {
	OnTagStart func(name string, attrs map[string]string)
	OnTagEnd   func(name string, attrs map[string]string)
}

// UnknownHandler receives invocations whose tag name resolves to no known
// kind, or whose tag was malformed. It reports the name and the raw attribute
// text; it must not be used to abort the stream.
type UnknownHandler func(name, raw string)

// Registry maps tool kinds to handlers, plus custom tool names to handlers,
// with a mandatory fallback for unknown or malformed tags.
type Registry struct {
	handlers map[ToolKind]Handler
	custom   map[string]Handler
	unknown  UnknownHandler
}

// NewRegistry constructs an empty registry whose unknown handler discards.
func NewRegistry() *Registry {
	return &Registry{
		handlers: map[ToolKind]Handler{},
		custom:   map[string]Handler{},
		unknown:  func(string, string) {},
	}
}

// Register installs the handler for a kind, replacing any previous one.
// Registering KindUnknown or KindCustom is a contract violation; custom
// tools are registered by name.
func (r *Registry) Register(kind ToolKind, h Handler) {
	if kind == KindUnknown {
		panic("extract: cannot register a handler for KindUnknown; use SetUnknownHandler")
	}
	if kind == KindCustom {
		panic("extract: cannot register a handler for KindCustom; use RegisterCustom")
	}
	r.handlers[kind] = h
}

// RegisterCustom installs the handler for a non-canonical tool name,
// replacing any previous one. Shadowing a canonical tag name is a contract
// violation.
func (r *Registry) RegisterCustom(name string, h Handler) {
	if KindOf(name) != KindUnknown {
		panic("extract: cannot register custom handler for canonical tag " + name)
	}
	r.custom[name] = h
}

// SetUnknownHandler installs the fallback for unknown or malformed tags.
func (r *Registry) SetUnknownHandler(fn UnknownHandler) {
	if fn != nil {
		r.unknown = fn
	}
}

// start routes an opening boundary to the matching handler.
func (r *Registry) start(name string, attrs map[string]string) {
	h, ok := r.lookup(name)
	if ok && h.OnTagStart != nil {
		h.OnTagStart(name, attrs)
	}
}

// end routes a completed invocation to the matching handler or the fallback.
func (r *Registry) end(name, raw string, attrs map[string]string) {
	h, ok := r.lookup(name)
	if !ok || h.OnTagEnd == nil {
		r.unknown(name, raw)
		return
	}
	h.OnTagEnd(name, attrs)
}

// lookup resolves a tag name to its handler: by kind for canonical names, by
// registered name otherwise.
func (r *Registry) lookup(name string) (Handler, bool) {
	kind := KindOf(name)
	if kind == KindUnknown {
		h, ok := r.custom[name]
		return h, ok
	}
	h, ok := r.handlers[kind]
	return h, ok
}

// malformed routes an unterminated or unparsable tag to the fallback.
func (r *Registry) malformed(name, raw string) { r.unknown(name, raw) }
