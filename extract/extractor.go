package extract

import (
	"strings"

	"github.com/hupe1980/agentcore/core"
)

// maxHeaderLen bounds how much text is buffered while deciding whether a '<'
// opens a tag. Anything longer is flushed back to the display stream.
const maxHeaderLen = 4096

// maxBodyLen bounds how much of a paired tag body is buffered while waiting
// for its closing tag. A body that grows past it is reported through the
// malformed fallback, like an unclosed tag at end of stream, and scanning
// resumes as plain text.
const maxBodyLen = 1 << 20

// scanState tracks where the inline text scanner is within a tag.
type scanState int

const (
	scanText   scanState = iota // copying display text
	scanHeader                  // after '<', buffering a candidate tag header
	scanBody                    // inside a paired tag, buffering its body
)

// pendingCall accumulates one invocation delivered via ToolCallChunk boundary
// markers, whose attribute set may arrive across several chunks.
type pendingCall struct {
	name    string
	attrs   map[string]string
	raw     strings.Builder
	started bool
}

// Extractor recognizes tool invocations in a model output stream. It is a
// single-owner state machine: Feed and Finish must be called from one
// goroutine, and callbacks fire synchronously during those calls.
type Extractor struct {
	registry *Registry

	state    scanState
	header   strings.Builder // candidate tag header, without '<'
	openName string          // name of the open paired tag
	openAttr map[string]string
	openRaw  string // raw attribute text of the open tag
	body     strings.Builder

	call      *pendingCall
	reasoning strings.Builder
	thinking  bool
}

// New constructs an Extractor over the given registry.
func New(registry *Registry) *Extractor {
	if registry == nil {
		panic("extract: registry is required")
	}
	return &Extractor{registry: registry}
}

// Feed processes one chunk, firing any callbacks it completes and returning
// the pass-through chunks produced for display. Recognized inline tag markup
// is consumed rather than passed through; everything else is relayed.
func (e *Extractor) Feed(chunk core.StreamChunk) []core.StreamChunk {
	switch c := chunk.(type) {
	case core.TextChunk:
		e.flushReasoning()
		if text := e.scan(c.Text); text != "" {
			return []core.StreamChunk{core.TextChunk{Text: text}}
		}
		return nil
	case core.ReasoningChunk:
		if !e.thinking {
			e.thinking = true
			e.registry.start(KindThink.String(), map[string]string{})
		}
		e.reasoning.WriteString(c.Text)
		return []core.StreamChunk{c}
	case core.ToolCallChunk:
		e.flushReasoning()
		e.feedToolCall(c)
		return []core.StreamChunk{c}
	case core.ErrorChunk:
		e.flushReasoning()
		return []core.StreamChunk{c}
	case core.FinishChunk:
		e.flushReasoning()
		return []core.StreamChunk{c}
	default:
		return []core.StreamChunk{chunk}
	}
}

// Run processes a complete finite chunk sequence, returning the pass-through
// chunks. Equivalent to Feed over every chunk followed by Finish.
func (e *Extractor) Run(chunks []core.StreamChunk) []core.StreamChunk {
	var out []core.StreamChunk
	for _, c := range chunks {
		out = append(out, e.Feed(c)...)
	}
	out = append(out, e.Finish()...)
	return out
}

// Finish flushes buffered state at end of stream. An unterminated candidate
// header is returned as plain text; an unclosed paired tag or incomplete
// tool-call boundary is reported through the malformed fallback.
func (e *Extractor) Finish() []core.StreamChunk {
	var out []core.StreamChunk

	e.flushReasoning()

	switch e.state {
	case scanHeader:
		if e.header.Len() > 0 {
			out = append(out, core.TextChunk{Text: "<" + e.header.String()})
		}
	case scanBody:
		e.registry.malformed(e.openName, e.openRaw+" "+e.body.String())
	}
	e.resetScan()

	if e.call != nil {
		e.registry.malformed(e.call.name, e.call.raw.String())
		e.call = nil
	}

	return out
}

// feedToolCall merges one boundary-marker chunk into the pending invocation
// and completes it when the chunk is marked done.
func (e *Extractor) feedToolCall(c core.ToolCallChunk) {
	if e.call == nil {
		e.call = &pendingCall{attrs: map[string]string{}}
	}

	if c.Name != "" {
		e.call.name = c.Name
	}
	for k, v := range c.Attrs {
		e.call.attrs[k] = v
	}
	e.call.raw.WriteString(c.Raw)

	if !e.call.started && e.call.name != "" {
		e.call.started = true
		e.registry.start(e.call.name, cloneAttrs(e.call.attrs))
	}

	if !c.Done {
		return
	}

	call := e.call
	e.call = nil

	attrs := call.attrs
	if decoded, ok := jsonAttrs(call.raw.String()); ok {
		for k, v := range decoded {
			if _, exists := attrs[k]; !exists {
				attrs[k] = v
			}
		}
	}

	e.registry.end(call.name, call.raw.String(), attrs)
}

// scan advances the inline text state machine over one text fragment and
// returns the display text produced.
func (e *Extractor) scan(text string) string {
	var out strings.Builder

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch e.state {
		case scanText:
			if c == '<' {
				e.state = scanHeader
				e.header.Reset()
				continue
			}
			out.WriteByte(c)

		case scanHeader:
			if c == '>' {
				e.completeHeader(&out)
				continue
			}
			if e.header.Len() == 0 && !isNameStartByte(c) {
				// Not a tag after all; put the text back.
				out.WriteByte('<')
				e.state = scanText
				i-- // re-process this byte as plain text (may itself be '<')
				continue
			}
			e.header.WriteByte(c)
			if e.header.Len() > maxHeaderLen {
				out.WriteString("<" + e.header.String())
				e.resetScan()
			}

		case scanBody:
			e.body.WriteByte(c)
			if c == '>' {
				e.tryCloseBody()
			}
			if e.state == scanBody && e.body.Len() > maxBodyLen {
				e.registry.malformed(e.openName, e.openRaw+" "+e.body.String())
				e.resetScan()
			}
		}
	}

	return out.String()
}

// completeHeader parses a buffered `name attrs...` header once '>' arrives.
func (e *Extractor) completeHeader(out *strings.Builder) {
	header := e.header.String()
	e.header.Reset()
	e.state = scanText

	selfClosing := strings.HasSuffix(header, "/")
	if selfClosing {
		header = strings.TrimSuffix(header, "/")
	}

	name, rawAttrs := splitHeader(header)
	if name == "" {
		out.WriteString("<" + header + ">")
		return
	}

	attrs, ok := parseAttrs(rawAttrs)
	if !ok {
		e.registry.malformed(name, rawAttrs)
		return
	}

	if selfClosing {
		e.registry.start(name, cloneAttrs(attrs))
		e.registry.end(name, rawAttrs, attrs)
		return
	}

	e.state = scanBody
	e.openName = name
	e.openAttr = attrs
	e.openRaw = rawAttrs
	e.body.Reset()
	e.registry.start(name, cloneAttrs(attrs))
}

// tryCloseBody completes the open paired tag if the buffered body now ends
// with its closing tag.
func (e *Extractor) tryCloseBody() {
	closing := "</" + e.openName + ">"
	body := e.body.String()
	if !strings.HasSuffix(body, closing) {
		return
	}

	attrs := e.openAttr
	attrs["body"] = body[:len(body)-len(closing)]
	e.registry.end(e.openName, e.openRaw, attrs)
	e.resetScan()
}

// resetScan clears all inline-tag scanning state.
func (e *Extractor) resetScan() {
	e.state = scanText
	e.header.Reset()
	e.body.Reset()
	e.openName = ""
	e.openAttr = nil
	e.openRaw = ""
}

// flushReasoning closes the synthetic think invocation if one is open.
func (e *Extractor) flushReasoning() {
	if !e.thinking {
		return
	}
	e.thinking = false
	thought := e.reasoning.String()
	e.reasoning.Reset()
	e.registry.end(KindThink.String(), thought, map[string]string{"thought": thought})
}

// splitHeader separates the tag name from its raw attribute text.
func splitHeader(header string) (name, rawAttrs string) {
	end := 0
	for end < len(header) && isNameByte(header[end]) {
		end++
	}
	if end == 0 || !isNameStartByte(header[0]) {
		return "", header
	}
	name = header[:end]
	rawAttrs = strings.TrimSpace(header[end:])
	return name, rawAttrs
}

// cloneAttrs copies an attribute map so handler mutations cannot corrupt
// extractor state.
func cloneAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
