package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

// recorder captures callback firing order for assertions.
type recorder struct {
	events []string
	ends   []map[string]string
}

func (r *recorder) registry(kinds ...ToolKind) *Registry {
	reg := NewRegistry()
	for _, kind := range kinds {
		reg.Register(kind, Handler{
			OnTagStart: func(name string, attrs map[string]string) {
				r.events = append(r.events, "start:"+name)
			},
			OnTagEnd: func(name string, attrs map[string]string) {
				r.events = append(r.events, "end:"+name)
				r.ends = append(r.ends, attrs)
			},
		})
	}
	reg.SetUnknownHandler(func(name, raw string) {
		r.events = append(r.events, "unknown:"+name)
	})
	return reg
}

func textChunks(parts ...string) []core.StreamChunk {
	chunks := make([]core.StreamChunk, len(parts))
	for i, p := range parts {
		chunks[i] = core.TextChunk{Text: p}
	}
	return chunks
}

func displayText(chunks []core.StreamChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if tc, ok := c.(core.TextChunk); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func TestExtractorRecognizesSelfClosingTag(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindSearch))

	out := e.Run(textChunks(`before <search query="foo"/> after`))

	assert.Equal(t, []string{"start:search", "end:search"}, rec.events)
	require.Len(t, rec.ends, 1)
	assert.Equal(t, "foo", rec.ends[0]["query"])
	assert.Equal(t, "before  after", displayText(out))
}

func TestExtractorRecognizesPairedTagWithBody(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindWrite))

	out := e.Run(textChunks(`<write_file path="main.go">package main</write_file>`))

	assert.Equal(t, []string{"start:write_file", "end:write_file"}, rec.events)
	require.Len(t, rec.ends, 1)
	assert.Equal(t, "main.go", rec.ends[0]["path"])
	assert.Equal(t, "package main", rec.ends[0]["body"])
	assert.Empty(t, displayText(out))
}

func TestExtractorTagSpansChunkBoundaries(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindWrite))

	out := e.Run(textChunks(
		"Hello <wri",
		`te_file path="a.go">cont`,
		"ent</wr",
		"ite_file> done",
	))

	assert.Equal(t, []string{"start:write_file", "end:write_file"}, rec.events)
	require.Len(t, rec.ends, 1)
	assert.Equal(t, "a.go", rec.ends[0]["path"])
	assert.Equal(t, "content", rec.ends[0]["body"])
	assert.Equal(t, "Hello  done", displayText(out))
}

func TestExtractorFiresEndExactlyOncePerInvocation(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindSearch))

	e.Run(textChunks(
		`<search query="a"/><search query="b"/>`,
		`<search query="c"/>`,
	))

	ends := 0
	for _, ev := range rec.events {
		if ev == "end:search" {
			ends++
		}
	}
	assert.Equal(t, 3, ends)
	assert.Equal(t, "a", rec.ends[0]["query"])
	assert.Equal(t, "b", rec.ends[1]["query"])
	assert.Equal(t, "c", rec.ends[2]["query"])
}

func TestExtractorUnknownToolRoutesToFallback(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindSearch))

	e.Run(textChunks(`<frobnicate target="x"/>`))

	assert.Equal(t, []string{"unknown:frobnicate"}, rec.events)
}

func TestExtractorLiteralAngleBracketPassesThrough(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindSearch))

	out := e.Run(textChunks("if a < b then", " < 3"))

	assert.Empty(t, rec.events)
	assert.Equal(t, "if a < b then < 3", displayText(out))
}

func TestExtractorUnterminatedHeaderFlushedAsText(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindSearch))

	out := e.Run(textChunks("trailing <search query=\"unfinished"))

	assert.Empty(t, rec.events)
	assert.Equal(t, "trailing <search query=\"unfinished", displayText(out))
}

func TestExtractorUnclosedPairedTagReportedMalformed(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindWrite))

	e.Run(textChunks(`<write_file path="a.go">never closed`))

	assert.Equal(t, []string{"start:write_file", "unknown:write_file"}, rec.events)
}

func TestExtractorReasoningRewrappedAsThink(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindThink))

	chunks := []core.StreamChunk{
		core.ReasoningChunk{Text: "step one. "},
		core.ReasoningChunk{Text: "step two."},
		core.TextChunk{Text: "answer"},
	}
	out := e.Run(chunks)

	assert.Equal(t, []string{"start:think", "end:think"}, rec.events)
	require.Len(t, rec.ends, 1)
	assert.Equal(t, "step one. step two.", rec.ends[0]["thought"])
	assert.Equal(t, "answer", displayText(out))
}

func TestExtractorToolCallChunkAccumulation(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindEdit))

	chunks := []core.StreamChunk{
		core.ToolCallChunk{Name: "edit_file", Attrs: map[string]string{"path": "x.go"}},
		core.ToolCallChunk{Attrs: map[string]string{"find": "foo"}},
		core.ToolCallChunk{Attrs: map[string]string{"replace": "bar"}, Done: true},
	}
	e.Run(chunks)

	assert.Equal(t, []string{"start:edit_file", "end:edit_file"}, rec.events)
	require.Len(t, rec.ends, 1)
	assert.Equal(t, "x.go", rec.ends[0]["path"])
	assert.Equal(t, "foo", rec.ends[0]["find"])
	assert.Equal(t, "bar", rec.ends[0]["replace"])
}

func TestExtractorToolCallJSONArgumentsDecoded(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindTerminal))

	chunks := []core.StreamChunk{
		core.ToolCallChunk{Name: "run_terminal_command", Raw: `{"command": "ls`},
		core.ToolCallChunk{Raw: ` -la", "cwd": "/tmp"}`, Done: true},
	}
	e.Run(chunks)

	require.Len(t, rec.ends, 1)
	assert.Equal(t, "ls -la", rec.ends[0]["command"])
	assert.Equal(t, "/tmp", rec.ends[0]["cwd"])
}

func TestExtractorIncompleteToolCallReportedMalformed(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindEdit))

	e.Run([]core.StreamChunk{
		core.ToolCallChunk{Name: "edit_file", Attrs: map[string]string{"path": "x.go"}},
	})

	assert.Equal(t, []string{"start:edit_file", "unknown:edit_file"}, rec.events)
}

func TestExtractorCallbacksFireInArrivalOrder(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindRead, KindSearch))

	var text []string
	for _, c := range e.Run(textChunks(`one <read_file path="a"/> two <search query="q"/> three`)) {
		if tc, ok := c.(core.TextChunk); ok {
			text = append(text, tc.Text)
		}
	}

	assert.Equal(t, []string{
		"start:read_file", "end:read_file",
		"start:search", "end:search",
	}, rec.events)
	assert.Equal(t, "one  two  three", strings.Join(text, ""))
}

func TestKindOfRoundTrip(t *testing.T) {
	kinds := []ToolKind{KindRead, KindWrite, KindEdit, KindTerminal, KindSearch, KindThink, KindSpawnAgents}
	for _, k := range kinds {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			assert.Equal(t, k, KindOf(k.String()))
		})
	}
	assert.Equal(t, KindUnknown, KindOf("no_such_tool"))
}

func TestExtractorCustomToolNameRoutesToHandler(t *testing.T) {
	rec := &recorder{}
	reg := rec.registry(KindSearch)
	reg.RegisterCustom("calculate", Handler{
		OnTagStart: func(name string, attrs map[string]string) {
			rec.events = append(rec.events, "start:"+name)
		},
		OnTagEnd: func(name string, attrs map[string]string) {
			rec.events = append(rec.events, "end:"+name)
			rec.ends = append(rec.ends, attrs)
		},
	})

	e := New(reg)
	e.Run(textChunks(`<calculate op="add"/> then <frobnicate/>`))

	// Registered custom names resolve to their handler; only genuinely
	// unregistered names reach the fallback.
	assert.Equal(t, []string{"start:calculate", "end:calculate", "unknown:frobnicate"}, rec.events)
	require.Len(t, rec.ends, 1)
	assert.Equal(t, "add", rec.ends[0]["op"])
}

func TestRegisterCustomRejectsCanonicalName(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry().RegisterCustom("search", Handler{})
	})
}

func TestExtractorRunawayBodyReportedMalformed(t *testing.T) {
	rec := &recorder{}
	e := New(rec.registry(KindWrite))

	runaway := strings.Repeat("a", maxBodyLen+1)
	out := e.Run(textChunks(`<write_file path="big.go">`+runaway, "trailing text"))

	assert.Equal(t, []string{"start:write_file", "unknown:write_file"}, rec.events)
	// Scanning resumes as plain text once the open tag is abandoned.
	assert.Contains(t, displayText(out), "trailing text")
}
