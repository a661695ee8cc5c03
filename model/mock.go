package model

import (
	"context"
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// MockModel is a scripted in-memory Model for tests and examples. Each call
// to Stream plays back the next scripted turn, split into per-rune text
// chunks so chunk-boundary handling downstream is exercised.
type MockModel struct {
	info  Info
	mu    sync.Mutex
	turns [][]core.StreamChunk
}

// NewMockModel constructs an empty MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock"},
	}
}

// AddTurn appends one scripted turn emitting exactly the given chunks.
func (m *MockModel) AddTurn(chunks ...core.StreamChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, chunks)
}

// AddTextTurn appends a turn that streams text rune by rune and finishes
// with the given credit charge.
func (m *MockModel) AddTextTurn(text string, credits float64) {
	var chunks []core.StreamChunk
	for _, r := range text {
		chunks = append(chunks, core.TextChunk{Text: string(r)})
	}

	chunks = append(chunks, core.FinishChunk{Reason: "stop", Credits: credits})

	m.AddTurn(chunks...)
}

// Stream implements Model. When the script is exhausted it emits a bare
// terminal finish.
func (m *MockModel) Stream(ctx context.Context, req Request) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	var turn []core.StreamChunk
	if len(m.turns) > 0 {
		turn = m.turns[0]
		m.turns = m.turns[1:]
	} else {
		turn = []core.StreamChunk{core.FinishChunk{Reason: "stop"}}
	}
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)

		for _, chunk := range turn {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- chunk:
			}
		}
	}()

	return out, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
