package fixer

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/dispatch"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/resilience"
)

// ContentStore supplies the pre-edit content of a file so Replay can compute
// the intended final content. The host captures content before the batched
// step runs.
type ContentStore interface {
	Original(path string) (string, bool)
}

// MapStore is an in-memory ContentStore.
type MapStore map[string]string

// Original implements ContentStore.
func (m MapStore) Original(path string) (string, bool) {
	content, ok := m[path]
	return content, ok
}

// Applier commits one file's diff to the host environment. Optional; when
// nil, the pass only records the patch on the batch result.
type Applier interface {
	ApplyDiff(ctx context.Context, path, diff string) error
}

// Options configures a PostProcessor.
type Options struct {
	Logger logging.Logger
	// Breaker gates the service call. Shared across all passes against the
	// same service for the life of the process.
	Breaker *resilience.Breaker
	// Applier commits applied diffs to the host environment. Optional.
	Applier Applier
	// MaxFileBytes drops any single file whose intended content exceeds it.
	MaxFileBytes int
	// MaxFiles truncates (never rejects) the candidate list.
	MaxFiles int
	// MaxRetries bounds retries of the service call after the first attempt.
	MaxRetries int
	// CallTimeout bounds each service call attempt.
	CallTimeout time.Duration
	// ApplyTimeout bounds each per-file diff application step.
	ApplyTimeout time.Duration
	// Extensions overrides the supported-language extension set.
	Extensions map[string]bool
}

// PostProcessor runs the auto-fix pass over a batch outcome. Wire Process as
// the dispatcher's PostBatch hook.
type PostProcessor struct {
	service Service
	store   ContentStore
	opts    Options
}

// New creates a PostProcessor around the given service and content store.
func New(service Service, store ContentStore, optFns ...func(o *Options)) *PostProcessor {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		MaxFileBytes: 64 * 1024,
		MaxFiles:     10,
		MaxRetries:   2,
		CallTimeout:  30 * time.Second,
		ApplyTimeout: 5 * time.Second,
		Extensions:   defaultExtensions,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &PostProcessor{
		service: service,
		store:   store,
		opts:    opts,
	}
}

// Process offers the batch's edited files to the auto-fix service and applies
// the returned diff per file. Every failure mode, including an open breaker,
// a timeout, or an unparseable response, is swallowed: the batch's original
// results stand and the agent turn proceeds normally.
func (p *PostProcessor) Process(ctx context.Context, outcome *dispatch.BatchOutcome) {
	files := p.collect(outcome)
	if len(files) == 0 {
		return
	}

	diff, err := resilience.Do(ctx, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
		defer cancel()

		return p.service.Fix(callCtx, files)
	}, func(o *resilience.DoOptions) {
		o.MaxRetries = p.opts.MaxRetries
		o.Breaker = p.opts.Breaker
		o.Logger = p.opts.Logger
	})
	if err != nil {
		p.opts.Logger.Warn("fixer.call.failed", "files", len(files), "error", err.Error())
		return
	}

	if diff == "" {
		p.opts.Logger.Debug("fixer.call.clean", "files", len(files))
		return
	}

	applied := 0
	for path, fileDiff := range SplitDiff(diff) {
		if err := p.apply(ctx, outcome, path, fileDiff); err != nil {
			// Per-file isolation: log and move on.
			p.opts.Logger.Warn("fixer.apply.failed", "path", path, "error", err.Error())
			continue
		}

		applied++
	}

	p.opts.Logger.Info("fixer.pass.complete", "files", len(files), "applied", applied)
}

// collect computes the candidate file set: edited, supported-language files
// with a non-empty intended final content, subject to the per-file size
// ceiling and the file-count ceiling.
func (p *PostProcessor) collect(outcome *dispatch.BatchOutcome) []File {
	byPath := map[string][]core.ToolInvocation{}
	var order []string

	for _, inv := range outcome.Invocations {
		path := inv.Input["path"]
		if path == "" {
			continue
		}

		if _, seen := byPath[path]; !seen {
			order = append(order, path)
		}

		byPath[path] = append(byPath[path], inv)
	}

	var files []File

	for _, path := range order {
		if !supportedPath(p.opts.Extensions, path) {
			continue
		}

		preEdit, _ := p.store.Original(path)

		content := Replay(preEdit, byPath[path])
		if content == "" {
			continue
		}

		if len(content) > p.opts.MaxFileBytes {
			p.opts.Logger.Debug("fixer.file.oversize", "path", path, "bytes", len(content))
			continue
		}

		if len(files) == p.opts.MaxFiles {
			p.opts.Logger.Debug("fixer.files.truncated", "limit", p.opts.MaxFiles)
			break
		}

		files = append(files, File{Path: path, Content: content})
	}

	return files
}

// apply commits one file's diff and records it on that file's batch result,
// the same mutation path a normal edit uses.
func (p *PostProcessor) apply(ctx context.Context, outcome *dispatch.BatchOutcome, path, fileDiff string) error {
	applyCtx, cancel := context.WithTimeout(ctx, p.opts.ApplyTimeout)
	defer cancel()

	if p.opts.Applier != nil {
		if err := p.opts.Applier.ApplyDiff(applyCtx, path, fileDiff); err != nil {
			return err
		}
	}

	res := lastResultForPath(outcome, path)
	if res == nil {
		return fmt.Errorf("no batch result for %q", path)
	}

	res.Parts = append(res.Parts, core.PatchPart{Path: path, Diff: fileDiff})

	return nil
}

// lastResultForPath finds the final successful result recorded for a path in
// this batch.
func lastResultForPath(outcome *dispatch.BatchOutcome, path string) *core.ToolResult {
	for i := len(outcome.Invocations) - 1; i >= 0; i-- {
		inv := outcome.Invocations[i]
		if inv.Input["path"] != path {
			continue
		}

		if res, ok := outcome.Results[inv.ToolCallID]; ok && !res.IsError() {
			return res
		}
	}

	return nil
}
