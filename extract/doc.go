// Package extract implements the streaming tag extractor: a pure synchronous
// state machine that consumes raw model output chunks, recognizes tool
// invocation boundaries (both explicit tool-call chunks and XML-style tags
// embedded in text), and fires registry callbacks exactly once per recognized
// invocation while passing chunks through for display.
//
// Tag boundaries may span multiple input chunks; the extractor buffers
// partial tag text across chunk boundaries and only completes an invocation
// once its full attribute set is available. The extractor performs no I/O and
// never blocks.
package extract
