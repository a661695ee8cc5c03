// Package runner drives the step loop for one agent: each step submits the
// conversation to the model, routes the chunk stream through the tag
// extractor into the tool dispatcher, flushes any deferred rewrite batch at
// stream end, and accrues the turn's credit charge. The loop ends when a turn
// recognizes no tool invocations, when the step budget is exhausted, or on a
// model error.
package runner
