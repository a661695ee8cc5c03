// Package model defines the provider-agnostic model-call collaborator: the
// component that submits a conversation to a language model and supplies the
// lazy StreamChunk sequence the extractor consumes.
//
// Core goals:
//   - Unify streaming and non-streaming providers behind a single interface
//   - Normalize tool exposure (ToolDefinition) across vendors
//   - Keep request shapes minimal and transport independent
//   - Facilitate scripted mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the runner stays decoupled from vendor SDKs.
package model
