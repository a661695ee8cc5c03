// Package core defines the shared data model of the execution core: agent
// state with hierarchical cost accounting, the model output stream chunk
// union, tool invocations and results, and the tagged display events relayed
// to the host UI. All unions are closed interfaces (unexported marker
// methods) so consumers get compile-time coverage when switching over them.
package core
