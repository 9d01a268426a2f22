// Package domain contains the pure data model of the arbor engine: scope handles,
// component nodes, generations and their diffs, the lifecycle/animation model,
// and the structured error kinds raised by the runtime.
//
// Nothing in this package performs I/O or holds locks. Types here are shared by
// the registry, the state store, the builder and every adapter.
package domain
