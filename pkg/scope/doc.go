// Package scope implements the scope handle registry: the arena that hands out
// stable identities to components, indexes them by tree position, and counts
// how many generations still reference each one.
//
// A handle lives from its first Acquire until the Release that drops its
// reference count to zero. At that point its state entry is deleted through
// the registry's Disposer and its ID is retired forever.
//
// Mutation happens on the engine's main context only. Lookup, At, Refs and
// Handles are safe from any goroutine.
package scope
