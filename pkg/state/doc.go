// Package state holds the value attached to each scope handle and the
// mailbox through which writes reach it.
//
// Reads are only valid inside a build pass and must present a Token for that
// pass. Writes may come from any goroutine: they are coalesced per handle
// (last write wins) and the first write after a drain asks the scheduler for
// exactly one rebuild. The engine's main context drains the mailbox before
// each state-triggered pass. Writes addressed to handles that were disposed in
// the meantime are dropped at drain time.
//
// Components declare state in two phases. Declare returns a Provisional value
// that accepts writes before any handle exists; Link binds it to a handle and
// returns the Live accessor. Var wraps both phases for hosts that do not want
// to track which one they are in.
package state
