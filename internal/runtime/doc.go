// Package runtime contains the build pass: the depth-first walk that turns a
// declaration tree into a generation of component nodes, consulting the scope
// registry for handles and the reuse check for continuity with the prior
// generation.
package runtime
