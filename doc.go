/*
Package arbor is a scoped persistent-state component-tree engine.

A host describes its user interface as a tree of declarations. Every build
pass walks that description, gives each component a scope handle derived from
its structural position, and links the component's declared state to that
handle. When the description is rebuilt, components whose position and
identity are unchanged are reused: they keep their handle, their state and
their cached render state. Everything else is discarded and constructed fresh.

# Concept

State lives in a store keyed by scope handle, not in the component. Writes may
come from any goroutine; they are coalesced and trigger exactly one rebuild on
the engine's main context. Each committed generation is published to a
Renderer together with a diff, and the built-in mounter fires the lifecycle
callbacks and animation groups the components declared.

# Key Features

  - Stable identity: positions are derived from type, key and per-type sibling
    ordinal, so unrelated insertions never shift a component's handle.
  - No partial trees: a failing component aborts the pass and the previous
    generation stays published.
  - Durable state: snapshots keyed by position survive process restarts
    (memory, file and Redis stores).
  - Observability: lifecycle hooks for builds, reuse decisions and state
    updates, with a Prometheus adapter.

# Usage

	count := state.NewVar(0)

	eng := arbor.New(arbor.WithLogger(logger))
	eng.SetRoot(tree.ProviderFunc(func() *tree.Declaration {
		return &tree.Declaration{
			Type:  "Counter",
			State: count,
			Construct: func(ctx tree.BuildContext) ([]*tree.Declaration, error) {
				n, err := count.Get(ctx)
				if err != nil {
					return nil, err
				}
				return []*tree.Declaration{{Type: "Label", Identity: n}}, nil
			},
		}
	}))

	go count.Set(1) // from any goroutine

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
*/
package arbor
