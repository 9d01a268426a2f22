/*
Package dsl provides a fluent Go builder for component tree descriptions.

It produces the same tree.Declaration values a hand-written Describe would,
with less nesting. Node builders are cheap; build a fresh tree on every
Describe so that state cells are declared per pass.

Example usage:

	count := state.NewVar(0)

	root := dsl.Node("Column").
		Width(domain.Percent(100)).
		Child(
			dsl.Node("Counter").
				Key("main").
				Identity("main").
				State(count).
				WillMount(func(n *domain.ComponentNode) { log.Println("mounted", n.Position) }).
				InitialMount(domain.Animation{Name: "fade-in"}),
			dsl.Node("Label").View("label", map[string]any{"text": "hello"}),
		)

	eng.SetRoot(dsl.Provider(func() *dsl.NodeBuilder { return root }))
*/
package dsl
