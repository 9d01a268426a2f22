package dsl

import "github.com/aretw0/arbor/pkg/tree"

// Provider turns a function returning a node builder into a tree.Provider.
// fn runs on every pass.
func Provider(fn func() *NodeBuilder) tree.Provider {
	return tree.ProviderFunc(func() *tree.Declaration {
		return fn().Build()
	})
}

// Static builds root once and always describes the same tree.
func Static(root *NodeBuilder) tree.Provider {
	return tree.Static(root.Build())
}
