/*
Package loader reads component tree descriptions from YAML.

A description names a tree and its root node. Each node either spells out a
declaration directly or names a component from a registry.Registry and passes
it props; lifecycle callbacks are referenced by name too.

	name: counter-demo
	root:
	  type: Column
	  size: {width: 100%, height: auto}
	  children:
	    - type: Counter
	      key: main
	      identity: main
	      state: {initial: 0}
	      lifecycle:
	        will_mount: [log]
	    - component: label
	      props: {text: "hello"}

A Description is a tree.Provider: hand it to Engine.SetRoot.
*/
package loader
