package loader

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
)

// NodeSpec is one node of a YAML description.
type NodeSpec struct {
	Type     string `yaml:"type,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Identity any    `yaml:"identity,omitempty"`

	// Component names a registry entry that produces the declaration. Type,
	// Key, Identity, View and Size set here override what it returns.
	Component string         `yaml:"component,omitempty"`
	Props     registry.Props `yaml:"props,omitempty"`

	State      *StateSpec                `yaml:"state,omitempty"`
	View       *domain.ViewConfiguration `yaml:"view,omitempty"`
	Size       *domain.SizeConstraint    `yaml:"size,omitempty"`
	Lifecycle  *LifecycleSpec            `yaml:"lifecycle,omitempty"`
	Animations *AnimationSpec            `yaml:"animations,omitempty"`

	Children []*NodeSpec `yaml:"children,omitempty"`
}

// StateSpec declares that the node carries state and gives its default.
type StateSpec struct {
	Initial any `yaml:"initial"`
}

// LifecycleSpec lists callback names per lifecycle group.
type LifecycleSpec struct {
	DidInit     []string `yaml:"did_init,omitempty"`
	WillMount   []string `yaml:"will_mount,omitempty"`
	DidUnmount  []string `yaml:"did_unmount,omitempty"`
	WillDispose []string `yaml:"will_dispose,omitempty"`
}

// AnimationSpec lists animations per group.
type AnimationSpec struct {
	Steady       []domain.Animation `yaml:"steady,omitempty"`
	InitialMount []domain.Animation `yaml:"initial_mount,omitempty"`
	FinalUnmount []domain.Animation `yaml:"final_unmount,omitempty"`
}

// Document is the top level of a description file.
type Document struct {
	Name string    `yaml:"name"`
	Root *NodeSpec `yaml:"root"`
}
