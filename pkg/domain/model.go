package domain

import "time"

// LifecycleFunc is a callback attached to a component's lifecycle.
type LifecycleFunc func(node *ComponentNode)

// FillMode decides what a finished animation leaves on screen.
type FillMode string

const (
	// FillRemoved drops the animation's effect when it completes.
	FillRemoved FillMode = "removed"
	// FillForwards holds the final frame, required for unmount animations since
	// the view is about to go away.
	FillForwards FillMode = "forwards"
)

// Animation is an opaque animation description played by the host.
type Animation struct {
	Name     string         `json:"name" yaml:"name"`
	Duration time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// AnimationGroup is a set of animations played together.
type AnimationGroup struct {
	Animations []Animation `json:"animations"`
	Fill       FillMode    `json:"fill"`
	Repeat     bool        `json:"repeat,omitempty"`
}

// Model is what a component declares about its lifecycle and animations.
// Any group may be empty.
type Model struct {
	DidInit     []LifecycleFunc
	WillMount   []LifecycleFunc
	DidUnmount  []LifecycleFunc
	WillDispose []LifecycleFunc

	Animations        []Animation
	InitialMountAnims []Animation
	FinalUnmountAnims []Animation
}

// IsEmpty reports whether the model declares nothing at all.
func (m *Model) IsEmpty() bool {
	if m == nil {
		return true
	}
	return len(m.DidInit) == 0 &&
		len(m.WillMount) == 0 &&
		len(m.DidUnmount) == 0 &&
		len(m.WillDispose) == 0 &&
		len(m.Animations) == 0 &&
		len(m.InitialMountAnims) == 0 &&
		len(m.FinalUnmountAnims) == 0
}

// Bridge converts the model into the payload attached to a node.
// An empty model yields nil, and each empty group inside the bridge is nil.
func (m *Model) Bridge() *Bridge {
	if m.IsEmpty() {
		return nil
	}
	return &Bridge{
		DidInit:      callbacksOrNil(m.DidInit),
		WillMount:    callbacksOrNil(m.WillMount),
		DidUnmount:   callbacksOrNil(m.DidUnmount),
		WillDispose:  callbacksOrNil(m.WillDispose),
		Steady:       groupOrNil(m.Animations, FillRemoved, true),
		InitialMount: groupOrNil(m.InitialMountAnims, FillRemoved, false),
		FinalUnmount: groupOrNil(m.FinalUnmountAnims, FillForwards, false),
	}
}

func callbacksOrNil(fns []LifecycleFunc) []LifecycleFunc {
	if len(fns) == 0 {
		return nil
	}
	return append([]LifecycleFunc(nil), fns...)
}

func groupOrNil(anims []Animation, fill FillMode, repeat bool) *AnimationGroup {
	if len(anims) == 0 {
		return nil
	}
	return &AnimationGroup{
		Animations: append([]Animation(nil), anims...),
		Fill:       fill,
		Repeat:     repeat,
	}
}

// Bridge is the lifecycle and animation payload a node carries to the renderer.
type Bridge struct {
	DidInit     []LifecycleFunc
	WillMount   []LifecycleFunc
	DidUnmount  []LifecycleFunc
	WillDispose []LifecycleFunc

	Steady       *AnimationGroup
	InitialMount *AnimationGroup
	FinalUnmount *AnimationGroup
}

// Fire runs callbacks in declaration order against node.
func Fire(callbacks []LifecycleFunc, node *ComponentNode) {
	for _, cb := range callbacks {
		if cb != nil {
			cb(node)
		}
	}
}
