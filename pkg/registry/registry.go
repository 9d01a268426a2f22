package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/mitchellh/mapstructure"
)

// Props are the loosely typed parameters a description passes to a component.
type Props map[string]any

// Decode fills out from p. Strings are converted to numbers and booleans
// where the target field asks for them, so YAML authors can be loose.
func (p Props) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "yaml",
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(p)); err != nil {
		return fmt.Errorf("invalid props: %w", err)
	}
	return nil
}

// ComponentFunc builds the declaration for a named component from its props.
type ComponentFunc func(props Props) (*tree.Declaration, error)

// Typed adapts a function taking a props struct into a ComponentFunc.
func Typed[P any](fn func(P) (*tree.Declaration, error)) ComponentFunc {
	return func(props Props) (*tree.Declaration, error) {
		var p P
		if err := props.Decode(&p); err != nil {
			return nil, err
		}
		return fn(p)
	}
}

// Registry manages the components and lifecycle callbacks that descriptions
// refer to by name.
type Registry struct {
	mu         sync.RWMutex
	components map[string]ComponentFunc
	callbacks  map[string]domain.LifecycleFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]ComponentFunc),
		callbacks:  make(map[string]domain.LifecycleFunc),
	}
}

// Register adds a component. An existing component with the same name is
// overwritten.
func (r *Registry) Register(name string, fn ComponentFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = fn
}

// RegisterCallback adds a lifecycle callback.
func (r *Registry) RegisterCallback(name string, fn domain.LifecycleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[name] = fn
}

// Build looks up a component by name and runs it with props.
func (r *Registry) Build(name string, props Props) (*tree.Declaration, error) {
	r.mu.RLock()
	fn, ok := r.components[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("component not found: %s", name)
	}
	decl, err := fn(props)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", name, err)
	}
	if decl == nil {
		return nil, fmt.Errorf("component %s returned no declaration", name)
	}
	return decl, nil
}

// Callback returns the lifecycle callback registered under name.
func (r *Registry) Callback(name string) (domain.LifecycleFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.callbacks[name]
	if !ok {
		return nil, fmt.Errorf("callback not found: %s", name)
	}
	return fn, nil
}

// HasComponent reports whether name is registered.
func (r *Registry) HasComponent(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Components returns the registered component names, sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
