package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind separates the two plugin families the registry tracks.
type Kind string

const (
	KindAnimation Kind = "animation"
	KindTransport Kind = "transport"
)

// Descriptor is the static metadata for one installable implementation.
// New receives schema-validated parameters and returns the live instance;
// the caller asserts the concrete capability interface for the kind.
type Descriptor struct {
	Name    string
	Kind    Kind
	Summary string
	Schema  Schema
	New     func(params Params) (any, error)
}

// Registry holds the known animation and transport descriptors. Register
// everything before the engine starts accepting commands; lookups are safe
// for concurrent use afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{entries: map[Kind]map[string]Descriptor{
		KindAnimation: {},
		KindTransport: {},
	}}
}

// Register adds a descriptor under its name. Names are unique per kind.
func (r *Registry) Register(desc Descriptor) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("register plugin: name is empty")
	}
	if desc.New == nil {
		return fmt.Errorf("register %s %q: factory is nil", desc.Kind, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.entries[desc.Kind]
	if !ok {
		return fmt.Errorf("register %q: unknown plugin kind %q", name, desc.Kind)
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("register %s %q: %w", desc.Kind, name, ErrDuplicateName)
	}
	desc.Name = name
	byName[name] = desc
	return nil
}

// Lookup returns the descriptor registered for kind and name.
func (r *Registry) Lookup(kind Kind, name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.entries[kind][name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return desc, nil
}

// Instantiate validates params against the descriptor's schema and calls the
// factory. It returns the instance together with the normalized parameter
// set (defaults filled in), which the caller records as the authoritative
// parameters of the instance.
func (r *Registry) Instantiate(kind Kind, name string, params Params) (any, Params, error) {
	desc, err := r.Lookup(kind, name)
	if err != nil {
		return nil, nil, err
	}
	normalized, err := desc.Schema.Validate(params)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %q: %w", kind, name, err)
	}
	instance, err := desc.New(normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("instantiate %s %q: %w", kind, name, err)
	}
	return instance, normalized, nil
}

// Describe returns the descriptors of one kind sorted by name.
func (r *Registry) Describe(kind Kind) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries[kind]))
	for _, desc := range r.entries[kind] {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
