package param

import "iter"

// MaxParameters is the number of parameters a Registry accepts, separators
// included.
const MaxParameters = 64

// Registry is the ordered, append-only set of parameters.
type Registry struct {
	params []*Parameter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{params: make([]*Parameter, 0, 8)}
}

// Add appends p. It returns false when p is nil or the registry is full.
func (r *Registry) Add(p *Parameter) bool {
	if p == nil || len(r.params) >= MaxParameters {
		return false
	}
	r.params = append(r.params, p)
	return true
}

// Len returns the number of registered parameters, separators included.
func (r *Registry) Len() int {
	return len(r.params)
}

// TotalEncodedSize returns the number of bytes the parameters occupy in
// the persisted region, excluding the version tag.
func (r *Registry) TotalEncodedSize() int {
	size := 0
	for _, p := range r.params {
		if !p.IsSeparator() {
			size += p.Capacity()
		}
	}
	return size
}

// All iterates over the parameters in insertion order.
func (r *Registry) All() iter.Seq2[int, *Parameter] {
	return func(yield func(int, *Parameter) bool) {
		for i, p := range r.params {
			if !yield(i, p) {
				return
			}
		}
	}
}

// Fields iterates over the persisted parameters (separators skipped).
func (r *Registry) Fields() iter.Seq[*Parameter] {
	return func(yield func(*Parameter) bool) {
		for _, p := range r.params {
			if p.IsSeparator() {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Get returns the first parameter with the given id, or nil.
func (r *Registry) Get(id string) *Parameter {
	if id == "" {
		return nil
	}
	for _, p := range r.params {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ClearErrors removes every validation message.
func (r *Registry) ClearErrors() {
	for _, p := range r.params {
		p.ErrorMessage = ""
	}
}

// ResetToDefaults sets every field to its default value.
func (r *Registry) ResetToDefaults() {
	for p := range r.Fields() {
		p.Reset()
	}
}
