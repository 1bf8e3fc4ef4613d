package distribute

import "sort"

// Value constrains the payload types a ValueCollection can carry over the
// wire: integer tags (markers, subdomain ids) and floating-point data.
type Value interface {
	~int64 | ~float64
}

// Entry is one tagged value: a cell index, the local index of the tagged
// entity within that cell, and the value itself. Whether Cell is a global
// or local index depends on context: collections fed to Redistribute use
// global indices from the prior layout, collections it returns use local
// indices on the target mesh.
type Entry[T Value] struct {
	Cell   int
	Entity int
	Value  T
}

type entryKey struct {
	cell   int
	entity int
}

// ValueCollection stores values tagged onto mesh entities, addressed by
// (cell, local entity within cell). Setting the same (cell, entity) twice
// keeps the last value, which makes redundant application to shared or
// ghosted entities harmless.
type ValueCollection[T Value] struct {
	// Dim is the topological dimension of the tagged entities.
	Dim int

	values map[entryKey]T
}

// NewValueCollection creates an empty collection for entities of the given
// topological dimension.
func NewValueCollection[T Value](dim int) *ValueCollection[T] {
	return &ValueCollection[T]{
		Dim:    dim,
		values: make(map[entryKey]T),
	}
}

// Set tags the entity at (cell, entity) with v, replacing any prior value.
func (vc *ValueCollection[T]) Set(cell, entity int, v T) {
	vc.values[entryKey{cell, entity}] = v
}

// Get returns the value tagged at (cell, entity).
func (vc *ValueCollection[T]) Get(cell, entity int) (T, bool) {
	v, ok := vc.values[entryKey{cell, entity}]
	return v, ok
}

// Len returns the number of tagged entities.
func (vc *ValueCollection[T]) Len() int { return len(vc.values) }

// Entries returns the collection's contents ordered by (cell, entity), so
// iteration is deterministic across runs and ranks.
func (vc *ValueCollection[T]) Entries() []Entry[T] {
	out := make([]Entry[T], 0, len(vc.values))
	for k, v := range vc.values {
		out = append(out, Entry[T]{Cell: k.cell, Entity: k.entity, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cell != out[j].Cell {
			return out[i].Cell < out[j].Cell
		}
		return out[i].Entity < out[j].Entity
	})
	return out
}
