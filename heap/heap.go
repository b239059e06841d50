// Package heap implements the id-indexed arena that holds reference values
// (arrays and strings) for the stack machine.
//
// Values are addressed by an opaque id, which is only meaningful to the Heap
// that issued it. Ids start at 1 and are never reused, even after Free.
package heap

import (
	"iter"
	"maps"
	"slices"
)

// Kind is the variant of a heap value.
type Kind int

const (
	KIND_NONE   = Kind(0) // nothing
	KIND_ARRAY  = Kind(1) // array
	KIND_STRING = Kind(2) // string
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KIND_ARRAY:
		return "array"
	case KIND_STRING:
		return "string"
	default:
		return "nothing"
	}
}

// Value is a heap allocated value.
type Value interface {
	Kind() Kind
}

// Array is a fixed length array of integers.
type Array []int64

// String is an immutable text value.
type String string

func (Array) Kind() Kind  { return KIND_ARRAY }
func (String) Kind() Kind { return KIND_STRING }

// KindOf returns the kind of a possibly nil value.
func KindOf(value Value) Kind {
	if value == nil {
		return KIND_NONE
	}
	return value.Kind()
}

// Heap is an arena of values.
type Heap struct {
	cell   map[int64]Value
	nextId int64
}

// New creates an empty heap.
func New() (hp *Heap) {
	hp = &Heap{
		cell:   make(map[int64]Value),
		nextId: 1,
	}
	return
}

// Allocate stores a value and returns its new id.
func (hp *Heap) Allocate(value Value) (id int64) {
	if hp.cell == nil {
		hp.cell = make(map[int64]Value)
	}
	if hp.nextId == 0 {
		hp.nextId = 1
	}

	id = hp.nextId
	hp.nextId++
	hp.cell[id] = value

	return
}

// Get returns the value for an id.
func (hp *Heap) Get(id int64) (value Value, ok bool) {
	value, ok = hp.cell[id]
	return
}

// Array returns the array for an id, if the id holds an array.
func (hp *Heap) Array(id int64) (array Array, ok bool) {
	array, ok = hp.cell[id].(Array)
	return
}

// String returns the string for an id, if the id holds a string.
func (hp *Heap) String(id int64) (str String, ok bool) {
	str, ok = hp.cell[id].(String)
	return
}

// Free removes the value for an id. The id is never issued again.
func (hp *Heap) Free(id int64) (value Value, ok bool) {
	value, ok = hp.cell[id]
	if ok {
		delete(hp.cell, id)
	}
	return
}

// Valid returns true if the id refers to a live value.
func (hp *Heap) Valid(id int64) bool {
	_, ok := hp.cell[id]
	return ok
}

// Len is the number of live values.
func (hp *Heap) Len() int {
	return len(hp.cell)
}

// All iterates over the live values in id order.
func (hp *Heap) All() iter.Seq2[int64, Value] {
	return func(yield func(id int64, value Value) bool) {
		for _, id := range slices.Sorted(maps.Keys(hp.cell)) {
			if !yield(id, hp.cell[id]) {
				return
			}
		}
	}
}
