// Package internal holds iterator helpers shared by the machine packages.
package internal

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// IterSeq2Concat yields the pairs of each sequence in turn.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, value := range seq {
				if !yield(key, value) {
					return
				}
			}
		}
	}
}

// SortedSeq2 yields the entries of a map in ascending key order.
func SortedSeq2[K cmp.Ordered, V any](m map[K]V) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, key := range slices.Sorted(maps.Keys(m)) {
			if !yield(key, m[key]) {
				return
			}
		}
	}
}
