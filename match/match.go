// Package match provides atomic predicates over batches, used as the
// building blocks of formula atoms.
package match

import "streamcheck/trace"

// Returns a predicate that is true iff every record in the batch satisfies p.
// Vacuously true on an empty batch.
func ForEach[R any](p func(R) bool) func(trace.Batch[R]) bool {
	return func(b trace.Batch[R]) bool {
		for i := 0; i < b.Len(); i++ {
			if !p(b.At(i)) {
				return false
			}
		}
		return true
	}
}

// Returns a predicate that is true iff at least one record in the batch
// satisfies p. False on an empty batch.
func Exists[R any](p func(R) bool) func(trace.Batch[R]) bool {
	return func(b trace.Batch[R]) bool {
		for i := 0; i < b.Len(); i++ {
			if p(b.At(i)) {
				return true
			}
		}
		return false
	}
}

// Returns true iff the set of distinct record values in a equals the set of
// distinct record values in b. Multiplicity is ignored: duplicates collapse.
//
// Implemented as a symmetric-difference check with one pass over each batch.
func EqualAsSet[R comparable](a, b trace.Batch[R]) bool {
	inA := make(map[R]bool, a.Len())
	for i := 0; i < a.Len(); i++ {
		inA[a.At(i)] = false
	}
	for i := 0; i < b.Len(); i++ {
		v := b.At(i)
		if _, ok := inA[v]; !ok {
			return false
		}
		inA[v] = true
	}
	for _, matched := range inA {
		if !matched {
			return false
		}
	}
	return true
}
