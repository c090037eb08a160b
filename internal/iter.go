package internal

import (
	"iter"
)

// IterSeq2Concat chains key/value iterators, yielding each in turn.
// Later sequences may repeat keys of earlier ones; consumers that build
// maps from the result see the last value for a key.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			if seq == nil {
				continue
			}
			for key, value := range seq {
				if !yield(key, value) {
					return
				}
			}
		}
	}
}
