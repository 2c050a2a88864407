// Package batch partitions discovered profile identifiers into bounded
// work units so that downstream rendering and extraction proceed in
// predictable chunks regardless of how many results discovery produced.
package batch

import "sort"

// DefaultSize is the number of identifiers processed per batch when the
// caller does not override it.
const DefaultSize = 10

// Partition sorts the identifiers lexicographically and splits them into
// consecutive chunks of at most size elements. The input slice is not
// modified. A non-positive size falls back to DefaultSize. Partitioning an
// empty set yields no batches; no batch is ever empty.
func Partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultSize
	}
	if len(ids) == 0 {
		return nil
	}

	ordered := make([]string, len(ids))
	copy(ordered, ids)
	sort.Strings(ordered)

	batches := make([][]string, 0, (len(ordered)+size-1)/size)
	for start := 0; start < len(ordered); start += size {
		end := start + size
		if end > len(ordered) {
			end = len(ordered)
		}
		batches = append(batches, ordered[start:end])
	}
	return batches
}
