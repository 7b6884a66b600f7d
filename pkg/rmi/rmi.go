// Package rmi implements a two-stage Recursive Model Index over ordered
// unsigned integer keys: a stage-1 linear model routes a key to one of a
// fixed number of stage-2 linear models, each of which predicts the key's
// position in a sorted, in-memory array and carries the signed error bounds
// observed during training. Lookups binary-search only the window implied
// by those bounds rather than the whole array.
//
// A model is loaded separately from the data it indexes (see loader.go):
// until LoadModelFile or SetParams succeeds, the index is "unloaded" and
// every lookup transparently falls back to full-array binary search.
package rmi

import (
	"math"
	"sort"

	"github.com/indexlab/learnedindex/pkg/key"
)

const elementOverheadBytes = 8

// Index is an RMI over a sorted slice of keys together with an optional
// loaded model.
type Index[K key.Unsigned] struct {
	data   []K
	params Params
}

// New creates an empty, unloaded RMI.
func New[K key.Unsigned]() *Index[K] {
	return &Index[K]{}
}

// Build replaces the indexed data set with a sorted, deduplicated copy of
// keys. It does not touch any loaded model: Build and model loading are
// independent steps, matching the two-artifact nature of an RMI (the data
// array and the trained parameters).
func (idx *Index[K]) Build(keys []K) {
	cp := append([]K(nil), keys...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:0]
	for i, k := range cp {
		if i == 0 || k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	idx.data = out
}

// SetParams installs a model directly, bypassing the textual loader. It is
// primarily useful for tests and for callers that already hold parameters
// in memory.
func (idx *Index[K]) SetParams(p Params) {
	idx.params = p
}

// LoadModelFile loads a model artifact from path. On failure the index is
// left (or reset to) unloaded; it never carries a partially-parsed model.
func (idx *Index[K]) LoadModelFile(path string) error {
	p, err := LoadParamsFile(path)
	if err != nil {
		idx.params = Params{}
		return err
	}
	idx.params = p
	return nil
}

// Loaded reports whether a model is currently installed.
func (idx *Index[K]) Loaded() bool {
	return idx.params.Loaded()
}

// Len returns the number of indexed keys.
func (idx *Index[K]) Len() int {
	return len(idx.data)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// predictSubModel returns the stage-2 model index selected by the stage-1
// model for k.
func (idx *Index[K]) predictSubModel(k K) int {
	m := int(math.Round(idx.params.Stage1.Slope*float64(k) + idx.params.Stage1.Intercept))
	return clampIndex(m, idx.params.BranchFactor)
}

// envelope returns the inclusive index range [lo, hi] the model predicts k
// falls within, clamped to the bounds of the data array.
func (idx *Index[K]) envelope(k K) (lo, hi int) {
	n := len(idx.data)
	sm := idx.params.Stage2[idx.predictSubModel(k)]
	phat := int(math.Round(sm.Model.Slope*float64(k) + sm.Model.Intercept))
	lo = clampIndex(phat+sm.MinError, n)
	hi = clampIndex(phat+sm.MaxError, n)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Lookup reports whether k is present and, if so, its position in the
// sorted data array. When no model is loaded it falls back to full-array
// binary search; otherwise it restricts the search to the predicted
// envelope and reports absence (not a fallback) on a miss, trusting the
// model's trained error bounds to have bracketed the true position.
func (idx *Index[K]) Lookup(k K) (pos int, found bool) {
	n := len(idx.data)
	if n == 0 {
		return 0, false
	}
	if !idx.params.Loaded() {
		return binarySearchExact(idx.data, 0, n-1, k)
	}
	lo, hi := idx.envelope(k)
	return binarySearchExact(idx.data, lo, hi, k)
}

// binarySearchExact searches data[lo:hi+1] for an exact match of target.
func binarySearchExact[K key.Unsigned](data []K, lo, hi int, target K) (int, bool) {
	for lo <= hi {
		mid := lo + (hi-lo)/2
		switch {
		case data[mid] == target:
			return mid, true
		case data[mid] < target:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}

// boundedLowerBound finds the first index in [lo, hi] with data[idx] >=
// target. hit is false when the search could not be trusted: either the
// bound ran off the right of the window without finding one (and more data
// follows, so the true answer might lie beyond hi), or the window started
// too late (data[lo-1] already qualifies, so the true answer lies before
// lo). Either case signals the caller to fall back to a full-array search.
func boundedLowerBound[K key.Unsigned](data []K, lo, hi int, target K) (idx int, hit bool) {
	l, h := lo, hi+1
	for l < h {
		mid := l + (h-l)/2
		if data[mid] >= target {
			h = mid
		} else {
			l = mid + 1
		}
	}
	if l > hi {
		if hi == len(data)-1 {
			return len(data), true
		}
		return 0, false
	}
	if l == lo && lo > 0 && data[lo-1] >= target {
		return 0, false
	}
	return l, true
}

// boundedUpperBound finds the first index in [lo, hi] with data[idx] >
// target, with the same fallback signaling as boundedLowerBound.
func boundedUpperBound[K key.Unsigned](data []K, lo, hi int, target K) (idx int, hit bool) {
	l, h := lo, hi+1
	for l < h {
		mid := l + (h-l)/2
		if data[mid] > target {
			h = mid
		} else {
			l = mid + 1
		}
	}
	if l > hi {
		if hi == len(data)-1 {
			return len(data), true
		}
		return 0, false
	}
	if l == lo && lo > 0 && data[lo-1] > target {
		return 0, false
	}
	return l, true
}

func lowerBoundFull[K key.Unsigned](data []K, target K) int {
	return sort.Search(len(data), func(i int) bool { return data[i] >= target })
}

func upperBoundFull[K key.Unsigned](data []K, target K) int {
	return sort.Search(len(data), func(i int) bool { return data[i] > target })
}

// RangeQuery returns, in ascending order, every indexed key in [lo, hi].
// It predicts an envelope for lo and locates the first qualifying key
// within it (falling back to a full binary search on a miss), then
// predicts an envelope for hi and locates the exclusive upper bound in the
// window starting at the already-found lower iterator (again falling back
// on a miss), and emits the data between the two.
func (idx *Index[K]) RangeQuery(lo, hi K) []K {
	n := len(idx.data)
	if n == 0 || lo > hi {
		return nil
	}

	if !idx.params.Loaded() {
		start := lowerBoundFull(idx.data, lo)
		end := upperBoundFull(idx.data, hi)
		return append([]K(nil), idx.data[start:end]...)
	}

	elo, ehi := idx.envelope(lo)
	start, hit := boundedLowerBound(idx.data, elo, ehi, lo)
	if !hit {
		start = lowerBoundFull(idx.data, lo)
	}
	if start >= n {
		return nil
	}

	_, ehi2 := idx.envelope(hi)
	if ehi2 < start {
		ehi2 = n - 1
	}
	end, hit := boundedUpperBound(idx.data, start, ehi2, hi)
	if !hit {
		end = upperBoundFull(idx.data, hi)
	}

	return append([]K(nil), idx.data[start:end]...)
}

// MemoryUsage estimates the index's footprint in bytes: the data array at
// its declared capacity plus the model parameters, which are small and
// fixed-size per stage-2 entry.
func (idx *Index[K]) MemoryUsage() int64 {
	size := int64(cap(idx.data)) * elementOverheadBytes
	size += int64(cap(idx.params.Stage2)) * 32 // two float64 + two int
	return size
}
