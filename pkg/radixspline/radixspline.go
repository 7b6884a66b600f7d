// Package radixspline implements a RadixSpline index: a radix table over
// key prefixes narrows a query to a small window of spline control
// points, and linear interpolation between the two bracketing points
// predicts a position, which is then confirmed (or refuted) by a bounded
// binary search.
//
// The control-point construction deliberately admits every change of key
// rather than enforcing any global error bound on the resulting spline;
// as a result, search windows derived from widely separated control
// points are not always tight. See the doc comment on SearchWindow for
// the consequence.
package radixspline

import (
	"sort"

	"github.com/indexlab/learnedindex/pkg/key"
)

// DefaultRadixBits is the default number of bits (r) used to size the
// radix table: 2^r buckets.
const DefaultRadixBits = 18

// point is a single (key, position) spline control point.
type point[K key.Unsigned] struct {
	x K
	y int
}

// Index is a RadixSpline over an unsigned integer key domain.
type Index[K key.Unsigned] struct {
	data []K

	minKey, maxKey K
	numKeys        int

	splinePoints []point[K]
	radixTable   []int
	radixBits    int
}

// New creates an empty RadixSpline. radixBits <= 0 falls back to
// DefaultRadixBits.
func New[K key.Unsigned](radixBits int) *Index[K] {
	if radixBits <= 0 {
		radixBits = DefaultRadixBits
	}
	return &Index[K]{radixBits: radixBits}
}

// Build replaces the indexed data with a sorted, deduplicated copy of
// keys, then derives the spline control points and radix table.
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
	idx.numKeys = len(out)

	if idx.numKeys == 0 {
		idx.splinePoints = nil
		idx.radixTable = nil
		return
	}

	idx.minKey = out[0]
	idx.maxKey = out[len(out)-1]
	idx.buildSplinePoints()
	idx.buildRadixTable()
}

// buildSplinePoints walks D, appending a control point for every position
// whose key differs from the last recorded point's key. This is the
// "admits every change of key" construction: it guarantees a control
// point exists at every distinct key, but does not bound the error of the
// linear interpolation between any two of them.
func (idx *Index[K]) buildSplinePoints() {
	points := []point[K]{{x: idx.minKey, y: 0}}
	for i, k := range idx.data {
		if k != points[len(points)-1].x {
			points = append(points, point[K]{x: k, y: i})
		}
	}
	last := &points[len(points)-1]
	if last.x != idx.maxKey || last.y != idx.numKeys-1 {
		points = append(points, point[K]{x: idx.maxKey, y: idx.numKeys - 1})
	}
	idx.splinePoints = points
}

// buildRadixTable partitions the key domain [minKey, maxKey] into
// 2^radixBits equal-width buckets. radixTable[b] is the index, within
// splinePoints, of the last control point whose key does not exceed
// bucket b's upper boundary; radixTable[numBuckets] is always the index
// of the final control point.
func (idx *Index[K]) buildRadixTable() {
	numBuckets := 1 << uint(idx.radixBits)
	table := make([]int, numBuckets+1)

	span := key.ToFloat64(idx.maxKey) - key.ToFloat64(idx.minKey)
	cursor := 0
	for b := 0; b < numBuckets; b++ {
		var boundary K
		if span <= 0 {
			boundary = idx.maxKey
		} else {
			frac := float64(b+1) / float64(numBuckets)
			boundary = idx.minKey + K(frac*span)
		}
		for cursor+1 < len(idx.splinePoints) && idx.splinePoints[cursor+1].x <= boundary {
			cursor++
		}
		table[b] = cursor
	}
	table[numBuckets] = len(idx.splinePoints) - 1
	idx.radixTable = table
}

// SearchWindow derives the [lo, hi) position window a query key k should
// be searched within: the radix table narrows k to a small run of spline
// points, interpolation between the bracketing pair predicts a position,
// and the window is that prediction padded by the pair's y-distance. When
// the spline does not capture a segment monotonically the padding can
// still miss the true position; Lookup and RangeQuery fall back to a full
// binary search whenever that happens.
func (idx *Index[K]) SearchWindow(k K) (lo, hi int) {
	if idx.numKeys == 0 {
		return 0, 0
	}
	if k <= idx.minKey {
		return 0, 1
	}
	if k >= idx.maxKey {
		return idx.numKeys - 1, idx.numKeys
	}

	numBuckets := 1 << uint(idx.radixBits)
	span := key.ToFloat64(idx.maxKey) - key.ToFloat64(idx.minKey)
	var radixIndex int
	if span <= 0 {
		radixIndex = 0
	} else {
		frac := (key.ToFloat64(k) - key.ToFloat64(idx.minKey)) / span
		radixIndex = clamp(int(frac*float64(numBuckets)), 0, numBuckets-1)
	}

	splineStart := idx.radixTable[radixIndex]
	splineEnd := idx.radixTable[radixIndex+1] + 1
	if splineEnd > len(idx.splinePoints)-1 {
		splineEnd = len(idx.splinePoints) - 1
	}
	if splineEnd < splineStart {
		splineEnd = splineStart
	}

	i := sort.Search(splineEnd-splineStart, func(j int) bool {
		return idx.splinePoints[splineStart+j].x > k
	})
	i += splineStart
	if i == 0 {
		i = 1
	}
	if i >= len(idx.splinePoints) {
		i = len(idx.splinePoints) - 1
	}

	p1 := idx.splinePoints[i-1]
	p2 := idx.splinePoints[i]

	dx := key.ToFloat64(k) - key.ToFloat64(p1.x)
	dy := float64(p2.y - p1.y)
	dxFull := key.ToFloat64(p2.x) - key.ToFloat64(p1.x)
	var phat float64
	if dxFull == 0 {
		phat = float64(p1.y)
	} else {
		phat = float64(p1.y) + dx*dy/dxFull
	}

	err := p2.y - p1.y
	if err < 0 {
		err = -err
	}

	lo = clamp(int(phat)-err, 0, idx.numKeys)
	hi = clamp(int(phat)+err+1, 0, idx.numKeys)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lookup reports whether k is present and, if so, its position.
func (idx *Index[K]) Lookup(k K) (pos int, found bool) {
	if idx.numKeys == 0 {
		return 0, false
	}
	lo, hi := idx.SearchWindow(k)
	if p, ok := binarySearchExact(idx.data, lo, hi, k); ok {
		return p, true
	}
	if p, ok := binarySearchExact(idx.data, 0, idx.numKeys, k); ok {
		return p, true
	}
	return 0, false
}

func binarySearchExact[K key.Unsigned](data []K, lo, hi int, target K) (int, bool) {
	l, h := lo, hi-1
	for l <= h {
		mid := l + (h-l)/2
		switch {
		case data[mid] == target:
			return mid, true
		case data[mid] < target:
			l = mid + 1
		default:
			h = mid - 1
		}
	}
	return 0, false
}

// RangeQuery returns, in ascending order, every indexed key in [lo, hi].
// It derives the search window for lo, locates the first qualifying key
// within it by lower_bound (falling back to a full-array search if the
// window misses), then iterates the backing array forward from there,
// emitting keys while they remain <= hi.
func (idx *Index[K]) RangeQuery(lo, hi K) []K {
	var out []K
	if idx.numKeys == 0 || lo > hi {
		return out
	}

	wlo, whi := idx.SearchWindow(lo)
	start := lowerBound(idx.data, wlo, whi, lo)
	if start >= idx.numKeys || idx.data[start] < lo || (start > 0 && idx.data[start-1] >= lo) {
		start = lowerBoundFull(idx.data, lo)
	}

	for i := start; i < idx.numKeys; i++ {
		if idx.data[i] > hi {
			break
		}
		out = append(out, idx.data[i])
	}
	return out
}

// lowerBound finds the first index in [lo, hi) with data[idx] >= target,
// or hi if none exists in that window.
func lowerBound[K key.Unsigned](data []K, lo, hi int, target K) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(data) {
		hi = len(data)
	}
	l, h := lo, hi
	for l < h {
		mid := l + (h-l)/2
		if data[mid] >= target {
			h = mid
		} else {
			l = mid + 1
		}
	}
	return l
}

func lowerBoundFull[K key.Unsigned](data []K, target K) int {
	return sort.Search(len(data), func(i int) bool { return data[i] >= target })
}

const elementOverheadBytes = 8
const splinePointOverheadBytes = 16
const radixEntryOverheadBytes = 8

// MemoryUsage estimates the index's footprint in bytes: the backing data
// array, the spline control points, and the radix table, all at their
// declared capacities.
func (idx *Index[K]) MemoryUsage() int64 {
	size := int64(cap(idx.data)) * elementOverheadBytes
	size += int64(cap(idx.splinePoints)) * splinePointOverheadBytes
	size += int64(cap(idx.radixTable)) * radixEntryOverheadBytes
	return size
}
