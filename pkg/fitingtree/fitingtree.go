// Package fitingtree implements a FITing-Tree: a piecewise-linear index
// over a sorted, in-memory key array. The array is partitioned into
// segments, each a linear model (slope, intercept) trained to predict a
// key's position within a bounded residual (epsilon); segments are
// indexed by start key in a companion pkg/btree instance so that locating
// the segment owning a query key is itself a tree search rather than a
// linear scan.
//
// Two insertion modes are supported: in-place (which shifts segment
// boundaries and occasionally rebuilds) and delta-buffered (which stages
// inserts per segment and spills them in batches). An in-place shift does
// not re-verify the per-segment error bound it may have just violated;
// the doubling check in insertInPlace is the only mitigation.
package fitingtree

import (
	"math"
	"sort"

	"github.com/indexlab/learnedindex/pkg/btree"
	"github.com/indexlab/learnedindex/pkg/key"
)

// DefaultEpsilon bounds the maximum absolute residual, in index positions,
// a segment's linear model may accumulate before it is closed off.
const DefaultEpsilon = 32

// DefaultDeltaCapacity is the number of staged inserts a per-segment delta
// buffer accepts before it spills.
const DefaultDeltaCapacity = 64

// InsertMode selects how Insert incorporates a new key.
type InsertMode int

const (
	// InPlace inserts directly into the backing array and shifts segment
	// boundaries, occasionally triggering a rebuild.
	InPlace InsertMode = iota
	// DeltaBuffered stages inserts per segment and spills them in batches.
	DeltaBuffered
)

// Segment is a single piecewise-linear model covering D[StartPos:EndPos+1].
type Segment[K key.Unsigned] struct {
	StartKey     K
	Slope        float64
	Intercept    float64
	MaxError     int
	StartPos     int
	EndPos       int
	originalSpan int
}

// Tree is a FITing-Tree over an unsigned integer key domain.
type Tree[K key.Unsigned] struct {
	data    []K
	epsilon int

	segments      []Segment[K]
	companion     *btree.Tree[K]
	startKeyToSeg map[K]int

	mode          InsertMode
	deltaCapacity int
	deltaBuffers  [][]K
	deltaTotal    int
}

// New creates an empty FITing-Tree. epsilon <= 0 falls back to
// DefaultEpsilon.
func New[K key.Unsigned](epsilon int, mode InsertMode) *Tree[K] {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Tree[K]{
		epsilon:       epsilon,
		mode:          mode,
		deltaCapacity: DefaultDeltaCapacity,
	}
}

// Build replaces the indexed data with a sorted, deduplicated copy of keys
// and recomputes every segment.
func (t *Tree[K]) Build(keys []K) {
	cp := append([]K(nil), keys...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:0]
	for i, k := range cp {
		if i == 0 || k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	t.data = out
	t.rebuildSegments()
}

// Len returns the number of indexed keys.
func (t *Tree[K]) Len() int { return len(t.data) }

// NumSegments returns the number of PLA segments currently covering D.
func (t *Tree[K]) NumSegments() int { return len(t.segments) }

// rebuildSegments recomputes every segment from t.data and rebuilds the
// companion B-Tree and start-key index from scratch. Any keys still
// staged in a delta buffer are re-homed against the new segment layout
// rather than discarded, since a rebuild may be triggered by one
// segment's overflow while unrelated segments still have pending inserts.
func (t *Tree[K]) rebuildSegments() {
	var pending []K
	for _, buf := range t.deltaBuffers {
		pending = append(pending, buf...)
	}

	t.segments = buildSegments(t.data, t.epsilon)

	t.companion = btree.New[K](btree.DefaultOrder)
	t.startKeyToSeg = make(map[K]int, len(t.segments))
	for i, s := range t.segments {
		t.companion.Insert(s.StartKey)
		t.startKeyToSeg[s.StartKey] = i
	}

	t.deltaBuffers = make([][]K, len(t.segments))
	t.deltaTotal = 0
	for _, k := range pending {
		segIdx := t.findSegmentIndex(k)
		buf := t.deltaBuffers[segIdx]
		idx := sort.Search(len(buf), func(i int) bool { return buf[i] >= k })
		t.deltaBuffers[segIdx] = insertAt(buf, idx, k)
		t.deltaTotal++
	}
}

// buildSegments walks D left to right, incrementally fitting a
// least-squares line over the run of points (D[j], j) starting at the
// current segment's first position. After each tentative extension it
// rescans every point the candidate segment would cover; if the maximum
// absolute residual exceeds epsilon, the extension is rejected and the
// segment is closed at the previous position.
func buildSegments[K key.Unsigned](data []K, epsilon int) []Segment[K] {
	n := len(data)
	if n == 0 {
		return nil
	}

	var segments []Segment[K]
	start := 0
	for start < n {
		var sumX, sumY, sumX2, sumXY float64
		addPoint := func(x, y float64) {
			sumX += x
			sumY += y
			sumX2 += x * x
			sumXY += x * y
		}

		addPoint(float64(data[start]), float64(start))
		slope, intercept := 0.0, float64(start)
		maxResidual := 0.0
		end := start
		count := 1.0

		for j := start + 1; j < n; j++ {
			addPoint(float64(data[j]), float64(j))
			count++
			candidateSlope, candidateIntercept := leastSquares(sumX, sumY, sumX2, sumXY, count)

			residual := 0.0
			for k := start; k <= j; k++ {
				pred := candidateSlope*float64(data[k]) + candidateIntercept
				if r := math.Abs(pred - float64(k)); r > residual {
					residual = r
				}
			}

			if residual > float64(epsilon) {
				sumX -= float64(data[j])
				sumY -= float64(j)
				sumX2 -= float64(data[j]) * float64(data[j])
				sumXY -= float64(data[j]) * float64(j)
				count--
				break
			}

			slope, intercept = candidateSlope, candidateIntercept
			maxResidual = residual
			end = j
		}

		span := end - start + 1
		segments = append(segments, Segment[K]{
			StartKey:     data[start],
			Slope:        slope,
			Intercept:    intercept,
			MaxError:     int(math.Ceil(maxResidual)),
			StartPos:     start,
			EndPos:       end,
			originalSpan: span,
		})
		start = end + 1
	}
	return segments
}

// leastSquares fits y = slope*x + intercept to n points given their
// running sums. A single point yields a slope-0 line through it.
func leastSquares(sumX, sumY, sumX2, sumXY, n float64) (slope, intercept float64) {
	if n < 2 {
		return 0, sumY
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// findSegmentIndex locates the segment covering key k: the segment whose
// start key is the largest value <= k. If k is below every segment's
// start key, segment 0 owns it.
func (t *Tree[K]) findSegmentIndex(k K) int {
	if len(t.segments) == 0 {
		return 0
	}
	starts := t.companion.RangeSearch(0, k)
	if len(starts) == 0 {
		return 0
	}
	owner := starts[len(starts)-1]
	return t.startKeyToSeg[owner]
}

// envelope returns the inclusive index range a segment's model predicts
// for key k, clamped to the segment's own covered range.
func (s Segment[K]) envelope(k K) (lo, hi int) {
	phat := int(math.Round(s.Slope*float64(k) + s.Intercept))
	lo = phat - s.MaxError
	hi = phat + s.MaxError
	if lo < s.StartPos {
		lo = s.StartPos
	}
	if lo > s.EndPos {
		lo = s.EndPos
	}
	if hi > s.EndPos {
		hi = s.EndPos
	}
	if hi < s.StartPos {
		hi = s.StartPos
	}
	return lo, hi
}

// Lookup reports whether k is present and, if so, its position in the
// backing array. A key staged in a delta buffer but not yet spilled is
// reported present with an undefined position (-1), since it has not
// been assigned a place in the backing array yet.
func (t *Tree[K]) Lookup(k K) (pos int, found bool) {
	if len(t.data) == 0 {
		return 0, false
	}
	segIdx := t.findSegmentIndex(k)

	if buf := t.deltaBuffers[segIdx]; len(buf) > 0 {
		i := sort.Search(len(buf), func(i int) bool { return buf[i] >= k })
		if i < len(buf) && buf[i] == k {
			return -1, true
		}
	}

	seg := t.segments[segIdx]
	lo, hi := seg.envelope(k)
	idx := lowerBound(t.data, lo, hi, k)
	if idx <= hi && idx < len(t.data) && t.data[idx] == k {
		return idx, true
	}
	return 0, false
}

// RangeQuery returns, in ascending order, every indexed key in [lo, hi].
// It walks the segments from findSegmentIndex(lo) through
// findSegmentIndex(hi), clipping each segment's key coverage to the
// requested window and to its right neighbor's start key, and collects
// the matching positions via bounded binary search in each segment's
// envelope. Keys still staged in a delta buffer are not included: only
// keys already in the backing array are returned.
func (t *Tree[K]) RangeQuery(lo, hi K) []K {
	var out []K
	if len(t.data) == 0 || lo > hi {
		return out
	}

	segLo := t.findSegmentIndex(lo)
	segHi := t.findSegmentIndex(hi)

	for s := segLo; s <= segHi; s++ {
		seg := t.segments[s]

		windowLo := lo
		if seg.StartKey > windowLo {
			windowLo = seg.StartKey
		}
		windowHi := hi
		if s+1 < len(t.segments) {
			nextStart := t.segments[s+1].StartKey
			if nextStart > 0 && nextStart-1 < windowHi {
				windowHi = nextStart - 1
			}
		}
		if windowLo > windowHi {
			continue
		}

		eloLo, eloHi := seg.envelope(windowLo)
		start := lowerBound(t.data, eloLo, eloHi, windowLo)
		if start > eloHi {
			start = eloHi + 1
		}

		ehiLo, ehiHi := seg.envelope(windowHi)
		if ehiLo < start {
			ehiLo = start
		}
		end := upperBound(t.data, ehiLo, ehiHi, windowHi)

		if start < 0 {
			start = 0
		}
		if end > len(t.data) {
			end = len(t.data)
		}
		if start < end {
			out = append(out, t.data[start:end]...)
		}
	}
	return out
}

func lowerBound[K key.Unsigned](data []K, lo, hi int, target K) int {
	l, h := lo, hi+1
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

func upperBound[K key.Unsigned](data []K, lo, hi int, target K) int {
	l, h := lo, hi+1
	for l < h {
		mid := l + (h-l)/2
		if data[mid] > target {
			h = mid
		} else {
			l = mid + 1
		}
	}
	return l
}

// Insert adds k to the index using the tree's configured insertion mode.
// It reports whether k was newly added (false if it was already present).
func (t *Tree[K]) Insert(k K) bool {
	if len(t.data) == 0 {
		t.data = []K{k}
		t.rebuildSegments()
		return true
	}
	switch t.mode {
	case DeltaBuffered:
		return t.insertDeltaBuffered(k)
	default:
		return t.insertInPlace(k)
	}
}

// insertInPlace locates k's segment, finds its insertion point by bounded
// binary search (falling back to a full search on an envelope miss),
// rejects duplicates, splices k into the backing array, shifts every
// segment boundary at or after the insertion point, and rebuilds if the
// affected segment's span has more than doubled.
func (t *Tree[K]) insertInPlace(k K) bool {
	segIdx := t.findSegmentIndex(k)
	seg := t.segments[segIdx]
	lo, hi := seg.envelope(k)
	pos := lowerBound(t.data, lo, hi, k)
	if pos > hi || pos >= len(t.data) || t.data[pos] != k {
		pos = lowerBoundFull(t.data, k)
	}
	if pos < len(t.data) && t.data[pos] == k {
		return false
	}

	t.data = insertAt(t.data, pos, k)
	t.shiftSegments(pos)

	seg = t.segments[segIdx]
	if seg.EndPos-seg.StartPos+1 > 2*seg.originalSpan {
		t.rebuildSegments()
	}
	return true
}

func (t *Tree[K]) shiftSegments(pos int) {
	for i := range t.segments {
		if t.segments[i].StartPos >= pos {
			t.segments[i].StartPos++
		}
		if t.segments[i].EndPos >= pos {
			t.segments[i].EndPos++
		}
	}
}

// insertDeltaBuffered stages k in its owning segment's delta buffer,
// spilling that buffer (and rebuilding) on overflow, and spilling every
// buffer globally once the aggregate staged size exceeds 10% of |D|.
func (t *Tree[K]) insertDeltaBuffered(k K) bool {
	if _, found := t.Lookup(k); found {
		return false
	}

	segIdx := t.findSegmentIndex(k)
	buf := t.deltaBuffers[segIdx]
	for _, existing := range buf {
		if existing == k {
			return false
		}
	}
	idx := sort.Search(len(buf), func(i int) bool { return buf[i] >= k })
	buf = insertAt(buf, idx, k)
	t.deltaBuffers[segIdx] = buf
	t.deltaTotal++

	if len(t.deltaBuffers[segIdx]) > t.deltaCapacity {
		t.spillSegment(segIdx)
		return true
	}
	if t.deltaTotal*10 > len(t.data) {
		t.spillAll()
	}
	return true
}

// spillSegment flushes one segment's delta buffer into the backing array
// via in-place inserts, then rebuilds every segment.
func (t *Tree[K]) spillSegment(segIdx int) {
	buf := t.deltaBuffers[segIdx]
	t.deltaBuffers[segIdx] = nil
	for _, k := range buf {
		t.insertInPlace(k)
	}
	t.deltaTotal -= len(buf)
	t.rebuildSegments()
}

// spillAll flushes every segment's delta buffer, then rebuilds once.
func (t *Tree[K]) spillAll() {
	var staged []K
	for i, buf := range t.deltaBuffers {
		staged = append(staged, buf...)
		t.deltaBuffers[i] = nil
	}
	sort.Slice(staged, func(i, j int) bool { return staged[i] < staged[j] })
	for _, k := range staged {
		t.insertInPlace(k)
	}
	t.deltaTotal = 0
	t.rebuildSegments()
}

func lowerBoundFull[K key.Unsigned](data []K, target K) int {
	return sort.Search(len(data), func(i int) bool { return data[i] >= target })
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

const (
	segmentOverheadBytes = 56
	elementOverheadBytes = 8
)

// MemoryUsage estimates the tree's footprint in bytes: the backing array
// at its declared capacity, the segment table, the companion B-Tree, and
// every pending delta buffer.
func (t *Tree[K]) MemoryUsage() int64 {
	size := int64(cap(t.data)) * elementOverheadBytes
	size += int64(cap(t.segments)) * segmentOverheadBytes
	if t.companion != nil {
		size += t.companion.MemoryUsage()
	}
	for _, buf := range t.deltaBuffers {
		size += int64(cap(buf)) * elementOverheadBytes
	}
	return size
}
