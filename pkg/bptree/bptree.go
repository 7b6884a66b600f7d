// Package bptree implements an in-memory B+-Tree over ordered unsigned
// integer keys: keys live only in leaves, internal nodes hold separator
// keys, and leaves are linked left-to-right for fast range scans.
//
// Splitting is implemented as a recursive descent that returns a promoted
// separator key and the newly created right sibling to its caller, rather
// than threading parent pointers through the node graph: the call stack
// already holds every ancestor during an insert, so there is nothing for a
// parent link to buy us and one fewer invariant to keep consistent.
//
// The tree is single-threaded and non-reentrant, like every engine in this
// module: build, Insert, and the read operations must not overlap in time.
package bptree

import "github.com/indexlab/learnedindex/pkg/key"

// DefaultOrder is used when a caller supplies an order below the minimum
// of 3. A node holds at most 2*order-1 keys.
const DefaultOrder = 4

const nodeOverheadBytes = 48 // struct + two slice headers + next pointer
const wordBytes = 8

// node is either an internal node (isLeaf == false, keys are separators,
// children has len(keys)+1 entries) or a leaf (isLeaf == true, keys are
// the actual data, next links to the following leaf in key order).
type node[K key.Unsigned] struct {
	isLeaf   bool
	keys     []K
	children []*node[K]
	next     *node[K]
}

// Tree is a B+-Tree keyed on an unsigned integer domain.
type Tree[K key.Unsigned] struct {
	root  *node[K]
	order int
}

// New creates an empty B+-Tree with the given order. Orders below 3 fall
// back to DefaultOrder.
func New[K key.Unsigned](order int) *Tree[K] {
	if order < 3 {
		order = DefaultOrder
	}
	return &Tree[K]{
		root:  &node[K]{isLeaf: true},
		order: order,
	}
}

// findChildIndex returns the index of the child to descend into for a
// search key: the leftmost child whose separator exceeds k, i.e. the
// navigation rule "key >= separator selects the right child".
func findChildIndex[K key.Unsigned](separators []K, k K) int {
	for i, sep := range separators {
		if k < sep {
			return i
		}
	}
	return len(separators)
}

// Search performs a point lookup, descending to the candidate leaf and
// scanning its keys.
func (t *Tree[K]) Search(k K) bool {
	n := t.root
	for !n.isLeaf {
		n = n.children[findChildIndex(n.keys, k)]
	}
	for _, kk := range n.keys {
		if kk == k {
			return true
		}
	}
	return false
}

// RangeQuery returns, in ascending order, every key in [lo, hi]. It finds
// the starting leaf via descent, then follows the leaf chain, emitting
// qualifying keys until a key exceeding hi is seen. Returns nil if
// lo > hi.
func (t *Tree[K]) RangeQuery(lo, hi K) []K {
	var out []K
	if lo > hi {
		return out
	}
	n := t.root
	for !n.isLeaf {
		n = n.children[findChildIndex(n.keys, lo)]
	}
	for n != nil {
		for _, k := range n.keys {
			if k > hi {
				return out
			}
			if k >= lo {
				out = append(out, k)
			}
		}
		n = n.next
	}
	return out
}

// splitInfo carries a promoted separator key and the freshly created right
// sibling back up the recursive insert call chain.
type splitInfo[K key.Unsigned] struct {
	key   K
	right *node[K]
}

// Insert adds k to the tree. Duplicates that already exist in a leaf are
// silently ignored rather than re-inserted.
func (t *Tree[K]) Insert(k K) {
	split, duplicate := t.insert(t.root, k)
	if duplicate {
		return
	}
	if split != nil {
		t.root = &node[K]{
			isLeaf:   false,
			keys:     []K{split.key},
			children: []*node[K]{t.root, split.right},
		}
	}
}

func (t *Tree[K]) insert(n *node[K], k K) (split *splitInfo[K], duplicate bool) {
	if n.isLeaf {
		idx := 0
		for idx < len(n.keys) && k > n.keys[idx] {
			idx++
		}
		if idx < len(n.keys) && n.keys[idx] == k {
			return nil, true
		}
		n.keys = insertAt(n.keys, idx, k)
		if len(n.keys) <= 2*t.order-1 {
			return nil, false
		}
		return t.splitLeaf(n), false
	}

	idx := findChildIndex(n.keys, k)
	childSplit, dup := t.insert(n.children[idx], k)
	if dup || childSplit == nil {
		return nil, dup
	}

	n.keys = insertAt(n.keys, idx, childSplit.key)
	n.children = insertChildAt(n.children, idx+1, childSplit.right)
	if len(n.keys) <= 2*t.order-1 {
		return nil, false
	}
	return t.splitInternal(n), false
}

// splitLeaf divides an overflowed leaf in half. The new right leaf inherits
// the upper half and is spliced into the leaf chain; its first key (a copy,
// not a move) becomes the separator promoted to the parent.
func (t *Tree[K]) splitLeaf(n *node[K]) *splitInfo[K] {
	mid := t.order
	right := &node[K]{
		isLeaf: true,
		keys:   append([]K{}, n.keys[mid:]...),
		next:   n.next,
	}
	n.keys = n.keys[:mid]
	n.next = right
	return &splitInfo[K]{key: right.keys[0], right: right}
}

// splitInternal divides an overflowed internal node. Unlike a leaf split,
// the median key is moved up rather than copied: it no longer separates
// two children of this node once promoted.
func (t *Tree[K]) splitInternal(n *node[K]) *splitInfo[K] {
	mid := t.order
	promoted := n.keys[mid]

	right := &node[K]{isLeaf: false}
	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	return &splitInfo[K]{key: promoted, right: right}
}

// MemoryUsage estimates the tree's footprint in bytes using declared
// vector capacities rather than live lengths, summed recursively over
// every node reachable from the root.
func (t *Tree[K]) MemoryUsage() int64 {
	return memUsage(t.root)
}

func memUsage[K key.Unsigned](n *node[K]) int64 {
	if n == nil {
		return 0
	}
	size := int64(nodeOverheadBytes) + int64(cap(n.keys))*wordBytes
	if n.isLeaf {
		return size
	}
	size += int64(cap(n.children)) * wordBytes
	for _, c := range n.children {
		size += memUsage(c)
	}
	return size
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

func insertChildAt[K key.Unsigned](s []*node[K], i int, v *node[K]) []*node[K] {
	s = append(s, nil)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}
