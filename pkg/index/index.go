// Package index exposes the five engines in this module behind one
// uniform façade: a tagged-variant Index that every backend implements,
// plus optional capability interfaces (Inserter, Deleter) that only some
// backends satisfy. Callers that want to compare engines side by side
// construct one Index per Kind and drive them all through the same
// interface rather than importing each engine package directly.
package index

import (
	"fmt"

	"github.com/indexlab/learnedindex/pkg/bptree"
	"github.com/indexlab/learnedindex/pkg/btree"
	"github.com/indexlab/learnedindex/pkg/fitingtree"
	"github.com/indexlab/learnedindex/pkg/key"
	"github.com/indexlab/learnedindex/pkg/radixspline"
	"github.com/indexlab/learnedindex/pkg/rmi"
)

// Kind identifies one of the five index engines.
type Kind string

const (
	KindBTree       Kind = "btree"
	KindBPlusTree   Kind = "bptree"
	KindRMI         Kind = "rmi"
	KindFITingTree  Kind = "fitingtree"
	KindRadixSpline Kind = "radixspline"
)

// Index is the common contract every engine satisfies: build once, then
// query repeatedly.
type Index[K key.Unsigned] interface {
	Kind() Kind
	Build(keys []K)
	Lookup(k K) (pos int, found bool)
	RangeQuery(lo, hi K) []K
	MemoryUsage() int64
}

// Inserter is implemented by engines that support incremental insertion
// after the initial build (C1, C2, C4).
type Inserter[K key.Unsigned] interface {
	Insert(k K)
}

// Deleter is implemented by engines that support deletion (C1 only).
type Deleter[K key.Unsigned] interface {
	Delete(k K)
}

// Params configures engine construction. Only the fields relevant to the
// requested Kind are consulted; the rest are ignored.
type Params struct {
	BTreeOrder           int
	BPlusTreeOrder       int
	FITingTreeEpsilon    int
	FITingTreeInsertMode fitingtree.InsertMode
	RadixSplineRadixBits int
	RMIModelPath         string
}

// New constructs an empty Index of the given kind. An unrecognized kind
// returns an error rather than a nil Index.
func New[K key.Unsigned](kind Kind, p Params) (Index[K], error) {
	switch kind {
	case KindBTree:
		return &btreeIndex[K]{tree: btree.New[K](p.BTreeOrder)}, nil
	case KindBPlusTree:
		return &bptreeIndex[K]{tree: bptree.New[K](p.BPlusTreeOrder)}, nil
	case KindRMI:
		idx := rmi.New[K]()
		if p.RMIModelPath != "" {
			if err := idx.LoadModelFile(p.RMIModelPath); err != nil {
				return nil, fmt.Errorf("loading RMI model: %w", err)
			}
		}
		return &rmiIndex[K]{idx: idx}, nil
	case KindFITingTree:
		return &fitingTreeIndex[K]{tree: fitingtree.New[K](p.FITingTreeEpsilon, p.FITingTreeInsertMode)}, nil
	case KindRadixSpline:
		return &radixSplineIndex[K]{idx: radixspline.New[K](p.RadixSplineRadixBits)}, nil
	default:
		return nil, fmt.Errorf("index: unknown kind %q", kind)
	}
}

type btreeIndex[K key.Unsigned] struct {
	tree *btree.Tree[K]
}

func (b *btreeIndex[K]) Kind() Kind    { return KindBTree }
func (b *btreeIndex[K]) Build(keys []K) {
	for _, k := range keys {
		b.tree.Insert(k)
	}
}
func (b *btreeIndex[K]) Lookup(k K) (int, bool) {
	return 0, b.tree.Search(k)
}
func (b *btreeIndex[K]) RangeQuery(lo, hi K) []K { return b.tree.RangeSearch(lo, hi) }
func (b *btreeIndex[K]) MemoryUsage() int64      { return b.tree.MemoryUsage() }
func (b *btreeIndex[K]) Insert(k K)              { b.tree.Insert(k) }
func (b *btreeIndex[K]) Delete(k K)              { b.tree.Remove(k) }

type bptreeIndex[K key.Unsigned] struct {
	tree *bptree.Tree[K]
}

func (b *bptreeIndex[K]) Kind() Kind { return KindBPlusTree }
func (b *bptreeIndex[K]) Build(keys []K) {
	for _, k := range keys {
		b.tree.Insert(k)
	}
}
func (b *bptreeIndex[K]) Lookup(k K) (int, bool) {
	return 0, b.tree.Search(k)
}
func (b *bptreeIndex[K]) RangeQuery(lo, hi K) []K { return b.tree.RangeQuery(lo, hi) }
func (b *bptreeIndex[K]) MemoryUsage() int64      { return b.tree.MemoryUsage() }
func (b *bptreeIndex[K]) Insert(k K)              { b.tree.Insert(k) }

type rmiIndex[K key.Unsigned] struct {
	idx *rmi.Index[K]
}

func (r *rmiIndex[K]) Kind() Kind               { return KindRMI }
func (r *rmiIndex[K]) Build(keys []K)           { r.idx.Build(keys) }
func (r *rmiIndex[K]) Lookup(k K) (int, bool)   { return r.idx.Lookup(k) }
func (r *rmiIndex[K]) RangeQuery(lo, hi K) []K  { return r.idx.RangeQuery(lo, hi) }
func (r *rmiIndex[K]) MemoryUsage() int64       { return r.idx.MemoryUsage() }

type fitingTreeIndex[K key.Unsigned] struct {
	tree *fitingtree.Tree[K]
}

func (f *fitingTreeIndex[K]) Kind() Kind             { return KindFITingTree }
func (f *fitingTreeIndex[K]) Build(keys []K)         { f.tree.Build(keys) }
func (f *fitingTreeIndex[K]) Lookup(k K) (int, bool) { return f.tree.Lookup(k) }
func (f *fitingTreeIndex[K]) RangeQuery(lo, hi K) []K { return f.tree.RangeQuery(lo, hi) }
func (f *fitingTreeIndex[K]) MemoryUsage() int64      { return f.tree.MemoryUsage() }
func (f *fitingTreeIndex[K]) Insert(k K)              { f.tree.Insert(k) }

type radixSplineIndex[K key.Unsigned] struct {
	idx *radixspline.Index[K]
}

func (r *radixSplineIndex[K]) Kind() Kind             { return KindRadixSpline }
func (r *radixSplineIndex[K]) Build(keys []K)         { r.idx.Build(keys) }
func (r *radixSplineIndex[K]) Lookup(k K) (int, bool) { return r.idx.Lookup(k) }
func (r *radixSplineIndex[K]) RangeQuery(lo, hi K) []K { return r.idx.RangeQuery(lo, hi) }
func (r *radixSplineIndex[K]) MemoryUsage() int64      { return r.idx.MemoryUsage() }

// AllKinds lists every engine kind, in the dependency order described by
// the module layout (simplest structural engine first).
func AllKinds() []Kind {
	return []Kind{KindBTree, KindBPlusTree, KindRMI, KindFITingTree, KindRadixSpline}
}
