package plus

import (
	"testing"

	"github.com/deepsea-inria/cactus-stack/chunkstore"
)

type loopFrame struct {
	id      int
	nbIters int
}

func loopSplittable(f *loopFrame) bool { return f.nbIters >= 2 }

type rootFrame struct{ id int }

func notSplittable[T any](*T) bool { return false }

// TestSplitOnSplittableLoop checks SplitMark on a stack whose mark chain
// head is a splittable loop frame: the loop frame stays with s1 while
// its mark-chain successor becomes the root of s2.
func TestSplitOnSplittableLoop(t *testing.T) {
	store := chunkstore.NewStore()
	s := CreateStack(store)

	var err error

	s, err = PushBack(s, Sync, func(f *rootFrame) { f.id = 1 }, notSplittable[rootFrame])
	if err != nil {
		t.Fatal(err)
	}

	s, err = PushBack(s, Sync, func(f *loopFrame) { f.id = 2; f.nbIters = 10 }, loopSplittable)
	if err != nil {
		t.Fatal(err)
	}

	if EmptyMark(s) {
		t.Fatalf("a loop frame with nb_iters=10 must be on the mark chain")
	}

	// split_mark needs a second marked frame to split at; push an async
	// frame on top of the loop frame so split_mark has a mark-chain
	// successor to work with.
	s, err = PushBack(s, Async, func(f *rootFrame) { f.id = 3 }, notSplittable[rootFrame])
	if err != nil {
		t.Fatal(err)
	}

	if len(MarkedFrames(s)) != 2 {
		t.Fatalf("expected 2 marked frames before split, got %d", len(MarkedFrames(s)))
	}

	s1, s2 := SplitMark(s)

	f1 := Frames(s1)
	if len(f1) != 2 {
		t.Fatalf("s1 frame count = %d, want 2 (root and loop frame)", len(f1))
	}

	if f1[1].(*loopFrame).id != 2 {
		t.Fatalf("s1's top frame should be the loop frame")
	}

	f2 := Frames(s2)
	if len(f2) != 1 || f2[0].(*rootFrame).id != 3 {
		t.Fatalf("s2's frame should be the async frame pushed after the loop")
	}

	// The caller-side partition of nb_iters is a scheduler concern; the
	// core only guarantees linkage/marks/refcounts survive the split.
	if len(MarkedFrames(s1)) != 1 || len(MarkedFrames(s2)) != 1 {
		t.Fatalf("each half should retain exactly one marked frame")
	}
}

// TestNonSplittableLoopNeverMarked checks that a loop frame whose
// is_splittable predicate is false at push time never lands on the mark
// chain in the first place.
func TestNonSplittableLoopNeverMarked(t *testing.T) {
	store := chunkstore.NewStore()
	s := CreateStack(store)

	s, err := PushBack(s, Sync, func(f *loopFrame) { f.id = 1; f.nbIters = 1 }, loopSplittable)
	if err != nil {
		t.Fatal(err)
	}

	if !EmptyMark(s) {
		t.Fatalf("a loop frame with nb_iters=1 must not be on the mark chain")
	}
}

func TestForkAtOnlyMarkSetsConsistentTail(t *testing.T) {
	store := chunkstore.NewStore()
	s := CreateStack(store)

	var err error

	s, err = PushBack(s, Sync, func(f *rootFrame) { f.id = 1 }, notSplittable[rootFrame])
	if err != nil {
		t.Fatal(err)
	}

	s, err = PushBack(s, Async, func(f *rootFrame) { f.id = 2 }, notSplittable[rootFrame])
	if err != nil {
		t.Fatal(err)
	}

	s1, s2 := ForkMark(s)

	if !EmptyMark(s1) || s1.mtl != nil {
		t.Fatalf("s1's mark chain (head and tail) should be empty when S.mhd == pf2")
	}

	if len(Frames(s2)) != 1 {
		t.Fatalf("s2 should contain exactly the forked-off frame")
	}
}

func TestForkMarkTailConsistency(t *testing.T) {
	store := chunkstore.NewStore()
	s := CreateStack(store)

	var err error

	// Push an async root so S.mhd.pred == nil on the first fork, then a
	// second async frame to give fork_mark a pf2 to cut at, leaving a
	// single-element mark chain in s1 where mhd must equal mtl.
	s, err = PushBack(s, Async, func(f *rootFrame) { f.id = 1 }, notSplittable[rootFrame])
	if err != nil {
		t.Fatal(err)
	}

	s, err = PushBack(s, Async, func(f *rootFrame) { f.id = 2 }, notSplittable[rootFrame])
	if err != nil {
		t.Fatal(err)
	}

	s1, _ := ForkMark(s)

	if s1.mhd == nil {
		t.Fatalf("s1 should retain the original root on its mark chain")
	}

	if s1.mhd != s1.mtl {
		t.Fatalf("a single-element mark chain must have mhd == mtl")
	}
}
