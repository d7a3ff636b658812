// Package plus implements the Plus cactus-stack variant: everything in
// basic, plus splittable loop frames and a shared/private frame
// distinction that together enable SplitMark, a mid-stack split of a
// running parallel loop.
package plus

import "github.com/deepsea-inria/cactus-stack/chunkstore"

// LinkType records how a frame was attached to its call-chain
// predecessor.
type LinkType uint8

const (
	Sync LinkType = iota
	Async
)

// LoopLink records whether a frame's predecessor is a splittable loop
// frame, making this frame eligible for the mark chain even when it is
// not itself Async.
type LoopLink uint8

const (
	LoopNone LoopLink = iota
	LoopChild
)

// SharedFrame distinguishes a frame whose shared state lives in the
// frame itself (Direct) from one whose shared state lives in an
// externally owned cell reached indirectly (Indirect) — e.g. the root
// frame of a freshly created stack, which some other descriptor may also
// reference.
type SharedFrame uint8

const (
	Direct SharedFrame = iota
	Indirect
)

type frame struct {
	chunk *chunkstore.Chunk[frame]
	slot  int

	pred *frame
	clt  LinkType
	llt  LoopLink
	sft  SharedFrame

	markPred *frame
	markSucc *frame

	payload any

	// isSplittable is bound, at push time, to the just-placed payload's
	// own splittability check. Storing the closure on the frame itself
	// (instead of threading an is_splittable_fn predicate through every
	// later operation, as the original C++ template parameter does)
	// means markOf never needs to recover the frame's concrete payload
	// type from outside — see DESIGN.md's "is-splittable predicate
	// redesign". nil for frames pushed without one.
	isSplittable func() bool
}

// markOf implements the Plus variant's mark predicate:
// mark_of(F) = (F.clt == Async) ∨ is_splittable(F) ∨ F.llt == LoopChild.
func markOf(f *frame) bool {
	if f.clt == Async {
		return true
	}

	if f.llt == LoopChild {
		return true
	}

	return f.isSplittable != nil && f.isSplittable()
}
