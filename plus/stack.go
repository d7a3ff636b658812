package plus

import (
	"github.com/deepsea-inria/cactus-stack/cerr"
	"github.com/deepsea-inria/cactus-stack/chunkstore"
)

// Stack is a Plus cactus-stack descriptor. See basic.Stack for the
// rationale behind representing the nursery as (spChunk, spIndex,
// spLimit) instead of raw sp/lp pointers.
type Stack struct {
	store *chunkstore.Store

	fp *frame

	spChunk *chunkstore.Chunk[frame]
	spIndex int
	spLimit int

	mhd, mtl *frame
}

// CreateStack returns a new, empty stack descriptor backed by store.
func CreateStack(store *chunkstore.Store) Stack {
	return Stack{store: store}
}

// CreateStackWithRoot returns a stack with a single root frame already
// pushed and flagged Indirect. The root joins the mark chain only if its
// mark_of value holds, exactly as for any PushBack; it is not forced onto
// the chain. This mirrors the original's two-argument
// create_stack overload, used to seed the bottommost frame of a stack
// that another descriptor may come to share a chunk with.
func CreateStackWithRoot[T any](store *chunkstore.Store, ty LinkType, init func(*T), isSplittable func(*T) bool) (Stack, error) {
	s, err := PushBack(CreateStack(store), ty, init, isSplittable)
	if err != nil {
		return s, err
	}

	s.fp.sft = Indirect

	return s, nil
}

// Empty reports whether the call chain has no frames.
func Empty(s Stack) bool { return s.fp == nil }

// EmptyMark reports whether the mark chain has no frames.
func EmptyMark(s Stack) bool { return s.mhd == nil }

// PushBack allocates a new frame of type T on top of s. isSplittable, if
// non-nil, is bound to the new frame's payload and consulted both now
// (to decide mark-chain membership and this frame's own llt relative to
// its predecessor's splittability) and later, whenever a child frame or
// UpdateMarkStack needs to know whether this frame is still splittable.
func PushBack[T any](s Stack, link LinkType, init func(*T), isSplittable func(*T) bool) (Stack, error) {
	t := s

	chunk := s.spChunk
	idx := s.spIndex
	limit := s.spLimit
	if chunk == nil || idx >= limit {
		savedSP, savedLP := 0, 0
		if chunk != nil {
			savedSP, savedLP = idx, limit
		}

		newChunk, err := chunkstore.NewChunk[frame](s.store, savedSP, savedLP)
		if err != nil {
			return s, err
		}

		// The original asserts b + header <= K, rejecting a payload too
		// large for its chunk. A Go frame always stores its payload
		// boxed (any, holding *T) rather than inline at a byte offset,
		// so a chunk's capacity never depends on T's size and that
		// assertion has nothing to check here: chunkstore.FramesPerChunk
		// guarantees at least one slot for any configured lg_K.
		chunk = newChunk
		idx = 0
		limit = chunk.Capacity()
	}

	obj := new(T)
	init(obj)

	pred := s.fp

	llt := LoopNone
	if pred != nil && pred.isSplittable != nil && pred.isSplittable() {
		llt = LoopChild
	}

	var bound func() bool
	if isSplittable != nil {
		bound = func() bool { return isSplittable(obj) }
	}

	fr := chunk.At(idx)
	*fr = frame{
		chunk:        chunk,
		slot:         idx,
		pred:         pred,
		clt:          link,
		llt:          llt,
		sft:          Direct,
		payload:      obj,
		isSplittable: bound,
	}

	t.fp = fr
	t.spChunk = chunk
	t.spIndex = idx + 1
	t.spLimit = limit

	t = tryPushMarkBack(t, fr)

	return t, nil
}

// BackView is the read/write view peek_back exposes in the Plus variant:
// the payload plus the shared-frame and call-link tags the caller needs
// to tell direct frames from those whose state lives in an external
// cell.
type BackView[T any] struct {
	Payload *T
	Shared  SharedFrame
	Link    LinkType
}

// PeekBack returns a view of the top frame without modifying s.
func PeekBack[T any](s Stack) BackView[T] {
	if Empty(s) {
		cerr.Invariant("peek_back called on an empty stack")
	}

	obj, ok := s.fp.payload.(*T)
	if !ok {
		cerr.Invariant("peek_back type mismatch: frame payload is not %T", obj)
	}

	return BackView[T]{Payload: obj, Shared: s.fp.sft, Link: s.fp.clt}
}

// MarkView is the view peek_mark exposes: the mark-chain head together
// with its call-chain predecessor, the continuation a successful steal
// resumes into.
type MarkView[TSucc, TPred any] struct {
	Succ       *TSucc
	SuccShared SharedFrame
	SuccLink   LinkType
	Pred       *TPred
	PredShared SharedFrame
}

// PeekMark returns a view of the mark-chain head and its predecessor.
func PeekMark[TSucc, TPred any](s Stack) MarkView[TSucc, TPred] {
	if EmptyMark(s) {
		cerr.Invariant("peek_mark called on an empty mark chain")
	}

	succ, ok := s.mhd.payload.(*TSucc)
	if !ok {
		cerr.Invariant("peek_mark type mismatch: mark-chain head payload is not %T", succ)
	}

	view := MarkView[TSucc, TPred]{
		Succ:       succ,
		SuccShared: s.mhd.sft,
		SuccLink:   s.mhd.clt,
		PredShared: Direct,
	}

	if s.mhd.pred != nil {
		pred, ok := s.mhd.pred.payload.(*TPred)
		if !ok {
			cerr.Invariant("peek_mark type mismatch: mark-chain head predecessor payload is not %T", pred)
		}

		view.Pred = pred
		view.PredShared = s.mhd.pred.sft
	}

	return view
}

// PopBack removes the top frame of s, calling destruct with its payload
// and shared-frame tag, then reevaluates the mark-chain tail (updateBack)
// since the frame beneath the popped one may now be a stale mark.
func PopBack[T any](s Stack, destruct func(*T, SharedFrame)) Stack {
	if Empty(s) {
		cerr.Invariant("pop_back called on an empty stack")
	}

	fr := s.fp

	obj, ok := fr.payload.(*T)
	if !ok {
		cerr.Invariant("pop_back type mismatch: frame payload is not %T", obj)
	}

	destruct(obj, fr.sft)

	t := s

	if t.mtl == t.fp {
		t = popMarkBack(t)
	}

	t.fp = fr.pred

	poppedChunk := fr.chunk
	if t.fp != nil && t.fp.chunk == poppedChunk {
		t.spChunk = poppedChunk
		t.spIndex = fr.slot
		t.spLimit = s.spLimit
	} else {
		poppedChunk.Decref()

		if t.fp != nil {
			t.spChunk = t.fp.chunk
			t.spIndex = poppedChunk.SavedSP()
			t.spLimit = poppedChunk.SavedLP()
		} else {
			t.spChunk = nil
			t.spIndex = 0
			t.spLimit = 0
		}
	}

	return updateBack(t)
}
