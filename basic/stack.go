package basic

import (
	"github.com/deepsea-inria/cactus-stack/cerr"
	"github.com/deepsea-inria/cactus-stack/chunkstore"
)

// Stack is an immutable-by-convention descriptor: every operation here
// takes a Stack by value and returns the Stack(s) that result, the same
// way the original's stack_type is passed and returned by value. Callers
// are expected to thread the returned value forward and stop using the
// input.
type Stack struct {
	store *chunkstore.Store

	fp *frame // top of the call chain, nil when empty

	// spChunk/spIndex/spLimit track this descriptor's private nursery:
	// spChunk is nil when there is no open nursery (forcing the next
	// PushBack to allocate a fresh chunk), otherwise spIndex is the next
	// free slot and spLimit is the exclusive bound on how far this
	// descriptor may bump-allocate into spChunk. spLimit equals
	// spChunk.Capacity() for an ordinary chunk, but can be pinned below
	// that by ForkMark to fence off a chunk shared with another
	// descriptor (see ForkMark).
	spChunk *chunkstore.Chunk[frame]
	spIndex int
	spLimit int

	mhd, mtl *frame // mark-chain head/tail, nil when the chain is empty
}

// CreateStack returns a new, empty stack descriptor backed by store.
// Two descriptors produced from ForkMark calls on stacks that share a
// store may share chunks; descriptors from different stores never do.
func CreateStack(store *chunkstore.Store) Stack {
	return Stack{store: store}
}

// Empty reports whether the call chain has no frames.
func Empty(s Stack) bool { return s.fp == nil }

// EmptyMark reports whether the mark chain has no frames.
func EmptyMark(s Stack) bool { return s.mhd == nil }

// PushBack allocates a new frame of type T on top of s, calling init to
// populate it in place, and links it onto the mark chain if link is
// Async. Returns the updated descriptor and an error only if the chunk
// allocator's budget is exhausted (chunkstore.WithMaxChunks); on error
// the returned Stack equals s unchanged.
func PushBack[T any](s Stack, link LinkType, init func(*T)) (Stack, error) {
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

	fr := chunk.At(idx)
	*fr = frame{
		chunk:   chunk,
		slot:    idx,
		pred:    s.fp,
		clt:     link,
		payload: obj,
	}

	t.fp = fr
	t.spChunk = chunk
	t.spIndex = idx + 1
	t.spLimit = limit

	if link == Async {
		t = pushMarkBack(t, fr)
	}

	return t, nil
}

// PopBack removes the top frame of s, calling destruct on its payload
// before the frame is discarded. Panics (via cerr.Invariant) if s is
// already empty or if T does not match the popped frame's payload type.
func PopBack[T any](s Stack, destruct func(*T)) Stack {
	if Empty(s) {
		cerr.Invariant("pop_back called on an empty stack")
	}

	fr := s.fp

	obj, ok := fr.payload.(*T)
	if !ok {
		cerr.Invariant("pop_back type mismatch: frame payload is not %T", obj)
	}

	destruct(obj)

	t := s

	if fr == s.mtl {
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

	return t
}

// PeekBack returns the payload of the top frame without modifying s.
func PeekBack[T any](s Stack) *T {
	if Empty(s) {
		cerr.Invariant("peek_back called on an empty stack")
	}

	obj, ok := s.fp.payload.(*T)
	if !ok {
		cerr.Invariant("peek_back type mismatch: frame payload is not %T", obj)
	}

	return obj
}

// PeekMark returns the payload of the mark-chain head (the oldest marked
// frame, i.e. the one a stealer would resume) together with the payload
// of its call-chain predecessor, if any. TSucc and TPred may be distinct
// types since the predecessor is not necessarily itself a marked frame.
func PeekMark[TSucc, TPred any](s Stack) (succ *TSucc, pred *TPred) {
	if EmptyMark(s) {
		cerr.Invariant("peek_mark called on an empty mark chain")
	}

	succ, ok := s.mhd.payload.(*TSucc)
	if !ok {
		cerr.Invariant("peek_mark type mismatch: mark-chain head payload is not %T", succ)
	}

	if s.mhd.pred != nil {
		pred, ok = s.mhd.pred.payload.(*TPred)
		if !ok {
			cerr.Invariant("peek_mark type mismatch: mark-chain head predecessor payload is not %T", pred)
		}
	}

	return succ, pred
}

// ForkMark splits s at the oldest marked frame that has a call-chain
// predecessor: the mark-chain head if it has one, otherwise the head's
// mark-chain successor. Everything from that frame up (the
// currently-running suffix) goes to the returned s2 and everything older
// stays in s1. If there is no such frame (the mark chain is empty, or it
// holds only a root frame), s1 is s unchanged and s2 is a fresh empty
// stack.
func ForkMark(s Stack) (s1, s2 Stack) {
	s1 = s
	s2 = CreateStack(s.store)

	if EmptyMark(s) {
		return s1, s2
	}

	var pf2 *frame

	if s.mhd.pred == nil {
		pf2 = s.mhd.markSucc
		if pf2 == nil {
			return s1, s2
		}
	} else {
		pf2 = s.mhd
		s1.mhd = nil
	}

	pf1 := pf2.pred
	s1.fp = pf1

	cf1 := pf1.chunk
	if cf1 == pf2.chunk {
		cf1.Incref()
	}

	if s.spChunk == cf1 {
		s1.spChunk = cf1
		s1.spIndex = pf2.slot
		s1.spLimit = s1.spIndex // pin the nursery to zero width: s1 may read
		// back through this chunk but must never write into it again,
		// since s2 may still be bump-allocating past pf2 in the same
		// chunk, and the two descriptors' writable regions must stay
		// pairwise disjoint.
	} else {
		s1.spChunk = nil
		s1.spIndex = 0
		s1.spLimit = 0
	}

	s1.mtl = s1.mhd

	s2 = s
	s2.mhd = pf2

	pf1.markSucc = nil
	if s1.mhd != nil {
		s1.mhd.markSucc = nil
	}
	pf2.pred = nil
	pf2.markPred = nil

	s1 = tryPopMarkBack(s1)
	s2 = tryPopMarkFront(s2)

	return s1, s2
}

func pushMarkBack(s Stack, fr *frame) Stack {
	t := s

	fr.markPred = t.mtl
	if t.mtl != nil {
		t.mtl.markSucc = fr
	}

	t.mtl = fr
	if t.mhd == nil {
		t.mhd = fr
	}

	return t
}

func popMarkBack(s Stack) Stack {
	t := s

	succ := t.mtl
	pred := succ.markPred

	if pred == nil {
		t.mhd = nil
	} else {
		pred.markSucc = nil
	}

	succ.markPred = nil
	t.mtl = pred

	return t
}

func popMarkFront(s Stack) Stack {
	t := s

	pred := t.mhd
	succ := pred.markSucc

	if succ == nil {
		t.mtl = nil
	} else {
		succ.markPred = nil
	}

	pred.markSucc = nil
	t.mhd = succ

	return t
}

func tryPopMarkBack(s Stack) Stack {
	if EmptyMark(s) || isMarkFrame(s.mtl) {
		return s
	}

	return popMarkBack(s)
}

func tryPopMarkFront(s Stack) Stack {
	if EmptyMark(s) || isMarkFrame(s.mhd) {
		return s
	}

	return popMarkFront(s)
}
