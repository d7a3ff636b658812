package plus

// ForkMark splits s at the oldest marked frame that has a call-chain
// predecessor, exactly as basic.ForkMark, then applies
// updateBack/updateFront (the Plus variant's splittable-aware mark
// predicate) instead of the plain async-only tryPopMark*.
//
// Bug-fix vs. the literal original (see SPEC_FULL.md): the original Plus
// fork_mark never assigns s1.mtl, leaving it pointing at whatever was
// the tail of the pre-fork mark chain — a frame that, in every case
// where S1's mark chain ends up non-empty, has just moved to S2. Basic's
// fork_mark does not have this bug: it sets s1.mtl = s1.mhd. S1's
// post-fork mark chain holds at most one element regardless of variant,
// and the head/tail pointers must bound a consistent chain either way,
// so this mirrors Basic's correct assignment rather than reproducing the
// omission.
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
		s1.spLimit = s1.spIndex
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

	s1 = updateBack(s1)
	s2 = updateFront(s2)

	return s1, s2
}

// SplitMark splits s at a splittable loop frame: pf (the mark-chain
// head) stays with s1, pf's loop-child pg (the mark-chain's second
// entry) becomes the root of s2. Returns (s, empty) if there is no
// second mark-chain entry to split at.
func SplitMark(s Stack) (s1, s2 Stack) {
	s1 = s
	s2 = CreateStack(s.store)

	pf := s.mhd
	if pf == nil {
		return s1, s2
	}

	pg := pf.markSucc
	if pg == nil {
		return s1, s2
	}

	pf.markSucc = nil
	pg.markPred = nil
	pg.pred = nil
	pg.llt = LoopNone

	s1.fp = pf
	s1.spChunk = nil
	s1.spIndex = 0
	s1.spLimit = 0
	s1.mtl = pf

	s2 = s
	s2.mhd = pg

	if s.mhd == s.mtl {
		s2.mtl = pg
	}

	cpf := pf.chunk
	if cpf == pg.chunk {
		cpf.Incref()
	}

	s1 = updateBack(s1)
	s2 = updateFront(s2)

	return s1, s2
}
