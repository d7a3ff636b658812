package plus

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

func tryPushMarkBack(s Stack, fr *frame) Stack {
	if s.mtl == fr {
		return s
	}

	if markOf(fr) {
		return pushMarkBack(s, fr)
	}

	return s
}

func tryPopMarkBack(s Stack) Stack {
	if EmptyMark(s) || markOf(s.mtl) {
		return s
	}

	return popMarkBack(s)
}

func tryPopMarkFront(s Stack) Stack {
	if EmptyMark(s) || markOf(s.mhd) {
		return s
	}

	return popMarkFront(s)
}

// updateBack implements update_back: if the tail's mark predicate no
// longer holds, unlink it.
func updateBack(s Stack) Stack {
	return tryPopMarkBack(s)
}

// updateFront implements update_front: symmetric for the head.
func updateFront(s Stack) Stack {
	return tryPopMarkFront(s)
}

// collectMarkStack drops the prefix of the mark chain, starting at mhd,
// that is neither currently splittable nor an async frame with a
// call-chain predecessor, reproducing the original's collect_mark_stack
// so that UpdateMarkStack trims the same way an external caller invoking
// it mid-lifetime would expect.
func collectMarkStack(s Stack) Stack {
	t := s

	mhd := s.mhd
	for mhd != nil {
		if mhd.isSplittable != nil && mhd.isSplittable() {
			break
		}

		if mhd.clt == Async && mhd.pred != nil {
			break
		}

		succ := mhd.markSucc
		if succ != nil {
			succ.markPred = nil
			mhd.markSucc = nil
		}

		mhd = succ
	}

	if mhd == nil {
		t.mtl = nil
	}

	t.mhd = mhd

	return t
}

// UpdateMarkStack is the Plus variant's externally invocable mark-chain
// reevaluation: a caller whose loop frame's splittability changed
// outside of push_back/pop_back (e.g. the scheduler consumed iterations
// directly) calls this to bring the mark chain back into sync with
// mark_of before the next fork_mark/split_mark.
func UpdateMarkStack(s Stack) Stack {
	if Empty(s) {
		return s
	}

	t := s
	t = tryPopMarkBack(t)
	t = tryPopMarkFront(t)
	t = collectMarkStack(t)

	if s.mtl == t.fp {
		return t
	}

	if t.fp.isSplittable != nil && t.fp.isSplittable() {
		t = pushMarkBack(t, t.fp)
	}

	return t
}
