package basic

// Frames returns the payloads of s's call chain, ordered from the root
// (bottom of the stack) to the top. Intended for debugging and tests,
// not part of the hot path.
func Frames(s Stack) []any {
	out := make([]any, 0, 8)
	for f := s.fp; f != nil; f = f.pred {
		out = append(out, f.payload)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// MarkedFrames returns the payloads of s's mark chain, ordered from head
// (oldest, stealable first) to tail (most recently pushed).
func MarkedFrames(s Stack) []any {
	out := make([]any, 0, 4)
	for f := s.mhd; f != nil; f = f.markSucc {
		out = append(out, f.payload)
	}

	return out
}
