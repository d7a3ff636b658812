package plus

// Frames returns the payloads of s's call chain, root to top.
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

// MarkedFrames returns the payloads of s's mark chain, head to tail.
func MarkedFrames(s Stack) []any {
	out := make([]any, 0, 4)
	for f := s.mhd; f != nil; f = f.markSucc {
		out = append(out, f.payload)
	}

	return out
}
