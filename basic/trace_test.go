package basic

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/deepsea-inria/cactus-stack/chunkstore"
)

// refModel is the slice-backed stand-in for the original's QuickCheck
// reference-model interpreter (the machine_config_struct/trace_struct
// harness from the C++ test suite this package's property tests port),
// distilled down to exactly what the frame-equality and mark-chain
// checks below need to compare against.
type refModel struct {
	ids   []int // call chain, bottom to top
	marks []int // mark chain ids, head to tail (subsequence of ids, async only)
}

func (m refModel) push(id int, async bool) refModel {
	n := refModel{ids: append(append([]int{}, m.ids...), id)}
	n.marks = append([]int{}, m.marks...)

	if async {
		n.marks = append(n.marks, id)
	}

	return n
}

func (m refModel) pop() refModel {
	id := m.ids[len(m.ids)-1]

	n := refModel{ids: m.ids[:len(m.ids)-1]}
	n.marks = append([]int{}, m.marks...)

	if len(n.marks) > 0 && n.marks[len(n.marks)-1] == id {
		n.marks = n.marks[:len(n.marks)-1]
	}

	return n
}

// TestTraceAgainstReferenceModel runs rapid-generated sequences of
// push_back/pop_back against both the chunked implementation and the
// slice-based reference model, checking frame equality, forward mark
// enumeration, and backward mark enumeration (which must be the reverse
// of the forward one) after every step.
func TestTraceAgainstReferenceModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := chunkstore.NewStore(chunkstore.WithLgK(6)) // small chunks: forces chunk-boundary crossings in a short trace
		stack := CreateStack(store)
		model := refModel{}

		nextID := 1

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			canPop := len(model.ids) > 0

			op := rapid.SampledFrom([]string{"push_sync", "push_async", "pop"}).Draw(rt, "op")
			if op == "pop" && !canPop {
				op = "push_sync"
			}

			switch op {
			case "push_sync", "push_async":
				id := nextID
				nextID++

				link := Sync
				if op == "push_async" {
					link = Async
				}

				var err error
				stack, err = PushBack(stack, link, func(f *idFrame) { f.id = id })
				if err != nil {
					rt.Fatalf("push_back: %v", err)
				}

				model = model.push(id, link == Async)
			case "pop":
				var poppedID int
				stack = PopBack(stack, func(f *idFrame) { poppedID = f.id })

				wantID := model.ids[len(model.ids)-1]
				if poppedID != wantID {
					rt.Fatalf("popped id %d, want %d", poppedID, wantID)
				}

				model = model.pop()
			}

			checkFrameEquality(rt, stack, model)
			checkMarkChainConsistency(rt, stack, model)
		}
	})
}

func checkFrameEquality(rt *rapid.T, s Stack, model refModel) {
	rt.Helper()

	got := Frames(s)
	if len(got) != len(model.ids) {
		rt.Fatalf("frame count = %d, want %d", len(got), len(model.ids))
	}

	for i, payload := range got {
		if payload.(*idFrame).id != model.ids[i] {
			rt.Fatalf("frames[%d] = %d, want %d", i, payload.(*idFrame).id, model.ids[i])
		}
	}
}

func checkMarkChainConsistency(rt *rapid.T, s Stack, model refModel) {
	rt.Helper()

	fwd := MarkedFrames(s)
	if len(fwd) != len(model.marks) {
		rt.Fatalf("mark count = %d, want %d", len(fwd), len(model.marks))
	}

	for i, payload := range fwd {
		if payload.(*idFrame).id != model.marks[i] {
			rt.Fatalf("marks[%d] = %d, want %d", i, payload.(*idFrame).id, model.marks[i])
		}
	}

	// Backward traversal (mark_pred from mtl) must equal the reverse of fwd.
	var bwd []any
	for f := s.mtl; f != nil; f = f.markPred {
		bwd = append(bwd, f.payload)
	}

	if len(bwd) != len(fwd) {
		rt.Fatalf("backward mark count = %d, want %d", len(bwd), len(fwd))
	}

	for i := range bwd {
		if bwd[i].(*idFrame).id != fwd[len(fwd)-1-i].(*idFrame).id {
			rt.Fatalf("backward mark chain is not the reverse of the forward one")
		}
	}
}
