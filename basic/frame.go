// Package basic implements the Basic cactus-stack variant: a chunked,
// refcounted tree of call frames whose async-linked suffix (the "mark
// chain") can be handed off to another worker in O(1) via ForkMark.
package basic

import "github.com/deepsea-inria/cactus-stack/chunkstore"

// LinkType records how a frame was attached to its call-chain
// predecessor. Only Async frames are eligible for stealing via ForkMark.
type LinkType uint8

const (
	Sync LinkType = iota
	Async
)

// frame is one activation record. It never crosses a package boundary:
// callers only ever see it through a Stack's operations.
type frame struct {
	chunk *chunkstore.Chunk[frame]
	slot  int

	pred *frame // call-chain predecessor (nil at the root)
	clt  LinkType

	markPred *frame // mark-chain doubly-linked list
	markSucc *frame

	payload any // boxed *T, set at push time
}

func isMarkFrame(f *frame) bool { return f.clt == Async }
