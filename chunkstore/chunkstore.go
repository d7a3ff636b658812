// Package chunkstore implements the chunk allocator shared by the basic
// and plus cactus-stack variants: fixed-capacity, atomically refcounted
// chunks that hold a descriptor's frames.
//
// The original C/C++ representation derives a frame's owning chunk from
// its address via K-aligned allocation and pointer masking
// (chunk_of(p) = (p-1) & ~(K-1)). Go gives no alignment guarantee for a
// heap slice and offers no sound way to mask GC-managed pointers, so
// every frame instead carries an explicit handle to its chunk (see the
// basic/plus frame headers) and chunk lookup is a struct field read
// rather than address arithmetic.
package chunkstore

import (
	"sync/atomic"

	"github.com/deepsea-inria/cactus-stack/cerr"
)

const (
	defaultLgK = 12 // 4KiB, matching the original's CACTUS_STACK_BASIC_LG_K default
	minLgK     = 4

	// frameUnitBytes is the nominal accounting unit used to translate a
	// chunk-size exponent into a frame count: a 4096-byte chunk (lg_K=12)
	// yields 63 usable frame slots after reserving one unit for chunk
	// bookkeeping, matching the original's default chunk layout.
	frameUnitBytes = 64
)

// Option configures a Store via the functional-options pattern.
type Option func(*Store)

// WithLgK sets the chunk-size exponent (K = 2^lgK bytes). Panics if lgK
// is below the platform-pointer-alignment floor; this is a programming
// error, not a runtime condition, so it is checked at Store construction
// rather than on every allocation.
func WithLgK(lgK uint) Option {
	return func(s *Store) {
		if lgK < minLgK {
			cerr.Invariant("lg_K=%d is below the minimum of %d", lgK, minLgK)
		}

		s.lgK = lgK
	}
}

// WithMaxChunks bounds the number of simultaneously live chunks a Store
// will allocate. Exceeding it surfaces cerr.Alloc instead of growing
// without bound, the Go stand-in for the original allocator's fixed
// arena running out of aligned blocks.
func WithMaxChunks(n int) Option {
	return func(s *Store) {
		s.maxChunks = int64(n)
	}
}

// Store is the chunk allocator for one family of cactus stacks. Every
// descriptor produced by forking or splitting another must share the
// same Store: chunk capacity (and therefore frame-slot indices) is only
// comparable within one Store.
type Store struct {
	lgK        uint
	maxChunks  int64
	liveChunks int64 // atomic
}

// NewStore builds a Store with the given options applied over the
// default configuration (lg_K=12, unbounded chunks).
func NewStore(opts ...Option) *Store {
	s := &Store{lgK: defaultLgK}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LgK returns the configured chunk-size exponent.
func (s *Store) LgK() uint { return s.lgK }

// ChunkBytes returns K, the nominal chunk size in bytes.
func (s *Store) ChunkBytes() uintptr { return uintptr(1) << s.lgK }

// FramesPerChunk returns how many frame slots a freshly allocated chunk
// holds, derived from K the nominal way: one frameUnitBytes-sized unit
// reserved for chunk bookkeeping, the rest divided into frame-sized
// units. Always at least 1, so a chunk can never come back with zero
// capacity regardless of how small lg_K is configured.
func (s *Store) FramesPerChunk() int {
	n := int(s.ChunkBytes()/frameUnitBytes) - 1
	if n < 1 {
		n = 1
	}

	return n
}

// LiveChunks reports the number of chunks currently allocated from this
// store and not yet freed.
func (s *Store) LiveChunks() int64 { return atomic.LoadInt64(&s.liveChunks) }

// Chunk holds a fixed-capacity run of frame slots of type F plus the
// bookkeeping needed to restore a descriptor's bump-pointer state when it
// pops back out of this chunk into the one it came from. savedSP/savedLP
// correspond exactly to the original's chunk_header_type.sp/.lp: the
// nursery bounds of whichever earlier chunk was active when this one was
// created.
type Chunk[F any] struct {
	store    *Store
	refcount int32 // atomic
	frames   []F
	savedSP  int
	savedLP  int
}

// NewChunk allocates a new chunk from store with refcount 1, recording
// the nursery bounds (savedSP, savedLP) to restore in the predecessor
// chunk once this one is vacated. Fails with cerr.Alloc only if the
// store's chunk budget (WithMaxChunks) is exhausted; on failure no chunk
// is allocated and no store state beyond the attempted counter is
// touched, so the caller's descriptor is left exactly as it was.
func NewChunk[F any](store *Store, savedSP, savedLP int) (*Chunk[F], error) {
	live := atomic.AddInt64(&store.liveChunks, 1)
	if store.maxChunks > 0 && live > store.maxChunks {
		atomic.AddInt64(&store.liveChunks, -1)

		return nil, cerr.Alloc("chunk budget exhausted: %d chunks already live (lg_K=%d)", store.maxChunks, store.lgK)
	}

	return &Chunk[F]{
		store:    store,
		refcount: 1,
		frames:   make([]F, store.FramesPerChunk()),
		savedSP:  savedSP,
		savedLP:  savedLP,
	}, nil
}

// Capacity returns the number of frame slots this chunk holds.
func (c *Chunk[F]) Capacity() int { return len(c.frames) }

// At returns a pointer to the frame slot at index i. The pointer remains
// valid for the chunk's lifetime: frames is allocated at full capacity
// up front, so no later append can reallocate the backing array out from
// under a retained slot pointer.
func (c *Chunk[F]) At(i int) *F { return &c.frames[i] }

// SavedSP returns the nursery start to restore in the predecessor chunk.
func (c *Chunk[F]) SavedSP() int { return c.savedSP }

// SavedLP returns the nursery limit to restore in the predecessor chunk.
func (c *Chunk[F]) SavedLP() int { return c.savedLP }

// Incref records an additional descriptor holding a pointer into this
// chunk. Uses an atomic add since a chunk's refcount is the only shared
// mutable state in the whole library.
func (c *Chunk[F]) Incref() { atomic.AddInt32(&c.refcount, 1) }

// Decref releases one descriptor's claim on this chunk. When the count
// reaches zero the chunk's frame storage is dropped for collection,
// mirroring the original's free(c).
func (c *Chunk[F]) Decref() {
	rc := atomic.AddInt32(&c.refcount, -1)
	if rc < 0 {
		cerr.Invariant("chunk refcount underflow")
	}

	if rc == 0 {
		atomic.AddInt64(&c.store.liveChunks, -1)
		c.frames = nil
	}
}

// Refcount returns the chunk's current reference count.
func (c *Chunk[F]) Refcount() int32 { return atomic.LoadInt32(&c.refcount) }
