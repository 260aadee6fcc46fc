// Package arena provides the per-draw bump allocator used by draw contexts and
// draw states.
//
// An Arena hands out memory that lives until the next Reset. Reset rewinds the
// arena without returning slabs to the runtime, so a draw slot that is reused
// many times stops allocating once its slabs have grown to the working set.
// Memory handed out between two Resets never moves.
//
// Untyped byte memory comes from byte slabs. Values that may contain Go
// pointers come from typed slabs, one list per element type, so the garbage
// collector always sees them with their real type.
//
// An Arena is not safe for concurrent use.
package arena

import (
	"reflect"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// slabSize is the size of a byte slab. Requests larger than a slab get a
// dedicated slab of their own.
const slabSize = 64 * 1024

// typedSlabElems is the number of elements in a typed slab.
const typedSlabElems = 256

// Arena is a bump allocator with reset/reuse semantics.
type Arena struct {
	byteSlabs  []byteSlab
	typedSlabs map[reflect.Type]any
	resetters  []func()
	used       int
}

type byteSlab struct {
	data   []byte
	offset int
}

type typedSlab[E any] struct {
	data   []E
	offset int
}

type typedSlabs[E any] struct {
	slabs []typedSlab[E]
}

// New creates an empty arena. No memory is allocated until first use.
func New() *Arena {
	return &Arena{
		typedSlabs: make(map[reflect.Type]any),
	}
}

// Alloc returns size zeroed bytes whose address is a multiple of align.
// align must be a power of two; zero means 1.
func (a *Arena) Alloc(size, align int) []byte {
	if size == 0 {
		return nil
	}
	if align <= 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		panic("arena: alignment must be a power of two")
	}
	for i := range a.byteSlabs {
		sl := &a.byteSlabs[i]
		off := alignAddr(sl.data, sl.offset, align)
		if len(sl.data)-off >= size {
			sl.offset = off + size
			a.used += size
			b := sl.data[off : off+size : off+size]
			clear(b)
			return b
		}
	}

	n := max(slabSize, size+align)
	a.byteSlabs = append(a.byteSlabs, byteSlab{data: make([]byte, n)})
	sl := &a.byteSlabs[len(a.byteSlabs)-1]
	off := alignAddr(sl.data, 0, align)
	sl.offset = off + size
	a.used += size
	return sl.data[off : off+size : off+size]
}

// CopyBytes returns a copy of b allocated from the arena.
func (a *Arena) CopyBytes(b []byte, align int) []byte {
	dst := a.Alloc(len(b), align)
	copy(dst, b)
	return dst
}

// Reset rewinds the arena. Everything allocated since the previous Reset
// becomes invalid. Typed memory is cleared so it does not keep Go pointers
// alive.
func (a *Arena) Reset() {
	if a.typedSlabs == nil {
		a.typedSlabs = make(map[reflect.Type]any)
	}
	for i := range a.byteSlabs {
		a.byteSlabs[i].offset = 0
	}
	for _, r := range a.resetters {
		r()
	}
	a.used = 0
}

// Size reports the number of bytes handed out since the last Reset.
func (a *Arena) Size() int {
	return a.used
}

// NewValue allocates a zero T from the arena.
func NewValue[T any](a *Arena) *T {
	s := MakeSlice[T](a, 1)
	return &s[0]
}

// Make allocates a T from the arena and initializes it with v.
func Make[T any](a *Arena, v T) *T {
	p := NewValue[T](a)
	*p = v
	return p
}

// MakeSlice allocates a zeroed slice of n elements from the arena. The
// returned slice has cap == len so appending to it never writes into memory
// owned by a later allocation.
func MakeSlice[E any](a *Arena, n int) []E {
	if n == 0 {
		return nil
	}
	ts := slabsFor[E](a)
	for i := range ts.slabs {
		sl := &ts.slabs[i]
		if len(sl.data)-sl.offset >= n {
			s := sl.data[sl.offset : sl.offset+n : sl.offset+n]
			sl.offset += n
			a.used += n * int(unsafe.Sizeof(*new(E)))
			return s
		}
	}
	ts.slabs = append(ts.slabs, typedSlab[E]{data: make([]E, max(typedSlabElems, n))})
	sl := &ts.slabs[len(ts.slabs)-1]
	sl.offset = n
	a.used += n * int(unsafe.Sizeof(*new(E)))
	return sl.data[:n:n]
}

// CopySlice returns a copy of values allocated from the arena.
func CopySlice[E any](a *Arena, values []E) []E {
	s := MakeSlice[E](a, len(values))
	copy(s, values)
	return s
}

func slabsFor[E any](a *Arena) *typedSlabs[E] {
	if a.typedSlabs == nil {
		a.typedSlabs = make(map[reflect.Type]any)
	}
	// TypeOf(*new(E)) is nil for interface types, so go through a pointer.
	typ := reflect.TypeOf((*E)(nil)).Elem()
	if v, ok := a.typedSlabs[typ]; ok {
		return v.(*typedSlabs[E])
	}
	ts := &typedSlabs[E]{}
	a.typedSlabs[typ] = ts
	a.resetters = append(a.resetters, ts.reset)
	return ts
}

func (ts *typedSlabs[E]) reset() {
	for i := range ts.slabs {
		sl := &ts.slabs[i]
		clear(sl.data[:sl.offset])
		sl.offset = 0
	}
}

// alignAddr returns the smallest offset >= off such that &data[offset] is a
// multiple of to.
func alignAddr(data []byte, off, to int) int {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(data)))
	return int(AlignUp(base+uintptr(off), uintptr(to)) - base)
}

// AlignUp rounds v up to a multiple of to, which must be a power of two.
func AlignUp[T constraints.Integer](v, to T) T {
	return (v + to - 1) &^ (to - 1)
}

// RoundDown rounds v down to a multiple of m. m must be positive.
func RoundDown[T constraints.Integer](v, m T) T {
	return v - v%m
}
