// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// A builder is an unreduced node under construction. Builders are dense:
// they always carry one slot per value of the level bound, whatever encoding
// the reducer later picks. A builder owns one node reference per non-zero
// child entry; reduce consumes all of them, on success and on failure alike,
// so a scoped newBuilder/reduce pair never leaks references.
type builder struct {
	f     *Forest
	level int32
	size  int
	down  []int
	edge  []int64
}

// newBuilder returns a builder for a node at the given signed level, with
// all children transparent. Builders come from a per-forest free list.
func (f *Forest) newBuilder(level int32) *builder {
	var b *builder
	if n := len(f.builderPool); n > 0 {
		b = f.builderPool[n-1]
		f.builderPool = f.builderPool[:n-1]
	} else {
		b = &builder{f: f}
	}
	size := f.d.bound(level)
	b.level = level
	b.size = size
	if cap(b.down) < size {
		b.down = make([]int, size)
		b.edge = make([]int64, size)
	} else {
		b.down = b.down[:size]
		b.edge = b.edge[:size]
	}
	tr := f.evTransparent()
	for i := 0; i < size; i++ {
		b.down[i] = 0
		b.edge[i] = tr
	}
	return b
}

func (f *Forest) putBuilder(b *builder) {
	f.builderPool = append(f.builderPool, b)
}

// set stores a child edge, taking over the caller's reference on h.
func (b *builder) set(i int, ev int64, h int) {
	b.down[i] = h
	if h == 0 {
		b.edge[i] = b.f.evTransparent()
	} else {
		b.edge[i] = ev
	}
}

// release drops every reference held by the builder and recycles it. Used on
// error paths; reduce performs its own consumption.
func (b *builder) release() {
	for i := 0; i < b.size; i++ {
		b.f.unlinkNode(b.down[i])
		b.down[i] = 0
	}
	b.f.putBuilder(b)
}

// nnz returns the number of non-transparent entries and the index of the
// last one.
func (b *builder) nnz() (int, int) {
	n, last := 0, -1
	for i := 0; i < b.size; i++ {
		if b.down[i] != 0 {
			n++
			last = i
		}
	}
	return n, last
}
