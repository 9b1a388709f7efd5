// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// A reader is a read-only unpacked view over a node. Readers copy the node
// payload out of the arena, so they stay valid across garbage collection and
// compaction. When asked for a level above the node's own level, a reader
// synthesizes the expansion implied by the reduction rule: redundant for
// unprimed levels, identity (or redundant, under quasi and fully rules) for
// primed levels. Readers never take node references; the caller must keep
// the node alive for the lifetime of the reader.
type reader struct {
	level int32
	size  int
	// dense view
	down []int
	edge []int64
	// sparse view, filled only by readSparse
	nnz   int
	index []int
}

func (f *Forest) getReader() *reader {
	if n := len(f.readerPool); n > 0 {
		r := f.readerPool[n-1]
		f.readerPool = f.readerPool[:n-1]
		return r
	}
	return &reader{}
}

func (f *Forest) putReader(r *reader) {
	f.readerPool = append(f.readerPool, r)
}

func (r *reader) ensure(size int) {
	if cap(r.down) < size {
		r.down = make([]int, size)
		r.edge = make([]int64, size)
		r.index = make([]int, size)
	} else {
		r.down = r.down[:size]
		r.edge = r.edge[:size]
		r.index = r.index[:size]
	}
}

// fillFromRecord expands the stored encoding of h into the dense view.
func (f *Forest) fillFromRecord(r *reader, h int) {
	e := &f.addr[h]
	a := f.arenas[f.mapLevel(e.level)]
	o := e.offset
	code := int(a.data[o])
	size := f.d.bound(e.level)
	r.level = e.level
	r.size = size
	r.ensure(size)
	tr := f.evTransparent()
	for i := 0; i < size; i++ {
		r.down[i] = 0
		r.edge[i] = tr
	}
	if code&1 == 0 {
		s := code >> 1
		for i := 0; i < s; i++ {
			r.down[i] = int(a.data[o+1+i])
		}
		if f.ev() {
			for i := 0; i < s; i++ {
				if r.down[i] != 0 {
					r.edge[i] = a.data[o+1+s+i]
				}
			}
		}
	} else {
		z := code >> 1
		for i := 0; i < z; i++ {
			idx := int(a.data[o+1+i])
			r.down[idx] = int(a.data[o+1+z+i])
			if f.ev() {
				r.edge[idx] = a.data[o+1+2*z+i]
			}
		}
	}
}

// readDense returns a dense reader over h at the given level. The level must
// be at or above the level of h; pidx is the index at the unprimed parent,
// used only when synthesizing an identity expansion at a primed level.
func (f *Forest) readDense(h int, level int32, pidx int) *reader {
	r := f.getReader()
	if h > 0 && f.addr[h].level == level {
		f.fillFromRecord(r, h)
		return r
	}
	// synthesized expansion of a skipped level
	size := f.d.bound(level)
	r.level = level
	r.size = size
	r.ensure(size)
	id := f.evIdentity()
	tr := f.evTransparent()
	if h == 0 {
		id = tr
	}
	if level < 0 && f.pol.Reduction == IdentityReduced {
		for i := 0; i < size; i++ {
			r.down[i] = 0
			r.edge[i] = tr
		}
		r.down[pidx] = h
		r.edge[pidx] = id
		return r
	}
	for i := 0; i < size; i++ {
		r.down[i] = h
		r.edge[i] = id
	}
	return r
}

// readSparse is like readDense but fills the sparse view (index/down/edge
// prefixes of length nnz).
func (f *Forest) readSparse(h int, level int32, pidx int) *reader {
	r := f.readDense(h, level, pidx)
	z := 0
	for i := 0; i < r.size; i++ {
		if r.down[i] != 0 {
			r.index[z] = i
			r.down[z] = r.down[i]
			r.edge[z] = r.edge[i]
			z++
		}
	}
	r.nnz = z
	return r
}
