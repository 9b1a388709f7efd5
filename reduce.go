// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// reduce normalizes and canonicalizes a builder, returning the edge that
// represents it. The builder is always consumed: its child references either
// move into the new record, or are released when the reducer returns an
// existing handle or collapses the node away. pidx is the index of the node
// at its unprimed parent; it is only used to detect the skipped-identity
// pattern when reducing a primed node, and is -1 elsewhere.
//
// The returned handle carries one incoming-count increment for the caller.
func (f *Forest) reduce(pidx int, b *builder) (int64, int, error) {
	nnz, last := b.nnz()
	if nnz == 0 {
		f.putBuilder(b)
		return f.evTransparent(), 0, nil
	}

	// factor the identity of the labeling operation out of the children
	ev := f.normalize(b, nnz)

	switch f.pol.Reduction {
	case FullyReduced:
		if nnz == b.size && f.allEqual(b) {
			c := b.down[0]
			cv := f.evCompose(ev, b.edge[0])
			f.linkNode(c)
			b.release()
			return cv, c, nil
		}
	case IdentityReduced:
		// unprimed levels collapse when redundant, primed levels only when
		// they form the skipped-identity pattern at their parent index
		if b.level > 0 && nnz == b.size && f.allEqual(b) {
			c := b.down[0]
			cv := f.evCompose(ev, b.edge[0])
			f.linkNode(c)
			b.release()
			return cv, c, nil
		}
		if b.level < 0 && pidx >= 0 && nnz == 1 && b.down[pidx] != 0 &&
			f.evClose(b.edge[pidx], f.evIdentity()) {
			c := b.down[pidx]
			cv := f.evCompose(ev, b.edge[pidx])
			f.linkNode(c)
			b.release()
			return cv, c, nil
		}
	case QuasiReduced:
		// no collapse; every level stays materialized
	}

	hash := f.unique.hashBuilder(b)
	if h := f.unique.find(b, hash); h != 0 {
		f.linkNode(h)
		b.release()
		return ev, h, nil
	}

	h, err := f.writeRecord(b, nnz, last)
	if err != nil {
		// one forced collection cycle before giving up
		f.GarbageCollect()
		h, err = f.writeRecord(b, nnz, last)
		if err != nil {
			b.release()
			return f.evTransparent(), 0, err
		}
	}
	f.unique.insert(h, hash)
	level := b.level
	f.putBuilder(b)

	f.stats.produced++
	f.stats.active++
	if f.stats.active > f.stats.peak {
		f.stats.peak = f.stats.active
	}
	if m := f.memorySlots(); m > f.stats.peakSlots {
		f.stats.peakSlots = m
	}
	f.logDelta(level, 1)
	f.maybeGC()
	return ev, h, nil
}

// normalize rewrites the edge values of a builder so that the identity of
// the labeling operation is factored out: EV+ subtracts the minimum value,
// EV* divides by the value of the lowest-index non-zero edge.
func (f *Forest) normalize(b *builder, nnz int) int64 {
	switch f.label {
	case EVPlus:
		min := int64(evInf)
		for i := 0; i < b.size; i++ {
			if b.down[i] != 0 && b.edge[i] < min {
				min = b.edge[i]
			}
		}
		if min == 0 || min == evInf {
			return 0
		}
		for i := 0; i < b.size; i++ {
			if b.down[i] != 0 {
				b.edge[i] -= min
			}
		}
		return min
	case EVTimes:
		first := -1
		for i := 0; i < b.size; i++ {
			if b.down[i] != 0 && evFloatOfBits(b.edge[i]) != 0 {
				first = i
				break
			}
		}
		if first < 0 {
			return evFloatBits(1)
		}
		ev := evFloatOfBits(b.edge[first])
		for i := 0; i < b.size; i++ {
			if b.down[i] != 0 {
				b.edge[i] = evFloatBits(evFloatOfBits(b.edge[i]) / ev)
			}
		}
		return evFloatBits(ev)
	default:
		return 0
	}
}

func (f *Forest) allEqual(b *builder) bool {
	for i := 1; i < b.size; i++ {
		if b.down[i] != b.down[0] || (f.ev() && !f.evClose(b.edge[i], b.edge[0])) {
			return false
		}
	}
	return true
}

// writeRecord encodes the builder into the level arena and returns a fresh
// handle with one incoming reference.
func (f *Forest) writeRecord(b *builder, nnz, last int) (int, error) {
	h := f.newHandle()
	if err := f.encodeRecord(h, b, nnz, last); err != nil {
		f.freeHandle(h)
		return 0, err
	}
	f.addr[h].incount = 1
	return h, nil
}

// encodeRecord stores the builder's payload, full or sparse following the
// storage preference, behind an existing handle. Counts are left untouched.
func (f *Forest) encodeRecord(h int, b *builder, nnz, last int) error {
	a := f.arenas[f.mapLevel(b.level)]
	tsize := last + 1 // truncated full size
	fullSlots := 2 + tsize
	sparseSlots := 2 + 2*nnz
	if f.ev() {
		fullSlots += tsize
		sparseSlots += nnz
	}
	sparse := false
	switch f.pol.Storage {
	case SparseStorage:
		sparse = true
	case FullStorage:
		sparse = fullSlots < minHole
	default:
		sparse = sparseSlots < fullSlots || fullSlots < minHole
	}
	slots := fullSlots
	if sparse {
		slots = sparseSlots
	}
	o, err := a.request(slots)
	if err != nil {
		return err
	}
	if sparse {
		a.data[o] = int64(2*nnz + 1)
		z := 0
		for i := 0; i <= last; i++ {
			if b.down[i] == 0 {
				continue
			}
			a.data[o+1+z] = int64(i)
			a.data[o+1+nnz+z] = int64(b.down[i])
			if f.ev() {
				a.data[o+1+2*nnz+z] = b.edge[i]
			}
			z++
		}
	} else {
		a.data[o] = int64(2 * tsize)
		for i := 0; i < tsize; i++ {
			a.data[o+1+i] = int64(b.down[i])
			if f.ev() {
				a.data[o+1+tsize+i] = b.edge[i]
			}
		}
	}
	a.data[o+slots-1] = int64(h)
	e := &f.addr[h]
	e.level = b.level
	e.offset = o
	return nil
}
