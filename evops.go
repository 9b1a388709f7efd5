// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// Operations on edge-valued forests. EV+ edges accumulate a long value
// along the path, with +inf marking absent tuples; union is the pointwise
// minimum, which is also the reducer used by the distance-annotated
// operations. All recursions key the compute table on offset-normalized
// operands, exploiting the additive invariance of the operations.

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (f *Forest) evBinary(op uint8, a, b Edge) (Edge, error) {
	if err := f.checkEdge(a); err != nil {
		return Edge{}, err
	}
	if err := f.checkEdge(b); err != nil {
		return Edge{}, err
	}
	if f.label != EVPlus {
		return Edge{}, errf(TypeMismatch, "EV+ operation on a %v forest", f.label)
	}
	rv, rn, err := f.evApply(op, a.ev, a.node, b.ev, b.node)
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(rv, rn), nil
}

// evApply computes op pointwise on two EV+ operands carried with their
// accumulated offsets. The returned handle carries one reference.
func (f *Forest) evApply(op uint8, da int64, a int, db int64, b int) (int64, int, error) {
	// terminal and absent cases
	switch op {
	case opEVUnion:
		switch {
		case a == 0 && b == 0:
			return evInf, 0, nil
		case a == 0:
			return db, f.linkNode(b), nil
		case b == 0:
			return da, f.linkNode(a), nil
		case a == termTrue && b == termTrue:
			return minI64(da, db), termTrue, nil
		case a == b && da == db:
			return da, f.linkNode(a), nil
		}
	case opPlus:
		if a == 0 || b == 0 {
			return evInf, 0, nil
		}
		if a == termTrue && b == termTrue {
			return da + db, termTrue, nil
		}
	case opMax:
		if a == 0 || b == 0 {
			return evInf, 0, nil
		}
		if a == termTrue && b == termTrue {
			return maxI64(da, db), termTrue, nil
		}
		if a == b && da == db {
			return da, f.linkNode(a), nil
		}
	}
	// offset normalization for the cache key
	var base, oa, ob int64
	var delta int
	if op == opPlus {
		base, oa, ob, delta = da+db, 0, 0, 0
	} else {
		base = minI64(da, db)
		oa, ob = da-base, db-base
		if a > b || (a == b && oa > ob) {
			a, b = b, a
			oa, ob = ob, oa
		}
		delta = int(ob - oa)
	}
	if res, resv, ok := f.ct.find(op, a, b, delta); ok {
		if res == 0 {
			return evInf, 0, nil
		}
		return base + resv, f.linkNode(res), nil
	}
	k := topAbs(f.nodeLevel(a), f.nodeLevel(b))
	size := f.d.bound(k)
	ra := f.readDense(a, k, -1)
	rb := f.readDense(b, k, -1)
	nb := f.newBuilder(k)
	var err error
	if f.relation {
		for i := 0; i < size && err == nil; i++ {
			pa := f.readDense(ra.down[i], -k, i)
			pb := f.readDense(rb.down[i], -k, i)
			pnb := f.newBuilder(-k)
			for j := 0; j < size; j++ {
				var cv int64
				var c int
				cv, c, err = f.evApply(op,
					evChild(oa, ra.edge[i], pa.edge[j]), pa.down[j],
					evChild(ob, rb.edge[i], pb.edge[j]), pb.down[j])
				if err != nil {
					break
				}
				pnb.set(j, cv, c)
			}
			f.putReader(pa)
			f.putReader(pb)
			if err != nil {
				pnb.release()
				break
			}
			var pv int64
			var ph int
			pv, ph, err = f.reduce(i, pnb)
			if err == nil {
				nb.set(i, pv, ph)
			}
		}
	} else {
		for i := 0; i < size; i++ {
			var cv int64
			var c int
			cv, c, err = f.evApply(op,
				evChild(oa, 0, ra.edge[i]), ra.down[i],
				evChild(ob, 0, rb.edge[i]), rb.down[i])
			if err != nil {
				break
			}
			nb.set(i, cv, c)
		}
	}
	f.putReader(ra)
	f.putReader(rb)
	if err != nil {
		nb.release()
		return evInf, 0, err
	}
	resv, res, err := f.reduce(-1, nb)
	if err != nil {
		return evInf, 0, err
	}
	f.ct.add(op, a, b, delta, res, resv)
	if res == 0 {
		return evInf, 0, nil
	}
	return base + resv, res, nil
}

// evChild adds path offsets, saturating on the infinite value of absent
// children.
func evChild(offsets ...int64) int64 {
	var acc int64
	for _, v := range offsets {
		if v == evInf {
			return evInf
		}
		acc += v
	}
	return acc
}

func topAbs(a, b int32) int32 {
	x, y := absLevel(a), absLevel(b)
	if x > y {
		return x
	}
	return y
}

// evTimesApply computes the pointwise product of two EV* operands. The
// multiplicative offsets factor out, so the cache keys on the nodes alone.
func (f *Forest) evTimesApply(da float64, a int, db float64, b int) (float64, int, error) {
	if a == 0 || b == 0 {
		return 0, 0, nil
	}
	if a == termTrue && b == termTrue {
		return da * db, termTrue, nil
	}
	base := da * db
	x, y := a, b
	if x > y {
		x, y = y, x
	}
	if res, resv, ok := f.ct.find(opTimes, x, y, 0); ok {
		return base * evFloatOfBits(resv), f.linkNode(res), nil
	}
	k := topAbs(f.nodeLevel(a), f.nodeLevel(b))
	size := f.d.bound(k)
	ra := f.readDense(a, k, -1)
	rb := f.readDense(b, k, -1)
	nb := f.newBuilder(k)
	var err error
	if f.relation {
		for i := 0; i < size && err == nil; i++ {
			pa := f.readDense(ra.down[i], -k, i)
			pb := f.readDense(rb.down[i], -k, i)
			pnb := f.newBuilder(-k)
			for j := 0; j < size; j++ {
				var cv float64
				var c int
				cv, c, err = f.evTimesApply(
					evFloatOfBits(ra.edge[i])*evFloatOfBits(pa.edge[j]), pa.down[j],
					evFloatOfBits(rb.edge[i])*evFloatOfBits(pb.edge[j]), pb.down[j])
				if err != nil {
					break
				}
				pnb.set(j, evFloatBits(cv), c)
			}
			f.putReader(pa)
			f.putReader(pb)
			if err != nil {
				pnb.release()
				break
			}
			var pv int64
			var ph int
			pv, ph, err = f.reduce(i, pnb)
			if err == nil {
				nb.set(i, pv, ph)
			}
		}
	} else {
		for i := 0; i < size; i++ {
			var cv float64
			var c int
			cv, c, err = f.evTimesApply(evFloatOfBits(ra.edge[i]), ra.down[i],
				evFloatOfBits(rb.edge[i]), rb.down[i])
			if err != nil {
				break
			}
			nb.set(i, evFloatBits(cv), c)
		}
	}
	f.putReader(ra)
	f.putReader(rb)
	if err != nil {
		nb.release()
		return 0, 0, err
	}
	resv, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, 0, err
	}
	f.ct.add(opTimes, x, y, 0, res, resv)
	return base * evFloatOfBits(resv), res, nil
}

// evAccumulate takes the pointwise minimum of builder slot i and (tv, t),
// consuming the caller's reference on t.
func (f *Forest) evAccumulate(nb *builder, i int, tv int64, t int) error {
	if t == 0 {
		return nil
	}
	if nb.down[i] == 0 {
		nb.set(i, tv, t)
		return nil
	}
	uv, u, err := f.evApply(opEVUnion, nb.edge[i], nb.down[i], tv, t)
	f.unlinkNode(t)
	if err != nil {
		return err
	}
	old := nb.down[i]
	nb.set(i, uv, u)
	f.unlinkNode(old)
	return nil
}

// LiftEV rebuilds a multi-terminal integer function from another forest as
// an EV+ edge in f, moving terminal values onto edges.
func (f *Forest) LiftEV(e Edge) (Edge, error) {
	if f.label != EVPlus {
		return Edge{}, errf(TypeMismatch, "lift targets an EV+ forest")
	}
	src := e.f
	if src == nil {
		return Edge{}, errf(InvalidArgument, "zero edge")
	}
	if err := f.checkSameDomain(src); err != nil {
		return Edge{}, err
	}
	if src.label != MultiTerminal || src.rtype != Integer || src.relation != f.relation {
		return Edge{}, errf(TypeMismatch, "lift expects a multi-terminal integer source")
	}
	if err := src.checkEdge(e); err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(src)
	rv, rn, err := f.liftRec(src, e.node, int32(f.d.NumVars()))
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(rv, rn), nil
}

func (f *Forest) liftRec(src *Forest, a int, k int32) (int64, int, error) {
	if k == 0 {
		return src.terminalInt(a), termTrue, nil
	}
	if res, resv, ok := f.ct.find(opLift, a, int(k), 0); ok {
		return resv, f.linkNode(res), nil
	}
	size := f.d.bound(k)
	ra := src.readDense(a, k, -1)
	nb := f.newBuilder(k)
	var err error
	if f.relation {
		for i := 0; i < size && err == nil; i++ {
			pa := src.readDense(ra.down[i], -k, i)
			pnb := f.newBuilder(-k)
			for j := 0; j < size; j++ {
				var cv int64
				var c int
				cv, c, err = f.liftRec(src, pa.down[j], k-1)
				if err != nil {
					break
				}
				pnb.set(j, cv, c)
			}
			src.putReader(pa)
			if err != nil {
				pnb.release()
				break
			}
			var pv int64
			var ph int
			pv, ph, err = f.reduce(i, pnb)
			if err == nil {
				nb.set(i, pv, ph)
			}
		}
	} else {
		for i := 0; i < size; i++ {
			var cv int64
			var c int
			cv, c, err = f.liftRec(src, ra.down[i], k-1)
			if err != nil {
				break
			}
			nb.set(i, cv, c)
		}
	}
	src.putReader(ra)
	if err != nil {
		nb.release()
		return evInf, 0, err
	}
	resv, res, err := f.reduce(-1, nb)
	if err != nil {
		return evInf, 0, err
	}
	f.ct.add(opLift, a, int(k), 0, res, resv)
	return resv, res, nil
}

// relEdgeValue reads the weight of a relation arc: 0 on multi-terminal
// relations, the edge value on EV+ ones.
func relEdgeValue(rel *Forest, bits int64) int64 {
	if rel.label == EVPlus {
		return bits
	}
	return 0
}

// MatVecMult returns y with y(i) = min over j of (m(i,j) + x(j)), the
// matrix-vector product in the min-plus semiring. f owns x and the result;
// m lives in a relation forest over the same domain.
func (f *Forest) MatVecMult(m, x Edge) (Edge, error) {
	return f.matVec(opMatVec, m, x)
}

// VecMatMult returns y with y(j) = min over i of (x(i) + m(i,j)).
func (f *Forest) VecMatMult(m, x Edge) (Edge, error) {
	return f.matVec(opVecMat, m, x)
}

func (f *Forest) matVec(op uint8, m, x Edge) (Edge, error) {
	if f.label != EVPlus || f.relation {
		return Edge{}, errf(TypeMismatch, "matrix-vector products produce EV+ sets")
	}
	if err := f.checkEdge(x); err != nil {
		return Edge{}, err
	}
	rel := m.f
	if rel == nil || !rel.relation {
		return Edge{}, errf(TypeMismatch, "matrix operand is not a relation")
	}
	if err := f.checkSameDomain(rel); err != nil {
		return Edge{}, err
	}
	if err := rel.checkEdge(m); err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(rel)
	rv, rn, err := f.matVecRec(op, rel, m.node, x.node)
	if err != nil {
		return Edge{}, err
	}
	if rn != 0 {
		rv = evChild(rv, relEdgeValue(rel, m.ev), x.ev)
	}
	return f.makeEdge(rv, rn), nil
}

func (f *Forest) matVecRec(op uint8, rel *Forest, mn, xn int) (int64, int, error) {
	if mn == 0 || xn == 0 {
		return evInf, 0, nil
	}
	if mn == termTrue && rel.pol.Reduction == IdentityReduced {
		// identity matrix: the vector is unchanged
		return 0, f.linkNode(xn), nil
	}
	if isTerminal(mn) && xn == termTrue {
		return 0, termTrue, nil
	}
	if res, resv, ok := f.ct.find(op, mn, xn, 0); ok {
		return resv, f.linkNode(res), nil
	}
	k := topAbs(rel.nodeLevel(mn), f.nodeLevel(xn))
	size := f.d.bound(k)
	ru := rel.readDense(mn, k, -1)
	rx := f.readDense(xn, k, -1)
	nb := f.newBuilder(k)
	var err error
	for i := 0; i < size && err == nil; i++ {
		rp := rel.readSparse(ru.down[i], -k, i)
		for jz := 0; jz < rp.nnz && err == nil; jz++ {
			j := rp.index[jz]
			// row index and column index swap roles between the two products
			si, sj := i, j
			if op == opVecMat {
				si, sj = j, i
			}
			if rx.down[sj] == 0 {
				continue
			}
			var tv int64
			var t int
			tv, t, err = f.matVecRec(op, rel, rp.down[jz], rx.down[sj])
			if err != nil || t == 0 {
				continue
			}
			tv = evChild(tv, relEdgeValue(rel, ru.edge[i]), relEdgeValue(rel, rp.edge[jz]), rx.edge[sj])
			err = f.evAccumulate(nb, si, tv, t)
		}
		rel.putReader(rp)
	}
	rel.putReader(ru)
	f.putReader(rx)
	if err != nil {
		nb.release()
		return evInf, 0, err
	}
	resv, res, err := f.reduce(-1, nb)
	if err != nil {
		return evInf, 0, err
	}
	f.ct.add(op, mn, xn, 0, res, resv)
	return resv, res, nil
}

// TransitiveClosure returns the distance-annotated reachability relation of
// a boolean next-state relation: an EV+ matrix whose entry (x, y) is the
// minimum number of steps from x to y. The diagonal carries distance 0.
func (f *Forest) TransitiveClosure(r Edge) (Edge, error) {
	if f.label != EVPlus || !f.relation {
		return Edge{}, errf(TypeMismatch, "transitive closure produces an EV+ relation")
	}
	if f.pol.Reduction != IdentityReduced {
		return Edge{}, errf(NotImplemented, "transitive closure requires identity reduction")
	}
	rel := r.f
	if rel == nil || !rel.relation || rel.label != MultiTerminal || rel.rtype != Boolean {
		return Edge{}, errf(TypeMismatch, "transitive closure expects a boolean relation")
	}
	if rel.pol.Reduction != IdentityReduced {
		return Edge{}, errf(NotImplemented, "transitive closure over a non-identity-reduced relation")
	}
	if err := f.checkSameDomain(rel); err != nil {
		return Edge{}, err
	}
	if err := rel.checkEdge(r); err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(rel)
	f.logPhaseBegin("transitive-closure")
	defer f.logPhaseEnd("transitive-closure")
	// the identity relation at distance zero, then iterate one-step
	// compositions, keeping the pointwise minimum, to the fixed point
	cv, cn := int64(0), termTrue
	for {
		tv, tn, err := f.tcPostRec(rel, cn, r.node)
		if err != nil {
			f.unlinkNode(cn)
			return Edge{}, err
		}
		if tn != 0 {
			tv++ // one more step
		}
		uv, un, err := f.evApply(opEVUnion, cv, cn, evChild(tv, cv), tn)
		f.unlinkNode(tn)
		if err != nil {
			f.unlinkNode(cn)
			return Edge{}, err
		}
		if un == cn && uv == cv {
			f.unlinkNode(un)
			break
		}
		f.unlinkNode(cn)
		cv, cn = uv, un
	}
	return f.makeEdge(cv, cn), nil
}

// tcPostRec composes a distance relation with one step of a boolean
// relation: result(x, z) = min over y of (c(x, y)) such that r(y, z).
func (f *Forest) tcPostRec(rel *Forest, cn, rn int) (int64, int, error) {
	if cn == 0 || rn == 0 {
		return evInf, 0, nil
	}
	if rn == termTrue && rel.pol.Reduction == IdentityReduced {
		return 0, f.linkNode(cn), nil
	}
	if cn == termTrue && isTerminal(rn) {
		return 0, termTrue, nil
	}
	if res, resv, ok := f.ct.find(opTCPost, cn, rn, 0); ok {
		return resv, f.linkNode(res), nil
	}
	k := topAbs(f.nodeLevel(cn), rel.nodeLevel(rn))
	size := f.d.bound(k)
	rc := f.readDense(cn, k, -1)
	rr := rel.readDense(rn, k, -1)
	nb := f.newBuilder(k)
	var err error
	for i := 0; i < size && err == nil; i++ {
		pc := f.readDense(rc.down[i], -k, i)
		pnb := f.newBuilder(-k)
		for j := 0; j < size && err == nil; j++ {
			if pc.down[j] == 0 {
				continue
			}
			pr := rel.readSparse(rr.down[j], -k, j)
			for zz := 0; zz < pr.nnz && err == nil; zz++ {
				var tv int64
				var t int
				tv, t, err = f.tcPostRec(rel, pc.down[j], pr.down[zz])
				if err != nil || t == 0 {
					continue
				}
				tv = evChild(tv, rc.edge[i], pc.edge[j])
				err = f.evAccumulate(pnb, pr.index[zz], tv, t)
			}
			rel.putReader(pr)
		}
		f.putReader(pc)
		if err != nil {
			pnb.release()
			break
		}
		var pv int64
		var ph int
		pv, ph, err = f.reduce(i, pnb)
		if err == nil {
			nb.set(i, pv, ph)
		}
	}
	f.putReader(rc)
	rel.putReader(rr)
	if err != nil {
		nb.release()
		return evInf, 0, err
	}
	resv, res, err := f.reduce(-1, nb)
	if err != nil {
		return evInf, 0, err
	}
	f.ct.add(opTCPost, cn, rn, 0, res, resv)
	return resv, res, nil
}
