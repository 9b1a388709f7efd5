// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// Saturation computes the least fixed point of a set under a next-state
// relation by firing events level by level, bottom-up: the children of a
// node are fully saturated in isolation before any event with that node's
// top variable fires. The relation is split once into per-level events, each
// the identity above its level; recFire applies one event to one sub-set and
// saturates the result again before it is unioned back in.

type saturation struct {
	f      *Forest // set forest, owns the result
	rel    *Forest
	splits []int // per-level events, linked in rel
}

// ReachableDFS returns the least set containing init and closed under rel,
// computed by saturation.
func (f *Forest) ReachableDFS(init, rel Edge) (Edge, error) {
	relF, err := f.checkRelArgs(init, rel)
	if err != nil {
		return Edge{}, err
	}
	if relF.pol.Reduction != IdentityReduced {
		// the event split reads skipped pairs as the identity
		return Edge{}, errf(NotImplemented, "saturation over a non-identity-reduced relation")
	}
	f.ct.setPeer(relF)
	f.logPhaseBegin("saturation")
	defer f.logPhaseEnd("saturation")
	sc := &saturation{f: f, rel: relF}
	if err := sc.split(rel.node); err != nil {
		sc.dispose()
		return Edge{}, err
	}
	res, err := sc.saturate(init.node, int32(f.d.NumVars()))
	sc.dispose()
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

// dispose releases the split relation and flushes the saturation entries,
// whose meaning depends on the split.
func (sc *saturation) dispose() {
	for _, h := range sc.splits {
		sc.rel.unlinkNode(h)
	}
	sc.splits = nil
	sc.f.ct.removeAll(opSaturate)
	sc.f.ct.removeAll(opRecFire)
}

// split partitions the relation into per-level events: splits[k] holds
// exactly the transitions whose top variable is k, extracted top-down by
// intersecting along the diagonal and keeping the difference.
func (sc *saturation) split(mxd int) error {
	rel := sc.rel
	n := sc.f.d.NumVars()
	sc.splits = make([]int, n+1)
	rel.linkNode(mxd)
	for k := int32(n); k >= 1; k-- {
		if mxd == 0 || int32(absLevel(rel.nodeLevel(mxd))) < k {
			// identity above this level, nothing to fire here
			sc.splits[k] = 0
			continue
		}
		size := rel.d.bound(k)
		ru := rel.readDense(mxd, k, -1)
		maxDiag := 0
		for i := 0; i < size; i++ {
			rp := rel.readDense(ru.down[i], -k, i)
			d := rp.down[i]
			rel.putReader(rp)
			if i == 0 {
				maxDiag = rel.linkNode(d)
				continue
			}
			nmd, err := rel.applyMT(opIntersect, maxDiag, d)
			rel.unlinkNode(maxDiag)
			if err != nil {
				rel.putReader(ru)
				rel.unlinkNode(mxd)
				return err
			}
			maxDiag = nmd
		}
		rel.putReader(ru)
		diff, err := rel.applyMT(opDifference, mxd, maxDiag)
		if err != nil {
			rel.unlinkNode(maxDiag)
			rel.unlinkNode(mxd)
			return err
		}
		sc.splits[k] = diff
		rel.unlinkNode(mxd)
		mxd = maxDiag
	}
	rel.unlinkNode(mxd)
	return nil
}

// saturate returns the closure of node n, restricted to levels at or below
// k. The returned handle carries one reference.
func (sc *saturation) saturate(n int, k int32) (int, error) {
	f := sc.f
	if n == 0 {
		return 0, nil
	}
	if k == 0 {
		return n, nil
	}
	if res, _, ok := f.ct.find(opSaturate, n, int(k), 0); ok {
		return f.linkNode(res), nil
	}
	size := f.d.bound(k)
	rn := f.readDense(n, k, -1)
	nb := f.newBuilder(k)
	var err error
	for i := 0; i < size; i++ {
		var c int
		c, err = sc.saturate(rn.down[i], k-1)
		if err != nil {
			break
		}
		nb.set(i, 0, c)
	}
	f.putReader(rn)
	if err == nil {
		err = sc.saturateHelper(k, nb)
	}
	if err != nil {
		nb.release()
		return 0, err
	}
	_, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, err
	}
	f.ct.add(opSaturate, n, int(k), 0, res, 0)
	return res, nil
}

// saturateHelper fires the level-k events on a builder whose children are
// already saturated, until no child grows. A waiting set tracks the indices
// whose sets were updated since their last visit.
func (sc *saturation) saturateHelper(k int32, nb *builder) error {
	mxd := sc.splits[k]
	if mxd == 0 {
		return nil
	}
	f, rel := sc.f, sc.rel
	size := nb.size
	ru := rel.readDense(mxd, k, -1)
	defer rel.putReader(ru)
	queue := make([]int, 0, size)
	waiting := make([]bool, size)
	for i := 0; i < size; i++ {
		if nb.down[i] != 0 && ru.down[i] != 0 {
			queue = append(queue, i)
			waiting[i] = true
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		waiting[i] = false
		if nb.down[i] == 0 || ru.down[i] == 0 {
			continue
		}
		rp := rel.readSparse(ru.down[i], -k, i)
		for jz := 0; jz < rp.nnz; jz++ {
			j := rp.index[jz]
			rec, err := sc.recFire(nb.down[i], rp.down[jz])
			if err != nil {
				rel.putReader(rp)
				return err
			}
			if rec == 0 {
				continue
			}
			if rec == nb.down[j] {
				f.unlinkNode(rec)
				continue
			}
			updated := true
			if nb.down[j] == 0 {
				nb.set(j, 0, rec)
			} else {
				u, err := f.applyMT(opUnion, nb.down[j], rec)
				f.unlinkNode(rec)
				if err != nil {
					rel.putReader(rp)
					return err
				}
				if u == nb.down[j] {
					f.unlinkNode(u)
					updated = false
				} else {
					old := nb.down[j]
					nb.set(j, 0, u)
					f.unlinkNode(old)
				}
			}
			if updated {
				if j == i {
					// the source set grew; restart the row
					jz = -1
				} else if !waiting[j] && ru.down[j] != 0 {
					queue = append(queue, j)
					waiting[j] = true
				}
			}
		}
		rel.putReader(rp)
	}
	return nil
}

// recFire applies one event to one sub-set and saturates the result.
func (sc *saturation) recFire(m, r int) (int, error) {
	f, rel := sc.f, sc.rel
	if m == 0 || r == 0 {
		return 0, nil
	}
	if r == termTrue && rel.pol.Reduction == IdentityReduced {
		return f.linkNode(m), nil
	}
	if isTerminal(m) && isTerminal(r) {
		return termTrue, nil
	}
	if res, _, ok := f.ct.find(opRecFire, m, r, 0); ok {
		return f.linkNode(res), nil
	}
	k := f.nodeLevel(m)
	if x := int32(absLevel(rel.nodeLevel(r))); x > k {
		k = x
	}
	size := f.d.bound(k)
	rm := f.readDense(m, k, -1)
	nb := f.newBuilder(k)
	var err error
	if int32(absLevel(rel.nodeLevel(r))) < k {
		if rel.pol.Reduction == IdentityReduced {
			for i := 0; i < size && err == nil; i++ {
				var t int
				t, err = sc.recFire(rm.down[i], r)
				if err == nil {
					nb.set(i, 0, t)
				}
			}
		} else {
			for i := 0; i < size && err == nil; i++ {
				var t int
				t, err = sc.recFire(rm.down[i], r)
				if err == nil {
					err = f.accumulate(nb, 0, t)
				}
			}
			if err == nil {
				all := nb.down[0]
				for i := 1; i < size; i++ {
					nb.set(i, 0, f.linkNode(all))
				}
			}
		}
	} else {
		ru := rel.readSparse(r, k, -1)
		for iz := 0; iz < ru.nnz && err == nil; iz++ {
			i := ru.index[iz]
			if rm.down[i] == 0 {
				continue
			}
			rp := rel.readSparse(ru.down[iz], -k, i)
			for jz := 0; jz < rp.nnz && err == nil; jz++ {
				var t int
				t, err = sc.recFire(rm.down[i], rp.down[jz])
				if err == nil {
					err = f.accumulate(nb, rp.index[jz], t)
				}
			}
			rel.putReader(rp)
		}
		rel.putReader(ru)
	}
	f.putReader(rm)
	if err == nil {
		err = sc.saturateHelper(k, nb)
	}
	if err != nil {
		nb.release()
		return 0, err
	}
	_, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, err
	}
	f.ct.add(opRecFire, m, r, 0, res, 0)
	return res, nil
}
