// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// Relational operations connect a set forest and a relation forest on the
// same domain: images of a set through a relation, breadth-first
// reachability, and the cross product of two sets.

func (f *Forest) checkRelArgs(s Edge, r Edge) (*Forest, error) {
	if err := f.checkEdge(s); err != nil {
		return nil, err
	}
	if f.relation {
		return nil, errf(TypeMismatch, "image operations expect a set forest")
	}
	rel := r.f
	if rel == nil {
		return nil, errf(InvalidArgument, "zero relation edge")
	}
	if !rel.relation {
		return nil, errf(TypeMismatch, "next-state argument is not a relation")
	}
	if err := f.checkSameDomain(rel); err != nil {
		return nil, err
	}
	if err := rel.checkEdge(r); err != nil {
		return nil, err
	}
	if f.rtype != Boolean || rel.rtype != Boolean {
		return nil, errf(TypeMismatch, "images are defined on boolean forests")
	}
	return rel, nil
}

// PostImage returns the set of states reachable in one step from s through
// relation r.
func (f *Forest) PostImage(s Edge, r Edge) (Edge, error) {
	rel, err := f.checkRelArgs(s, r)
	if err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(rel)
	res, err := f.imageRec(opPostImage, rel, s.node, r.node)
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

// PreImage returns the set of states that reach s in one step through
// relation r.
func (f *Forest) PreImage(s Edge, r Edge) (Edge, error) {
	rel, err := f.checkRelArgs(s, r)
	if err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(rel)
	res, err := f.imageRec(opPreImage, rel, s.node, r.node)
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

// accumulate unions t into slot i of builder nb, consuming the caller's
// reference on t.
func (f *Forest) accumulate(nb *builder, i, t int) error {
	if t == 0 {
		return nil
	}
	if nb.down[i] == 0 {
		nb.set(i, 0, t)
		return nil
	}
	u, err := f.applyMT(opUnion, nb.down[i], t)
	f.unlinkNode(t)
	if err != nil {
		return err
	}
	old := nb.down[i]
	nb.set(i, 0, u)
	f.unlinkNode(old)
	return nil
}

// imageRec computes the forward (post) or backward (pre) image of set node s
// through relation node r.
func (f *Forest) imageRec(op uint8, rel *Forest, s, r int) (int, error) {
	if s == 0 || r == 0 {
		return 0, nil
	}
	if r == termTrue && rel.pol.Reduction == IdentityReduced {
		// the remaining relation is the identity
		return f.linkNode(s), nil
	}
	if isTerminal(s) && isTerminal(r) {
		return termTrue, nil
	}
	if res, _, ok := f.ct.find(op, s, r, 0); ok {
		return f.linkNode(res), nil
	}
	k := f.nodeLevel(s)
	if m := absLevel(rel.nodeLevel(r)); m > k {
		k = m
	}
	size := f.d.bound(k)
	rs := f.readDense(s, k, -1)
	nb := f.newBuilder(k)
	var err error
	if absLevel(rel.nodeLevel(r)) < k {
		if rel.pol.Reduction == IdentityReduced {
			// relation skips the pair: states keep their value of this
			// variable
			for i := 0; i < size && err == nil; i++ {
				var t int
				t, err = f.imageRec(op, rel, rs.down[i], r)
				if err == nil {
					nb.set(i, 0, t)
				}
			}
		} else {
			// fully-reduced skip: any value maps to any value
			all := 0
			for i := 0; i < size && err == nil; i++ {
				var t int
				t, err = f.imageRec(op, rel, rs.down[i], r)
				if err == nil {
					err = f.accumulate(nb, 0, t)
				}
			}
			if err == nil {
				all = nb.down[0]
				for i := 1; i < size; i++ {
					nb.set(i, 0, f.linkNode(all))
				}
			}
		}
	} else {
		ru := rel.readSparse(r, k, -1)
		for iz := 0; iz < ru.nnz && err == nil; iz++ {
			i := ru.index[iz]
			rp := rel.readSparse(ru.down[iz], -k, i)
			for jz := 0; jz < rp.nnz && err == nil; jz++ {
				j := rp.index[jz]
				var t int
				if op == opPostImage {
					if rs.down[i] == 0 {
						continue
					}
					t, err = f.imageRec(op, rel, rs.down[i], rp.down[jz])
					if err == nil {
						err = f.accumulate(nb, j, t)
					}
				} else {
					if rs.down[j] == 0 {
						continue
					}
					t, err = f.imageRec(op, rel, rs.down[j], rp.down[jz])
					if err == nil {
						err = f.accumulate(nb, i, t)
					}
				}
			}
			rel.putReader(rp)
		}
		rel.putReader(ru)
	}
	f.putReader(rs)
	if err != nil {
		nb.release()
		return 0, err
	}
	_, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, err
	}
	f.ct.add(op, s, r, 0, res, 0)
	return res, nil
}

// ReachableBFS iterates post-images from init until the set is closed under
// rel. It agrees with ReachableDFS.
func (f *Forest) ReachableBFS(init, rel Edge) (Edge, error) {
	relF, err := f.checkRelArgs(init, rel)
	if err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(relF)
	f.logPhaseBegin("reachable-bfs")
	defer f.logPhaseEnd("reachable-bfs")
	s := f.linkNode(init.node)
	for {
		p, err := f.imageRec(opPostImage, relF, s, rel.node)
		if err != nil {
			f.unlinkNode(s)
			return Edge{}, err
		}
		u, err := f.applyMT(opUnion, s, p)
		f.unlinkNode(p)
		if err != nil {
			f.unlinkNode(s)
			return Edge{}, err
		}
		if u == s {
			f.unlinkNode(u)
			break
		}
		f.unlinkNode(s)
		s = u
	}
	return f.makeEdge(0, s), nil
}

// CrossProduct builds, in relation forest f, the rectangle rows x cols of
// two sets from the same set forest: (x, y) belongs to the result when x
// belongs to rows and y to cols.
func (f *Forest) CrossProduct(rows, cols Edge) (Edge, error) {
	if !f.relation {
		return Edge{}, errf(TypeMismatch, "cross product builds a relation")
	}
	src := rows.f
	if src == nil || cols.f != src {
		return Edge{}, errf(ForestMismatch, "cross product operands must share one set forest")
	}
	if src.relation {
		return Edge{}, errf(TypeMismatch, "cross product operands are sets")
	}
	if err := f.checkSameDomain(src); err != nil {
		return Edge{}, err
	}
	if err := src.checkEdge(rows); err != nil {
		return Edge{}, err
	}
	if err := src.checkEdge(cols); err != nil {
		return Edge{}, err
	}
	f.ct.setPeer(src)
	res, err := f.crossRec(src, rows.node, cols.node, int32(f.d.NumVars()))
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

func (f *Forest) crossRec(src *Forest, a, b int, k int32) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if k == 0 {
		return termTrue, nil
	}
	if res, _, ok := f.ct.find(opCross, a, b, int(k)); ok {
		return f.linkNode(res), nil
	}
	size := f.d.bound(k)
	ra := src.readDense(a, k, -1)
	rb := src.readDense(b, k, -1)
	nb := f.newBuilder(k)
	var err error
	for i := 0; i < size && err == nil; i++ {
		if ra.down[i] == 0 {
			continue
		}
		pnb := f.newBuilder(-k)
		for j := 0; j < size; j++ {
			if rb.down[j] == 0 {
				continue
			}
			var c int
			c, err = f.crossRec(src, ra.down[i], rb.down[j], k-1)
			if err != nil {
				break
			}
			pnb.set(j, 0, c)
		}
		if err != nil {
			pnb.release()
			break
		}
		var h int
		_, h, err = f.reduce(i, pnb)
		if err == nil {
			nb.set(i, 0, h)
		}
	}
	src.putReader(ra)
	src.putReader(rb)
	if err != nil {
		nb.release()
		return 0, err
	}
	_, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, err
	}
	f.ct.add(opCross, a, b, int(k), res, 0)
	return res, nil
}
