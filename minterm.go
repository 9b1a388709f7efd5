// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// Batch construction of edges from explicit tuples. A minterm assigns one
// value per level, bottom-up: mt[k-1] is the value of the variable at level
// k, or DontCare. In the column part of a relation pair, DontChange keeps
// the variable at its unprimed value.
//
// A batch is built as one chain per minterm, accumulated through the apply
// engine: union for boolean ranges, maximum for the other multi-terminal
// ranges and minimum for EV+, so overlapping minterms merge
// deterministically whatever the input order.
const (
	DontCare   = -1
	DontChange = -2
)

func (f *Forest) checkMinterm(mt []int, primed bool) error {
	if len(mt) < f.d.NumVars() {
		return errf(InvalidAssignment, "minterm shorter than the domain")
	}
	for k := 1; k <= f.d.NumVars(); k++ {
		v := mt[k-1]
		if v == DontCare || (primed && v == DontChange) {
			continue
		}
		if v < 0 || v >= f.d.bound(int32(k)) {
			return errf(InvalidAssignment, "value %d out of bounds at level %d", v, k)
		}
	}
	return nil
}

// EdgeFromMinterms returns the set of tuples listed in mts.
func (f *Forest) EdgeFromMinterms(mts [][]int) (Edge, error) {
	if f.relation {
		return Edge{}, errf(TypeMismatch, "EdgeFromMinterms on a relation forest; use EdgeFromMintermPairs")
	}
	if f.rtype != Boolean {
		return Edge{}, errf(TypeMismatch, "EdgeFromMinterms needs a boolean forest; use EdgeFromValues")
	}
	return f.accumulateMinterms(mts, nil)
}

// EdgeFromValues returns the function mapping each listed tuple to the
// matching term: the maximum term on overlapping multi-terminal tuples, the
// minimum on EV+ ones.
func (f *Forest) EdgeFromValues(mts [][]int, terms []int64) (Edge, error) {
	if f.relation {
		return Edge{}, errf(TypeMismatch, "EdgeFromValues on a relation forest")
	}
	if f.rtype == Real {
		return Edge{}, errf(TypeMismatch, "EdgeFromValues on a real forest")
	}
	if len(terms) != len(mts) {
		return Edge{}, errf(InvalidArgument, "got %d terms for %d minterms", len(terms), len(mts))
	}
	if f.label == MultiTerminal {
		for _, v := range terms {
			if int64(int32(v)) != v {
				return Edge{}, errf(InvalidAssignment, "terminal value %d out of range", v)
			}
		}
	}
	return f.accumulateMinterms(mts, terms)
}

func (f *Forest) accumulateMinterms(mts [][]int, terms []int64) (Edge, error) {
	for _, mt := range mts {
		if err := f.checkMinterm(mt, false); err != nil {
			return Edge{}, err
		}
	}
	var acc Edge
	accSet := false
	for s, mt := range mts {
		term := int64(1)
		if terms != nil {
			term = terms[s]
		}
		cv, cur, err := f.mintermChain(mt, term)
		if err != nil {
			acc.Clear()
			return Edge{}, err
		}
		one := f.makeEdge(cv, cur)
		if !accSet {
			acc = one
			accSet = true
			continue
		}
		next, err := f.mergeEdges(acc, one)
		one.Clear()
		acc.Clear()
		if err != nil {
			return Edge{}, err
		}
		acc = next
	}
	if !accSet {
		return f.makeEdge(f.evTransparent(), 0), nil
	}
	return acc, nil
}

// mergeEdges accumulates batch entries with the merge operation of the
// forest kind.
func (f *Forest) mergeEdges(a, b Edge) (Edge, error) {
	if f.label == EVPlus {
		rv, rn, err := f.evApply(opEVUnion, a.ev, a.node, b.ev, b.node)
		if err != nil {
			return Edge{}, err
		}
		return f.makeEdge(rv, rn), nil
	}
	op := opUnion
	if f.rtype != Boolean {
		op = opMax
	}
	res, err := f.applyMT(op, a.node, b.node)
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

// mintermChain builds the chain of one minterm bottom-up. The returned
// handle carries one reference.
func (f *Forest) mintermChain(mt []int, term int64) (int64, int, error) {
	var cv int64
	var cur int
	switch f.label {
	case EVPlus:
		cv, cur = term, termTrue
	default:
		switch f.rtype {
		case Boolean:
			cv, cur = 0, terminalOfBool(term != 0)
		case Integer:
			cv, cur = 0, terminalOfInt(term)
		default:
			cv, cur = 0, terminalOfFloat(float64(term))
		}
	}
	for k := int32(1); k <= int32(f.d.NumVars()); k++ {
		b := f.newBuilder(k)
		v := mt[k-1]
		if v == DontCare {
			for i := 0; i < b.size; i++ {
				f.linkNode(cur)
				b.set(i, cv, cur)
			}
			f.unlinkNode(cur)
		} else {
			b.set(v, cv, cur)
		}
		var err error
		cv, cur, err = f.reduce(-1, b)
		if err != nil {
			return 0, 0, err
		}
	}
	return cv, cur, nil
}

// EdgeFromMintermPairs returns the relation containing one pair per
// (row, col) entry. Columns may use DontChange to keep a variable at its
// row value.
func (f *Forest) EdgeFromMintermPairs(rows, cols [][]int) (Edge, error) {
	if !f.relation {
		return Edge{}, errf(TypeMismatch, "EdgeFromMintermPairs needs a relation forest")
	}
	if f.rtype != Boolean || f.label != MultiTerminal {
		return Edge{}, errf(TypeMismatch, "EdgeFromMintermPairs needs a boolean relation")
	}
	if len(rows) != len(cols) {
		return Edge{}, errf(InvalidArgument, "got %d rows for %d cols", len(rows), len(cols))
	}
	for i := range rows {
		if err := f.checkMinterm(rows[i], false); err != nil {
			return Edge{}, err
		}
		if err := f.checkMinterm(cols[i], true); err != nil {
			return Edge{}, err
		}
	}
	var acc Edge
	accSet := false
	for s := range rows {
		cur, err := f.pairChain(rows[s], cols[s])
		if err != nil {
			acc.Clear()
			return Edge{}, err
		}
		one := f.makeEdge(0, cur)
		if !accSet {
			acc = one
			accSet = true
			continue
		}
		res, err := f.applyMT(opUnion, acc.node, one.node)
		one.Clear()
		acc.Clear()
		if err != nil {
			return Edge{}, err
		}
		acc = f.makeEdge(0, res)
	}
	if !accSet {
		return f.makeEdge(0, 0), nil
	}
	return acc, nil
}

// pairChain builds the two-level chain of one relation pair bottom-up.
func (f *Forest) pairChain(row, col []int) (int, error) {
	cur := termTrue
	identity := f.pol.Reduction == IdentityReduced
	for k := int32(1); k <= int32(f.d.NumVars()); k++ {
		i, j := row[k-1], col[k-1]
		if identity && i == DontCare && j == DontChange {
			// the pair acts as the identity on this variable: skip it
			continue
		}
		var err error
		if j == DontChange {
			// diagonal selection: one primed node per source value
			b := f.newBuilder(k)
			lo, hi := i, i
			if i == DontCare {
				lo, hi = 0, b.size-1
			}
			for x := lo; x <= hi; x++ {
				pb := f.newBuilder(-k)
				f.linkNode(cur)
				pb.set(x, f.evIdentity(), cur)
				var h int
				_, h, err = f.reduce(x, pb)
				if err != nil {
					b.release()
					f.unlinkNode(cur)
					return 0, err
				}
				b.set(x, 0, h)
			}
			f.unlinkNode(cur)
			_, cur, err = f.reduce(-1, b)
			if err != nil {
				return 0, err
			}
			continue
		}
		// the primed node is shared by every selected source value
		pb := f.newBuilder(-k)
		if j == DontCare {
			for y := 0; y < pb.size; y++ {
				f.linkNode(cur)
				pb.set(y, f.evIdentity(), cur)
			}
		} else {
			f.linkNode(cur)
			pb.set(j, f.evIdentity(), cur)
		}
		f.unlinkNode(cur)
		var p int
		_, p, err = f.reduce(-1, pb)
		if err != nil {
			return 0, err
		}
		b := f.newBuilder(k)
		for x := 0; x < b.size; x++ {
			if i != DontCare && x != i {
				continue
			}
			if identity && x == j {
				// at index j the primed node is the identity pattern, which
				// collapses to its child
				b.set(x, 0, f.linkNode(cur))
			} else {
				b.set(x, 0, f.linkNode(p))
			}
		}
		f.unlinkNode(p)
		_, cur, err = f.reduce(-1, b)
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

// VarEdge returns the projection on the variable at one level: the function
// mapping every tuple to its value at that level.
func (f *Forest) VarEdge(level int) (Edge, error) {
	if f.relation {
		return Edge{}, errf(NotImplemented, "variable projections on relation forests")
	}
	if level < 1 || level > f.d.NumVars() {
		return Edge{}, errf(InvalidVariable, "no variable at level %d", level)
	}
	size := f.d.bound(int32(level))
	terms := make([]int64, size)
	for i := range terms {
		terms[i] = int64(i)
	}
	return f.VarEdgeTerms(level, terms)
}

// VarEdgeTerms returns the function mapping every tuple with value i at the
// given level to terms[i].
func (f *Forest) VarEdgeTerms(level int, terms []int64) (Edge, error) {
	if f.relation {
		return Edge{}, errf(NotImplemented, "variable projections on relation forests")
	}
	if level < 1 || level > f.d.NumVars() {
		return Edge{}, errf(InvalidVariable, "no variable at level %d", level)
	}
	size := f.d.bound(int32(level))
	if len(terms) != size {
		return Edge{}, errf(InvalidArgument, "got %d terms for bound %d", len(terms), size)
	}
	nb := f.newBuilder(int32(level))
	for i := 0; i < size; i++ {
		var cv int64
		var c int
		var err error
		switch f.label {
		case EVPlus:
			cv, c = terms[i], termTrue
		default:
			switch f.rtype {
			case Boolean:
				c = terminalOfBool(terms[i] != 0)
			case Integer:
				if int64(int32(terms[i])) != terms[i] {
					nb.release()
					return Edge{}, errf(InvalidAssignment, "terminal value %d out of range", terms[i])
				}
				c = terminalOfInt(terms[i])
			default:
				c = terminalOfFloat(float64(terms[i]))
			}
			cv = 0
		}
		if c != 0 {
			var h int
			h, err = f.constantAt(c, int32(level)-1)
			if err != nil {
				nb.release()
				return Edge{}, err
			}
			c = h
		}
		nb.set(i, cv, c)
	}
	ev, h, err := f.reduce(-1, nb)
	if err != nil {
		return Edge{}, err
	}
	return f.wrapToTop(ev, h)
}

// wrapToTop lifts a freshly built node to the top level when the reduction
// rule does not allow skipped levels above the root.
func (f *Forest) wrapToTop(ev int64, h int) (Edge, error) {
	if f.pol.Reduction != QuasiReduced {
		return f.makeEdge(ev, h), nil
	}
	cur := h
	for k := f.nodeLevel(cur) + 1; k <= int32(f.d.NumVars()); k++ {
		b := f.newBuilder(k)
		for i := 0; i < b.size; i++ {
			f.linkNode(cur)
			b.set(i, f.evIdentity(), cur)
		}
		f.unlinkNode(cur)
		_, nh, err := f.reduce(-1, b)
		if err != nil {
			return Edge{}, err
		}
		cur = nh
	}
	return f.makeEdge(ev, cur), nil
}
