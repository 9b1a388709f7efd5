// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// An Edge is the user-facing handle on a function: an edge value, a target
// node, and the forest they live in. Every Edge returned by the library owns
// one incoming-count reference on its node; Clear releases it. Two edges are
// equal exactly when they carry the same value and node in the same forest.
type Edge struct {
	f    *Forest
	node int
	ev   int64
}

// Forest returns the forest the edge belongs to, nil for the zero Edge.
func (e Edge) Forest() *Forest { return e.f }

// Node returns the integer handle of the target node.
func (e Edge) Node() int { return e.node }

// Value returns the edge value of an EV+ edge.
func (e Edge) Value() int64 { return e.ev }

// FloatValue returns the edge value of an EV* edge.
func (e Edge) FloatValue() float64 { return evFloatOfBits(e.ev) }

// Equal reports whether two edges denote the same function. Within one
// forest this is handle equality, by canonicity.
func (e Edge) Equal(o Edge) bool {
	if e.f != o.f {
		return false
	}
	if e.node != o.node {
		return false
	}
	if e.f != nil && e.f.ev() {
		return e.f.evClose(e.ev, o.ev)
	}
	return true
}

// Clone returns a copy of the edge carrying its own node reference.
func (e Edge) Clone() Edge {
	if e.f != nil {
		e.f.linkNode(e.node)
	}
	return e
}

// Clear releases the edge's node reference and resets it to the zero Edge.
// Clearing an already-zero edge is a no-op.
func (e *Edge) Clear() {
	if e.f != nil {
		e.f.unlinkNode(e.node)
	}
	*e = Edge{}
}

// makeEdge wraps a handle the caller already owns one reference on.
func (f *Forest) makeEdge(ev int64, node int) Edge {
	return Edge{f: f, node: node, ev: ev}
}

func (f *Forest) checkEdge(e Edge) error {
	if e.f == nil && e.node <= 0 {
		return errf(InvalidArgument, "zero edge")
	}
	if e.f != f {
		return errf(ForestMismatch, "edge belongs to another forest")
	}
	if e.node > 0 && !f.isActive(e.node) {
		return errf(InvalidArgument, "edge points to a dead node (%d)", e.node)
	}
	return nil
}

func (f *Forest) checkSameDomain(other *Forest) error {
	if other.d != f.d {
		return errf(DomainMismatch, "forests live on different domains")
	}
	return nil
}

// FromBool returns the constant edge for a boolean value.
func (f *Forest) FromBool(v bool) (Edge, error) {
	if f.rtype != Boolean || f.label != MultiTerminal {
		return Edge{}, errf(TypeMismatch, "FromBool on a %v/%v forest", f.rtype, f.label)
	}
	h, err := f.buildConstant(terminalOfBool(v))
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, h), nil
}

// FromInt returns the constant edge for an integer value. On EV+ forests the
// value rides on the edge, pointing at the omega terminal.
func (f *Forest) FromInt(v int64) (Edge, error) {
	switch {
	case f.label == EVPlus:
		h, err := f.buildConstant(termTrue)
		if err != nil {
			return Edge{}, err
		}
		return f.makeEdge(v, h), nil
	case f.label == MultiTerminal && f.rtype == Integer:
		if int64(int32(v)) != v {
			return Edge{}, errf(InvalidAssignment, "terminal value %d out of range", v)
		}
		h, err := f.buildConstant(terminalOfInt(v))
		if err != nil {
			return Edge{}, err
		}
		return f.makeEdge(0, h), nil
	}
	return Edge{}, errf(TypeMismatch, "FromInt on a %v/%v forest", f.rtype, f.label)
}

// FromFloat returns the constant edge for a real value.
func (f *Forest) FromFloat(v float64) (Edge, error) {
	switch {
	case f.label == EVTimes:
		h, err := f.buildConstant(termTrue)
		if err != nil {
			return Edge{}, err
		}
		return f.makeEdge(evFloatBits(v), h), nil
	case f.label == MultiTerminal && f.rtype == Real:
		h, err := f.buildConstant(terminalOfFloat(v))
		if err != nil {
			return Edge{}, err
		}
		return f.makeEdge(0, h), nil
	}
	return Edge{}, errf(TypeMismatch, "FromFloat on a %v/%v forest", f.rtype, f.label)
}

// buildConstant returns a handle encoding the constant function with the
// given terminal. Under fully reduction this is the terminal itself; quasi
// and identity rules materialize the chain their canonical form requires.
// The returned handle carries one reference for the caller.
func (f *Forest) buildConstant(term int) (int, error) {
	return f.constantAt(term, int32(f.d.NumVars()))
}

// constantAt builds the constant chain up to the given level only.
func (f *Forest) constantAt(term int, upto int32) (int, error) {
	switch f.pol.Reduction {
	case FullyReduced:
		return term, nil
	case IdentityReduced:
		if term == 0 {
			return 0, nil
		}
		// redundant primed nodes carry the "don't care" meaning that a bare
		// skip would turn into an identity
		cur := term
		for k := int32(1); k <= upto; k++ {
			b := f.newBuilder(-k)
			for i := 0; i < b.size; i++ {
				f.linkNode(cur)
				b.set(i, f.evIdentity(), cur)
			}
			f.unlinkNode(cur)
			_, h, err := f.reduce(-1, b)
			if err != nil {
				return 0, err
			}
			cur = h
		}
		return cur, nil
	default: // QuasiReduced
		if term == 0 {
			return 0, nil
		}
		cur := term
		for k := int32(1); k <= upto; k++ {
			if f.relation {
				b := f.newBuilder(-k)
				for i := 0; i < b.size; i++ {
					f.linkNode(cur)
					b.set(i, f.evIdentity(), cur)
				}
				f.unlinkNode(cur)
				_, h, err := f.reduce(-1, b)
				if err != nil {
					return 0, err
				}
				cur = h
			}
			b := f.newBuilder(k)
			for i := 0; i < b.size; i++ {
				f.linkNode(cur)
				b.set(i, f.evIdentity(), cur)
			}
			f.unlinkNode(cur)
			_, h, err := f.reduce(-1, b)
			if err != nil {
				return 0, err
			}
			cur = h
		}
		return cur, nil
	}
}

// eval walks one assignment down from the top level and returns the
// accumulated edge value and the terminal reached. vals[k-1] is the value of
// the variable at level k; pvals is used for primed levels of relations.
func (f *Forest) eval(e Edge, vals, pvals []int) (int64, int, error) {
	if err := f.checkEdge(e); err != nil {
		return 0, 0, err
	}
	n := f.d.NumVars()
	if len(vals) < n || (f.relation && len(pvals) < n) {
		return 0, 0, errf(InvalidAssignment, "assignment shorter than the domain")
	}
	acc := e.ev
	cur := e.node
	for k := n; k >= 1; k-- {
		bound := f.d.bound(int32(k))
		i := vals[k-1]
		if i < 0 || i >= bound {
			return 0, 0, errf(InvalidAssignment, "value %d out of bounds at level %d", i, k)
		}
		var j int
		if f.relation {
			j = pvals[k-1]
			if j < 0 || j >= bound {
				return 0, 0, errf(InvalidAssignment, "primed value %d out of bounds at level %d", j, k)
			}
		}
		if f.nodeLevel(cur) == int32(k) {
			r := f.readDense(cur, int32(k), -1)
			acc = f.evCompose(acc, r.edge[i])
			cur = r.down[i]
			f.putReader(r)
			if cur == 0 {
				return f.evTransparent(), 0, nil
			}
		}
		if !f.relation {
			continue
		}
		if f.nodeLevel(cur) == int32(-k) {
			r := f.readDense(cur, int32(-k), i)
			acc = f.evCompose(acc, r.edge[j])
			cur = r.down[j]
			f.putReader(r)
			if cur == 0 {
				return f.evTransparent(), 0, nil
			}
		} else if f.pol.Reduction == IdentityReduced {
			// a skipped primed level selects the unprimed index
			if i != j {
				return f.evTransparent(), 0, nil
			}
		}
	}
	return acc, cur, nil
}

// EvalBool returns the boolean value of e on one assignment.
func (f *Forest) EvalBool(e Edge, vals, pvals []int) (bool, error) {
	_, t, err := f.eval(e, vals, pvals)
	if err != nil {
		return false, err
	}
	return boolOfTerminal(t), nil
}

// EvalInt returns the integer value of e on one assignment, including the
// accumulated edge value on EV+ forests.
func (f *Forest) EvalInt(e Edge, vals, pvals []int) (int64, error) {
	acc, t, err := f.eval(e, vals, pvals)
	if err != nil {
		return 0, err
	}
	if f.label == EVPlus {
		if t == 0 {
			return evInf, nil
		}
		return acc, nil
	}
	return f.terminalInt(t), nil
}

// EvalFloat returns the real value of e on one assignment.
func (f *Forest) EvalFloat(e Edge, vals, pvals []int) (float64, error) {
	acc, t, err := f.eval(e, vals, pvals)
	if err != nil {
		return 0, err
	}
	if f.label == EVTimes {
		if t == 0 {
			return 0, nil
		}
		return evFloatOfBits(acc), nil
	}
	return f.terminalFloat(t), nil
}
