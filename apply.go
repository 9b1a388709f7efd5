// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// The apply driver realizes every binary operation on multi-terminal
// forests: compute terminal cases directly, try the per-operation
// short-circuits, canonicalize commutative operand order, probe the compute
// table, then recurse over the children of both operands unfolded at the top
// level of the pair. Relation forests recurse twice per variable, once for
// the unprimed row level and once for the primed column level.

var opNames = [numOps]string{
	opUnion:      "union",
	opIntersect:  "intersection",
	opDifference: "difference",
	opComplement: "complement",
	opCopy:       "copy",
	opMin:        "min",
	opMax:        "max",
	opPlus:       "plus",
	opMinus:      "minus",
	opTimes:      "times",
	opDivide:     "divide",
	opEqual:      "equal",
	opNotEqual:   "not-equal",
	opLess:       "less-than",
	opLessEq:     "less-or-equal",
	opGreater:    "greater-than",
	opGreaterEq:  "greater-or-equal",
	opCross:      "cross",
	opPreImage:   "pre-image",
	opPostImage:  "post-image",
	opSaturate:   "saturate",
	opRecFire:    "rec-fire",
	opEVUnion:    "ev-union",
	opTCPost:     "tc-post-image",
	opMatVec:     "matrix-vector",
	opVecMat:     "vector-matrix",
	opLift:       "lift",
}

func opCommutes(op uint8) bool {
	switch op {
	case opUnion, opIntersect, opMin, opMax, opPlus, opTimes, opEqual, opNotEqual:
		return true
	}
	return false
}

// termBinary computes op on a pair of terminals.
func (f *Forest) termBinary(op uint8, a, b int) (int, error) {
	switch f.rtype {
	case Boolean:
		x, y := boolOfTerminal(a), boolOfTerminal(b)
		switch op {
		case opUnion:
			return terminalOfBool(x || y), nil
		case opIntersect:
			return terminalOfBool(x && y), nil
		case opDifference:
			return terminalOfBool(x && !y), nil
		case opEqual:
			return terminalOfBool(x == y), nil
		case opNotEqual:
			return terminalOfBool(x != y), nil
		}
		return 0, errf(TypeMismatch, "operation %s on a boolean forest", opNames[op])
	case Integer:
		x, y := intOfTerminal(a), intOfTerminal(b)
		var v int64
		switch op {
		case opMin:
			if v = x; y < x {
				v = y
			}
		case opMax:
			if v = x; y > x {
				v = y
			}
		case opPlus:
			v = x + y
		case opMinus:
			v = x - y
		case opTimes:
			v = x * y
		case opDivide:
			if y == 0 {
				return 0, errf(InvalidOperation, "division by zero")
			}
			v = x / y
		case opEqual:
			return boolAsInt(f, x == y), nil
		case opNotEqual:
			return boolAsInt(f, x != y), nil
		case opLess:
			return boolAsInt(f, x < y), nil
		case opLessEq:
			return boolAsInt(f, x <= y), nil
		case opGreater:
			return boolAsInt(f, x > y), nil
		case opGreaterEq:
			return boolAsInt(f, x >= y), nil
		default:
			return 0, errf(TypeMismatch, "operation %s on an integer forest", opNames[op])
		}
		if int64(int32(v)) != v {
			return 0, errf(InvalidAssignment, "terminal value %d out of range", v)
		}
		return terminalOfInt(v), nil
	default: // Real
		x, y := floatOfTerminal(a), floatOfTerminal(b)
		var v float64
		switch op {
		case opMin:
			if v = x; y < x {
				v = y
			}
		case opMax:
			if v = x; y > x {
				v = y
			}
		case opPlus:
			v = x + y
		case opMinus:
			v = x - y
		case opTimes:
			v = x * y
		case opDivide:
			if y == 0 {
				return 0, errf(InvalidOperation, "division by zero")
			}
			v = x / y
		case opEqual:
			return boolAsFloat(f, x == y), nil
		case opNotEqual:
			return boolAsFloat(f, x != y), nil
		case opLess:
			return boolAsFloat(f, x < y), nil
		case opLessEq:
			return boolAsFloat(f, x <= y), nil
		case opGreater:
			return boolAsFloat(f, x > y), nil
		case opGreaterEq:
			return boolAsFloat(f, x >= y), nil
		default:
			return 0, errf(TypeMismatch, "operation %s on a real forest", opNames[op])
		}
		return terminalOfFloat(v), nil
	}
}

func boolAsInt(f *Forest, v bool) int {
	if v {
		return terminalOfInt(1)
	}
	return 0
}

func boolAsFloat(f *Forest, v bool) int {
	if v {
		return terminalOfFloat(1)
	}
	return 0
}

// shortcutMT returns the per-operation identity and annihilator cases that
// cut the recursion without a cache probe. Shortcuts that manufacture a
// non-transparent constant are only valid under full reduction, where a bare
// terminal means the constant function.
func (f *Forest) shortcutMT(op uint8, a, b int) (int, bool) {
	fully := f.pol.Reduction == FullyReduced
	switch op {
	case opUnion:
		switch {
		case a == b:
			return a, true
		case a == 0:
			return b, true
		case b == 0:
			return a, true
		case fully && (a == termTrue || b == termTrue):
			return termTrue, true
		}
	case opIntersect:
		switch {
		case a == b:
			return a, true
		case a == 0 || b == 0:
			return 0, true
		case fully && a == termTrue:
			return b, true
		case fully && b == termTrue:
			return a, true
		}
	case opDifference:
		switch {
		case a == b || a == 0:
			return 0, true
		case b == 0:
			return a, true
		}
	case opPlus:
		switch {
		case a == 0:
			return b, true
		case b == 0:
			return a, true
		}
	case opMinus:
		switch {
		case a == b:
			return 0, true
		case b == 0:
			return a, true
		}
	case opTimes:
		if a == 0 || b == 0 {
			return 0, true
		}
	case opMin, opMax:
		if a == b {
			return a, true
		}
	}
	return 0, false
}

// applyMT is the recursive driver for multi-terminal operands. The returned
// handle carries one reference for the caller.
func (f *Forest) applyMT(op uint8, a, b int) (int, error) {
	if isTerminal(a) && isTerminal(b) {
		return f.termBinary(op, a, b)
	}
	if r, ok := f.shortcutMT(op, a, b); ok {
		return f.linkNode(r), nil
	}
	if opCommutes(op) && a > b {
		a, b = b, a
	}
	la, lb := f.nodeLevel(a), f.nodeLevel(b)
	k := absLevel(la)
	if m := absLevel(lb); m > k {
		k = m
	}
	ckey := 0
	if f.relation {
		// level-dependent: identity-reduced operands can skip the pair
		ckey = int(k)
	}
	if res, _, ok := f.ct.find(op, a, b, ckey); ok {
		return f.linkNode(res), nil
	}
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
				var c int
				c, err = f.applyMT(op, pa.down[j], pb.down[j])
				if err != nil {
					break
				}
				pnb.set(j, 0, c)
			}
			f.putReader(pa)
			f.putReader(pb)
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
	} else {
		for i := 0; i < size; i++ {
			var c int
			c, err = f.applyMT(op, ra.down[i], rb.down[i])
			if err != nil {
				break
			}
			nb.set(i, 0, c)
		}
	}
	f.putReader(ra)
	f.putReader(rb)
	if err != nil {
		nb.release()
		return 0, err
	}
	_, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, err
	}
	f.ct.add(op, a, b, ckey, res, 0)
	return res, nil
}

func absLevel(l int32) int32 {
	if l < 0 {
		return -l
	}
	return l
}

// copyRec rebuilds a function from forest src into forest f, converting
// terminals between range types and re-normalizing the shape under f's
// reduction rule. The level argument keeps the cache sound when src skips
// levels.
func (f *Forest) copyRec(src *Forest, a int, k int32) (int, error) {
	if k == 0 {
		return f.convertTerminal(src, a), nil
	}
	if a == 0 {
		return 0, nil
	}
	if res, _, ok := f.ct.find(opCopy, a, int(k), 0); ok {
		return f.linkNode(res), nil
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
				var c int
				c, err = f.copyRec(src, pa.down[j], k-1)
				if err != nil {
					break
				}
				pnb.set(j, 0, c)
			}
			src.putReader(pa)
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
	} else {
		for i := 0; i < size; i++ {
			var c int
			c, err = f.copyRec(src, ra.down[i], k-1)
			if err != nil {
				break
			}
			nb.set(i, 0, c)
		}
	}
	src.putReader(ra)
	if err != nil {
		nb.release()
		return 0, err
	}
	_, res, err := f.reduce(-1, nb)
	if err != nil {
		return 0, err
	}
	f.ct.add(opCopy, a, int(k), 0, res, 0)
	return res, nil
}

func (f *Forest) convertTerminal(src *Forest, t int) int {
	switch f.rtype {
	case Boolean:
		return terminalOfBool(src.terminalInt(t) != 0)
	case Integer:
		return terminalOfInt(src.terminalInt(t))
	default:
		return terminalOfFloat(src.terminalFloat(t))
	}
}
