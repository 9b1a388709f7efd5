// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"math/big"
)

// binaryMT validates operands and runs the multi-terminal apply driver.
func (f *Forest) binaryMT(op uint8, a, b Edge) (Edge, error) {
	if err := f.checkEdge(a); err != nil {
		return Edge{}, err
	}
	if err := f.checkEdge(b); err != nil {
		return Edge{}, err
	}
	if f.label != MultiTerminal {
		return Edge{}, errf(TypeMismatch, "%s is a multi-terminal operation", opNames[op])
	}
	res, err := f.applyMT(op, a.node, b.node)
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

// Union returns the union of two sets (or relations). On EV+ forests union
// is the pointwise minimum of the two functions.
func (f *Forest) Union(a, b Edge) (Edge, error) {
	if f.label == EVPlus {
		return f.evBinary(opEVUnion, a, b)
	}
	if f.rtype != Boolean {
		return Edge{}, errf(TypeMismatch, "union on a %v forest", f.rtype)
	}
	return f.binaryMT(opUnion, a, b)
}

// Intersect returns the intersection of two sets (or relations).
func (f *Forest) Intersect(a, b Edge) (Edge, error) {
	if f.rtype != Boolean {
		return Edge{}, errf(TypeMismatch, "intersection on a %v forest", f.rtype)
	}
	return f.binaryMT(opIntersect, a, b)
}

// Difference returns the set difference a minus b.
func (f *Forest) Difference(a, b Edge) (Edge, error) {
	if f.rtype != Boolean {
		return Edge{}, errf(TypeMismatch, "difference on a %v forest", f.rtype)
	}
	return f.binaryMT(opDifference, a, b)
}

// Complement returns the complement of a set with respect to the full
// domain.
func (f *Forest) Complement(a Edge) (Edge, error) {
	if f.rtype != Boolean || f.label != MultiTerminal {
		return Edge{}, errf(TypeMismatch, "complement on a %v/%v forest", f.rtype, f.label)
	}
	one, err := f.FromBool(true)
	if err != nil {
		return Edge{}, err
	}
	defer one.Clear()
	return f.binaryMT(opDifference, one, a)
}

// Min returns the pointwise minimum of two functions.
func (f *Forest) Min(a, b Edge) (Edge, error) {
	if f.label == EVPlus {
		return f.evBinary(opEVUnion, a, b)
	}
	return f.binaryMT(opMin, a, b)
}

// Max returns the pointwise maximum of two functions.
func (f *Forest) Max(a, b Edge) (Edge, error) {
	if f.label == EVPlus {
		return f.evBinary(opMax, a, b)
	}
	return f.binaryMT(opMax, a, b)
}

// Plus returns the pointwise sum of two functions.
func (f *Forest) Plus(a, b Edge) (Edge, error) {
	if f.label == EVPlus {
		return f.evBinary(opPlus, a, b)
	}
	return f.binaryMT(opPlus, a, b)
}

// Minus returns the pointwise difference of two functions.
func (f *Forest) Minus(a, b Edge) (Edge, error) {
	return f.binaryMT(opMinus, a, b)
}

// Times returns the pointwise product of two functions.
func (f *Forest) Times(a, b Edge) (Edge, error) {
	if f.label == EVTimes {
		if err := f.checkEdge(a); err != nil {
			return Edge{}, err
		}
		if err := f.checkEdge(b); err != nil {
			return Edge{}, err
		}
		rv, rn, err := f.evTimesApply(evFloatOfBits(a.ev), a.node, evFloatOfBits(b.ev), b.node)
		if err != nil {
			return Edge{}, err
		}
		return f.makeEdge(evFloatBits(rv), rn), nil
	}
	return f.binaryMT(opTimes, a, b)
}

// Divide returns the pointwise quotient of two functions.
func (f *Forest) Divide(a, b Edge) (Edge, error) {
	return f.binaryMT(opDivide, a, b)
}

// Equal returns the pointwise comparison a == b, as 1/0 values.
func (f *Forest) Equal(a, b Edge) (Edge, error) { return f.binaryMT(opEqual, a, b) }

// NotEqual returns the pointwise comparison a != b, as 1/0 values.
func (f *Forest) NotEqual(a, b Edge) (Edge, error) { return f.binaryMT(opNotEqual, a, b) }

// Less returns the pointwise comparison a < b, as 1/0 values.
func (f *Forest) Less(a, b Edge) (Edge, error) { return f.binaryMT(opLess, a, b) }

// LessEq returns the pointwise comparison a <= b, as 1/0 values.
func (f *Forest) LessEq(a, b Edge) (Edge, error) { return f.binaryMT(opLessEq, a, b) }

// Greater returns the pointwise comparison a > b, as 1/0 values.
func (f *Forest) Greater(a, b Edge) (Edge, error) { return f.binaryMT(opGreater, a, b) }

// GreaterEq returns the pointwise comparison a >= b, as 1/0 values.
func (f *Forest) GreaterEq(a, b Edge) (Edge, error) { return f.binaryMT(opGreaterEq, a, b) }

// CopyEdge rebuilds an edge from another forest on the same domain into f,
// coercing terminal values between range types.
func (f *Forest) CopyEdge(e Edge) (Edge, error) {
	src := e.f
	if src == nil {
		return Edge{}, errf(InvalidArgument, "zero edge")
	}
	if src == f {
		return e.Clone(), nil
	}
	if err := f.checkSameDomain(src); err != nil {
		return Edge{}, err
	}
	if src.relation != f.relation {
		return Edge{}, errf(TypeMismatch, "copy between set and relation forests")
	}
	if src.label != MultiTerminal || f.label != MultiTerminal {
		return Edge{}, errf(NotImplemented, "copy on edge-valued forests; see LiftEV")
	}
	f.ct.setPeer(src)
	res, err := f.copyRec(src, e.node, int32(f.d.NumVars()))
	if err != nil {
		return Edge{}, err
	}
	return f.makeEdge(0, res), nil
}

// Cardinality returns the number of assignments mapped to a non-transparent
// value, with arbitrary precision.
func (f *Forest) Cardinality(e Edge) (*big.Int, error) {
	if err := f.checkEdge(e); err != nil {
		return nil, err
	}
	memo := make(map[[2]int]*big.Int)
	return f.card(e.node, int32(f.d.NumVars()), memo), nil
}

// ApproxCardinality is Cardinality with a float64 result.
func (f *Forest) ApproxCardinality(e Edge) (float64, error) {
	c, err := f.Cardinality(e)
	if err != nil {
		return 0, err
	}
	res, _ := new(big.Float).SetInt(c).Float64()
	return res, nil
}

func (f *Forest) card(h int, k int32, memo map[[2]int]*big.Int) *big.Int {
	if h == 0 {
		return big.NewInt(0)
	}
	if k == 0 {
		return big.NewInt(1)
	}
	key := [2]int{h, int(k)}
	if res, ok := memo[key]; ok {
		return res
	}
	bound := int64(f.d.bound(k))
	res := big.NewInt(0)
	if !f.relation {
		if f.nodeLevel(h) != k {
			res.Mul(big.NewInt(bound), f.card(h, k-1, memo))
		} else {
			r := f.readSparse(h, k, -1)
			for z := 0; z < r.nnz; z++ {
				res.Add(res, f.card(r.down[z], k-1, memo))
			}
			f.putReader(r)
		}
		memo[key] = res
		return res
	}
	// relation: count pairs level by level
	if absLevel(f.nodeLevel(h)) != k {
		if f.pol.Reduction == IdentityReduced {
			// skipped pair is the diagonal
			res.Mul(big.NewInt(bound), f.card(h, k-1, memo))
		} else {
			res.Mul(big.NewInt(bound*bound), f.card(h, k-1, memo))
		}
		memo[key] = res
		return res
	}
	ru := f.readDense(h, k, -1)
	for i := 0; i < ru.size; i++ {
		if ru.down[i] == 0 {
			continue
		}
		if f.nodeLevel(ru.down[i]) == -k {
			rp := f.readSparse(ru.down[i], -k, i)
			for z := 0; z < rp.nnz; z++ {
				res.Add(res, f.card(rp.down[z], k-1, memo))
			}
			f.putReader(rp)
		} else if f.pol.Reduction == IdentityReduced {
			res.Add(res, f.card(ru.down[i], k-1, memo))
		} else {
			tmp := new(big.Int).Mul(big.NewInt(bound), f.card(ru.down[i], k-1, memo))
			res.Add(res, tmp)
		}
	}
	f.putReader(ru)
	memo[key] = res
	return res
}

// MinValue returns the smallest value the function takes over the whole
// domain, as a float64 (exact for integer ranges within 2^53).
func (f *Forest) MinValue(e Edge) (float64, error) {
	return f.rangeValue(e, false)
}

// MaxValue returns the largest value the function takes over the whole
// domain.
func (f *Forest) MaxValue(e Edge) (float64, error) {
	return f.rangeValue(e, true)
}

func (f *Forest) rangeValue(e Edge, max bool) (float64, error) {
	if err := f.checkEdge(e); err != nil {
		return 0, err
	}
	if f.relation {
		return 0, errf(NotImplemented, "value range on relation forests")
	}
	memo := make(map[int]float64)
	v := f.rangeRec(e.node, max, memo)
	if f.label == EVPlus {
		return float64(e.ev) + v, nil
	}
	return v, nil
}

func (f *Forest) rangeRec(h int, max bool, memo map[int]float64) float64 {
	if isTerminal(h) {
		return f.terminalFloat(h)
	}
	if v, ok := memo[h]; ok {
		return v
	}
	r := f.readSparse(h, f.nodeLevel(h), -1)
	var best float64
	for z := 0; z < r.nnz; z++ {
		v := f.rangeRec(r.down[z], max, memo)
		if f.label == EVPlus {
			v += float64(r.edge[z])
		}
		if z == 0 || (max && v > best) || (!max && v < best) {
			best = v
		}
	}
	// in multi-terminal forests an absent entry reaches the transparent
	// terminal, which has value 0; in EV+ it means the tuple is undefined
	if f.label == MultiTerminal && r.nnz < r.size {
		v := 0.0
		if max && v > best || !max && v < best {
			best = v
		}
	}
	f.putReader(r)
	memo[h] = best
	return best
}
