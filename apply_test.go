// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomSet(t *testing.T, f *Forest, rng *rand.Rand, nmt int) Edge {
	t.Helper()
	n := f.d.NumVars()
	mts := make([][]int, nmt)
	for i := range mts {
		mt := make([]int, n)
		for k := range mt {
			mt[k] = rng.Intn(f.d.bound(int32(k+1))+1) - 1 // -1 is DontCare
		}
		mts[i] = mt
	}
	e, err := f.EdgeFromMinterms(mts)
	require.NoError(t, err)
	return e
}

func TestSetLaws(t *testing.T) {
	_, f := mkForest(t, []int{3, 4, 2, 3})
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		a := randomSet(t, f, rng, 4)
		b := randomSet(t, f, rng, 4)

		aa, err := f.Union(a, a)
		require.NoError(t, err)
		require.True(t, aa.Equal(a), "union(a, a) = a")

		ai, err := f.Intersect(a, a)
		require.NoError(t, err)
		require.True(t, ai.Equal(a), "intersection(a, a) = a")

		na, err := f.Complement(a)
		require.NoError(t, err)
		nna, err := f.Complement(na)
		require.NoError(t, err)
		require.True(t, nna.Equal(a), "complement is an involution")

		ab, err := f.Union(a, b)
		require.NoError(t, err)
		ba, err := f.Union(b, a)
		require.NoError(t, err)
		require.True(t, ab.Equal(ba), "union commutes")

		// difference via complement
		d1, err := f.Difference(a, b)
		require.NoError(t, err)
		nb, err := f.Complement(b)
		require.NoError(t, err)
		d2, err := f.Intersect(a, nb)
		require.NoError(t, err)
		require.True(t, d1.Equal(d2), "a \\ b = a & !b")
	}
}

func TestEmptySetIdentities(t *testing.T) {
	_, f := mkForest(t, []int{4, 4, 4})
	zero, err := f.FromBool(false)
	require.NoError(t, err)
	require.Equal(t, 0, zero.Node())
	a := randomSet(t, f, rand.New(rand.NewSource(3)), 5)

	u, err := f.Union(a, zero)
	require.NoError(t, err)
	require.True(t, u.Equal(a), "union with 0 is the identity")

	i, err := f.Intersect(a, zero)
	require.NoError(t, err)
	require.True(t, i.Equal(zero), "intersection with 0 annihilates")
}

func TestIntegerArithmetic(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{3, 3})
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, MultiTerminal)
	require.NoError(t, err)

	x, err := f.VarEdge(1)
	require.NoError(t, err)
	y, err := f.VarEdge(2)
	require.NoError(t, err)
	zero, err := f.FromInt(0)
	require.NoError(t, err)

	s, err := f.Plus(x, y)
	require.NoError(t, err)
	s0, err := f.Plus(s, zero)
	require.NoError(t, err)
	require.True(t, s0.Equal(s), "plus(a, 0) = a")

	// pointwise sum and product on concrete points
	xy, err := f.Times(x, y)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v, err := f.EvalInt(s, []int{i, j}, nil)
			require.NoError(t, err)
			require.Equal(t, int64(i+j), v)
			p, err := f.EvalInt(xy, []int{i, j}, nil)
			require.NoError(t, err)
			require.Equal(t, int64(i*j), p)
		}
	}

	mx, err := f.Max(x, y)
	require.NoError(t, err)
	mn, err := f.Min(x, y)
	require.NoError(t, err)
	tot, err := f.Plus(mx, mn)
	require.NoError(t, err)
	require.True(t, tot.Equal(s), "min + max = plus")

	lo, err := f.MinValue(s)
	require.NoError(t, err)
	hi, err := f.MaxValue(s)
	require.NoError(t, err)
	require.Equal(t, 0.0, lo)
	require.Equal(t, 4.0, hi)
}

func TestComparisons(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{4, 4})
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, MultiTerminal)
	require.NoError(t, err)
	x, err := f.VarEdge(1)
	require.NoError(t, err)
	y, err := f.VarEdge(2)
	require.NoError(t, err)
	lt, err := f.Less(x, y)
	require.NoError(t, err)
	ge, err := f.GreaterEq(x, y)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v, err := f.EvalInt(lt, []int{i, j}, nil)
			require.NoError(t, err)
			w, err := f.EvalInt(ge, []int{i, j}, nil)
			require.NoError(t, err)
			require.Equal(t, int64(1), v+w, "lt and ge partition")
			require.Equal(t, i < j, v == 1)
		}
	}
}

func TestDivideByZero(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{3})
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, MultiTerminal)
	require.NoError(t, err)
	x, err := f.VarEdge(1)
	require.NoError(t, err)
	_, err = f.Divide(x, x) // x is 0 at the first point
	require.ErrorIs(t, err, &Error{Code: InvalidOperation})
}

func TestOperandErrors(t *testing.T) {
	_, f := mkForest(t, []int{3, 3})
	_, g := mkForest(t, []int{3, 3})
	a, err := f.FromBool(true)
	require.NoError(t, err)
	b, err := g.FromBool(true)
	require.NoError(t, err)
	_, err = f.Union(a, b)
	require.ErrorIs(t, err, &Error{Code: ForestMismatch})

	di, err := CreateDomainBottomUp([]int{3, 3})
	require.NoError(t, err)
	fi, err := di.CreateForest(false, Integer, MultiTerminal)
	require.NoError(t, err)
	x, err := fi.VarEdge(1)
	require.NoError(t, err)
	_, err = fi.Union(x, x)
	require.ErrorIs(t, err, &Error{Code: TypeMismatch})
}

func TestGenericApply(t *testing.T) {
	Initialize()
	defer Cleanup()
	_, f := mkForest(t, []int{3, 3})
	a := randomSet(t, f, rand.New(rand.NewSource(9)), 3)
	b := randomSet(t, f, rand.New(rand.NewSource(10)), 3)
	u1, err := f.Apply("union", a, b)
	require.NoError(t, err)
	u2, err := f.Union(a, b)
	require.NoError(t, err)
	require.True(t, u1.Equal(u2))
	_, err = f.Apply("frobnicate", a)
	require.ErrorIs(t, err, &Error{Code: UnknownOperation})
	_, err = f.Apply("union", a)
	require.ErrorIs(t, err, &Error{Code: InvalidArgument})
}

func TestQuasiReduced(t *testing.T) {
	_, fq := mkForest(t, []int{3, 3, 3}, ReductionRule(QuasiReduced))
	one, err := fq.FromBool(true)
	require.NoError(t, err)
	// every level materialized: the constant true is a chain of 3 nodes
	require.Greater(t, one.Node(), 0)
	c, err := fq.Cardinality(one)
	require.NoError(t, err)
	require.Equal(t, int64(27), c.Int64())

	a, err := fq.EdgeFromMinterms([][]int{{0, DontCare, 2}})
	require.NoError(t, err)
	ca, err := fq.Cardinality(a)
	require.NoError(t, err)
	require.Equal(t, int64(3), ca.Int64())
	u, err := fq.Union(a, a)
	require.NoError(t, err)
	require.True(t, u.Equal(a))
	// every node on every path is materialized
	for h := 1; h < len(fq.addr); h++ {
		if !fq.isActive(h) {
			continue
		}
		r := fq.readSparse(h, fq.nodeLevel(h), -1)
		for z := 0; z < r.nnz; z++ {
			if r.down[z] > 0 {
				require.Equal(t, fq.nodeLevel(h)-1, fq.nodeLevel(r.down[z]))
			} else {
				require.Equal(t, int32(1), fq.nodeLevel(h))
			}
		}
		fq.putReader(r)
	}
}
