// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func evSetup(t *testing.T, bounds []int) (*Domain, *Forest) {
	t.Helper()
	d, err := CreateDomainBottomUp(bounds)
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, EVPlus)
	require.NoError(t, err)
	return d, f
}

func TestEVPlusLaws(t *testing.T) {
	_, f := evSetup(t, []int{3, 3})
	a, err := f.EdgeFromValues([][]int{{0, 0}, {1, 2}}, []int64{3, 7})
	require.NoError(t, err)
	b, err := f.EdgeFromValues([][]int{{1, 2}, {2, 1}}, []int64{5, 1})
	require.NoError(t, err)
	c, err := f.EdgeFromValues([][]int{{0, 1}}, []int64{2})
	require.NoError(t, err)

	// union is the pointwise minimum and is idempotent
	u, err := f.Union(a, a)
	require.NoError(t, err)
	require.True(t, u.Equal(a))
	ab, err := f.Union(a, b)
	require.NoError(t, err)
	v, err := f.EvalInt(ab, []int{1, 2}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
	v, err = f.EvalInt(ab, []int{0, 0}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
	v, err = f.EvalInt(ab, []int{2, 2}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(evInf), v, "absent tuples stay absent")

	// plus(a, 0) = a and associativity of plus
	zero, err := f.FromInt(0)
	require.NoError(t, err)
	az, err := f.Plus(a, zero)
	require.NoError(t, err)
	// the zero constant is total, a is partial: sums only survive on a's
	// support, where they leave a unchanged
	require.True(t, az.Equal(a), "plus(a, 0) = a on a's support")

	abc1, err := f.Plus(a, b)
	require.NoError(t, err)
	abc1, err = f.Plus(abc1, c)
	require.NoError(t, err)
	bc, err := f.Plus(b, c)
	require.NoError(t, err)
	abc2, err := f.Plus(a, bc)
	require.NoError(t, err)
	require.True(t, abc1.Equal(abc2), "plus is associative")
}

func TestLiftEV(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{3, 4})
	require.NoError(t, err)
	mt, err := d.CreateForest(false, Integer, MultiTerminal)
	require.NoError(t, err)
	ev, err := d.CreateForest(false, Integer, EVPlus)
	require.NoError(t, err)

	x, err := mt.VarEdge(1)
	require.NoError(t, err)
	y, err := mt.VarEdge(2)
	require.NoError(t, err)
	s, err := mt.Plus(x, y)
	require.NoError(t, err)

	lifted, err := ev.LiftEV(s)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			want, err := mt.EvalInt(s, []int{i, j}, nil)
			require.NoError(t, err)
			got, err := ev.EvalInt(lifted, []int{i, j}, nil)
			require.NoError(t, err)
			require.Equal(t, want, got, "lift preserves values at (%d,%d)", i, j)
		}
	}
}

func TestTransitiveClosure(t *testing.T) {
	// three states on one variable, transitions 0->1 and 1->2
	d, err := CreateDomainBottomUp([]int{3})
	require.NoError(t, err)
	mxd, err := d.CreateForest(true, Boolean, MultiTerminal)
	require.NoError(t, err)
	evx, err := d.CreateForest(true, Integer, EVPlus)
	require.NoError(t, err)

	r, err := mxd.EdgeFromMintermPairs([][]int{{0}, {1}}, [][]int{{1}, {2}})
	require.NoError(t, err)
	tc, err := evx.TransitiveClosure(r)
	require.NoError(t, err)

	want := map[[2]int]int64{
		{0, 0}: 0, {1, 1}: 0, {2, 2}: 0,
		{0, 1}: 1, {1, 2}: 1,
		{0, 2}: 2,
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v, err := evx.EvalInt(tc, []int{i}, []int{j})
			require.NoError(t, err)
			if w, ok := want[[2]int{i, j}]; ok {
				require.Equal(t, w, v, "distance %d -> %d", i, j)
			} else {
				require.Equal(t, int64(evInf), v, "pair %d -> %d unreachable", i, j)
			}
		}
	}

	// a second closure run over the same relation gives the same result
	tc2, err := evx.TransitiveClosure(r)
	require.NoError(t, err)
	require.True(t, tc2.Equal(tc))
}

func TestMatVec(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{3})
	require.NoError(t, err)
	mxd, err := d.CreateForest(true, Boolean, MultiTerminal)
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, EVPlus)
	require.NoError(t, err)

	m, err := mxd.EdgeFromMintermPairs([][]int{{0}, {1}}, [][]int{{1}, {2}})
	require.NoError(t, err)
	x, err := f.EdgeFromValues([][]int{{1}, {2}}, []int64{5, 7})
	require.NoError(t, err)

	// y(i) = min over j with m(i,j) of x(j)
	y, err := f.MatVecMult(m, x)
	require.NoError(t, err)
	v, err := f.EvalInt(y, []int{0}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
	v, err = f.EvalInt(y, []int{1}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), v)
	v, err = f.EvalInt(y, []int{2}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(evInf), v)

	// z(j) = min over i with m(i,j) of x(i)
	z, err := f.VecMatMult(m, x)
	require.NoError(t, err)
	v, err = f.EvalInt(z, []int{2}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
	v, err = f.EvalInt(z, []int{1}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(evInf), v, "x is absent at 0")
	v, err = f.EvalInt(z, []int{0}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(evInf), v)
}
