// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// queenCover returns the least number of queens covering every square of an
// n x n board, computed over an integer MDD with one boolean variable per
// square.
func queenCover(t *testing.T, n int) int {
	t.Helper()
	bounds := make([]int, n*n)
	for i := range bounds {
		bounds[i] = 2
	}
	d, err := CreateDomainBottomUp(bounds)
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, MultiTerminal, DeletionPolicy(PessimisticDeletion))
	require.NoError(t, err)
	level := func(i, j int) int { return i*n + j + 1 }

	one, err := f.FromInt(1)
	require.NoError(t, err)
	constraint, err := f.FromInt(1)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov, err := f.FromInt(0)
			require.NoError(t, err)
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					if x != i && y != j && x+y != i+j && x-y != i-j {
						continue
					}
					q, err := f.VarEdge(level(x, y))
					require.NoError(t, err)
					next, err := f.Max(cov, q)
					require.NoError(t, err)
					q.Clear()
					cov.Clear()
					cov = next
				}
			}
			ok, err := f.GreaterEq(cov, one)
			require.NoError(t, err)
			cov.Clear()
			next, err := f.Min(constraint, ok)
			require.NoError(t, err)
			ok.Clear()
			constraint.Clear()
			constraint = next
		}
	}

	total, err := f.FromInt(0)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			q, err := f.VarEdge(level(i, j))
			require.NoError(t, err)
			next, err := f.Plus(total, q)
			require.NoError(t, err)
			q.Clear()
			total.Clear()
			total = next
		}
	}

	for queens := 1; queens <= n*n; queens++ {
		qe, err := f.FromInt(int64(queens))
		require.NoError(t, err)
		exact, err := f.Equal(total, qe)
		require.NoError(t, err)
		qe.Clear()
		sol, err := f.Min(constraint, exact)
		require.NoError(t, err)
		exact.Clear()
		best, err := f.MaxValue(sol)
		require.NoError(t, err)
		sol.Clear()
		if best > 0 {
			return queens
		}
	}
	t.Fatal("no cover found")
	return 0
}

func TestQueenCover(t *testing.T) {
	require.Equal(t, 1, queenCover(t, 3))
	require.Equal(t, 2, queenCover(t, 4))
}

func TestQueenCoverFive(t *testing.T) {
	if testing.Short() {
		t.Skip("5x5 cover in short mode")
	}
	// five queens trivially suffice; the minimum is three
	min := queenCover(t, 5)
	require.LessOrEqual(t, min, 5)
	require.Equal(t, 3, min)
}

// queenCoverOrdered builds the row/col-per-queen model: 2m variables with
// bound n give the position of every queen slot, the per-square covering
// constraints are intersected with the row-ordering and column-ordering
// symmetry breakers, and the minimal cover is found by forcing trailing
// slots to duplicate their predecessor. It returns whether m queens suffice
// and the minimal number of distinct queens.
func queenCoverOrdered(t *testing.T, n, m int, qr, qc []int) (bool, int) {
	t.Helper()
	bounds := make([]int, 2*m)
	for i := range bounds {
		bounds[i] = n
	}
	d, err := CreateDomainBottomUp(bounds)
	require.NoError(t, err)
	f, err := d.CreateForest(false, Integer, MultiTerminal, DeletionPolicy(PessimisticDeletion))
	require.NoError(t, err)

	must := func(e Edge, err error) Edge {
		t.Helper()
		require.NoError(t, err)
		return e
	}
	varEdge := func(level int) Edge { return must(f.VarEdge(level)) }
	indicator := func(level, v int) Edge {
		terms := make([]int64, n)
		terms[v] = 1
		return must(f.VarEdgeTerms(level, terms))
	}
	someQueen := func(pred func(i int) Edge) Edge {
		acc := pred(0)
		for i := 1; i < m; i++ {
			acc = must(f.Max(acc, pred(i)))
		}
		return acc
	}
	onDiag := func(i, dd int, plus bool) Edge {
		var s Edge
		if plus {
			s = must(f.Plus(varEdge(qr[i]), varEdge(qc[i])))
		} else {
			s = must(f.Minus(varEdge(qr[i]), varEdge(qc[i])))
		}
		return must(f.Equal(s, must(f.FromInt(int64(dd)))))
	}

	one := must(f.FromInt(1))
	sol := must(f.FromInt(1))
	// rows in order, and columns in order when two consecutive rows agree
	for i := 1; i < m; i++ {
		sol = must(f.Times(sol, must(f.GreaterEq(varEdge(qr[i]), varEdge(qr[i-1])))))
		sameRow := must(f.Equal(varEdge(qr[i]), varEdge(qr[i-1])))
		colsOK := must(f.Times(must(f.GreaterEq(varEdge(qc[i]), varEdge(qc[i-1]))), sameRow))
		rule := must(f.Max(must(f.Minus(one, sameRow)), colsOK))
		sol = must(f.Times(sol, rule))
	}
	// every square covered by some queen
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cov := must(f.Max(
				someQueen(func(i int) Edge { return indicator(qr[i], r) }),
				someQueen(func(i int) Edge { return indicator(qc[i], c) })))
			cov = must(f.Max(cov, someQueen(func(i int) Edge { return onDiag(i, r+c, true) })))
			cov = must(f.Max(cov, someQueen(func(i int) Edge { return onDiag(i, r-c, false) })))
			sol = must(f.Times(sol, cov))
		}
	}
	best, err := f.MaxValue(sol)
	require.NoError(t, err)
	if best <= 0 {
		return false, 0
	}
	// minimal-queens post-processing
	for k := 1; k < m; k++ {
		dup := must(f.FromInt(1))
		for i := k; i < m; i++ {
			same := must(f.Times(
				must(f.Equal(varEdge(qr[i]), varEdge(qr[i-1]))),
				must(f.Equal(varEdge(qc[i]), varEdge(qc[i-1])))))
			dup = must(f.Times(dup, same))
		}
		best, err := f.MaxValue(must(f.Times(sol, dup)))
		require.NoError(t, err)
		if best > 0 {
			return true, k
		}
	}
	return true, m
}

func qcLevelsByQueens(m int) ([]int, []int) {
	qr, qc := make([]int, m), make([]int, m)
	for i := 0; i < m; i++ {
		qc[i] = 2*i + 1
		qr[i] = 2*i + 2
	}
	return qr, qc
}

func qcLevelsRowsCols(m int) ([]int, []int) {
	qr, qc := make([]int, m), make([]int, m)
	for i := 0; i < m; i++ {
		qc[i] = i + 1
		qr[i] = m + i + 1
	}
	return qr, qc
}

func TestQueenCoverOrdered(t *testing.T) {
	qr, qc := qcLevelsByQueens(4)
	ok, min := queenCoverOrdered(t, 4, 4, qr, qc)
	require.True(t, ok)
	require.Equal(t, 2, min)
}

// Five queen slots must cover the 5x5 board under the ordering
// constraints, and the minimal-queens reduction finds a cover of three.
func TestQueenCoverOrderedFive(t *testing.T) {
	if testing.Short() {
		t.Skip("5x5 ordered cover in short mode")
	}
	for _, levels := range []func(int) ([]int, []int){qcLevelsByQueens, qcLevelsRowsCols} {
		qr, qc := levels(5)
		ok, min := queenCoverOrdered(t, 5, 5, qr, qc)
		require.True(t, ok, "five queens suffice")
		require.Equal(t, 3, min)
	}
}

func TestCopyAcrossForests(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{3, 3})
	require.NoError(t, err)
	fi, err := d.CreateForest(false, Integer, MultiTerminal)
	require.NoError(t, err)
	fb, err := d.CreateForest(false, Boolean, MultiTerminal)
	require.NoError(t, err)
	fq, err := d.CreateForest(false, Boolean, MultiTerminal, ReductionRule(QuasiReduced))
	require.NoError(t, err)

	x, err := fi.VarEdge(1)
	require.NoError(t, err)
	y, err := fi.VarEdge(2)
	require.NoError(t, err)
	p, err := fi.Times(x, y)
	require.NoError(t, err)

	// integer to boolean: non-zero values become true
	bp, err := fb.CopyEdge(p)
	require.NoError(t, err)
	// boolean, fully reduced to quasi reduced
	qp, err := fq.CopyEdge(bp)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			vi, err := fi.EvalInt(p, []int{i, j}, nil)
			require.NoError(t, err)
			vb, err := fb.EvalBool(bp, []int{i, j}, nil)
			require.NoError(t, err)
			vq, err := fq.EvalBool(qp, []int{i, j}, nil)
			require.NoError(t, err)
			require.Equal(t, vi != 0, vb)
			require.Equal(t, vb, vq)
		}
	}
}
