// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// The Kanban manufacturing model: 16 places with bound N+1, and the
// transition matrix from the classic benchmark. The reachable state counts
// are 160, 4600 and 58400 for N = 1, 2, 3.
var kanbanSpec = []string{
	"-+..............", // Tin1
	".-+.............", // Tr1
	".+-.............", // Tb1
	".-.+............", // Tg1
	".....-+.........", // Tr2
	".....+-.........", // Tb2
	".....-.+........", // Tg2
	"+..--+..-+......", // Ts1_23
	".........-+.....", // Tr3
	".........+-.....", // Tb3
	".........-.+....", // Tg3
	"....+..-+..--+..", // Ts23_4
	".............-+.", // Tr4
	".............+-.", // Tb4
	"............+..-", // Tout4
	".............-.+", // Tg4
}

func kanbanRelation(t *testing.T, mxd *Forest, n int) Edge {
	t.Helper()
	var rows, cols [][]int
	for _, spec := range kanbanSpec {
		var touched []int
		for p := 0; p < 16; p++ {
			if spec[p] != '.' {
				touched = append(touched, p)
			}
		}
		row := make([]int, 16)
		col := make([]int, 16)
		for p := range row {
			row[p] = DontCare
			col[p] = DontChange
		}
		var walk func(i int)
		walk = func(i int) {
			if i == len(touched) {
				rows = append(rows, append([]int(nil), row...))
				cols = append(cols, append([]int(nil), col...))
				return
			}
			p := touched[i]
			for v := 0; v <= n; v++ {
				switch spec[p] {
				case '-':
					if v < 1 {
						continue
					}
					row[p], col[p] = v, v-1
				case '+':
					if v+1 > n {
						continue
					}
					row[p], col[p] = v, v+1
				}
				walk(i + 1)
			}
			row[p], col[p] = DontCare, DontChange
		}
		walk(0)
	}
	r, err := mxd.EdgeFromMintermPairs(rows, cols)
	require.NoError(t, err)
	return r
}

func kanbanSetup(t *testing.T, n int) (*Domain, *Forest, Edge, Edge) {
	t.Helper()
	bounds := make([]int, 16)
	for i := range bounds {
		bounds[i] = n + 1
	}
	d, err := CreateDomainBottomUp(bounds)
	require.NoError(t, err)
	mdd, err := d.CreateForest(false, Boolean, MultiTerminal)
	require.NoError(t, err)
	mxd, err := d.CreateForest(true, Boolean, MultiTerminal)
	require.NoError(t, err)
	initial := make([]int, 16)
	initial[0], initial[4], initial[8], initial[12] = n, n, n, n
	s0, err := mdd.EdgeFromMinterms([][]int{initial})
	require.NoError(t, err)
	return d, mdd, s0, kanbanRelation(t, mxd, n)
}

func TestKanbanSaturation(t *testing.T) {
	expected := map[int]int64{1: 160, 2: 4600, 3: 58400}
	for n := 1; n <= 3; n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			_, mdd, s0, nsf := kanbanSetup(t, n)
			reach, err := mdd.ReachableDFS(s0, nsf)
			require.NoError(t, err)
			c, err := mdd.Cardinality(reach)
			require.NoError(t, err)
			require.Equal(t, expected[n], c.Int64())
		})
	}
}

func TestKanbanBFSAgrees(t *testing.T) {
	for n := 1; n <= 2; n++ {
		_, mdd, s0, nsf := kanbanSetup(t, n)
		bfs, err := mdd.ReachableBFS(s0, nsf)
		require.NoError(t, err)
		dfs, err := mdd.ReachableDFS(s0, nsf)
		require.NoError(t, err)
		require.True(t, bfs.Equal(dfs))
	}
}

// Reordering the 16 Kanban variables and then applying the inverse
// permutation must leave every user-held edge denoting the same set.
func TestKanbanReorder(t *testing.T) {
	d, mdd, s0, nsf := kanbanSetup(t, 1)
	reach, err := mdd.ReachableDFS(s0, nsf)
	require.NoError(t, err)

	// collect the reachable states keyed by variable, not by level
	states := make(map[string]bool)
	it, err := mdd.Iterator(reach)
	require.NoError(t, err)
	for it.Next() {
		a := it.Assignment()
		byVar := make([]int, 16)
		for k := 1; k <= 16; k++ {
			v, err := d.VarAtLevel(k)
			require.NoError(t, err)
			byVar[v-1] = a[k-1]
		}
		states[fmt.Sprint(byVar)] = true
	}
	require.Equal(t, 160, len(states))

	// the relation forest must be empty before reordering
	relF := nsf.Forest()
	nsf.Clear()
	relF.GarbageCollect()
	require.Equal(t, 0, relF.Stats().ActiveNodes)

	check := func() {
		count := 0
		it, err := mdd.Iterator(reach)
		require.NoError(t, err)
		for it.Next() {
			a := it.Assignment()
			byVar := make([]int, 16)
			for k := 1; k <= 16; k++ {
				v, err := d.VarAtLevel(k)
				require.NoError(t, err)
				byVar[v-1] = a[k-1]
			}
			require.True(t, states[fmt.Sprint(byVar)], "state appeared after reorder")
			count++
		}
		require.Equal(t, 160, count)
	}

	perm := make([]int, 16)
	for i := range perm {
		perm[i] = 16 - i // reverse the order
	}
	for _, s := range []ReorderStrategy{BubbleUp, LowestInversion} {
		require.NoError(t, d.ReorderWithStrategy(perm, s))
		check()
		inverse := make([]int, 16)
		for i := range inverse {
			inverse[i] = i + 1
		}
		require.NoError(t, d.ReorderWithStrategy(inverse, s))
		check()
	}
}

func TestReorderRelationRejected(t *testing.T) {
	d, _, _, nsf := kanbanSetup(t, 1)
	require.Greater(t, nsf.Forest().Stats().ActiveNodes, 0)
	perm := make([]int, 16)
	for i := range perm {
		perm[i] = i + 1
	}
	perm[0], perm[1] = 2, 1
	err := d.Reorder(perm)
	require.ErrorIs(t, err, &Error{Code: NotImplemented})
}
