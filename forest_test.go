// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mkForest(t *testing.T, bounds []int, opts ...Option) (*Domain, *Forest) {
	t.Helper()
	d, err := CreateDomainBottomUp(bounds)
	require.NoError(t, err)
	f, err := d.CreateForest(false, Boolean, MultiTerminal, opts...)
	require.NoError(t, err)
	return d, f
}

func TestDomainCreation(t *testing.T) {
	_, err := CreateDomainBottomUp(nil)
	require.ErrorIs(t, err, &Error{Code: InvalidArgument})
	_, err = CreateDomainBottomUp([]int{4, 1, 4})
	require.ErrorIs(t, err, &Error{Code: InvalidAssignment})
	d, err := CreateDomainBottomUp([]int{2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 3, d.NumVars())
	b, err := d.Bound(2)
	require.NoError(t, err)
	require.Equal(t, 3, b)
	_, err = d.Bound(7)
	require.ErrorIs(t, err, &Error{Code: InvalidVariable})
}

func TestCanonicity(t *testing.T) {
	_, f := mkForest(t, []int{4, 4, 4})
	mts := [][]int{{1, 2, 3}, {0, DontCare, 2}, {3, 3, 3}}
	a, err := f.EdgeFromMinterms(mts)
	require.NoError(t, err)
	b, err := f.EdgeFromMinterms([][]int{mts[2], mts[0], mts[1]})
	require.NoError(t, err)
	// equal functions have equal handles
	require.Equal(t, a.Node(), b.Node())
	require.True(t, a.Equal(b))
	c, err := f.EdgeFromMinterms(mts[:2])
	require.NoError(t, err)
	require.NotEqual(t, a.Node(), c.Node())
}

func TestLinkUnlinkNoop(t *testing.T) {
	_, f := mkForest(t, []int{4, 4})
	a, err := f.EdgeFromMinterms([][]int{{1, 2}, {0, 3}})
	require.NoError(t, err)
	h := a.Node()
	before := f.addr[h].incount
	f.linkNode(h)
	f.unlinkNode(h)
	require.Equal(t, before, f.addr[h].incount)
}

func TestIncomingCounts(t *testing.T) {
	_, f := mkForest(t, []int{3, 3, 3})
	a, err := f.EdgeFromMinterms([][]int{{0, 1, 2}, {2, 1, 0}, {1, 1, 1}})
	require.NoError(t, err)
	// the sum of incoming counts equals parent edges plus top-level edges
	var sum, parents int
	for h := 1; h < len(f.addr); h++ {
		if !f.isActive(h) {
			continue
		}
		sum += int(f.addr[h].incount)
		r := f.readSparse(h, f.nodeLevel(h), -1)
		for z := 0; z < r.nnz; z++ {
			if r.down[z] > 0 {
				parents++
			}
		}
		f.putReader(r)
	}
	require.Equal(t, parents+1, sum)
	a.Clear()
}

func TestGCStabilityPessimistic(t *testing.T) {
	_, f := mkForest(t, []int{4, 4, 4, 4}, DeletionPolicy(PessimisticDeletion))
	rng := rand.New(rand.NewSource(42))
	peak := 0
	for round := 0; round < 20; round++ {
		var edges []Edge
		for i := 0; i < 10; i++ {
			mt := []int{rng.Intn(4), rng.Intn(4), rng.Intn(4), rng.Intn(4)}
			e, err := f.EdgeFromMinterms([][]int{mt})
			require.NoError(t, err)
			edges = append(edges, e)
		}
		st := f.Stats()
		require.GreaterOrEqual(t, st.PeakNodes, peak)
		peak = st.PeakNodes
		for i := range edges {
			edges[i].Clear()
		}
	}
	f.GarbageCollect()
	require.Equal(t, 0, f.Stats().ActiveNodes)
}

func TestGCStabilityOptimistic(t *testing.T) {
	_, f := mkForest(t, []int{4, 4, 4, 4})
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 10; round++ {
		var edges []Edge
		for i := 0; i < 8; i++ {
			mt := []int{rng.Intn(4), rng.Intn(4), DontCare, rng.Intn(4)}
			e, err := f.EdgeFromMinterms([][]int{mt})
			require.NoError(t, err)
			edges = append(edges, e)
		}
		for i := range edges {
			edges[i].Clear()
		}
	}
	require.Greater(t, f.Stats().OrphanNodes, 0)
	f.GarbageCollect()
	st := f.Stats()
	require.Equal(t, 0, st.ActiveNodes)
	require.Equal(t, 0, st.OrphanNodes)
	require.Equal(t, 0, st.ZombieNodes)
}

func TestZombies(t *testing.T) {
	_, f := mkForest(t, []int{4, 4}, DeletionPolicy(PessimisticDeletion))
	a, err := f.EdgeFromMinterms([][]int{{1, 2}})
	require.NoError(t, err)
	b, err := f.EdgeFromMinterms([][]int{{2, 1}})
	require.NoError(t, err)
	u, err := f.Union(a, b)
	require.NoError(t, err)
	// dropping the union orphans its nodes; the compute table entry keeps
	// them as zombies until the next stale sweep
	u.Clear()
	require.Greater(t, f.Stats().ZombieNodes, 0)
	f.GarbageCollect()
	require.Equal(t, 0, f.Stats().ZombieNodes)
	a.Clear()
	b.Clear()
	f.GarbageCollect()
	require.Equal(t, 0, f.Stats().ActiveNodes)
}

func TestLoggerEvents(t *testing.T) {
	var buf bytes.Buffer
	_, f := mkForest(t, []int{3, 3})
	f.SetLogger(NewTextLogger(&buf))
	a, err := f.EdgeFromMinterms([][]int{{0, 1}, {2, 2}})
	require.NoError(t, err)
	a.Clear()
	f.GarbageCollect()
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "# medd activity log"))
	require.Contains(t, out, "p+ gc")
	require.Contains(t, out, "p- gc")
	require.Contains(t, out, "\na 1 ")
}

func TestStatsString(t *testing.T) {
	_, f := mkForest(t, []int{3, 3})
	a, err := f.EdgeFromMinterms([][]int{{0, 1}})
	require.NoError(t, err)
	defer a.Clear()
	s := f.Stats()
	require.Greater(t, s.ActiveNodes, 0)
	require.Contains(t, s.String(), "Active:")
	require.NotEmpty(t, f.ComputeTableStats())
	require.NotEmpty(t, f.UniqueHistogram())
}
