// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func TestEdgeRoundTrip(t *testing.T) {
	_, f := mkForest(t, []int{4, 4, 4, 4})
	e := randomSet(t, f, rand.New(rand.NewSource(21)), 12)
	var buf bytes.Buffer
	require.NoError(t, f.WriteEdge(&buf, e))
	back, err := f.ReadEdge(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, back.Equal(e), "round trip into the same forest hits the same handle")
}

func TestEdgeRoundTripAcrossStorage(t *testing.T) {
	d, err := CreateDomainBottomUp([]int{3, 3, 3})
	require.NoError(t, err)
	full, err := d.CreateForest(false, Boolean, MultiTerminal, StoragePreference(FullStorage))
	require.NoError(t, err)
	sparse, err := d.CreateForest(false, Boolean, MultiTerminal, StoragePreference(SparseStorage))
	require.NoError(t, err)
	e, err := full.EdgeFromMinterms([][]int{{0, 1, 2}, {2, DontCare, 0}, {1, 1, 1}})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, full.WriteEdge(&buf, e))
	back, err := sparse.ReadEdge(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	// dense and sparse encodings are semantically equivalent
	c1, err := full.Cardinality(e)
	require.NoError(t, err)
	c2, err := sparse.Cardinality(back)
	require.NoError(t, err)
	require.Equal(t, c1, c2)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				v1, err := full.EvalBool(e, []int{i, j, k}, nil)
				require.NoError(t, err)
				v2, err := sparse.EvalBool(back, []int{i, j, k}, nil)
				require.NoError(t, err)
				require.Equal(t, v1, v2)
			}
		}
	}
}

func TestEVEdgeRoundTrip(t *testing.T) {
	_, f := evSetup(t, []int{4, 4})
	e, err := f.EdgeFromValues([][]int{{0, 1}, {3, 2}, {1, DontCare}}, []int64{4, 9, 2})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.WriteEdge(&buf, e))
	back, err := f.ReadEdge(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, back.Equal(e))
}

func TestEdgeDumpErrors(t *testing.T) {
	_, f := mkForest(t, []int{3, 3})
	_, err := f.ReadEdge(bytes.NewReader([]byte("garbage")))
	require.ErrorIs(t, err, &Error{Code: InvalidArgument})

	_, other := mkForest(t, []int{3, 3, 3})
	e, err := other.FromBool(true)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, other.WriteEdge(&buf, e))
	_, err = f.ReadEdge(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, &Error{Code: DomainMismatch})
}

func TestPoliciesTOML(t *testing.T) {
	src := `
reduction = "quasi"
deletion = "pessimistic"
storage = "sparse"
reorder = "bubble-up"
zombie-trigger = 42
orphan-trigger = 17
compaction = 55
cache-size = 2048
`
	pol := DefaultPolicies(false)
	_, err := toml.Decode(src, &pol)
	require.NoError(t, err)
	require.Equal(t, QuasiReduced, pol.Reduction)
	require.Equal(t, PessimisticDeletion, pol.Deletion)
	require.Equal(t, SparseStorage, pol.Storage)
	require.Equal(t, BubbleUp, pol.Reorder)
	require.Equal(t, 42, pol.ZombieTrigger)
	require.Equal(t, 17, pol.OrphanTrigger)
	require.Equal(t, 55, pol.Compaction)
	require.Equal(t, 2048, pol.CacheSize)

	var buf bytes.Buffer
	require.NoError(t, toml.NewEncoder(&buf).Encode(pol))
	back := DefaultPolicies(true)
	_, err = toml.Decode(buf.String(), &back)
	require.NoError(t, err)
	require.Equal(t, pol, back)
}

func TestPrintFunctions(t *testing.T) {
	_, f := mkForest(t, []int{3, 3})
	e, err := f.EdgeFromMinterms([][]int{{0, 1}, {2, 2}})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.PrintSet(&buf, e))
	require.Contains(t, buf.String(), "edge")
	buf.Reset()
	require.NoError(t, f.PrintDot(&buf, e))
	require.Contains(t, buf.String(), "digraph G {")
	require.NotEmpty(t, f.Print(e))
}
