// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaRequestRecycle(t *testing.T) {
	a := newLevelArena(16, false, 0)
	o1, err := a.request(5)
	require.NoError(t, err)
	require.Equal(t, 1, o1)
	o2, err := a.request(6)
	require.NoError(t, err)
	require.Equal(t, 6, o2)
	require.Equal(t, 11, a.last)
	require.Equal(t, 2, a.nodes)
	// occupied regions always carry a positive size code in their first
	// slot and a handle in their last one
	a.data[o1], a.data[o1+4] = 6, 101
	a.data[o2], a.data[o2+5] = 8, 102

	// freeing the first region leaves a hole with the sentinel at both ends
	a.recycle(o1, 5)
	require.Equal(t, int64(-5), a.data[1])
	require.Equal(t, int64(-5), a.data[5])
	require.Equal(t, 5, a.holeSlots)

	// an exact-fit request reuses it
	o3, err := a.request(5)
	require.NoError(t, err)
	require.Equal(t, o1, o3)
	require.Equal(t, 0, a.holeSlots)
}

func TestArenaTailTrim(t *testing.T) {
	a := newLevelArena(16, false, 0)
	o1, _ := a.request(4)
	o2, _ := a.request(4)
	a.data[o1], a.data[o1+3] = 4, 101
	a.data[o2], a.data[o2+3] = 4, 102
	// freeing the tail region returns it to the free tail, no hole
	a.recycle(o2, 4)
	require.Equal(t, 4, a.last)
	require.Equal(t, 0, a.holeSlots)
	// freeing the rest empties the arena
	a.recycle(o1, 4)
	require.Equal(t, 0, a.last)
	require.Equal(t, 0, a.nodes)
}

func TestArenaCoalesce(t *testing.T) {
	a := newLevelArena(64, false, 0)
	o1, _ := a.request(4)
	o2, _ := a.request(4)
	o3, _ := a.request(4)
	o4, _ := a.request(4) // keeps the tail from trimming
	for _, o := range []int{o1, o2, o3, o4} {
		a.data[o], a.data[o+3] = 4, int64(100+o)
	}
	a.recycle(o1, 4)
	a.recycle(o3, 4)
	require.Equal(t, 8, a.holeSlots)
	// freeing the middle region merges all three into one hole
	a.recycle(o2, 4)
	require.Equal(t, 12, a.holeSlots)
	require.Equal(t, int64(-12), a.data[o1])
	require.Equal(t, int64(-12), a.data[o1+11])
	// an exact-fit request takes the merged hole
	o5, err := a.request(12)
	require.NoError(t, err)
	require.Equal(t, o1, o5)
}

func TestArenaCompact(t *testing.T) {
	a := newLevelArena(64, false, 0)
	// three fake records with back-pointers, then punch a hole in the middle
	writeRec := func(o, slots, handle int) {
		a.data[o] = int64(2 * (slots - 2)) // full size code
		a.data[o+slots-1] = int64(handle)
	}
	o1, _ := a.request(6)
	o2, _ := a.request(6)
	o3, _ := a.request(6)
	writeRec(o1, 6, 101)
	writeRec(o2, 6, 102)
	writeRec(o3, 6, 103)
	a.recycle(o2, 6)
	moved := make(map[int]int)
	a.compact(func(h, offset int) { moved[h] = offset })
	require.Equal(t, 0, a.holeSlots)
	require.Equal(t, 12, a.last)
	require.Equal(t, map[int]int{103: 7}, moved)
}

func TestArenaLargeHoleFirstFit(t *testing.T) {
	a := newLevelArena(256, false, 0)
	o1, _ := a.request(70)
	o2, _ := a.request(8)
	a.data[o1], a.data[o1+69] = 2, 101
	a.data[o2], a.data[o2+7] = 2, 102
	a.recycle(o1, 70)
	require.Equal(t, 70, a.holeSlots)
	// a smaller request splits the large hole, leaving the rest linked
	o3, err := a.request(60)
	require.NoError(t, err)
	require.Equal(t, o1, o3)
	require.Equal(t, 10, a.holeSlots)
	o4, err := a.request(10)
	require.NoError(t, err)
	require.Equal(t, o1+60, o4)
	require.Equal(t, 0, a.holeSlots)
}

func TestArenaLimit(t *testing.T) {
	a := newLevelArena(8, false, 20)
	_, err := a.request(10)
	require.NoError(t, err)
	_, err = a.request(10)
	require.Error(t, err)
	require.ErrorIs(t, err, &Error{Code: InsufficientMemory})
}
