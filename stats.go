// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"fmt"
	"unsafe"
)

// Stats is a snapshot of the resource usage of a forest.
type Stats struct {
	ActiveNodes     int
	PeakNodes       int
	Produced        int64
	ZombieNodes     int
	OrphanNodes     int
	ReclaimedNodes  int64
	MemorySlots     int
	PeakMemorySlots int
	HoleSlots       int
	GCRuns          int
	UniqueEntries   int
	CacheHits       int64
	CacheMisses     int64
}

// Stats returns the current usage counters of the forest.
func (f *Forest) Stats() Stats {
	return Stats{
		ActiveNodes:     f.stats.active,
		PeakNodes:       f.stats.peak,
		Produced:        f.stats.produced,
		ZombieNodes:     f.stats.zombies,
		OrphanNodes:     f.stats.orphans,
		ReclaimedNodes:  f.stats.reclaimed,
		MemorySlots:     f.memorySlots(),
		PeakMemorySlots: f.stats.peakSlots,
		HoleSlots:       f.holeSlots(),
		GCRuns:          f.stats.gcRuns,
		UniqueEntries:   f.unique.entries,
		CacheHits:       f.ct.hits,
		CacheMisses:     f.ct.miss,
	}
}

func humanSize(slots int, size uintptr) string {
	v := float64(slots) * float64(size)
	switch {
	case v >= 1<<30:
		return fmt.Sprintf("%.3g GB", v/(1<<30))
	case v >= 1<<20:
		return fmt.Sprintf("%.3g MB", v/(1<<20))
	case v >= 1<<10:
		return fmt.Sprintf("%.3g KB", v/(1<<10))
	}
	return fmt.Sprintf("%d B", int(v))
}

func (s Stats) String() string {
	res := fmt.Sprintf("Active:     %d\n", s.ActiveNodes)
	res += fmt.Sprintf("Peak:       %d\n", s.PeakNodes)
	res += fmt.Sprintf("Produced:   %d\n", s.Produced)
	res += fmt.Sprintf("Zombies:    %d\n", s.ZombieNodes)
	res += fmt.Sprintf("Orphans:    %d\n", s.OrphanNodes)
	res += fmt.Sprintf("Reclaimed:  %d\n", s.ReclaimedNodes)
	res += fmt.Sprintf("Memory:     %s (peak %s, holes %s)\n",
		humanSize(s.MemorySlots, unsafe.Sizeof(int64(0))),
		humanSize(s.PeakMemorySlots, unsafe.Sizeof(int64(0))),
		humanSize(s.HoleSlots, unsafe.Sizeof(int64(0))))
	res += fmt.Sprintf("# of GC:    %d\n", s.GCRuns)
	res += fmt.Sprintf("Unique:     %d entries\n", s.UniqueEntries)
	res += fmt.Sprintf("Cache Hit:  %d\n", s.CacheHits)
	res += fmt.Sprintf("Cache Miss: %d", s.CacheMisses)
	return res
}

// UniqueHistogram returns the distribution of unique-table chain lengths:
// histogram[n] buckets hold chains of n nodes.
func (f *Forest) UniqueHistogram() map[int]int {
	return f.unique.histogram()
}

// ComputeTableStats describes the occupancy of the compute table.
func (f *Forest) ComputeTableStats() string {
	return f.ct.String()
}
