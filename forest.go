// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// A Forest owns a set of decision-diagram nodes sharing one domain, one
// reduction rule and one edge labeling. All node creation goes through the
// reducer, so every handle held by user code or by the compute table points
// to a canonical node: within one forest, two handles are equal exactly when
// the functions they encode are equal.
type Forest struct {
	d        *Domain
	id       int
	relation bool
	rtype    RangeType
	label    Labeling
	pol      Policies

	// address table: handle -> (level, offset, counts); index 0 unused
	addr    []addrEntry
	aUnused int // head of the free handle stack

	arenas []*levelArena // indexed by mapped level
	unique *uniqueTable
	ct     *computeTable

	stats  forestStats
	logger Logger

	builderPool []*builder
	readerPool  []*reader
	scrap       []int // scratch handle list reused by removeRecord
}

type addrEntry struct {
	level      int32 // 0 when the handle is free
	offset     int   // 0 when the node is a zombie
	next       int   // unique chain, or free stack link
	incount    int32
	cachecount int32
}

type forestStats struct {
	active    int
	peak      int
	produced  int64
	zombies   int
	orphans   int
	reclaimed int64
	peakSlots int
	gcRuns    int
}

// CreateForest creates a forest over domain d. Relation forests interleave a
// primed level below every unprimed one and may use identity reduction; set
// forests may not. The range type and edge labeling must agree: EV+ implies
// an integer range and EV* a real one.
func (d *Domain) CreateForest(relation bool, rtype RangeType, label Labeling, opts ...Option) (*Forest, error) {
	pol := DefaultPolicies(relation)
	for _, o := range opts {
		o(&pol)
	}
	switch label {
	case EVPlus:
		if rtype != Integer {
			return nil, errf(TypeMismatch, "EV+ forests carry an integer range")
		}
	case EVTimes:
		if rtype != Real {
			return nil, errf(TypeMismatch, "EV* forests carry a real range")
		}
	}
	if pol.Reduction == IdentityReduced && !relation {
		return nil, errf(InvalidArgument, "identity reduction requires a relation forest")
	}
	f := &Forest{
		d:        d,
		relation: relation,
		rtype:    rtype,
		label:    label,
		pol:      pol,
		addr:     make([]addrEntry, 1, 1024),
	}
	n := d.NumVars()
	top := n
	if relation {
		top = 2 * n
	}
	f.arenas = make([]*levelArena, top+1)
	for k := 1; k <= top; k++ {
		f.arenas[k] = newLevelArena(256, f.ev(), pol.MaxArenaSlots)
	}
	f.unique = newUniqueTable(f, 1024)
	f.ct = newComputeTable(f, pol.CacheSize, pol.CacheRatio)
	f.id = len(d.forests) + 1
	d.register(f)
	return f, nil
}

// Domain returns the domain the forest was created on.
func (f *Forest) Domain() *Domain { return f.d }

// IsRelation reports whether the forest stores relations (matrices).
func (f *Forest) IsRelation() bool { return f.relation }

// Range returns the range type of the forest.
func (f *Forest) Range() RangeType { return f.rtype }

// EdgeLabeling returns the edge labeling of the forest.
func (f *Forest) EdgeLabeling() Labeling { return f.label }

// Policies returns a copy of the (immutable) forest policies.
func (f *Forest) Policies() Policies { return f.pol }

// SetLogger attaches a logger sink that receives phase events and per-level
// node-count deltas. A nil logger detaches.
func (f *Forest) SetLogger(l Logger) {
	f.logger = l
	if l != nil {
		l.ForestInfo(f)
	}
}

func (f *Forest) ev() bool { return f.label != MultiTerminal }

// mapLevel folds a signed level into an arena index: set forests use the
// level itself, relation forests interleave primed levels below unprimed
// ones.
func (f *Forest) mapLevel(level int32) int {
	if !f.relation {
		return int(level)
	}
	if level < 0 {
		return -2*int(level) - 1
	}
	return 2 * int(level)
}

func (f *Forest) nodeLevel(h int) int32 {
	if h <= 0 {
		return 0
	}
	return f.addr[h].level
}

func (f *Forest) isActive(h int) bool {
	return h > 0 && h < len(f.addr) && f.addr[h].offset > 0
}

// isStale reports that a compute-table entry referencing h must go: h is a
// zombie or its handle has been freed. Orphans under optimistic deletion are
// not stale; they can be reclaimed by a link.
func (f *Forest) isStale(h int) bool {
	if h <= 0 {
		return false
	}
	if h >= len(f.addr) {
		return true
	}
	e := &f.addr[h]
	return e.level == 0 || e.offset == 0
}

func (f *Forest) newHandle() int {
	if f.aUnused != 0 {
		h := f.aUnused
		f.aUnused = f.addr[h].next
		f.addr[h] = addrEntry{next: -1}
		return h
	}
	f.addr = append(f.addr, addrEntry{next: -1})
	return len(f.addr) - 1
}

func (f *Forest) freeHandle(h int) {
	f.addr[h] = addrEntry{next: f.aUnused}
	f.aUnused = h
}

// linkNode transfers one increment of incoming count to the caller. It
// returns h so that calls chain.
func (f *Forest) linkNode(h int) int {
	if h <= 0 {
		return h
	}
	e := &f.addr[h]
	if e.incount == 0 && e.offset > 0 && f.pol.Deletion != PessimisticDeletion {
		// reclaimed orphan
		f.stats.orphans--
		f.stats.reclaimed++
	}
	e.incount++
	return h
}

// unlinkNode releases one increment of incoming count. A node whose count
// reaches zero becomes an orphan; under pessimistic deletion it is disposed
// of immediately.
func (f *Forest) unlinkNode(h int) {
	if h <= 0 {
		return
	}
	e := &f.addr[h]
	e.incount--
	if e.incount > 0 {
		return
	}
	switch f.pol.Deletion {
	case PessimisticDeletion:
		if e.cachecount > 0 {
			f.zombifyNode(h)
		} else {
			f.deleteNode(h)
		}
	default:
		f.stats.orphans++
	}
}

// cacheNode adds a compute-table reference to h.
func (f *Forest) cacheNode(h int) {
	if h > 0 {
		f.addr[h].cachecount++
	}
}

// uncacheNode releases a compute-table reference; dropping the last one
// finishes the destruction of zombies and, under optimistic deletion, of
// orphans already known to be dead.
func (f *Forest) uncacheNode(h int) {
	if h <= 0 {
		return
	}
	e := &f.addr[h]
	e.cachecount--
	if e.cachecount > 0 {
		return
	}
	if e.level != 0 && e.offset == 0 {
		// zombie with no remaining cache entries
		f.stats.zombies--
		f.freeHandle(h)
	}
}

// removeRecord takes a node out of the unique table, releases its children
// and recycles its arena record, leaving the handle as a zombie shell.
func (f *Forest) removeRecord(h int) {
	e := &f.addr[h]
	f.unique.remove(h)
	a := f.arenas[f.mapLevel(e.level)]
	o := e.offset
	code := int(a.data[o])
	// collect children before the record is recycled
	f.scrap = f.scrap[:0]
	if code&1 == 0 {
		s := code >> 1
		for i := 0; i < s; i++ {
			if c := int(a.data[o+1+i]); c > 0 {
				f.scrap = append(f.scrap, c)
			}
		}
	} else {
		z := code >> 1
		for i := 0; i < z; i++ {
			if c := int(a.data[o+1+z+i]); c > 0 {
				f.scrap = append(f.scrap, c)
			}
		}
	}
	a.recycle(o, a.slotsFor(code))
	e.offset = 0
	f.stats.active--
	f.logDelta(e.level, -1)
	children := append([]int(nil), f.scrap...)
	for _, c := range children {
		f.unlinkNode(c)
	}
}

func (f *Forest) zombifyNode(h int) {
	f.removeRecord(h)
	f.stats.zombies++
}

func (f *Forest) deleteNode(h int) {
	f.removeRecord(h)
	f.freeHandle(h)
}

// maybeGC runs a collection cycle when the configured zombie or orphan
// trigger is crossed. It is called at node-creation boundaries only.
func (f *Forest) maybeGC() {
	if f.pol.Deletion == NeverDelete {
		return
	}
	if f.stats.zombies > f.pol.ZombieTrigger || f.stats.orphans > f.pol.OrphanTrigger {
		f.GarbageCollect()
	}
}

// GarbageCollect disposes of every orphaned node, sweeps stale entries out
// of the compute table, and compacts level arenas that crossed the hole
// threshold. Outstanding handles are never invalidated; GC only relocates
// storage.
func (f *Forest) GarbageCollect() {
	f.logPhaseBegin("gc")
	f.stats.gcRuns++
	if f.pol.Deletion != NeverDelete {
		for {
			found := false
			for h := 1; h < len(f.addr); h++ {
				e := &f.addr[h]
				if e.level == 0 || e.offset == 0 || e.incount > 0 {
					continue
				}
				found = true
				if e.cachecount > 0 {
					f.zombifyNode(h)
				} else {
					f.deleteNode(h)
				}
			}
			if !found {
				break
			}
		}
		f.stats.orphans = 0
		f.ct.removeStales()
	}
	f.ct.maybeResize()
	f.compactIfNeeded()
	f.logPhaseEnd("gc")
}

// CompactMemory forces a compaction pass over every level arena.
func (f *Forest) CompactMemory() {
	for k := 1; k < len(f.arenas); k++ {
		f.compactArena(f.arenas[k])
	}
}

func (f *Forest) compactIfNeeded() {
	for k := 1; k < len(f.arenas); k++ {
		if f.arenas[k].needsCompaction(f.pol.Compaction) {
			f.compactArena(f.arenas[k])
		}
	}
}

func (f *Forest) compactArena(a *levelArena) {
	a.compact(func(h, offset int) {
		f.addr[h].offset = offset
	})
}

// collectLevel returns the handles of the active nodes at a signed level.
func (f *Forest) collectLevel(level int32) []int {
	var res []int
	for h := 1; h < len(f.addr); h++ {
		if f.addr[h].level == level && f.addr[h].offset > 0 {
			res = append(res, h)
		}
	}
	return res
}

func (f *Forest) memorySlots() int {
	n := 0
	for k := 1; k < len(f.arenas); k++ {
		n += len(f.arenas[k].data)
	}
	return n
}

func (f *Forest) holeSlots() int {
	n := 0
	for k := 1; k < len(f.arenas); k++ {
		n += f.arenas[k].holeSlots
	}
	return n
}

func (f *Forest) logDelta(level int32, delta int) {
	if f.logger != nil {
		f.logger.NodeCountDelta(f, int(level), delta)
	}
}

func (f *Forest) logPhaseBegin(name string) {
	if f.logger != nil {
		f.logger.PhaseBegin(name)
	}
}

func (f *Forest) logPhaseEnd(name string) {
	if f.logger != nil {
		f.logger.PhaseEnd(name)
	}
}
