// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

// Variable reordering rewrites the nodes of two adjacent levels so the
// forest encodes the same functions under the swapped order, preserving
// every user-held edge: handles never change, only the records behind them.
// A permutation is realized as a schedule of adjacent swaps picked by the
// reordering strategy.

type swapEntry struct {
	ev int64
	h  int
}

type swapState struct {
	f      *Forest
	moved  []int // uppers independent of the lower variable
	depend []int
	lowers []int
	mat    map[int][]swapEntry // cofactor matrix of depending uppers
	kids   map[int][]int       // their old child lists
}

// Reorder rewrites every forest of the domain so that the variable order
// becomes order: order[k-1] is the variable to place at level k. The swap
// schedule follows the strategy of the first forest; relation forests must
// hold no nodes.
func (d *Domain) Reorder(order []int) error {
	s := LowestInversion
	if len(d.forests) > 0 {
		s = d.forests[0].pol.Reorder
	}
	return d.ReorderWithStrategy(order, s)
}

// ReorderWithStrategy is Reorder with an explicit swap schedule strategy.
func (d *Domain) ReorderWithStrategy(order []int, s ReorderStrategy) error {
	n := d.NumVars()
	if len(order) != n {
		return errf(InvalidArgument, "order has %d entries for %d variables", len(order), n)
	}
	seen := make([]bool, n+1)
	for _, v := range order {
		if v < 1 || v > n || seen[v] {
			return errf(InvalidArgument, "order is not a permutation")
		}
		seen[v] = true
	}
	for _, f := range d.forests {
		if f.relation && f.stats.active > 0 {
			return errf(NotImplemented, "reordering with a non-empty relation forest")
		}
	}
	// rank[v] = target level of variable v
	rank := make([]int, n+1)
	for k, v := range order {
		rank[v] = k + 1
	}
	sorted := func() bool {
		for k := 1; k <= n; k++ {
			if rank[d.level2var[k]] != k {
				return false
			}
		}
		return true
	}
	inverted := func(l int) bool {
		return rank[d.level2var[l]] > rank[d.level2var[l+1]]
	}
	switch s {
	case BubbleUp:
		for t := n; t >= 1; t-- {
			v := order[t-1]
			for l := d.var2level[v]; l < t; l++ {
				if err := d.swapAt(l); err != nil {
					return err
				}
			}
		}
	case BubbleDown:
		for t := 1; t <= n; t++ {
			v := order[t-1]
			for l := d.var2level[v]; l > t; l-- {
				if err := d.swapAt(l - 1); err != nil {
					return err
				}
			}
		}
	default:
		for !sorted() {
			pick := -1
			for l := 1; l < n; l++ {
				if !inverted(l) {
					continue
				}
				switch s {
				case LowestInversion:
					if pick < 0 {
						pick = l
					}
				case HighestInversion:
					pick = l
				case LowestCost:
					if pick < 0 || d.swapCost(l) < d.swapCost(pick) {
						pick = l
					}
				}
			}
			if pick < 0 {
				break
			}
			if err := d.swapAt(pick); err != nil {
				return err
			}
		}
	}
	return nil
}

// swapCost counts the nodes that an adjacent swap at l would rewrite.
func (d *Domain) swapCost(l int) int {
	cost := 0
	for _, f := range d.forests {
		if f.relation {
			continue
		}
		cost += f.arenas[f.mapLevel(int32(l))].nodes
		cost += f.arenas[f.mapLevel(int32(l+1))].nodes
	}
	return cost
}

// swapAt exchanges the variables at levels l and l+1 in every forest of the
// domain.
func (d *Domain) swapAt(l int) error {
	lo := int32(l)
	states := make([]*swapState, 0, len(d.forests))
	for _, f := range d.forests {
		if f.relation {
			continue
		}
		states = append(states, f.swapExtract(lo))
	}
	// swap the order itself; bounds follow through level2var
	d.level2var[l], d.level2var[l+1] = d.level2var[l+1], d.level2var[l]
	d.var2level[d.level2var[l]] = l
	d.var2level[d.level2var[l+1]] = l + 1
	for _, st := range states {
		if err := st.f.swapRebuild(lo, st); err != nil {
			return err
		}
		// results cached under the old order are meaningless now
		st.f.ct.reset()
	}
	return nil
}

// swapExtract reads, under the old order, everything the rebuild needs: the
// cofactor matrix of every upper node that depends on the lower variable.
// All swapped nodes leave the unique table here.
func (f *Forest) swapExtract(l int32) *swapState {
	lu := l + 1
	st := &swapState{
		f:      f,
		lowers: f.collectLevel(l),
		mat:    make(map[int][]swapEntry),
		kids:   make(map[int][]int),
	}
	uppers := f.collectLevel(lu)
	for _, h := range uppers {
		f.unique.remove(h)
	}
	for _, h := range st.lowers {
		f.unique.remove(h)
	}
	boundU := f.d.bound(lu)
	boundL := f.d.bound(l)
	for _, p := range uppers {
		rp := f.readDense(p, lu, -1)
		dep := false
		for i := 0; i < boundU; i++ {
			if f.nodeLevel(rp.down[i]) == l {
				dep = true
				break
			}
		}
		if !dep {
			st.moved = append(st.moved, p)
			f.putReader(rp)
			continue
		}
		st.depend = append(st.depend, p)
		// matrix entries hold their own references, so a collection cycle
		// in the middle of the rebuild cannot reclaim them
		mat := make([]swapEntry, boundU*boundL)
		kids := make([]int, boundU)
		for i := 0; i < boundU; i++ {
			g := rp.down[i]
			kids[i] = g
			if f.nodeLevel(g) == l {
				gr := f.readDense(g, l, -1)
				for j := 0; j < boundL; j++ {
					mat[i*boundL+j] = swapEntry{f.evCompose(rp.edge[i], gr.edge[j]), f.linkNode(gr.down[j])}
				}
				f.putReader(gr)
			} else {
				for j := 0; j < boundL; j++ {
					mat[i*boundL+j] = swapEntry{rp.edge[i], f.linkNode(g)}
				}
			}
		}
		f.putReader(rp)
		st.mat[p] = mat
		st.kids[p] = kids
	}
	return st
}

// swapRebuild runs under the new order: uppers independent of the swapped
// variable slide down a level, depending uppers are rebuilt in place from
// their transposed cofactor matrix, and surviving lower nodes move up.
func (f *Forest) swapRebuild(l int32, st *swapState) error {
	lu := l + 1
	boundU := f.d.bound(l)  // old upper variable, now at l
	boundL := f.d.bound(lu) // old lower variable, now at lu
	releaseMats := func(from int) {
		for _, q := range st.depend[from:] {
			for _, en := range st.mat[q] {
				f.unlinkNode(en.h)
			}
		}
	}
	for _, p := range st.moved {
		if err := f.moveRecord(p, l); err != nil {
			releaseMats(0)
			return err
		}
		f.unique.insert(p, f.unique.hashNode(p))
	}
	for pi, p := range st.depend {
		mat := st.mat[p]
		ub := f.newBuilder(lu)
		var err error
		for j := 0; j < boundL; j++ {
			lb := f.newBuilder(l)
			for i := 0; i < boundU; i++ {
				en := mat[i*boundL+j]
				f.linkNode(en.h)
				lb.set(i, en.ev, en.h)
			}
			var ev int64
			var h int
			ev, h, err = f.reduce(-1, lb)
			if err != nil {
				break
			}
			ub.set(j, ev, h)
		}
		if err == nil {
			nnz, last := ub.nnz()
			f.normalize(ub, nnz)
			err = f.rewriteRecord(p, ub, nnz, last)
		}
		if err != nil {
			ub.release()
			releaseMats(pi)
			return err
		}
		f.unique.insert(p, f.unique.hashNode(p))
		f.putBuilder(ub)
		for _, en := range mat {
			f.unlinkNode(en.h)
		}
		for _, g := range st.kids[p] {
			f.unlinkNode(g)
		}
	}
	for _, q := range st.lowers {
		if !f.isActive(q) {
			continue // reclaimed while the uppers were released
		}
		e := &f.addr[q]
		if e.incount > 0 {
			if err := f.moveRecord(q, lu); err != nil {
				return err
			}
			f.unique.insert(q, f.unique.hashNode(q))
			continue
		}
		if f.pol.Deletion != PessimisticDeletion && f.stats.orphans > 0 {
			f.stats.orphans--
		}
		if e.cachecount > 0 {
			f.zombifyNode(q)
		} else {
			f.deleteNode(q)
		}
	}
	return nil
}

// moveRecord relocates a node's record into the arena of another level,
// keeping its handle.
func (f *Forest) moveRecord(h int, level int32) error {
	e := &f.addr[h]
	a := f.arenas[f.mapLevel(e.level)]
	o := e.offset
	slots := a.slotsFor(int(a.data[o]))
	na := f.arenas[f.mapLevel(level)]
	no, err := na.request(slots)
	if err != nil {
		return err
	}
	copy(na.data[no:no+slots], a.data[o:o+slots])
	a.recycle(o, slots)
	e.level = level
	e.offset = no
	return nil
}

// rewriteRecord replaces the record behind an existing handle with the
// contents of a builder, keeping the incoming and cache counts.
func (f *Forest) rewriteRecord(h int, b *builder, nnz, last int) error {
	e := &f.addr[h]
	a := f.arenas[f.mapLevel(e.level)]
	o := e.offset
	a.recycle(o, a.slotsFor(int(a.data[o])))
	e.offset = 0
	if err := f.encodeRecord(h, b, nnz, last); err != nil {
		return err
	}
	return nil
}
