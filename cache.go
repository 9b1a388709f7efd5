// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Operation codes. Every memoized operation of the apply engine has one; the
// code tags compute-table entries so that one monolithic table serves all
// operations on a forest.
const (
	opUnion uint8 = iota
	opIntersect
	opDifference
	opComplement
	opCopy
	opMin
	opMax
	opPlus
	opMinus
	opTimes
	opDivide
	opEqual
	opNotEqual
	opLess
	opLessEq
	opGreater
	opGreaterEq
	opCross
	opPreImage
	opPostImage
	opSaturate
	opRecFire
	opEVUnion
	opTCPost
	opMatVec
	opVecMat
	opLift
	numOps
)

// Slot kinds of compute-table keys. Node-handle slots hold cache-count
// references that keep the handle alive while the entry exists.
const (
	ctNone uint8 = iota
	ctOwn        // node handle in the owning forest
	ctPeer       // node handle in the peer forest of the operation
	ctInt        // plain integer (level, value delta)
)

type ctSig struct{ a, b, c uint8 }

var ctSigs = [numOps]ctSig{
	opUnion:      {ctOwn, ctOwn, ctInt},
	opIntersect:  {ctOwn, ctOwn, ctInt},
	opDifference: {ctOwn, ctOwn, ctInt},
	opComplement: {ctOwn, ctNone, ctNone},
	opCopy:       {ctPeer, ctInt, ctNone},
	opMin:        {ctOwn, ctOwn, ctInt},
	opMax:        {ctOwn, ctOwn, ctInt},
	opPlus:       {ctOwn, ctOwn, ctInt},
	opMinus:      {ctOwn, ctOwn, ctInt},
	opTimes:      {ctOwn, ctOwn, ctInt},
	opDivide:     {ctOwn, ctOwn, ctInt},
	opEqual:      {ctOwn, ctOwn, ctInt},
	opNotEqual:   {ctOwn, ctOwn, ctInt},
	opLess:       {ctOwn, ctOwn, ctInt},
	opLessEq:     {ctOwn, ctOwn, ctInt},
	opGreater:    {ctOwn, ctOwn, ctInt},
	opGreaterEq:  {ctOwn, ctOwn, ctInt},
	opCross:      {ctPeer, ctPeer, ctInt},
	opPreImage:   {ctOwn, ctPeer, ctNone},
	opPostImage:  {ctOwn, ctPeer, ctNone},
	opSaturate:   {ctOwn, ctInt, ctNone},
	opRecFire:    {ctOwn, ctPeer, ctNone},
	opEVUnion:    {ctOwn, ctOwn, ctInt},
	opTCPost:     {ctOwn, ctPeer, ctNone},
	opMatVec:     {ctPeer, ctOwn, ctNone},
	opVecMat:     {ctPeer, ctOwn, ctNone},
	opLift:       {ctPeer, ctInt, ctNone},
}

type ctEntry struct {
	op   uint8
	live bool
	a    int
	b    int
	c    int
	res  int
	resv int64
}

// The compute table memoizes operation results. It is an open-addressed
// table with a single probe: a colliding insertion evicts the previous
// occupant, which is the bounded-probe flavor the contract allows. Entries
// hold cache-count references on every node handle they mention and are
// swept when any of those handles becomes a zombie or dies.
type computeTable struct {
	f     *Forest
	peer  *Forest
	table []ctEntry
	ratio int
	hits  int64
	miss  int64
}

func newComputeTable(f *Forest, size, ratio int) *computeTable {
	return &computeTable{f: f, ratio: ratio, table: make([]ctEntry, tablePrime(size))}
}

func ctHash(op uint8, a, b, c int) uint64 {
	var buf [25]byte
	buf[0] = op
	binary.LittleEndian.PutUint64(buf[1:9], uint64(a))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(b))
	binary.LittleEndian.PutUint64(buf[17:25], uint64(c))
	return xxhash.Sum64(buf[:])
}

// setPeer declares the secondary forest of cross-forest operations. Entries
// recorded against a previous peer are dropped wholesale.
func (ct *computeTable) setPeer(p *Forest) {
	if ct.peer == p {
		return
	}
	if ct.peer != nil {
		ct.reset()
	}
	ct.peer = p
}

func (ct *computeTable) slotForest(kind uint8) *Forest {
	switch kind {
	case ctOwn:
		return ct.f
	case ctPeer:
		return ct.peer
	}
	return nil
}

func (ct *computeTable) entryStale(e *ctEntry) bool {
	sig := ctSigs[e.op]
	if f := ct.slotForest(sig.a); f != nil && f.isStale(e.a) {
		return true
	}
	if f := ct.slotForest(sig.b); f != nil && f.isStale(e.b) {
		return true
	}
	if f := ct.slotForest(sig.c); f != nil && f.isStale(e.c) {
		return true
	}
	return ct.f.isStale(e.res)
}

func (ct *computeTable) dropEntry(e *ctEntry) {
	sig := ctSigs[e.op]
	if f := ct.slotForest(sig.a); f != nil {
		f.uncacheNode(e.a)
	}
	if f := ct.slotForest(sig.b); f != nil {
		f.uncacheNode(e.b)
	}
	if f := ct.slotForest(sig.c); f != nil {
		f.uncacheNode(e.c)
	}
	ct.f.uncacheNode(e.res)
	e.live = false
}

func (ct *computeTable) find(op uint8, a, b, c int) (int, int64, bool) {
	e := &ct.table[ctHash(op, a, b, c)%uint64(len(ct.table))]
	if !e.live || e.op != op || e.a != a || e.b != b || e.c != c {
		ct.miss++
		return 0, 0, false
	}
	if ct.entryStale(e) {
		ct.dropEntry(e)
		ct.miss++
		return 0, 0, false
	}
	ct.hits++
	return e.res, e.resv, true
}

func (ct *computeTable) add(op uint8, a, b, c, res int, resv int64) {
	e := &ct.table[ctHash(op, a, b, c)%uint64(len(ct.table))]
	if e.live {
		ct.dropEntry(e)
	}
	sig := ctSigs[op]
	if f := ct.slotForest(sig.a); f != nil {
		f.cacheNode(a)
	}
	if f := ct.slotForest(sig.b); f != nil {
		f.cacheNode(b)
	}
	if f := ct.slotForest(sig.c); f != nil {
		f.cacheNode(c)
	}
	ct.f.cacheNode(res)
	*e = ctEntry{op: op, live: true, a: a, b: b, c: c, res: res, resv: resv}
}

// removeStales sweeps every entry whose node handles are no longer active.
func (ct *computeTable) removeStales() {
	for i := range ct.table {
		if ct.table[i].live && ct.entryStale(&ct.table[i]) {
			ct.dropEntry(&ct.table[i])
		}
	}
}

// removeAll drops every entry recorded for one operation.
func (ct *computeTable) removeAll(op uint8) {
	for i := range ct.table {
		if ct.table[i].live && ct.table[i].op == op {
			ct.dropEntry(&ct.table[i])
		}
	}
}

func (ct *computeTable) reset() {
	for i := range ct.table {
		if ct.table[i].live {
			ct.dropEntry(&ct.table[i])
		}
	}
}

// maybeResize grows the table following the cache ratio, rehoming live
// entries. Called from garbage collection, which is the only resize point.
func (ct *computeTable) maybeResize() {
	if ct.ratio <= 0 {
		return
	}
	want := tablePrime(ct.f.stats.active * ct.ratio / 100)
	if want <= len(ct.table) {
		return
	}
	old := ct.table
	ct.table = make([]ctEntry, want)
	for i := range old {
		if !old[i].live {
			continue
		}
		e := &ct.table[ctHash(old[i].op, old[i].a, old[i].b, old[i].c)%uint64(len(ct.table))]
		if e.live {
			ct.dropEntry(e)
		}
		*e = old[i]
	}
}

func (ct *computeTable) String() string {
	live := 0
	for i := range ct.table {
		if ct.table[i].live {
			live++
		}
	}
	return fmt.Sprintf("compute table: %d/%d entries, %d hits, %d misses", live, len(ct.table), ct.hits, ct.miss)
}
