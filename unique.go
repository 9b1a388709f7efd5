// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"encoding/binary"
	"math/big"

	"github.com/cespare/xxhash/v2"
)

// The unique table is a chained hash over every reduced non-terminal node of
// the forest, keyed by (level, children, edge values). Chains run through
// the next field of the address table. Hashes are computed by streaming the
// non-transparent (index, child, edge) triples of a node into an xxhash
// digest, in index order, so that the full and sparse encodings of the same
// node hash identically.
type uniqueTable struct {
	f       *Forest
	buckets []int
	entries int
	// usage counters
	accesses int64
	hits     int64
	misses   int64
	chained  int64
}

func newUniqueTable(f *Forest, size int) *uniqueTable {
	return &uniqueTable{f: f, buckets: make([]int, tablePrime(size))}
}

// tablePrime returns the smallest prime not below n. The unique table and
// the compute table reduce their hashes modulo the table length, so a prime
// length keeps the buckets evenly spread whatever structure the handles
// have. Candidates are screened against a few small factors before the
// exact primality test, which never errs below 2^64.
func tablePrime(n int) int {
	if n%2 == 0 {
		n++
	}
	for ; !isTablePrime(n); n += 2 {
	}
	return n
}

func isTablePrime(n int) bool {
	for _, p := range [...]int{3, 5, 7, 11, 13} {
		if n != p && n%p == 0 {
			return false
		}
	}
	return big.NewInt(int64(n)).ProbablyPrime(0)
}

func hashWrite(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.Write(buf[:])
}

// evHashBits returns the bits of an edge value that participate in hashing.
// EV* values are quantized by dropping low mantissa bits, so that values
// within the closeness threshold usually land in the same bucket.
func (f *Forest) evHashBits(ev int64) uint64 {
	if f.label != EVTimes {
		return uint64(ev)
	}
	return uint64(float32bitsOf(evFloatOfBits(ev))) &^ 0x1f
}

// hashBuilder computes the unique-table hash of an unreduced node.
func (u *uniqueTable) hashBuilder(b *builder) uint64 {
	d := xxhash.New()
	hashWrite(d, uint64(uint32(b.level)))
	ev := u.f.ev()
	for i := 0; i < b.size; i++ {
		if b.down[i] == 0 {
			continue
		}
		hashWrite(d, uint64(i))
		hashWrite(d, uint64(b.down[i]))
		if ev {
			hashWrite(d, u.f.evHashBits(b.edge[i]))
		}
	}
	return d.Sum64()
}

// hashNode computes the same digest from a stored record.
func (u *uniqueTable) hashNode(h int) uint64 {
	f := u.f
	e := &f.addr[h]
	a := f.arenas[f.mapLevel(e.level)]
	o := e.offset
	code := int(a.data[o])
	d := xxhash.New()
	hashWrite(d, uint64(uint32(e.level)))
	if code&1 == 0 {
		s := code >> 1
		for i := 0; i < s; i++ {
			c := int(a.data[o+1+i])
			if c == 0 {
				continue
			}
			hashWrite(d, uint64(i))
			hashWrite(d, uint64(c))
			if f.ev() {
				hashWrite(d, f.evHashBits(a.data[o+1+s+i]))
			}
		}
	} else {
		z := code >> 1
		for i := 0; i < z; i++ {
			hashWrite(d, uint64(int(a.data[o+1+i])))
			hashWrite(d, uint64(int(a.data[o+1+z+i])))
			if f.ev() {
				hashWrite(d, f.evHashBits(a.data[o+1+2*z+i]))
			}
		}
	}
	return d.Sum64()
}

// equalsBuilder compares an unreduced (dense) node against a stored record.
// Against full storage this is a pointwise comparison up to the stored size,
// with the remaining entries required to be transparent; against sparse
// storage it walks the index list.
func (u *uniqueTable) equalsBuilder(b *builder, h int) bool {
	f := u.f
	e := &f.addr[h]
	if e.level != b.level {
		return false
	}
	a := f.arenas[f.mapLevel(e.level)]
	o := e.offset
	code := int(a.data[o])
	if code&1 == 0 {
		s := code >> 1
		if s > b.size {
			return false
		}
		for i := 0; i < s; i++ {
			if b.down[i] != int(a.data[o+1+i]) {
				return false
			}
			if f.ev() && b.down[i] != 0 && !f.evClose(a.data[o+1+s+i], b.edge[i]) {
				return false
			}
		}
		for i := s; i < b.size; i++ {
			if b.down[i] != 0 {
				return false
			}
		}
		return true
	}
	z := code >> 1
	prev := -1
	for i := 0; i < z; i++ {
		idx := int(a.data[o+1+i])
		for j := prev + 1; j < idx; j++ {
			if b.down[j] != 0 {
				return false
			}
		}
		if b.down[idx] != int(a.data[o+1+z+i]) {
			return false
		}
		if f.ev() && !f.evClose(a.data[o+1+2*z+i], b.edge[idx]) {
			return false
		}
		prev = idx
	}
	for j := prev + 1; j < b.size; j++ {
		if b.down[j] != 0 {
			return false
		}
	}
	return true
}

// find returns the handle of a node equal to b, or 0.
func (u *uniqueTable) find(b *builder, hash uint64) int {
	u.accesses++
	i := int(hash % uint64(len(u.buckets)))
	for h := u.buckets[i]; h != 0; h = u.f.addr[h].next {
		if u.equalsBuilder(b, h) {
			u.hits++
			return h
		}
		u.chained++
	}
	u.misses++
	return 0
}

func (u *uniqueTable) insert(h int, hash uint64) {
	i := int(hash % uint64(len(u.buckets)))
	u.f.addr[h].next = u.buckets[i]
	u.buckets[i] = h
	u.entries++
	if u.entries > 4*len(u.buckets) {
		u.rehash(tablePrime(2 * len(u.buckets)))
	}
}

func (u *uniqueTable) remove(h int) {
	hash := u.hashNode(h)
	i := int(hash % uint64(len(u.buckets)))
	prev := 0
	for c := u.buckets[i]; c != 0; c = u.f.addr[c].next {
		if c == h {
			if prev == 0 {
				u.buckets[i] = u.f.addr[c].next
			} else {
				u.f.addr[prev].next = u.f.addr[c].next
			}
			u.f.addr[h].next = -1
			u.entries--
			return
		}
		prev = c
	}
}

func (u *uniqueTable) rehash(size int) {
	old := u.buckets
	u.buckets = make([]int, size)
	for _, head := range old {
		for h := head; h != 0; {
			next := u.f.addr[h].next
			i := int(u.hashNode(h) % uint64(len(u.buckets)))
			u.f.addr[h].next = u.buckets[i]
			u.buckets[i] = h
			h = next
		}
	}
}

// histogram returns the distribution of chain lengths, for statistics.
func (u *uniqueTable) histogram() map[int]int {
	res := make(map[int]int)
	for _, head := range u.buckets {
		n := 0
		for h := head; h != 0; h = u.f.addr[h].next {
			n++
		}
		res[n]++
	}
	return res
}
