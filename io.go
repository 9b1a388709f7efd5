// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"bufio"
	"fmt"
	"io"
)

// Serialization of edges as rooted subgraph dumps. The format is
// line-oriented and versioned; it round-trips within one library version.
// Reading goes through the reducer, so a restored edge is canonical in its
// destination forest even when the source forest stored its nodes with a
// different encoding preference.

const edgeDumpVersion = 1

// WriteEdge writes the subgraph rooted at e.
func (f *Forest) WriteEdge(w io.Writer, e Edge) error {
	if err := f.checkEdge(e); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	rel := 0
	if f.relation {
		rel = 1
	}
	fmt.Fprintf(bw, "medd-edge %d %d %d %d %d %d\n", edgeDumpVersion, rel,
		int(f.rtype), int(f.label), int(f.pol.Reduction), f.d.NumVars())
	// bottom-up sequence numbering of reachable nodes
	seq := make(map[int]int)
	var order []int
	var visit func(n int)
	visit = func(n int) {
		if n <= 0 || seq[n] != 0 {
			return
		}
		seq[n] = -1 // mark
		r := f.readSparse(n, f.nodeLevel(n), -1)
		kids := append([]int(nil), r.down[:r.nnz]...)
		f.putReader(r)
		for _, c := range kids {
			visit(c)
		}
		order = append(order, n)
		seq[n] = len(order)
	}
	visit(e.node)
	fmt.Fprintf(bw, "nodes %d\n", len(order))
	for _, n := range order {
		r := f.readSparse(n, f.nodeLevel(n), -1)
		fmt.Fprintf(bw, "%d %d %d", seq[n], f.nodeLevel(n), r.nnz)
		for z := 0; z < r.nnz; z++ {
			c := r.down[z]
			if c > 0 {
				c = seq[c]
			} else {
				c = -(-c) - 1000000000 // terminals shifted out of the id range
			}
			fmt.Fprintf(bw, " %d %d %d", r.index[z], c, r.edge[z])
		}
		fmt.Fprintln(bw)
		f.putReader(r)
	}
	root := e.node
	if root > 0 {
		root = seq[root]
	} else {
		root = root - 1000000000
	}
	fmt.Fprintf(bw, "root %d %d\n", e.ev, root)
	return bw.Flush()
}

// ReadEdge restores an edge previously written with WriteEdge into f. The
// forest must live on a domain with the same number of variables.
func (f *Forest) ReadEdge(rd io.Reader) (Edge, error) {
	br := bufio.NewReader(rd)
	var magic string
	var version, rel, rtype, label, rule, nvars int
	if _, err := fmt.Fscan(br, &magic, &version, &rel, &rtype, &label, &rule, &nvars); err != nil || magic != "medd-edge" {
		return Edge{}, errf(InvalidArgument, "bad edge dump header")
	}
	if version != edgeDumpVersion {
		return Edge{}, errf(InvalidArgument, "unsupported edge dump version %d", version)
	}
	if nvars != f.d.NumVars() {
		return Edge{}, errf(DomainMismatch, "dump for %d variables read into a %d-variable domain", nvars, f.d.NumVars())
	}
	if (rel == 1) != f.relation || RangeType(rtype) != f.rtype || Labeling(label) != f.label ||
		Reduction(rule) != f.pol.Reduction {
		return Edge{}, errf(TypeMismatch, "dump kind does not match the destination forest")
	}
	var tok string
	var count int
	if _, err := fmt.Fscan(br, &tok, &count); err != nil || tok != "nodes" {
		return Edge{}, errf(InvalidArgument, "bad node count")
	}
	handles := make(map[int]int, count)
	decode := func(c int) int {
		if c <= -1000000000 {
			return -(-(c + 1000000000)) // terminal, stored shifted
		}
		return handles[c]
	}
	cleanup := func() {
		for _, h := range handles {
			f.unlinkNode(h)
		}
	}
	for n := 0; n < count; n++ {
		var id, nnz int
		var level int32
		if _, err := fmt.Fscan(br, &id, &level, &nnz); err != nil {
			cleanup()
			return Edge{}, errf(InvalidArgument, "bad node record: %v", err)
		}
		b := f.newBuilder(level)
		for z := 0; z < nnz; z++ {
			var idx, c int
			var ev int64
			if _, err := fmt.Fscan(br, &idx, &c, &ev); err != nil {
				b.release()
				cleanup()
				return Edge{}, errf(InvalidArgument, "bad node entry: %v", err)
			}
			if idx < 0 || idx >= b.size {
				b.release()
				cleanup()
				return Edge{}, errf(InvalidAssignment, "index %d out of bounds in dump", idx)
			}
			b.set(idx, ev, f.linkNode(decode(c)))
		}
		// the dump records reduced nodes, so re-reducing them cannot
		// collapse; still, go through the reducer to stay canonical when
		// policies differ
		_, h, err := f.reduce(-1, b)
		if err != nil {
			cleanup()
			return Edge{}, err
		}
		handles[id] = h
	}
	var ev int64
	var root int
	if _, err := fmt.Fscan(br, &tok, &ev, &root); err != nil || tok != "root" {
		cleanup()
		return Edge{}, errf(InvalidArgument, "bad root line")
	}
	res := f.linkNode(decode(root))
	cleanup()
	return f.makeEdge(ev, res), nil
}
