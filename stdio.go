// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// Print returns a one-line description of the node behind an edge.
func (f *Forest) Print(e Edge) string {
	if e.node == 0 {
		return "0"
	}
	if e.node < 0 {
		switch f.rtype {
		case Boolean:
			return "true"
		case Integer:
			return fmt.Sprintf("t%d", intOfTerminal(e.node))
		default:
			return fmt.Sprintf("t%g", floatOfTerminal(e.node))
		}
	}
	if !f.isActive(e.node) {
		return fmt.Sprintf("error (node %d undefined)", e.node)
	}
	return fmt.Sprintf("(%d[%d])", e.node, f.addr[e.node].level)
}

// reachable collects the non-terminal handles reachable from n.
func (f *Forest) reachable(n int, seen map[int]bool) {
	if n <= 0 || seen[n] {
		return
	}
	seen[n] = true
	r := f.readSparse(n, f.nodeLevel(n), -1)
	kids := append([]int(nil), r.down[:r.nnz]...)
	f.putReader(r)
	for _, c := range kids {
		f.reachable(c, seen)
	}
}

// PrintSet writes a tabular description of every node reachable from e.
func (f *Forest) PrintSet(w io.Writer, e Edge) error {
	if err := f.checkEdge(e); err != nil {
		return err
	}
	if e.node <= 0 {
		fmt.Fprintln(w, f.Print(e))
		return nil
	}
	seen := make(map[int]bool)
	f.reachable(e.node, seen)
	nodes := make([]int, 0, len(seen))
	for h := range seen {
		nodes = append(nodes, h)
	}
	sort.Ints(nodes)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "edge\t(%v, %d)\n", e.ev, e.node)
	for _, h := range nodes {
		r := f.readSparse(h, f.nodeLevel(h), -1)
		fmt.Fprintf(tw, "%d\t[%d]\t", h, f.nodeLevel(h))
		for z := 0; z < r.nnz; z++ {
			if f.ev() {
				fmt.Fprintf(tw, "%d:<%d,%d> ", r.index[z], r.edge[z], r.down[z])
			} else {
				fmt.Fprintf(tw, "%d:%d ", r.index[z], r.down[z])
			}
		}
		fmt.Fprintln(tw)
		f.putReader(r)
	}
	return tw.Flush()
}

// PrintDot writes a graph description of the nodes reachable from e in the
// DOT format. Arcs to the transparent terminal are not drawn.
func (f *Forest) PrintDot(w io.Writer, e Edge) error {
	if err := f.checkEdge(e); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph G {")
	seen := make(map[int]bool)
	f.reachable(e.node, seen)
	nodes := make([]int, 0, len(seen))
	for h := range seen {
		nodes = append(nodes, h)
	}
	sort.Ints(nodes)
	terms := make(map[int]bool)
	for _, h := range nodes {
		fmt.Fprintf(bw, "%d %s\n", h, dotlabel(h, int(f.nodeLevel(h))))
		r := f.readSparse(h, f.nodeLevel(h), -1)
		for z := 0; z < r.nnz; z++ {
			c := r.down[z]
			if c < 0 {
				terms[c] = true
				fmt.Fprintf(bw, "%d -> \"t%d\" [label=\"%d\"];\n", h, -c, r.index[z])
				continue
			}
			fmt.Fprintf(bw, "%d -> %d [label=\"%d\"];\n", h, c, r.index[z])
		}
		f.putReader(r)
	}
	for t := range terms {
		var lbl string
		switch f.rtype {
		case Boolean:
			lbl = "true"
		case Integer:
			lbl = fmt.Sprintf("%d", intOfTerminal(t))
		default:
			lbl = fmt.Sprintf("%g", floatOfTerminal(t))
		}
		fmt.Fprintf(bw, "\"t%d\" [shape=box, label=\"%s\", style=filled, height=0.3, width=0.3];\n", -t, lbl)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func dotlabel(h, level int) string {
	return fmt.Sprintf(`[label=<
	<FONT POINT-SIZE="20">%d</FONT>
	<FONT POINT-SIZE="10">[%d]</FONT>
>];`, h, level)
}

// dumpInternal writes the raw storage of every level, for debugging.
func (f *Forest) dumpInternal(w io.Writer) {
	for k := 1; k < len(f.arenas); k++ {
		a := f.arenas[k]
		fmt.Fprintf(w, "level %d: last=%d holes=%d nodes=%d\n", k, a.last, a.holeSlots, a.nodes)
		o := 1
		for o <= a.last {
			word := a.data[o]
			switch {
			case word == 0:
				fmt.Fprintf(w, "  %d: dead\n", o)
				o++
			case word < 0:
				fmt.Fprintf(w, "  %d: hole %d\n", o, -word)
				o += int(-word)
			default:
				slots := a.slotsFor(int(word))
				fmt.Fprintf(w, "  %d: node %d %v\n", o, a.data[o+slots-1], a.data[o:o+slots])
				o += slots
			}
		}
	}
}
