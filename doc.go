// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

/*
Package medd implements multi-terminal and edge-valued decision diagrams
(MDDs) over a fixed tuple of discrete variables: sets of tuples,
integer- and real-valued functions, and primed/unprimed "matrix" diagrams
representing relations over those tuples.

# Basics

A Domain fixes an ordered list of variables, each with a bound. Forests are
created on a domain and own their nodes; each forest fixes whether it stores
sets or relations, the range of the functions (boolean, integer or real),
how values ride on the diagram (on terminals, or on edges with additive or
multiplicative accumulation), and a reduction rule. Nodes are referenced by
plain integer handles and kept canonical by a unique table: within one
forest, two edges are equal exactly when the functions they encode are
equal.

	d, _ := medd.CreateDomainBottomUp([]int{4, 4, 4})
	f, _ := d.CreateForest(false, medd.Boolean, medd.MultiTerminal)
	s, _ := f.EdgeFromMinterms([][]int{{0, 1, 2}, {3, medd.DontCare, 0}})
	card, _ := f.Cardinality(s)

Operations are memoized in a compute table, nodes are reference counted,
and orphaned nodes are reclaimed by a garbage collector whose policy
(pessimistic, optimistic or never) is fixed per forest. Long-running
operations report phase events and node-count deltas to an optional Logger.

# Relations and reachability

Relation forests interleave a primed (next-state) level below every
unprimed one and may use identity reduction, which collapses level pairs
acting as the identity on their variable. On top of images and a
breadth-first reachability loop, the package implements saturation
(ReachableDFS), a fixed-point operator that fires transition events level
by level, and a distance-annotated transitive closure on EV+ relations.

# Memory

Node payloads live in one slot arena per level, managed by a hole grid with
exact-size free lists and compaction. Statistics (node counts, memory,
unique table histogram) are available per forest, and edges can be dumped
and restored as rooted subgraphs.
*/
package medd
