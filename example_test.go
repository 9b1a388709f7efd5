// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd_test

import (
	"fmt"

	"github.com/dalzilio/medd"
)

// This example shows the basic usage of the package: create a domain and a
// forest, build sets of tuples, combine them, and count the result.
func Example_basic() {
	// Three variables with four values each, bottom-up.
	d, _ := medd.CreateDomainBottomUp([]int{4, 4, 4})
	f, _ := d.CreateForest(false, medd.Boolean, medd.MultiTerminal)
	// a holds the tuples whose bottom variable is 0 and whose top variable is
	// 1 or 2, with the middle variable arbitrary.
	a, _ := f.EdgeFromMinterms([][]int{{0, medd.DontCare, 1}, {0, medd.DontCare, 2}})
	// b fixes the bottom variable to 0 and the middle one to 3.
	b, _ := f.EdgeFromMinterms([][]int{{0, 3, medd.DontCare}})
	u, _ := f.Union(a, b)
	card, _ := f.Cardinality(u)
	fmt.Printf("Number of tuples: %s\n", card)
	// Output:
	// Number of tuples: 10
}

// Relation forests pair every variable with a primed copy; saturation
// computes the states reachable through a transition relation.
func Example_reachability() {
	d, _ := medd.CreateDomainBottomUp([]int{3, 3})
	mdd, _ := d.CreateForest(false, medd.Boolean, medd.MultiTerminal)
	mxd, _ := d.CreateForest(true, medd.Boolean, medd.MultiTerminal)
	// three transitions incrementing the bottom variable modulo 3; the top
	// variable is unchanged
	rows := [][]int{{0, medd.DontCare}, {1, medd.DontCare}, {2, medd.DontCare}}
	cols := [][]int{{1, medd.DontChange}, {2, medd.DontChange}, {0, medd.DontChange}}
	r, _ := mxd.EdgeFromMintermPairs(rows, cols)
	s0, _ := mdd.EdgeFromMinterms([][]int{{0, 0}})
	reach, _ := mdd.ReachableDFS(s0, r)
	card, _ := mdd.Cardinality(reach)
	fmt.Printf("Reachable states: %s\n", card)
	// Output:
	// Reachable states: 3
}
