// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

// Command queencover finds the minimum number of queens that cover (occupy
// or attack) every square of an NxN chess board.
//
// The default model states, for each of M queen slots, the row and the
// column of that queen (2M variables with bound N), and intersects the
// per-square covering constraints with two symmetry-breaking constraints:
// rows must be in order, and columns must be in order when rows are equal.
// M queens must then suffice, and forcing the trailing slots to duplicate
// their predecessor reduces the cover to its minimal size. The "squares"
// mode uses the simpler model with one boolean variable per square.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dalzilio/medd"
)

// queenVars maps each queen slot to the levels of its row and column
// variables, under one of three orders.
type queenVars struct {
	qr, qc []int
	name   string
}

func byQueens(m int) queenVars {
	v := queenVars{qr: make([]int, m), qc: make([]int, m), name: "by queens"}
	for i := 0; i < m; i++ {
		v.qc[i] = 2*i + 1
		v.qr[i] = 2*i + 2
	}
	return v
}

func rowsCols(m int) queenVars {
	v := queenVars{qr: make([]int, m), qc: make([]int, m), name: "rows above cols"}
	for i := 0; i < m; i++ {
		v.qc[i] = i + 1
		v.qr[i] = m + i + 1
	}
	return v
}

func colsRows(m int) queenVars {
	v := queenVars{qr: make([]int, m), qc: make([]int, m), name: "cols above rows"}
	for i := 0; i < m; i++ {
		v.qr[i] = i + 1
		v.qc[i] = m + i + 1
	}
	return v
}

// ordered builds the solution set of the row/col-ordered model and reduces
// it to the minimal number of distinct queens.
type ordered struct {
	n, m int
	v    queenVars
	f    *medd.Forest
}

func (o ordered) indicator(level, value int) (medd.Edge, error) {
	terms := make([]int64, o.n)
	terms[value] = 1
	return o.f.VarEdgeTerms(level, terms)
}

// someQueen is 1 when at least one queen satisfies the per-queen predicate.
func (o ordered) someQueen(pred func(i int) (medd.Edge, error)) (medd.Edge, error) {
	acc, err := pred(0)
	if err != nil {
		return medd.Edge{}, err
	}
	for i := 1; i < o.m; i++ {
		q, err := pred(i)
		if err != nil {
			return medd.Edge{}, err
		}
		next, err := o.f.Max(acc, q)
		q.Clear()
		acc.Clear()
		if err != nil {
			return medd.Edge{}, err
		}
		acc = next
	}
	return acc, nil
}

// onDiagonal is 1 when queen i sits on the diagonal row+col == d (plus) or
// row-col == d (minus).
func (o ordered) onDiagonal(i, d int, plus bool) (medd.Edge, error) {
	qr, err := o.f.VarEdge(o.v.qr[i])
	if err != nil {
		return medd.Edge{}, err
	}
	qc, err := o.f.VarEdge(o.v.qc[i])
	if err != nil {
		return medd.Edge{}, err
	}
	var sum medd.Edge
	if plus {
		sum, err = o.f.Plus(qr, qc)
	} else {
		sum, err = o.f.Minus(qr, qc)
	}
	qr.Clear()
	qc.Clear()
	if err != nil {
		return medd.Edge{}, err
	}
	constd, err := o.f.FromInt(int64(d))
	if err != nil {
		return medd.Edge{}, err
	}
	res, err := o.f.Equal(sum, constd)
	sum.Clear()
	constd.Clear()
	return res, err
}

// and multiplies b into acc, consuming both inputs.
func (o ordered) and(acc, b medd.Edge) (medd.Edge, error) {
	res, err := o.f.Times(acc, b)
	acc.Clear()
	b.Clear()
	return res, err
}

// rowOrder forces queen rows to be non-decreasing.
func (o ordered) rowOrder() (medd.Edge, error) {
	acc, err := o.f.FromInt(1)
	if err != nil {
		return medd.Edge{}, err
	}
	for i := 1; i < o.m; i++ {
		ri, err := o.f.VarEdge(o.v.qr[i])
		if err != nil {
			return medd.Edge{}, err
		}
		rp, err := o.f.VarEdge(o.v.qr[i-1])
		if err != nil {
			return medd.Edge{}, err
		}
		ok, err := o.f.GreaterEq(ri, rp)
		ri.Clear()
		rp.Clear()
		if err != nil {
			return medd.Edge{}, err
		}
		if acc, err = o.and(acc, ok); err != nil {
			return medd.Edge{}, err
		}
	}
	return acc, nil
}

// colOrder forces queen columns to be non-decreasing whenever two
// consecutive queens share a row.
func (o ordered) colOrder() (medd.Edge, error) {
	one, err := o.f.FromInt(1)
	if err != nil {
		return medd.Edge{}, err
	}
	defer one.Clear()
	acc, err := o.f.FromInt(1)
	if err != nil {
		return medd.Edge{}, err
	}
	for i := 1; i < o.m; i++ {
		sameRow, err := o.varsEqual(o.v.qr[i], o.v.qr[i-1])
		if err != nil {
			return medd.Edge{}, err
		}
		ci, err := o.f.VarEdge(o.v.qc[i])
		if err != nil {
			return medd.Edge{}, err
		}
		cp, err := o.f.VarEdge(o.v.qc[i-1])
		if err != nil {
			return medd.Edge{}, err
		}
		colsOK, err := o.f.GreaterEq(ci, cp)
		ci.Clear()
		cp.Clear()
		if err != nil {
			return medd.Edge{}, err
		}
		both, err := o.f.Times(colsOK, sameRow)
		colsOK.Clear()
		if err != nil {
			return medd.Edge{}, err
		}
		otherRow, err := o.f.Minus(one, sameRow)
		sameRow.Clear()
		if err != nil {
			return medd.Edge{}, err
		}
		rule, err := o.f.Max(otherRow, both)
		otherRow.Clear()
		both.Clear()
		if err != nil {
			return medd.Edge{}, err
		}
		if acc, err = o.and(acc, rule); err != nil {
			return medd.Edge{}, err
		}
	}
	return acc, nil
}

func (o ordered) varsEqual(la, lb int) (medd.Edge, error) {
	a, err := o.f.VarEdge(la)
	if err != nil {
		return medd.Edge{}, err
	}
	b, err := o.f.VarEdge(lb)
	if err != nil {
		return medd.Edge{}, err
	}
	res, err := o.f.Equal(a, b)
	a.Clear()
	b.Clear()
	return res, err
}

// solutions intersects the per-square covering constraints with the row and
// column ordering constraints.
func (o ordered) solutions() (medd.Edge, error) {
	inRow := func(r int) func(int) (medd.Edge, error) {
		return func(i int) (medd.Edge, error) { return o.indicator(o.v.qr[i], r) }
	}
	inCol := func(c int) func(int) (medd.Edge, error) {
		return func(i int) (medd.Edge, error) { return o.indicator(o.v.qc[i], c) }
	}
	onDiag := func(d int, plus bool) func(int) (medd.Edge, error) {
		return func(i int) (medd.Edge, error) { return o.onDiagonal(i, d, plus) }
	}
	acc, err := o.rowOrder()
	if err != nil {
		return medd.Edge{}, err
	}
	co, err := o.colOrder()
	if err != nil {
		return medd.Edge{}, err
	}
	if acc, err = o.and(acc, co); err != nil {
		return medd.Edge{}, err
	}
	for r := 0; r < o.n; r++ {
		for c := 0; c < o.n; c++ {
			row, err := o.someQueen(inRow(r))
			if err != nil {
				return medd.Edge{}, err
			}
			col, err := o.someQueen(inCol(c))
			if err != nil {
				return medd.Edge{}, err
			}
			cov, err := o.f.Max(row, col)
			row.Clear()
			col.Clear()
			if err != nil {
				return medd.Edge{}, err
			}
			for _, plus := range []bool{true, false} {
				d := r + c
				if !plus {
					d = r - c
				}
				diag, err := o.someQueen(onDiag(d, plus))
				if err != nil {
					return medd.Edge{}, err
				}
				next, err := o.f.Max(cov, diag)
				diag.Clear()
				cov.Clear()
				if err != nil {
					return medd.Edge{}, err
				}
				cov = next
			}
			if acc, err = o.and(acc, cov); err != nil {
				return medd.Edge{}, err
			}
		}
	}
	return acc, nil
}

// minimalQueens forces the trailing slots to duplicate their predecessor
// and returns the least number of distinct queens over the solutions, or 0
// when the solution set is empty.
func (o ordered) minimalQueens(sol medd.Edge) (int, error) {
	for k := 1; k <= o.m; k++ {
		dup, err := o.f.FromInt(1)
		if err != nil {
			return 0, err
		}
		for i := k; i < o.m; i++ {
			sameRow, err := o.varsEqual(o.v.qr[i], o.v.qr[i-1])
			if err != nil {
				return 0, err
			}
			sameCol, err := o.varsEqual(o.v.qc[i], o.v.qc[i-1])
			if err != nil {
				return 0, err
			}
			samePos, err := o.f.Times(sameRow, sameCol)
			sameRow.Clear()
			sameCol.Clear()
			if err != nil {
				return 0, err
			}
			if dup, err = o.and(dup, samePos); err != nil {
				return 0, err
			}
		}
		restricted, err := o.f.Times(sol, dup)
		dup.Clear()
		if err != nil {
			return 0, err
		}
		best, err := o.f.MaxValue(restricted)
		restricted.Clear()
		if err != nil {
			return 0, err
		}
		if best > 0 {
			return k, nil
		}
	}
	return 0, nil
}

func runOrdered(n, m int, v queenVars, pol medd.Policies, logger *log.Logger) error {
	bounds := make([]int, 2*m)
	for i := range bounds {
		bounds[i] = n
	}
	d, err := medd.CreateDomainBottomUp(bounds)
	if err != nil {
		return err
	}
	f, err := d.CreateForest(false, medd.Integer, medd.MultiTerminal, medd.WithPolicies(pol))
	if err != nil {
		return err
	}
	o := ordered{n: n, m: m, v: v, f: f}
	logger.Info("building ordered model", "queens", m, "order", v.name)
	sol, err := o.solutions()
	if err != nil {
		return err
	}
	best, err := f.MaxValue(sol)
	if err != nil {
		return err
	}
	if best <= 0 {
		fmt.Printf("%d queens cannot cover the %dx%d board\n", m, n, n)
		return nil
	}
	logger.Info("cover found", "queens", m, "nodes", f.Stats().ActiveNodes)
	min, err := o.minimalQueens(sol)
	if err != nil {
		return err
	}
	fmt.Printf("%d queens suffice; minimal cover uses %d queens on the %dx%d board\n", m, min, n, n)
	return nil
}

// runSquares solves the same problem on the model with one boolean
// variable per square.
func runSquares(n int, pol medd.Policies, logger *log.Logger) error {
	bounds := make([]int, n*n)
	for i := range bounds {
		bounds[i] = 2
	}
	d, err := medd.CreateDomainBottomUp(bounds)
	if err != nil {
		return err
	}
	f, err := d.CreateForest(false, medd.Integer, medd.MultiTerminal, medd.WithPolicies(pol))
	if err != nil {
		return err
	}
	level := func(i, j int) int { return i*n + j + 1 }

	one, err := f.FromInt(1)
	if err != nil {
		return err
	}
	constraint, err := f.FromInt(1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov, err := f.FromInt(0)
			if err != nil {
				return err
			}
			for x := 0; x < n; x++ {
				for y := 0; y < n; y++ {
					if x != i && y != j && x+y != i+j && x-y != i-j {
						continue
					}
					q, err := f.VarEdge(level(x, y))
					if err != nil {
						return err
					}
					next, err := f.Max(cov, q)
					q.Clear()
					cov.Clear()
					if err != nil {
						return err
					}
					cov = next
				}
			}
			ok, err := f.GreaterEq(cov, one)
			cov.Clear()
			if err != nil {
				return err
			}
			next, err := f.Min(constraint, ok)
			ok.Clear()
			constraint.Clear()
			if err != nil {
				return err
			}
			constraint = next
		}
	}
	logger.Info("covering constraint built", "nodes", f.Stats().ActiveNodes)

	total, err := f.FromInt(0)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			q, err := f.VarEdge(level(i, j))
			if err != nil {
				return err
			}
			next, err := f.Plus(total, q)
			q.Clear()
			total.Clear()
			if err != nil {
				return err
			}
			total = next
		}
	}

	for queens := 1; queens <= n*n; queens++ {
		qe, err := f.FromInt(int64(queens))
		if err != nil {
			return err
		}
		exact, err := f.Equal(total, qe)
		qe.Clear()
		if err != nil {
			return err
		}
		sol, err := f.Min(constraint, exact)
		exact.Clear()
		if err != nil {
			return err
		}
		best, err := f.MaxValue(sol)
		sol.Clear()
		if err != nil {
			return err
		}
		if best > 0 {
			logger.Info("cover found", "queens", queens)
			fmt.Printf("%d queens cover the %dx%d board\n", queens, n, n)
			return nil
		}
		logger.Info("no cover", "queens", queens)
	}
	return fmt.Errorf("no cover found")
}

func main() {
	var n, m int
	var configFile, mode, order string
	root := &cobra.Command{
		Use:   "queencover",
		Short: "Minimum queens covering an NxN board",
		RunE: func(cmd *cobra.Command, args []string) error {
			medd.Initialize()
			defer medd.Cleanup()
			logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "queencover"})
			pol := medd.DefaultPolicies(false)
			pol.Deletion = medd.PessimisticDeletion
			if configFile != "" {
				if _, err := toml.DecodeFile(configFile, &pol); err != nil {
					return fmt.Errorf("loading policies: %w", err)
				}
			}
			if mode == "squares" {
				return runSquares(n, pol, logger)
			}
			if m <= 0 {
				m = n
			}
			var v queenVars
			switch order {
			case "byqueens":
				v = byQueens(m)
			case "rowscols":
				v = rowsCols(m)
			case "colsrows":
				v = colsRows(m)
			default:
				return fmt.Errorf("unknown order %q", order)
			}
			return runOrdered(n, m, v, pol, logger)
		},
		SilenceUsage: true,
	}
	root.Flags().IntVarP(&n, "size", "n", 5, "board size")
	root.Flags().IntVarP(&m, "queens", "m", 0, "queen slots in the ordered model (default: board size)")
	root.Flags().StringVar(&mode, "mode", "ordered", "model: ordered (row/col per queen) or squares")
	root.Flags().StringVar(&order, "order", "byqueens", "variable order: byqueens, rowscols or colsrows")
	root.Flags().StringVar(&configFile, "config", "", "TOML file with forest policies")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
