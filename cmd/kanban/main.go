// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

// Command kanban builds the reachability set of the Kanban manufacturing
// model with N parts per cell, using either saturation or breadth-first
// iteration, and reports its cardinality (160 for N=1, 4600 for N=2, 58400
// for N=3).
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dalzilio/medd"
)

// one line per transition; a letter per place: '.' unchanged, '-' take one
// token, '+' add one token
var kanban = []string{
	"-+..............", // Tin1
	".-+.............", // Tr1
	".+-.............", // Tb1
	".-.+............", // Tg1
	".....-+.........", // Tr2
	".....+-.........", // Tb2
	".....-.+........", // Tg2
	"+..--+..-+......", // Ts1_23
	".........-+.....", // Tr3
	".........+-.....", // Tb3
	".........-.+....", // Tg3
	"....+..-+..--+..", // Ts23_4
	".............-+.", // Tr4
	".............+-.", // Tb4
	"............+..-", // Tout4
	".............-.+", // Tg4
}

const places = 16

// buildNextState enumerates, for one transition, every concrete pair of
// markings of the touched places and appends them as minterm pairs.
func buildNextState(spec string, n int, rows, cols *[][]int) {
	var touched []int
	for p := 0; p < places; p++ {
		if spec[p] != '.' {
			touched = append(touched, p)
		}
	}
	row := make([]int, places)
	col := make([]int, places)
	for p := range row {
		row[p] = medd.DontCare
		col[p] = medd.DontChange
	}
	var walk func(t int, r, c []int)
	walk = func(t int, r, c []int) {
		if t == len(touched) {
			*rows = append(*rows, append([]int(nil), r...))
			*cols = append(*cols, append([]int(nil), c...))
			return
		}
		p := touched[t]
		for v := 0; v <= n; v++ {
			switch spec[p] {
			case '-':
				if v < 1 {
					continue
				}
				r[p], c[p] = v, v-1
			case '+':
				if v+1 > n {
					continue
				}
				r[p], c[p] = v, v+1
			}
			walk(t+1, r, c)
		}
		r[p], c[p] = medd.DontCare, medd.DontChange
	}
	walk(0, row, col)
}

func run(n int, method string, configFile string, phases bool) error {
	medd.Initialize()
	defer medd.Cleanup()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "kanban"})
	logger.Info("initializing model", "parts", n, "method", method)

	pol := medd.DefaultPolicies(false)
	if configFile != "" {
		if _, err := toml.DecodeFile(configFile, &pol); err != nil {
			return fmt.Errorf("loading policies: %w", err)
		}
	}

	bounds := make([]int, places)
	for i := range bounds {
		bounds[i] = n + 1
	}
	d, err := medd.CreateDomainBottomUp(bounds)
	if err != nil {
		return err
	}
	mdd, err := d.CreateForest(false, medd.Boolean, medd.MultiTerminal, medd.WithPolicies(pol))
	if err != nil {
		return err
	}
	mxd, err := d.CreateForest(true, medd.Boolean, medd.MultiTerminal)
	if err != nil {
		return err
	}
	if phases {
		mdd.SetLogger(medd.NewTextLogger(os.Stderr))
	}

	initial := make([]int, places)
	initial[0], initial[4], initial[8], initial[12] = n, n, n, n
	s0, err := mdd.EdgeFromMinterms([][]int{initial})
	if err != nil {
		return err
	}

	var rows, cols [][]int
	for _, t := range kanban {
		buildNextState(t, n, &rows, &cols)
	}
	nsf, err := mxd.EdgeFromMintermPairs(rows, cols)
	if err != nil {
		return err
	}
	logger.Info("next-state function built", "pairs", len(rows), "nodes", mxd.Stats().ActiveNodes)

	var reachable medd.Edge
	switch method {
	case "bfs":
		reachable, err = mdd.ReachableBFS(s0, nsf)
	case "dfs":
		reachable, err = mdd.ReachableDFS(s0, nsf)
	default:
		return fmt.Errorf("unknown method %q", method)
	}
	if err != nil {
		return err
	}

	card, err := mdd.Cardinality(reachable)
	if err != nil {
		return err
	}
	logger.Info("done", "states", card.String(), "peak-nodes", mdd.Stats().PeakNodes)
	fmt.Printf("%s reachable states\n", card.String())
	return nil
}

func main() {
	var n int
	var method, configFile string
	var phases bool
	root := &cobra.Command{
		Use:   "kanban",
		Short: "Reachability of the Kanban model with medd",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(n, method, configFile, phases)
		},
		SilenceUsage: true,
	}
	root.Flags().IntVarP(&n, "parts", "n", 1, "number of parts per cell")
	root.Flags().StringVar(&method, "method", "dfs", "reachability method: dfs (saturation) or bfs")
	root.Flags().StringVar(&configFile, "config", "", "TOML file with forest policies")
	root.Flags().BoolVar(&phases, "log", false, "log phase events to stderr")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
