// Command golattice solves small finite-domain models from the command
// line: interval variables, x+y=z constraints, table rows, a search
// annotation and an optional objective.
//
// Exit codes: 0 when solutions were found, 1 when the model is
// unsatisfiable, 2 when the model could not be built.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gitrdm/golattice/pkg/lattice"
)

type solveOptions struct {
	numVars  int
	lo, hi   int
	plus     []string
	rows     []string
	varOrder string
	valOrder string
	minimize string
	maximize string
	limit    int
	workers  int
	logLevel string
}

func main() {
	opts := &solveOptions{}

	root := &cobra.Command{
		Use:           "golattice",
		Short:         "A lattice-based branch-and-bound constraint solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a finite-domain model",
		Example: `  golattice solve --vars 3 --lo 0 --hi 2 --plus 1,2,3 --minimize x3
  golattice solve --vars 2 --lo 0 --hi 2 --row 0,1 --row 1,2 --limit 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}

	addSolveFlags(solveCmd.Flags(), opts)

	root.AddCommand(solveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(2)
	}
}

func addSolveFlags(flags *pflag.FlagSet, opts *solveOptions) {
	flags.IntVar(&opts.numVars, "vars", 3, "number of variables")
	flags.IntVar(&opts.lo, "lo", 0, "lower bound of every variable")
	flags.IntVar(&opts.hi, "hi", 2, "upper bound of every variable")
	flags.StringArrayVar(&opts.plus, "plus", nil, "constraint xI+xJ=xK as \"I,J,K\" (1-based, repeatable)")
	flags.StringArrayVar(&opts.rows, "row", nil, "table row as comma-separated values, one flag per row")
	flags.StringVar(&opts.varOrder, "var-order", "input_order", "variable order: input_order, first_fail, anti_first_fail, smallest, largest")
	flags.StringVar(&opts.valOrder, "val-order", "indomain_min", "value order: indomain_min, indomain_max, indomain_median, indomain_split, indomain_reverse_split")
	flags.StringVar(&opts.minimize, "minimize", "", "variable to minimize (e.g. x3)")
	flags.StringVar(&opts.maximize, "maximize", "", "variable to maximize (e.g. x3)")
	flags.IntVar(&opts.limit, "limit", 0, "stop after this many solutions (0 = all)")
	flags.IntVar(&opts.workers, "workers", 1, "portfolio workers, one per variable order, in the order input_order, first_fail, anti_first_fail, smallest, largest (at most 5 are used)")
	flags.StringVar(&opts.logLevel, "log-level", "warning", "logrus level: debug, info, warning, error")
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func runSolve(cmd *cobra.Command, opts *solveOptions) error {
	logger := logrus.New()
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	logger.SetLevel(level)

	solver, err := buildModel(opts, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var sols []lattice.Solution
	if opts.workers > 1 {
		sols, err = solvePortfolio(ctx, solver, opts)
	} else {
		sols, err = solver.Solve(ctx, opts.limit)
	}
	if err != nil {
		return err
	}

	for i, sol := range sols {
		fmt.Fprintf(cmd.OutOrStdout(), "solution %d: %s\n", i+1, sol)
	}
	stats := solver.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "nodes=%d solutions=%d backtracks=%d peak_depth=%d\n",
		stats.Nodes, stats.Solutions, stats.Backtracks, stats.PeakDepth)

	if len(sols) == 0 {
		return &exitError{code: 1, msg: "unsatisfiable"}
	}
	return nil
}

func buildModel(opts *solveOptions, logger *logrus.Logger) (*lattice.Solver, error) {
	if opts.numVars <= 0 {
		return nil, errors.New("--vars must be positive")
	}
	solver := lattice.NewSolver(opts.numVars)
	solver.SetLogger(logger)

	vars := make([]lattice.AVar, opts.numVars)
	for i := range vars {
		vars[i] = solver.Var(i)
	}
	if err := solver.Tell(domains(vars, opts.lo, opts.hi)); err != nil {
		return nil, err
	}

	for _, spec := range opts.plus {
		f, err := parsePlus(spec, vars)
		if err != nil {
			return nil, err
		}
		if err := solver.Tell(f); err != nil {
			return nil, err
		}
	}

	if len(opts.rows) > 0 {
		f, err := parseTable(opts.rows, vars)
		if err != nil {
			return nil, err
		}
		if err := solver.Tell(f); err != nil {
			return nil, err
		}
	}

	if opts.workers <= 1 {
		search := []*lattice.Formula{
			lattice.NewAtom(opts.varOrder),
			lattice.NewAtom(opts.valOrder),
		}
		for _, x := range vars {
			search = append(search, lattice.NewVarRef(x))
		}
		if err := solver.Tell(lattice.NewESeq("search", search...)); err != nil {
			return nil, err
		}
	}

	if opts.minimize != "" && opts.maximize != "" {
		return nil, errors.New("--minimize and --maximize are mutually exclusive")
	}
	if name := opts.minimize; name != "" {
		if err := solver.Tell(lattice.NewSeq(lattice.Minimize, lattice.NewName(name))); err != nil {
			return nil, err
		}
	}
	if name := opts.maximize; name != "" {
		if err := solver.Tell(lattice.NewSeq(lattice.Maximize, lattice.NewName(name))); err != nil {
			return nil, err
		}
	}
	return solver, nil
}

func solvePortfolio(ctx context.Context, solver *lattice.Solver, opts *solveOptions) ([]lattice.Solution, error) {
	vars := make([]lattice.AVar, opts.numVars)
	for i := range vars {
		vars[i] = solver.Var(i)
	}
	valOrder, ok := lattice.ParseValueOrder(opts.valOrder)
	if !ok {
		return nil, errors.Errorf("unknown value order %q", opts.valOrder)
	}
	orders := []lattice.VariableOrder{
		lattice.InputOrder, lattice.FirstFail, lattice.AntiFirstFail,
		lattice.Smallest, lattice.Largest,
	}
	if opts.workers < len(orders) {
		orders = orders[:opts.workers]
	}
	strategies := make([]lattice.Strategy, len(orders))
	for i, o := range orders {
		strategies[i] = lattice.Strategy{VarOrder: o, ValOrder: valOrder, Vars: vars}
	}
	results, winner, err := solver.SolvePortfolio(ctx, strategies, opts.limit)
	if err != nil {
		return nil, err
	}
	if winner < 0 {
		return nil, nil
	}
	return results[winner].Solutions, nil
}

func domains(vars []lattice.AVar, lo, hi int) *lattice.Formula {
	var conj []*lattice.Formula
	for _, x := range vars {
		conj = append(conj,
			lattice.NewBinary(lattice.NewVarRef(x), lattice.Geq, lattice.NewInt(lo)),
			lattice.NewBinary(lattice.NewVarRef(x), lattice.Leq, lattice.NewInt(hi)))
	}
	return lattice.NewSeq(lattice.And, conj...)
}

func parsePlus(spec string, vars []lattice.AVar) (*lattice.Formula, error) {
	idx, err := parseInts(spec)
	if err != nil || len(idx) != 3 {
		return nil, errors.Errorf("--plus wants \"I,J,K\", got %q", spec)
	}
	for _, i := range idx {
		if i < 1 || i > len(vars) {
			return nil, errors.Errorf("--plus index %d out of range 1..%d", i, len(vars))
		}
	}
	return lattice.NewBinary(
		lattice.NewSeq(lattice.Add,
			lattice.NewVarRef(vars[idx[0]-1]),
			lattice.NewVarRef(vars[idx[1]-1])),
		lattice.Eq,
		lattice.NewVarRef(vars[idx[2]-1])), nil
}

func parseTable(rows []string, vars []lattice.AVar) (*lattice.Formula, error) {
	var disj []*lattice.Formula
	for _, row := range rows {
		values, err := parseInts(row)
		if err != nil {
			return nil, errors.Wrapf(err, "--row %q", row)
		}
		if len(values) > len(vars) {
			return nil, errors.Errorf("--row %q has more cells than variables", row)
		}
		var conj []*lattice.Formula
		for i, v := range values {
			conj = append(conj, lattice.NewBinary(
				lattice.NewVarRef(vars[i]), lattice.Eq, lattice.NewInt(v)))
		}
		disj = append(disj, lattice.NewSeq(lattice.And, conj...))
	}
	return lattice.NewSeq(lattice.Or, disj...), nil
}

func parseInts(spec string) ([]int, error) {
	parts := strings.Split(spec, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "bad integer %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
