package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bondbt/renderer"
	"github.com/google/subcommands"
)

// scheduleCmd holds the flags for the 'schedule' subcommand.
type scheduleCmd struct {
	bond  bondFlags
	dirty float64
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "display the coupon calendar of a bond" }
func (*scheduleCmd) Usage() string {
	return `bondbt schedule (-s <symbol> | -issue <date> -years <n> -rate <pct> [-freq <f>] [-par <p>]) [-d <date>] [-p <dirty>] [-mode <mode>]

  Displays the terms and coupons of a bond, where the settlement date falls
  in its calendar and, given a dirty price, its clean price and yield.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	c.bond.SetFlags(f)
	f.Float64Var(&c.dirty, "p", 0, "dirty price per unit")
}

func (c *scheduleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, mode, err := c.bond.settlement()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	symbol, terms, err := c.bond.terms(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	report, err := renderer.NewBondReport(symbol, terms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := report.At(on, c.dirty, mode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderBond(report))
	return subcommands.ExitSuccess
}
