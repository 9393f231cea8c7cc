package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bondbt/bond"
	"github.com/google/subcommands"
)

// priceCmd holds the flags for the 'price' subcommand.
type priceCmd struct {
	bond  bondFlags
	yield float64
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "compute the price of a bond from its yield" }
func (*priceCmd) Usage() string {
	return `bondbt price (-s <symbol> | -issue <date> -years <n> -rate <pct> [-freq <f>] [-par <p>]) -y <yield> [-d <date>] [-mode <mode>]

  Prints the dirty price, the accrued interest and the clean price for an
  annual yield in percent.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	c.bond.SetFlags(f)
	f.Float64Var(&c.yield, "y", 0, "annual yield in percent")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, mode, err := c.bond.settlement()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	_, terms, err := c.bond.terms(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	dirty, err := bond.Price(terms, on, c.yield, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing price: %v\n", err)
		return subcommands.ExitFailure
	}
	accrued, err := bond.AccruedInterest(terms, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("dirty   %.6f\naccrued %.6f\nclean   %.6f\n", dirty, accrued, dirty-accrued)
	return subcommands.ExitSuccess
}
