package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bondbt/bond"
	"github.com/google/subcommands"
)

// ytmCmd holds the flags for the 'ytm' subcommand.
type ytmCmd struct {
	bond  bondFlags
	price float64
	clean bool
}

func (*ytmCmd) Name() string     { return "ytm" }
func (*ytmCmd) Synopsis() string { return "compute the yield to maturity of a bond from its price" }
func (*ytmCmd) Usage() string {
	return `bondbt ytm (-s <symbol> | -issue <date> -years <n> -rate <pct> [-freq <f>] [-par <p>]) -p <price> [-clean] [-d <date>] [-mode <mode>]

  Solves the annual yield, in percent, implied by a dirty (or clean) price.
`
}

func (c *ytmCmd) SetFlags(f *flag.FlagSet) {
	c.bond.SetFlags(f)
	f.Float64Var(&c.price, "p", 0, "price per unit")
	f.BoolVar(&c.clean, "clean", false, "the price is clean, accrued interest is added")
}

func (c *ytmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	dirty := c.price
	if c.clean {
		if dirty, err = bond.DirtyPrice(terms, on, c.price); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	y, err := bond.YTM(terms, on, dirty, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing yield: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%.6f\n", y)
	return subcommands.ExitSuccess
}
