package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/renderer"
	"github.com/google/subcommands"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	output string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "display the daily value of the backtested ledger" }
func (*valueCmd) Usage() string {
	return `bondbt value [-o <file>]

  Replays the orders file and values cash and holdings on every trading day.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "write the series as JSONL to this file instead of displaying it")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	res, err := s.backtest(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running backtest: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output == "" {
		printMarkdown(renderer.RenderSeries(renderer.NewSeriesReport(res.Series)))
		return subcommands.ExitSuccess
	}
	if err := writeTo(c.output, func(f *os.File) error { return bondbt.EncodeSeries(f, res.Series) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
