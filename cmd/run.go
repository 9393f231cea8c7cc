package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/renderer"
	"github.com/google/subcommands"
)

// runCmd holds the flags for the 'run' subcommand.
type runCmd struct {
	value    bool
	htmlFile string
	ledger   string
	save     bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "replay the orders and display the resulting ledger" }
func (*runCmd) Usage() string {
	return `bondbt run [-value] [-html <file>] [-ledger <file>] [-save]

  Replays the orders file on a fresh ledger and displays every snapshot.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.value, "value", false, "also value the ledger on every trading day")
	f.StringVar(&c.htmlFile, "html", "", "write the report as HTML to this file")
	f.StringVar(&c.ledger, "ledger", "", "write the snapshots as JSONL to this file")
	f.BoolVar(&c.save, "save", false, "save the value series to the postgres market (implies -value)")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.save {
		c.value = true
	}
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if c.save && s.store == nil {
		fmt.Fprintf(os.Stderr, "Error: -save requires the postgres market source\n")
		return subcommands.ExitUsageError
	}

	res, err := s.backtest(ctx, c.value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running backtest: %v\n", err)
		if res == nil {
			return subcommands.ExitFailure
		}
		// the partial ledger is still worth printing.
		printMarkdown(renderer.RenderLedger(renderer.NewLedger(res.Position.Snapshots())))
		return subcommands.ExitFailure
	}

	var b strings.Builder
	b.WriteString(renderer.RenderLedger(renderer.NewLedger(res.Position.Snapshots())))
	for _, r := range res.Rejected {
		fmt.Fprintf(os.Stderr, "Rejected %s: %v\n", r.Order, r.Err)
	}
	if c.value {
		b.WriteString("\n")
		b.WriteString(renderer.RenderSeries(renderer.NewSeriesReport(res.Series)))
	}
	report := b.String()
	printMarkdown(report)

	if c.ledger != "" {
		if err := writeTo(c.ledger, func(f *os.File) error { return bondbt.EncodeSnapshots(f, res.Position) }); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing ledger %q: %v\n", c.ledger, err)
			return subcommands.ExitFailure
		}
	}

	if c.htmlFile != "" {
		html, err := renderer.HTML(report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering HTML: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.htmlFile, []byte(html), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.htmlFile, err)
			return subcommands.ExitFailure
		}
	}

	if c.save {
		id, err := s.store.SaveSeries(ctx, res.Series)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error saving series: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Saved value series as run %s\n", id)
	}
	return subcommands.ExitSuccess
}

// writeTo creates filename and writes it with write.
func writeTo(filename string, write func(*os.File) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
