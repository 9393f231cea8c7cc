package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/bondbt/docs"
	"github.com/google/subcommands"
)

// topicCmd prints the embedded manual.
type topicCmd struct {
	list bool
	raw  bool

	out io.Writer // stdout if nil
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the bondbt manual: orders, bond math, config, market data" }
func (*topicCmd) Usage() string {
	return `bondbt topic [-list] [-raw] [<topic>...]

  Print manual topics. Without a topic, print the overview, "*" prints
  every topic. Topics: backtest, bond, config, market.

`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "print the topic names, one per line")
	f.BoolVar(&c.raw, "raw", false, "print the markdown source instead of rendering it")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	if c.list {
		topics, err := docs.GetAllTopics()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing topics: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(out, strings.Join(topics, "\n"))
		return subcommands.ExitSuccess
	}

	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	doc, err := docs.GetTopics(topics...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (see bondbt topic -list)\n", err)
		return subcommands.ExitUsageError
	}
	if c.raw {
		fmt.Fprint(out, doc)
		return subcommands.ExitSuccess
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}
