package cmd

import (
	"flag"

	"github.com/etnz/bondbt/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// predictors of flag values, by flag name. Other flags take any value.
var predictors = map[string]complete.Predictor{
	"config": predict.Files("*.toml"),
	"orders": predict.Files("*.jsonl"),
	"html":   predict.Files("*.html"),
	"ledger": predict.Files("*.jsonl"),
	"o":      predict.Files("*.jsonl"),
	"freq":   predict.Set{"annual", "semiannual"},
	"mode":   predict.Set{"compound", "simple"},
}

func predictor(f *flag.Flag) complete.Predictor {
	if p, ok := predictors[f.Name]; ok {
		return p
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	return predict.Something
}

// Completion describes the commands registered in c for shell completion.
func Completion(c *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{},
	}
	c.VisitAll(func(f *flag.Flag) { root.Flags[f.Name] = predictor(f) })
	c.VisitCommands(func(_ *subcommands.CommandGroup, sc subcommands.Command) {
		fs := flag.NewFlagSet(sc.Name(), flag.ContinueOnError)
		sc.SetFlags(fs)
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		fs.VisitAll(func(f *flag.Flag) { sub.Flags[f.Name] = predictor(f) })
		if sc.Name() == "topic" {
			if topics, err := docs.GetAllTopics(); err == nil {
				sub.Args = predict.Set(append(topics, "*"))
			}
		}
		root.Sub[sc.Name()] = sub
	})
	return root
}
