package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/bondbt/cmd"
	"github.com/google/subcommands"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// completion exits when invoked by the shell.
	cmd.Completion(commander).Complete(name)

	flag.Parse()

	if sub := flag.Arg(0); sub != "" && !isRegistered(commander, sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

func isRegistered(c *subcommands.Commander, name string) (found bool) {
	c.VisitCommands(func(_ *subcommands.CommandGroup, sc subcommands.Command) {
		if sc.Name() == name {
			found = true
		}
	})
	return found
}
