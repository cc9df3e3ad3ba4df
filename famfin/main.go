package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path"

	"github.com/etnz/famfin/cmd"
	"github.com/etnz/famfin/pkg/logging"
	"github.com/google/subcommands"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// exits when invoked by the shell completion.
	cmd.Completion(flag.CommandLine).Complete(name)

	flag.Parse()

	if *cmd.Verbose {
		logging.SetupWithLevel(os.Stderr, slog.LevelDebug)
	} else {
		logging.Setup(os.Stderr)
	}

	// unknown subcommands are looked up as famfin-<subcommand> extensions.
	if sub := flag.Arg(0); sub != "" && !isCommand(commander, sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

func isCommand(commander *subcommands.Commander, name string) bool {
	found := false
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		if c.Name() == name {
			found = true
		}
	})
	return found
}
