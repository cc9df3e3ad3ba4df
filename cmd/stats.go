package cmd

import (
	"context"
	"flag"

	"github.com/etnz/famfin/renderer"
	"github.com/google/subcommands"
)

type statsCmd struct{}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "display figures about the family finances" }
func (*statsCmd) Usage() string {
	return `famfin stats

  Displays the number of accounts per type, the balances per currency and the
  number of transactions.
`
}
func (*statsCmd) SetFlags(f *flag.FlagSet) {}

func (*statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	accounts, err := a.Accounts(ctx)
	if err != nil {
		return a.failure(ctx, "listing accounts", err)
	}
	txs, err := a.Transactions(ctx)
	if err != nil {
		return a.failure(ctx, "listing transactions", err)
	}
	printMarkdown(renderer.RenderStats(renderer.NewStats(accounts, txs)))
	return subcommands.ExitSuccess
}
