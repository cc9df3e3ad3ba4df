package cmd

import (
	"context"
	"flag"

	"github.com/etnz/famfin/renderer"
	"github.com/google/subcommands"
)

type dashboardCmd struct {
	recent int
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "display the overview of the family finances" }
func (*dashboardCmd) Usage() string {
	return `famfin dashboard [-n <count>]

  Displays the net worth, the cash balance, the accounts and the most recent
  transactions.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.recent, "n", 10, "Number of recent transactions")
}

func (c *dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	// the three resources are fetched concurrently.
	accounts := a.ObserveAccounts()
	defer accounts.Close()
	netWorth := a.ObserveNetWorth()
	defer netWorth.Close()
	txs := a.ObserveTransactions()
	defer txs.Close()

	ra, err := accounts.Wait(ctx)
	if err != nil {
		return a.failure(ctx, "listing accounts", err)
	}
	rn, err := netWorth.Wait(ctx)
	if err != nil {
		return a.failure(ctx, "reading net worth", err)
	}
	rt, err := txs.Wait(ctx)
	if err != nil {
		return a.failure(ctx, "listing transactions", err)
	}

	user := ""
	if u := a.Session.Snapshot().User; u != nil {
		user = u.Email
	}
	d := renderer.NewDashboard(user, ra.Data, rn.Data, rt.Data, *defaultCurrency, c.recent)
	printMarkdown(renderer.RenderDashboard(d))
	return subcommands.ExitSuccess
}
