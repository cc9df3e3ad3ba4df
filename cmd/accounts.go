package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/famfin"
	"github.com/etnz/famfin/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type accountsCmd struct {
	accountType string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the family accounts" }
func (*accountsCmd) Usage() string {
	return `famfin accounts [-type <type>]

  Lists the accounts of the family, with their balance and the total per currency.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accountType, "type", "", "Only list accounts of this type: depository, credit, investment or loan")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	accounts, err := a.Accounts(ctx)
	if err != nil {
		return a.failure(ctx, "listing accounts", err)
	}
	title := "Accounts"
	if c.accountType != "" {
		title = strings.ToUpper(c.accountType[:1]) + c.accountType[1:] + " Accounts"
		accounts = filterAccounts(accounts, famfin.AccountType(c.accountType))
	}
	printMarkdown(renderer.RenderAccounts(renderer.NewAccountList(title, accounts)))
	return subcommands.ExitSuccess
}

func filterAccounts(accounts []famfin.Account, t famfin.AccountType) []famfin.Account {
	var res []famfin.Account
	for _, a := range accounts {
		if a.Type == t {
			res = append(res, a)
		}
	}
	return res
}

type investmentsCmd struct{}

func (*investmentsCmd) Name() string     { return "investments" }
func (*investmentsCmd) Synopsis() string { return "list the investment accounts" }
func (*investmentsCmd) Usage() string {
	return `famfin investments

  Lists the investment accounts of the family.
`
}
func (*investmentsCmd) SetFlags(f *flag.FlagSet) {}

func (*investmentsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	accounts, err := a.Investments(ctx)
	if err != nil {
		return a.failure(ctx, "listing investments", err)
	}
	printMarkdown(renderer.RenderAccounts(renderer.NewAccountList("Investments", accounts)))
	return subcommands.ExitSuccess
}

type netWorthCmd struct{}

func (*netWorthCmd) Name() string     { return "net-worth" }
func (*netWorthCmd) Synopsis() string { return "display the family net worth" }
func (*netWorthCmd) Usage() string {
	return `famfin net-worth

  Displays the net worth of the family, as computed by the server.
`
}
func (*netWorthCmd) SetFlags(f *flag.FlagSet) {}

func (*netWorthCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	nw, err := a.NetWorth(ctx)
	if err != nil {
		return a.failure(ctx, "reading net worth", err)
	}
	fmt.Fprintln(output, famfin.M(nw, *defaultCurrency))
	return subcommands.ExitSuccess
}

type addAccountCmd struct {
	name        string
	accountType string
	subtype     string
	balance     string
	currency    string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create an account" }
func (*addAccountCmd) Usage() string {
	return `famfin add-account -name <name> -type <type> [-subtype <subtype>] [-balance <amount>] [-c <currency>]

  Creates an account in the family.
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the account")
	f.StringVar(&c.accountType, "type", string(famfin.Depository), "Type: depository, credit, investment or loan")
	f.StringVar(&c.subtype, "subtype", "", "Subtype, e.g. checking, savings, credit_card")
	f.StringVar(&c.balance, "balance", "0", "Opening balance")
	f.StringVar(&c.currency, "c", *defaultCurrency, "Currency of the account")
}

func (c *addAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "Error: -name is required")
		return subcommands.ExitUsageError
	}
	typ := famfin.AccountType(c.accountType)
	if !typ.Valid() {
		fmt.Fprintf(os.Stderr, "Error: invalid account type %q\n", c.accountType)
		return subcommands.ExitUsageError
	}
	balance, err := decimal.NewFromString(c.balance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing balance %q: %v\n", c.balance, err)
		return subcommands.ExitUsageError
	}

	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	acc, err := a.CreateAccount(ctx, famfin.NewAccount{
		Name:     c.name,
		Type:     typ,
		Subtype:  c.subtype,
		Balance:  balance,
		Currency: c.currency,
	})
	if err != nil {
		return a.failure(ctx, "creating account", err)
	}
	fmt.Fprintf(output, "Created account %q (%s)\n", acc.Name, acc.ID)
	return subcommands.ExitSuccess
}
