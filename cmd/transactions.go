package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/famfin"
	"github.com/etnz/famfin/date"
	"github.com/etnz/famfin/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// resolveAccount finds the account designated by ref, an ID or a name
// (case insensitive).
func resolveAccount(accounts []famfin.Account, ref string) (famfin.Account, error) {
	var found []famfin.Account
	for _, a := range accounts {
		if a.ID == ref {
			return a, nil
		}
		if strings.EqualFold(a.Name, ref) {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return famfin.Account{}, fmt.Errorf("no account %q", ref)
	case 1:
		return found[0], nil
	default:
		return famfin.Account{}, fmt.Errorf("%d accounts are named %q, use the account ID", len(found), ref)
	}
}

// parseDate parses the date flag, today when empty.
func parseDate(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

type transactionsCmd struct {
	account string
	limit   int
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list the family transactions" }
func (*transactionsCmd) Usage() string {
	return `famfin transactions [-a <account>] [-n <count>]

  Lists the transactions of the family, most recent first.
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Only list the transactions of this account (name or ID)")
	f.IntVar(&c.limit, "n", 0, "Maximum number of transactions to list, 0 for all")
}

func (c *transactionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	// both reads run concurrently.
	accountsObs := a.ObserveAccounts()
	defer accountsObs.Close()
	txs, err := a.Transactions(ctx)
	if err != nil {
		return a.failure(ctx, "listing transactions", err)
	}
	r, err := accountsObs.Wait(ctx)
	if err != nil {
		return a.failure(ctx, "listing accounts", err)
	}

	title := "Transactions"
	if c.account != "" {
		acc, err := resolveAccount(r.Data, c.account)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		title = "Transactions of " + acc.Name
		var kept []famfin.Transaction
		for _, tx := range txs {
			if tx.AccountID == acc.ID {
				kept = append(kept, tx)
			}
		}
		txs = kept
	}
	printMarkdown(renderer.RenderTransactions(renderer.NewTransactionList(title, txs, r.Data, *defaultCurrency, c.limit)))
	return subcommands.ExitSuccess
}

type addTxCmd struct {
	account  string
	date     string
	name     string
	amount   string
	merchant string
	category string
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record a transaction" }
func (*addTxCmd) Usage() string {
	return `famfin add-tx -a <account> -amount <amount> -name <description> [-d <date>] [-merchant <name>]

  Records a transaction on an account. A negative amount is money leaving the account.
`
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account (name or ID)")
	f.StringVar(&c.date, "d", "", "Date of the transaction, today by default")
	f.StringVar(&c.name, "name", "", "Description")
	f.StringVar(&c.amount, "amount", "", "Amount, negative for a spending")
	f.StringVar(&c.merchant, "merchant", "", "Merchant name")
	f.StringVar(&c.category, "category", "", "Category ID")
}

func (c *addTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "Error: -a and -amount are required")
		return subcommands.ExitUsageError
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount %q: %v\n", c.amount, err)
		return subcommands.ExitUsageError
	}
	on, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	accounts, err := a.Accounts(ctx)
	if err != nil {
		return a.failure(ctx, "listing accounts", err)
	}
	acc, err := resolveAccount(accounts, c.account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	tx, err := a.CreateTransaction(ctx, famfin.NewTransaction{
		AccountID:    acc.ID,
		Date:         on,
		Name:         c.name,
		Amount:       amount,
		Currency:     acc.Currency,
		MerchantName: c.merchant,
		CategoryID:   c.category,
	})
	if err != nil {
		return a.failure(ctx, "recording transaction", err)
	}
	fmt.Fprintf(output, "Recorded %s on %s (%s)\n", famfin.M(tx.Amount, acc.Currency).SignedString(), acc.Name, tx.ID)
	return subcommands.ExitSuccess
}

type transferCmd struct {
	from   string
	to     string
	amount string
	date   string
	name   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return `famfin transfer -from <account> -to <account> -amount <amount> [-d <date>]

  Moves money between two accounts of the family.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source account (name or ID)")
	f.StringVar(&c.to, "to", "", "Destination account (name or ID)")
	f.StringVar(&c.amount, "amount", "", "Amount to transfer")
	f.StringVar(&c.date, "d", "", "Date of the transfer, today by default")
	f.StringVar(&c.name, "name", "", "Description")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "Error: -from, -to and -amount are required")
		return subcommands.ExitUsageError
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil || !amount.IsPositive() {
		fmt.Fprintf(os.Stderr, "Error: invalid amount %q, want a positive number\n", c.amount)
		return subcommands.ExitUsageError
	}
	on, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	accounts, err := a.Accounts(ctx)
	if err != nil {
		return a.failure(ctx, "listing accounts", err)
	}
	from, err := resolveAccount(accounts, c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	to, err := resolveAccount(accounts, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	msg, err := a.CreateTransfer(ctx, famfin.Transfer{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        amount,
		Currency:      from.Currency,
		Date:          on,
		Name:          c.name,
	})
	if err != nil {
		return a.failure(ctx, "transferring", err)
	}
	fmt.Fprintf(output, "%s: %s from %s to %s\n", msg, famfin.M(amount, from.Currency), from.Name, to.Name)
	return subcommands.ExitSuccess
}

type tradeCmd struct {
	account string
	ticker  string
	name    string
	qty     string
	price   string
	date    string
	sell    bool
}

func (*tradeCmd) Name() string     { return "trade" }
func (*tradeCmd) Synopsis() string { return "buy or sell a security in an investment account" }
func (*tradeCmd) Usage() string {
	return `famfin trade -a <account> -s <ticker> -q <quantity> -p <price> [-sell] [-d <date>]

  Records the purchase (or with -sell, the sale) of a security. The cash
  movement is recorded on the account.
`
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Investment account (name or ID)")
	f.StringVar(&c.ticker, "s", "", "Ticker of the security")
	f.StringVar(&c.name, "security-name", "", "Name of the security")
	f.StringVar(&c.qty, "q", "", "Quantity")
	f.StringVar(&c.price, "p", "", "Price per unit")
	f.StringVar(&c.date, "d", "", "Date of the trade, today by default")
	f.BoolVar(&c.sell, "sell", false, "Sell instead of buy")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.ticker == "" || c.qty == "" || c.price == "" {
		fmt.Fprintln(os.Stderr, "Error: -a, -s, -q and -p are required")
		return subcommands.ExitUsageError
	}
	qty, err := decimal.NewFromString(c.qty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity %q: %v\n", c.qty, err)
		return subcommands.ExitUsageError
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price %q: %v\n", c.price, err)
		return subcommands.ExitUsageError
	}
	on, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	kind := famfin.Buy
	if c.sell {
		kind = famfin.Sell
	}

	a, status := openAuthenticated(ctx)
	if a == nil {
		return status
	}
	defer a.Close()

	investments, err := a.Investments(ctx)
	if err != nil {
		return a.failure(ctx, "listing investments", err)
	}
	acc, err := resolveAccount(investments, c.account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (investment accounts only)\n", err)
		return subcommands.ExitUsageError
	}

	entry, err := a.CreateTrade(ctx, famfin.Trade{
		AccountID:    acc.ID,
		Ticker:       c.ticker,
		SecurityName: c.name,
		Qty:          qty,
		Price:        price,
		Currency:     acc.Currency,
		Date:         on,
		Kind:         kind,
	})
	if err != nil {
		return a.failure(ctx, "recording trade", err)
	}
	fmt.Fprintf(output, "Recorded %s: %s on %s\n", entry.Name, famfin.M(entry.Amount, acc.Currency).SignedString(), acc.Name)
	return subcommands.ExitSuccess
}
