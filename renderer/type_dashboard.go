package renderer

import (
	"sort"

	"github.com/etnz/famfin"
	"github.com/etnz/famfin/date"
	"github.com/shopspring/decimal"
)

// AccountRow is an account as displayed.
type AccountRow struct {
	Name        string
	Type        string
	Institution string
	Balance     famfin.Money
}

// TransactionRow is a transaction as displayed.
type TransactionRow struct {
	Date     date.Date
	Name     string
	Merchant string
	Category string
	Account  string
	Amount   famfin.Money
}

// AccountList is a titled list of accounts.
type AccountList struct {
	Title    string
	Accounts []AccountRow
	// Totals is the sum of the balances, one per currency.
	Totals []famfin.Money
}

// TransactionList is a titled list of transactions.
type TransactionList struct {
	Title        string
	Transactions []TransactionRow
}

// Dashboard is the overview of the family finances.
type Dashboard struct {
	User     string
	NetWorth famfin.Money
	// Cash is the sum of the depository balances, one per currency.
	Cash         []famfin.Money
	Accounts     []AccountRow
	Transactions []TransactionRow
}

func newAccountRow(a famfin.Account) AccountRow {
	typ := string(a.Type)
	if a.Subtype != "" {
		typ += " (" + a.Subtype + ")"
	}
	return AccountRow{Name: a.Name, Type: typ, Institution: a.InstitutionName, Balance: a.Money()}
}

// NewAccountList returns the rows of accounts.
func NewAccountList(title string, accounts []famfin.Account) *AccountList {
	l := &AccountList{Title: title, Totals: famfin.BalancesByCurrency(accounts, nil)}
	for _, a := range accounts {
		l.Accounts = append(l.Accounts, newAccountRow(a))
	}
	return l
}

// NewTransactionList returns the rows of txs, most recent first, limited to
// max rows when max > 0. Amounts are in the currency of their account, or in
// currency when the account is unknown.
func NewTransactionList(title string, txs []famfin.Transaction, accounts []famfin.Account, currency string, max int) *TransactionList {
	currencies := make(map[string]string)
	for _, a := range accounts {
		currencies[a.ID] = a.Currency
	}

	sorted := append([]famfin.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[j].Date.Before(sorted[i].Date) })
	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}

	l := &TransactionList{Title: title}
	for _, tx := range sorted {
		cur, ok := currencies[tx.AccountID]
		if !ok {
			cur = currency
		}
		l.Transactions = append(l.Transactions, TransactionRow{
			Date:     tx.Date,
			Name:     tx.Name,
			Merchant: tx.MerchantName,
			Category: tx.CategoryName,
			Account:  tx.AccountName,
			Amount:   famfin.M(tx.Amount, cur),
		})
	}
	return l
}

// NewDashboard computes the dashboard figures. Net worth is shown in
// currency, cash in the currencies of the accounts.
func NewDashboard(user string, accounts []famfin.Account, netWorth decimal.Decimal, txs []famfin.Transaction, currency string, recent int) *Dashboard {
	cash := famfin.BalancesByCurrency(accounts, famfin.IsCash)
	if len(cash) == 0 {
		cash = []famfin.Money{famfin.M(decimal.Zero, currency)}
	}
	return &Dashboard{
		User:         user,
		NetWorth:     famfin.M(netWorth, currency),
		Cash:         cash,
		Accounts:     NewAccountList("", accounts).Accounts,
		Transactions: NewTransactionList("", txs, accounts, currency, recent).Transactions,
	}
}

// AccountTypeCount is the number of accounts of a type.
type AccountTypeCount struct {
	Type  famfin.AccountType
	Count int
}

// CurrencyBalance is the cash and total balance of the accounts in a currency.
type CurrencyBalance struct {
	Currency string
	Cash     famfin.Money
	Total    famfin.Money
}

// Stats are figures about the family finances.
type Stats struct {
	AccountTypes []AccountTypeCount
	Balances     []CurrencyBalance
	Transactions int
}

// NewStats counts the accounts per type and sums their balances per currency.
func NewStats(accounts []famfin.Account, txs []famfin.Transaction) *Stats {
	count := make(map[famfin.AccountType]int)
	for _, a := range accounts {
		count[a.Type]++
	}
	s := &Stats{Transactions: len(txs)}
	for typ, n := range count {
		s.AccountTypes = append(s.AccountTypes, AccountTypeCount{Type: typ, Count: n})
	}
	sort.Slice(s.AccountTypes, func(i, j int) bool { return s.AccountTypes[i].Type < s.AccountTypes[j].Type })

	cash := make(map[string]famfin.Money)
	for _, m := range famfin.BalancesByCurrency(accounts, famfin.IsCash) {
		cash[m.Currency()] = m
	}
	for _, total := range famfin.BalancesByCurrency(accounts, nil) {
		c, ok := cash[total.Currency()]
		if !ok {
			c = famfin.M(decimal.Zero, total.Currency())
		}
		s.Balances = append(s.Balances, CurrencyBalance{Currency: total.Currency(), Cash: c, Total: total})
	}
	return s
}
