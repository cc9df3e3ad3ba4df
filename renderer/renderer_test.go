package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/etnz/famfin"
	"github.com/etnz/famfin/date"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	accounts = []famfin.Account{
		{ID: "1", Name: "Checking", Type: famfin.Depository, Subtype: "checking", Balance: dec("1000.10"), Currency: "USD", InstitutionName: "Bank"},
		{ID: "2", Name: "Overdraft", Type: famfin.Depository, Balance: dec("-250.75"), Currency: "USD"},
		{ID: "3", Name: "Card", Type: famfin.Credit, Balance: dec("-99.99"), Currency: "USD"},
		{ID: "4", Name: "Broker | Main", Type: famfin.Investment, Balance: dec("12000"), Currency: "USD"},
	}
	transactions = []famfin.Transaction{
		{ID: "a", Date: date.New(2025, time.March, 1), Name: "Rent", AccountName: "Checking", AccountID: "1", Amount: dec("-1200")},
		{ID: "b", Date: date.New(2025, time.March, 5), Name: "Coffee", MerchantName: "Cafe", CategoryName: "Food", AccountName: "Checking", AccountID: "1", Amount: dec("-3.5")},
		{ID: "c", Date: date.New(2025, time.February, 27), Name: "Salary", AccountName: "Checking", AccountID: "1", Amount: dec("3000")},
	}
)

// tables parses markdown and returns the cells of every table, header row included.
func tables(t *testing.T, md string) [][][]string {
	t.Helper()
	source := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))

	var res [][][]string
	var row []string
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *east.Table:
			if entering {
				res = append(res, nil)
			}
		case *east.TableHeader, *east.TableRow:
			if entering {
				row = nil
			} else {
				res[len(res)-1] = append(res[len(res)-1], row)
			}
		case *east.TableCell:
			if entering {
				row = append(row, cellText(n, source))
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("ast.Walk() error = %v", err)
	}
	return res
}

func cellText(n ast.Node, source []byte) string {
	var b strings.Builder
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func TestRenderDashboard(t *testing.T) {
	d := NewDashboard("ada@example.com", accounts, dec("10649.36"), transactions, "USD", 2)
	md := RenderDashboard(d)

	got := tables(t, md)
	if len(got) != 3 {
		t.Fatalf("RenderDashboard() has %d tables, want 3:\n%s", len(got), md)
	}

	summary := got[0]
	wantCash := famfin.M(famfin.CashBalance(accounts), "USD").String()
	if wantCash != "$749.35" {
		t.Fatalf("cash = %q, want $749.35", wantCash)
	}
	if cash := summary[1][1]; cash != wantCash {
		t.Errorf("Cash cell = %q, want %q", cash, wantCash)
	}
	if nw := summary[1][0]; nw != "$10,649.36" {
		t.Errorf("Net Worth cell = %q, want $10,649.36", nw)
	}
	if n := summary[1][2]; n != "4" {
		t.Errorf("Accounts cell = %q, want 4", n)
	}

	accountRows := got[1][1:]
	if len(accountRows) != len(accounts) {
		t.Fatalf("accounts table has %d rows, want %d", len(accountRows), len(accounts))
	}
	if row := accountRows[0]; row[0] != "Checking" || row[1] != "depository (checking)" || row[2] != "Bank" || row[3] != "$1,000.10" {
		t.Errorf("first account row = %q", row)
	}
	if row := accountRows[3]; len(row) != 4 || !strings.Contains(row[0], "Main") {
		t.Errorf("account with a pipe in its name = %q, want a single cell", row)
	}

	txRows := got[2][1:]
	if len(txRows) != 2 {
		t.Fatalf("transactions table has %d rows, want the 2 most recent", len(txRows))
	}
	if row := txRows[0]; row[0] != "2025-03-05" || row[1] != "Coffee (Cafe)" || row[2] != "Food" || row[4] != "-$3.50" {
		t.Errorf("most recent transaction row = %q", row)
	}
	if row := txRows[1]; row[0] != "2025-03-01" || row[4] != "-$1,200.00" {
		t.Errorf("second transaction row = %q", row)
	}
}

func TestRenderDashboard_Empty(t *testing.T) {
	md := RenderDashboard(NewDashboard("", nil, decimal.Zero, nil, "EUR", 10))
	for _, want := range []string{"# Dashboard\n", "No accounts.", "No transactions."} {
		if !strings.Contains(md, want) {
			t.Errorf("RenderDashboard() missing %q in:\n%s", want, md)
		}
	}
	if cash := tables(t, md)[0][1][1]; cash != "€0.00" {
		t.Errorf("Cash cell = %q, want €0.00", cash)
	}
}

func TestRenderAccounts(t *testing.T) {
	mixed := append([]famfin.Account{
		{ID: "5", Name: "Livret", Type: famfin.Depository, Balance: dec("50"), Currency: "EUR"},
	}, accounts...)
	md := RenderAccounts(NewAccountList("Investments", famfin.Investments(mixed)))
	if !strings.HasPrefix(md, "# Investments\n") {
		t.Errorf("RenderAccounts() title, got:\n%s", md)
	}

	md = RenderAccounts(NewAccountList("", mixed))
	got := tables(t, md)
	if len(got) != 2 {
		t.Fatalf("RenderAccounts() has %d tables, want 2:\n%s", len(got), md)
	}
	totals := got[1][1:]
	if len(totals) != 2 || totals[0][0] != "EUR" || totals[0][1] != "€50.00" || totals[1][1] != "$12,649.36" {
		t.Errorf("totals = %q", totals)
	}
}

func TestRenderTransactions(t *testing.T) {
	l := NewTransactionList("", transactions, nil, "EUR", 0)
	got := tables(t, RenderTransactions(l))
	if len(got) != 1 || len(got[0]) != 4 {
		t.Fatalf("RenderTransactions() tables = %q", got)
	}
	// without accounts, amounts are in the default currency.
	if amount := got[0][3][4]; amount != "+€3,000.00" {
		t.Errorf("Salary amount = %q, want +€3,000.00", amount)
	}
}

func TestRenderDashboard_CashPerCurrency(t *testing.T) {
	mixed := append([]famfin.Account{
		{ID: "5", Name: "Livret", Type: famfin.Depository, Balance: dec("50"), Currency: "EUR"},
	}, accounts...)
	md := RenderDashboard(NewDashboard("", mixed, dec("10699.36"), nil, "USD", 5))
	if cash := tables(t, md)[0][1][1]; cash != "€50.00, $749.35" {
		t.Errorf("Cash cell = %q, want one figure per currency", cash)
	}
}

func TestRenderStats(t *testing.T) {
	mixed := append([]famfin.Account{
		{ID: "5", Name: "Livret", Type: famfin.Depository, Balance: dec("50"), Currency: "EUR"},
		{ID: "6", Name: "Mortgage", Type: famfin.Loan, Balance: dec("-1000"), Currency: "EUR"},
	}, accounts...)
	md := RenderStats(NewStats(mixed, transactions))

	got := tables(t, md)
	if len(got) != 2 {
		t.Fatalf("RenderStats() has %d tables, want 2:\n%s", len(got), md)
	}
	wantTypes := [][]string{
		{"Account Type", "Count"},
		{"credit", "1"},
		{"depository", "3"},
		{"investment", "1"},
		{"loan", "1"},
	}
	if !equalRows(got[0], wantTypes) {
		t.Errorf("account types = %q, want %q", got[0], wantTypes)
	}
	wantBalances := [][]string{
		{"Currency", "Cash", "Total"},
		{"EUR", "€50.00", "-€950.00"},
		{"USD", "$749.35", "$12,649.36"},
	}
	if !equalRows(got[1], wantBalances) {
		t.Errorf("balances = %q, want %q", got[1], wantBalances)
	}
	if !strings.Contains(md, "\n3 transactions.\n") {
		t.Errorf("RenderStats() missing the transaction count:\n%s", md)
	}

	empty := RenderStats(NewStats(nil, nil))
	if !strings.Contains(empty, "No accounts.") || !strings.Contains(empty, "0 transactions.") {
		t.Errorf("RenderStats() of nothing:\n%s", empty)
	}
}

func equalRows(got, want [][]string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.Join(got[i], "|") != strings.Join(want[i], "|") {
			return false
		}
	}
	return true
}
