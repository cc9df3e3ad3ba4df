package famfin

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CashBalance returns the sum of the balances of the depository accounts.
// The sum is exact and negative balances are included.
func CashBalance(accounts []Account) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range accounts {
		if a.Type == Depository {
			sum = sum.Add(a.Balance)
		}
	}
	return sum
}

// TotalBalance returns the sum of the balances of all accounts.
func TotalBalance(accounts []Account) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range accounts {
		sum = sum.Add(a.Balance)
	}
	return sum
}

// BalancesByCurrency returns the sum of the balances of the accounts
// selected by keep, one Money per currency, sorted by currency. A nil keep
// selects every account.
func BalancesByCurrency(accounts []Account, keep func(Account) bool) []Money {
	sums := make(map[string]decimal.Decimal)
	for _, a := range accounts {
		if keep != nil && !keep(a) {
			continue
		}
		sums[a.Currency] = sums[a.Currency].Add(a.Balance)
	}
	res := make([]Money, 0, len(sums))
	for cur, v := range sums {
		res = append(res, M(v, cur))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].cur < res[j].cur })
	return res
}

// IsCash selects depository accounts.
func IsCash(a Account) bool { return a.Type == Depository }
