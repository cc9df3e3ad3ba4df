package famfin

import "github.com/shopspring/decimal"

// dec is a helper for tests to create an exact decimal from a literal.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// USD is a helper for test to create usd money from a literal.
func USD(s string) Money { return M(dec(s), "USD") }

// EUR is a helper for test to create euro money from a literal.
func EUR(s string) Money { return M(dec(s), "EUR") }

func account(name string, t AccountType, balance, currency string) Account {
	return Account{ID: name, Name: name, Type: t, Balance: dec(balance), Currency: currency}
}
