package famfin

import (
	"github.com/shopspring/decimal"
)

// AccountType is the broad kind of an account.
type AccountType string

const (
	Depository AccountType = "depository"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
	Loan       AccountType = "loan"
)

// Valid reports whether t is one of the known account types. Unknown types
// returned by the server are preserved as is.
func (t AccountType) Valid() bool {
	switch t {
	case Depository, Credit, Investment, Loan:
		return true
	}
	return false
}

// Account is a family account as returned by the API.
type Account struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Type            AccountType     `json:"type"`
	Subtype         string          `json:"subtype"`
	Balance         decimal.Decimal `json:"balance"`
	Currency        string          `json:"currency"`
	InstitutionName string          `json:"institution_name,omitempty"`
}

// Money returns the account balance in its currency.
func (a Account) Money() Money { return M(a.Balance, a.Currency) }

// NewAccount is the payload of an account creation.
type NewAccount struct {
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Subtype  string          `json:"subtype,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// Investments returns the accounts of type Investment.
func Investments(accounts []Account) []Account {
	res := []Account{}
	for _, a := range accounts {
		if a.Type == Investment {
			res = append(res, a)
		}
	}
	return res
}
