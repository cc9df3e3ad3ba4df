package famfin

import (
	"github.com/etnz/famfin/date"
	"github.com/shopspring/decimal"
)

// Transaction is a ledger entry as returned by the API.
type Transaction struct {
	ID           string          `json:"id"`
	Date         date.Date       `json:"date"`
	Name         string          `json:"name"`
	MerchantName string          `json:"merchant_name,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	AccountName  string          `json:"account_name"`
	Amount       decimal.Decimal `json:"amount"`
	AccountID    string          `json:"account_id"`
	CategoryID   string          `json:"category_id,omitempty"`
}

// NewTransaction is the payload of a transaction creation.
// A negative amount is money leaving the account.
type NewTransaction struct {
	AccountID    string          `json:"account_id"`
	Date         date.Date       `json:"date"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	MerchantName string          `json:"merchant_name,omitempty"`
	CategoryID   string          `json:"category_id,omitempty"`
}

// Transfer moves an amount between two accounts of the family.
type Transfer struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Date          date.Date       `json:"date"`
	Name          string          `json:"name,omitempty"`
}

// TradeKind is the direction of a Trade.
type TradeKind string

const (
	Buy  TradeKind = "buy"
	Sell TradeKind = "sell"
)

// Trade buys or sells a security in an investment account.
type Trade struct {
	AccountID    string          `json:"account_id"`
	Ticker       string          `json:"ticker"`
	SecurityName string          `json:"security_name,omitempty"`
	Qty          decimal.Decimal `json:"qty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency,omitempty"`
	Date         date.Date       `json:"date"`
	Kind         TradeKind       `json:"kind"`
}

// Amount returns the cash movement of the trade on its account: negative
// for a buy, positive for a sell.
func (t Trade) Amount() decimal.Decimal {
	amount := t.Qty.Mul(t.Price)
	if t.Kind == Sell {
		return amount
	}
	return amount.Neg()
}
