package famfin

import (
	"encoding/json"
	"time"

	"github.com/etnz/famfin/date"
	"github.com/shopspring/decimal"
)

// The API decodes amounts as JSON numbers and dates as RFC 3339 timestamps.
// Request payloads are marshalled in that shape: decimal.Decimal would
// otherwise write a quoted string, and date.Date a plain day.

// number is a decimal written as a bare JSON number.
type number decimal.Decimal

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

// timestamp is a day written as midnight UTC, or null for the zero Date.
type timestamp date.Date

func (t timestamp) MarshalJSON() ([]byte, error) {
	d := date.Date(t)
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
}

func (a NewAccount) MarshalJSON() ([]byte, error) {
	type payload NewAccount
	return json.Marshal(struct {
		payload
		Balance number `json:"balance"`
	}{payload(a), number(a.Balance)})
}

func (t NewTransaction) MarshalJSON() ([]byte, error) {
	type payload NewTransaction
	return json.Marshal(struct {
		payload
		Date   timestamp `json:"date"`
		Amount number    `json:"amount"`
	}{payload(t), timestamp(t.Date), number(t.Amount)})
}

func (t Transfer) MarshalJSON() ([]byte, error) {
	type payload Transfer
	return json.Marshal(struct {
		payload
		Date   timestamp `json:"date"`
		Amount number    `json:"amount"`
	}{payload(t), timestamp(t.Date), number(t.Amount)})
}

func (t Trade) MarshalJSON() ([]byte, error) {
	type payload Trade
	return json.Marshal(struct {
		payload
		Date  timestamp `json:"date"`
		Qty   number    `json:"qty"`
		Price number    `json:"price"`
	}{payload(t), timestamp(t.Date), number(t.Qty), number(t.Price)})
}
