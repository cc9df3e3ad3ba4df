package famfin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/etnz/famfin/api"
	"github.com/etnz/famfin/query"
	"github.com/etnz/famfin/session"
	"github.com/shopspring/decimal"
)

// Resource keys of the cache.
var (
	KeyAccounts     = query.NewKey("accounts")
	KeyNetWorth     = query.NewKey("net-worth")
	KeyInvestments  = query.NewKey("investments")
	KeyTransactions = query.NewKey("transactions")
)

// Client reads and writes the family resources through the cache.
type Client struct {
	API     *api.Client
	Cache   *query.Client
	Session *session.Store
	Logger  *slog.Logger
}

// NewClient returns a Client. The API client should use sess as its token source.
func NewClient(apiClient *api.Client, cache *query.Client, sess *session.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{API: apiClient, Cache: cache, Session: sess, Logger: logger}
}

// Reads.

func (c *Client) fetchAccounts(ctx context.Context) ([]Account, error) {
	accounts, err := api.Request[[]Account](ctx, c.API, "/accounts", api.Select("$.accounts"))
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

func (c *Client) fetchNetWorth(ctx context.Context) (decimal.Decimal, error) {
	return api.Request[decimal.Decimal](ctx, c.API, "/accounts/net-worth", api.Select("$.net_worth"))
}

func (c *Client) fetchInvestments(ctx context.Context) ([]Account, error) {
	accounts, err := c.fetchAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return Investments(accounts), nil
}

func (c *Client) fetchTransactions(ctx context.Context) ([]Transaction, error) {
	txs, err := api.Request[[]Transaction](ctx, c.API, "/transactions")
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

// Accounts returns the accounts of the family.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	return query.Fetch(ctx, c.Cache, KeyAccounts, c.fetchAccounts)
}

// NetWorth returns the net worth of the family, as computed by the server.
func (c *Client) NetWorth(ctx context.Context) (decimal.Decimal, error) {
	return query.Fetch(ctx, c.Cache, KeyNetWorth, c.fetchNetWorth)
}

// Investments returns the investment accounts of the family.
func (c *Client) Investments(ctx context.Context) ([]Account, error) {
	return query.Fetch(ctx, c.Cache, KeyInvestments, c.fetchInvestments)
}

// Transactions returns the transactions of the family.
func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	return query.Fetch(ctx, c.Cache, KeyTransactions, c.fetchTransactions)
}

func (c *Client) ObserveAccounts() *query.Observer[[]Account] {
	return query.Observe(c.Cache, KeyAccounts, c.fetchAccounts)
}

func (c *Client) ObserveNetWorth() *query.Observer[decimal.Decimal] {
	return query.Observe(c.Cache, KeyNetWorth, c.fetchNetWorth)
}

func (c *Client) ObserveInvestments() *query.Observer[[]Account] {
	return query.Observe(c.Cache, KeyInvestments, c.fetchInvestments)
}

func (c *Client) ObserveTransactions() *query.Observer[[]Transaction] {
	return query.Observe(c.Cache, KeyTransactions, c.fetchTransactions)
}

// Writes.

// CreateAccountMutation creates accounts and invalidates the accounts and
// the net worth.
func (c *Client) CreateAccountMutation() *query.Mutation[NewAccount, Account] {
	return query.NewMutation(c.Cache, func(ctx context.Context, a NewAccount) (Account, error) {
		return api.Request[Account](ctx, c.API, "/accounts", api.Post(a))
	}, query.MutationOptions[Account]{
		Invalidates: []query.Key{KeyAccounts, KeyNetWorth},
	})
}

// CreateAccount creates an account.
func (c *Client) CreateAccount(ctx context.Context, a NewAccount) (Account, error) {
	return c.CreateAccountMutation().Mutate(ctx, a)
}

// CreateTransactionMutation creates transactions and invalidates the
// transactions, the accounts and the net worth.
func (c *Client) CreateTransactionMutation() *query.Mutation[NewTransaction, Transaction] {
	return query.NewMutation(c.Cache, func(ctx context.Context, tx NewTransaction) (Transaction, error) {
		return api.Request[Transaction](ctx, c.API, "/transactions", api.Post(tx))
	}, query.MutationOptions[Transaction]{
		Invalidates: []query.Key{KeyTransactions, KeyAccounts, KeyNetWorth},
	})
}

// CreateTransaction records a transaction.
func (c *Client) CreateTransaction(ctx context.Context, tx NewTransaction) (Transaction, error) {
	return c.CreateTransactionMutation().Mutate(ctx, tx)
}

// CreateTransferMutation creates transfers and invalidates the
// transactions, the accounts and the net worth.
func (c *Client) CreateTransferMutation() *query.Mutation[Transfer, string] {
	return query.NewMutation(c.Cache, func(ctx context.Context, t Transfer) (string, error) {
		return api.Request[string](ctx, c.API, "/transfers", api.Post(t), api.Select("$.message"))
	}, query.MutationOptions[string]{
		Invalidates: []query.Key{KeyTransactions, KeyAccounts, KeyNetWorth},
	})
}

// CreateTransfer moves money between two accounts. It returns the server
// confirmation message.
func (c *Client) CreateTransfer(ctx context.Context, t Transfer) (string, error) {
	if t.FromAccountID == t.ToAccountID {
		return "", fmt.Errorf("cannot transfer from account %q to itself", t.FromAccountID)
	}
	return c.CreateTransferMutation().Mutate(ctx, t)
}

// CreateTradeMutation records trades and invalidates the accounts, the
// investments and the net worth.
func (c *Client) CreateTradeMutation() *query.Mutation[Trade, Transaction] {
	return query.NewMutation(c.Cache, func(ctx context.Context, t Trade) (Transaction, error) {
		return api.Request[Transaction](ctx, c.API, "/investments/trade", api.Post(t))
	}, query.MutationOptions[Transaction]{
		Invalidates: []query.Key{KeyAccounts, KeyInvestments, KeyNetWorth},
	})
}

// CreateTrade records a trade. It returns the cash entry of the trade.
func (c *Client) CreateTrade(ctx context.Context, t Trade) (Transaction, error) {
	if t.Kind == "" {
		t.Kind = Buy
	}
	if t.Kind != Buy && t.Kind != Sell {
		return Transaction{}, fmt.Errorf("invalid trade kind %q, want %q or %q", t.Kind, Buy, Sell)
	}
	return c.CreateTradeMutation().Mutate(ctx, t)
}
