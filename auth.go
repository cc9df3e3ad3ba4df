package famfin

import (
	"context"

	"github.com/etnz/famfin/api"
	"github.com/etnz/famfin/query"
	"github.com/etnz/famfin/session"
)

// Credentials are the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates a user and its family.
type Registration struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FamilyName string `json:"family_name"`
}

// AuthResult is the response of a successful login or registration.
type AuthResult struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// authMutation posts to endpoint and stores the returned session. It
// invalidates nothing.
func authMutation[V any](c *Client, endpoint string) *query.Mutation[V, AuthResult] {
	return query.NewMutation(c.Cache, func(ctx context.Context, v V) (AuthResult, error) {
		return api.Request[AuthResult](ctx, c.API, endpoint, api.Post(v))
	}, query.MutationOptions[AuthResult]{
		OnSuccess: func(ctx context.Context, r AuthResult) error {
			return c.Session.SetAuth(ctx, r.User, r.Token)
		},
	})
}

func (c *Client) LoginMutation() *query.Mutation[Credentials, AuthResult] {
	return authMutation[Credentials](c, "/auth/login")
}

func (c *Client) RegisterMutation() *query.Mutation[Registration, AuthResult] {
	return authMutation[Registration](c, "/auth/register")
}

// Login signs in and persists the session.
func (c *Client) Login(ctx context.Context, cred Credentials) (AuthResult, error) {
	return c.LoginMutation().Mutate(ctx, cred)
}

// Register creates a user, signs it in and persists the session.
func (c *Client) Register(ctx context.Context, r Registration) (AuthResult, error) {
	return c.RegisterMutation().Mutate(ctx, r)
}

// Logout ends the session and empties the cache. The cache is cleared even
// when the persisted session cannot be deleted.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Session.Logout(ctx)
	c.Cache.Clear()
	return err
}
