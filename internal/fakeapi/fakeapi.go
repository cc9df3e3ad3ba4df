// Package fakeapi is an in-memory implementation of the finance API, for tests.
//
// It serves the same routes and envelopes as the real server, under /api:
// {"data": ...} on success, {"error": "..."} with a non-2xx status otherwise.
// Requests are decoded as the real server does: amounts are JSON numbers
// (float64) and dates RFC 3339 timestamps, anything else is a 400
// "Invalid request body".
package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var secret = []byte("fakeapi-secret")

// User is a registered user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FamilyID string `json:"family_id"`
	password string
}

// Account is a stored account.
type Account struct {
	ID              string  `json:"id"`
	FamilyID        string  `json:"-"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Subtype         string  `json:"subtype"`
	Balance         float64 `json:"balance"`
	Currency        string  `json:"currency"`
	InstitutionName string  `json:"institution_name,omitempty"`
}

// Transaction is a stored ledger entry.
type Transaction struct {
	ID           string  `json:"id"`
	FamilyID     string  `json:"-"`
	Date         string  `json:"date"`
	Name         string  `json:"name"`
	MerchantName string  `json:"merchant_name,omitempty"`
	CategoryName string  `json:"category_name,omitempty"`
	AccountName  string  `json:"account_name"`
	Amount       float64 `json:"amount"`
	AccountID    string  `json:"account_id"`
	CategoryID   string  `json:"category_id,omitempty"`
}

// Server is a running fake API.
type Server struct {
	srv *httptest.Server

	mu           sync.Mutex
	users        map[string]*User // by email
	accounts     []*Account
	transactions []*Transaction
	hits         map[string]int
	gate         chan struct{}
}

// New starts a fake API. It is closed at the end of the test.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		users: make(map[string]*User),
		hits:  make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// BaseURL is the base URL of the API, ending with /api.
func (s *Server) BaseURL() string { return s.srv.URL + "/api" }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Use(s.hold)

			r.Get("/accounts", s.listAccounts)
			r.Get("/accounts/net-worth", s.netWorth)
			r.Post("/accounts", s.createAccount)
			r.Get("/transactions", s.listTransactions)
			r.Post("/transactions", s.createTransaction)
			r.Post("/transfers", s.createTransfer)
			r.Post("/investments/trade", s.createTrade)
		})
	})
	return r
}

// Hits returns the number of requests received for "METHOD /path",
// e.g. "GET /api/accounts".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Hold blocks the authenticated routes until release is called. Requests
// are counted before they block.
func (s *Server) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// AddUser registers a user with its own family.
func (s *Server) AddUser(email, password string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addUser(email, password)
}

func (s *Server) addUser(email, password string) *User {
	u := &User{ID: uuid.NewString(), Email: email, FamilyID: uuid.NewString(), password: password}
	s.users[email] = u
	return u
}

// AddAccount stores an account in the family of the user registered with email.
func (s *Server) AddAccount(email string, a Account) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		panic("fakeapi: unknown user " + email)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.FamilyID = u.FamilyID
	s.accounts = append(s.accounts, &a)
	return a
}

// Token returns a signed token for user, expiring after ttl.
func Token(u User, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.Email,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return token
}

// middlewares

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hold(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		gate := s.gate
		s.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			sendError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			sendError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.mu.Lock()
		u, ok := s.users[claims.Subject]
		s.mu.Unlock()
		if !ok {
			sendError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, u)))
	})
}

// helpers

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("Invalid request body")
	}
	return nil
}
