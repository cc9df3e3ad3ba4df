package fakeapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const tokenTTL = 24 * time.Hour

func withUser(r *http.Request, u *User) context.Context {
	return context.WithValue(r.Context(), userKey{}, u)
}

func currentUser(r *http.Request) *User {
	u, _ := r.Context().Value(userKey{}).(*User)
	return u
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		FamilyName string `json:"family_name"`
	}
	if err := decode(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		sendError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		sendError(w, http.StatusConflict, "email already registered")
		return
	}
	u := *s.addUser(req.Email, req.Password)
	s.mu.Unlock()

	sendJSON(w, http.StatusCreated, authResponse{Token: Token(u, tokenTTL), User: u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		sendError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	sendJSON(w, http.StatusOK, authResponse{Token: Token(*u, tokenTTL), User: *u})
}

// familyAccounts returns the accounts of family. s.mu must be held.
func (s *Server) familyAccounts(family string) []Account {
	res := []Account{}
	for _, a := range s.accounts {
		if a.FamilyID == family {
			res = append(res, *a)
		}
	}
	return res
}

// account returns the account id of family. s.mu must be held.
func (s *Server) account(family, id string) *Account {
	for _, a := range s.accounts {
		if a.FamilyID == family && a.ID == id {
			return a
		}
	}
	return nil
}

func netWorth(accounts []Account) float64 {
	var sum float64
	for _, a := range accounts {
		sum += a.Balance
	}
	return sum
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.mu.Lock()
	accounts := s.familyAccounts(u.FamilyID)
	s.mu.Unlock()
	sendJSON(w, http.StatusOK, map[string]any{
		"accounts":  accounts,
		"net_worth": netWorth(accounts),
	})
}

func (s *Server) netWorth(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.mu.Lock()
	accounts := s.familyAccounts(u.FamilyID)
	s.mu.Unlock()
	sendJSON(w, http.StatusOK, map[string]any{"net_worth": netWorth(accounts)})
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var a Account
	if err := decode(r, &a); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.Name == "" || a.Currency == "" {
		sendError(w, http.StatusBadRequest, "Name and Currency are required")
		return
	}
	a.ID = uuid.NewString()
	a.FamilyID = currentUser(r).FamilyID
	s.mu.Lock()
	s.accounts = append(s.accounts, &a)
	s.mu.Unlock()
	sendJSON(w, http.StatusCreated, a)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.mu.Lock()
	res := []Transaction{}
	for _, tx := range s.transactions {
		if tx.FamilyID == u.FamilyID {
			res = append(res, *tx)
		}
	}
	s.mu.Unlock()
	sendJSON(w, http.StatusOK, res)
}

// record appends an entry to account and updates its balance. s.mu must be held.
// A missing date is today.
func (s *Server) record(a *Account, date time.Time, name string, amount float64) Transaction {
	if date.IsZero() {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	tx := &Transaction{
		ID:          uuid.NewString(),
		FamilyID:    a.FamilyID,
		Date:        date.Format(time.RFC3339),
		Name:        name,
		AccountName: a.Name,
		Amount:      amount,
		AccountID:   a.ID,
	}
	a.Balance += amount
	s.transactions = append(s.transactions, tx)
	return *tx
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID    string    `json:"account_id"`
		Amount       float64   `json:"amount"`
		Date         time.Time `json:"date"`
		Name         string    `json:"name"`
		MerchantName string    `json:"merchant_name"`
		CategoryID   string    `json:"category_id"`
	}
	if err := decode(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(currentUser(r).FamilyID, req.AccountID)
	if a == nil {
		sendError(w, http.StatusNotFound, "Account not found")
		return
	}
	tx := s.record(a, req.Date, req.Name, req.Amount)
	tx.MerchantName = req.MerchantName
	tx.CategoryID = req.CategoryID
	s.transactions[len(s.transactions)-1] = &tx
	sendJSON(w, http.StatusCreated, tx)
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string    `json:"from_account_id"`
		ToAccountID   string    `json:"to_account_id"`
		Amount        float64   `json:"amount"`
		Date          time.Time `json:"date"`
		Name          string    `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	family := currentUser(r).FamilyID
	from, to := s.account(family, req.FromAccountID), s.account(family, req.ToAccountID)
	if from == nil || to == nil {
		sendError(w, http.StatusNotFound, "Account not found")
		return
	}
	name := req.Name
	if name == "" {
		name = "Transfer"
	}
	s.record(from, req.Date, name, -req.Amount)
	s.record(to, req.Date, name, req.Amount)
	sendJSON(w, http.StatusCreated, map[string]string{"message": "Transfer successful"})
}

func (s *Server) createTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string    `json:"account_id"`
		Ticker    string    `json:"ticker"`
		Qty       float64   `json:"qty"`
		Price     float64   `json:"price"`
		Date      time.Time `json:"date"`
		Kind      string    `json:"kind"`
	}
	if err := decode(r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount := req.Qty * req.Price
	if req.Kind == "buy" || req.Kind == "" {
		amount = -amount
		req.Kind = "buy"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(currentUser(r).FamilyID, req.AccountID)
	if a == nil {
		sendError(w, http.StatusNotFound, "Account not found")
		return
	}
	tx := s.record(a, req.Date, req.Kind+" "+req.Ticker, amount)
	sendJSON(w, http.StatusCreated, tx)
}
