package fakeapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCreateTransaction_Body(t *testing.T) {
	srv := New(t)
	u := srv.AddUser("ada@example.com", "pw")
	a := srv.AddAccount(u.Email, Account{Name: "Checking", Type: "depository", Currency: "USD"})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"timestamp", `{"account_id":"` + a.ID + `","amount":-42.5,"date":"2025-03-05T00:00:00Z","name":"Groceries"}`, http.StatusCreated},
		{"no date", `{"account_id":"` + a.ID + `","amount":-1,"name":"Coffee"}`, http.StatusCreated},
		{"empty date", `{"account_id":"` + a.ID + `","amount":-1,"date":"","name":"Coffee"}`, http.StatusBadRequest},
		{"plain day", `{"account_id":"` + a.ID + `","amount":-1,"date":"2025-03-05","name":"Coffee"}`, http.StatusBadRequest},
		{"quoted amount", `{"account_id":"` + a.ID + `","amount":"-1","date":"2025-03-05T00:00:00Z","name":"Coffee"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, srv.BaseURL()+"/transactions", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Authorization", "Bearer "+Token(u, time.Hour))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusBadRequest {
				return
			}
			var e struct {
				Error string `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error != "Invalid request body" {
				t.Errorf("error = %q, %v, want %q", e.Error, err, "Invalid request body")
			}
		})
	}
}
