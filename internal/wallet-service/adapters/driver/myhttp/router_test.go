package myhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gride/internal/auth"
	"gride/internal/mylogger"
	"gride/internal/wallet-service/adapters/driven/memdb"
	"gride/internal/wallet-service/core/domain/model"
	"gride/internal/wallet-service/core/services"

	"github.com/shopspring/decimal"
)

const testSecret = "wallet-test-secret"

type env struct {
	srv    *httptest.Server
	ledger *memdb.Ledger
	svc    *services.WalletService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := mylogger.NewWithWriter(io.Discard, mylogger.LevelError)
	ledger := memdb.NewLedger()
	svc := services.NewWalletService(log, ledger, nil, "GYD")
	am := auth.NewAuthMiddleware(auth.NewVerifier(testSecret))
	health := func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}

	srv := httptest.NewServer(NewRouter(log, svc, am, []string{"*"}, health))
	t.Cleanup(srv.Close)
	return &env{srv: srv, ledger: ledger, svc: svc}
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := auth.Sign(testSecret, auth.Identity{SubjectID: subject, Role: role}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *env) do(t *testing.T, method, path, tok string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, e.srv.URL+path, rdr)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (e *env) seed(t *testing.T, owner, address string, balance int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.ledger.CreateAccount(ctx, model.Account{OwnerID: owner, Address: address, Currency: "GYD"}); err != nil {
		t.Fatal(err)
	}
	if balance > 0 {
		if _, err := e.svc.ApplyAdjustment(ctx, owner, decimal.NewFromInt(balance), "seed"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSendMoneyOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", "GRAAAA", 1000)
	e.seed(t, "B", "GR1234", 0)

	code, body := e.do(t, http.MethodPost, "/api/driver/wallet/send", token(t, "A", auth.RoleDriver), map[string]interface{}{
		"receiver_address": "GR1234",
		"amount":           300,
	})
	if code != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	wallet := body["wallet"].(map[string]interface{})
	if wallet["available_balance"] != "700" {
		t.Errorf("sender balance = %v", wallet["available_balance"])
	}

	// older clients send receiver_wallet_id
	code, _ = e.do(t, http.MethodPost, "/api/driver/wallet/send", token(t, "A", auth.RoleDriver), map[string]interface{}{
		"receiver_wallet_id": "GR1234",
		"amount":             "50.25",
	})
	if code != http.StatusCreated {
		t.Fatalf("legacy field status = %d", code)
	}

	code, body = e.do(t, http.MethodGet, "/api/driver/wallet/transfers", token(t, "B", auth.RoleDriver), nil)
	if code != http.StatusOK || len(body["transfers"].([]interface{})) != 2 {
		t.Errorf("transfers = %d %v", code, body)
	}
}

func TestErrorStatuses(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", "GRAAAA", 100)
	e.seed(t, "B", "GR1234", 0)
	driverA := token(t, "A", auth.RoleDriver)

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		body   interface{}
		code   int
		kind   string
	}{
		{"no token", http.MethodGet, "/api/driver/wallet", "", nil, http.StatusUnauthorized, "Unauthorized"},
		{"rider token", http.MethodGet, "/api/driver/wallet", token(t, "r1", auth.RoleRider), nil, http.StatusForbidden, "Forbidden"},
		{"zero amount", http.MethodPost, "/api/driver/wallet/send", driverA, map[string]interface{}{"receiver_address": "GR1234", "amount": 0}, http.StatusBadRequest, "InvalidAmount"},
		{"amount above column range", http.MethodPost, "/api/driver/wallet/payout", driverA, map[string]interface{}{"amount": "1000000000000"}, http.StatusBadRequest, "InvalidAmount"},
		{"missing receiver", http.MethodPost, "/api/driver/wallet/send", driverA, map[string]interface{}{"amount": 1}, http.StatusBadRequest, "ValidationError"},
		{"unknown receiver", http.MethodPost, "/api/driver/wallet/send", driverA, map[string]interface{}{"receiver_address": "GRNOPE", "amount": 1}, http.StatusNotFound, "ReceiverNotFound"},
		{"self", http.MethodPost, "/api/driver/wallet/send", driverA, map[string]interface{}{"receiver_address": "GRAAAA", "amount": 1}, http.StatusBadRequest, "SelfTransfer"},
		{"overdraw", http.MethodPost, "/api/driver/wallet/payout", driverA, map[string]interface{}{"amount": 101}, http.StatusUnprocessableEntity, "InsufficientFunds"},
		{"no wallet payout", http.MethodPost, "/api/driver/wallet/payout", token(t, "ghost", auth.RoleDriver), map[string]interface{}{"amount": 1}, http.StatusNotFound, "AccountNotFound"},
		{"bad json", http.MethodPost, "/api/driver/wallet/payout", driverA, "nope", http.StatusBadRequest, "ValidationError"},
		{"bad limit", http.MethodGet, "/api/driver/wallet/transactions?limit=x", driverA, nil, http.StatusBadRequest, "ValidationError"},
		{"driver on admin route", http.MethodPost, "/api/admin/wallets/A/adjustments", driverA, map[string]interface{}{"amount": 1, "description": "x"}, http.StatusForbidden, "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := e.do(t, tt.method, tt.path, tt.tok, tt.body)
			if code != tt.code {
				t.Fatalf("status = %d, want %d (%v)", code, tt.code, body)
			}
			if body["kind"] != tt.kind || body["success"] != false {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestOverviewPayoutAndReceive(t *testing.T) {
	e := newEnv(t)
	driver := token(t, "d1", auth.RoleDriver)

	code, body := e.do(t, http.MethodGet, "/api/driver/wallet", driver, nil)
	if code != http.StatusOK {
		t.Fatalf("overview status = %d", code)
	}
	wallet := body["wallet"].(map[string]interface{})
	address := wallet["wallet_address"].(string)
	if wallet["currency"] != "GYD" || address == "" {
		t.Errorf("wallet = %v", wallet)
	}

	code, body = e.do(t, http.MethodGet, "/api/driver/wallet/receive", driver, nil)
	if code != http.StatusOK || body["qr_string"] != "gride:"+address {
		t.Errorf("receive = %d %v", code, body)
	}

	code, _ = e.do(t, http.MethodPost, "/api/admin/wallets/d1/adjustments", token(t, "adm", auth.RoleAdmin),
		map[string]interface{}{"amount": "500", "description": "weekly earnings"})
	if code != http.StatusCreated {
		t.Fatalf("adjustment status = %d", code)
	}

	code, body = e.do(t, http.MethodPost, "/api/driver/wallet/payout", driver, map[string]interface{}{"amount": 500, "method": "bank"})
	if code != http.StatusCreated {
		t.Fatalf("payout status = %d %v", code, body)
	}
	tx := body["transaction"].(map[string]interface{})
	if tx["source"] != "payout" || tx["type"] != "debit" || tx["description"] != "Payout requested via bank" {
		t.Errorf("transaction = %v", tx)
	}

	code, body = e.do(t, http.MethodGet, "/api/driver/wallet/transactions?limit=1", driver, nil)
	if code != http.StatusOK || len(body["transactions"].([]interface{})) != 1 {
		t.Errorf("transactions = %d %v", code, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(t, http.MethodGet, "/health", "", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", code, body)
	}

	resp, err := http.Get(e.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("wallet_http_requests_total")) {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}
