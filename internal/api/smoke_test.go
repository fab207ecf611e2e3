// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests run against the in-memory store and verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - X-Account middleware (401 without a valid address)
//   - Domain error mapping (404, 403, 409, 422)
//   - Response format consistency (success/error envelope)
//   - CORS preflight handling
//   - A full create → trade → resolve → redeem → claim lifecycle
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evetabi/amm/internal/api"
	"github.com/evetabi/amm/internal/config"
	"github.com/evetabi/amm/internal/engine"
	"github.com/evetabi/amm/internal/repository"
	"github.com/evetabi/amm/internal/service"
)

const (
	creator = "0x00000000000000000000000000000000000000c1"
	oracle  = "0x00000000000000000000000000000000000000a1"
	alice   = "0x000000000000000000000000000000000000a11c"
	bob     = "0x0000000000000000000000000000000000000b0b"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		Store: config.StoreConfig{Backend: config.StoreMemory},
		Engine: config.EngineConfig{
			DefaultAlpha:        decimal.RequireFromString("0.03"),
			DefaultMinLiquidity: decimal.NewFromInt(1),
			FeeRateBps:          50,
			CollateralDecimals:  6,
		},
		Broadcast: config.BroadcastConfig{PriceInterval: time.Second, MaxMarkets: 10},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
}

type testServer struct {
	h   http.Handler
	now time.Time
}

// buildTestRouter wires the real services over a MemoryStore with a clock
// the test can move.
func buildTestRouter(t *testing.T) *testServer {
	t.Helper()
	cfg := testCfg()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := &testServer{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}

	store := repository.NewMemoryStore()
	eng := engine.NewWithClock(func() time.Time { return ts.now })

	ts.h = api.SetupRouter(api.RouterDeps{
		MarketSvc: service.NewMarketService(store, eng, cfg, log),
		TradeSvc:  service.NewTradeService(store, eng, log),
		Hub:       nil,
		Cfg:       cfg,
		Logger:    log,
	})
	return ts
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func as(account string) map[string]string {
	return map[string]string{"X-Account": account}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v, body: %s", err, rr.Body.String())
	}
	return m
}

func data(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := decodeBody(t, rr)
	d, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %v", body)
	}
	return d
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int, what string) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("%s = %d, want %d, body: %s", what, rr.Code, want, rr.Body.String())
	}
}

func expectCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, status, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] != code {
		t.Errorf("code = %v, want %s", body["code"], code)
	}
}

func createMarket(t *testing.T, ts *testServer) string {
	t.Helper()
	payload := `{"question":"Will it rain?","oracle":"` + oracle + `",` +
		`"resolution_time":"` + ts.now.Add(24*time.Hour).Format(time.RFC3339) + `",` +
		`"initial_yes":"100","initial_no":"100"}`
	rr := do(t, ts.h, http.MethodPost, "/api/markets", payload, as(creator))
	expectStatus(t, rr, http.StatusCreated, "POST /api/markets")
	id, _ := data(t, rr)["id"].(string)
	if id == "" {
		t.Fatal("created market has no id")
	}
	return id
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	ts := buildTestRouter(t)
	rr := do(t, ts.h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── X-Account middleware ──────────────────────────────────────────────────────

func TestWrites_RequireAccount(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)

	cases := []struct {
		path    string
		account string
	}{
		{"/api/markets", ""},
		{"/api/markets/" + id + "/buy", ""},
		{"/api/markets/" + id + "/sell", "0x1234"},
		{"/api/markets/" + id + "/resolve", "0x0000000000000000000000000000000000000000"},
		{"/api/markets/" + id + "/redeem", "garbage"},
		{"/api/markets/" + id + "/claim-fees", ""},
	}
	for _, tc := range cases {
		var headers map[string]string
		if tc.account != "" {
			headers = as(tc.account)
		}
		rr := do(t, ts.h, http.MethodPost, tc.path, `{}`, headers)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("POST %s with account %q = %d, want 401", tc.path, tc.account, rr.Code)
		}
	}
}

func TestReads_ArePublic(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)

	for _, path := range []string{
		"/api/markets",
		"/api/markets/" + id,
		"/api/markets/" + id + "/prices",
		"/api/markets/" + id + "/quote?side=YES&amount=10",
		"/api/markets/" + id + "/positions/" + alice,
		"/api/markets/" + id + "/trades",
	} {
		rr := do(t, ts.h, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200, body: %s", path, rr.Code, rr.Body.String())
		}
	}
}

// ── Validation and error mapping ──────────────────────────────────────────────

func TestCreateMarket_Validation(t *testing.T) {
	ts := buildTestRouter(t)

	rr := do(t, ts.h, http.MethodPost, "/api/markets", `{}`, as(creator))
	expectCode(t, rr, http.StatusBadRequest, "ERR_VALIDATION")

	past := ts.now.Add(-time.Hour).Format(time.RFC3339)
	rr = do(t, ts.h, http.MethodPost, "/api/markets",
		`{"question":"q","oracle":"`+oracle+`","resolution_time":"`+past+`"}`, as(creator))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INVALID_PARAMS")

	future := ts.now.Add(time.Hour).Format(time.RFC3339)
	rr = do(t, ts.h, http.MethodPost, "/api/markets",
		`{"question":"q","oracle":"`+oracle+`","resolution_time":"`+future+`","initial_yes":"100","initial_no":"100","deposit":"1"}`,
		as(creator))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INSUFFICIENT_BUFFER")

	rr = do(t, ts.h, http.MethodPost, "/api/markets",
		`{"question":"q","oracle":"nope","resolution_time":"`+future+`"}`, as(creator))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INVALID_ORACLE")
}

func TestUnknownMarket_Returns404(t *testing.T) {
	ts := buildTestRouter(t)
	rr := do(t, ts.h, http.MethodGet, "/api/markets/11111111-1111-1111-1111-111111111111", "", nil)
	expectCode(t, rr, http.StatusNotFound, "ERR_MARKET_NOT_FOUND")

	rr = do(t, ts.h, http.MethodGet, "/api/markets/not-a-uuid", "", nil)
	expectCode(t, rr, http.StatusBadRequest, "ERR_INVALID_ID")
}

func TestBuy_BadRequests(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)
	path := "/api/markets/" + id + "/buy"

	rr := do(t, ts.h, http.MethodPost, path, `{"side":"MAYBE","amount":"10"}`, as(alice))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INVALID_OUTCOME")

	rr = do(t, ts.h, http.MethodPost, path, `{"side":"YES","amount":"ten"}`, as(alice))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INVALID_AMOUNT")

	rr = do(t, ts.h, http.MethodPost, path, `{"side":"YES","amount":"0"}`, as(alice))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INVALID_AMOUNT")
}

func TestBuy_SlippageDetails(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)

	rr := do(t, ts.h, http.MethodPost, "/api/markets/"+id+"/buy",
		`{"side":"YES","amount":"10","min_shares":"1000"}`, as(alice))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("slippage buy = %d, want 422, body: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["code"] != "ERR_SLIPPAGE" {
		t.Errorf("code = %v, want ERR_SLIPPAGE", body["code"])
	}
	details, _ := body["details"].(map[string]interface{})
	if details["bound"] != "min_shares" || details["min"] != "1000000000000000000000" {
		t.Errorf("unexpected slippage details: %v", details)
	}
}

func TestSell_MoreThanHeld(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)
	rr := do(t, ts.h, http.MethodPost, "/api/markets/"+id+"/sell",
		`{"side":"NO","shares":"1"}`, as(bob))
	expectCode(t, rr, http.StatusBadRequest, "ERR_INSUFFICIENT_SHARES")
}

// ── Full lifecycle ────────────────────────────────────────────────────────────

func TestMarketLifecycle(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)
	base := "/api/markets/" + id

	// Symmetric market prices both sides equally and above one half.
	rr := do(t, ts.h, http.MethodGet, base+"/prices", "", nil)
	expectStatus(t, rr, http.StatusOK, "GET prices")
	prices := data(t, rr)
	if prices["yes_price"] != prices["no_price"] {
		t.Errorf("symmetric prices differ: %v", prices)
	}
	if prices["yes_price"] != "520794415416798359" {
		t.Errorf("yes_price = %v, want 520794415416798359", prices["yes_price"])
	}

	// Quote and execute the same buy.
	rr = do(t, ts.h, http.MethodGet, base+"/quote?side=YES&amount=10", "", nil)
	expectStatus(t, rr, http.StatusOK, "GET quote")
	quoted := data(t, rr)["shares"]

	rr = do(t, ts.h, http.MethodPost, base+"/buy", `{"side":"YES","amount":"10"}`, as(alice))
	expectStatus(t, rr, http.StatusOK, "POST buy")
	bought := data(t, rr)
	if bought["shares"] != quoted {
		t.Errorf("executed shares %v differ from quote %v", bought["shares"], quoted)
	}
	shares, _ := bought["shares"].(string)
	if !strings.HasPrefix(shares, "13") || len(shares) != 20 {
		t.Errorf("$10 YES buy shares = %s, want about 13.4e18", shares)
	}

	rr = do(t, ts.h, http.MethodPost, base+"/buy", `{"side":"NO","amount":"5"}`, as(bob))
	expectStatus(t, rr, http.StatusOK, "POST buy NO")

	rr = do(t, ts.h, http.MethodGet, base+"/positions/"+alice, "", nil)
	expectStatus(t, rr, http.StatusOK, "GET position")
	if data(t, rr)["yes_shares"] != shares {
		t.Errorf("position does not hold bought shares: %s", rr.Body.String())
	}

	// Only the oracle, only after the resolution time.
	rr = do(t, ts.h, http.MethodPost, base+"/resolve", `{"outcome":"YES"}`, as(oracle))
	expectCode(t, rr, http.StatusConflict, "ERR_RESOLUTION_TOO_EARLY")
	ts.now = ts.now.Add(25 * time.Hour)
	rr = do(t, ts.h, http.MethodPost, base+"/resolve", `{"outcome":"YES"}`, as(alice))
	expectCode(t, rr, http.StatusForbidden, "ERR_NOT_ORACLE")
	rr = do(t, ts.h, http.MethodPost, base+"/resolve", `{"outcome":"YES"}`, as(oracle))
	expectStatus(t, rr, http.StatusOK, "POST resolve")
	rr = do(t, ts.h, http.MethodPost, base+"/resolve", `{"outcome":"NO"}`, as(oracle))
	expectCode(t, rr, http.StatusConflict, "ERR_ALREADY_RESOLVED")

	// Trading is closed.
	rr = do(t, ts.h, http.MethodPost, base+"/buy", `{"side":"YES","amount":"1"}`, as(bob))
	expectCode(t, rr, http.StatusConflict, "ERR_MARKET_RESOLVED")

	// Winner redeems 1:1; loser gets nothing.
	rr = do(t, ts.h, http.MethodPost, base+"/redeem", "", as(alice))
	expectStatus(t, rr, http.StatusOK, "POST redeem")
	redeemed := data(t, rr)
	if redeemed["payout"] != shares {
		t.Errorf("redeem payout = %v, want %s", redeemed["payout"], shares)
	}
	if units, _ := redeemed["payout_units"].(string); units != shares[:len(shares)-12] {
		t.Errorf("payout_units = %v, want %s", redeemed["payout_units"], shares[:len(shares)-12])
	}
	rr = do(t, ts.h, http.MethodPost, base+"/redeem", "", as(bob))
	expectStatus(t, rr, http.StatusOK, "POST redeem loser")
	if data(t, rr)["payout"] != "0" {
		t.Errorf("losing redemption paid out: %s", rr.Body.String())
	}

	// Creator fees: 0.5 % of 15.
	rr = do(t, ts.h, http.MethodPost, base+"/claim-fees", "", as(bob))
	expectCode(t, rr, http.StatusForbidden, "ERR_NOT_CREATOR")
	rr = do(t, ts.h, http.MethodPost, base+"/claim-fees", "", as(creator))
	expectStatus(t, rr, http.StatusOK, "POST claim-fees")
	if got := data(t, rr)["amount"]; got != "75000000000000000" {
		t.Errorf("claimed fees = %v, want 75000000000000000", got)
	}

	rr = do(t, ts.h, http.MethodGet, base+"/trades", "", nil)
	expectStatus(t, rr, http.StatusOK, "GET trades")
	if items, _ := decodeBody(t, rr)["data"].([]interface{}); len(items) != 3 {
		t.Errorf("ledger has %d entries, want 3 (2 buys, 1 redeem)", len(items))
	}
	rr = do(t, ts.h, http.MethodGet, base+"/trades?limit=1", "", nil)
	expectStatus(t, rr, http.StatusOK, "GET trades?limit=1")
	body := decodeBody(t, rr)
	if items, _ := body["data"].([]interface{}); len(items) != 1 {
		t.Errorf("limit=1 returned %d entries", len(items))
	}
	if meta, _ := body["meta"].(map[string]interface{}); meta["total"] != float64(3) {
		t.Errorf("meta.total = %v, want 3", meta["total"])
	}
}

// ── Pagination ────────────────────────────────────────────────────────────────

func TestPagination_HugePageIsEmpty(t *testing.T) {
	ts := buildTestRouter(t)
	id := createMarket(t, ts)

	for _, path := range []string{
		"/api/markets?page=500000000000000000",
		"/api/markets?page=9223372036854775807&limit=100",
		"/api/markets/" + id + "/trades?page=500000000000000000&limit=20",
	} {
		rr := do(t, ts.h, http.MethodGet, path, "", nil)
		expectStatus(t, rr, http.StatusOK, "GET "+path)
		body := decodeBody(t, rr)
		if items, ok := body["data"].([]interface{}); !ok || len(items) != 0 {
			t.Errorf("GET %s: data = %v, want empty list", path, body["data"])
		}
	}

	rr := do(t, ts.h, http.MethodGet, "/api/markets?page=500000000000000000", "", nil)
	meta, _ := decodeBody(t, rr)["meta"].(map[string]interface{})
	if meta["total"] != float64(1) {
		t.Errorf("meta.total = %v, want 1", meta["total"])
	}
}

// ── Error envelope format ─────────────────────────────────────────────────────

func TestErrorEnvelope_HasRequiredFields(t *testing.T) {
	ts := buildTestRouter(t)
	rr := do(t, ts.h, http.MethodPost, "/api/markets", `{}`, as(creator))
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing field %q, got: %v", field, body)
		}
	}
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
}

// ── CORS headers ──────────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	ts := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/markets = %d, want 204 or 200", rr.Code)
	}
	allowHeaders := rr.Header().Get("Access-Control-Allow-Headers")
	if !strings.Contains(allowHeaders, "X-Account") {
		t.Errorf("Access-Control-Allow-Headers missing X-Account, got %q", allowHeaders)
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	ts := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Dev CORS origin = %q, want *", origin)
	}
}
