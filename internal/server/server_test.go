package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-ledger/internal/award"
	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/leaderboard"
	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/auth"
	"loyalty-ledger/internal/pkg/metrics"
	"loyalty-ledger/internal/ranking"
	"loyalty-ledger/internal/repository"
	"loyalty-ledger/internal/service"
)

type testServer struct {
	srv    *httptest.Server
	store  *repository.MemoryStore
	tokens *auth.Service
}

func newTestServer(t *testing.T, mutate func(*config.Config, *Dependencies)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{AdminSubjects: []string{"listed-admin"}},
	}
	store := repository.NewMemoryStore()
	tokens := auth.NewService("test-secret", "loyalty-ledger", time.Hour)

	rules, err := award.NewRegistry(award.DefaultRules(config.AwardsConfig{
		ProfileCompletion: 5,
		BCVerification:    50,
		DailyLogin:        1,
	})...)
	require.NoError(t, err)
	board, err := leaderboard.NewBoard(leaderboard.DefaultSlots(), leaderboard.DefaultRoster(), 40, 111)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	levels := ranking.DefaultTable()
	ledger := service.NewLedgerService(store, config.LedgerConfig{MaxAttempts: 3}, metrics.NewLedger(reg))

	deps := &Dependencies{
		Config:   cfg,
		Tokens:   tokens,
		Accounts: service.NewAccountService(store),
		Ledger:   ledger,
		Awards:   service.NewAwardService(ledger, store, rules, levels, nil, nil, nil),
		Ranking:  service.NewRankingService(store, levels, board),
		Gatherer: reg,
		Metrics:  metrics.NewHTTP(reg),
	}
	if mutate != nil {
		mutate(cfg, deps)
	}

	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, tokens: tokens}
}

func (s *testServer) token(t *testing.T, subject string, admin bool) string {
	t.Helper()
	tok, err := s.tokens.Issue(subject, "User "+subject, subject+"@example.com", admin)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	resp, out := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	// Routed requests show up under their template.
	s.do(t, http.MethodGet, "/api/ranking/levels", "", "")

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/metrics", nil)
	require.NoError(t, err)
	mresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	require.Equal(t, http.StatusOK, mresp.StatusCode)
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `loyalty_http_requests_total{method="GET",route="/api/ranking/levels",status="200"}`)
}

func TestHealthz_StorageDown(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, d *Dependencies) {
		d.Ping = func(context.Context) error { return errors.New("connection refused") }
	})
	resp, _ := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/me", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other := auth.NewService("other-secret", "loyalty-ledger", time.Hour)
	forged, err := other.Issue("sub-1", "", "", true)
	require.NoError(t, err)
	resp, _ = s.do(t, http.MethodGet, "/api/me", forged, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, out := s.do(t, http.MethodGet, "/api/me", s.token(t, "sub-1", false), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := out["data"].(map[string]any)
	account := data["account"].(map[string]any)
	assert.Equal(t, "User sub-1", account["display_name"])
	assert.NotContains(t, account, "external_id")

	acct, err := s.store.GetByExternalID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, float64(acct.ID), account["id"])
}

func TestAdminGate_EmptySecretAdmitsNobody(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, d *Dependencies) {
		d.Tokens = auth.NewService("", "loyalty-ledger", time.Hour)
	})

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			Issuer:    "loyalty-ledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Admin: true,
	})
	signed, err := forged.SignedString([]byte{})
	require.NoError(t, err)

	resp, _ := s.do(t, http.MethodPost, "/api/admin/accounts/1/grant", signed, `{"amount": 1000}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_, err = s.store.GetByExternalID(context.Background(), "attacker")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestAwardFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token(t, "sub-1", false)

	resp, out := s.do(t, http.MethodPost, "/api/me/profile-completed", tok, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(5), out["data"].(map[string]any)["loyalty_points"])

	resp, out = s.do(t, http.MethodPost, "/api/me/profile-completed", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["data"].(map[string]any)["duplicate"])

	resp, _ = s.do(t, http.MethodPost, "/api/me/daily-login", tok, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out = s.do(t, http.MethodGet, "/api/me/history", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["data"], 2)
}

func TestAdminGate(t *testing.T) {
	s := newTestServer(t, nil)
	member := s.token(t, "sub-1", false)

	// Create the target account.
	resp, _ := s.do(t, http.MethodGet, "/api/me", member, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	target, err := s.store.GetByExternalID(context.Background(), "sub-1")
	require.NoError(t, err)
	path := fmt.Sprintf("/api/admin/accounts/%d/grant", target.ID)

	resp, _ = s.do(t, http.MethodPost, path, member, `{"amount": 10}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, path, "", `{"amount": 10}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Admin by token flag.
	resp, _ = s.do(t, http.MethodPost, path, s.token(t, "flagged-admin", true), `{"amount": 10}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Admin by configured subject.
	resp, _ = s.do(t, http.MethodPost, path, s.token(t, "listed-admin", false), `{"amount": 10}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := s.do(t, http.MethodGet, "/api/admin/audit", s.token(t, "listed-admin", false), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["data"].(map[string]any)["in_sync"])

	got, err := s.store.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.LoyaltyPoints)
}

func TestLeaderboardEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	acct, err := s.store.Create(context.Background(), "sub-1", "Ayu", "")
	require.NoError(t, err)
	_, _, err = s.store.Apply(context.Background(), model.Mutation{
		AccountID: acct.ID, Delta: 30, Reason: "seed", Kind: model.KindSystem,
	})
	require.NoError(t, err)

	resp, out := s.do(t, http.MethodGet, "/api/leaderboard", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := out["data"].([]any)
	require.Len(t, board, 111)
	first := board[0].(map[string]any)
	assert.Equal(t, "account", first["kind"])
	assert.Equal(t, "placeholder", board[40].(map[string]any)["kind"])
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, _ *Dependencies) {
		cfg.Server.RateLimit = 0.001
		cfg.Server.RateBurst = 2
	})

	for i := 0; i < 2; i++ {
		resp, _ := s.do(t, http.MethodGet, "/healthz", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, _ *Dependencies) {
		cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	})

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/api/ranking/levels", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, _ *Dependencies) {
		cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	})

	for _, path := range []string{"/api/me", "/api/me/daily-login", "/api/leaderboard", "/api/admin/accounts/1/grant"} {
		req, err := http.NewRequest(http.MethodOptions, s.srv.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode, path)
		assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization", path)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	assert.True(t, l.GetLimiter("10.0.0.1").Allow())
	assert.False(t, l.GetLimiter("10.0.0.1").Allow())
	assert.True(t, l.GetLimiter("10.0.0.2").Allow())
}

func TestRequestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	h := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(requestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Request served", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}
