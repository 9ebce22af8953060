// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelist/reelist/internal/auth"
	"github.com/reelist/reelist/internal/config"
	"github.com/reelist/reelist/internal/models"
	"github.com/reelist/reelist/internal/store"
	"github.com/reelist/reelist/internal/threat"
)

const (
	testPassword = "correct-horse-battery"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

type fixture struct {
	router  http.Handler
	manager *auth.Manager
	tokens  *auth.TokenService
	reviews *store.MemoryReviewStore
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			TokenTTL:          time.Hour,
			SessionTTL:        time.Hour,
			BcryptCost:        bcrypt.MinCost,
			MinPasswordLength: 10,
			RateLimitReqs:     1000,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
			SessionCookieName: "reelist_session",
			StoreTimeout:      time.Second,
		},
		Lockout: config.LockoutConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			Enabled:     true,
		},
		Threat: config.ThreatConfig{Enabled: true},
	}

	hasher, err := auth.NewPasswordHasher(cfg.Security.BcryptCost, cfg.Security.MinPasswordLength)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}

	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	users := store.NewMemoryUserStore()
	for _, u := range []*models.User{
		{Username: "admin", Email: "admin@example.com", PasswordHash: hash, IsAdmin: true},
		{Username: "cinephile", Email: "cinephile@example.com", PasswordHash: hash},
	} {
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("Create user: %v", err)
		}
	}

	tokens, err := auth.NewTokenService(&cfg.Security)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	guard := auth.NewGuard(auth.NewMemoryCounterStore(), &cfg.Lockout)
	manager := auth.NewManager(users, hasher, guard, auth.NewMemorySessionStore(),
		cfg.Security.SessionTTL, cfg.Security.StoreTimeout)

	reviews := store.NewMemoryReviewStore()
	filter := threat.NewFilter(cfg.Threat.Enabled)

	handler := NewHandler(manager, tokens, reviews, filter, &cfg.Security)
	router := NewRouter(handler, manager, tokens, cfg)

	return &fixture{
		router:  router,
		manager: manager,
		tokens:  tokens,
		reviews: reviews,
		cfg:     cfg,
	}
}

// do executes a JSON request against the router from the given client
// address.
func (f *fixture) do(t *testing.T, method, path, addr, body string, hdr map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = addr + ":54321"
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *Response {
	t.Helper()

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return &resp
}

func (f *fixture) obtainToken(t *testing.T, addr string) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/auth/token", addr,
		`{"username":"cinephile","password":"`+testPassword+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("token request status = %d body=%s", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("empty token in response")
	}
	return token
}

func (f *fixture) adminSession(t *testing.T, addr string) (*http.Cookie, string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/admin/login", addr,
		`{"username":"admin","password":"`+testPassword+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d body=%s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == f.cfg.Security.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("no session cookie set on login")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	csrfRec := f.do(t, http.MethodGet, "/admin/csrf", addr, "", nil, cookie)
	if csrfRec.Code != http.StatusOK {
		t.Fatalf("csrf fetch status = %d", csrfRec.Code)
	}
	resp := decodeEnvelope(t, csrfRec)
	data, _ := resp.Data.(map[string]interface{})
	csrf, _ := data["csrf_token"].(string)
	if csrf == "" {
		t.Fatal("empty csrf token")
	}

	return cookie, csrf
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/health", "198.51.100.1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTokenEndpoint(t *testing.T) {
	f := newFixture(t)

	token := f.obtainToken(t, "198.51.100.1")

	claims, err := f.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Username != "cinephile" {
		t.Errorf("Username = %q, want cinephile", claims.Username)
	}
}

func TestTokenEndpointAntiEnumeration(t *testing.T) {
	f := newFixture(t)

	unknown := f.do(t, http.MethodPost, "/api/v1/auth/token", "198.51.100.2",
		`{"username":"nobody","password":"some-password-x"}`, nil)
	wrong := f.do(t, http.MethodPost, "/api/v1/auth/token", "198.51.100.3",
		`{"username":"cinephile","password":"some-password-x"}`, nil)

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", unknown.Code, wrong.Code)
	}

	// Identical code and message for unknown user and wrong password.
	uResp := decodeEnvelope(t, unknown)
	wResp := decodeEnvelope(t, wrong)
	if uResp.Error == nil || wResp.Error == nil {
		t.Fatal("missing error payloads")
	}
	if uResp.Error.Code != wResp.Error.Code || uResp.Error.Message != wResp.Error.Message {
		t.Errorf("distinguishable failures: %+v vs %+v", uResp.Error, wResp.Error)
	}
}

func TestTokenEndpointLockout(t *testing.T) {
	f := newFixture(t)
	const addr = "203.0.113.50"

	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/token", addr,
			`{"username":"cinephile","password":"wrong-password-x"}`, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	// Correct credentials rejected while the address is locked.
	rec := f.do(t, http.MethodPost, "/api/v1/auth/token", addr,
		`{"username":"cinephile","password":"`+testPassword+`"}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("locked status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeLockedOut {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeLockedOut)
	}

	// Another address is unaffected.
	if tok := f.obtainToken(t, "198.51.100.9"); tok == "" {
		t.Error("unlocked address rejected")
	}
}

func TestTokenEndpointBlocksThreatInput(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/token", "198.51.100.1",
		`{"username":"admin' OR 1=1 --","password":"whatever-pass"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeThreatDetected {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeThreatDetected)
	}
}

func TestTokenEndpointValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"username":`},
		{"missing password", `{"username":"cinephile"}`},
		{"username too short", `{"username":"ab","password":"whatever-pass"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/auth/token", "198.51.100.1", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateReviewRequiresBearer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/reviews", "198.51.100.1",
		`{"movie_id":1,"title":"Great","body":"Loved it.","rating":9}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateAndListReviews(t *testing.T) {
	f := newFixture(t)
	token := f.obtainToken(t, "198.51.100.1")
	authz := map[string]string{"Authorization": "Bearer " + token}

	rec := f.do(t, http.MethodPost, "/api/v1/reviews", "198.51.100.1",
		`{"movie_id":1,"title":"A triumph","body":"I loved this film, 10/10","rating":10}`, authz)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	data, _ := resp.Data.(map[string]interface{})
	if data["status"] != string(models.ReviewPublished) {
		t.Errorf("status = %v, want published", data["status"])
	}
	if data["author"] != "cinephile" {
		t.Errorf("author = %v, want cinephile", data["author"])
	}

	list := f.do(t, http.MethodGet, "/api/v1/reviews", "198.51.100.1", "", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	listResp := decodeEnvelope(t, list)
	items, _ := listResp.Data.([]interface{})
	if len(items) != 1 {
		t.Errorf("listed %d reviews, want 1", len(items))
	}
	if listResp.Meta == nil || listResp.Meta.Pagination == nil || listResp.Meta.Pagination.Total != 1 {
		t.Errorf("pagination meta = %+v", listResp.Meta)
	}
}

func TestSuspectReviewIsFlaggedNotPublished(t *testing.T) {
	f := newFixture(t)
	token := f.obtainToken(t, "198.51.100.1")
	authz := map[string]string{"Authorization": "Bearer " + token}

	rec := f.do(t, http.MethodPost, "/api/v1/reviews", "198.51.100.1",
		`{"movie_id":1,"title":"hello","body":"<script>alert(1)</script>","rating":1}`, authz)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (flag policy accepts)", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	data, _ := resp.Data.(map[string]interface{})
	if data["status"] != string(models.ReviewFlagged) {
		t.Errorf("status = %v, want flagged", data["status"])
	}

	// Flagged reviews do not appear in the public listing.
	list := decodeEnvelope(t, f.do(t, http.MethodGet, "/api/v1/reviews", "198.51.100.1", "", nil))
	if items, _ := list.Data.([]interface{}); len(items) != 0 {
		t.Errorf("flagged review visible publicly: %d items", len(items))
	}
}

func TestModerationFlow(t *testing.T) {
	f := newFixture(t)
	token := f.obtainToken(t, "198.51.100.1")
	authz := map[string]string{"Authorization": "Bearer " + token}

	rec := f.do(t, http.MethodPost, "/api/v1/reviews", "198.51.100.1",
		`{"movie_id":1,"title":"hi","body":"x' or 'a'='a","rating":2}`, authz)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	created := decodeEnvelope(t, rec)
	data, _ := created.Data.(map[string]interface{})
	reviewID, _ := data["id"].(string)
	if reviewID == "" {
		t.Fatal("missing review id")
	}

	cookie, csrf := f.adminSession(t, "198.51.100.2")
	csrfHdr := map[string]string{"X-CSRF-Token": csrf}

	// The flagged queue shows the review.
	queue := f.do(t, http.MethodGet, "/admin/reviews/flagged", "198.51.100.2", "", nil, cookie)
	if queue.Code != http.StatusOK {
		t.Fatalf("flagged queue status = %d body=%s", queue.Code, queue.Body.String())
	}
	queueResp := decodeEnvelope(t, queue)
	if items, _ := queueResp.Data.([]interface{}); len(items) != 1 {
		t.Fatalf("flagged queue has %d items, want 1", len(items))
	}

	// Approval requires the CSRF token.
	noCSRF := f.do(t, http.MethodPost, "/admin/reviews/"+reviewID+"/approve", "198.51.100.2", "", nil, cookie)
	if noCSRF.Code != http.StatusForbidden {
		t.Fatalf("approve without csrf status = %d, want 403", noCSRF.Code)
	}

	approve := f.do(t, http.MethodPost, "/admin/reviews/"+reviewID+"/approve", "198.51.100.2", "", csrfHdr, cookie)
	if approve.Code != http.StatusOK {
		t.Fatalf("approve status = %d body=%s", approve.Code, approve.Body.String())
	}

	// Approved review is published.
	list := decodeEnvelope(t, f.do(t, http.MethodGet, "/api/v1/reviews", "198.51.100.1", "", nil))
	if items, _ := list.Data.([]interface{}); len(items) != 1 {
		t.Errorf("approved review not public: %d items", len(items))
	}

	// Rejecting an unknown review 404s.
	missing := f.do(t, http.MethodPost, "/admin/reviews/no-such-id/reject", "198.51.100.2", "", csrfHdr, cookie)
	if missing.Code != http.StatusNotFound {
		t.Errorf("reject missing status = %d, want 404", missing.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/admin/csrf", "/admin/reviews/flagged"} {
		rec := f.do(t, http.MethodGet, path, "198.51.100.1", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without session status = %d, want 401", path, rec.Code)
		}
	}
}

func TestAdminLoginLockoutLeavesFreshLoginUntouched(t *testing.T) {
	f := newFixture(t)
	const addr = "203.0.113.60"

	// A clean login must not touch the failure counter: a subsequent wrong
	// attempt is failure number one, so four more stay below the threshold.
	f.adminSession(t, addr)

	for i := 0; i < 4; i++ {
		rec := f.do(t, http.MethodPost, "/admin/login", addr,
			`{"username":"admin","password":"wrong-password-x"}`, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	// Still below the threshold.
	rec := f.do(t, http.MethodPost, "/admin/login", addr,
		`{"username":"admin","password":"`+testPassword+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (counter should be at 4)", rec.Code)
	}
}

func TestAdminLogout(t *testing.T) {
	f := newFixture(t)
	cookie, csrf := f.adminSession(t, "198.51.100.2")

	rec := f.do(t, http.MethodPost, "/admin/logout", "198.51.100.2", "",
		map[string]string{"X-CSRF-Token": csrf}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d body=%s", rec.Code, rec.Body.String())
	}

	// The session and its CSRF token are gone.
	after := f.do(t, http.MethodGet, "/admin/csrf", "198.51.100.2", "", nil, cookie)
	if after.Code != http.StatusUnauthorized {
		t.Errorf("csrf after logout status = %d, want 401", after.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "198.51.100.1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
