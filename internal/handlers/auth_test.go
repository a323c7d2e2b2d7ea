package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"projectx/internal/auth"
	"projectx/internal/cache"
	"projectx/internal/docstore"
	"projectx/internal/middleware"
	"projectx/internal/models"
	"projectx/internal/users"
)

type testEnv struct {
	router  *gin.Engine
	userSvc *users.Service
	authSvc *auth.Service
	issuer  *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := docstore.NewMemory()
	userSvc := users.NewService(store, cache.New[*models.User](1<<20))

	accessKey, err := auth.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate access key: %v", err)
	}
	refreshKey, err := auth.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate refresh key: %v", err)
	}
	issuer := auth.NewTokenIssuer("http://localhost:8080", accessKey, refreshKey, 0, 0)

	creds := auth.NewCredentialStore(store, cache.New[*models.UserCredential](1<<20), auth.MinHashCost, time.Minute)
	ledger := auth.NewRefreshTokenLedger(store)
	authSvc := auth.NewService(creds, issuer, ledger, userSvc)

	router := gin.New()
	api := router.Group("/api/v1")
	registration := api.Group("/registration")
	{
		registration.POST("/register", Register(userSvc, authSvc))
		registration.GET("/validate", ValidateEmail(userSvc))
	}
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", Login(authSvc))
		authGroup.POST("/refresh", Refresh(authSvc))
		authGroup.GET("/validate", middleware.AuthGuard(issuer, ""), Validate())
	}
	api.GET("/users/:id", middleware.AuthGuard(issuer, ""), GetUser(userSvc))

	return &testEnv{router: router, userSvc: userSvc, authSvc: authSvc, issuer: issuer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T, username, password string) RegisterResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/registration/register", RegisterRequest{
		Username: username,
		Password: password,
		Email:    username + "@example.com",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", w.Code, w.Body.String())
	}
	var resp RegisterResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "alice", "correct-horse-battery")
	if resp.UserID == "" {
		t.Fatal("expected a user id")
	}
	if resp.Tokens == nil || resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected a full token pair, got %+v", resp.Tokens)
	}

	// Same username again conflicts.
	w := env.do(t, http.MethodPost, "/api/v1/registration/register", RegisterRequest{
		Username: "alice",
		Password: "correct-horse-battery",
		Email:    "other@example.com",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)

	cases := []RegisterRequest{
		{Username: "alice", Password: "short", Email: "a@example.com"},
		{Username: "alice", Password: "long-enough-pass", Email: "not-an-email"},
		{Password: "long-enough-pass", Email: "a@example.com"},
	}
	for i, req := range cases {
		w := env.do(t, http.MethodPost, "/api/v1/registration/register", req, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, w.Code, w.Body.String())
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "correct-horse-battery")

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Username: "alice",
		Password: "correct-horse-battery",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(w.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.ExpiresIn == 0 {
		t.Fatalf("incomplete token pair: %+v", pair)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "correct-horse-battery")

	wrongPassword := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, nil)
	unknownUser := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Username: "mallory",
		Password: "correct-horse-battery",
	}, nil)

	for _, w := range []*httptest.ResponseRecorder{wrongPassword, unknownUser} {
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
		}
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "alice", "correct-horse-battery")

	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: resp.Tokens.RefreshToken,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// The consumed token no longer works.
	replay := env.do(t, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: resp.Tokens.RefreshToken,
	}, nil)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on replay, got %d: %s", replay.Code, replay.Body.String())
	}

	garbage := env.do(t, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: "not.a.jwt",
	}, nil)
	if garbage.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on garbage, got %d: %s", garbage.Code, garbage.Body.String())
	}
}

func TestValidateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "alice", "correct-horse-battery")

	w := env.do(t, http.MethodGet, "/api/v1/auth/validate", nil, map[string]string{
		"Authorization": "Bearer " + resp.Tokens.AccessToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var token models.AccessToken
	if err := json.Unmarshal(w.Body.Bytes(), &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.UserID != resp.UserID || token.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", token)
	}

	missing := env.do(t, http.MethodGet, "/api/v1/auth/validate", nil, nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", missing.Code)
	}

	malformed := env.do(t, http.MethodGet, "/api/v1/auth/validate", nil, map[string]string{
		"Authorization": "Bearer nope",
	})
	if malformed.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", malformed.Code)
	}
}

func TestGetUserAuthorization(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "correct-horse-battery")
	bob := env.register(t, "bob", "correct-horse-battery")

	// Reading yourself works.
	self := env.do(t, http.MethodGet, "/api/v1/users/"+alice.UserID, nil, map[string]string{
		"Authorization": "Bearer " + alice.Tokens.AccessToken,
	})
	if self.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", self.Code, self.Body.String())
	}

	// A patient reading someone else is forbidden.
	other := env.do(t, http.MethodGet, "/api/v1/users/"+bob.UserID, nil, map[string]string{
		"Authorization": "Bearer " + alice.Tokens.AccessToken,
	})
	if other.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", other.Code, other.Body.String())
	}
}

func TestValidateEmailEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "alice", "correct-horse-battery")

	w := env.do(t, http.MethodGet, "/api/v1/registration/validate?userId="+resp.UserID, nil, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	user, err := env.userSvc.UserByID(context.Background(), resp.UserID)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user == nil || !user.EmailVerified {
		t.Fatal("expected email to be verified")
	}

	unknown := env.do(t, http.MethodGet, "/api/v1/registration/validate?userId=ghost", nil, nil)
	if unknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown user, got %d", unknown.Code)
	}
}
