package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/database"
	"github.com/homesphere/homesphere/internal/middleware"
	"github.com/homesphere/homesphere/internal/model"
	"github.com/homesphere/homesphere/internal/store"
)

type authFixture struct {
	users    *store.UserStore
	families *store.FamilyStore
	tokens   *auth.TokenService
	user     *model.User
	handler  http.Handler
	seen     *auth.AuthContext
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &authFixture{
		users:    store.NewUserStore(db),
		families: store.NewFamilyStore(db),
		tokens:   auth.NewTokenService([]byte("secret"), time.Hour, nil),
		seen:     &auth.AuthContext{},
	}

	f.user, err = f.users.Create("alice", "alice@example.com", "hash", "tok", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, _ := auth.FromContext(r.Context())
		*f.seen = ac
		w.WriteHeader(http.StatusOK)
	})
	f.handler = middleware.RequireAuth(f.tokens, f.users, f.families)(inner)
	return f
}

func (f *authFixture) do(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthMissingToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do("")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no token provided") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do("garbage")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid token") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	f := newAuthFixture(t)

	token, err := f.tokens.Issue(f.user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := f.do(token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if f.seen.UserID != f.user.ID || f.seen.Username != "alice" {
		t.Errorf("context = %+v", f.seen)
	}
	if f.seen.FamilyID != 0 {
		t.Errorf("family ID = %d, want 0", f.seen.FamilyID)
	}
}

func TestRequireAuthAttachesMembership(t *testing.T) {
	f := newAuthFixture(t)

	family, err := f.families.Create("Smiths", "abcd1234", f.user.ID)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	token, _ := f.tokens.Issue(f.user)
	rec := f.do(token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.seen.FamilyID != family.ID || f.seen.FamilyRole != model.RoleAdmin {
		t.Errorf("context = %+v", f.seen)
	}
}

func TestRequireAuthBlacklistedToken(t *testing.T) {
	f := newAuthFixture(t)

	token, _ := f.tokens.Issue(f.user)
	f.tokens.Blacklist(token)

	rec := f.do(token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Token has been invalidated") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireAuthSweptAfterPasswordReset(t *testing.T) {
	f := newAuthFixture(t)

	token, _ := f.tokens.Issue(f.user)

	// The issued-at is truncated to the second, so any later reset cutoff
	// invalidates the token.
	if err := f.users.ResetPassword(f.user.ID, "newhash"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	rec := f.do(token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Token has been invalidated") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
