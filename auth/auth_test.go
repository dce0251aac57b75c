// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
)

func TestValidateAdminKey(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		expected string
		wantErr  bool
	}{
		{"matching key", "admin-key", "admin-key", false},
		{"wrong key", "nope", "admin-key", true},
		{"empty key", "", "admin-key", true},
		{"empty key against empty config", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.provided, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAdminKey) {
				t.Errorf("expected ErrInvalidAdminKey, got %v", err)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Error("HashPassword() returned the plain password")
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword() with right password error = %v", err)
	}
	if err := CheckPassword(hash, "battery staple"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword() with wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	user := models.User{ID: "user-1", Username: "alice"}

	token, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.ID != user.ID || got.Username != user.Username {
		t.Errorf("Parse() = %+v, want %+v", got, user)
	}
}

func TestSessionRejectsTampering(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	other := NewSessionManager("other-secret", time.Hour)

	token, err := other.Issue(models.User{ID: "user-1", Username: "mallory"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
	if _, err := m.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	m := NewSessionManager("test-secret", time.Minute)
	issuedAt := time.Now()
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(models.User{ID: "user-1", Username: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	w := httptest.NewRecorder()

	if err := m.Login(w, models.User{ID: "user-1", Username: "alice"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("expected one %s cookie, got %v", SessionCookie, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	user, err := m.Authenticate(req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("Authenticate() user id = %q, want user-1", user.ID)
	}
}

func TestAuthenticateWithoutCookie(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	req := httptest.NewRequest("GET", "/", nil)

	if _, err := m.Authenticate(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

type accountMap map[string]models.User

func (a accountMap) GetUserByID(ctx context.Context, id string) (models.User, error) {
	u, ok := a[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func TestAuthenticateChecksAccount(t *testing.T) {
	accounts := accountMap{"user-1": {ID: "user-1", Username: "alice", PasswordHash: "hash"}}
	m := NewSessionManager("test-secret", time.Hour).WithAccounts(accounts)

	tests := []struct {
		name    string
		user    models.User
		wantErr error
	}{
		{"existing account", models.User{ID: "user-1", Username: "alice"}, nil},
		{"removed account", models.User{ID: "ghost", Username: "ghost"}, ErrNoSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.Issue(tt.user)
			if err != nil {
				t.Fatal(err)
			}
			req := httptest.NewRequest("GET", "/", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})

			user, err := m.Authenticate(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if user.ID != "" {
					t.Errorf("expected no identity, got %+v", user)
				}
				return
			}
			if user.ID != tt.user.ID || user.PasswordHash != "" {
				t.Errorf("unexpected identity %+v", user)
			}
		})
	}
}

func TestLogoutExpiresCookie(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	w := httptest.NewRecorder()

	m.Logout(w)

	header := w.Header().Get("Set-Cookie")
	if !strings.Contains(header, SessionCookie+"=") || !strings.Contains(header, "Max-Age=0") {
		t.Errorf("expected expiring session cookie, got %q", header)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Logout should not write a status, got %d", w.Code)
	}
}
