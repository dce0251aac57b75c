// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
)

// SessionCookie is the name of the cookie carrying the signed session token
const SessionCookie = "ku_polls_session"

var (
	ErrInvalidAdminKey    = errors.New("invalid admin key")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrNoSession          = errors.New("no session")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidateAdminKey checks the provided admin key against the configured one
func ValidateAdminKey(provided, expected string) error {
	if provided == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// HashPassword returns a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a stored bcrypt hash with a candidate password
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HMAC-signed session tokens.
// The token is the only session state; the user id in "sub" is the stable
// identity votes are recorded against.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	accounts Accounts
}

// Accounts looks up the account a session token was issued for
type Accounts interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithAccounts makes Authenticate reject tokens whose account no longer
// exists, e.g. after the account was removed or the database was reset.
func (m *SessionManager) WithAccounts(accounts Accounts) *SessionManager {
	m.accounts = accounts
	return m
}

// Issue signs a session token for the user
func (m *SessionManager) Issue(user models.User) (string, error) {
	now := m.now()
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a session token and returns the identity it carries
func (m *SessionManager) Parse(tokenString string) (models.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return models.User{}, ErrInvalidToken
	}
	return models.User{ID: claims.Subject, Username: claims.Username}, nil
}

// Authenticate resolves the caller of r from the session cookie
func (m *SessionManager) Authenticate(r *http.Request) (models.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return models.User{}, ErrNoSession
	}
	user, err := m.Parse(cookie.Value)
	if err != nil || m.accounts == nil {
		return user, err
	}

	account, err := m.accounts.GetUserByID(r.Context(), user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrNoSession
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load session account: %w", err)
	}
	return models.User{ID: account.ID, Username: account.Username, CreatedAt: account.CreatedAt}, nil
}

// Login issues a token for the user and stores it in the session cookie
func (m *SessionManager) Login(w http.ResponseWriter, user models.User) error {
	token, err := m.Issue(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout expires the session cookie
func (m *SessionManager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
