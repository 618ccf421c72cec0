package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kinternationals/estimator/internal/store"
)

const (
	sessionCookieName = "estimator_session"
	sessionTTL        = 30 * 24 * time.Hour
)

type contextKey string

const userIDKey contextKey = "userID"

type authService struct {
	store         *store.Store
	sessionSecret []byte
	secureCookie  bool
	now           func() time.Time
}

func newAuthService(s *store.Store, sessionSecret string, secureCookie bool) *authService {
	return &authService{
		store:         s,
		sessionSecret: []byte(sessionSecret),
		secureCookie:  secureCookie,
		now:           time.Now,
	}
}

// validateCredentials returns the matching user, or ok=false for an unknown email or wrong password.
func (a *authService) validateCredentials(ctx context.Context, email, password string) (store.User, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return store.User{}, false, nil
	}

	u, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, false, nil
	}
	if err != nil {
		return store.User{}, false, fmt.Errorf("query user credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return store.User{}, false, nil
		}
		return store.User{}, false, fmt.Errorf("compare password hash: %w", err)
	}
	return u, true, nil
}

// createSessionValue signs "<userID>|<expiry unix>".
func (a *authService) createSessionValue(userID string) string {
	expires := a.now().Add(sessionTTL).Unix()
	raw := userID + "|" + strconv.FormatInt(expires, 10)
	payload := base64.RawURLEncoding.EncodeToString([]byte(raw))
	return payload + "." + a.sign(payload)
}

func (a *authService) sign(payload string) string {
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *authService) verifySessionValue(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(a.sign(payload))
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	userID, expiry, ok := strings.Cut(string(decoded), "|")
	if !ok || userID == "" {
		return "", false
	}
	expires, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil || a.now().Unix() >= expires {
		return "", false
	}

	return userID, true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(userID),
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionUserID returns the user id carried by a valid session cookie.
func (a *authService) sessionUserID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	return a.verifySessionValue(cookie.Value)
}

func isAuthenticated(r *http.Request, auth *authService) bool {
	_, ok := auth.sessionUserID(r)
	return ok
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		userID, ok := s.auth.sessionUserID(r)
		if !ok {
			if wantsJSON(r) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func currentUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
