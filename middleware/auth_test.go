package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"indix/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func protectedHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		require.True(t, ok, "userID missing from context")
		assert.Equal(t, wantUserID, userID)
		w.WriteHeader(http.StatusOK)
	})
}

func signToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := session.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestRequireAuth(t *testing.T) {
	sessions := session.NewManager([]byte(testSecret), time.Hour)
	guard := RequireAuth(sessions)

	t.Run("valid cookie", func(t *testing.T) {
		token, expiresAt, err := sessions.Issue("user-1")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/notes/x", nil)
		req.AddCookie(session.Cookie(token, expiresAt))
		rr := httptest.NewRecorder()
		guard(protectedHandler(t, "user-1")).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("valid bearer header", func(t *testing.T) {
		token, _, err := sessions.Issue("user-2")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/notes/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		guard(protectedHandler(t, "user-2")).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	rejected := func(t *testing.T, mutate func(*http.Request)) {
		t.Helper()
		req := httptest.NewRequest("GET", "/api/notes/x", nil)
		mutate(req)
		rr := httptest.NewRecorder()
		guard(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not run")
		})).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())
	}

	t.Run("missing credential", func(t *testing.T) {
		rejected(t, func(*http.Request) {})
	})

	t.Run("garbled token", func(t *testing.T) {
		rejected(t, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "not.a.token"})
		})
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, "user-1", time.Now().Add(-time.Hour))
		rejected(t, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
		})
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "some-other-secret", "user-1", time.Now().Add(time.Hour))
		rejected(t, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
		})
	})

	t.Run("bearer prefix required", func(t *testing.T) {
		token, _, err := sessions.Issue("user-1")
		require.NoError(t, err)
		rejected(t, func(r *http.Request) {
			r.Header.Set("Authorization", token)
		})
	})
}
