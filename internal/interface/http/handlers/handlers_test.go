package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuth_IssueAndParse(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	auth := NewTokenAuth("secret", time.Hour)
	auth.SetClock(func() time.Time { return now })

	token, expiresAt, err := auth.Issue("p-1", "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "p-1", claims.Subject)
	assert.Equal(t, "asha@example.com", claims.Email)

	now = now.Add(2 * time.Hour)
	_, err = auth.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenAuth_RejectsForeignTokens(t *testing.T) {
	auth := NewTokenAuth("secret", time.Hour)
	other := NewTokenAuth("other-secret", time.Hour)

	token, _, err := other.Issue("p-1", "a@example.com")
	require.NoError(t, err)
	_, err = auth.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "p-1", Issuer: "gd-coach"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenAuth_Middleware(t *testing.T) {
	auth := NewTokenAuth("secret", time.Hour)
	token, _, err := auth.Issue("p-1", "a@example.com")
	require.NoError(t, err)

	var seen string
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seen = c.Subject
	}))

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"unauthorized"`)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p-1", seen)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	status := c.Check(context.Background())
	assert.True(t, status.Healthy)

	c.AddCheck("store", NewStoreCheck(pinger{}))
	c.AddCheck("relay", NewStoreCheck(pinger{err: errors.New("connection refused")}))
	c.AddCheck("writer", NewFuncCheck(func() bool { return false }, "queue stuck"))

	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: relay, writer", status.Message)
	assert.True(t, status.Checks["store"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["relay"].Message)
	assert.Equal(t, "queue stuck", status.Checks["writer"].Message)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"), SecurityHeadersMiddleware)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
