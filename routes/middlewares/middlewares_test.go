package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRateLimitPerClient(t *testing.T) {
	h := RateLimit(0.001, 2)(http.HandlerFunc(ok))

	call := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}

func TestOwnerFromClaims(t *testing.T) {
	var seen string
	h := owner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OwnerID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), oauth.ClaimsContext, map[string]string{"uid": "u-1"}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "u-1", seen)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	var authed bool
	h := OptionalAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authed = OwnerID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, authed)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("authorization", "Bearer nonsense")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
