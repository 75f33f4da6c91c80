package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/log"
)

type ctxKey int

const ownerKey ctxKey = iota

// OwnerID returns the id of the authenticated user.
func OwnerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerKey).(string)
	return id, ok && id != ""
}

// WithOwnerID is used by tests and by handlers acting on behalf of a user.
func WithOwnerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ownerKey, id)
}

// Authenticated rejects requests without a valid bearer token and records
// the token's user id in the request context.
func Authenticated(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), owner).Handler(next)
	}
}

// OptionalAuth authenticates requests that carry credentials and lets
// anonymous ones through untouched.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		auth := Authenticated(secret)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth.ServeHTTP(w, r)
		})
	}
}

func owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
		uid := claims[httpx.ClaimUserID]
		if uid == "" {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims.uid")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), uid)))
	})
}

// CookieAuth lets browser clients authenticate with the access_token cookie.
// When the access token is gone or rejected, the refresh_token cookie is
// exchanged for a new pair and the cookies are renewed before the request is
// served, whatever its method. Requests carrying an Authorization header are
// left alone.
func CookieAuth(bearerServer *oauth.BearerServer, secret string) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(secret, nil)
	accepted := func(r *http.Request) bool {
		ok := false
		authorize(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			ok = true
		})).ServeHTTP(httpx.NewResponseBuffer(), r)
		return ok
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie("access_token")
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				httpx.LogInternalError(w, "cookie_auth.access_token", err)
				return
			}
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				if accepted(r) {
					h.ServeHTTP(w, r)
					return
				}
				log.Debug("cookie_auth.access_token: rejected")
				r.Header.Del("authorization")
			}

			refreshToken, err := r.Cookie("refresh_token")
			if err != nil {
				h.ServeHTTP(w, r)
				return
			}

			resp, err := httpx.Grant(bearerServer, url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {refreshToken.Value},
			})
			if err != nil {
				httpx.LogInternalError(w, "cookie_auth.refresh", err)
				return
			}
			if resp.Status() != http.StatusOK {
				log.Debugf("cookie_auth.refresh: status %d", resp.Status())
				httpx.ClearTokenCookies(w)
				h.ServeHTTP(w, r)
				return
			}

			tokens, err := httpx.ParseTokens(resp)
			if err != nil {
				httpx.LogInternalError(w, "cookie_auth.refresh.parse", err)
				return
			}
			httpx.SetTokenCookies(w, tokens)

			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}
