package httpx

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/oauth"
	"github.com/goccy/go-json"

	"github.com/joehsn/formify/config"
)

// ResponseBuffer holds a response in memory so a handler's outcome can be
// inspected before anything reaches the client.
type ResponseBuffer struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func NewResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{header: http.Header{}}
}

func (b *ResponseBuffer) Header() http.Header { return b.header }

func (b *ResponseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *ResponseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

// Status returns the recorded status, 200 when the handler wrote a body
// without an explicit status.
func (b *ResponseBuffer) Status() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *ResponseBuffer) Body() []byte { return b.body.Bytes() }

// Flush copies the buffered response to w.
func (b *ResponseBuffer) Flush(w http.ResponseWriter) error {
	header := w.Header()
	for key, value := range b.header {
		header[key] = value
	}
	w.WriteHeader(b.Status())
	_, err := w.Write(b.body.Bytes())
	return err
}

// Tokens is the token endpoint payload.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db), nil)
}

// Grant runs a token grant against the bearer server and returns the raw
// response. form carries grant_type and the grant's parameters.
func Grant(bs *oauth.BearerServer, form url.Values) (*ResponseBuffer, error) {
	body := form.Encode()
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	buf := NewResponseBuffer()
	bs.UserCredentials(buf, req)
	return buf, nil
}

// ParseTokens decodes a successful grant.
func ParseTokens(buf *ResponseBuffer) (Tokens, error) {
	var t Tokens
	err := json.Unmarshal(buf.Body(), &t)
	return t, err
}

// SetTokenCookies hands the tokens to browser clients.
func SetTokenCookies(w http.ResponseWriter, t Tokens) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "access_token",
		Value:    t.AccessToken,
		MaxAge:   int(t.ExpiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "refresh_token",
		Value:    t.RefreshToken,
		MaxAge:   int(RefreshTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{"access_token", "refresh_token"} {
		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
