package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joehsn/formify/app"
	"github.com/joehsn/formify/config"
	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/model"
	"github.com/joehsn/formify/testhelpers"
)

type fixture struct {
	t   *testing.T
	app app.App
	h   http.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "localhost:8080"
	cfg.TokenSecret = "test-secret"
	cfg.SubmitRate = 1000
	cfg.SubmitBurst = 1000

	a := app.New(testhelpers.NewTestDB(t), cfg)
	return &fixture{t: t, app: a, h: Wire(a)}
}

type request struct {
	method string
	path   string
	body   any
	token  string
	header map[string]string
}

func (f *fixture) do(req request) *httptest.ResponseRecorder {
	f.t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		require.NoError(f.t, json.NewEncoder(&body).Encode(req.body))
	}
	r := httptest.NewRequest(req.method, req.path, &body)
	r.Header.Set("content-type", "application/json")
	if req.token != "" {
		r.Header.Set("authorization", "Bearer "+req.token)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (f *fixture) login(email, password string) httpx.Tokens {
	f.t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	r.SetBasicAuth(email, password)
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	return decode[httpx.Tokens](f.t, w)
}

// user registers an account through the API and logs in.
func (f *fixture) user(email string) string {
	f.t.Helper()
	w := f.do(request{method: http.MethodPost, path: "/api/users/register", body: map[string]string{
		"fullname": "Form Owner",
		"email":    email,
		"password": "secret123",
	}})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return f.login(email, "secret123").AccessToken
}

func surveyForm(status model.Status) map[string]any {
	return map[string]any{
		"title":       "  Conference survey ",
		"description": "Tell us about it",
		"status":      status,
		"fields": []map[string]any{
			{"id": "name", "label": "Your name", "type": "text", "required": true, "validations": map[string]any{"maxLength": 20}},
			{"id": "track", "label": "Track", "type": "radio", "required": true, "options": []string{"Go", "Rust"}},
			{"id": "topics", "label": "Topics", "type": "checkbox", "options": []string{"a", "b", "c"}},
			{"id": "when", "label": "Day", "type": "date"},
		},
	}
}

func (f *fixture) createForm(token string, body map[string]any) savedForm {
	f.t.Helper()
	w := f.do(request{method: http.MethodPost, path: "/api/forms", body: body, token: token})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[savedForm](f.t, w)
}

func TestFormLifecycle(t *testing.T) {
	f := setup(t)
	token := f.user("owner@example.com")

	saved := f.createForm(token, surveyForm(model.StatusDraft))
	assert.True(t, model.IsID(saved.ID))
	assert.Equal(t, 1, saved.Revision)
	path := "/api/forms/" + saved.ID

	// drafts are private
	w := f.do(request{method: http.MethodGet, path: path})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(request{method: http.MethodGet, path: path, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	form := decode[model.Form](t, w)
	assert.Equal(t, "Conference survey", form.Title)
	assert.NotEmpty(t, form.OwnerID)
	require.Len(t, form.Fields, 4)
	assert.Equal(t, "track", form.Fields[1].ID)

	update := surveyForm(model.StatusPublished)
	update["revision"] = 1
	w = f.do(request{method: http.MethodPut, path: path, body: update, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[savedForm](t, w).Revision)

	// stale revision
	w = f.do(request{method: http.MethodPut, path: path, body: update, token: token})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httpx.CategoryConflict, decode[httpx.ErrorBody](t, w).Category)

	w = f.do(request{method: http.MethodGet, path: path})
	require.Equal(t, http.StatusOK, w.Code)
	public := decode[model.Form](t, w)
	assert.Empty(t, public.OwnerID)
	assert.Equal(t, model.StatusPublished, public.Status)

	w = f.do(request{method: http.MethodGet, path: "/api/forms", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct{ Forms []model.FormSummary }](t, w)
	require.Len(t, list.Forms, 1)
	assert.Equal(t, 4, list.Forms[0].FieldCount)
	assert.Equal(t, 2, list.Forms[0].Revision)

	w = f.do(request{method: http.MethodDelete, path: path, token: token})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(request{method: http.MethodGet, path: path, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFormsAreScopedToOwner(t *testing.T) {
	f := setup(t)
	alice := f.user("alice@example.com")
	bob := f.user("bob@example.com")

	saved := f.createForm(alice, surveyForm(model.StatusDraft))
	path := "/api/forms/" + saved.ID

	w := f.do(request{method: http.MethodGet, path: path, token: bob})
	assert.Equal(t, http.StatusNotFound, w.Code)

	update := surveyForm(model.StatusDraft)
	update["revision"] = 1
	w = f.do(request{method: http.MethodPut, path: path, body: update, token: bob})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(request{method: http.MethodDelete, path: path, token: bob})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(request{method: http.MethodGet, path: "/api/forms", token: bob})
	assert.Empty(t, decode[struct{ Forms []model.FormSummary }](t, w).Forms)
}

func TestCreateFormValidation(t *testing.T) {
	f := setup(t)
	token := f.user("owner@example.com")

	tests := []struct {
		name   string
		mutate func(body map[string]any)
		fields []string
	}{
		{
			name:   "blank title",
			mutate: func(body map[string]any) { body["title"] = "   " },
			fields: []string{"title"},
		},
		{
			name:   "no fields",
			mutate: func(body map[string]any) { body["fields"] = []any{} },
			fields: []string{"fields"},
		},
		{
			name: "published with a single option",
			mutate: func(body map[string]any) {
				body["status"] = model.StatusPublished
				body["fields"] = []map[string]any{{"id": "q", "label": "Q", "type": "dropdown", "options": []string{"only"}}}
			},
			fields: []string{"q"},
		},
		{
			name: "validations on a date field",
			mutate: func(body map[string]any) {
				body["fields"] = []map[string]any{{"id": "d", "label": "D", "type": "date", "validations": map[string]any{"pattern": "x"}}}
			},
			fields: []string{"d"},
		},
		{
			name: "field id collides with the respondent email",
			mutate: func(body map[string]any) {
				body["fields"] = []map[string]any{{"id": "email", "label": "Your email", "type": "email"}}
			},
			fields: []string{"email"},
		},
		{
			name:   "client id is not a uuid",
			mutate: func(body map[string]any) { body["id"] = "form-1" },
			fields: []string{"id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := surveyForm(model.StatusDraft)
			tt.mutate(body)
			w := f.do(request{method: http.MethodPost, path: "/api/forms", body: body, token: token})
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			errBody := decode[httpx.ErrorBody](t, w)
			assert.Equal(t, "error", errBody.Status)
			assert.Equal(t, httpx.CategoryValidation, errBody.Category)
			var got []string
			for _, e := range errBody.Errors {
				got = append(got, e.FieldID)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestCreateFormAssignsFieldIDs(t *testing.T) {
	f := setup(t)
	token := f.user("owner@example.com")

	body := surveyForm(model.StatusDraft)
	body["fields"] = []map[string]any{{"label": "Anything", "type": "text"}}
	saved := f.createForm(token, body)

	form, err := f.app.Forms.FindByID(context.Background(), saved.ID)
	require.NoError(t, err)
	require.Len(t, form.Fields, 1)
	assert.True(t, model.IsID(form.Fields[0].ID))
}

func TestAuthRequired(t *testing.T) {
	f := setup(t)

	for _, req := range []request{
		{method: http.MethodGet, path: "/api/forms"},
		{method: http.MethodPost, path: "/api/forms", body: surveyForm(model.StatusDraft)},
		{method: http.MethodGet, path: "/api/users/me"},
		{method: http.MethodGet, path: "/api/forms", token: "garbage"},
	} {
		w := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, req.method+" "+req.path)
	}
}

func TestResponseFlow(t *testing.T) {
	f := setup(t)
	token := f.user("owner@example.com")
	saved := f.createForm(token, surveyForm(model.StatusPublished))
	submit := "/api/responses/" + saved.ID

	w := f.do(request{method: http.MethodPost, path: submit, body: map[string]any{
		"email": "resp@example.com",
		"answers": map[string]any{
			"name":   "Ada",
			"track":  "Go",
			"topics": []string{"c", "a"},
			"when":   "2024-02-29",
		},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	responseID := decode[map[string]string](t, w)["id"]
	assert.True(t, model.IsID(responseID))

	w = f.do(request{method: http.MethodPost, path: submit, body: map[string]any{
		"email": "not-an-email",
		"answers": map[string]any{
			"name":  "Ada",
			"track": "Python",
			"extra": "x",
		},
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode[httpx.ErrorBody](t, w).Errors
	require.NotEmpty(t, errs)
	assert.Equal(t, "email", errs[0].FieldID)
	assert.Len(t, errs.For("track"), 1)
	assert.Equal(t, model.CodeEnum, errs.For("track")[0].Code)
	assert.Equal(t, model.CodeUnknownField, errs.For("extra")[0].Code)

	w = f.do(request{method: http.MethodGet, path: submit, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct{ Responses []model.Response }](t, w)
	require.Len(t, list.Responses, 1)
	assert.Equal(t, []string{"c", "a"}, list.Responses[0].Answers["topics"].Values)

	w = f.do(request{method: http.MethodGet, path: submit + "/" + responseID, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		Response model.Response
		Entries  []model.PlaybackEntry
	}](t, w)
	assert.Equal(t, "resp@example.com", detail.Response.Email)
	require.Len(t, detail.Entries, 4)
	assert.Equal(t, "Your name", detail.Entries[0].Label)
	assert.Equal(t, "c, a", detail.Entries[2].Answer.String())

	other := f.user("other@example.com")
	w = f.do(request{method: http.MethodGet, path: submit, token: other})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(request{method: http.MethodDelete, path: submit + "/" + responseID, token: token})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(request{method: http.MethodGet, path: submit + "/" + responseID, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitNeedsPublishedForm(t *testing.T) {
	f := setup(t)
	token := f.user("owner@example.com")
	body := map[string]any{"email": "r@example.com", "answers": map[string]any{"name": "x", "track": "Go"}}

	draft := f.createForm(token, surveyForm(model.StatusDraft))
	w := f.do(request{method: http.MethodPost, path: "/api/responses/" + draft.ID, body: body})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httpx.CategoryFormClosed, decode[httpx.ErrorBody](t, w).Category)

	closed := f.createForm(token, surveyForm(model.StatusClosed))
	w = f.do(request{method: http.MethodPost, path: "/api/responses/" + closed.ID, body: body})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(request{method: http.MethodPost, path: "/api/responses/" + model.NewID(), body: body})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	f := setup(t)
	f.user("owner@example.com")
	tokens := f.login("owner@example.com", "secret123")

	refresh := func(token string) *httptest.ResponseRecorder {
		return f.do(request{method: http.MethodPost, path: "/api/users/refresh", header: map[string]string{
			"authorization": "Refresh " + token,
		}})
	}

	w := refresh(tokens.RefreshToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	renewed := decode[httpx.Tokens](t, w)
	assert.NotEmpty(t, renewed.AccessToken)

	// refresh tokens are single use
	assert.Equal(t, http.StatusUnauthorized, refresh(tokens.RefreshToken).Code)

	w = f.do(request{method: http.MethodGet, path: "/api/users/me", token: renewed.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner@example.com", decode[model.User](t, w).Email)

	w = f.do(request{method: http.MethodPost, path: "/api/users/logout", token: renewed.AccessToken})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusUnauthorized, refresh(renewed.RefreshToken).Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := setup(t)
	f.user("owner@example.com")

	r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	r.SetBasicAuth("owner@example.com", "wrong")
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieAuth(t *testing.T) {
	f := setup(t)
	f.user("owner@example.com")

	r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	r.SetBasicAuth("owner@example.com", "secret123")
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")

	// access cookie alone
	r = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.AddCookie(cookies["access_token"])
	w = httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// only the refresh cookie left: a new pair is issued
	r = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.AddCookie(cookies["refresh_token"])
	w = httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	var renewed bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "access_token" && c.Value != "" {
			renewed = true
		}
	}
	assert.True(t, renewed)
}

func TestCookieAuthRefreshesBeforeWrites(t *testing.T) {
	f := setup(t)
	f.user("owner@example.com")

	r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	r.SetBasicAuth("owner@example.com", "secret123")
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var refresh string
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			refresh = c.Value
		}
	}
	require.NotEmpty(t, refresh)

	w = f.do(request{
		method: http.MethodPost,
		path:   "/api/forms",
		body:   surveyForm(model.StatusDraft),
		header: map[string]string{"cookie": "access_token=expired; refresh_token=" + refresh},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var renewed bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "access_token" && c.Value != "" {
			renewed = true
		}
	}
	assert.True(t, renewed)

	// without a refresh cookie the write is refused
	w = f.do(request{
		method: http.MethodPost,
		path:   "/api/forms",
		body:   surveyForm(model.StatusDraft),
		header: map[string]string{"cookie": "access_token=expired"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	f.user("taken@example.com")

	w := f.do(request{method: http.MethodPost, path: "/api/users/register", body: map[string]string{
		"fullname": "",
		"email":    "nope",
		"password": "123",
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode[httpx.ErrorBody](t, w).Errors, 3)

	w = f.do(request{method: http.MethodPost, path: "/api/users/register", body: map[string]string{
		"fullname": "Someone",
		"email":    "TAKEN@example.com",
		"password": "123456",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPasswordReset(t *testing.T) {
	f := setup(t)
	f.user("owner@example.com")
	ctx := context.Background()

	w := f.do(request{method: http.MethodPost, path: "/api/users/forgot-password", body: map[string]string{"email": "owner@example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = f.do(request{method: http.MethodPost, path: "/api/users/forgot-password", body: map[string]string{"email": "ghost@example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)

	u, err := f.app.Users.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	token, err := resetToken(f.app, u)
	require.NoError(t, err)

	reset := func(token string) *httptest.ResponseRecorder {
		return f.do(request{method: http.MethodPost, path: "/api/users/reset-password", body: map[string]string{
			"token":    token,
			"password": "new-password",
		}})
	}

	assert.Equal(t, http.StatusBadRequest, reset("garbage").Code)
	require.Equal(t, http.StatusNoContent, reset(token).Code)
	// the password changed, so the same link no longer works
	assert.Equal(t, http.StatusBadRequest, reset(token).Code)

	f.login("owner@example.com", "new-password")
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	f.do(request{method: http.MethodGet, path: "/api/forms"})

	w := f.do(request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "formify_http_request_duration_seconds"))
}
