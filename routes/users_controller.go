package routes

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/lestrrat-go/jwx/jwt"

	"github.com/joehsn/formify/app"
	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/log"
	"github.com/joehsn/formify/model"
	"github.com/joehsn/formify/routes/middlewares"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.+)`)

type registerRequest struct {
	Fullname string `json:"fullname" validate:"notblank,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := registerRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		req.Email = database.NormalizeEmail(req.Email)
		if err := model.Validator().Struct(req); err != nil {
			httpx.LogValidation(w, r, "register.validate", model.ValidationErrors(err))
			return
		}

		u := model.User{Fullname: req.Fullname, Email: req.Email}
		err := app.Users.Create(r.Context(), &u, req.Password)
		if errors.Is(err, database.ErrDuplicateEmail) {
			httpx.LogConflict(w, r, "register.email", httpx.CategoryConflict, "an account with this email already exists")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_user", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, u)
	}
}

// Login exchanges HTTP Basic credentials for an access and refresh token.
// Browser clients get them as cookies as well.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		grant(app, w, "login", url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		})
	}
}

// Refresh exchanges the refresh token in "Authorization: Refresh <token>".
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		grant(app, w, "refresh", url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		})
	}
}

func grant(app app.App, w http.ResponseWriter, code string, form url.Values) {
	resp, err := httpx.Grant(app.BearerServer, form)
	if err != nil {
		httpx.LogInternalError(w, code+".grant", err)
		return
	}
	if resp.Status() == http.StatusOK {
		tokens, err := httpx.ParseTokens(resp)
		if err != nil {
			httpx.LogInternalError(w, code+".grant.parse", err)
			return
		}
		httpx.SetTokenCookies(w, tokens)
	} else {
		log.Debugf("%s.grant: status %d", code, resp.Status())
	}
	if err := resp.Flush(w); err != nil {
		log.Debugf("%s.flush: %s", code, err)
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(app, w, r, "logout")
		if !ok {
			return
		}
		if err := app.Tokens.RevokeAll(r.Context(), u.Email); err != nil {
			httpx.LogInternalError(w, "db.logout", err)
			return
		}
		httpx.ClearTokenCookies(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func Me(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(app, w, r, "me")
		if !ok {
			return
		}
		render.JSON(w, r, u)
	}
}

func currentUser(app app.App, w http.ResponseWriter, r *http.Request, code string) (model.User, bool) {
	uid, _ := middlewares.OwnerID(r.Context())
	u, err := app.Users.FindByID(r.Context(), uid)
	if errors.Is(err, database.ErrNotFound) {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, code+".user")
		return model.User{}, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db."+code, err)
		return model.User{}, false
	}
	return u, true
}

// passwordFingerprint ties a reset token to the password it replaces, so the
// token stops working once used.
func passwordFingerprint(hash []byte) string {
	sum := sha256.Sum256(hash)
	return hex.EncodeToString(sum[:8])
}

// ForgotPassword always answers 202 so account existence is not leaked.
// Email delivery is not wired; the reset link is written to the log.
func ForgotPassword(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := struct {
			Email string `json:"email"`
		}{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		u, err := app.Users.FindByEmail(r.Context(), req.Email)
		switch {
		case errors.Is(err, database.ErrNotFound):
			log.Debugf("forgot_password: no account (%s)", req.Email)
		case err != nil:
			httpx.LogInternalError(w, "db.forgot_password", err)
			return
		default:
			token, err := resetToken(app, u)
			if err != nil {
				httpx.LogInternalError(w, "forgot_password.token", err)
				return
			}
			link := fmt.Sprintf("%s/reset-password?token=%s", app.Config.URL(), url.QueryEscape(token))
			log.WithFields(log.Fields{"user": u.ID}).Infof("forgot_password: reset link %s", link)
		}

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]any{
			"message": "if the account exists, a reset link has been sent",
		})
	}
}

func resetToken(app app.App, u model.User) (string, error) {
	claims := map[string]interface{}{
		"sub": u.ID,
		"pwh": passwordFingerprint(u.PasswordHash),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, app.Config.ResetTTL)
	_, token, err := app.ResetAuth.Encode(claims)
	return token, err
}

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"min=6"`
}

func ResetPassword(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := resetRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validator().Struct(req); err != nil {
			httpx.LogValidation(w, r, "reset_password.validate", model.ValidationErrors(err))
			return
		}

		invalid := model.FieldErrors{{FieldID: "token", Code: model.CodeInvalid, Message: "the reset link is invalid or has expired"}}

		token, err := app.ResetAuth.Decode(req.Token)
		if err == nil {
			err = jwt.Validate(token)
		}
		if err != nil {
			log.Debugf("reset_password.token: %s", err)
			httpx.LogValidation(w, r, "reset_password.token", invalid)
			return
		}

		u, err := app.Users.FindByID(r.Context(), token.Subject())
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogValidation(w, r, "reset_password.user", invalid)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.reset_password", err)
			return
		}
		if pwh, _ := token.Get("pwh"); pwh != passwordFingerprint(u.PasswordHash) {
			httpx.LogValidation(w, r, "reset_password.used", invalid)
			return
		}

		if err := app.Users.SetPassword(r.Context(), u.ID, req.Password); err != nil {
			httpx.LogInternalError(w, "db.reset_password.update", err)
			return
		}
		if err := app.Tokens.RevokeAll(r.Context(), u.Email); err != nil {
			httpx.LogInternalError(w, "db.reset_password.revoke", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
