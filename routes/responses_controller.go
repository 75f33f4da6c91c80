package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/joehsn/formify/app"
	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/log"
	"github.com/joehsn/formify/metrics"
	"github.com/joehsn/formify/model"
	"github.com/joehsn/formify/schema"
)

type submission struct {
	Email   string         `json:"email"`
	Answers map[string]any `json:"answers"`
}

// SubmitResponse validates a respondent's answers against the published
// form and stores them.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "formId")
		if !model.IsID(formID) {
			httpx.LogNotFound(w, r, "submit_response", formID)
			return
		}

		req := submission{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := app.Forms.FindByID(r.Context(), formID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, r, "submit_response", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}
		if !form.AcceptsResponses() {
			httpx.LogConflict(w, r, "submit_response.status", httpx.CategoryFormClosed, "the form is not accepting responses")
			return
		}

		validator, err := schema.Compile(form.Fields)
		if err != nil {
			httpx.LogInternalError(w, "submit_response.compile", err)
			return
		}

		answers, errs := validator.Validate(req.Answers)
		email := strings.TrimSpace(req.Email)
		if !schema.IsEmail(email) {
			errs = append(model.FieldErrors{{FieldID: model.RespondentEmailKey, Code: model.CodeEmail, Message: "must be a valid email"}}, errs...)
		}
		if len(errs) > 0 {
			metrics.ResponseSubmitted(false)
			httpx.LogValidation(w, r, "submit_response.validate", errs)
			return
		}

		resp := model.Response{
			FormID:  form.ID,
			Email:   email,
			Answers: answers,
		}
		if err := app.Responses.Insert(r.Context(), &resp); err != nil {
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}
		metrics.ResponseSubmitted(true)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": resp.ID,
		})
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r, "get_responses")
		if !ok {
			return
		}

		responses, err := app.Responses.FindAllByForm(r.Context(), form.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

// GetResponse returns a response together with its playback against the
// current form definition.
func GetResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r, "get_response")
		if !ok {
			return
		}
		responseID := chi.URLParam(r, "responseId")

		resp, err := app.Responses.FindByID(r.Context(), form.ID, responseID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, r, "get_response", responseID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_response", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"response": resp,
			"entries":  model.Playback(form, resp),
		})
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r, "delete_response")
		if !ok {
			return
		}
		responseID := chi.URLParam(r, "responseId")

		err := app.Responses.DeleteByID(r.Context(), form.ID, responseID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, r, "delete_response", responseID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_response", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
