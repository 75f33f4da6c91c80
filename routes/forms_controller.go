package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/joehsn/formify/app"
	"github.com/joehsn/formify/builder"
	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/log"
	"github.com/joehsn/formify/metrics"
	"github.com/joehsn/formify/model"
	"github.com/joehsn/formify/routes/middlewares"
)

type formRequest struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Fields      []model.Field `json:"fields"`
	Status      model.Status  `json:"status"`
	Revision    int           `json:"revision"`
}

func (req formRequest) form() model.Form {
	return model.Form{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Fields:      req.Fields,
		Status:      req.Status,
		Revision:    req.Revision,
	}
}

type savedForm struct {
	ID       string `json:"id"`
	Revision int    `json:"revision"`
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := middlewares.OwnerID(r.Context())

		req := formRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form := req.form()
		if form.ID == "" {
			form.ID = model.NewID()
		} else if !model.IsID(form.ID) {
			httpx.LogValidation(w, r, "create_form.id", model.FieldErrors{{FieldID: "id", Code: model.CodeInvalid, Message: "id must be a UUID"}})
			return
		}
		form.OwnerID = ownerID
		form.Revision = 0

		saved, ok := saveForm(app, w, r, "create_form", form)
		if !ok {
			return
		}
		metrics.FormSaved(metrics.OpCreate)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, savedForm{saved.ID, saved.Revision})
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := middlewares.OwnerID(r.Context())
		formID := chi.URLParam(r, "id")
		if !model.IsID(formID) {
			httpx.LogNotFound(w, r, "update_form", formID)
			return
		}

		req := formRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.Revision < 1 {
			httpx.LogValidation(w, r, "update_form.revision", model.FieldErrors{{FieldID: "revision", Code: model.CodeRequired, Message: "revision is required"}})
			return
		}

		form := req.form()
		form.ID = formID
		form.OwnerID = ownerID

		saved, ok := saveForm(app, w, r, "update_form", form)
		if !ok {
			return
		}
		metrics.FormSaved(metrics.OpUpdate)

		render.JSON(w, r, savedForm{saved.ID, saved.Revision})
	}
}

// saveForm checks a definition and stores it through a builder. Problems are
// written to w and reported as !ok.
func saveForm(app app.App, w http.ResponseWriter, r *http.Request, code string, form model.Form) (model.Form, bool) {
	form.Normalize()
	if err := form.Check(); err != nil {
		httpx.LogValidation(w, r, code+".check", model.AsFieldErrors(err))
		return model.Form{}, false
	}

	b := builder.Load(form)
	err := b.Save(r.Context(), app.Forms)
	switch {
	case errors.Is(err, database.ErrNotFound):
		httpx.LogNotFound(w, r, code, form.ID)
		return model.Form{}, false
	case errors.Is(err, database.ErrConflict):
		httpx.LogConflict(w, r, code+".conflict", httpx.CategoryConflict, "the form was changed since it was loaded")
		return model.Form{}, false
	case err != nil:
		httpx.LogInternalError(w, "db."+code, err)
		return model.Form{}, false
	}
	return b.Snapshot(), true
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := middlewares.OwnerID(r.Context())

		forms, err := app.Forms.FindAllByOwner(r.Context(), ownerID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

// GetForm serves a definition to its owner in any status, and to everybody
// else once it has been published.
func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")
		if !model.IsID(formID) {
			httpx.LogNotFound(w, r, "get_form", formID)
			return
		}

		form, err := app.Forms.FindByID(r.Context(), formID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, r, "get_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		if ownerID, ok := middlewares.OwnerID(r.Context()); !ok || ownerID != form.OwnerID {
			if form.Status == model.StatusDraft {
				httpx.LogNotFound(w, r, "get_form.draft", formID)
				return
			}
			form.OwnerID = ""
		}

		render.JSON(w, r, form)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, _ := middlewares.OwnerID(r.Context())
		formID := chi.URLParam(r, "id")
		if !model.IsID(formID) {
			httpx.LogNotFound(w, r, "delete_form", formID)
			return
		}

		err := app.Forms.DeleteByID(r.Context(), ownerID, formID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, r, "delete_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}
		metrics.FormSaved(metrics.OpDelete)

		w.WriteHeader(http.StatusNoContent)
	}
}

// ownedForm loads the form named by the formId URL parameter and checks that
// it belongs to the caller. Forms of other owners are reported as missing.
func ownedForm(app app.App, w http.ResponseWriter, r *http.Request, code string) (model.Form, bool) {
	ownerID, _ := middlewares.OwnerID(r.Context())
	formID := chi.URLParam(r, "formId")
	if !model.IsID(formID) {
		httpx.LogNotFound(w, r, code, formID)
		return model.Form{}, false
	}

	form, err := app.Forms.FindByID(r.Context(), formID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && form.OwnerID != ownerID) {
		httpx.LogNotFound(w, r, code, formID)
		return model.Form{}, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db."+code, err)
		return model.Form{}, false
	}
	return form, true
}
