package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/joehsn/formify/log"
	"github.com/joehsn/formify/model"
)

// Error categories carried in JSON error bodies.
const (
	CategoryValidation = "VALIDATION_ERROR"
	CategoryNotFound   = "OBJECT_NOT_FOUND"
	CategoryConflict   = "CONFLICT"
	CategoryFormClosed = "FORM_CLOSED"
)

// ErrorBody is the JSON shape of every 4xx API error.
type ErrorBody struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Errors   model.FieldErrors `json:"errors,omitempty"`
}

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send a 404 JSON error
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	writeError(w, r, http.StatusNotFound, ErrorBody{Message: "not found", Category: CategoryNotFound})
}

// Will log a debug message, and send a 409 JSON error with the given category
func LogConflict(w http.ResponseWriter, r *http.Request, code, category, msg string) {
	log.Debugf("%s: %s", code, msg)
	writeError(w, r, http.StatusConflict, ErrorBody{Message: msg, Category: category})
}

// Will log the failing fields, and send a 400 JSON error listing them
func LogValidation(w http.ResponseWriter, r *http.Request, code string, errs model.FieldErrors) {
	log.WithFields(log.Fields{"errors": len(errs)}).Debug(code)
	writeError(w, r, http.StatusBadRequest, ErrorBody{
		Message:  "validation failed",
		Category: CategoryValidation,
		Errors:   errs,
	})
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	body.Status = "error"
	render.Status(r, status)
	render.JSON(w, r, body)
}
