package model

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Codes carried by FieldError.
const (
	CodeRequired     = "required"
	CodeEnum         = "enum"
	CodeTooShort     = "too_short"
	CodeTooLong      = "too_long"
	CodePattern      = "pattern"
	CodeEmail        = "email"
	CodeDate         = "date"
	CodeType         = "type"
	CodeDuplicate    = "duplicate"
	CodeUnknownField = "unknown_field"
	CodeInvalid      = "invalid"
)

// FieldError is a single problem attached to a field id (or to a form
// attribute such as "title").
type FieldError struct {
	FieldID string `json:"fieldId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.FieldID + ": " + e.Message
}

type FieldErrors []FieldError

func (errs FieldErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// For returns the errors reported against fieldID.
func (errs FieldErrors) For(fieldID string) FieldErrors {
	var out FieldErrors
	for _, e := range errs {
		if e.FieldID == fieldID {
			out = append(out, e)
		}
	}
	return out
}

// AsFieldErrors flattens an error produced by Form.Check (or any aggregate of
// FieldError values) into a list. Errors that carry no field are reported
// under "form".
func AsFieldErrors(err error) FieldErrors {
	if err == nil {
		return nil
	}
	var fes FieldErrors
	if errors.As(err, &fes) {
		return fes
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return FieldErrors{toFieldError(err)}
	}
	out := make(FieldErrors, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		out = append(out, toFieldError(e))
	}
	return out
}

func toFieldError(err error) FieldError {
	var fe FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return FieldError{"form", CodeInvalid, err.Error()}
}
