package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
	_ = validate.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
		return FieldType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("formstatus", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
}

// Validator exposes the shared validator so request DTOs are checked with the
// same tag set as the model.
func Validator() *validator.Validate {
	return validate
}

// ValidationErrors converts an error returned by Validator().Struct into
// field errors keyed by the JSON name of the offending attribute.
func ValidationErrors(err error) FieldErrors {
	return shapeErrors("", err)
}

// shapeErrors converts validator output into FieldErrors. When id is empty
// the JSON name of the offending attribute is used instead.
func shapeErrors(id string, err error) FieldErrors {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{id, CodeInvalid, err.Error()}}
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		key := id
		if key == "" {
			key = fe.Field()
		}
		out = append(out, FieldError{key, codeFor(fe.Tag()), messageFor(fe)})
	}
	return out
}

func codeFor(tag string) string {
	switch tag {
	case "required", "notblank":
		return CodeRequired
	case "email":
		return CodeEmail
	case "min":
		return CodeTooShort
	case "max":
		return CodeTooLong
	}
	return CodeInvalid
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "fieldtype":
		return fmt.Sprintf("unknown field type %q", fe.Value())
	case "formstatus":
		return fmt.Sprintf("unknown status %q", fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
