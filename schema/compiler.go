package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/joehsn/formify/model"
)

var ErrMalformedField = errors.New("malformed field definition")

// check validates a non-empty raw value for one field.
type check func(raw any) (model.Answer, model.FieldErrors)

type compiledField struct {
	field model.Field
	check check
}

// Validator validates answers against a compiled field set.
type Validator struct {
	fields []compiledField
	known  map[string]bool
}

// Compile builds a Validator for fields. It fails with ErrMalformedField when
// a definition is structurally unusable: missing or repeated id, unknown
// type, an enum-like field without options or an invalid pattern.
func Compile(fields []model.Field) (*Validator, error) {
	v := &Validator{
		fields: make([]compiledField, 0, len(fields)),
		known:  make(map[string]bool, len(fields)),
	}
	for _, f := range fields {
		if f.ID == "" {
			return nil, errors.Wrapf(ErrMalformedField, "field %q has no id", f.Label)
		}
		if v.known[f.ID] {
			return nil, errors.Wrapf(ErrMalformedField, "field id %s is used twice", f.ID)
		}
		f = f.Clone()
		c, err := compileField(f)
		if err != nil {
			return nil, err
		}
		v.known[f.ID] = true
		v.fields = append(v.fields, compiledField{field: f, check: c})
	}
	return v, nil
}

// MustCompile is like Compile but panics on a malformed definition.
func MustCompile(fields []model.Field) *Validator {
	v, err := Compile(fields)
	if err != nil {
		panic(err)
	}
	return v
}

func compileField(f model.Field) (check, error) {
	switch f.Type {
	case model.TypeText:
		return textCheck(f)
	case model.TypeEmail:
		return emailCheck(f), nil
	case model.TypeNumber:
		return numberCheck(f), nil
	case model.TypeRadio, model.TypeDropdown:
		if len(f.Options) == 0 {
			return nil, errors.Wrapf(ErrMalformedField, "%s field %s has no options", f.Type, f.ID)
		}
		return choiceCheck(f), nil
	case model.TypeCheckbox:
		if len(f.Options) == 0 {
			return nil, errors.Wrapf(ErrMalformedField, "checkbox field %s has no options", f.ID)
		}
		return multiCheck(f), nil
	case model.TypeDate:
		return dateCheck(f), nil
	}
	return nil, errors.Wrapf(ErrMalformedField, "field %s has unknown type %q", f.ID, f.Type)
}

// Validate checks raw answers keyed by field id. Optional fields left empty
// are valid and come back as empty answers. On any failure the answers are
// nil and every problem found is returned.
func (v *Validator) Validate(raw map[string]any) (model.Answers, model.FieldErrors) {
	out := make(model.Answers, len(v.fields))
	var errs model.FieldErrors

	for _, cf := range v.fields {
		f := cf.field
		value := raw[f.ID]
		if isEmpty(value) {
			if !f.Required {
				out[f.ID] = model.EmptyAnswer(f.Type)
				continue
			}
			errs = append(errs, model.FieldError{FieldID: f.ID, Code: model.CodeRequired, Message: "this field is required"})
			continue
		}
		answer, ferrs := cf.check(value)
		if len(ferrs) > 0 {
			errs = append(errs, ferrs...)
			continue
		}
		out[f.ID] = answer
	}

	var unknown []string
	for id := range raw {
		if !v.known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		errs = append(errs, model.FieldError{FieldID: id, Code: model.CodeUnknownField, Message: "no such field in this form"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func typeError(f model.Field, want string) model.FieldErrors {
	return model.FieldErrors{{FieldID: f.ID, Code: model.CodeType, Message: "expected " + want}}
}

func textCheck(f model.Field) (check, error) {
	var (
		minLen, maxLen = -1, -1
		pattern        *regexp.Regexp
	)
	if v := f.Validations; v != nil {
		if v.MinLength != nil {
			minLen = *v.MinLength
		}
		if v.MaxLength != nil {
			maxLen = *v.MaxLength
		}
		if v.Pattern != "" {
			re, err := regexp.Compile(v.Pattern)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedField, "field %s pattern: %v", f.ID, err)
			}
			pattern = re
		}
	}

	return func(raw any) (model.Answer, model.FieldErrors) {
		s, ok := raw.(string)
		if !ok {
			return model.Answer{}, typeError(f, "a string")
		}
		var errs model.FieldErrors
		n := utf8.RuneCountInString(s)
		if minLen >= 0 && n < minLen {
			errs = append(errs, model.FieldError{FieldID: f.ID, Code: model.CodeTooShort, Message: fmt.Sprintf("must be at least %d characters long", minLen)})
		}
		if maxLen >= 0 && n > maxLen {
			errs = append(errs, model.FieldError{FieldID: f.ID, Code: model.CodeTooLong, Message: fmt.Sprintf("must be at most %d characters long", maxLen)})
		}
		if pattern != nil && !pattern.MatchString(s) {
			errs = append(errs, model.FieldError{FieldID: f.ID, Code: model.CodePattern, Message: "does not match the expected format"})
		}
		if len(errs) > 0 {
			return model.Answer{}, errs
		}
		return model.TextAnswer(s), nil
	}, nil
}

func emailCheck(f model.Field) check {
	return func(raw any) (model.Answer, model.FieldErrors) {
		s, ok := raw.(string)
		if !ok {
			return model.Answer{}, typeError(f, "a string")
		}
		s = strings.TrimSpace(s)
		if !IsEmail(s) {
			return model.Answer{}, model.FieldErrors{{FieldID: f.ID, Code: model.CodeEmail, Message: "must be a valid email"}}
		}
		return model.TextAnswer(s), nil
	}
}

// numberCheck keeps numbers as text: only presence is enforced.
func numberCheck(f model.Field) check {
	return func(raw any) (model.Answer, model.FieldErrors) {
		switch v := raw.(type) {
		case string:
			return model.TextAnswer(strings.TrimSpace(v)), nil
		case float64:
			return model.TextAnswer(strconv.FormatFloat(v, 'f', -1, 64)), nil
		case float32:
			return model.TextAnswer(strconv.FormatFloat(float64(v), 'f', -1, 32)), nil
		case int, int64, int32:
			return model.TextAnswer(fmt.Sprint(v)), nil
		}
		return model.Answer{}, typeError(f, "a number")
	}
}

func choiceCheck(f model.Field) check {
	return func(raw any) (model.Answer, model.FieldErrors) {
		s, ok := raw.(string)
		if !ok {
			return model.Answer{}, typeError(f, "a single option")
		}
		if !contains(f.Options, s) {
			return model.Answer{}, model.FieldErrors{enumError(f, s)}
		}
		return model.EnumAnswer(s), nil
	}
}

func multiCheck(f model.Field) check {
	return func(raw any) (model.Answer, model.FieldErrors) {
		var items []string
		switch v := raw.(type) {
		case []string:
			items = v
		case []any:
			items = make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return model.Answer{}, typeError(f, "a list of options")
				}
				items = append(items, s)
			}
		default:
			return model.Answer{}, typeError(f, "a list of options")
		}

		var errs model.FieldErrors
		seen := make(map[string]bool, len(items))
		for _, s := range items {
			if !contains(f.Options, s) {
				errs = append(errs, enumError(f, s))
				continue
			}
			if seen[s] {
				errs = append(errs, model.FieldError{FieldID: f.ID, Code: model.CodeDuplicate, Message: fmt.Sprintf("%q is selected more than once", s)})
			}
			seen[s] = true
		}
		if len(errs) > 0 {
			return model.Answer{}, errs
		}
		return model.MultiAnswer(append([]string(nil), items...)), nil
	}
}

func dateCheck(f model.Field) check {
	return func(raw any) (model.Answer, model.FieldErrors) {
		s, ok := raw.(string)
		if !ok {
			return model.Answer{}, typeError(f, "a date")
		}
		d, ok := NormalizeDate(s)
		if !ok {
			return model.Answer{}, model.FieldErrors{{FieldID: f.ID, Code: model.CodeDate, Message: "must be a date (YYYY-MM-DD)"}}
		}
		return model.DateAnswer(d), nil
	}
}

func enumError(f model.Field, got string) model.FieldError {
	return model.FieldError{
		FieldID: f.ID,
		Code:    model.CodeEnum,
		Message: fmt.Sprintf("%q is not one of: %s", got, strings.Join(f.Options, ", ")),
	}
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
