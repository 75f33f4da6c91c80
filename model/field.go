package model

import (
	"fmt"
	"regexp"
	"strings"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeNumber   FieldType = "number"
	TypeRadio    FieldType = "radio"
	TypeCheckbox FieldType = "checkbox"
	TypeDropdown FieldType = "dropdown"
	TypeDate     FieldType = "date"
)

// FieldTypes lists the closed set of field types, in builder display order.
var FieldTypes = []FieldType{TypeText, TypeEmail, TypeNumber, TypeRadio, TypeCheckbox, TypeDropdown, TypeDate}

func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// IsEnum reports whether answers to t are drawn from the field's options.
func (t FieldType) IsEnum() bool {
	return t == TypeRadio || t == TypeCheckbox || t == TypeDropdown
}

// MinOptions is the number of options an enum-like field needs to be complete.
const MinOptions = 2

// Validations constrain free-text answers. Only text fields carry them.
type Validations struct {
	MinLength *int   `json:"minLength,omitempty" validate:"omitempty,gte=0"`
	MaxLength *int   `json:"maxLength,omitempty" validate:"omitempty,gte=0"`
	Pattern   string `json:"pattern,omitempty"`
}

func (v *Validations) IsZero() bool {
	return v == nil || (v.MinLength == nil && v.MaxLength == nil && v.Pattern == "")
}

func (v *Validations) Clone() *Validations {
	if v == nil {
		return nil
	}
	c := &Validations{Pattern: v.Pattern}
	if v.MinLength != nil {
		n := *v.MinLength
		c.MinLength = &n
	}
	if v.MaxLength != nil {
		n := *v.MaxLength
		c.MaxLength = &n
	}
	return c
}

type Field struct {
	ID          string       `json:"id"`
	Label       string       `json:"label" validate:"notblank"`
	Type        FieldType    `json:"type" validate:"fieldtype"`
	Options     []string     `json:"options,omitempty"`
	Required    bool         `json:"required"`
	Validations *Validations `json:"validations,omitempty"`
}

func (f Field) Clone() Field {
	c := f
	if f.Options != nil {
		c.Options = append([]string(nil), f.Options...)
	}
	c.Validations = f.Validations.Clone()
	return c
}

// Check reports the shape problems of f: blank label, unknown type, options
// on a type that has none, validations on a non-text field, or validations
// that can never be satisfied. Option completeness is checked separately by
// CheckComplete because drafts may hold unfinished option lists.
func (f *Field) Check() FieldErrors {
	errs := shapeErrors(f.ID, validate.Struct(f))

	if len(f.Options) > 0 && !f.Type.IsEnum() {
		errs = append(errs, FieldError{f.ID, CodeInvalid, fmt.Sprintf("options are not allowed on %s fields", f.Type)})
	}

	if !f.Validations.IsZero() {
		if f.Type != TypeText {
			errs = append(errs, FieldError{f.ID, CodeInvalid, fmt.Sprintf("validations are not allowed on %s fields", f.Type)})
		} else {
			v := f.Validations
			if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
				errs = append(errs, FieldError{f.ID, CodeInvalid, "minLength is greater than maxLength"})
			}
			if v.Pattern != "" {
				if _, err := regexp.Compile(v.Pattern); err != nil {
					errs = append(errs, FieldError{f.ID, CodeInvalid, "pattern is not a valid regular expression"})
				}
			}
		}
	}
	return errs
}

// CheckComplete reports whether an enum-like field has enough non-blank
// options to be answered.
func (f *Field) CheckComplete() FieldErrors {
	if !f.Type.IsEnum() {
		return nil
	}
	if len(f.Options) < MinOptions {
		return FieldErrors{{f.ID, CodeInvalid, fmt.Sprintf("%s fields need at least %d options", f.Type, MinOptions)}}
	}
	for i, o := range f.Options {
		if strings.TrimSpace(o) == "" {
			return FieldErrors{{f.ID, CodeInvalid, fmt.Sprintf("option %d is blank", i+1)}}
		}
	}
	return nil
}
