package model

import (
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusClosed    Status = "closed"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusClosed
}

const MaxTitleLength = 255

// RespondentEmailKey is the error key of a response's own email address.
// No field may use it as id.
const RespondentEmailKey = "email"

type Form struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId,omitempty"`
	Title       string    `json:"title" validate:"notblank,max=255"`
	Description string    `json:"description"`
	Fields      []Field   `json:"fields"`
	Status      Status    `json:"status" validate:"formstatus"`
	Revision    int       `json:"revision"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FormSummary is the listing view of a form; fields are left out.
type FormSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Revision    int       `json:"revision"`
	FieldCount  int       `json:"fieldCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Normalize trims free text, defaults the status and assigns ids to fields
// that arrive without one. Existing ids are never touched.
func (f *Form) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	if f.Status == "" {
		f.Status = StatusDraft
	}
	for i := range f.Fields {
		fld := &f.Fields[i]
		fld.Label = strings.TrimSpace(fld.Label)
		if strings.TrimSpace(fld.ID) == "" {
			fld.ID = NewID()
		}
		if fld.Validations.IsZero() {
			fld.Validations = nil
		}
	}
}

// Check validates the whole definition and returns every problem found as a
// *multierror.Error of FieldError values. A published form must also be
// publishable.
func (f *Form) Check() error {
	var result *multierror.Error
	for _, e := range shapeErrors("", validate.Struct(f)) {
		result = multierror.Append(result, e)
	}
	if len(f.Fields) == 0 {
		result = multierror.Append(result, FieldError{"fields", CodeRequired, "at least one field is required"})
	}

	seen := make(map[string]bool, len(f.Fields))
	for i := range f.Fields {
		fld := &f.Fields[i]
		switch {
		case fld.ID == "":
			result = multierror.Append(result, FieldError{"fields", CodeRequired, "field id is required"})
		case seen[fld.ID]:
			result = multierror.Append(result, FieldError{fld.ID, CodeDuplicate, "field id is used twice"})
		case fld.ID == RespondentEmailKey:
			result = multierror.Append(result, FieldError{fld.ID, CodeInvalid, "field id is reserved"})
		}
		seen[fld.ID] = true
		for _, e := range fld.Check() {
			result = multierror.Append(result, e)
		}
	}

	if f.Status == StatusPublished {
		for _, e := range f.incomplete() {
			result = multierror.Append(result, e)
		}
	}
	return result.ErrorOrNil()
}

// CheckPublishable reports whether the form can be answered: it has at least
// one field and every enum-like field has its options filled in.
func (f *Form) CheckPublishable() error {
	var result *multierror.Error
	if len(f.Fields) == 0 {
		result = multierror.Append(result, FieldError{"fields", CodeRequired, "at least one field is required"})
	}
	for _, e := range f.incomplete() {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

func (f *Form) incomplete() FieldErrors {
	var errs FieldErrors
	for i := range f.Fields {
		errs = append(errs, f.Fields[i].CheckComplete()...)
	}
	return errs
}

func (f *Form) Field(id string) (Field, bool) {
	for _, fld := range f.Fields {
		if fld.ID == id {
			return fld, true
		}
	}
	return Field{}, false
}

// AcceptsResponses reports whether respondents may submit answers.
func (f *Form) AcceptsResponses() bool {
	return f.Status == StatusPublished
}

func (f Form) Clone() Form {
	c := f
	c.Fields = make([]Field, len(f.Fields))
	for i, fld := range f.Fields {
		c.Fields[i] = fld.Clone()
	}
	return c
}

func (f *Form) Summary() FormSummary {
	return FormSummary{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		Revision:    f.Revision,
		FieldCount:  len(f.Fields),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
