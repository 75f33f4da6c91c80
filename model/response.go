package model

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// AnswerKind tags the shape of an Answer.
type AnswerKind string

const (
	KindText        AnswerKind = "text"
	KindEnum        AnswerKind = "enum"
	KindMultiSelect AnswerKind = "multiselect"
	KindDate        AnswerKind = "date"
)

// KindOf returns the answer kind a field of type t produces.
func KindOf(t FieldType) AnswerKind {
	switch t {
	case TypeRadio, TypeDropdown:
		return KindEnum
	case TypeCheckbox:
		return KindMultiSelect
	case TypeDate:
		return KindDate
	}
	return KindText
}

// Answer is one respondent value. Multi-select answers live in Values, every
// other kind in Value. On the wire an Answer is a plain string or an array of
// strings; the kind is recovered from the field it answers.
type Answer struct {
	Kind   AnswerKind
	Value  string
	Values []string
}

func TextAnswer(s string) Answer { return Answer{Kind: KindText, Value: s} }
func EnumAnswer(s string) Answer { return Answer{Kind: KindEnum, Value: s} }
func DateAnswer(s string) Answer { return Answer{Kind: KindDate, Value: s} }

func MultiAnswer(vs []string) Answer {
	if vs == nil {
		vs = []string{}
	}
	return Answer{Kind: KindMultiSelect, Values: vs}
}

// EmptyAnswer is the stored value of an optional field left blank.
func EmptyAnswer(t FieldType) Answer {
	if t == TypeCheckbox {
		return MultiAnswer(nil)
	}
	return Answer{Kind: KindOf(t)}
}

func (a Answer) IsEmpty() bool {
	if a.Kind == KindMultiSelect {
		return len(a.Values) == 0
	}
	return a.Value == ""
}

// String renders the answer for display.
func (a Answer) String() string {
	if a.Kind == KindMultiSelect {
		return strings.Join(a.Values, ", ")
	}
	return a.Value
}

// As re-tags a stored answer with the kind of field type t.
func (a Answer) As(t FieldType) Answer {
	kind := KindOf(t)
	switch {
	case kind == KindMultiSelect && a.Kind != KindMultiSelect:
		if a.Value == "" {
			return MultiAnswer(nil)
		}
		return MultiAnswer([]string{a.Value})
	case kind != KindMultiSelect && a.Kind == KindMultiSelect:
		return Answer{Kind: kind, Value: a.String()}
	}
	a.Kind = kind
	return a
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Kind == KindMultiSelect {
		if a.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Value)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var vs []string
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		*a = MultiAnswer(vs)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*a = TextAnswer(s)
	return nil
}

type Answers map[string]Answer

type Response struct {
	ID        string    `json:"id"`
	FormID    string    `json:"formId"`
	Email     string    `json:"email"`
	Answers   Answers   `json:"answers"`
	CreatedAt time.Time `json:"createdAt"`
}
