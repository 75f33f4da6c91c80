// Package builder holds the editable, in-memory draft of a form.
//
// A Builder is owned by its caller; nothing is shared between builders and
// nothing touches the network until Save hands the draft to a Saver.
package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/joehsn/formify/model"
)

var (
	ErrFieldNotFound           = errors.New("field not found")
	ErrLastField               = errors.New("a form needs at least one field")
	ErrOptionFloor             = errors.New("option fields keep at least two options")
	ErrNotEnumField            = errors.New("field type has no options")
	ErrOptionIndex             = errors.New("option index out of range")
	ErrFieldIndex              = errors.New("field index out of range")
	ErrValidationsNotSupported = errors.New("validations are only supported on text fields")
	ErrUnknownType             = errors.New("unknown field type")
	ErrUnknownStatus           = errors.New("unknown form status")
)

const (
	DefaultFormTitle  = "Untitled Form"
	DefaultFieldLabel = "Untitled Field"
)

type State int

const (
	// EmptyDraft is a new form nobody has touched yet.
	EmptyDraft State = iota
	// Editing is a loaded form with no unsaved change.
	Editing
	// Dirty means the draft differs from what was last saved or loaded.
	Dirty
	// Saved means the last Save succeeded and nothing changed since.
	Saved
)

func (s State) String() string {
	switch s {
	case EmptyDraft:
		return "empty-draft"
	case Editing:
		return "editing"
	case Dirty:
		return "dirty"
	case Saved:
		return "saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Saver persists a form. Insert is used for a draft that was never saved
// (Revision 0), UpdateByID afterwards. Both update the revision and
// timestamps of the form they are given.
type Saver interface {
	Insert(ctx context.Context, f *model.Form) error
	UpdateByID(ctx context.Context, f *model.Form) error
}

// Builder is an editable form. Fields are addressed by id; order only matters
// for display and serialization.
type Builder struct {
	form   model.Form
	fields map[string]*model.Field
	order  []string
	state  State
}

// New starts a draft owned by ownerID with a single default field.
func New(ownerID string) *Builder {
	b := &Builder{
		form: model.Form{
			ID:      model.NewID(),
			OwnerID: ownerID,
			Title:   DefaultFormTitle,
			Status:  model.StatusDraft,
		},
		fields: make(map[string]*model.Field),
	}
	b.appendField(defaultField())
	return b
}

// Load starts editing an existing form.
func Load(form model.Form) *Builder {
	b := &Builder{
		form:   form.Clone(),
		fields: make(map[string]*model.Field, len(form.Fields)),
		order:  make([]string, 0, len(form.Fields)),
		state:  Editing,
	}
	b.form.Fields = nil
	for _, f := range form.Fields {
		b.appendField(f.Clone())
	}
	return b
}

func defaultField() model.Field {
	return model.Field{
		ID:    model.NewID(),
		Label: DefaultFieldLabel,
		Type:  model.TypeText,
	}
}

func (b *Builder) appendField(f model.Field) {
	b.fields[f.ID] = &f
	b.order = append(b.order, f.ID)
}

func (b *Builder) touch() {
	b.state = Dirty
}

func (b *Builder) State() State { return b.state }

func (b *Builder) ID() string { return b.form.ID }

// Snapshot returns a deep copy of the draft with fields in display order.
func (b *Builder) Snapshot() model.Form {
	f := b.form.Clone()
	f.Fields = b.Fields()
	return f
}

func (b *Builder) Fields() []model.Field {
	out := make([]model.Field, len(b.order))
	for i, id := range b.order {
		out[i] = b.fields[id].Clone()
	}
	return out
}

func (b *Builder) Field(id string) (model.Field, bool) {
	f, ok := b.fields[id]
	if !ok {
		return model.Field{}, false
	}
	return f.Clone(), true
}

func (b *Builder) SetTitle(title string) {
	b.form.Title = title
	b.touch()
}

func (b *Builder) SetDescription(description string) {
	b.form.Description = description
	b.touch()
}

func (b *Builder) SetStatus(status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	b.form.Status = status
	b.touch()
	return nil
}

// AddField appends a default text field and returns its id.
func (b *Builder) AddField() string {
	f := defaultField()
	b.appendField(f)
	b.touch()
	return f.ID
}

// RemoveField deletes a field; the last remaining field cannot be removed.
func (b *Builder) RemoveField(id string) error {
	if _, err := b.lookup(id); err != nil {
		return err
	}
	if len(b.order) == 1 {
		return ErrLastField
	}
	delete(b.fields, id)
	for i, fid := range b.order {
		if fid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.touch()
	return nil
}

// MoveField moves a field to position index in display order.
func (b *Builder) MoveField(id string, index int) error {
	if _, err := b.lookup(id); err != nil {
		return err
	}
	if index < 0 || index >= len(b.order) {
		return fmt.Errorf("%w: %d", ErrFieldIndex, index)
	}
	order := make([]string, 0, len(b.order))
	for _, fid := range b.order {
		if fid != id {
			order = append(order, fid)
		}
	}
	order = append(order[:index], append([]string{id}, order[index:]...)...)
	b.order = order
	b.touch()
	return nil
}

func (b *Builder) lookup(id string) (*model.Field, error) {
	f, ok := b.fields[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	return f, nil
}

func (b *Builder) SetFieldLabel(id, label string) error {
	f, err := b.lookup(id)
	if err != nil {
		return err
	}
	f.Label = label
	b.touch()
	return nil
}

func (b *Builder) SetFieldRequired(id string, required bool) error {
	f, err := b.lookup(id)
	if err != nil {
		return err
	}
	f.Required = required
	b.touch()
	return nil
}

// SetFieldType changes a field's type through the transition policy.
func (b *Builder) SetFieldType(id string, t model.FieldType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	f, err := b.lookup(id)
	if err != nil {
		return err
	}
	ApplyType(f, t)
	b.touch()
	return nil
}

// SetFieldOptions replaces the options of an enum-like field.
func (b *Builder) SetFieldOptions(id string, options []string) error {
	f, err := b.enumField(id)
	if err != nil {
		return err
	}
	if len(options) < model.MinOptions {
		return ErrOptionFloor
	}
	f.Options = append([]string(nil), options...)
	b.touch()
	return nil
}

func (b *Builder) SetFieldValidations(id string, v *model.Validations) error {
	f, err := b.lookup(id)
	if err != nil {
		return err
	}
	if v.IsZero() {
		f.Validations = nil
		b.touch()
		return nil
	}
	if f.Type != model.TypeText {
		return ErrValidationsNotSupported
	}
	f.Validations = v.Clone()
	b.touch()
	return nil
}

func (b *Builder) enumField(id string) (*model.Field, error) {
	f, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	if !f.Type.IsEnum() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotEnumField, id, f.Type)
	}
	return f, nil
}

// AddOption appends a placeholder option and returns its index.
func (b *Builder) AddOption(id string) (int, error) {
	f, err := b.enumField(id)
	if err != nil {
		return 0, err
	}
	f.Options = append(f.Options, placeholderOption(len(f.Options)+1))
	b.touch()
	return len(f.Options) - 1, nil
}

func (b *Builder) SetOption(id string, index int, value string) error {
	f, err := b.enumField(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(f.Options) {
		return fmt.Errorf("%w: %d", ErrOptionIndex, index)
	}
	f.Options[index] = value
	b.touch()
	return nil
}

// RemoveOption deletes the option at index unless only two remain.
func (b *Builder) RemoveOption(id string, index int) error {
	f, err := b.enumField(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(f.Options) {
		return fmt.Errorf("%w: %d", ErrOptionIndex, index)
	}
	if len(f.Options) <= model.MinOptions {
		return ErrOptionFloor
	}
	f.Options = append(f.Options[:index], f.Options[index+1:]...)
	b.touch()
	return nil
}

// Save validates the draft and hands it to s. On success the revision and
// timestamps assigned by s are kept and the builder is Saved.
func (b *Builder) Save(ctx context.Context, s Saver) error {
	form := b.Snapshot()
	form.Normalize()
	if err := form.Check(); err != nil {
		return err
	}

	var err error
	if form.Revision == 0 {
		err = s.Insert(ctx, &form)
	} else {
		err = s.UpdateByID(ctx, &form)
	}
	if err != nil {
		return err
	}

	b.form.Title = form.Title
	b.form.Description = form.Description
	b.form.Status = form.Status
	b.form.Revision = form.Revision
	b.form.CreatedAt = form.CreatedAt
	b.form.UpdatedAt = form.UpdatedAt
	for _, f := range form.Fields {
		b.fields[f.ID].Label = f.Label
	}
	b.state = Saved
	return nil
}
