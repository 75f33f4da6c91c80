package database

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/joehsn/formify/builder"
	"github.com/joehsn/formify/model"
)

// FormStore persists form definitions. Fields are stored in display order
// and always written together with their form.
type FormStore interface {
	FindByID(ctx context.Context, id string) (model.Form, error)
	FindAllByOwner(ctx context.Context, ownerID string) ([]model.FormSummary, error)
	Insert(ctx context.Context, f *model.Form) error
	UpdateByID(ctx context.Context, f *model.Form) error
	DeleteByID(ctx context.Context, ownerID, id string) error
}

var (
	_ FormStore     = (*Forms)(nil)
	_ builder.Saver = (*Forms)(nil)
)

type Forms struct {
	db *sql.DB
}

func NewForms(db *sql.DB) *Forms {
	return &Forms{db}
}

func (s *Forms) FindByID(ctx context.Context, id string) (model.Form, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Form{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	f := model.Form{ID: id}
	err = tx.QueryRowContext(ctx, `
		SELECT owner_id, title, description, status, revision, created_at, updated_at
		FROM form
		WHERE id = ?`,
		id,
	).Scan(&f.OwnerID, &f.Title, &f.Description, &f.Status, &f.Revision, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Form{}, ErrNotFound
	}
	if err != nil {
		return model.Form{}, errors.Wrap(err, "select form")
	}

	f.Fields, err = loadFields(ctx, tx, id)
	if err != nil {
		return model.Form{}, err
	}
	return f, tx.Commit()
}

func loadFields(ctx context.Context, q querier, formID string) ([]model.Field, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, type, label, required, options, validations
		FROM form_field
		WHERE form_id = ?
		ORDER BY position`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select fields")
	}
	defer rows.Close()

	fields := []model.Field{}
	for rows.Next() {
		var f model.Field
		var opts, vals sql.NullString
		if err := rows.Scan(&f.ID, &f.Type, &f.Label, &f.Required, &opts, &vals); err != nil {
			return nil, errors.Wrap(err, "scan field")
		}
		if opts.Valid {
			if err := json.Unmarshal([]byte(opts.String), &f.Options); err != nil {
				return nil, errors.Wrap(err, "parse options")
			}
		}
		if vals.Valid {
			f.Validations = &model.Validations{}
			if err := json.Unmarshal([]byte(vals.String), f.Validations); err != nil {
				return nil, errors.Wrap(err, "parse validations")
			}
		}
		fields = append(fields, f)
	}
	return fields, errors.Wrap(rows.Err(), "iterate fields")
}

func (s *Forms) FindAllByOwner(ctx context.Context, ownerID string) ([]model.FormSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			f.id, f.title, f.description, f.status, f.revision, f.created_at, f.updated_at,
			(SELECT count(*) FROM form_field ff WHERE ff.form_id = f.id)
		FROM form f
		WHERE f.owner_id = ?
		ORDER BY f.updated_at DESC, f.rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select forms")
	}
	defer rows.Close()

	forms := []model.FormSummary{}
	for rows.Next() {
		var f model.FormSummary
		err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.Status, &f.Revision, &f.CreatedAt, &f.UpdatedAt, &f.FieldCount)
		if err != nil {
			return nil, errors.Wrap(err, "scan form")
		}
		forms = append(forms, f)
	}
	return forms, errors.Wrap(rows.Err(), "iterate forms")
}

// Insert stores a new form at revision 1. A form id that is already taken
// yields ErrConflict.
func (s *Forms) Insert(ctx context.Context, f *model.Form) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO form (id, owner_id, title, description, status, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		f.ID, f.OwnerID, f.Title, f.Description, f.Status, ts, ts,
	)
	if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
		return ErrConflict
	}
	if err != nil {
		return errors.Wrap(err, "insert form")
	}

	if err := insertFields(ctx, tx, f.ID, f.Fields); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	f.Revision = 1
	f.CreatedAt = ts
	f.UpdatedAt = ts
	return nil
}

func insertFields(ctx context.Context, tx *sql.Tx, formID string, fields []model.Field) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO form_field (form_id, id, position, type, label, required, options, validations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare field insert")
	}
	defer stmt.Close()

	for i, f := range fields {
		var opts, vals sql.NullString
		if f.Options != nil {
			b, err := json.Marshal(f.Options)
			if err != nil {
				return errors.Wrap(err, "encode options")
			}
			opts = sql.NullString{String: string(b), Valid: true}
		}
		if !f.Validations.IsZero() {
			b, err := json.Marshal(f.Validations)
			if err != nil {
				return errors.Wrap(err, "encode validations")
			}
			vals = sql.NullString{String: string(b), Valid: true}
		}
		_, err := stmt.ExecContext(ctx, formID, f.ID, i, f.Type, f.Label, f.Required, opts, vals)
		if err != nil {
			return errors.Wrapf(err, "insert field %s", f.ID)
		}
	}
	return nil
}

// UpdateByID replaces the definition of a form owned by f.OwnerID. The
// update only applies when f.Revision is the stored revision; the revision
// is then bumped. A stale revision yields ErrConflict, a form that does not
// exist or belongs to someone else yields ErrNotFound.
func (s *Forms) UpdateByID(ctx context.Context, f *model.Form) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET
			title = ?,
			description = ?,
			status = ?,
			revision = revision+1,
			updated_at = ?
		WHERE id = ?
			AND owner_id = ?
			AND revision = ?`,
		f.Title, f.Description, f.Status, ts,
		f.ID, f.OwnerID, f.Revision,
	)
	if err != nil {
		return errors.Wrap(err, "update form")
	}
	// optimistic lock
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update form")
	}
	if n < 1 {
		var found bool
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM form WHERE id = ? AND owner_id = ?`, f.ID, f.OwnerID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "check form")
		}
		return ErrConflict
	}

	var revision int
	err = tx.QueryRowContext(ctx, `SELECT revision, created_at FROM form WHERE id = ?`, f.ID).
		Scan(&revision, &f.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "reload form")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM form_field WHERE form_id = ?`, f.ID)
	if err != nil {
		return errors.Wrap(err, "delete fields")
	}
	if err := insertFields(ctx, tx, f.ID, f.Fields); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	f.Revision = revision
	f.UpdatedAt = ts
	return nil
}

// DeleteByID removes a form together with its fields and every response
// collected for it.
func (s *Forms) DeleteByID(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM form WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	if n < 1 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM response_answer
		WHERE response_id IN (SELECT id FROM response WHERE form_id = ?)`,
		id,
	)
	if err != nil {
		return errors.Wrap(err, "delete answers")
	}
	for _, table := range []string{"response", "form_field"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE form_id = ?`, id); err != nil {
			return errors.Wrapf(err, "delete %s", table)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}
