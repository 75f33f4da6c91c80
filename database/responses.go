package database

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/joehsn/formify/model"
)

type ResponseStore interface {
	Insert(ctx context.Context, r *model.Response) error
	FindByID(ctx context.Context, formID, id string) (model.Response, error)
	FindAllByForm(ctx context.Context, formID string) ([]model.Response, error)
	DeleteByID(ctx context.Context, formID, id string) error
}

var _ ResponseStore = (*Responses)(nil)

type Responses struct {
	db *sql.DB
}

func NewResponses(db *sql.DB) *Responses {
	return &Responses{db}
}

// Insert stores a response with all of its answers. The id is assigned when
// missing, the creation time always.
func (s *Responses) Insert(ctx context.Context, r *model.Response) error {
	if r.ID == "" {
		r.ID = model.NewID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	ts := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO response (id, form_id, email, created_at)
		VALUES (?, ?, ?, ?)`,
		r.ID, r.FormID, r.Email, ts,
	)
	if err != nil {
		return errors.Wrap(err, "insert response")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO response_answer (response_id, field_id, kind, value)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare answer insert")
	}
	defer stmt.Close()

	for fieldID, a := range r.Answers {
		value, err := json.Marshal(a)
		if err != nil {
			return errors.Wrap(err, "encode answer")
		}
		if _, err := stmt.ExecContext(ctx, r.ID, fieldID, a.Kind, string(value)); err != nil {
			return errors.Wrapf(err, "insert answer %s", fieldID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	r.CreatedAt = ts
	return nil
}

func (s *Responses) FindByID(ctx context.Context, formID, id string) (model.Response, error) {
	list, err := s.query(ctx, `WHERE r.form_id = ? AND r.id = ?`, formID, id)
	if err != nil {
		return model.Response{}, err
	}
	if len(list) == 0 {
		return model.Response{}, ErrNotFound
	}
	return list[0], nil
}

// FindAllByForm returns the responses of a form, newest first.
func (s *Responses) FindAllByForm(ctx context.Context, formID string) ([]model.Response, error) {
	return s.query(ctx, `WHERE r.form_id = ?`, formID)
}

func (s *Responses) query(ctx context.Context, where string, args ...any) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.form_id, r.email, r.created_at, a.field_id, a.kind, a.value
		FROM response r
		LEFT OUTER JOIN response_answer a ON (r.id = a.response_id)
		`+where+`
		ORDER BY r.created_at DESC, r.rowid DESC`,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var r model.Response
		var fieldID, kind, value sql.NullString
		err := rows.Scan(&r.ID, &r.FormID, &r.Email, &r.CreatedAt, &fieldID, &kind, &value)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}

		last := len(responses) - 1
		if last < 0 || responses[last].ID != r.ID {
			r.Answers = model.Answers{}
			responses = append(responses, r)
			last++
		}
		if !fieldID.Valid {
			continue
		}

		var a model.Answer
		if err := json.Unmarshal([]byte(value.String), &a); err != nil {
			return nil, errors.Wrapf(err, "parse answer %s", fieldID.String)
		}
		a.Kind = model.AnswerKind(kind.String)
		responses[last].Answers[fieldID.String] = a
	}
	return responses, errors.Wrap(rows.Err(), "iterate responses")
}

func (s *Responses) DeleteByID(ctx context.Context, formID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM response WHERE form_id = ? AND id = ?`, formID, id)
	if err != nil {
		return errors.Wrap(err, "delete response")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete response")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}
