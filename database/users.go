package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/joehsn/formify/model"
)

var ErrBadCredentials = errors.New("bad credentials")

type UserStore interface {
	Create(ctx context.Context, u *model.User, password string) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Authenticate(ctx context.Context, email, password string) (model.User, error)
	SetPassword(ctx context.Context, id, password string) error
}

var _ UserStore = (*Users)(nil)

type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db}
}

// NormalizeEmail is the form under which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a user. The password is stored as a bcrypt hash.
func (s *Users) Create(ctx context.Context, u *model.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if u.ID == "" {
		u.ID = model.NewID()
	}
	u.Email = NormalizeEmail(u.Email)
	u.Fullname = strings.TrimSpace(u.Fullname)
	ts := now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user (id, fullname, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Fullname, u.Email, hash, ts,
	)
	if isConstraint(err, sqlite3.ErrConstraintUnique) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	u.PasswordHash = hash
	u.CreatedAt = ts
	return nil
}

func (s *Users) FindByID(ctx context.Context, id string) (model.User, error) {
	return s.findOne(ctx, "id", id)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findOne(ctx, "email", NormalizeEmail(email))
}

func (s *Users) findOne(ctx context.Context, column, value string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, fullname, email, password_hash, created_at
		FROM user
		WHERE `+column+` = ?`,
		value,
	).Scan(&u.ID, &u.Fullname, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "select user")
	}
	return u, nil
}

// Authenticate returns the user with the given credentials. Unknown emails
// and wrong passwords are both reported as ErrBadCredentials.
func (s *Users) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return model.User{}, ErrBadCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return model.User{}, ErrBadCredentials
	}
	return u, nil
}

func (s *Users) SetPassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE user SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return errors.Wrap(err, "update password")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update password")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

// Tokens records the refresh tokens handed out by the bearer server. A
// refresh token can be exchanged once.
type Tokens struct {
	db *sql.DB
}

func NewTokens(db *sql.DB) *Tokens {
	return &Tokens{db}
}

func (s *Tokens) Store(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username, tokenID, refreshTokenID, expiration.UTC(),
	)
	return errors.Wrap(err, "insert token")
}

// Consume deletes a stored token and reports ErrNotFound when it was never
// issued, was already used or has expired.
func (s *Tokens) Consume(ctx context.Context, username, tokenID, refreshTokenID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var expiration time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT expiration FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username, tokenID, refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "select token")
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username, tokenID, refreshTokenID,
	)
	if err != nil {
		return errors.Wrap(err, "delete token")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	if expiration.Before(time.Now()) {
		return ErrNotFound
	}
	return nil
}

// RevokeAll forgets every token issued to username.
func (s *Tokens) RevokeAll(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM token WHERE username = ?`, username)
	return errors.Wrap(err, "delete tokens")
}
