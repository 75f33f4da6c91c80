// Package testhelpers holds fixtures shared by package tests.
package testhelpers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/model"
)

// NewTestDB returns a migrated in-memory SQLite database private to the test.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenDSN("file:" + model.NewID() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// NewUser registers a user with password "secret123".
func NewUser(t *testing.T, db *sql.DB, email string) model.User {
	t.Helper()

	u := model.User{Fullname: "Test User", Email: email}
	if err := database.NewUsers(db).Create(context.Background(), &u, "secret123"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
