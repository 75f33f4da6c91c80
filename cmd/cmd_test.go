package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joehsn/formify/database"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMigrateAndUserAdd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "formify.sqlite")

	_, err := run(t, "migrate", "--db-url", dbPath)
	require.NoError(t, err)

	out, err := run(t, "user", "add", "--db-url", dbPath, "--email", "Cli@Example.com", "--name", "Cli User", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "created user cli@example.com")

	_, err = run(t, "user", "add", "--db-url", dbPath, "--email", "cli@example.com", "--name", "Again", "--password", "secret123")
	assert.ErrorIs(t, err, database.ErrDuplicateEmail)

	_, err = run(t, "user", "add", "--db-url", dbPath, "--email", "bad", "--name", "X", "--password", "1")
	assert.Error(t, err)

	db, err := database.OpenDSN(dbPath)
	require.NoError(t, err)
	defer db.Close()
	u, err := database.NewUsers(db).FindByEmail(context.Background(), "cli@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Cli User", u.Fullname)

	assert.NoFileExists(t, "formify.sqlite")
}

func TestServeNeedsSecret(t *testing.T) {
	_, err := run(t, "serve", "--db-url", filepath.Join(t.TempDir(), "x.sqlite"), "--token-secret", "")
	assert.Error(t, err)
}

func TestDBURLFlagAppliesToEveryRun(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.sqlite", "b.sqlite"} {
		_, err := run(t, "migrate", "--db-url", filepath.Join(dir, name))
		require.NoError(t, err)
	}
	_, err := run(t, "user", "add", "--db-url", filepath.Join(dir, "b.sqlite"), "--email", "b@example.com", "--name", "B", "--password", "secret123")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "a.sqlite"))
	db, err := database.OpenDSN(filepath.Join(dir, "b.sqlite"))
	require.NoError(t, err)
	defer db.Close()
	_, err = database.NewUsers(db).FindByEmail(context.Background(), "b@example.com")
	assert.NoError(t, err)
	_, err = os.Stat("formify.sqlite")
	assert.True(t, os.IsNotExist(err))
}
