package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/finance-tracker/internal/database"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

func newUsers(t *testing.T) *repository.UserRepo {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewUserRepo(db)
}

func TestRunCreatesAdmin(t *testing.T) {
	users := newUsers(t)
	var out bytes.Buffer
	err := run(context.Background(), users, bcrypt.MinCost,
		[]string{"-email", "Root@Example.com", "-name", "Root"}, strings.NewReader("s3cret-pass\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created admin root@example.com")

	u, err := users.FindByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.Password, "s3cret-pass"))
}

func TestRunPromotesExistingUser(t *testing.T) {
	users := newUsers(t)
	ctx := context.Background()
	u, err := users.Create(ctx, model.Attributes{"name": "Bob", "email": "bob@example.com", "password": "hash", "is_active": false})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(ctx, users, bcrypt.MinCost, []string{"-email", "bob@example.com"}, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "promoted bob@example.com")

	got, err := users.Find(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)
	assert.True(t, got.IsActive)
	assert.Equal(t, "hash", got.Password)
}

func TestRunValidatesInput(t *testing.T) {
	users := newUsers(t)
	ctx := context.Background()
	var out bytes.Buffer

	err := run(ctx, users, bcrypt.MinCost, nil, strings.NewReader(""), &out)
	assert.EqualError(t, err, "-email is required")

	err = run(ctx, users, bcrypt.MinCost, []string{"-email", "new@example.com"}, strings.NewReader(""), &out)
	assert.EqualError(t, err, "-name is required for a new account")

	err = run(ctx, users, bcrypt.MinCost, []string{"-email", "new@example.com", "-name", "New", "-password", "short"}, strings.NewReader(""), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}
