package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogcristao/internal/model"
)

var userRowColumns = []string{"uid", "name", "email", "profile_image_url", "created_at", "updated_at"}

func TestUserRepository_GetByUIDs_SingleQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE uid = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("a", "Ana", "ana@example.com", "", now, now).
			AddRow("b", "Bruno", "bruno@example.com", "https://img/b.png", now, now))

	got, err := repo.GetByUIDs(context.Background(), []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Ana", got["a"].Name)
	assert.Equal(t, "https://img/b.png", got["b"].ProfileImageURL)
	assert.Nil(t, got["missing"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUIDs_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	got, err := repo.GetByUIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Upsert_MergesAndDefaultsName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (uid) DO UPDATE SET`)).
		WithArgs("uid-1", "", "new@example.com", "", model.DefaultUserName).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("uid-1", "Stored Name", "new@example.com", "https://img/old.png", now, now))

	user, err := repo.Upsert(context.Background(), &model.User{UID: "uid-1", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Stored Name", user.Name)
	assert.Equal(t, "https://img/old.png", user.ProfileImageURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE uid = $1`)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.GetByUID(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}
