package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blogcristao/internal/model"
)

const userColumns = `uid, name, email, profile_image_url, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert creates the profile on first login and merges it afterwards.
// A new profile without a name gets model.DefaultUserName; an existing
// profile never loses a field to an empty incoming value.
func (r *userRepository) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (uid, name, email, profile_image_url)
		VALUES ($1, COALESCE(NULLIF($2, ''), $5), $3, $4)
		ON CONFLICT (uid) DO UPDATE SET
			name              = COALESCE(NULLIF($2, ''), users.name),
			email             = COALESCE(NULLIF($3, ''), users.email),
			profile_image_url = COALESCE(NULLIF($4, ''), users.profile_image_url),
			updated_at        = NOW()
		RETURNING ` + userColumns

	var out model.User
	err := r.db.GetContext(ctx, &out, query,
		user.UID, user.Name, user.Email, user.ProfileImageURL, model.DefaultUserName)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &out, nil
}

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`

	var user model.User
	err := r.db.GetContext(ctx, &user, query, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByUIDs fetches many profiles in a single round trip.
func (r *userRepository) GetByUIDs(ctx context.Context, uids []string) (map[string]*model.User, error) {
	result := make(map[string]*model.User, len(uids))
	if len(uids) == 0 {
		return result, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = ANY($1)`

	var users []model.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(uids)); err != nil {
		return nil, fmt.Errorf("get users by uids: %w", err)
	}

	for i := range users {
		result[users[i].UID] = &users[i]
	}
	return result, nil
}
