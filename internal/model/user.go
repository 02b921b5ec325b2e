package model

import (
	"errors"
	"time"
)

// DefaultUserName is used when the identity provider has no display name.
const DefaultUserName = "Usuário"

// User is a profile copied from the identity provider.
type User struct {
	UID             string    `db:"uid" json:"uid"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	ProfileImageURL string    `db:"profile_image_url" json:"profileImageUrl"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
}

// DisplayName returns the profile name or DefaultUserName.
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return DefaultUserName
	}
	return u.Name
}

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
)
