package service

import (
	"context"
	"fmt"
	"strings"

	"blogcristao/internal/model"
	"blogcristao/internal/repository"
)

// UserService keeps profiles in sync with the identity provider.
type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// UpsertProfile copies name, email and picture from verified claims into the
// stored profile. Empty claims never erase stored values.
func (s *UserService) UpsertProfile(ctx context.Context, claims *model.IdentityClaims) (*model.User, error) {
	if claims == nil || claims.UID == "" {
		return nil, model.ErrAuthRequired
	}

	user, err := s.repo.Upsert(ctx, &model.User{
		UID:             claims.UID,
		Name:            strings.TrimSpace(claims.Name),
		Email:           strings.TrimSpace(claims.Email),
		ProfileImageURL: strings.TrimSpace(claims.Picture),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return user, nil
}

// GetProfile returns the stored profile or model.ErrUserNotFound.
func (s *UserService) GetProfile(ctx context.Context, uid string) (*model.User, error) {
	if uid == "" {
		return nil, model.ErrUserNotFound
	}
	return s.repo.GetByUID(ctx, uid)
}
