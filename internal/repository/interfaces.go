package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/feed"
	"blogcristao/internal/model"
)

type UserRepository interface {
	// Upsert merges profile fields; empty incoming fields keep stored values.
	Upsert(ctx context.Context, user *model.User) (*model.User, error)
	GetByUID(ctx context.Context, uid string) (*model.User, error)
	// GetByUIDs resolves many profiles in one query. Unknown uids are absent from the map.
	GetByUIDs(ctx context.Context, uids []string) (map[string]*model.User, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.PostFields) (*model.PostRecord, error)
	GetByID(ctx context.Context, postID string) (*model.PostRecord, error)
	// Query executes a feed plan.
	Query(ctx context.Context, plan feed.Plan) ([]model.PostRecord, error)
	IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID string, delta int) error
	// Delete removes the post together with its likes, comments and comment likes.
	Delete(ctx context.Context, tx *sqlx.Tx, postID string) error
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) (*model.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
}

type LikeRepository interface {
	// Toggle flips the user's membership on the target and adjusts its
	// likes_count by one, deciding the direction from the stored membership.
	Toggle(ctx context.Context, tx *sqlx.Tx, target model.LikeTarget, userUID string) (*model.LikeResult, error)
	// CheckLikes returns which of the entities the user currently likes.
	CheckLikes(ctx context.Context, kind model.EntityKind, userUID string, entityIDs []string) (map[string]bool, error)
}
