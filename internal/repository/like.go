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

// likeTable describes where an entity kind keeps its memberships and counter.
type likeTable struct {
	likes    string // membership table
	fk       string // membership column referencing the entity
	parent   string // entity table holding likes_count
	lock     string // locks the entity row and returns its author
	notFound error
}

var likeTables = map[model.EntityKind]likeTable{
	model.EntityPost: {
		likes:    "post_likes",
		fk:       "post_id",
		parent:   "posts",
		lock:     `SELECT author_uid FROM posts WHERE id = $1 FOR UPDATE`,
		notFound: model.ErrPostNotFound,
	},
	model.EntityComment: {
		likes:    "comment_likes",
		fk:       "comment_id",
		parent:   "comments",
		lock:     `SELECT author_uid FROM comments WHERE id = $1 AND post_id = $2 FOR UPDATE`,
		notFound: model.ErrCommentNotFound,
	},
}

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle must be called within a transaction. The entity row is locked first,
// so toggles on one entity apply one after another and the counter moves by
// exactly one per applied membership change.
func (r *likeRepository) Toggle(ctx context.Context, tx *sqlx.Tx, target model.LikeTarget, userUID string) (*model.LikeResult, error) {
	lt, ok := likeTables[target.Kind]
	if !ok {
		return nil, model.ErrInvalidLikeTarget
	}
	entityID := target.EntityID()

	lockArgs := []interface{}{entityID}
	if target.Kind == model.EntityComment {
		lockArgs = append(lockArgs, target.PostID)
	}

	var authorUID string
	err := tx.GetContext(ctx, &authorUID, lt.lock, lockArgs...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lt.notFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", target.Kind, err)
	}

	// Current membership decides the direction.
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND user_uid = $2`, lt.likes, lt.fk)
	result, err := tx.ExecContext(ctx, deleteQuery, entityID, userUID)
	if err != nil {
		return nil, fmt.Errorf("delete like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}

	delta, liked := -1, false
	if removed == 0 {
		insertQuery := fmt.Sprintf(`INSERT INTO %s (%s, user_uid) VALUES ($1, $2) ON CONFLICT DO NOTHING`, lt.likes, lt.fk)
		result, err := tx.ExecContext(ctx, insertQuery, entityID, userUID)
		if err != nil {
			return nil, fmt.Errorf("insert like: %w", err)
		}
		inserted, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("get rows affected: %w", err)
		}
		delta, liked = int(inserted), true
	}

	var count int
	updateQuery := fmt.Sprintf(`UPDATE %s SET likes_count = GREATEST(likes_count + $1, 0) WHERE id = $2 RETURNING likes_count`, lt.parent)
	if err := tx.GetContext(ctx, &count, updateQuery, delta, entityID); err != nil {
		return nil, fmt.Errorf("update like count: %w", err)
	}

	return &model.LikeResult{Liked: liked, LikesCount: count, AuthorUID: authorUID}, nil
}

// CheckLikes returns the subset of entityIDs the user likes.
func (r *likeRepository) CheckLikes(ctx context.Context, kind model.EntityKind, userUID string, entityIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if userUID == "" || len(entityIDs) == 0 {
		return result, nil
	}

	lt, ok := likeTables[kind]
	if !ok {
		return nil, model.ErrInvalidLikeTarget
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_uid = $1 AND %s = ANY($2)`, lt.fk, lt.likes, lt.fk)

	var likedIDs []string
	if err := r.db.SelectContext(ctx, &likedIDs, query, userUID, pq.Array(entityIDs)); err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}

	for _, id := range likedIDs {
		result[id] = true
	}
	return result, nil
}
