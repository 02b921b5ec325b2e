package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/model"
)

const commentColumns = `id, post_id, author_uid, author_name, content, likes_count, created_at`

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a new comment. Uses transaction for atomic counter update.
func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) (*model.Comment, error) {
	query := `
		INSERT INTO comments (post_id, author_uid, author_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + commentColumns

	var out model.Comment
	err := tx.GetContext(ctx, &out, query, comment.PostID, comment.AuthorUID, comment.AuthorName, comment.Content)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &out, nil
}

// ListByPost returns all comments of a post, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 ORDER BY created_at ASC, id ASC`

	comments := []model.Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
