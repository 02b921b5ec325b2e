package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/feed"
	"blogcristao/internal/model"
)

const postColumns = `id, author_uid, title, content, excerpt, featured_image_url, image_public_id,
	likes_count, comments_count, created_at`

// planColumns maps plan fields to columns.
var planColumns = map[string]string{
	feed.FieldAuthorUID: "author_uid",
	feed.FieldCreatedAt: "created_at",
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a post. id and created_at are assigned by the database.
func (r *postRepository) Create(ctx context.Context, post *model.PostFields) (*model.PostRecord, error) {
	query := `
		INSERT INTO posts (author_uid, title, content, excerpt, featured_image_url, image_public_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + postColumns

	var rec model.PostRecord
	err := r.db.GetContext(ctx, &rec, query,
		post.AuthorUID, post.Title, post.Content, post.Excerpt, post.FeaturedImageURL, post.ImagePublicID)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &rec, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID string) (*model.PostRecord, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	var rec model.PostRecord
	err := r.db.GetContext(ctx, &rec, query, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &rec, nil
}

// Query executes a feed plan.
func (r *postRepository) Query(ctx context.Context, plan feed.Plan) ([]model.PostRecord, error) {
	query, args, err := buildPostQuery(plan)
	if err != nil {
		return nil, err
	}

	var records []model.PostRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return records, nil
}

// buildPostQuery translates a plan into SQL. The cursor is compared as a
// (created_at, id) tuple so posts sharing a timestamp are neither skipped
// nor repeated across pages.
func buildPostQuery(plan feed.Plan) (string, []interface{}, error) {
	var (
		where []string
		args  []interface{}
	)

	for _, f := range plan.Filters {
		col, ok := planColumns[f.Field]
		if !ok || f.Op != feed.OpEquals {
			return "", nil, fmt.Errorf("unsupported filter %s %s", f.Field, f.Op)
		}
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	orderCol, ok := planColumns[plan.OrderBy.Field]
	if !ok {
		return "", nil, fmt.Errorf("unsupported order field %q", plan.OrderBy.Field)
	}
	dir, cmp := "ASC", ">"
	if plan.OrderBy.Desc {
		dir, cmp = "DESC", "<"
	}

	if plan.StartAfter != nil {
		args = append(args, plan.StartAfter.CreatedAt, plan.StartAfter.ID)
		where = append(where, fmt.Sprintf("(%s, id) %s ($%d, $%d)", orderCol, cmp, len(args)-1, len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(postColumns)
	b.WriteString(" FROM posts")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", orderCol, dir, dir)

	args = append(args, plan.Limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))

	return b.String(), args, nil
}

// IncrementCommentCount atomically adjusts comments_count. Must be called within a transaction.
func (r *postRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID string, delta int) error {
	query := `UPDATE posts SET comments_count = GREATEST(comments_count + $1, 0) WHERE id = $2`
	result, err := tx.ExecContext(ctx, query, delta, postID)
	if err != nil {
		return fmt.Errorf("increment comment count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// Delete removes a post and everything under it. Must be called within a transaction.
// The post row and its comment rows are locked first, the same rows a like
// toggle locks, so a like either commits before the cascade or finds the
// post gone.
func (r *postRepository) Delete(ctx context.Context, tx *sqlx.Tx, postID string) error {
	var lockedID string
	err := tx.GetContext(ctx, &lockedID, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("lock post: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT id FROM comments WHERE post_id = $1 FOR UPDATE`, postID); err != nil {
		return fmt.Errorf("lock comments: %w", err)
	}

	cascade := []struct {
		what  string
		query string
	}{
		{"comment likes", `DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = $1)`},
		{"comments", `DELETE FROM comments WHERE post_id = $1`},
		{"post likes", `DELETE FROM post_likes WHERE post_id = $1`},
	}
	for _, step := range cascade {
		if _, err := tx.ExecContext(ctx, step.query, postID); err != nil {
			return fmt.Errorf("delete %s: %w", step.what, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}
