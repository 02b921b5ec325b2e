package model

import (
	"errors"
	"time"
)

// Comment is a comment on a post. AuthorName is copied at creation time.
type Comment struct {
	ID          string    `db:"id" json:"id"`
	PostID      string    `db:"post_id" json:"postId"`
	AuthorUID   string    `db:"author_uid" json:"authorUID"`
	AuthorName  string    `db:"author_name" json:"authorName"`
	Content     string    `db:"content" json:"content"`
	LikesCount  int       `db:"likes_count" json:"likesCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	LikedByUser bool      `db:"-" json:"likedByUser"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// CommentListResponse lists the comments of a post, oldest first.
type CommentListResponse struct {
	Comments []Comment `json:"comments"`
}

const MaxCommentLength = 700

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrCommentRequired = errors.New("comment content is required")
	ErrCommentTooLong  = errors.New("comment content too long")
)
