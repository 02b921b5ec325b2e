package model

import "errors"

// EntityKind names the two likeable entities.
type EntityKind string

const (
	EntityPost    EntityKind = "post"
	EntityComment EntityKind = "comment"
)

// LikeTarget identifies a post, or a comment under a post.
type LikeTarget struct {
	Kind      EntityKind
	PostID    string
	CommentID string
}

// PostTarget returns the like target for a post.
func PostTarget(postID string) LikeTarget {
	return LikeTarget{Kind: EntityPost, PostID: postID}
}

// CommentTarget returns the like target for a comment of a post.
func CommentTarget(postID, commentID string) LikeTarget {
	return LikeTarget{Kind: EntityComment, PostID: postID, CommentID: commentID}
}

// EntityID is the id of the liked row.
func (t LikeTarget) EntityID() string {
	if t.Kind == EntityComment {
		return t.CommentID
	}
	return t.PostID
}

// Validate checks that the target names an entity.
func (t LikeTarget) Validate() error {
	switch t.Kind {
	case EntityPost:
		if t.PostID == "" {
			return ErrInvalidLikeTarget
		}
	case EntityComment:
		if t.PostID == "" || t.CommentID == "" {
			return ErrInvalidLikeTarget
		}
	default:
		return ErrInvalidLikeTarget
	}
	return nil
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`

	// AuthorUID owns the liked entity; used for change notifications.
	AuthorUID string `json:"-"`
}

// Like errors
var (
	ErrAuthRequired      = errors.New("must be logged in")
	ErrInvalidLikeTarget = errors.New("invalid like target")
)
