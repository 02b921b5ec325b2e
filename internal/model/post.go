package model

import "errors"

// PostFields holds the stored columns of a post except its creation time.
type PostFields struct {
	ID               string  `db:"id" json:"id"`
	AuthorUID        string  `db:"author_uid" json:"authorUID"`
	Title            string  `db:"title" json:"title"`
	Content          string  `db:"content" json:"content"`
	Excerpt          string  `db:"excerpt" json:"excerpt"`
	FeaturedImageURL *string `db:"featured_image_url" json:"featuredImageUrl,omitempty"`
	ImagePublicID    *string `db:"image_public_id" json:"imagePublicId,omitempty"`
	LikesCount       int     `db:"likes_count" json:"likesCount"`
	CommentsCount    int     `db:"comments_count" json:"commentsCount"`
}

// PostRecord is a post as read from storage or a cache.
// CreatedAt keeps whatever shape the source produced (time.Time, string, nil, ...)
// and is normalized by the feed assembler.
type PostRecord struct {
	PostFields
	CreatedAt interface{} `db:"created_at"`
}

// PostWithUser is a post enriched with its author's profile.
type PostWithUser struct {
	PostFields
	CreatedAt   string `json:"createdAt"`
	User        *User  `json:"user,omitempty"`
	LikedByUser bool   `json:"likedByUser"`
}

// FeedPage is one page of the post feed.
type FeedPage struct {
	Posts      []PostWithUser `json:"posts"`
	NextCursor *string        `json:"nextCursor"`
	HasMore    bool           `json:"hasMore"`
}

// CreatePostRequest is the request body for creating a post.
// The image is uploaded first through /api/upload.
type CreatePostRequest struct {
	Title            string `json:"title" validate:"required"`
	Content          string `json:"content" validate:"required"`
	FeaturedImageURL string `json:"featuredImageUrl" validate:"omitempty,url"`
	ImagePublicID    string `json:"imagePublicId" validate:"required_with=FeaturedImageURL"`
}

// DeletePostRequest is the request body for POST /api/delete.
type DeletePostRequest struct {
	PostID        string `json:"postId" validate:"required"`
	ImagePublicID string `json:"imagePublicId"`
}

// Post constants
const (
	MaxTitleLength   = 200
	MaxContentLength = 700
	ExcerptLength    = 200
	ExcerptSuffix    = "..."
)

// Post errors
var (
	ErrPostNotFound     = errors.New("post not found")
	ErrNotPostOwner     = errors.New("not the owner of this post")
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title too long")
	ErrContentRequired  = errors.New("content is required")
	ErrContentTooLong   = errors.New("content too long")
	ErrImageIncomplete  = errors.New("image url and public id must be provided together")
	ErrFeedUnavailable  = errors.New("failed to load posts")
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrMediaUnavailable = errors.New("image hosting is not configured")
)

// MakeExcerpt returns the first ExcerptLength characters of content,
// followed by ExcerptSuffix when content was truncated.
func MakeExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= ExcerptLength {
		return content
	}
	return string(runes[:ExcerptLength]) + ExcerptSuffix
}
