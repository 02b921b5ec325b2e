package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the blog stream
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostLiked      = "post_liked"
	EventPostUnliked    = "post_unliked"
	EventCommentCreated = "comment_created"
	EventCommentLiked   = "comment_liked"
)

// Stream names
const (
	StreamBlog = "stream:blog"
)

// Consumer group of the workers that refresh caches and live feeds.
const (
	ConsumerGroupLive = "live_workers"
)

// BlogEvent is a change to a post or one of its children.
type BlogEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix seconds

	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`

	// AuthorUID owns the post, so author feeds can be refreshed.
	AuthorUID string `json:"author_uid,omitempty"`
	// ActorUID performed the change.
	ActorUID string `json:"actor_uid,omitempty"`

	// Liked is the membership after a comment like toggle.
	Liked bool `json:"liked,omitempty"`
}

func NewPostCreatedEvent(postID, authorUID string) BlogEvent {
	return BlogEvent{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorUID: authorUID,
		ActorUID:  authorUID,
	}
}

func NewPostDeletedEvent(postID, authorUID string) BlogEvent {
	return BlogEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorUID: authorUID,
		ActorUID:  authorUID,
	}
}

// NewPostLikeEvent returns post_liked or post_unliked depending on liked.
func NewPostLikeEvent(postID, authorUID, actorUID string, liked bool) BlogEvent {
	eventType := EventPostUnliked
	if liked {
		eventType = EventPostLiked
	}
	return BlogEvent{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorUID: authorUID,
		ActorUID:  actorUID,
	}
}

func NewCommentCreatedEvent(postID, commentID, postAuthorUID, actorUID string) BlogEvent {
	return BlogEvent{
		Type:      EventCommentCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		AuthorUID: postAuthorUID,
		ActorUID:  actorUID,
	}
}

func NewCommentLikedEvent(postID, commentID, actorUID string, liked bool) BlogEvent {
	return BlogEvent{
		Type:      EventCommentLiked,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		ActorUID:  actorUID,
		Liked:     liked,
	}
}

// ToMap converts the event to XADD field-value pairs. The whole event is
// stored as JSON in "data"; "type" is duplicated for XRANGE inspection.
func (e BlogEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseBlogEvent parses a BlogEvent from stream message values.
func ParseBlogEvent(values map[string]interface{}) (BlogEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return BlogEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event BlogEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return BlogEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" || event.PostID == "" {
		return BlogEvent{}, fmt.Errorf("event without type or post id")
	}
	return event, nil
}
