package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/model"
	"blogcristao/internal/observability"
	"blogcristao/internal/queue"
	"blogcristao/internal/repository"
	"blogcristao/internal/retry"
)

// LikeService toggles likes on posts and comments.
type LikeService struct {
	likeRepo  repository.LikeRepository
	db        *sqlx.DB
	publisher queue.Publisher
	retry     retry.Policy
}

func NewLikeService(likeRepo repository.LikeRepository, db *sqlx.DB, publisher queue.Publisher) *LikeService {
	return &LikeService{
		likeRepo:  likeRepo,
		db:        db,
		publisher: publisher,
		retry:     retry.DefaultPolicy(),
	}
}

// SetRetryPolicy overrides the retry policy for transient database errors.
func (s *LikeService) SetRetryPolicy(p retry.Policy) {
	s.retry = p
}

// Toggle flips the user's like on the target. The direction is decided from
// the stored membership inside the transaction, never from client state.
func (s *LikeService) Toggle(ctx context.Context, target model.LikeTarget, userUID string) (*model.LikeResult, error) {
	if userUID == "" {
		observability.LikeToggles.WithLabelValues(string(target.Kind), "unauthenticated").Inc()
		return nil, model.ErrAuthRequired
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	result, err := retry.Do(ctx, s.retry, func() (*model.LikeResult, error) {
		res, err := s.toggleOnce(ctx, target, userUID)
		if err != nil && isPermanentLikeError(err) {
			return nil, retry.Permanent(err)
		}
		return res, err
	})
	if err != nil {
		observability.LikeToggles.WithLabelValues(string(target.Kind), "error").Inc()
		if !isPermanentLikeError(err) {
			log.Printf("[LikeService] Toggle FAILED: kind=%s id=%s user=%s err=%v",
				target.Kind, target.EntityID(), userUID, err)
		}
		return nil, err
	}

	outcome := "unliked"
	if result.Liked {
		outcome = "liked"
	}
	observability.LikeToggles.WithLabelValues(string(target.Kind), outcome).Inc()
	log.Printf("[LikeService] User %s %s %s %s (count=%d)", userUID, outcome, target.Kind, target.EntityID(), result.LikesCount)

	var event queue.BlogEvent
	if target.Kind == model.EntityComment {
		event = queue.NewCommentLikedEvent(target.PostID, target.CommentID, userUID, result.Liked)
	} else {
		event = queue.NewPostLikeEvent(target.PostID, result.AuthorUID, userUID, result.Liked)
	}
	queue.PublishBestEffort(ctx, s.publisher, "LikeService", event)

	return result, nil
}

func (s *LikeService) toggleOnce(ctx context.Context, target model.LikeTarget, userUID string) (*model.LikeResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := s.likeRepo.Toggle(ctx, tx, target, userUID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

func isPermanentLikeError(err error) bool {
	return errors.Is(err, model.ErrPostNotFound) ||
		errors.Is(err, model.ErrCommentNotFound) ||
		errors.Is(err, model.ErrInvalidLikeTarget) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
