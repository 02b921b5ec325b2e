package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/model"
	"blogcristao/internal/queue"
	"blogcristao/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	likeRepo    repository.LikeRepository
	publisher   queue.Publisher
	db          *sqlx.DB
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	publisher queue.Publisher,
	db *sqlx.DB,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		likeRepo:    likeRepo,
		publisher:   publisher,
		db:          db,
	}
}

// Create adds a comment and bumps the post's comment counter in one transaction.
func (s *CommentService) Create(ctx context.Context, postID, authorUID string, req model.CreateCommentRequest) (*model.Comment, error) {
	if authorUID == "" {
		return nil, model.ErrAuthRequired
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, model.ErrCommentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return nil, model.ErrCommentTooLong
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	authorName := model.DefaultUserName
	author, err := s.userRepo.GetByUID(ctx, authorUID)
	switch {
	case err == nil:
		authorName = author.DisplayName()
	case !errors.Is(err, model.ErrUserNotFound):
		log.Printf("[CommentService] Failed to load author=%s, using default name: %v", authorUID, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	comment, err := s.commentRepo.Create(ctx, tx, &model.Comment{
		PostID:     postID,
		AuthorUID:  authorUID,
		AuthorName: authorName,
		Content:    content,
	})
	if err != nil {
		return nil, err
	}

	if err := s.postRepo.IncrementCommentCount(ctx, tx, postID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	queue.PublishBestEffort(ctx, s.publisher, "CommentService",
		queue.NewCommentCreatedEvent(postID, comment.ID, post.AuthorUID, authorUID))

	comment.LikedByUser = false
	return comment, nil
}

// List returns the comments of a post, oldest first, with likedByUser for the viewer.
func (s *CommentService) List(ctx context.Context, postID, viewerUID string) (*model.CommentListResponse, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if viewerUID != "" && len(comments) > 0 {
		ids := make([]string, len(comments))
		for i := range comments {
			ids[i] = comments[i].ID
		}
		liked, err := s.likeRepo.CheckLikes(ctx, model.EntityComment, viewerUID, ids)
		if err != nil {
			log.Printf("[CommentService] Failed to check like status: post=%s err=%v", postID, err)
		} else {
			for i := range comments {
				comments[i].LikedByUser = liked[comments[i].ID]
			}
		}
	}

	return &model.CommentListResponse{Comments: comments}, nil
}
