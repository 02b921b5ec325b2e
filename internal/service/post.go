package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"blogcristao/internal/cache"
	"blogcristao/internal/feed"
	"blogcristao/internal/model"
	"blogcristao/internal/queue"
	"blogcristao/internal/repository"
)

// FeedAssembler builds feed pages.
type FeedAssembler interface {
	Assemble(ctx context.Context, plan feed.Plan) (*model.FeedPage, error)
	AssembleFor(ctx context.Context, plan feed.Plan, viewerUID string) (*model.FeedPage, error)
}

// ImageDestroyer removes a hosted image by its public id.
type ImageDestroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	likeRepo  repository.LikeRepository
	assembler FeedAssembler
	publisher queue.Publisher
	db        *sqlx.DB

	pages    cache.PageCache
	images   ImageDestroyer
	pageSize int
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	assembler FeedAssembler,
	publisher queue.Publisher,
	db *sqlx.DB,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		likeRepo:  likeRepo,
		assembler: assembler,
		publisher: publisher,
		db:        db,
		pageSize:  feed.DefaultPageSize,
	}
}

// SetPageCache enables the first page cache.
func (s *PostService) SetPageCache(pages cache.PageCache) {
	s.pages = pages
}

// SetImageHost sets where featured images are destroyed on delete.
func (s *PostService) SetImageHost(images ImageDestroyer) {
	s.images = images
}

// SetPageSize sets the default feed page size.
func (s *PostService) SetPageSize(size int) {
	s.pageSize = feed.ClampPageSize(size)
}

// PageSize is the default feed page size.
func (s *PostService) PageSize() int {
	return s.pageSize
}

// Create validates and stores a new post, then publishes post_created.
func (s *PostService) Create(ctx context.Context, authorUID string, req model.CreatePostRequest) (*model.PostWithUser, error) {
	if authorUID == "" {
		return nil, model.ErrAuthRequired
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	switch {
	case title == "":
		return nil, model.ErrTitleRequired
	case utf8.RuneCountInString(title) > model.MaxTitleLength:
		return nil, model.ErrTitleTooLong
	case content == "":
		return nil, model.ErrContentRequired
	case utf8.RuneCountInString(content) > model.MaxContentLength:
		return nil, model.ErrContentTooLong
	}

	imageURL := strings.TrimSpace(req.FeaturedImageURL)
	publicID := strings.TrimSpace(req.ImagePublicID)
	if (imageURL == "") != (publicID == "") {
		return nil, model.ErrImageIncomplete
	}

	fields := &model.PostFields{
		AuthorUID: authorUID,
		Title:     title,
		Content:   content,
		Excerpt:   model.MakeExcerpt(content),
	}
	if imageURL != "" {
		fields.FeaturedImageURL = &imageURL
		fields.ImagePublicID = &publicID
	}

	rec, err := s.postRepo.Create(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	log.Printf("[PostService] Created post=%s author=%s", rec.ID, authorUID)

	queue.PublishBestEffort(ctx, s.publisher, "PostService", queue.NewPostCreatedEvent(rec.ID, authorUID))

	post := feed.ToPostWithUser(*rec, s.lookupAuthor(ctx, authorUID))
	return &post, nil
}

// Get returns one post with its author and, for a viewer, likedByUser.
func (s *PostService) Get(ctx context.Context, postID, viewerUID string) (*model.PostWithUser, error) {
	rec, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	post := feed.ToPostWithUser(*rec, s.lookupAuthor(ctx, rec.AuthorUID))

	if viewerUID != "" {
		liked, err := s.likeRepo.CheckLikes(ctx, model.EntityPost, viewerUID, []string{postID})
		if err != nil {
			log.Printf("[PostService] Failed to check like status: post=%s err=%v", postID, err)
		} else {
			post.LikedByUser = liked[postID]
		}
	}

	return &post, nil
}

// List returns one feed page. An anonymous first page at the default size
// goes through the page cache; viewer likes are overlaid afterwards.
func (s *PostService) List(ctx context.Context, authorUID, cursor string, limit int, viewerUID string) (*model.FeedPage, error) {
	var after *feed.Cursor
	if cursor != "" {
		c, err := feed.ParseCursor(cursor)
		if err != nil {
			return nil, err
		}
		after = c
	}

	if limit <= 0 {
		limit = s.pageSize
	}
	plan := feed.NewPlan(authorUID, limit, after)

	if after != nil || plan.Limit != s.pageSize || s.pages == nil {
		return s.assembler.AssembleFor(ctx, plan, viewerUID)
	}

	page, hit, err := s.pages.Get(ctx, authorUID)
	if err != nil {
		log.Printf("[PostService] Page cache read failed, assembling: author=%q err=%v", authorUID, err)
	}
	if !hit {
		page, err = s.assembler.Assemble(ctx, plan)
		if err != nil {
			return nil, err
		}
		if err := s.pages.Set(ctx, authorUID, page); err != nil {
			log.Printf("[PostService] Page cache write failed: author=%q err=%v", authorUID, err)
		}
	}

	return s.withViewerLikes(ctx, page, viewerUID), nil
}

func (s *PostService) withViewerLikes(ctx context.Context, page *model.FeedPage, viewerUID string) *model.FeedPage {
	if viewerUID == "" || len(page.Posts) == 0 {
		return page
	}

	ids := make([]string, len(page.Posts))
	for i, p := range page.Posts {
		ids[i] = p.ID
	}
	liked, err := s.likeRepo.CheckLikes(ctx, model.EntityPost, viewerUID, ids)
	if err != nil {
		log.Printf("[PostService] Failed to check like status: viewer=%s err=%v", viewerUID, err)
		return page
	}

	out := *page
	out.Posts = make([]model.PostWithUser, len(page.Posts))
	for i, p := range page.Posts {
		p.LikedByUser = liked[p.ID]
		out.Posts[i] = p
	}
	return &out
}

// Delete removes a post owned by callerUID. The featured image is destroyed
// first; if that fails nothing is deleted.
func (s *PostService) Delete(ctx context.Context, callerUID string, req model.DeletePostRequest) error {
	if callerUID == "" {
		return model.ErrAuthRequired
	}
	if req.PostID == "" {
		return model.ErrPostNotFound
	}

	rec, err := s.postRepo.GetByID(ctx, req.PostID)
	if err != nil {
		return err
	}
	if rec.AuthorUID != callerUID {
		log.Printf("[PostService] Delete denied: post=%s owner=%s caller=%s", rec.ID, rec.AuthorUID, callerUID)
		return model.ErrNotPostOwner
	}

	publicID := ""
	if rec.ImagePublicID != nil {
		publicID = *rec.ImagePublicID
	}
	if req.ImagePublicID != "" && req.ImagePublicID != publicID {
		log.Printf("[PostService] Ignoring imagePublicId=%q for post=%s, stored=%q", req.ImagePublicID, rec.ID, publicID)
	}

	if publicID != "" {
		if s.images == nil {
			return model.ErrMediaUnavailable
		}
		if err := s.images.Destroy(ctx, publicID); err != nil {
			return fmt.Errorf("destroy image: %w", err)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Delete(ctx, tx, rec.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	log.Printf("[PostService] Deleted post=%s author=%s", rec.ID, callerUID)

	queue.PublishBestEffort(ctx, s.publisher, "PostService", queue.NewPostDeletedEvent(rec.ID, callerUID))
	return nil
}

// lookupAuthor returns nil when the profile is missing or cannot be read.
func (s *PostService) lookupAuthor(ctx context.Context, uid string) *model.User {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			log.Printf("[PostService] Failed to load author=%s: %v", uid, err)
		}
		return nil
	}
	return user
}
