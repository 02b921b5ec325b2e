package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"blogcristao/internal/model"
	"blogcristao/internal/observability"
	"blogcristao/internal/retry"
)

// PostSource executes a plan against storage.
type PostSource interface {
	Query(ctx context.Context, plan Plan) ([]model.PostRecord, error)
}

// AuthorSource resolves many profiles in one round trip.
type AuthorSource interface {
	GetByUIDs(ctx context.Context, uids []string) (map[string]*model.User, error)
}

// LikeChecker reports which of the given entities a user currently likes.
type LikeChecker interface {
	CheckLikes(ctx context.Context, kind model.EntityKind, userUID string, entityIDs []string) (map[string]bool, error)
}

// Assembler executes plans and joins posts to their authors.
type Assembler struct {
	posts   PostSource
	authors AuthorSource
	likes   LikeChecker
	retry   retry.Policy
	now     func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLikeChecker enables likedByUser enrichment for viewers.
func WithLikeChecker(likes LikeChecker) Option {
	return func(a *Assembler) { a.likes = likes }
}

// WithRetry sets the retry policy for storage calls.
func WithRetry(p retry.Policy) Option {
	return func(a *Assembler) { a.retry = p }
}

// WithClock overrides the clock used for timestamp fallbacks.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an Assembler.
func NewAssembler(posts PostSource, authors AuthorSource, opts ...Option) *Assembler {
	a := &Assembler{
		posts:   posts,
		authors: authors,
		retry:   retry.DefaultPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds one anonymous page.
func (a *Assembler) Assemble(ctx context.Context, plan Plan) (*model.FeedPage, error) {
	return a.AssembleFor(ctx, plan, "")
}

// AssembleFor builds one page and, when viewerUID is set, marks the posts the
// viewer likes. Only a failure to load posts is returned as an error; author
// and like lookups degrade to empty values.
func (a *Assembler) AssembleFor(ctx context.Context, plan Plan, viewerUID string) (*model.FeedPage, error) {
	startTime := time.Now()

	records, err := retry.Do(ctx, a.retry, func() ([]model.PostRecord, error) {
		return a.posts.Query(ctx, plan)
	})
	if err != nil {
		observability.FeedAssembleDuration.WithLabelValues("error").Observe(time.Since(startTime).Seconds())
		log.Printf("[FeedAssembler] Query FAILED: author=%q err=%v", plan.AuthorUID(), err)
		return nil, fmt.Errorf("%w: %w", model.ErrFeedUnavailable, err)
	}

	authors := a.lookupAuthors(ctx, records)
	liked := a.lookupLikes(ctx, records, viewerUID)

	now := a.now()
	posts := make([]model.PostWithUser, 0, len(records))
	// The cursor only ever holds a stored creation time; a fallback "now"
	// would point past every real post.
	var last *Cursor
	for _, rec := range records {
		post, createdAt, ok := toPostWithUser(rec, authors[rec.AuthorUID], now)
		post.LikedByUser = liked[rec.ID]
		posts = append(posts, post)
		if ok {
			last = &Cursor{CreatedAt: createdAt, ID: rec.ID}
		}
	}

	page := &model.FeedPage{
		Posts:   posts,
		HasMore: last != nil && plan.Limit > 0 && len(records) == plan.Limit,
	}
	if last != nil {
		next := last.Encode()
		page.NextCursor = &next
	}

	observability.FeedAssembleDuration.WithLabelValues("ok").Observe(time.Since(startTime).Seconds())
	log.Printf("[FeedAssembler] Assemble OK: author=%q posts=%d authors=%d hasMore=%v duration=%v",
		plan.AuthorUID(), len(posts), len(authors), page.HasMore, time.Since(startTime))

	return page, nil
}

// lookupAuthors resolves every distinct author on the page with one batch call.
func (a *Assembler) lookupAuthors(ctx context.Context, records []model.PostRecord) map[string]*model.User {
	seen := make(map[string]struct{}, len(records))
	uids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.AuthorUID == "" {
			continue
		}
		if _, ok := seen[rec.AuthorUID]; ok {
			continue
		}
		seen[rec.AuthorUID] = struct{}{}
		uids = append(uids, rec.AuthorUID)
	}
	if len(uids) == 0 {
		return nil
	}

	authors, err := retry.Do(ctx, a.retry, func() (map[string]*model.User, error) {
		return a.authors.GetByUIDs(ctx, uids)
	})
	if err != nil {
		observability.FeedAuthorLookupFailures.Inc()
		log.Printf("[FeedAssembler] WARN author lookup failed, serving page without profiles: uids=%d err=%v", len(uids), err)
		return nil
	}
	return authors
}

func (a *Assembler) lookupLikes(ctx context.Context, records []model.PostRecord, viewerUID string) map[string]bool {
	if viewerUID == "" || a.likes == nil || len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	liked, err := a.likes.CheckLikes(ctx, model.EntityPost, viewerUID, ids)
	if err != nil {
		log.Printf("[FeedAssembler] WARN like lookup failed: viewer=%s err=%v", viewerUID, err)
		return nil
	}
	return liked
}

// ToPostWithUser converts a single record, falling back to now for a
// malformed creation time.
func ToPostWithUser(rec model.PostRecord, author *model.User) model.PostWithUser {
	post, _, _ := toPostWithUser(rec, author, time.Now())
	return post
}

func toPostWithUser(rec model.PostRecord, author *model.User, now time.Time) (model.PostWithUser, time.Time, bool) {
	iso, createdAt, ok := NormalizeTimestamp(rec.CreatedAt, now)
	if !ok {
		observability.MalformedTimestamps.Inc()
		log.Printf("[FeedAssembler] WARN malformed createdAt on post=%s (%T), using now", rec.ID, rec.CreatedAt)
	}
	return model.PostWithUser{
		PostFields: rec.PostFields,
		CreatedAt:  iso,
		User:       author,
	}, createdAt, ok
}
