package service

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"blogcristao/internal/feed"
	"blogcristao/internal/model"
	"blogcristao/internal/queue"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================

type mockUserRepository struct {
	upsertFn    func(ctx context.Context, user *model.User) (*model.User, error)
	getByUIDFn  func(ctx context.Context, uid string) (*model.User, error)
	getByUIDsFn func(ctx context.Context, uids []string) (map[string]*model.User, error)

	upsertCalls []*model.User
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	m.upsertCalls = append(m.upsertCalls, user)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, user)
	}
	out := *user
	return &out, nil
}

func (m *mockUserRepository) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	if m.getByUIDFn != nil {
		return m.getByUIDFn(ctx, uid)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUIDs(ctx context.Context, uids []string) (map[string]*model.User, error) {
	if m.getByUIDsFn != nil {
		return m.getByUIDsFn(ctx, uids)
	}
	return map[string]*model.User{}, nil
}

type mockPostRepository struct {
	createFn    func(ctx context.Context, post *model.PostFields) (*model.PostRecord, error)
	getByIDFn   func(ctx context.Context, postID string) (*model.PostRecord, error)
	queryFn     func(ctx context.Context, plan feed.Plan) ([]model.PostRecord, error)
	incrementFn func(ctx context.Context, tx *sqlx.Tx, postID string, delta int) error
	deleteFn    func(ctx context.Context, tx *sqlx.Tx, postID string) error

	createCalls    []*model.PostFields
	incrementCalls []int
	deleteCalls    []string
}

func (m *mockPostRepository) Create(ctx context.Context, post *model.PostFields) (*model.PostRecord, error) {
	m.createCalls = append(m.createCalls, post)
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	rec := &model.PostRecord{PostFields: *post}
	rec.ID = "new-post"
	return rec, nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID string) (*model.PostRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) Query(ctx context.Context, plan feed.Plan) ([]model.PostRecord, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, plan)
	}
	return nil, nil
}

func (m *mockPostRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID string, delta int) error {
	m.incrementCalls = append(m.incrementCalls, delta)
	if m.incrementFn != nil {
		return m.incrementFn(ctx, tx, postID, delta)
	}
	return nil
}

func (m *mockPostRepository) Delete(ctx context.Context, tx *sqlx.Tx, postID string) error {
	m.deleteCalls = append(m.deleteCalls, postID)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tx, postID)
	}
	return nil
}

type mockCommentRepository struct {
	createFn     func(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) (*model.Comment, error)
	listByPostFn func(ctx context.Context, postID string) ([]model.Comment, error)

	createCalls []*model.Comment
}

func (m *mockCommentRepository) Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) (*model.Comment, error) {
	m.createCalls = append(m.createCalls, comment)
	if m.createFn != nil {
		return m.createFn(ctx, tx, comment)
	}
	out := *comment
	out.ID = "new-comment"
	return &out, nil
}

func (m *mockCommentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	if m.listByPostFn != nil {
		return m.listByPostFn(ctx, postID)
	}
	return []model.Comment{}, nil
}

type mockLikeRepository struct {
	toggleFn     func(ctx context.Context, tx *sqlx.Tx, target model.LikeTarget, userUID string) (*model.LikeResult, error)
	checkLikesFn func(ctx context.Context, kind model.EntityKind, userUID string, ids []string) (map[string]bool, error)

	toggleCalls     int
	checkLikesCalls int
}

func (m *mockLikeRepository) Toggle(ctx context.Context, tx *sqlx.Tx, target model.LikeTarget, userUID string) (*model.LikeResult, error) {
	m.toggleCalls++
	if m.toggleFn != nil {
		return m.toggleFn(ctx, tx, target, userUID)
	}
	return &model.LikeResult{Liked: true, LikesCount: 1}, nil
}

func (m *mockLikeRepository) CheckLikes(ctx context.Context, kind model.EntityKind, userUID string, ids []string) (map[string]bool, error) {
	m.checkLikesCalls++
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, kind, userUID, ids)
	}
	return map[string]bool{}, nil
}

// =============================================================================
// MOCK COLLABORATORS
// =============================================================================

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.BlogEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.BlogEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return "1-0", nil
}

func (m *mockPublisher) published() []queue.BlogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]queue.BlogEvent(nil), m.events...)
}

type mockAssembler struct {
	assembleFn func(ctx context.Context, plan feed.Plan, viewerUID string) (*model.FeedPage, error)

	plans   []feed.Plan
	viewers []string
}

func (m *mockAssembler) Assemble(ctx context.Context, plan feed.Plan) (*model.FeedPage, error) {
	return m.AssembleFor(ctx, plan, "")
}

func (m *mockAssembler) AssembleFor(ctx context.Context, plan feed.Plan, viewerUID string) (*model.FeedPage, error) {
	m.plans = append(m.plans, plan)
	m.viewers = append(m.viewers, viewerUID)
	if m.assembleFn != nil {
		return m.assembleFn(ctx, plan, viewerUID)
	}
	return &model.FeedPage{Posts: []model.PostWithUser{}}, nil
}

type mockPageCache struct {
	pages    map[string]*model.FeedPage
	getCalls int
	setCalls int
}

func (m *mockPageCache) Get(ctx context.Context, authorUID string) (*model.FeedPage, bool, error) {
	m.getCalls++
	page, ok := m.pages[authorUID]
	return page, ok, nil
}

func (m *mockPageCache) Set(ctx context.Context, authorUID string, page *model.FeedPage) error {
	m.setCalls++
	if m.pages == nil {
		m.pages = map[string]*model.FeedPage{}
	}
	m.pages[authorUID] = page
	return nil
}

func (m *mockPageCache) Invalidate(ctx context.Context, authorUIDs ...string) error {
	for _, uid := range authorUIDs {
		delete(m.pages, uid)
	}
	return nil
}

type mockImageHost struct {
	uploadFn  func(ctx context.Context, data []byte, contentType, folder string) (*model.UploadResult, error)
	destroyFn func(ctx context.Context, publicID string) error

	uploaded  [][]byte
	folders   []string
	destroyed []string
}

func (m *mockImageHost) Upload(ctx context.Context, data []byte, contentType, folder string) (*model.UploadResult, error) {
	m.uploaded = append(m.uploaded, data)
	m.folders = append(m.folders, folder)
	if m.uploadFn != nil {
		return m.uploadFn(ctx, data, contentType, folder)
	}
	return &model.UploadResult{URL: "https://cdn.example.com/" + folder + "/img", PublicID: folder + "/img"}, nil
}

func (m *mockImageHost) Destroy(ctx context.Context, publicID string) error {
	m.destroyed = append(m.destroyed, publicID)
	if m.destroyFn != nil {
		return m.destroyFn(ctx, publicID)
	}
	return nil
}

// newMockDB returns a sqlx handle whose transactions are scripted by the test.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(s string) *string { return &s }
