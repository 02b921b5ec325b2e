package live

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"blogcristao/internal/feed"
	"blogcristao/internal/model"
)

// DefaultLoadMoreTimeout bounds a single LoadMore fetch.
const DefaultLoadMoreTimeout = 10 * time.Second

var (
	ErrAlreadyStarted = errors.New("synchronizer already started")
	ErrClosed         = errors.New("synchronizer closed")
)

// State is the lifecycle of a Synchronizer.
type State int

const (
	Idle State = iota
	Loading
	Live
	LoadingMore
	Exhausted
	Failed
	Closed
)

var stateNames = [...]string{"idle", "loading", "live", "loading_more", "exhausted", "failed", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PageSource builds feed pages. *feed.Assembler implements it.
type PageSource interface {
	AssembleFor(ctx context.Context, plan feed.Plan, viewerUID string) (*model.FeedPage, error)
}

// Snapshot is the combined view pushed to watchers.
type Snapshot struct {
	State   State                `json:"state"`
	Posts   []model.PostWithUser `json:"posts"`
	HasMore bool                 `json:"hasMore"`
	Error   string               `json:"error,omitempty"`

	Err error `json:"-"`
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithViewer marks the posts the viewer likes.
func WithViewer(uid string) Option {
	return func(s *Synchronizer) { s.viewerUID = uid }
}

func WithLoadMoreTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.loadMoreTimeout = d
		}
	}
}

// WithOnChange registers a callback receiving every snapshot. Calls are
// serialized and never overlap.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Synchronizer) { s.onChange = fn }
}

// Synchronizer owns one watched feed: a live head (the first page, replaced
// on every change notification) followed by a static tail of pages appended
// by LoadMore. Notifications never touch the tail and LoadMore never touches
// the head.
type Synchronizer struct {
	pages           PageSource
	subscriber      Subscriber
	firstPage       feed.Plan
	viewerUID       string
	loadMoreTimeout time.Duration
	onChange        func(Snapshot)

	mu          sync.Mutex
	state       State
	head        []model.PostWithUser
	headNext    string
	headFull    bool
	tail        []model.PostWithUser
	tailNext    string
	loadedPages int
	err         error
	sub         Subscription
	stopRefresh context.CancelFunc

	emitMu sync.Mutex
}

// NewSynchronizer watches all posts (empty authorUID) or one author's posts.
func NewSynchronizer(pages PageSource, subscriber Subscriber, authorUID string, pageSize int, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		pages:           pages,
		subscriber:      subscriber,
		firstPage:       feed.NewPlan(authorUID, pageSize, nil),
		loadMoreTimeout: DefaultLoadMoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to changes and loads the first page. On failure the
// subscription is released, the state becomes Failed and the error is returned.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = Loading
	s.mu.Unlock()
	s.emit()

	// Subscribe first so a change landing during the initial load is not lost.
	sub, err := s.subscriber.Subscribe(ctx, s.firstPage.AuthorUID())
	if err != nil {
		return s.fail(fmt.Errorf("subscribe: %w", err))
	}

	page, err := s.pages.AssembleFor(ctx, s.firstPage, s.viewerUID)
	if err != nil {
		_ = sub.Close()
		return s.fail(err)
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		_ = sub.Close()
		return ErrClosed
	}
	s.sub = sub
	s.setHead(page)
	s.state = s.headState()
	refreshCtx, cancel := context.WithCancel(context.Background())
	s.stopRefresh = cancel
	s.mu.Unlock()

	go s.refreshLoop(refreshCtx, sub)

	log.Printf("[Synchronizer] Started: author=%q posts=%d", s.firstPage.AuthorUID(), len(page.Posts))
	s.emit()
	return nil
}

func (s *Synchronizer) fail(err error) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = Failed
	s.err = err
	s.mu.Unlock()

	log.Printf("[Synchronizer] Start FAILED: author=%q err=%v", s.firstPage.AuthorUID(), err)
	s.emit()
	return err
}

// refreshLoop handles notifications one at a time, in arrival order.
func (s *Synchronizer) refreshLoop(ctx context.Context, sub Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			s.refresh(ctx)
		}
	}
}

// refresh re-assembles the first page and replaces the head. A failed
// refresh keeps the previous head.
func (s *Synchronizer) refresh(ctx context.Context) {
	page, err := s.pages.AssembleFor(ctx, s.firstPage, s.viewerUID)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[Synchronizer] WARN refresh failed, keeping previous page: author=%q err=%v",
				s.firstPage.AuthorUID(), err)
		}
		return
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.setHead(page)
	// Without appended pages the head alone decides whether more exist.
	if s.loadedPages == 0 && (s.state == Live || s.state == Exhausted) {
		s.state = s.headState()
	}
	s.mu.Unlock()

	s.emit()
}

// LoadMore appends the next page. It returns false without fetching unless
// the synchronizer is Live. A failed or timed out fetch resets it to Live.
func (s *Synchronizer) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state != Live {
		s.mu.Unlock()
		return false, nil
	}
	next := s.headNext
	if s.loadedPages > 0 {
		next = s.tailNext
	}
	s.state = LoadingMore
	s.err = nil
	s.mu.Unlock()
	s.emit()

	cursor, err := feed.ParseCursor(next)
	if err != nil {
		return false, s.loadMoreFailed(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.loadMoreTimeout)
	defer cancel()

	type result struct {
		page *model.FeedPage
		err  error
	}
	done := make(chan result, 1)
	go func() {
		page, err := s.pages.AssembleFor(ctx, s.firstPage.After(*cursor), s.viewerUID)
		done <- result{page, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		return false, s.loadMoreFailed(r.err)
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	s.tail = append(s.tail, r.page.Posts...)
	s.loadedPages++
	if r.page.NextCursor != nil {
		s.tailNext = *r.page.NextCursor
	}
	if r.page.HasMore {
		s.state = Live
	} else {
		s.state = Exhausted
	}
	s.mu.Unlock()

	log.Printf("[Synchronizer] LoadMore OK: author=%q appended=%d hasMore=%v",
		s.firstPage.AuthorUID(), len(r.page.Posts), r.page.HasMore)
	s.emit()
	return true, nil
}

func (s *Synchronizer) loadMoreFailed(err error) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = Live
	s.err = err
	s.mu.Unlock()

	log.Printf("[Synchronizer] LoadMore FAILED: author=%q err=%v", s.firstPage.AuthorUID(), err)
	s.emit()
	return err
}

// Close releases the subscription. It is safe to call more than once and
// from an OnChange callback.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	s.state = Closed
	sub := s.sub
	s.sub = nil
	stop := s.stopRefresh
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if sub != nil {
		return sub.Close()
	}
	return nil
}

// Snapshot returns the head followed by the tail, without posts of the tail
// that are also in the head.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]model.PostWithUser, 0, len(s.head)+len(s.tail))
	seen := make(map[string]struct{}, len(s.head)+len(s.tail))
	for _, group := range [][]model.PostWithUser{s.head, s.tail} {
		for _, p := range group {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			posts = append(posts, p)
		}
	}

	snap := Snapshot{
		State:   s.state,
		Posts:   posts,
		HasMore: s.state == Live || s.state == LoadingMore,
		Err:     s.err,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setHead must be called with mu held.
func (s *Synchronizer) setHead(page *model.FeedPage) {
	s.head = page.Posts
	s.headFull = page.HasMore
	s.headNext = ""
	if page.NextCursor != nil {
		s.headNext = *page.NextCursor
	}
}

func (s *Synchronizer) headState() State {
	if s.headFull {
		return Live
	}
	return Exhausted
}

func (s *Synchronizer) emit() {
	if s.onChange == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.onChange(s.Snapshot())
}
