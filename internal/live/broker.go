// Package live keeps the first page of a feed, and the comments of a post,
// fresh while a client watches them.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"blogcristao/internal/observability"
)

// Channel is the Pub/Sub channel carrying post changes.
const Channel = "live:posts"

// CommentChannelPrefix scopes comment changes to one post.
const CommentChannelPrefix = "live:comments:"

// CommentChannel is the Pub/Sub channel carrying comment changes of a post.
func CommentChannel(postID string) string {
	return CommentChannelPrefix + postID
}

// Change tells watchers that a post in some feed, or a comment under it, changed.
type Change struct {
	Type      string `json:"type"`
	PostID    string `json:"postId"`
	AuthorUID string `json:"authorUid"`
	CommentID string `json:"commentId,omitempty"`
}

// Subscription is an open change feed. Close must be called on every exit path.
type Subscription interface {
	// C delivers change signals. Signals may be coalesced; the channel is
	// closed once the subscription ends.
	C() <-chan Change
	Close() error
}

// Subscriber opens change feeds. An empty authorUID watches all posts.
type Subscriber interface {
	Subscribe(ctx context.Context, authorUID string) (Subscription, error)
}

// CommentSubscriber opens the comment change feed of one post.
type CommentSubscriber interface {
	SubscribeComments(ctx context.Context, postID string) (Subscription, error)
}

// Notifier broadcasts changes to every subscriber.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
	// NotifyComments reaches only the watchers of change.PostID's comments.
	NotifyComments(ctx context.Context, change Change) error
}

// Broker implements Subscriber and Notifier on Redis Pub/Sub, so every
// server instance sees changes committed by any other.
type Broker struct {
	client *redis.Client
}

func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

func (b *Broker) Notify(ctx context.Context, change Change) error {
	return b.publish(ctx, Channel, change)
}

func (b *Broker) NotifyComments(ctx context.Context, change Change) error {
	if change.PostID == "" {
		return fmt.Errorf("comment change without post id")
	}
	return b.publish(ctx, CommentChannel(change.PostID), change)
}

func (b *Broker) publish(ctx context.Context, channel string, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[Broker] Notify FAILED: channel=%s post=%s err=%v", channel, change.PostID, err)
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so no change
// published after it returns is missed.
func (b *Broker) Subscribe(ctx context.Context, authorUID string) (Subscription, error) {
	return b.subscribe(ctx, Channel, authorUID)
}

// SubscribeComments watches the comments of one post.
func (b *Broker) SubscribeComments(ctx context.Context, postID string) (Subscription, error) {
	return b.subscribe(ctx, CommentChannel(postID), "")
}

func (b *Broker) subscribe(ctx context.Context, channel, authorUID string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	sub := newSubscription(authorUID, ps.Close)
	go sub.run(ps.Channel())

	observability.LiveSubscriptions.Inc()
	log.Printf("[Broker] Subscribed: channel=%s author=%q", channel, authorUID)
	return sub, nil
}

type subscription struct {
	authorUID string
	out       chan Change
	closeFn   func() error
	once      sync.Once
}

func newSubscription(authorUID string, closeFn func() error) *subscription {
	return &subscription{
		authorUID: authorUID,
		// One slot: a pending signal already means "refresh", extra ones add nothing.
		out:     make(chan Change, 1),
		closeFn: closeFn,
	}
}

func (s *subscription) C() <-chan Change { return s.out }

func (s *subscription) run(msgs <-chan *redis.Message) {
	defer close(s.out)
	for msg := range msgs {
		var change Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			log.Printf("[Broker] WARN malformed change dropped: %v", err)
			continue
		}
		s.deliver(change)
	}
}

// deliver applies the author filter and coalesces into the one-slot channel.
func (s *subscription) deliver(change Change) {
	if s.authorUID != "" && change.AuthorUID != s.authorUID {
		return
	}
	select {
	case s.out <- change:
	default:
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.closeFn()
		observability.LiveSubscriptions.Dec()
		log.Printf("[Broker] Unsubscribed: author=%q", s.authorUID)
	})
	return err
}
