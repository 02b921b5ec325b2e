package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"blogcristao/internal/cache"
	"blogcristao/internal/live"
	"blogcristao/internal/observability"
	"blogcristao/internal/queue"
)

// Handler turns committed blog events into cache invalidations and live
// feed notifications.
type Handler struct {
	pages    cache.PageCache
	notifier live.Notifier
}

func NewHandler(pages cache.PageCache, notifier live.Notifier) *Handler {
	return &Handler{pages: pages, notifier: notifier}
}

// HandleEvent routes an event by type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.BlogEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated, queue.EventPostDeleted,
		queue.EventPostLiked, queue.EventPostUnliked:
		err = h.handlePostChanged(ctx, event)
	case queue.EventCommentCreated:
		// The post's comment count is on feed pages too.
		err = errors.Join(h.handlePostChanged(ctx, event), h.handleCommentChanged(ctx, event))
	case queue.EventCommentLiked:
		// Comment counters are not part of any feed page.
		err = h.handleCommentChanged(ctx, event)
	default:
		observability.WorkerEvents.WithLabelValues("unknown", "error").Inc()
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		observability.WorkerEvents.WithLabelValues(event.Type, "error").Inc()
		log.Printf("[Worker] HandleEvent FAILED: type=%s post=%s duration=%v err=%v",
			event.Type, event.PostID, time.Since(startTime), err)
		return err
	}

	observability.WorkerEvents.WithLabelValues(event.Type, "ok").Inc()
	log.Printf("[Worker] HandleEvent OK: type=%s post=%s duration=%v", event.Type, event.PostID, time.Since(startTime))
	return nil
}

// handlePostChanged drops the cached first pages the post can appear on and
// tells live feeds to refresh. Both steps run even if one fails.
func (h *Handler) handlePostChanged(ctx context.Context, event queue.BlogEvent) error {
	feeds := []string{""}
	if event.AuthorUID != "" {
		feeds = append(feeds, event.AuthorUID)
	}

	var errs []error
	if h.pages != nil {
		if err := h.pages.Invalidate(ctx, feeds...); err != nil {
			errs = append(errs, fmt.Errorf("invalidate pages: %w", err))
		}
	}

	if h.notifier != nil {
		change := live.Change{Type: event.Type, PostID: event.PostID, AuthorUID: event.AuthorUID}
		if err := h.notifier.Notify(ctx, change); err != nil {
			errs = append(errs, fmt.Errorf("notify live feeds: %w", err))
		}
	}

	return errors.Join(errs...)
}

// handleCommentChanged tells watchers of the post's comment list to reload it.
func (h *Handler) handleCommentChanged(ctx context.Context, event queue.BlogEvent) error {
	if h.notifier == nil {
		return nil
	}
	change := live.Change{Type: event.Type, PostID: event.PostID, AuthorUID: event.AuthorUID, CommentID: event.CommentID}
	if err := h.notifier.NotifyComments(ctx, change); err != nil {
		return fmt.Errorf("notify comment watchers: %w", err)
	}
	return nil
}
