package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"blogcristao/internal/httputil"
	"blogcristao/internal/live"
	"blogcristao/internal/model"
	"blogcristao/internal/transport/http/middleware"
)

// CommentLister loads the comments of a post for a viewer.
type CommentLister interface {
	List(ctx context.Context, postID, viewerUID string) (*model.CommentListResponse, error)
}

// commentSnapshot is one push on the live comments socket.
type commentSnapshot struct {
	Comments []model.Comment `json:"comments"`
}

type CommentLiveHandler struct {
	comments   CommentLister
	subscriber live.CommentSubscriber
	upgrader   websocket.Upgrader
}

func NewCommentLiveHandler(comments CommentLister, subscriber live.CommentSubscriber) *CommentLiveHandler {
	return &CommentLiveHandler{
		comments:   comments,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Feed handles GET /api/posts/{id}/comments/live
// Pushes the full comment list, with likedByUser for the viewer, on connect
// and again after every comment change of the post.
func (h *CommentLiveHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if h.comments == nil || h.subscriber == nil {
		httputil.WriteServiceUnavailable(w, "Live comments are not available")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	postID := chi.URLParam(r, "id")
	viewerUID := middleware.GetUserUIDFromContext(r.Context())

	// Subscribe before the first load so no change in between is missed.
	sub, err := h.subscriber.SubscribeComments(ctx, postID)
	if err != nil {
		writeUnexpected(w, "Subscribe comments", err, "Failed to watch comments")
		return
	}
	defer sub.Close()

	first, err := h.comments.List(ctx, postID, viewerUID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		writeUnexpected(w, "List comments", err, "Failed to load comments")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[CommentLiveHandler] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[CommentLiveHandler] Connected: post=%s viewer=%q", postID, viewerUID)
	if err := writeComments(conn, commentSnapshot{Comments: first.Comments}); err != nil {
		return
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		discardReads(conn)
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			log.Printf("[CommentLiveHandler] Disconnected: post=%s viewer=%q", postID, viewerUID)
			return
		case _, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription ended"),
					time.Now().Add(liveWriteWait))
				return
			}
			resp, err := h.comments.List(ctx, postID, viewerUID)
			if err != nil {
				// Keep the client's current list; the next change retries.
				log.Printf("[CommentLiveHandler] Reload failed: post=%s err=%v", postID, err)
				continue
			}
			if err := writeComments(conn, commentSnapshot{Comments: resp.Comments}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// discardReads keeps the read side alive for pongs and close frames.
func discardReads(conn *websocket.Conn) {
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[CommentLiveHandler] Read error: %v", err)
			}
			return
		}
	}
}

func writeComments(conn *websocket.Conn, s commentSnapshot) error {
	if s.Comments == nil {
		s.Comments = []model.Comment{}
	}
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(s); err != nil {
		log.Printf("[CommentLiveHandler] Write failed: %v", err)
		return err
	}
	return nil
}
