package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"blogcristao/internal/live"
	"blogcristao/internal/transport/http/middleware"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
)

// Client commands on the live feed socket.
const (
	LiveCommandLoadMore = "load_more"
)

type liveCommand struct {
	Type string `json:"type"`
}

type LiveHandler struct {
	pages           live.PageSource
	subscriber      live.Subscriber
	pageSize        int
	loadMoreTimeout time.Duration
	upgrader        websocket.Upgrader
}

func NewLiveHandler(pages live.PageSource, subscriber live.Subscriber, pageSize int, loadMoreTimeout time.Duration) *LiveHandler {
	return &LiveHandler{
		pages:           pages,
		subscriber:      subscriber,
		pageSize:        pageSize,
		loadMoreTimeout: loadMoreTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Feed handles GET /api/feed/live?author=
// Each connection owns one synchronizer; every snapshot is pushed as JSON and
// {"type":"load_more"} appends the next page.
func (h *LiveHandler) Feed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Printf("[LiveHandler] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Only the latest snapshot matters; older unsent ones are dropped.
	updates := make(chan live.Snapshot, 1)
	push := func(s live.Snapshot) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	}

	authorUID := r.URL.Query().Get("author")
	viewerUID := middleware.GetUserUIDFromContext(r.Context())
	syncer := live.NewSynchronizer(h.pages, h.subscriber, authorUID, h.pageSize,
		live.WithViewer(viewerUID),
		live.WithLoadMoreTimeout(h.loadMoreTimeout),
		live.WithOnChange(push),
	)
	defer syncer.Close()

	log.Printf("[LiveHandler] Connected: author=%q viewer=%q", authorUID, viewerUID)

	if err := syncer.Start(ctx); err != nil {
		h.writeSnapshot(conn, syncer.Snapshot())
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "failed to load posts"),
			time.Now().Add(liveWriteWait))
		return
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		h.readCommands(ctx, conn, syncer)
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			log.Printf("[LiveHandler] Disconnected: author=%q viewer=%q", authorUID, viewerUID)
			return
		case s := <-updates:
			if err := h.writeSnapshot(conn, s); err != nil {
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

func (h *LiveHandler) readCommands(ctx context.Context, conn *websocket.Conn, syncer *live.Synchronizer) {
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[LiveHandler] Read error: %v", err)
			}
			return
		}

		var cmd liveCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		switch cmd.Type {
		case LiveCommandLoadMore:
			if _, err := syncer.LoadMore(ctx); err != nil {
				log.Printf("[LiveHandler] Load more failed: %v", err)
			}
		}
	}
}

func (h *LiveHandler) writeSnapshot(conn *websocket.Conn, s live.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(s); err != nil {
		log.Printf("[LiveHandler] Write failed: %v", err)
		return err
	}
	return nil
}
