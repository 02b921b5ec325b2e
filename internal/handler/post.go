package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
	"blogcristao/internal/observability"
	"blogcristao/internal/service"
	"blogcristao/internal/transport/http/middleware"
)

// PostService is what PostHandler needs from the post service.
type PostService interface {
	Create(ctx context.Context, authorUID string, req model.CreatePostRequest) (*model.PostWithUser, error)
	Get(ctx context.Context, postID, viewerUID string) (*model.PostWithUser, error)
	List(ctx context.Context, authorUID, cursor string, limit int, viewerUID string) (*model.FeedPage, error)
	Delete(ctx context.Context, callerUID string, req model.DeletePostRequest) error
}

// LikeService toggles likes.
type LikeService interface {
	Toggle(ctx context.Context, target model.LikeTarget, userUID string) (*model.LikeResult, error)
}

type PostHandler struct {
	posts   PostService
	likes   LikeService
	baseURL string
}

func NewPostHandler(posts PostService, likes LikeService, baseURL string) *PostHandler {
	return &PostHandler{posts: posts, likes: likes, baseURL: baseURL}
}

// List handles GET /api/posts?author=&cursor=&limit=
// Returns one page of the feed.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	viewerUID := middleware.GetUserUIDFromContext(r.Context())
	page, err := h.posts.List(r.Context(), q.Get("author"), q.Get("cursor"), limit, viewerUID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCursor):
			httputil.WriteBadRequestWithCode(w, httputil.ErrCodeInvalidCursor, "Invalid cursor")
		default:
			writeUnexpected(w, "List posts", err, model.ErrFeedUnavailable.Error())
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

// Create handles POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserUIDFromContext(r.Context())
	if uid == "" {
		httputil.WriteUnauthorized(w, model.ErrAuthRequired.Error())
		return
	}

	var req model.CreatePostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.posts.Create(r.Context(), uid, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTitleRequired),
			errors.Is(err, model.ErrTitleTooLong),
			errors.Is(err, model.ErrContentRequired),
			errors.Is(err, model.ErrContentTooLong),
			errors.Is(err, model.ErrImageIncomplete):
			httputil.WriteBadRequestWithCode(w, httputil.ErrCodeValidation, err.Error())
		case errors.Is(err, model.ErrAuthRequired):
			httputil.WriteUnauthorized(w, err.Error())
		default:
			writeUnexpected(w, "Create post", err, "Failed to create post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// Get handles GET /api/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	post, err := h.posts.Get(r.Context(), postID, middleware.GetUserUIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		writeUnexpected(w, "Get post", err, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Share handles GET /api/posts/{id}/share
func (h *PostHandler) Share(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	post, err := h.posts.Get(r.Context(), postID, "")
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		writeUnexpected(w, "Share post", err, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, service.ShareLinks(h.baseURL, post.ID, post.Title))
}

// Delete handles POST /api/delete
// Only the author can delete; the featured image goes first.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserUIDFromContext(r.Context())
	if uid == "" {
		httputil.WriteUnauthorized(w, model.ErrAuthRequired.Error())
		return
	}

	var req model.DeletePostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.posts.Delete(r.Context(), uid, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthRequired):
			httputil.WriteUnauthorized(w, err.Error())
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			writeUnexpected(w, "Delete post", err, "Failed to delete post")
		}
		return
	}

	httputil.WriteSuccess(w)
}

// Like handles POST /api/posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	target := model.PostTarget(chi.URLParam(r, "id"))
	toggleLike(w, r, h.likes, target)
}

// toggleLike is shared by post and comment like routes.
func toggleLike(w http.ResponseWriter, r *http.Request, likes LikeService, target model.LikeTarget) {
	result, err := likes.Toggle(r.Context(), target, middleware.GetUserUIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthRequired):
			httputil.WriteUnauthorized(w, err.Error())
		case errors.Is(err, model.ErrInvalidLikeTarget):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		default:
			writeUnexpected(w, "Toggle like", err, "Failed to update like")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// writeUnexpected logs and reports an unexpected error, then writes a 500.
func writeUnexpected(w http.ResponseWriter, op string, err error, message string) {
	log.Printf("[ERROR] %s handler: err=%v", op, err)
	observability.CaptureError(err)
	httputil.WriteInternalError(w, message)
}
