package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
	"blogcristao/internal/transport/http/middleware"
)

type CommentService interface {
	Create(ctx context.Context, postID, authorUID string, req model.CreateCommentRequest) (*model.Comment, error)
	List(ctx context.Context, postID, viewerUID string) (*model.CommentListResponse, error)
}

type CommentHandler struct {
	comments CommentService
	likes    LikeService
}

func NewCommentHandler(comments CommentService, likes LikeService) *CommentHandler {
	return &CommentHandler{comments: comments, likes: likes}
}

// List handles GET /api/posts/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	resp, err := h.comments.List(r.Context(), postID, middleware.GetUserUIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		writeUnexpected(w, "List comments", err, "Failed to load comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserUIDFromContext(r.Context())
	if uid == "" {
		httputil.WriteUnauthorized(w, model.ErrAuthRequired.Error())
		return
	}

	var req model.CreateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.comments.Create(r.Context(), chi.URLParam(r, "id"), uid, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentRequired), errors.Is(err, model.ErrCommentTooLong):
			httputil.WriteBadRequestWithCode(w, httputil.ErrCodeValidation, err.Error())
		case errors.Is(err, model.ErrAuthRequired):
			httputil.WriteUnauthorized(w, err.Error())
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		default:
			writeUnexpected(w, "Create comment", err, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Like handles POST /api/posts/{id}/comments/{commentId}/like
func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
	target := model.CommentTarget(chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	toggleLike(w, r, h.likes, target)
}
