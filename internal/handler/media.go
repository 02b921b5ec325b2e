package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
	"blogcristao/internal/transport/http/middleware"
)

// Uploader validates and stores images.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, declaredSize int64, contentType string) (*model.UploadResult, error)
}

type MediaHandler struct {
	media Uploader
}

// NewMediaHandler creates a MediaHandler. A nil uploader answers 503.
func NewMediaHandler(media Uploader) *MediaHandler {
	return &MediaHandler{media: media}
}

// Upload handles POST /api/upload
// Accepts multipart field "file" and returns {url, publicId, width, height}.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserUIDFromContext(r.Context()) == "" {
		httputil.WriteUnauthorized(w, model.ErrAuthRequired.Error())
		return
	}
	if h.media == nil {
		httputil.WriteServiceUnavailable(w, model.ErrMediaUnavailable.Error())
		return
	}

	// Leave room for multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxImageSizeBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WritePayloadTooLarge(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "No file uploaded")
		return
	}
	defer file.Close()

	result, err := h.media.Upload(r.Context(), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileRequired):
			httputil.WriteBadRequest(w, "No file uploaded")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WritePayloadTooLarge(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		case errors.Is(err, model.ErrInvalidImage):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "File is not a valid image")
		default:
			writeUnexpected(w, "Upload image", err, "Failed to upload image")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
