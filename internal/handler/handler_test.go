package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
	"blogcristao/internal/transport/http/middleware"
)

// =============================================================================
// FAKES
// =============================================================================

type fakePostService struct {
	createFn func(ctx context.Context, uid string, req model.CreatePostRequest) (*model.PostWithUser, error)
	getFn    func(ctx context.Context, id, viewer string) (*model.PostWithUser, error)
	listFn   func(ctx context.Context, author, cursor string, limit int, viewer string) (*model.FeedPage, error)
	deleteFn func(ctx context.Context, uid string, req model.DeletePostRequest) error
}

func (f *fakePostService) Create(ctx context.Context, uid string, req model.CreatePostRequest) (*model.PostWithUser, error) {
	return f.createFn(ctx, uid, req)
}

func (f *fakePostService) Get(ctx context.Context, id, viewer string) (*model.PostWithUser, error) {
	return f.getFn(ctx, id, viewer)
}

func (f *fakePostService) List(ctx context.Context, author, cursor string, limit int, viewer string) (*model.FeedPage, error) {
	return f.listFn(ctx, author, cursor, limit, viewer)
}

func (f *fakePostService) Delete(ctx context.Context, uid string, req model.DeletePostRequest) error {
	return f.deleteFn(ctx, uid, req)
}

type fakeLikeService struct {
	targets []model.LikeTarget
	result  *model.LikeResult
	err     error
}

func (f *fakeLikeService) Toggle(ctx context.Context, target model.LikeTarget, uid string) (*model.LikeResult, error) {
	f.targets = append(f.targets, target)
	if uid == "" {
		return nil, model.ErrAuthRequired
	}
	return f.result, f.err
}

type fakeCommentService struct {
	createFn func(ctx context.Context, postID, uid string, req model.CreateCommentRequest) (*model.Comment, error)
	listFn   func(ctx context.Context, postID, viewer string) (*model.CommentListResponse, error)
}

func (f *fakeCommentService) Create(ctx context.Context, postID, uid string, req model.CreateCommentRequest) (*model.Comment, error) {
	return f.createFn(ctx, postID, uid, req)
}

func (f *fakeCommentService) List(ctx context.Context, postID, viewer string) (*model.CommentListResponse, error) {
	return f.listFn(ctx, postID, viewer)
}

type fakeSessionService struct {
	loginFn func(ctx context.Context, idToken string) (string, *model.IdentityClaims, error)
}

func (f *fakeSessionService) Login(ctx context.Context, idToken string) (string, *model.IdentityClaims, error) {
	return f.loginFn(ctx, idToken)
}

func (f *fakeSessionService) MaxAge() time.Duration { return model.SessionMaxAge }

type fakeUploader struct {
	result *model.UploadResult
	err    error
	got    []byte
}

func (f *fakeUploader) Upload(ctx context.Context, file io.Reader, size int64, contentType string) (*model.UploadResult, error) {
	f.got, _ = io.ReadAll(file)
	return f.result, f.err
}

// =============================================================================
// HELPERS
// =============================================================================

// withUser marks the request as coming from uid, as the auth middleware would.
func withUser(r *http.Request, uid string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, &model.IdentityClaims{UID: uid})
	return r.WithContext(ctx)
}

func serve(t *testing.T, pattern, method string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorDetail {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// =============================================================================
// POST HANDLER TESTS
// =============================================================================

func TestPostHandler_List(t *testing.T) {
	var gotAuthor, gotCursor, gotViewer string
	var gotLimit int
	posts := &fakePostService{
		listFn: func(ctx context.Context, author, cursor string, limit int, viewer string) (*model.FeedPage, error) {
			gotAuthor, gotCursor, gotLimit, gotViewer = author, cursor, limit, viewer
			return &model.FeedPage{Posts: []model.PostWithUser{}}, nil
		},
	}
	h := NewPostHandler(posts, &fakeLikeService{}, "https://blog.example.com")

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/posts?author=a1&cursor=abc&limit=5", nil), "v1")
	rec := serve(t, "/api/posts", http.MethodGet, h.List, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", gotAuthor)
	assert.Equal(t, "abc", gotCursor)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, "v1", gotViewer)
	assert.JSONEq(t, `{"posts":[],"nextCursor":null,"hasMore":false}`, rec.Body.String())
}

func TestPostHandler_List_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"bad limit", "/api/posts?limit=abc", nil, http.StatusBadRequest, httputil.ErrCodeBadRequest},
		{"bad cursor", "/api/posts?cursor=zzz", model.ErrInvalidCursor, http.StatusBadRequest, httputil.ErrCodeInvalidCursor},
		{"storage down", "/api/posts", errors.New("failed to load posts: conn refused"), http.StatusInternalServerError, httputil.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := &fakePostService{
				listFn: func(ctx context.Context, author, cursor string, limit int, viewer string) (*model.FeedPage, error) {
					return nil, tt.err
				},
			}
			h := NewPostHandler(posts, &fakeLikeService{}, "")

			rec := serve(t, "/api/posts", http.MethodGet, h.List, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestPostHandler_Create(t *testing.T) {
	posts := &fakePostService{
		createFn: func(ctx context.Context, uid string, req model.CreatePostRequest) (*model.PostWithUser, error) {
			return &model.PostWithUser{PostFields: model.PostFields{ID: "p1", AuthorUID: uid, Title: req.Title}}, nil
		},
	}
	h := NewPostHandler(posts, &fakeLikeService{}, "")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", jsonBody(map[string]string{
		"title": "Salmo 23", "content": "O Senhor é o meu pastor",
	})), "u1")
	rec := serve(t, "/api/posts", http.MethodPost, h.Create, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authorUID":"u1"`)
}

func TestPostHandler_Create_Validation(t *testing.T) {
	h := NewPostHandler(&fakePostService{}, &fakeLikeService{}, "")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", jsonBody(map[string]string{
		"content": "sem título",
	})), "u1")
	rec := serve(t, "/api/posts", http.MethodPost, h.Create, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, httputil.ErrCodeValidation, detail.Code)
	assert.Equal(t, "title is required", detail.Message)
}

func TestPostHandler_Create_PaddedFieldsReachService(t *testing.T) {
	var got model.CreatePostRequest
	posts := &fakePostService{
		createFn: func(ctx context.Context, uid string, req model.CreatePostRequest) (*model.PostWithUser, error) {
			got = req
			return &model.PostWithUser{PostFields: model.PostFields{ID: "p1", AuthorUID: uid}}, nil
		},
	}
	h := NewPostHandler(posts, &fakeLikeService{}, "")

	title := " " + strings.Repeat("t", model.MaxTitleLength) + " "
	content := "\n" + strings.Repeat("c", model.MaxContentLength) + "\n"
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", jsonBody(map[string]string{
		"title": title, "content": content,
	})), "u1")
	rec := serve(t, "/api/posts", http.MethodPost, h.Create, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, content, got.Content)
}

func TestPostHandler_Create_RequiresSession(t *testing.T) {
	h := NewPostHandler(&fakePostService{}, &fakeLikeService{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/posts", jsonBody(map[string]string{"title": "t", "content": "c"}))
	rec := serve(t, "/api/posts", http.MethodPost, h.Create, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostHandler_Delete_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", model.ErrPostNotFound, http.StatusNotFound},
		{"not owner", model.ErrNotPostOwner, http.StatusForbidden},
		{"image host down", errors.New("destroy image: timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.DeletePostRequest
			posts := &fakePostService{
				deleteFn: func(ctx context.Context, uid string, req model.DeletePostRequest) error {
					got = req
					return tt.err
				},
			}
			h := NewPostHandler(posts, &fakeLikeService{}, "")

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/delete", jsonBody(map[string]string{
				"postId": "p1", "imagePublicId": "blog_posts/a.jpg",
			})), "u1")
			rec := serve(t, "/api/delete", http.MethodPost, h.Delete, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "p1", got.PostID)
			if tt.err == nil {
				assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			}
		})
	}
}

func TestPostHandler_Delete_Anonymous(t *testing.T) {
	h := NewPostHandler(&fakePostService{}, &fakeLikeService{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/delete", jsonBody(map[string]string{"postId": "p1"}))
	rec := serve(t, "/api/delete", http.MethodPost, h.Delete, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostHandler_Like(t *testing.T) {
	likes := &fakeLikeService{result: &model.LikeResult{Liked: true, LikesCount: 3, AuthorUID: "author"}}
	h := NewPostHandler(&fakePostService{}, likes, "")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p1/like", nil), "u1")
	rec := serve(t, "/api/posts/{id}/like", http.MethodPost, h.Like, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"liked":true,"likesCount":3}`, rec.Body.String())
	require.Len(t, likes.targets, 1)
	assert.Equal(t, model.PostTarget("p1"), likes.targets[0])
}

func TestPostHandler_Like_Anonymous(t *testing.T) {
	h := NewPostHandler(&fakePostService{}, &fakeLikeService{}, "")

	rec := serve(t, "/api/posts/{id}/like", http.MethodPost, h.Like, httptest.NewRequest(http.MethodPost, "/api/posts/p1/like", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "must be logged in", decodeError(t, rec).Message)
}

func TestPostHandler_Share(t *testing.T) {
	posts := &fakePostService{
		getFn: func(ctx context.Context, id, viewer string) (*model.PostWithUser, error) {
			return &model.PostWithUser{PostFields: model.PostFields{ID: id, Title: "Fé"}}, nil
		},
	}
	h := NewPostHandler(posts, &fakeLikeService{}, "https://blog.example.com")

	rec := serve(t, "/api/posts/{id}/share", http.MethodGet, h.Share, httptest.NewRequest(http.MethodGet, "/api/posts/p1/share", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.ShareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://blog.example.com/posts/p1", resp.PostURL)
	assert.Len(t, resp.Links, 4)
}

func TestPostHandler_Get_NotFound(t *testing.T) {
	posts := &fakePostService{
		getFn: func(ctx context.Context, id, viewer string) (*model.PostWithUser, error) {
			return nil, model.ErrPostNotFound
		},
	}
	h := NewPostHandler(posts, &fakeLikeService{}, "")

	rec := serve(t, "/api/posts/{id}", http.MethodGet, h.Get, httptest.NewRequest(http.MethodGet, "/api/posts/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// COMMENT HANDLER TESTS
// =============================================================================

func TestCommentHandler_Create(t *testing.T) {
	comments := &fakeCommentService{
		createFn: func(ctx context.Context, postID, uid string, req model.CreateCommentRequest) (*model.Comment, error) {
			if postID != "p1" {
				return nil, model.ErrPostNotFound
			}
			content := strings.TrimSpace(req.Content)
			if utf8.RuneCountInString(content) > model.MaxCommentLength {
				return nil, model.ErrCommentTooLong
			}
			return &model.Comment{ID: "c1", PostID: postID, AuthorUID: uid, Content: content}, nil
		},
	}
	h := NewCommentHandler(comments, &fakeLikeService{})

	ok := serve(t, "/api/posts/{id}/comments", http.MethodPost, h.Create,
		withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments", jsonBody(map[string]string{"content": "Amém"})), "u1"))
	assert.Equal(t, http.StatusCreated, ok.Code)
	assert.Contains(t, ok.Body.String(), `"likedByUser":false`)

	missing := serve(t, "/api/posts/{id}/comments", http.MethodPost, h.Create,
		withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p9/comments", jsonBody(map[string]string{"content": "Amém"})), "u1"))
	assert.Equal(t, http.StatusNotFound, missing.Code)

	tooLong := serve(t, "/api/posts/{id}/comments", http.MethodPost, h.Create,
		withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments", jsonBody(map[string]string{"content": strings.Repeat("a", 701)})), "u1"))
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)

	// Length is counted after trimming, so surrounding whitespace never rejects.
	padded := "  \n" + strings.Repeat("é", model.MaxCommentLength) + "\n  "
	fits := serve(t, "/api/posts/{id}/comments", http.MethodPost, h.Create,
		withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments", jsonBody(map[string]string{"content": padded})), "u1"))
	assert.Equal(t, http.StatusCreated, fits.Code)
}

func TestCommentHandler_Like(t *testing.T) {
	likes := &fakeLikeService{result: &model.LikeResult{Liked: false, LikesCount: 0}}
	h := NewCommentHandler(&fakeCommentService{}, likes)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments/c1/like", nil), "u1")
	rec := serve(t, "/api/posts/{id}/comments/{commentId}/like", http.MethodPost, h.Like, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, likes.targets, 1)
	assert.Equal(t, model.CommentTarget("p1", "c1"), likes.targets[0])
}

func TestCommentHandler_Like_MissingComment(t *testing.T) {
	likes := &fakeLikeService{err: model.ErrCommentNotFound}
	h := NewCommentHandler(&fakeCommentService{}, likes)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments/c9/like", nil), "u1")
	rec := serve(t, "/api/posts/{id}/comments/{commentId}/like", http.MethodPost, h.Like, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SESSION HANDLER TESTS
// =============================================================================

func TestSessionHandler_Login_SetsCookie(t *testing.T) {
	sessions := &fakeSessionService{
		loginFn: func(ctx context.Context, idToken string) (string, *model.IdentityClaims, error) {
			if idToken != "good" {
				return "", nil, model.ErrInvalidIDToken
			}
			return "session-value", &model.IdentityClaims{UID: "u1"}, nil
		},
	}
	h := NewSessionHandler(sessions, true)

	rec := serve(t, "/api/sessionLogin", http.MethodPost, h.Login,
		httptest.NewRequest(http.MethodPost, "/api/sessionLogin", jsonBody(map[string]string{"idToken": "good"})))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, model.SessionCookieName, c.Name)
	assert.Equal(t, "session-value", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 5*24*60*60, c.MaxAge)
}

func TestSessionHandler_Login_Errors(t *testing.T) {
	sessions := &fakeSessionService{
		loginFn: func(ctx context.Context, idToken string) (string, *model.IdentityClaims, error) {
			return "", nil, model.ErrInvalidIDToken
		},
	}
	h := NewSessionHandler(sessions, false)

	missing := serve(t, "/api/sessionLogin", http.MethodPost, h.Login,
		httptest.NewRequest(http.MethodPost, "/api/sessionLogin", jsonBody(map[string]string{})))
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	invalid := serve(t, "/api/sessionLogin", http.MethodPost, h.Login,
		httptest.NewRequest(http.MethodPost, "/api/sessionLogin", jsonBody(map[string]string{"idToken": "forged"})))
	assert.Equal(t, http.StatusUnauthorized, invalid.Code)
	assert.Empty(t, invalid.Result().Cookies())
}

func TestSessionHandler_Logout_ClearsCookie(t *testing.T) {
	h := NewSessionHandler(&fakeSessionService{}, false)

	rec := serve(t, "/api/sessionLogout", http.MethodPost, h.Logout, httptest.NewRequest(http.MethodPost, "/api/sessionLogout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, model.SessionCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestSessionHandler_Me(t *testing.T) {
	h := NewSessionHandler(&fakeSessionService{}, false)

	anon := serve(t, "/api/session", http.MethodGet, h.Me, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	me := serve(t, "/api/session", http.MethodGet, h.Me, withUser(httptest.NewRequest(http.MethodGet, "/api/session", nil), "u1"))
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"uid":"u1"`)
}

// =============================================================================
// MEDIA HANDLER TESTS
// =============================================================================

func multipartUpload(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return withUser(req, "u1")
}

func TestMediaHandler_Upload(t *testing.T) {
	uploader := &fakeUploader{result: &model.UploadResult{URL: "https://cdn/x.png", PublicID: "blog_posts/x.png", Width: 2, Height: 1}}
	h := NewMediaHandler(uploader)

	rec := serve(t, "/api/upload", http.MethodPost, h.Upload, multipartUpload(t, "file", []byte("png-bytes")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://cdn/x.png","publicId":"blog_posts/x.png","width":2,"height":1}`, rec.Body.String())
	assert.Equal(t, []byte("png-bytes"), uploader.got)
}

func TestMediaHandler_Upload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		uploader   Uploader
		field      string
		wantStatus int
	}{
		{"not configured", nil, "file", http.StatusServiceUnavailable},
		{"no file", &fakeUploader{}, "", http.StatusBadRequest},
		{"too large", &fakeUploader{err: model.ErrFileTooLarge}, "file", http.StatusRequestEntityTooLarge},
		{"bad type", &fakeUploader{err: model.ErrInvalidImageType}, "file", http.StatusBadRequest},
		{"host down", &fakeUploader{err: errors.New("r2 timeout")}, "file", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMediaHandler(tt.uploader)

			rec := serve(t, "/api/upload", http.MethodPost, h.Upload, multipartUpload(t, tt.field, []byte("data")))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

// =============================================================================
// USER HANDLER TESTS
// =============================================================================

type fakeUserService struct {
	users map[string]*model.User
}

func (f *fakeUserService) GetProfile(ctx context.Context, uid string) (*model.User, error) {
	if u, ok := f.users[uid]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func TestUserHandler_GetProfile(t *testing.T) {
	h := NewUserHandler(&fakeUserService{users: map[string]*model.User{"u1": {UID: "u1", Name: "Ana"}}})

	ok := serve(t, "/api/users/{uid}", http.MethodGet, h.GetProfile, httptest.NewRequest(http.MethodGet, "/api/users/u1", nil))
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Contains(t, ok.Body.String(), `"name":"Ana"`)

	missing := serve(t, "/api/users/{uid}", http.MethodGet, h.GetProfile, httptest.NewRequest(http.MethodGet, "/api/users/u9", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
