package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/blocks"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/errmsg"
	"github.com/UkralStul/blog-service/internal/postcache"
	"github.com/UkralStul/blog-service/internal/service"
)

const maxUploadSize = 10 << 20

type handlers struct {
	cache  *postcache.Orchestrator
	posts  *service.PostService
	auth   auth.Provider
	logger *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"loading": h.cache.Loading()})
}

// === Post Handlers ===

func (h *handlers) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.cache.FetchAllPosts(r.Context())
	if err != nil {
		respondError(w, err, errmsg.FetchPosts)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(posts))
}

func (h *handlers) listMyPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.cache.FetchMyPosts(r.Context(), sessionFrom(r).User.ID)
	if err != nil {
		respondError(w, err, errmsg.FetchPosts)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(posts))
}

func (h *handlers) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.cache.FetchPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, err, errmsg.Generic)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

type renderedPost struct {
	Post *domain.Post `json:"post"`
	Tree *blocks.Node `json:"tree"`
	HTML string       `json:"html"`
}

func (h *handlers) getRenderedPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.cache.FetchPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, err, errmsg.Generic)
		return
	}

	tree := blocks.RenderContent(post.Content)
	html, err := blocks.HTML(tree)
	if err != nil {
		h.logger.Error("render post html failed", "error", err, "slug", post.Slug)
		respondError(w, err, errmsg.Generic)
		return
	}
	respondJSON(w, http.StatusOK, renderedPost{Post: post, Tree: tree, HTML: html})
}

func (h *handlers) createPost(w http.ResponseWriter, r *http.Request) {
	form, err := decodePostForm(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	form.ID = ""

	post, err := h.posts.Save(r.Context(), callerFrom(r), *form)
	if err != nil {
		respondError(w, err, errmsg.Generic)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

func (h *handlers) updatePost(w http.ResponseWriter, r *http.Request) {
	form, err := decodePostForm(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	form.ID = chi.URLParam(r, "id")

	post, err := h.posts.Save(r.Context(), callerFrom(r), *form)
	if err != nil {
		respondError(w, err, errmsg.Generic)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

func (h *handlers) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, err, errmsg.Generic)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) uploadCover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, "expected a multipart form with a file field")
		return
	}
	file, err := readCoverFile(r.MultipartForm, "file")
	if err != nil || file == nil {
		badRequest(w, "missing file")
		return
	}

	url, err := h.posts.UploadCover(r.Context(), callerFrom(r), *file)
	if err != nil {
		respondError(w, err, errmsg.Generic)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *handlers) invalidateCache(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}

// decodePostForm reads a JSON body, or a multipart form whose optional
// cover_file part is uploaded as the new cover.
func decodePostForm(r *http.Request) (*domain.PostForm, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var form domain.PostForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return nil, fmt.Errorf("invalid body")
		}
		return &form, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, fmt.Errorf("invalid multipart form")
	}
	form := &domain.PostForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Content:     r.FormValue("content"),
		CoverImage:  r.FormValue("cover_image"),
	}
	file, err := readCoverFile(r.MultipartForm, "cover_file")
	if err != nil {
		return nil, err
	}
	form.CoverFile = file
	return form, nil
}

// readCoverFile returns nil when the form has no such file part.
func readCoverFile(form *multipart.Form, field string) (*domain.CoverFile, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil
	}
	header := form.File[field][0]

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &domain.CoverFile{Name: header.Filename, ContentType: contentType, Data: data}, nil
}

func nonNil(posts []domain.Post) []domain.Post {
	if posts == nil {
		return []domain.Post{}
	}
	return posts
}

// === Auth Handlers ===

func (h *handlers) signup(w http.ResponseWriter, r *http.Request) {
	var form domain.SignupForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := form.Validate(); err != nil {
		respondError(w, err, errmsg.Signup)
		return
	}

	session, err := h.auth.SignUp(r.Context(), form)
	if err != nil {
		respondError(w, err, errmsg.Signup)
		return
	}
	h.logger.Info("user signed up", "user_id", session.User.ID)
	respondJSON(w, http.StatusCreated, session)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var form domain.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := form.Validate(); err != nil {
		respondError(w, err, errmsg.Login)
		return
	}

	session, err := h.auth.SignIn(r.Context(), form.Email, form.Password)
	if err != nil {
		respondError(w, err, errmsg.Login)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), sessionFrom(r).AccessToken); err != nil {
		respondError(w, err, errmsg.Logout)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r))
}
