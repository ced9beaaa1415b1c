package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blogforge/apiserver/internal/auth"
	"github.com/blogforge/apiserver/internal/services"
	"github.com/blogforge/apiserver/internal/store"
	"github.com/blogforge/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	minTitleLength       = 5
	maxTitleLength       = 255
	maxDescriptionLength = 500
)

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRouter registers post routes on the given router. Media is optional;
// when present the cover upload route is registered too.
func PostRouter(
	r chi.Router,
	postService *services.PostService,
	tokenGuard func(http.Handler) http.Handler,
	media *MediaHandler,
) {
	handler := NewPostHandler(postService)

	r.Get("/", handler.ListPosts)
	r.With(tokenGuard).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(tokenGuard).Patch("/", handler.UpdatePost)
		r.With(tokenGuard).Delete("/", handler.DeletePost)
		if media != nil {
			r.With(tokenGuard).Post("/cover", media.UploadPostCover)
		}
	})
}

type CreatePostRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	IsDraft     *bool  `json:"is_draft"`
	CoverImage  string `json:"cover_image"`
	Categories  []int  `json:"categories"`
}

type UpdatePostRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	IsDraft     *bool   `json:"is_draft"`
	CoverImage  *string `json:"cover_image"`
	Categories  []int   `json:"categories"`
}

// PostListResponse is the paginated list response payload.
type PostListResponse struct {
	Data []types.PostListItem `json:"data"`
	Meta PaginationMeta       `json:"meta"`
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	authorID, err := parseOptionalQueryInt(r, "author_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	categoryID, err := parseOptionalQueryInt(r, "category_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.PostFilter{AuthorID: authorID, CategoryID: categoryID}
	items, total, err := h.postService.List(r.Context(), offset, limit, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Data: items,
		Meta: newPaginationMeta(total, page, limit),
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// CreatePost stores a new post authored by the authenticated user.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validatePostFields(req.Title, req.Description, req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	isDraft := true
	if req.IsDraft != nil {
		isDraft = *req.IsDraft
	}

	post := types.Post{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		IsDraft:     isDraft,
		CoverImage:  strings.TrimSpace(req.CoverImage),
		AuthorID:    principal.Subject,
	}

	created, err := h.postService.Create(r.Context(), post, req.Categories)
	if err != nil {
		if errors.Is(err, store.ErrMissingCategories) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdatePost merges a partial update into the stored post. Only the
// author may update it.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	existing, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Subject != existing.AuthorID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if req.Title != nil {
		existing.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		existing.Description = strings.TrimSpace(*req.Description)
	}
	if req.Content != nil {
		existing.Content = *req.Content
	}
	if req.IsDraft != nil {
		existing.IsDraft = *req.IsDraft
	}
	if req.CoverImage != nil {
		existing.CoverImage = strings.TrimSpace(*req.CoverImage)
	}
	if err := validatePostFields(existing.Title, existing.Description, existing.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	replaceCategories := req.Categories != nil

	updated, err := h.postService.Update(r.Context(), existing, req.Categories, replaceCategories)
	if err != nil {
		if errors.Is(err, store.ErrMissingCategories) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeletePost removes a post. Only the author may delete it.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Subject != existing.AuthorID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.postService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validatePostFields(title, description, content string) error {
	if len(title) < minTitleLength || len(title) > maxTitleLength {
		return errors.New("title must be between 5 and 255 characters")
	}
	if description == "" || len(description) > maxDescriptionLength {
		return errors.New("description must be between 1 and 500 characters")
	}
	if content == "" {
		return errors.New("content is required")
	}
	return nil
}
