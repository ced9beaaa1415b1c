package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/blogforge/apiserver/internal/auth"
	"github.com/blogforge/apiserver/internal/services"
	"github.com/blogforge/apiserver/internal/storage"
	"github.com/blogforge/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxImageMemory   = 8 << 20
	maxImageBytes    = 8 << 20
	formFieldAvatar  = "avatar"
	formFieldCover   = "cover"
	mediaURLPrefix   = "/media/"
	avatarKeyPrefix  = "avatars/"
	coverKeyPrefix   = "covers/"
	genericMediaType = "application/octet-stream"
)

var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// MediaHandler serves image uploads and downloads backed by object storage.
type MediaHandler struct {
	storage     *storage.Storage
	userService *services.UserService
	postService *services.PostService
}

func NewMediaHandler(st *storage.Storage, userService *services.UserService, postService *services.PostService) *MediaHandler {
	return &MediaHandler{storage: st, userService: userService, postService: postService}
}

// MediaRouter registers the public media download route.
func MediaRouter(r chi.Router, handler *MediaHandler) {
	r.Get("/*", handler.ServeMedia)
}

// UploadAvatar stores a profile image for the authenticated user's own
// account and records its media URL on the profile.
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Subject != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	file, err := parseImageUpload(r, formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := avatarKeyPrefix + uuid.NewString() + file.Extension
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	avatarURL := mediaURLPrefix + key
	if err := h.userService.SetAvatarURL(r.Context(), userID, avatarURL); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": avatarURL})
}

// UploadPostCover stores a cover image for a post. Only the author may
// set it.
func (h *MediaHandler) UploadPostCover(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Subject != post.AuthorID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	file, err := parseImageUpload(r, formFieldCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := coverKeyPrefix + uuid.NewString() + file.Extension
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store cover image")
		return
	}

	coverURL := mediaURLPrefix + key
	if err := h.postService.SetCoverImage(r.Context(), postID, coverURL); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"cover_image": coverURL})
}

// ServeMedia streams a stored object back to the client.
func (h *MediaHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid media key")
		return
	}

	reader, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentTypeForKey(key))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// ImageFile represents a validated uploaded image.
type ImageFile struct {
	Extension   string
	ContentType string
	Data        []byte
}

func parseImageUpload(r *http.Request, field string) (ImageFile, error) {
	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		return ImageFile{}, errors.New("invalid multipart form")
	}

	header, err := singleFormFile(r.MultipartForm, field)
	if err != nil {
		return ImageFile{}, err
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExtensions[ext] {
		return ImageFile{}, errors.New("unsupported image type")
	}

	file, err := header.Open()
	if err != nil {
		return ImageFile{}, fmt.Errorf("failed to read %s file: %w", field, err)
	}

	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return ImageFile{}, err
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return ImageFile{}, errors.New("file is not an image")
	}

	return ImageFile{
		Extension:   ext,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func singleFormFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("missing form data")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, errors.New(field + " file is required")
	}
	if len(files) > 1 {
		return nil, errors.New("only one " + field + " file is allowed")
	}
	return files[0], nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return genericMediaType
	}
}
