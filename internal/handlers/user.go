package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/blogforge/apiserver/internal/auth"
	"github.com/blogforge/apiserver/internal/services"
	"github.com/blogforge/apiserver/internal/store"
	"github.com/blogforge/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	minPasswordLength = 8
	minProfileAge     = 18
)

// UserHandler provides HTTP handlers for users and profiles.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router. Media is optional;
// when present the avatar upload route is registered too.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	tokenGuard func(http.Handler) http.Handler,
	media *MediaHandler,
) {
	handler := NewUserHandler(userService)

	r.Post("/", handler.CreateUser)
	r.Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Get("/profile", handler.GetProfile)
		r.With(tokenGuard).Put("/", handler.UpdateUser)
		r.With(tokenGuard).Delete("/", handler.DeleteUser)
		if media != nil {
			r.With(tokenGuard).Post("/avatar", media.UploadAvatar)
		}
	})
}

type CreateProfileRequest struct {
	Name      string `json:"name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	AvatarURL string `json:"avatar_url"`
}

type CreateUserRequest struct {
	Username string                `json:"username"`
	Email    string                `json:"email"`
	Password string                `json:"password"`
	Profile  *CreateProfileRequest `json:"profile"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	LastName  *string `json:"last_name"`
	Age       *int    `json:"age"`
	AvatarURL *string `json:"avatar_url"`
}

type UpdateUserRequest struct {
	Username *string               `json:"username"`
	Email    *string               `json:"email"`
	Password *string               `json:"password"`
	Profile  *UpdateProfileRequest `json:"profile"`
}

// CreateUser registers a new account with its profile.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateCreateUser(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := types.User{
		Username: req.Username,
		Email:    req.Email,
		Profile: &types.Profile{
			Name:      strings.TrimSpace(req.Profile.Name),
			LastName:  strings.TrimSpace(req.Profile.LastName),
			Age:       req.Profile.Age,
			AvatarURL: strings.TrimSpace(req.Profile.AvatarURL),
		},
	}

	created, err := h.userService.Register(r.Context(), user, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateUser merges the partial update into the stored record. Users may
// only update their own account.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Subject != id {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	existing, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	if req.Username != nil {
		existing.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		existing.Email = strings.TrimSpace(*req.Email)
	}
	if existing.Username == "" || existing.Email == "" {
		writeError(w, http.StatusBadRequest, "username and email must not be empty")
		return
	}
	if _, err := mail.ParseAddress(existing.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	newPassword := ""
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "password too short")
			return
		}
		newPassword = *req.Password
	}

	if req.Profile != nil {
		profile, err := h.userService.GetProfile(r.Context(), id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to fetch profile")
			return
		}
		if req.Profile.Name != nil {
			profile.Name = strings.TrimSpace(*req.Profile.Name)
		}
		if req.Profile.LastName != nil {
			profile.LastName = strings.TrimSpace(*req.Profile.LastName)
		}
		if req.Profile.Age != nil {
			if *req.Profile.Age < minProfileAge {
				writeError(w, http.StatusBadRequest, "age below minimum")
				return
			}
			profile.Age = *req.Profile.Age
		}
		if req.Profile.AvatarURL != nil {
			profile.AvatarURL = strings.TrimSpace(*req.Profile.AvatarURL)
		}
		existing.Profile = &profile
	}

	updated, err := h.userService.Update(r.Context(), existing, newPassword)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteUser removes the authenticated user's own account.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Subject != id {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validateCreateUser(req CreateUserRequest) error {
	if req.Username == "" {
		return errors.New("username is required")
	}
	if req.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("invalid email")
	}
	if len(req.Password) < minPasswordLength {
		return errors.New("password too short")
	}
	if req.Profile == nil {
		return errors.New("profile is required")
	}
	if strings.TrimSpace(req.Profile.Name) == "" || strings.TrimSpace(req.Profile.LastName) == "" {
		return errors.New("profile name and last name are required")
	}
	if req.Profile.Age < minProfileAge {
		return errors.New("age below minimum")
	}
	return nil
}
