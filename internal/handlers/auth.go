package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/blogforge/apiserver/internal/auth"
	"github.com/blogforge/apiserver/internal/services"
	"github.com/blogforge/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides the login and current-user endpoints. Credential
// checking itself happens in the guard's strategy before these run.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenService
}

func NewAuthHandler(userService *services.UserService, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	tokens *auth.TokenService,
	credentialGuard func(http.Handler) http.Handler,
	tokenGuard func(http.Handler) http.Handler,
) {
	handler := NewAuthHandler(userService, tokens)

	r.With(credentialGuard).Post("/login", handler.Login)
	r.With(tokenGuard).Get("/me", handler.Me)
}

// UserPayload is the principal shape returned by login. It never carries
// the password digest.
type UserPayload struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResponse carries the authenticated user and its bearer token.
type LoginResponse struct {
	User        UserPayload `json:"user"`
	AccessToken string      `json:"access_token"`
}

// Login issues a token for the principal the credential guard attached.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "no principal after login")
		return
	}

	token, err := h.tokens.Issue(principal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		User: UserPayload{
			ID:        principal.Subject,
			Username:  principal.Username,
			Email:     principal.Email,
			CreatedAt: principal.CreatedAt,
			UpdatedAt: principal.UpdatedAt,
		},
		AccessToken: token,
	})
}

// Me returns the full record of the authenticated user. The token only
// carries the subject, so the record is fetched here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), principal.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
