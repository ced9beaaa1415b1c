package services

import (
	"context"
	"log/slog"

	"github.com/blogforge/apiserver/internal/auth"
	"github.com/blogforge/apiserver/types"
)

// UserRepository defines persistence operations for users and profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	FindByUsername(ctx context.Context, username string) (types.User, error)
	FindByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
	GetProfile(ctx context.Context, userID int) (types.Profile, error)
	SetAvatarURL(ctx context.Context, userID int, avatarURL string) error
}

// UserService encapsulates user use-cases. Password hashing happens here,
// at creation and password-change time only.
type UserService struct {
	repo      UserRepository
	hasher    auth.PasswordHasher
	publisher EventPublisher
	logger    *slog.Logger
}

func NewUserService(repo UserRepository, hasher auth.PasswordHasher, publisher EventPublisher, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, publisher: publisher, logger: logger}
}

type userRegisteredEvent struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

// Register hashes the password, stores the user with its profile, and
// emits a users.registered event.
func (s *UserService) Register(ctx context.Context, user types.User, password string) (types.User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = digest

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	publishEvent(ctx, s.logger, s.publisher, ChannelUserRegistered, userRegisteredEvent{
		UserID:   created.ID,
		Username: created.Username,
	})
	return created, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Update rewrites the user. A non-empty newPassword is rehashed;
// otherwise the existing digest on the user value is kept.
func (s *UserService) Update(ctx context.Context, user types.User, newPassword string) (types.User, error) {
	if newPassword != "" {
		digest, err := s.hasher.Hash(newPassword)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = digest
	}
	return s.repo.Update(ctx, user)
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *UserService) GetProfile(ctx context.Context, userID int) (types.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *UserService) SetAvatarURL(ctx context.Context, userID int, avatarURL string) error {
	return s.repo.SetAvatarURL(ctx, userID, avatarURL)
}
