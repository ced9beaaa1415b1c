package services

import (
	"context"
	"log/slog"

	"github.com/blogforge/apiserver/internal/store"
	"github.com/blogforge/apiserver/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, offset, limit int, filter store.PostFilter) ([]types.PostListItem, int, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post, categoryIDs []int) (types.Post, error)
	Update(ctx context.Context, post types.Post, categoryIDs []int, replaceCategories bool) (types.Post, error)
	Delete(ctx context.Context, id int) error
	SetCoverImage(ctx context.Context, id int, coverImage string) error
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo      PostRepository
	publisher EventPublisher
	logger    *slog.Logger
}

func NewPostService(repo PostRepository, publisher EventPublisher, logger *slog.Logger) *PostService {
	return &PostService{repo: repo, publisher: publisher, logger: logger}
}

type postPublishedEvent struct {
	PostID   int    `json:"post_id"`
	Title    string `json:"title"`
	AuthorID int    `json:"author_id"`
}

func (s *PostService) List(ctx context.Context, offset, limit int, filter store.PostFilter) ([]types.PostListItem, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit, filter)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

// Create stores the post and emits posts.published when it is not a draft.
func (s *PostService) Create(ctx context.Context, post types.Post, categoryIDs []int) (types.Post, error) {
	created, err := s.repo.Create(ctx, post, categoryIDs)
	if err != nil {
		return types.Post{}, err
	}
	if !created.IsDraft {
		publishEvent(ctx, s.logger, s.publisher, ChannelPostPublished, postPublishedEvent{
			PostID:   created.ID,
			Title:    created.Title,
			AuthorID: created.AuthorID,
		})
	}
	return created, nil
}

// Update rewrites the post and emits posts.published when the update
// leaves it published.
func (s *PostService) Update(ctx context.Context, post types.Post, categoryIDs []int, replaceCategories bool) (types.Post, error) {
	updated, err := s.repo.Update(ctx, post, categoryIDs, replaceCategories)
	if err != nil {
		return types.Post{}, err
	}
	if !updated.IsDraft {
		publishEvent(ctx, s.logger, s.publisher, ChannelPostPublished, postPublishedEvent{
			PostID:   updated.ID,
			Title:    updated.Title,
			AuthorID: updated.AuthorID,
		})
	}
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *PostService) SetCoverImage(ctx context.Context, id int, coverImage string) error {
	return s.repo.SetCoverImage(ctx, id, coverImage)
}
