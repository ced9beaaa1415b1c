package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/blogforge/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// creatorRow scans the nullable creator columns of a category join. The
// creator is null after its user account has been deleted.
type creatorRow struct {
	id        sql.NullInt64
	username  sql.NullString
	email     sql.NullString
	createdAt sql.NullTime
	updatedAt sql.NullTime
}

func (c creatorRow) user() *types.User {
	if !c.id.Valid {
		return nil
	}
	return &types.User{
		ID:        int(c.id.Int64),
		Username:  c.username.String,
		Email:     c.email.String,
		CreatedAt: c.createdAt.Time,
		UpdatedAt: c.updatedAt.Time,
	}
}

// List returns all categories with their creating user loaded.
func (r *CategoryRepository) List(ctx context.Context) ([]types.Category, error) {
	const query = `
		SELECT c.id, c.name, COALESCE(c.created_by_user_id, 0), c.created_at, c.updated_at,
			u.id, u.username, u.email, u.created_at, u.updated_at
		FROM categories c
		LEFT JOIN users u ON u.id = c.created_by_user_id
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		var category types.Category
		var creator creatorRow
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.CreatedByID,
			&category.CreatedAt,
			&category.UpdatedAt,
			&creator.id,
			&creator.username,
			&creator.email,
			&creator.createdAt,
			&creator.updatedAt,
		); err != nil {
			return nil, err
		}
		category.CreatedBy = creator.user()
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Get returns a category with its creator and posts loaded.
func (r *CategoryRepository) Get(ctx context.Context, id int) (types.Category, error) {
	const query = `
		SELECT c.id, c.name, COALESCE(c.created_by_user_id, 0), c.created_at, c.updated_at,
			u.id, u.username, u.email, u.created_at, u.updated_at
		FROM categories c
		LEFT JOIN users u ON u.id = c.created_by_user_id
		WHERE c.id = $1`

	var category types.Category
	var creator creatorRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.CreatedByID,
		&category.CreatedAt,
		&category.UpdatedAt,
		&creator.id,
		&creator.username,
		&creator.email,
		&creator.createdAt,
		&creator.updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	category.CreatedBy = creator.user()

	posts, err := r.categoryPosts(ctx, id)
	if err != nil {
		return types.Category{}, err
	}
	category.Posts = posts
	return category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `
		INSERT INTO categories (name, created_by_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		category.Name,
		category.CreatedByID,
		category.CreatedAt,
		category.UpdatedAt,
	).Scan(&category.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Category{}, ErrDuplicate
		}
		return types.Category{}, err
	}
	return category, nil
}

// Update renames the category and returns the full stored row, so the
// caller gets the creator and timestamps it did not supply.
func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	const query = `
		UPDATE categories
		SET name = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING id, name, COALESCE(created_by_user_id, 0), created_at, updated_at`

	var updated types.Category
	err := r.db.QueryRowContext(ctx, query, category.Name, time.Now(), category.ID).Scan(
		&updated.ID,
		&updated.Name,
		&updated.CreatedByID,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return types.Category{}, ErrDuplicate
		}
		return types.Category{}, err
	}
	return updated, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM categories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) categoryPosts(ctx context.Context, categoryID int) ([]types.Post, error) {
	const query = `
		SELECT p.id, p.title, p.short_description, p.content, p.is_draft,
			COALESCE(p.cover_image, ''), p.author_id, p.created_at, p.updated_at
		FROM posts p
		JOIN posts_categories pc ON pc.post_id = p.id
		WHERE pc.category_id = $1
		ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0)
	for rows.Next() {
		var post types.Post
		if err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Description,
			&post.Content,
			&post.IsDraft,
			&post.CoverImage,
			&post.AuthorID,
			&post.CreatedAt,
			&post.UpdatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
