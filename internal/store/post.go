package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blogforge/apiserver/types"
	"github.com/lib/pq"
)

// PostRepository handles persistence for posts and their category links.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// PostFilter narrows paginated listings.
type PostFilter struct {
	AuthorID   int
	CategoryID int
}

// List returns a page of post list items together with the total count
// matching the filter. Author display names come from the profile join.
func (r *PostRepository) List(ctx context.Context, offset, limit int, filter PostFilter) ([]types.PostListItem, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	where := ""
	args := []any{}
	if filter.AuthorID > 0 {
		args = append(args, filter.AuthorID)
		where += fmt.Sprintf(" AND p.author_id = $%d", len(args))
	}
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM posts_categories pc WHERE pc.post_id = p.id AND pc.category_id = $%d)", len(args))
	}

	countQuery := `SELECT COUNT(1) FROM posts p WHERE true` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT p.id, p.title, p.short_description, p.author_id,
			COALESCE(pr.name || ' ' || pr.last_name, ''), p.created_at
		FROM posts p
		LEFT JOIN profiles pr ON pr.user_id = p.author_id
		WHERE true` + where + fmt.Sprintf(`
		ORDER BY p.id
		OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]types.PostListItem, 0, limit)
	for rows.Next() {
		var item types.PostListItem
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Description,
			&item.AuthorID,
			&item.AuthorName,
			&item.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Get returns a post with its author and categories loaded.
func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	const query = `
		SELECT p.id, p.title, p.short_description, p.content, p.is_draft,
			COALESCE(p.cover_image, ''), p.author_id, p.created_at, p.updated_at,
			u.id, u.username, u.email, u.created_at, u.updated_at
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`

	var post types.Post
	var author types.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.Title,
		&post.Description,
		&post.Content,
		&post.IsDraft,
		&post.CoverImage,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
		&author.ID,
		&author.Username,
		&author.Email,
		&author.CreatedAt,
		&author.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	post.Author = &author

	categories, err := r.postCategories(ctx, post.ID)
	if err != nil {
		return types.Post{}, err
	}
	post.Categories = categories
	return post, nil
}

// Create inserts the post and its category links in one transaction.
// Every referenced category must exist.
func (r *PostRepository) Create(ctx context.Context, post types.Post, categoryIDs []int) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Post{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := checkCategoriesExist(ctx, tx, categoryIDs); err != nil {
		return types.Post{}, err
	}

	const query = `
		INSERT INTO posts (title, short_description, content, is_draft, cover_image, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		post.Title,
		post.Description,
		post.Content,
		post.IsDraft,
		nullableString(post.CoverImage),
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, err
	}

	if err := insertCategoryLinks(ctx, tx, post.ID, categoryIDs); err != nil {
		return types.Post{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// Update rewrites the post row. When replaceCategories is set the category
// links are replaced with categoryIDs, which must all exist.
func (r *PostRepository) Update(ctx context.Context, post types.Post, categoryIDs []int, replaceCategories bool) (types.Post, error) {
	post.UpdatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Post{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
		UPDATE posts
		SET title = $1,
			short_description = $2,
			content = $3,
			is_draft = $4,
			cover_image = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := tx.ExecContext(
		ctx,
		query,
		post.Title,
		post.Description,
		post.Content,
		post.IsDraft,
		nullableString(post.CoverImage),
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}

	if replaceCategories {
		if err := checkCategoriesExist(ctx, tx, categoryIDs); err != nil {
			return types.Post{}, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts_categories WHERE post_id = $1`, post.ID); err != nil {
			return types.Post{}, err
		}
		if err := insertCategoryLinks(ctx, tx, post.ID, categoryIDs); err != nil {
			return types.Post{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
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

// SetCoverImage updates only the cover image reference.
func (r *PostRepository) SetCoverImage(ctx context.Context, id int, coverImage string) error {
	const query = `UPDATE posts SET cover_image = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, coverImage, time.Now(), id)
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

func (r *PostRepository) postCategories(ctx context.Context, postID int) ([]types.Category, error) {
	const query = `
		SELECT c.id, c.name, c.created_by_user_id, c.created_at, c.updated_at
		FROM categories c
		JOIN posts_categories pc ON pc.category_id = c.id
		WHERE pc.post_id = $1
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		var category types.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.CreatedByID,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func checkCategoriesExist(ctx context.Context, tx *sql.Tx, categoryIDs []int) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	var count int
	const query = `SELECT COUNT(DISTINCT id) FROM categories WHERE id = ANY($1)`
	if err := tx.QueryRowContext(ctx, query, pq.Array(categoryIDs)).Scan(&count); err != nil {
		return err
	}
	if count != len(uniqueInts(categoryIDs)) {
		return ErrMissingCategories
	}
	return nil
}

func insertCategoryLinks(ctx context.Context, tx *sql.Tx, postID int, categoryIDs []int) error {
	for _, categoryID := range uniqueInts(categoryIDs) {
		const query = `INSERT INTO posts_categories (category_id, post_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, categoryID, postID); err != nil {
			return err
		}
	}
	return nil
}

func uniqueInts(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	unique := make([]int, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}
	return unique
}
