package types

import "time"

// Post represents a blog article written by a user.
type Post struct {
	ID          int    `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"short_description"`
	Content     string `json:"content" db:"content"`

	// IsDraft marks posts that are not yet published.
	IsDraft bool `json:"is_draft" db:"is_draft"`

	// CoverImage is the URL of the post's cover image, if any.
	CoverImage string `json:"cover_image,omitempty" db:"cover_image"`

	// AuthorID references the user who wrote the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// Author is the post's author, loaded on detail reads.
	Author *User `json:"author,omitempty"`

	// Categories are the categories the post belongs to.
	Categories []Category `json:"categories,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PostListItem is the compact shape used by paginated post listings.
type PostListItem struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"short_description"`
	AuthorID    int       `json:"author_id" db:"author_id"`
	AuthorName  string    `json:"author_name" db:"author_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
