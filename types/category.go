package types

import "time"

// Category groups posts under a unique name.
type Category struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// CreatedByID references the user who created the category.
	CreatedByID int `json:"created_by_id" db:"created_by_user_id"`

	// CreatedBy is the creating user, loaded on reads.
	CreatedBy *User `json:"created_by,omitempty"`

	// Posts are the posts in this category, loaded on detail reads.
	Posts []Post `json:"posts,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
