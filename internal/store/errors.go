package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write hits a unique constraint, such
// as a taken username, email or category name.
var ErrDuplicate = errors.New("record already exists")

// ErrMissingCategories is returned when a post references category ids
// that do not all exist.
var ErrMissingCategories = errors.New("one or more categories do not exist")

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
