package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaginationMeta(t *testing.T) {
	meta := newPaginationMeta(15, 2, 10)
	assert.Equal(t, 15, meta.TotalItems)
	assert.Equal(t, 10, meta.ItemsPerPage)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, 2, meta.CurrentPage)

	meta = newPaginationMeta(0, 1, 10)
	assert.Equal(t, 0, meta.TotalPages)
}

func TestParsePagination(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/posts", nil)
		page, limit, offset, err := parsePagination(r)
		require.NoError(t, err)
		assert.Equal(t, 1, page)
		assert.Equal(t, 10, limit)
		assert.Equal(t, 0, offset)
	})

	t.Run("explicit values", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/posts?page=3&limit=20", nil)
		page, limit, offset, err := parsePagination(r)
		require.NoError(t, err)
		assert.Equal(t, 3, page)
		assert.Equal(t, 20, limit)
		assert.Equal(t, 40, offset)
	})

	t.Run("limit is capped", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/posts?limit=500", nil)
		_, limit, _, err := parsePagination(r)
		require.NoError(t, err)
		assert.Equal(t, 100, limit)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, query := range []string{"page=zero", "page=-1", "limit=0", "limit=abc"} {
			_, _, _, err := parsePagination(httptest.NewRequest("GET", "/posts?"+query, nil))
			assert.Error(t, err, query)
		}
	})
}
