package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationMeta(t *testing.T) {
	meta := PaginationMeta(25, 1, 10)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 1, meta.Page)
	assert.False(t, meta.HasPrev)
	assert.True(t, meta.HasNext)
	assert.Equal(t, 0, meta.Offset())
}

func TestPaginationMetaClampsPage(t *testing.T) {
	meta := PaginationMeta(25, 99, 10)
	assert.Equal(t, 3, meta.Page)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasPrev)
	assert.False(t, meta.HasNext)
	assert.Equal(t, 20, meta.Offset())
}

func TestPaginationMetaEmptyResult(t *testing.T) {
	meta := PaginationMeta(0, 1, 10)
	assert.Equal(t, 1, meta.TotalPages)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 0, meta.Total)
	assert.False(t, meta.HasNext)
}

func TestPaginationMetaExactMultiple(t *testing.T) {
	meta := PaginationMeta(30, 2, 10)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 2, meta.Page)
	assert.True(t, meta.HasPrev)
	assert.True(t, meta.HasNext)
}

func TestPaginationMetaBadInputs(t *testing.T) {
	meta := PaginationMeta(5, 0, 0)
	assert.Equal(t, 1, meta.PageSize)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 5, meta.TotalPages)
}
