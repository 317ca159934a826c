package ui

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimpleArticleResult(t *testing.T) {
	t.Parallel()

	r := NewSimpleArticleResult("", "Caps", "HELLO")
	_, err := uuid.Parse(r.ResultID())
	require.NoError(t, err, "generated ids are UUIDs")
	assert.Equal(t, "HELLO", r.Text)

	fixed := NewSimpleArticleResult("id-1", "Caps", "X")
	assert.Equal(t, "id-1", fixed.ResultID())

	resp := QueryResponse(0, r, fixed)
	assert.Len(t, resp.Results, 2)
	assert.True(t, resp.IsPersonal)
}
