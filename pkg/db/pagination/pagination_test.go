package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: 42})
	require.NoError(t, err)
	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestTrim(t *testing.T) {
	rows := []int64{1, 2, 3}
	page, info, err := Trim(rows, 2, func(v int64) int64 { return v })
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, page)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor.ID)

	page, info, err = Trim(rows, 5, func(v int64) int64 { return v })
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}

func TestLimitBounds(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
