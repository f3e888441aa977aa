package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorToken(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 1500, time.UTC)
	token, err := EncodeCursor(Cursor{ID: "1812", CreatedAt: at})
	require.NoError(t, err)
	assert.NotContains(t, token, "=")

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1812", cursor.ID)
	assert.True(t, at.Equal(cursor.CreatedAt))

	cursor, err = DecodeCursor("  ")
	assert.NoError(t, err)
	assert.Nil(t, cursor)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidToken)

	empty, err := EncodeCursor(Cursor{})
	require.NoError(t, err)
	_, err = DecodeCursor(empty)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 50, Pagination{}.Limit(50, 1000))
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit(50, 1000))
	assert.Equal(t, 1000, Pagination{PageSize: 5000}.Limit(50, 1000))
}

func TestTrim(t *testing.T) {
	type row struct{ id string }
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cursorOf := func(r row) Cursor { return Cursor{ID: r.id, CreatedAt: at} }
	items := []row{{"a"}, {"b"}, {"c"}}

	page, info, err := Trim(items, 2, cursorOf)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	next, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "b", next.ID)

	page, info, err = Trim(items, 5, cursorOf)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
