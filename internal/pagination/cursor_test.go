package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 5, 12, 9, 30, 0, 123456789, time.UTC)
	encoded := EncodeCursor("ticket-42", ts, 7)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "ticket-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
	assert.Equal(t, 7, cursor.Score)
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now(), 5))
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty cursor decodes to nil", func(t *testing.T) {
		cursor, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := DecodeCursor("not base64 !!!")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects a payload without separators", func(t *testing.T) {
		_, err := DecodeCursor("dGlja2V0LTQy") // "ticket-42"
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects a payload missing the score", func(t *testing.T) {
		_, err := DecodeCursor("dGlja2V0LTQyfDIwMjYtMDUtMTJUMDk6MzA6MDBa") // "ticket-42|2026-05-12T09:30:00Z"
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects a bad timestamp", func(t *testing.T) {
		_, err := DecodeCursor("dGlja2V0LTQyfG5vdC1hLXRpbWV8Nw==") // "ticket-42|not-a-time|7"
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects a non-numeric score", func(t *testing.T) {
		_, err := DecodeCursor("dGlja2V0LTQyfDIwMjYtMDUtMTJUMDk6MzA6MDBafHNldmVu") // "ticket-42|2026-05-12T09:30:00Z|seven"
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}
