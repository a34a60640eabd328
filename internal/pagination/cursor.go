// Package pagination implements the opaque keyset cursor used by the
// ticket feed. A cursor encodes the (urgency_score, created_at, id)
// triple of the last row served, so pages stay stable while new tickets
// arrive and the feed keeps the most urgent tickets first.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Cursor is a decoded pagination position.
type Cursor struct {
	LastID    string
	Timestamp time.Time
	Score     int
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// EncodeCursor packs the last row's id, creation time and urgency score
// into an opaque base64 token. An empty id yields an empty token (no
// next page).
func EncodeCursor(lastID string, timestamp time.Time, score int) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano) + "|" + strconv.Itoa(score)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token
// decodes to a nil cursor (first page); anything malformed returns
// ErrInvalidCursor.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 3)
	if len(parts) != 3 {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	score, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    parts[0],
		Timestamp: timestamp,
		Score:     score,
	}, nil
}
