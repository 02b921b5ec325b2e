package feed

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"blogcristao/internal/model"
)

// Cursor points at the last post of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode returns the opaque form handed to clients: base64("<unixnano>:<id>").
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a cursor produced by Encode.
func ParseCursor(s string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, model.ErrInvalidCursor
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, model.ErrInvalidCursor
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, model.ErrInvalidCursor
	}

	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: parts[1]}, nil
}
