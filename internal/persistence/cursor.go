// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"example.com/habits/internal/domain"
)

// EncodeCursor serialises the log cursor to a string token.
func EncodeCursor(c *domain.LogCursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", c.Day.UTC().Format(time.RFC3339), c.ID)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token.
func DecodeCursor(token string) (*domain.LogCursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	day, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return nil, err
	}
	return &domain.LogCursor{Day: day, ID: parts[1]}, nil
}
