package outbox

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

var identPartRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseIdentifier parses "schema.table" or "table".
func ParseIdentifier(s string) (pgx.Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, invalidConfig("identifier is empty")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, invalidConfig("invalid identifier %q", s)
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if !identPartRe.MatchString(parts[i]) {
			return nil, invalidConfig("invalid identifier %q", s)
		}
	}
	return pgx.Identifier(parts), nil
}
