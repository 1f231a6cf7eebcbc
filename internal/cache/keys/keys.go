package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "merchant-map"

// Dataset is the Redis key holding the record collection for a dataset name.
// The sanitized name keeps keys readable; the hash keeps names that sanitize
// to the same text apart.
func Dataset(name string) string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		raw = "default"
	}
	safe := sanitize(raw)

	const maxNameLen = 64
	if len(safe) > maxNameLen {
		safe = safe[:maxNameLen]
	}
	return fmt.Sprintf("%s:records:%s:h=%016x", prefix, safe, xxhash.Sum64String(raw))
}

// Fingerprint is a short stable digest of a payload, used for ETags.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// ':' included, so a name cannot forge extra key segments
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
