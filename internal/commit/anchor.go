package commit

import (
	"fmt"
	"strings"
)

// Commit hashes are stored internally as 64-character anchors so SHA-1
// and SHA-256 repositories share one storage format: a SHA-256 hash is
// used as-is, a SHA-1 hash is zero-padded at the end to 64 characters.

const (
	sha1HexLen   = 40
	anchorHexLen = 64
)

// NormalizeAnchor converts a commit hash in SHA-1 (40 hex chars) or
// SHA-256 (64 hex chars) form into the 64-character lowercase anchor
// format. Other lengths are rejected.
func NormalizeAnchor(hash string) (string, error) {
	v := strings.TrimSpace(hash)

	if !isHex(v) {
		return "", fmt.Errorf("invalid commit hash: contains non-hex characters: %s", v)
	}

	v = strings.ToLower(v)

	switch len(v) {
	case anchorHexLen:
		return v, nil
	case sha1HexLen:
		return v + strings.Repeat("0", anchorHexLen-sha1HexLen), nil
	default:
		return "", fmt.Errorf("invalid commit hash length: %d", len(v))
	}
}

// SHA1FromAnchor extracts the original SHA-1 hash (the first 40
// characters) from a 64-character anchor.
func SHA1FromAnchor(anchor string) (string, error) {
	v := strings.TrimSpace(anchor)

	if len(v) != anchorHexLen {
		return "", fmt.Errorf("invalid anchor length: %d", len(v))
	}
	if !isHex(v) {
		return "", fmt.Errorf("invalid anchor: contains non-hex characters: %s", v)
	}

	return v[:sha1HexLen], nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
