// Package identity derives the deterministic key that names every artifact of
// a work item: its workspace directory, its object key prefix, and its
// catalog record.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"hlsingest/internal/services"
)

// Identity is a filesystem- and key-safe token derived from a source URL.
type Identity string

func (id Identity) String() string { return string(id) }

const fallbackPrefix = "item_"

// MaxLen bounds an identity so the workspace directory name, with the
// disambiguation and timestamp suffixes added, stays under common 255-byte
// filename limits.
const MaxLen = 200

// Derive maps sourceURL to its identity: the scheme is removed, the final
// extension of the path is removed, and every character outside [A-Za-z0-9]
// becomes '_'.
//
// The returned identity is always usable. When the URL reduces to nothing
// meaningful, Derive falls back to a hash-based identity and also returns an
// error wrapping services.ErrDerivation so callers can log the degradation.
func Derive(sourceURL string) (Identity, error) {
	trimmed := strings.TrimSpace(sourceURL)
	rest := stripScheme(trimmed)
	rest = stripExtension(rest)

	var b strings.Builder
	b.Grow(len(rest))
	meaningful := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if isSafe(c) {
			b.WriteByte(c)
			meaningful = true
			continue
		}
		b.WriteByte('_')
	}
	if meaningful {
		return capLength(b.String(), sourceURL), nil
	}

	fallback := Identity(fallbackPrefix + digest(sourceURL, 12))
	return fallback, services.Wrap(services.ErrDerivation, "pending", "derive identity",
		"source url has no identity-safe characters; using hash fallback "+string(fallback), nil)
}

// Disambiguate returns a variant of id that is unique to sourceURL. It is used
// when two different source URLs derive the same identity.
func Disambiguate(id Identity, sourceURL string) Identity {
	return Identity(string(id) + "_" + digest(sourceURL, 8))
}

func stripScheme(value string) string {
	if idx := strings.Index(value, "://"); idx >= 0 {
		return value[idx+3:]
	}
	return value
}

// stripExtension removes the last ".ext" of the path portion. Host-only values
// (no '/') keep their dots so "a.com" does not collapse to "a".
func stripExtension(value string) string {
	slash := strings.IndexByte(value, '/')
	if slash < 0 {
		return value
	}
	path := value[slash:]
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || strings.IndexByte(path[dot:], '/') >= 0 || dot == len(path)-1 {
		return value
	}
	return value[:slash+dot]
}

// capLength truncates ids over MaxLen and appends a hash of the full source
// URL so long URLs sharing a prefix still map to distinct identities.
func capLength(id, sourceURL string) Identity {
	if len(id) <= MaxLen {
		return Identity(id)
	}
	const tail = 1 + 8
	return Identity(id[:MaxLen-tail] + "_" + digest(sourceURL, 8))
}

func isSafe(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func digest(value string, n int) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:n]
}
