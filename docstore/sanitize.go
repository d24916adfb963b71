// CLAUDE:SUMMARY Filename sanitization, identifier validation and path traversal guards for the store.
package docstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("docstore: path traversal detected")

// SanitizeName maps every character outside [A-Za-z0-9._-] to '_'.
// Applied to user ids and original file base names before they become
// path segments.
func SanitizeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if isNameChar(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// ValidateUserID rejects user ids unsuitable for file names or catalog
// keys. Allows alphanumeric, underscore, hyphen and dot.
func ValidateUserID(s string) error {
	if s == "" {
		return fmt.Errorf("docstore: user id must not be empty")
	}
	if len(s) > 256 {
		return fmt.Errorf("docstore: user id too long (max 256)")
	}
	for _, r := range s {
		if !isNameChar(r) {
			return fmt.Errorf("docstore: invalid character %q in user id", r)
		}
	}
	return nil
}

// safeJoin joins base and segment, verifying the result stays under base.
func safeJoin(base, segment string) (string, error) {
	if strings.Contains(segment, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+segment))
	if !strings.HasPrefix(cleaned, filepath.Clean(base)+string(filepath.Separator)) &&
		cleaned != filepath.Clean(base) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
