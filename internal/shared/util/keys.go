// Package util holds small helpers for building storage keys from user input.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

// MaxFileNameLength caps the stored portion of an uploaded file name.
const MaxFileNameLength = 120

// ErrInvalidFileName is returned when nothing usable remains of a name.
var ErrInvalidFileName = errors.New("invalid file name")

// SafeFileName keeps the base name of an upload, drops control characters,
// and trims it to MaxFileNameLength runes while preserving the extension.
func SafeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." {
		return "", ErrInvalidFileName
	}

	runes := []rune(name)
	if len(runes) <= MaxFileNameLength {
		return name, nil
	}
	var ext []rune
	if i := strings.LastIndex(name, "."); i > 0 && len(name)-i <= 8 {
		ext = []rune(name[i:])
	}
	return string(runes[:MaxFileNameLength-len(ext)]) + string(ext), nil
}

// OwnerKey maps an owner id to a stable, path-safe directory name.
func OwnerKey(ownerID string) string {
	sum := sha256.Sum256([]byte("owner:" + ownerID))
	return hex.EncodeToString(sum[:16])
}
