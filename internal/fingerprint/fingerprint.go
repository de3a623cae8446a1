// Package fingerprint derives the identity of a post from its text.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
)

// Length is the number of hex characters in a fingerprint
const Length = 12

// Normalize collapses every whitespace run (line breaks, tabs, NBSP and other
// Unicode spaces) into a single space and trims the result.
func Normalize(text string) string {
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}

func isSpace(r rune) bool {
	// U+200B is not classified as space by unicode.IsSpace but the source
	// pages use it as filler between words.
	return unicode.IsSpace(r) || r == '\u200b' || r == '\ufeff'
}

// Sum returns the fingerprint of text. The text is normalized first, so
// formatting differences never change a post's identity. Empty text has an
// empty fingerprint, which callers must never use as a key.
func Sum(text string) string {
	norm := Normalize(text)
	if norm == "" {
		return ""
	}
	h := md5.Sum([]byte(norm))
	return hex.EncodeToString(h[:])[:Length]
}
