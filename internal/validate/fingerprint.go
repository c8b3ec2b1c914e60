package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/ppiankov/trackrecord/internal/model"
)

// Fingerprint derives the dedup key for a claim. Two candidates from the
// same author with the same type and a textually equivalent fragment map
// to the same fingerprint, so overlapping ingestion never produces two
// opinion rows.
func Fingerprint(authorID string, typ model.OpinionType, fragment string) string {
	h := sha256.Sum256([]byte(authorID + "|" + string(typ) + "|" + normalize(fragment)))
	return hex.EncodeToString(h[:])
}

// normalize lowercases, strips punctuation, and collapses whitespace so
// superficial rephrasings of the same fragment fingerprint identically.
func normalize(text string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
