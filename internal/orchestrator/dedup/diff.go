package dedup

import (
	"strings"
	"unicode/utf8"
)

// Diff removes the previous detection from text, so dialogue that grows by
// appending only yields the new part. A blank remainder returns "".
func Diff(prev, text string) string {
	if strings.TrimSpace(prev) != "" {
		text = strings.ReplaceAll(text, prev, "")
	}
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}

// IsTruncation reports whether text is more than SequentialDiffLetters
// shorter than prev, which marks a truncated continuation. A blank text has
// length zero.
func IsTruncation(prev, text string) bool {
	prev, text = strings.TrimSpace(prev), strings.TrimSpace(text)
	return utf8.RuneCountInString(prev)-utf8.RuneCountInString(text) > SequentialDiffLetters
}

// SequentialDiffLetters is how many letters shorter a reading must be to count as truncated.
const SequentialDiffLetters = 3
