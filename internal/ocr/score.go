package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	minWordLetters  = 2
	minLetterRatio  = 0.6
	asianLetterRate = 0.6
)

// Validate normalizes text for equality comparisons: NFKC-folded, lower case,
// letters and digits only, words separated by single spaces. Asian text drops
// spacing entirely.
func Validate(text string, asian bool) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(norm.NFKC.String(text)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		if !asian {
			space = true
		}
	}
	return b.String()
}

// Score rates how much a reading looks like real text. Each word made mostly of
// letters counts one point and each of its letters a tenth of a point; Asian
// text is rated per letter. Zero means no usable text.
func Score(text string, asian bool) float64 {
	if asian {
		letters := 0
		for _, r := range text {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		return asianLetterRate * float64(letters)
	}

	var words, letters int
	for _, w := range strings.Fields(text) {
		n, total := 0, 0
		for _, r := range w {
			total++
			if unicode.IsLetter(r) {
				n++
			}
		}
		if n >= minWordLetters && float64(n) >= minLetterRatio*float64(total) {
			words++
			letters += n
		}
	}
	return float64(words) + float64(letters)/10
}
