// Package consensus fuses the readings of several OCR engines into one.
package consensus

import "github.com/GriffinCanCode/screenlate/internal/ocr"

// DefaultMinAgree is the number of engines that must read identical text
// for that text to override raw scores.
const DefaultMinAgree = 3

// Select picks the best reading. Scanning forward, the first non-empty result
// whose validated text is shared by at least minAgree results wins; within that
// group the engine with the higher confidence supplies the result, and its score
// is forced to ocr.ConsensusScore. Without such a group the highest-scoring
// result is returned, engine confidence breaking ties.
//
// The bool reports whether the result was confirmed by agreement.
func Select(results []ocr.DetectionResult, minAgree int) (ocr.DetectionResult, bool) {
	if len(results) == 0 {
		return ocr.DetectionResult{}, false
	}
	if minAgree < 1 {
		minAgree = 1
	}

	n := len(results)
	best := 0
	for i := range results {
		if results[best].Compare(results[i]) <= 0 {
			best = i
		}
		// Fewer than minAgree results remain from i onward.
		if i > n-minAgree || results[i].Score == 0 {
			continue
		}

		count, keep := 1, i
		for j := i + 1; j < n; j++ {
			if results[j].ValidatedText != results[i].ValidatedText {
				continue
			}
			count++
			if results[keep].Engine.Confidence <= results[j].Engine.Confidence {
				keep = j
			}
		}
		if count >= minAgree {
			r := results[keep]
			r.Score = ocr.ConsensusScore
			return r, true
		}
	}
	return results[best], false
}
