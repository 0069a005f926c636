// Package progress maps free-text processing status onto a completion
// percentage. Compute is pure: the same inputs always give the same output,
// with no storage or clock behind it.
package progress

import (
	"math"
	"strings"
)

// Compute derives a new completion percentage from the document's status
// text, its prior percentage, and the page counters. Precedence runs top to
// bottom; the first matching phase wins.
//
// The result is rounded and capped at 99 except for the terminal complete
// phase, which alone may return 100.
func Compute(status string, prior float64, numberOfPages, currentChunk int) float64 {
	s := strings.ToLower(status)

	// Terminal: completion sticks at 100 once reached.
	if strings.Contains(s, "processing complete") || prior == 100 {
		return 100
	}

	// Failure freezes the percentage at its last known-good value.
	if strings.Contains(s, "error") || strings.Contains(s, "failed") {
		return cap99(prior)
	}

	switch {
	case strings.Contains(s, "queued"):
		return 0
	case strings.Contains(s, "sending"):
		return 5
	case strings.Contains(s, "saving page"), strings.Contains(s, "saving chunk"):
		if numberOfPages > 0 {
			done := currentChunk
			if done > numberOfPages {
				done = numberOfPages
			}
			pct := 5 + float64(done)/float64(numberOfPages)*80
			return cap99(pct)
		}
		return 5
	case strings.Contains(s, "extracting final metadata"):
		return 95
	}

	return cap99(prior)
}

func cap99(pct float64) float64 {
	rounded := math.Round(pct)
	if rounded > 99 {
		return 99
	}
	return rounded
}
