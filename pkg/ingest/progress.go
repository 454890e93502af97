package ingest

import "time"

// Progress describes how far a run has advanced through the page range.
type Progress struct {
	PagesDone  int
	TotalPages int
	Elapsed    time.Duration
}

// Percent returns the completed share of pages, 0-100.
func (p Progress) Percent() float64 {
	if p.TotalPages <= 0 {
		return 0
	}
	return float64(p.PagesDone) / float64(p.TotalPages) * 100
}

// ETA estimates the remaining run time by linear extrapolation:
// estimated total = elapsed / percent * 100, remaining = total - elapsed.
// A rough estimator, acceptable because windows are roughly uniform cost.
func (p Progress) ETA() time.Duration {
	pct := p.Percent()
	if pct <= 0 {
		return 0
	}
	estimatedTotal := time.Duration(float64(p.Elapsed) / pct * 100)
	remaining := estimatedTotal - p.Elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
