package ingest

import (
	"testing"
	"time"
)

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		name     string
		progress Progress
		want     float64
	}{
		{name: "half done", progress: Progress{PagesDone: 11, TotalPages: 22}, want: 50},
		{name: "complete", progress: Progress{PagesDone: 22, TotalPages: 22}, want: 100},
		{name: "nothing done", progress: Progress{PagesDone: 0, TotalPages: 22}, want: 0},
		{name: "zero total", progress: Progress{PagesDone: 5, TotalPages: 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.progress.Percent(); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgress_ETA(t *testing.T) {
	// 50% done in 10 minutes: estimated total 20 minutes, 10 remaining.
	p := Progress{PagesDone: 10, TotalPages: 20, Elapsed: 10 * time.Minute}
	if got := p.ETA(); got != 10*time.Minute {
		t.Errorf("ETA() = %v, want 10m", got)
	}

	// Nothing done yet: no estimate.
	p = Progress{PagesDone: 0, TotalPages: 20, Elapsed: time.Minute}
	if got := p.ETA(); got != 0 {
		t.Errorf("ETA() = %v, want 0", got)
	}

	// Complete: nothing remaining.
	p = Progress{PagesDone: 20, TotalPages: 20, Elapsed: time.Hour}
	if got := p.ETA(); got != 0 {
		t.Errorf("ETA() = %v, want 0", got)
	}
}
