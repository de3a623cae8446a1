package app

import (
	"log/slog"
	"math"
	"time"
)

// Stats summarizes one run
type Stats struct {
	RunID string

	Pages      int
	EmptyPages int
	// Scraped counts records extracted with text
	Scraped   int
	New       int
	SeenAgain int
	Failed    int
	Discarded int

	Interrupted bool
	Started     time.Time
	Finished    time.Time
}

// SuccessRate is the percentage of scraped records that reached the store
func (s Stats) SuccessRate() float64 {
	if s.Scraped == 0 {
		return 0
	}
	return float64(s.New+s.SeenAgain) / float64(s.Scraped) * 100
}

// PostsPerMinute is the extraction rate over the run's wall time
func (s Stats) PostsPerMinute() float64 {
	d := s.Finished.Sub(s.Started)
	if d <= 0 {
		return 0
	}
	return float64(s.Scraped) / d.Minutes()
}

// LogValue implements slog.LogValuer
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pages", s.Pages),
		slog.Int("empty_pages", s.EmptyPages),
		slog.Int("scraped", s.Scraped),
		slog.Int("new", s.New),
		slog.Int("seen_again", s.SeenAgain),
		slog.Int("failed", s.Failed),
		slog.Int("discarded", s.Discarded),
		slog.Float64("success_rate", round(s.SuccessRate())),
		slog.Float64("posts_per_min", round(s.PostsPerMinute())),
		slog.Duration("took", s.Finished.Sub(s.Started).Round(time.Millisecond)),
	)
}

func round(f float64) float64 {
	return math.Round(f*10) / 10
}
