package model

import (
	"fmt"
	"math"
)

// UsageSnapshot is the server-reported storage usage at one point in time.
// Snapshots are replaced wholesale after every successful fetch or upload
// response that carries one; fields are never mutated individually.
type UsageSnapshot struct {
	UsedBytes int64   `json:"used_bytes"`
	MaxBytes  int64   `json:"max_bytes"`
	Percent   float64 `json:"percent"`
	UsedHuman string  `json:"used_human"`
	MaxHuman  string  `json:"max_human"`
}

// ClampedPercent returns the reported percent clamped to [0,100]. Server
// values may be out of range; every display and admission decision uses the
// clamped value.
func (s *UsageSnapshot) ClampedPercent() float64 {
	return math.Min(100, math.Max(0, s.Percent))
}

// IsFull reports whether storage capacity is exhausted.
func (s *UsageSnapshot) IsFull() bool {
	return s.UsedBytes >= s.MaxBytes || s.ClampedPercent() >= 100
}

// StatusText returns the usage display line, e.g. "500.0 MB / 1.0 GB (50%)".
// The percent is shown rounded; admission decisions use the unrounded value.
func (s *UsageSnapshot) StatusText() string {
	return fmt.Sprintf("%s / %s (%d%%)", s.UsedHuman, s.MaxHuman, int(math.Round(s.ClampedPercent())))
}

// ProgressFraction returns the clamped percent as a 0..1 fraction for
// progress widgets.
func (s *UsageSnapshot) ProgressFraction() float64 {
	return s.ClampedPercent() / 100
}
