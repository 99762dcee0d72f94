package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageSnapshot_ClampedPercent(t *testing.T) {
	tests := []struct {
		name     string
		percent  float64
		expected float64
	}{
		{"in range", 50, 50},
		{"zero", 0, 0},
		{"exactly full", 100, 100},
		{"over range", 137, 100},
		{"negative", -12, 0},
		{"fractional", 84.3, 84.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &UsageSnapshot{Percent: tt.percent}
			assert.Equal(t, tt.expected, s.ClampedPercent())
		})
	}
}

func TestUsageSnapshot_IsFull(t *testing.T) {
	tests := []struct {
		name     string
		snapshot UsageSnapshot
		expected bool
	}{
		{"half used", UsageSnapshot{UsedBytes: 500, MaxBytes: 1000, Percent: 50}, false},
		{"bytes full, percent stale", UsageSnapshot{UsedBytes: 1000, MaxBytes: 1000, Percent: 99}, true},
		{"percent full, bytes stale", UsageSnapshot{UsedBytes: 10, MaxBytes: 1000, Percent: 100}, true},
		{"percent over range", UsageSnapshot{UsedBytes: 10, MaxBytes: 1000, Percent: 137}, true},
		{"bytes over max", UsageSnapshot{UsedBytes: 2000, MaxBytes: 1000, Percent: 42}, true},
		{"almost full", UsageSnapshot{UsedBytes: 999, MaxBytes: 1000, Percent: 99.9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.snapshot.IsFull())
		})
	}
}

func TestUsageSnapshot_StatusText(t *testing.T) {
	s := &UsageSnapshot{
		UsedBytes: 500 * 1024 * 1024,
		MaxBytes:  1073741824,
		Percent:   50,
		UsedHuman: "500.0 MB",
		MaxHuman:  "1.0 GB",
	}
	assert.Equal(t, "500.0 MB / 1.0 GB (50%)", s.StatusText())

	// Out-of-range percent renders clamped
	s.Percent = 137
	assert.Equal(t, "500.0 MB / 1.0 GB (100%)", s.StatusText())

	s.Percent = -3
	assert.Equal(t, "500.0 MB / 1.0 GB (0%)", s.StatusText())
}

func TestUsageSnapshot_ProgressFraction(t *testing.T) {
	assert.Equal(t, 0.5, (&UsageSnapshot{Percent: 50}).ProgressFraction())
	assert.Equal(t, 1.0, (&UsageSnapshot{Percent: 137}).ProgressFraction())
	assert.Equal(t, 0.0, (&UsageSnapshot{Percent: -1}).ProgressFraction())
}
