package model

import (
	"fmt"
	"strings"
	"time"
)

// ArchiveTask represents a single zip-bundling task
type ArchiveTask struct {
	ID         string
	InputPaths []string
	OutputPath string
	Status     TaskStatus
	Progress   float64 // 0.0 to 1.0
	Percent    int     // 0 to 100
	BytesDone  int64   // input bytes archived so far
	BytesTotal int64   // total input bytes
	LastError  string  // last error message if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// GetDisplayName returns the archive file name, or a summary of the inputs
// while no output path is known
func (at *ArchiveTask) GetDisplayName() string {
	if at.OutputPath != "" {
		// Extract just the filename without path (support both / and \ separators)
		parts := strings.FieldsFunc(at.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}

	if len(at.InputPaths) == 1 {
		parts := strings.FieldsFunc(at.InputPaths[0], func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}

	if len(at.InputPaths) > 1 {
		return fmt.Sprintf("%d files", len(at.InputPaths))
	}

	return ""
}
