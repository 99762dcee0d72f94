package model

import (
	"time"
)

// BatchFile represents a single file within an upload batch
type BatchFile struct {
	Path      string     `json:"path"`
	Name      string     `json:"name"`
	Size      int64      `json:"size"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UploadBatch represents the files of one upload operation. The files travel
// in a single request, so statuses move together, but skipped entries keep
// their own state and the batch tracks byte-level progress of the request
// body for display.
type UploadBatch struct {
	ID         string       `json:"id"`
	Files      []*BatchFile `json:"files"`
	Status     TaskStatus   `json:"status"`
	TotalFiles int          `json:"total_files"`
	BytesTotal int64        `json:"bytes_total"`
	BytesSent  int64        `json:"bytes_sent"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewUploadBatch creates a new empty batch instance
func NewUploadBatch(id string) *UploadBatch {
	now := time.Now()
	return &UploadBatch{
		ID:        id,
		Status:    TaskStatusPending,
		Files:     make([]*BatchFile, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddFile adds a file to the batch
func (b *UploadBatch) AddFile(file *BatchFile) {
	b.Files = append(b.Files, file)
	b.TotalFiles = len(b.Files)
	b.BytesTotal += file.Size
	b.UpdatedAt = time.Now()
}

// UpdateStatus updates the batch status
func (b *UploadBatch) UpdateStatus(status TaskStatus) {
	b.Status = status
	b.UpdatedAt = time.Now()
}

// MarkFiles moves every non-skipped file to the given status
func (b *UploadBatch) MarkFiles(status TaskStatus) {
	now := time.Now()
	for _, f := range b.Files {
		if f.Status == TaskStatusSkipped {
			continue
		}
		f.Status = status
		f.UpdatedAt = now
	}
	b.UpdatedAt = now
}

// RecomputeTotal re-derives BytesTotal from the entries that will travel,
// dropping the sizes of skipped ones
func (b *UploadBatch) RecomputeTotal() {
	var total int64
	for _, f := range b.SendableFiles() {
		total += f.Size
	}
	b.BytesTotal = total
	b.UpdatedAt = time.Now()
}

// AddSent advances the sent-byte counter
func (b *UploadBatch) AddSent(n int64) {
	b.BytesSent += n
	if b.BytesSent > b.BytesTotal {
		b.BytesSent = b.BytesTotal
	}
	b.UpdatedAt = time.Now()
}

// Progress returns the overall upload progress as a 0..1 fraction
func (b *UploadBatch) Progress() float64 {
	if b.BytesTotal == 0 {
		return 0
	}
	return float64(b.BytesSent) / float64(b.BytesTotal)
}

// Percent returns the overall upload progress as a percentage
func (b *UploadBatch) Percent() int {
	return int(b.Progress() * 100)
}

// SkippedFiles returns the entries that were left out of the request
func (b *UploadBatch) SkippedFiles() []*BatchFile {
	var skipped []*BatchFile
	for _, f := range b.Files {
		if f.Status == TaskStatusSkipped {
			skipped = append(skipped, f)
		}
	}
	return skipped
}

// SendableFiles returns the entries that will travel in the request
func (b *UploadBatch) SendableFiles() []*BatchFile {
	var sendable []*BatchFile
	for _, f := range b.Files {
		if f.Status != TaskStatusSkipped {
			sendable = append(sendable, f)
		}
	}
	return sendable
}

// HasErrors checks if any file has errors
func (b *UploadBatch) HasErrors() bool {
	for _, f := range b.Files {
		if f.Status == TaskStatusError {
			return true
		}
	}
	return false
}
