package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/knowbase/kb-uploader/internal/api"
	"github.com/knowbase/kb-uploader/internal/capacity"
	"github.com/knowbase/kb-uploader/internal/model"
	"github.com/knowbase/kb-uploader/pkg/bytesize"
)

// Default limits
const (
	DefaultRefreshDelay = 1 * time.Second
	DefaultMaxFileSize  = 100 * bytesize.MB
)

// progressNotifyInterval throttles UI updates during body transmission
const progressNotifyInterval = 200 * time.Millisecond

// Submission errors reported before any network activity happens.
var (
	ErrNoFilesSelected  = errors.New("no files selected")
	ErrCapacityExceeded = errors.New("device storage is full")
	ErrUploadInFlight   = errors.New("an upload is already in progress")
)

// FailureKind classifies why an upload did not succeed.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNoFiles        FailureKind = "no_files_selected"
	FailureCapacity       FailureKind = "capacity_exceeded"
	FailureTransport      FailureKind = "transport_error"
	FailureServerRejected FailureKind = "server_rejected"
)

// Classify maps an upload error onto its failure kind. Server rejections
// carry a message from the device; everything else that happened on the
// wire is a transport failure.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrNoFilesSelected):
		return FailureNoFiles
	case errors.Is(err, ErrCapacityExceeded):
		return FailureCapacity
	}

	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		return FailureServerRejected
	}
	return FailureTransport
}

// Controller drives file uploads against the device. It owns the current
// file selection, admits or rejects submission attempts against the
// capacity gate, and guarantees that at most one upload request is on the
// wire at a time.
type Controller struct {
	client *api.Client
	gate   *capacity.Gate
	fs     billy.Filesystem

	mu           sync.RWMutex
	selection    *model.FileSelection
	inFlight     bool
	batch        *model.UploadBatch
	cancelUpload context.CancelFunc
	lastNotify   time.Time

	refreshDelay time.Duration
	maxFileSize  int64

	onUpdate func(*model.UploadBatch) // callback for UI updates
	onState  func()                   // callback for selection and flight changes
}

// NewController creates a new upload controller
func NewController(client *api.Client, gate *capacity.Gate, fs billy.Filesystem) *Controller {
	return &Controller{
		client:       client,
		gate:         gate,
		fs:           fs,
		refreshDelay: DefaultRefreshDelay,
		maxFileSize:  DefaultMaxFileSize,
	}
}

// SetUpdateCallback sets the callback function for batch updates
func (c *Controller) SetUpdateCallback(callback func(*model.UploadBatch)) {
	c.onUpdate = callback
}

// SetStateCallback sets the callback for selection and in-flight changes
func (c *Controller) SetStateCallback(callback func()) {
	c.onState = callback
}

// SetRefreshDelay overrides the delay before the post-upload usage refresh
func (c *Controller) SetRefreshDelay(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshDelay = delay
}

// SetMaxFileSize overrides the advisory single-file size limit
func (c *Controller) SetMaxFileSize(limit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxFileSize = limit
}

// SetSelection replaces the current selection with the given paths. Picking
// files is always a wholesale swap, never an append, mirroring how a file
// chooser hands over its result.
func (c *Controller) SetSelection(paths []string) {
	selection := model.NewFileSelection(paths)
	for i := range selection.Files {
		info, err := c.fs.Stat(selection.Files[i].Path)
		if err != nil {
			log.Warn().Err(err).Str("file", selection.Files[i].Name).Msg("stat selected file failed")
			continue
		}
		selection.Files[i].Size = info.Size()
	}

	c.mu.Lock()
	c.selection = selection
	c.mu.Unlock()

	for _, f := range selection.Oversized(c.MaxFileSize()) {
		log.Warn().Str("file", f.Name).Int64("size", f.Size).
			Msg("file exceeds the advisory single-file limit, the device may refuse it")
	}

	c.notifyState()
}

// ClearSelection drops the current selection.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selection = nil
	c.mu.Unlock()
	c.notifyState()
}

// Selection returns the current selection, nil when nothing is selected.
func (c *Controller) Selection() *model.FileSelection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selection
}

// InFlight reports whether an upload request is currently on the wire.
func (c *Controller) InFlight() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight
}

// CurrentBatch returns the most recent batch, which may still be running.
func (c *Controller) CurrentBatch() *model.UploadBatch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.batch
}

// MaxFileSize returns the advisory single-file size limit.
func (c *Controller) MaxFileSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxFileSize
}

// CanSubmit reports whether a submission would currently be admitted.
// Uploads with nothing selected or against an exhausted device are not.
// An unknown or degraded capacity reading does not block.
func (c *Controller) CanSubmit() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.selection.IsEmpty() && !c.inFlight && !c.gate.IsFull()
}

// Submit starts uploading the current selection. It validates up front and
// returns before any network traffic: the transfer itself runs in the
// background and reports through the update callback. While a transfer is
// on the wire further calls return ErrUploadInFlight without touching the
// network.
func (c *Controller) Submit(ctx context.Context) (*model.UploadBatch, error) {
	c.mu.Lock()

	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	if c.selection.IsEmpty() {
		c.mu.Unlock()
		return nil, ErrNoFilesSelected
	}
	// The button is disabled while the device is full, but the check runs
	// again here so a submission from a stale view is still rejected
	if c.gate.IsFull() {
		c.mu.Unlock()
		return nil, ErrCapacityExceeded
	}

	batch := model.NewUploadBatch(generateBatchID())
	for _, f := range c.selection.Files {
		batch.AddFile(&model.BatchFile{
			Path:   f.Path,
			Name:   f.Name,
			Size:   f.Size,
			Status: model.TaskStatusPending,
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	c.inFlight = true
	c.batch = batch
	c.cancelUpload = cancel
	c.mu.Unlock()

	c.notifyState()
	go c.runUpload(ctx, batch)

	return batch, nil
}

// Cancel aborts the in-flight upload, if any.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancelUpload
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// runUpload performs the actual transfer for a batch
func (c *Controller) runUpload(ctx context.Context, batch *model.UploadBatch) {
	c.mu.Lock()
	batch.UpdateStatus(model.TaskStatusStarting)
	c.mu.Unlock()
	c.notifyUpdate(batch)

	files, closeFiles, err := c.openFiles(batch)
	if err != nil {
		c.finishUpload(ctx, batch, nil, err)
		return
	}
	defer closeFiles()

	c.mu.Lock()
	batch.RecomputeTotal()
	batch.UpdateStatus(model.TaskStatusRunning)
	batch.MarkFiles(model.TaskStatusRunning)
	c.mu.Unlock()
	c.notifyUpdate(batch)

	resp, err := c.client.UploadFiles(ctx, files, func(n int64) {
		c.advanceProgress(batch, n)
	})
	c.finishUpload(ctx, batch, resp, err)
}

// openFiles opens every batch entry for reading. Entries that cannot be
// opened are marked skipped and left out of the request; the upload fails
// only when no entry is readable.
func (c *Controller) openFiles(batch *model.UploadBatch) ([]api.UploadFile, func(), error) {
	var opened []billy.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	var firstErr error
	files := make([]api.UploadFile, 0, len(batch.Files))
	for _, entry := range batch.Files {
		f, err := c.fs.Open(entry.Path)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("open %s: %w", entry.Name, err)
			}
			c.mu.Lock()
			entry.Status = model.TaskStatusSkipped
			entry.Error = err.Error()
			c.mu.Unlock()
			log.Warn().Err(err).Str("file", entry.Name).Msg("skipping unreadable file")
			continue
		}
		opened = append(opened, f)
		files = append(files, api.UploadFile{Name: entry.Name, Content: f})
	}

	if len(files) == 0 {
		closeAll()
		return nil, nil, firstErr
	}
	return files, closeAll, nil
}

// advanceProgress records sent bytes, throttling UI notifications
func (c *Controller) advanceProgress(batch *model.UploadBatch, n int64) {
	c.mu.Lock()
	batch.AddSent(n)
	notify := time.Since(c.lastNotify) >= progressNotifyInterval || batch.BytesSent == batch.BytesTotal
	if notify {
		c.lastNotify = time.Now()
	}
	c.mu.Unlock()

	if notify {
		c.notifyUpdate(batch)
	}
}

// finishUpload records the terminal state of a batch and releases the latch
func (c *Controller) finishUpload(ctx context.Context, batch *model.UploadBatch, resp *api.UploadResponse, err error) {
	c.mu.Lock()
	switch {
	case err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil:
		batch.UpdateStatus(model.TaskStatusStopped)
		batch.MarkFiles(model.TaskStatusStopped)
		log.Info().Str("batch_id", batch.ID).Msg("upload cancelled")
	case err != nil:
		// Keep the selection so the user can retry, and surface the
		// message exactly as received
		batch.Error = err.Error()
		batch.UpdateStatus(model.TaskStatusError)
		batch.MarkFiles(model.TaskStatusError)
		log.Error().Err(err).Str("batch_id", batch.ID).Msg("upload failed")
	default:
		if resp != nil {
			batch.Message = resp.Message
		}
		batch.BytesSent = batch.BytesTotal
		batch.UpdateStatus(model.TaskStatusCompleted)
		batch.MarkFiles(model.TaskStatusCompleted)
		c.selection = nil
		log.Info().Str("batch_id", batch.ID).Int("files", batch.TotalFiles).Msg("upload completed")
	}

	c.inFlight = false
	c.cancelUpload = nil
	refreshDelay := c.refreshDelay
	c.mu.Unlock()

	if err == nil {
		// The response already carries a usage snapshot; adopt it now and
		// confirm with a delayed re-fetch once the device settles
		if resp != nil {
			c.gate.Adopt(resp.Usage)
		}
		c.gate.ScheduleRefresh(refreshDelay)
	}

	c.notifyUpdate(batch)
	c.notifyState()
}

// notifyUpdate calls the update callback if set
func (c *Controller) notifyUpdate(batch *model.UploadBatch) {
	if c.onUpdate != nil {
		c.onUpdate(batch)
	}
}

// notifyState calls the state callback if set
func (c *Controller) notifyState() {
	if c.onState != nil {
		c.onState()
	}
}

// generateBatchID generates a unique batch ID
func generateBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("upload-%d", time.Now().UnixNano())
	}
	return "upload-" + id.String()
}
