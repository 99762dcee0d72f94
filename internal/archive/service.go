package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"

	"github.com/knowbase/kb-uploader/internal/model"
)

// Archive naming constants
const (
	TaskIDPrefix    = "bundle-"
	OutputPrefix    = "kb-upload-"
	OutputExtension = ".zip"
	OutputTimestamp = "20060102-150405"
)

// I/O constants
const (
	copyChunkSize     = 32 * 1024
	stopCheckInterval = 100 * time.Millisecond
)

// Service bundles selected files into a single zip archive so they travel
// to the device as one upload entry.
type Service struct {
	fs         billy.Filesystem
	stagingDir string

	tasks      map[string]*model.ArchiveTask
	tasksMutex sync.RWMutex
	onUpdate   func(*model.ArchiveTask) // callback for UI updates
	lastNotify time.Time
}

// NewService creates a new archive service writing into stagingDir
func NewService(fs billy.Filesystem, stagingDir string) *Service {
	return &Service{
		fs:         fs,
		stagingDir: stagingDir,
		tasks:      make(map[string]*model.ArchiveTask),
	}
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.ArchiveTask)) {
	s.onUpdate = callback
}

// Start begins bundling the given files into a fresh archive
func (s *Service) Start(inputPaths []string) (*model.ArchiveTask, error) {
	if len(inputPaths) == 0 {
		return nil, fmt.Errorf("no files to bundle")
	}

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	// Check inputs before creating the task
	var totalBytes int64
	for _, p := range inputPaths {
		info, err := s.fs.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input file does not exist: %s", p)
		}
		totalBytes += info.Size()
	}

	task := &model.ArchiveTask{
		ID:         generateTaskID(),
		InputPaths: append([]string(nil), inputPaths...),
		OutputPath: s.generateOutputPath(),
		Status:     model.TaskStatusPending,
		BytesTotal: totalBytes,
		StartedAt:  time.Now(),
	}

	s.tasks[task.ID] = task

	// Start bundling in background
	go s.runArchive(task)

	return task, nil
}

// Stop stops a running archive task
func (s *Service) Stop(taskID string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("archive task not found: %s", taskID)
	}

	if !task.Status.IsActive() {
		return fmt.Errorf("archive task is not active: %s", task.Status)
	}

	task.Status = model.TaskStatusStopping
	s.notifyUpdate(task)

	return nil
}

// GetTask returns an archive task by ID
func (s *Service) GetTask(taskID string) (*model.ArchiveTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[taskID]
	return task, exists
}

// runArchive performs the actual bundling
func (s *Service) runArchive(task *model.ArchiveTask) {
	s.tasksMutex.Lock()
	task.Status = model.TaskStatusStarting
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Monitor for stop requests
	go func() {
		for {
			s.tasksMutex.RLock()
			status := task.Status
			s.tasksMutex.RUnlock()

			if status == model.TaskStatusStopping {
				cancel()
				return
			}
			if status.IsFinished() {
				return
			}
			time.Sleep(stopCheckInterval)
		}
	}()

	s.tasksMutex.Lock()
	task.Status = model.TaskStatusRunning
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	err := s.writeArchive(ctx, task)

	s.tasksMutex.Lock()
	if ctx.Err() == context.Canceled {
		task.Status = model.TaskStatusStopped
		// Remove partial output file
		s.fs.Remove(task.OutputPath)
	} else if err != nil {
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
		s.fs.Remove(task.OutputPath)
	} else {
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
		task.BytesDone = task.BytesTotal
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
}

// writeArchive streams every input file into the zip
func (s *Service) writeArchive(ctx context.Context, task *model.ArchiveTask) error {
	if err := s.fs.MkdirAll(s.stagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	out, err := s.fs.Create(task.OutputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	names := make(map[string]int)
	for _, inputPath := range task.InputPaths {
		if err := s.addFile(ctx, zw, task, inputPath, names); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// addFile writes one input file into the archive
func (s *Service) addFile(ctx context.Context, zw *zip.Writer, task *model.ArchiveTask, inputPath string, names map[string]int) error {
	info, err := s.fs.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", inputPath, err)
	}

	in, err := s.fs.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", inputPath, err)
	}
	defer in.Close()

	header := &zip.FileHeader{
		Name:     uniqueEntryName(filepath.Base(inputPath), names),
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", header.Name, err)
	}

	buf := make([]byte, copyChunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("write entry %s: %w", header.Name, err)
			}
			s.advanceProgress(task, int64(n))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read %s: %w", inputPath, readErr)
		}
	}
}

// advanceProgress records archived bytes, throttling UI notifications
func (s *Service) advanceProgress(task *model.ArchiveTask, n int64) {
	s.tasksMutex.Lock()
	task.BytesDone += n
	if task.BytesTotal > 0 {
		progress := float64(task.BytesDone) / float64(task.BytesTotal)
		if progress > 1.0 {
			progress = 1.0
		}
		task.Progress = progress
		task.Percent = int(progress * 100)
	}
	notify := time.Since(s.lastNotify) >= stopCheckInterval || task.BytesDone == task.BytesTotal
	if notify {
		s.lastNotify = time.Now()
	}
	s.tasksMutex.Unlock()

	if notify {
		s.notifyUpdate(task)
	}
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.ArchiveTask) {
	if s.onUpdate != nil {
		s.onUpdate(task)
	}
}

// generateOutputPath builds a timestamped archive path in the staging dir.
// The random suffix keeps bundles started within the same second apart.
func (s *Service) generateOutputPath() string {
	name := fmt.Sprintf("%s%s-%s%s",
		OutputPrefix, time.Now().Format(OutputTimestamp), uuid.NewString()[:8], OutputExtension)
	return s.fs.Join(s.stagingDir, name)
}

// uniqueEntryName disambiguates duplicate base names inside the archive
func uniqueEntryName(name string, seen map[string]int) string {
	count := seen[name]
	seen[name] = count + 1
	if count == 0 {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s-%d%s", base, count, ext)
}

// generateTaskID generates a unique task ID using UUID v7 for better uniqueness and time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
