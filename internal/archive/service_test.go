package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/knowbase/kb-uploader/internal/model"
)

func newTestFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	if err := util.WriteFile(fs, "docs/history.txt", []byte("the school opened in 1952"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := util.WriteFile(fs, "docs/photo.jpg", []byte("jpeg bytes here"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return fs
}

func waitForTask(t *testing.T, service *Service, id string) *model.ArchiveTask {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, ok := service.GetTask(id)
		if !ok {
			t.Fatalf("task %s disappeared", id)
		}
		service.tasksMutex.RLock()
		finished := task.Status.IsFinished()
		service.tasksMutex.RUnlock()
		if finished {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish in time", id)
	return nil
}

func readArchive(t *testing.T, fs billy.Filesystem, path string) *zip.Reader {
	t.Helper()
	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse archive: %v", err)
	}
	return zr
}

// slowFS throttles reads so archive tasks stay running long enough for a
// stop request to land.
type slowFS struct {
	billy.Filesystem
}

func (s slowFS) Open(path string) (billy.File, error) {
	f, err := s.Filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	return slowFile{f}, nil
}

type slowFile struct {
	billy.File
}

func (f slowFile) Read(p []byte) (int, error) {
	time.Sleep(5 * time.Millisecond)
	if len(p) > 1024 {
		p = p[:1024]
	}
	return f.File.Read(p)
}

func TestNewService(t *testing.T) {
	service := NewService(memfs.New(), "staging")

	if len(service.tasks) != 0 {
		t.Errorf("Expected empty tasks map, got %d items", len(service.tasks))
	}
}

func TestStartBundlesFiles(t *testing.T) {
	fs := newTestFS(t)
	service := NewService(fs, "staging")

	task, err := service.Start([]string{"docs/history.txt", "docs/photo.jpg"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if task.BytesTotal != int64(len("the school opened in 1952")+len("jpeg bytes here")) {
		t.Errorf("Unexpected BytesTotal: %d", task.BytesTotal)
	}

	finished := waitForTask(t, service, task.ID)
	if finished.Status != model.TaskStatusCompleted {
		t.Fatalf("Expected Completed, got %s (%s)", finished.Status, finished.LastError)
	}
	if finished.Percent != 100 || finished.BytesDone != finished.BytesTotal {
		t.Errorf("Expected full progress, got %d%% (%d/%d)", finished.Percent, finished.BytesDone, finished.BytesTotal)
	}

	zr := readArchive(t, fs, task.OutputPath)
	if len(zr.File) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(zr.File))
	}
	if zr.File[0].Name != "history.txt" || zr.File[1].Name != "photo.jpg" {
		t.Errorf("Unexpected entry names: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(content) != "the school opened in 1952" {
		t.Errorf("Unexpected entry content: %q", content)
	}
}

func TestStartDisambiguatesDuplicateNames(t *testing.T) {
	fs := newTestFS(t)
	if err := util.WriteFile(fs, "other/history.txt", []byte("a different file"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	service := NewService(fs, "staging")

	task, err := service.Start([]string{"docs/history.txt", "other/history.txt"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	finished := waitForTask(t, service, task.ID)
	if finished.Status != model.TaskStatusCompleted {
		t.Fatalf("Expected Completed, got %s (%s)", finished.Status, finished.LastError)
	}

	zr := readArchive(t, fs, task.OutputPath)
	if zr.File[0].Name != "history.txt" || zr.File[1].Name != "history-1.txt" {
		t.Errorf("Unexpected entry names: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestStartNonExistentFile(t *testing.T) {
	service := NewService(memfs.New(), "staging")

	_, err := service.Start([]string{"does/not/exist.txt"})
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestStartWithoutFiles(t *testing.T) {
	service := NewService(memfs.New(), "staging")

	_, err := service.Start(nil)
	if err == nil {
		t.Error("Expected error for empty input list, got nil")
	}
}

func TestStopUnknownTask(t *testing.T) {
	service := NewService(memfs.New(), "staging")

	err := service.Stop("bundle-missing")
	if err == nil {
		t.Error("Expected error for unknown task, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestStopFinishedTask(t *testing.T) {
	fs := newTestFS(t)
	service := NewService(fs, "staging")

	task, err := service.Start([]string{"docs/history.txt"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	waitForTask(t, service, task.ID)

	if err := service.Stop(task.ID); err == nil {
		t.Error("Expected error for finished task, got nil")
	}
}

func TestStopRemovesPartialOutput(t *testing.T) {
	fs := memfs.New()
	content := bytes.Repeat([]byte("campus history archive "), 5000)
	if err := util.WriteFile(fs, "docs/big.bin", content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	service := NewService(slowFS{fs}, "staging")

	task, err := service.Start([]string{"docs/big.bin"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Stop only lands once the task is active
	deadline := time.Now().Add(time.Second)
	for {
		service.tasksMutex.RLock()
		active := task.Status.IsActive()
		service.tasksMutex.RUnlock()
		if active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never became active")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := service.Stop(task.ID); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	finished := waitForTask(t, service, task.ID)
	if finished.Status != model.TaskStatusStopped {
		t.Fatalf("Expected Stopped, got %s (%s)", finished.Status, finished.LastError)
	}

	if _, err := fs.Stat(task.OutputPath); err == nil {
		t.Error("Expected partial archive to be removed")
	}
}

func TestUniqueEntryName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"a.txt", "a.txt"},
		{"a.txt", "a-1.txt"},
		{"a.txt", "a-2.txt"},
		{"b", "b"},
		{"b", "b-1"},
	}

	seen := make(map[string]int)
	for _, test := range tests {
		result := uniqueEntryName(test.name, seen)
		if result != test.expected {
			t.Errorf("uniqueEntryName(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestUpdateCallback(t *testing.T) {
	service := NewService(memfs.New(), "staging")

	updateCalled := false
	var updatedTask *model.ArchiveTask

	service.SetUpdateCallback(func(task *model.ArchiveTask) {
		updateCalled = true
		updatedTask = task
	})

	task := &model.ArchiveTask{
		ID:     "test-id",
		Status: model.TaskStatusRunning,
	}

	service.notifyUpdate(task)

	if !updateCalled {
		t.Error("Expected update callback to be called")
	}
	if updatedTask != task {
		t.Error("Expected updated task to be the same as input task")
	}
}

func TestGenerateTaskID(t *testing.T) {
	id1 := generateTaskID()
	time.Sleep(1 * time.Millisecond)
	id2 := generateTaskID()

	if id1 == id2 {
		t.Error("Expected different task IDs")
	}
	if !strings.HasPrefix(id1, "bundle-") {
		t.Errorf("Expected ID to start with 'bundle-', got: %s", id1)
	}
	if !strings.HasPrefix(id2, "bundle-") {
		t.Errorf("Expected ID to start with 'bundle-', got: %s", id2)
	}
}
