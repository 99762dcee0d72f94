package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase/kb-uploader/internal/api"
	"github.com/knowbase/kb-uploader/internal/capacity"
	"github.com/knowbase/kb-uploader/internal/model"
)

// testServer is an HTTP double for the device with counters per endpoint.
type testServer struct {
	*httptest.Server
	uploadCalls int64
	usageCalls  int64
	uploadDelay time.Duration
	uploadBody  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		uploadBody: `{
			"success": true,
			"message": "2 file(s) uploaded",
			"usage": {
				"used_bytes": 524288000,
				"max_bytes": 1073741824,
				"percent": 48.8,
				"used_human": "500.0 MB",
				"max_human": "1.0 GB"
			}
		}`,
	}

	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload_files":
			atomic.AddInt64(&ts.uploadCalls, 1)
			if ts.uploadDelay > 0 {
				select {
				case <-time.After(ts.uploadDelay):
				case <-r.Context().Done():
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, ts.uploadBody)
		case "/usage":
			atomic.AddInt64(&ts.usageCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"success":    true,
				"used_bytes": 524288000,
				"max_bytes":  1073741824,
				"percent":    48.8,
				"used_human": "500.0 MB",
				"max_human":  "1.0 GB",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) uploads() int64 {
	return atomic.LoadInt64(&ts.uploadCalls)
}

func (ts *testServer) usageFetches() int64 {
	return atomic.LoadInt64(&ts.usageCalls)
}

func newTestController(t *testing.T, ts *testServer) (*Controller, billy.Filesystem, *capacity.Gate) {
	t.Helper()
	client := api.NewClient(ts.URL, 5*time.Second)
	gate := capacity.NewGate(client)
	t.Cleanup(gate.Stop)

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "notes.txt", []byte("school history notes"), 0o644))
	require.NoError(t, util.WriteFile(fs, "photo.jpg", []byte("jpeg bytes"), 0o644))

	ctrl := NewController(client, gate, fs)
	ctrl.SetRefreshDelay(20 * time.Millisecond)
	return ctrl, fs, gate
}

// watchFinished subscribes to batch updates and reports finished batches.
// Must be called before Submit so a fast transfer cannot slip past.
func watchFinished(ctrl *Controller) <-chan *model.UploadBatch {
	done := make(chan *model.UploadBatch, 1)
	ctrl.SetUpdateCallback(func(b *model.UploadBatch) {
		if b.Status.IsFinished() {
			select {
			case done <- b:
			default:
			}
		}
	})
	return done
}

func waitFinished(t *testing.T, done <-chan *model.UploadBatch) *model.UploadBatch {
	t.Helper()
	select {
	case b := <-done:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not finish in time")
		return nil
	}
}

func TestSubmitUploadsSelection(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, gate := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt", "photo.jpg"})
	require.True(t, ctrl.CanSubmit())

	done := watchFinished(ctrl)
	batch, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, batch)

	finished := waitFinished(t, done)
	assert.Equal(t, model.TaskStatusCompleted, finished.Status)
	assert.Equal(t, "2 file(s) uploaded", finished.Message)
	assert.Equal(t, 2, finished.TotalFiles)
	assert.Equal(t, int64(30), finished.BytesTotal)
	assert.Equal(t, finished.BytesTotal, finished.BytesSent)
	assert.EqualValues(t, 1, ts.uploads())

	// Success clears the selection and adopts the returned usage snapshot
	assert.True(t, ctrl.Selection().IsEmpty())
	require.NotNil(t, gate.Snapshot())
	assert.Equal(t, int64(524288000), gate.Snapshot().UsedBytes)
	assert.Equal(t, capacity.StateLoaded, gate.State())
}

func TestSubmitSchedulesOneUsageRefresh(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt"})
	done := watchFinished(ctrl)
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	waitFinished(t, done)

	assert.Eventually(t, func() bool {
		return ts.usageFetches() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// One re-fetch only, no polling afterwards
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, ts.usageFetches())
}

func TestRapidSubmitsSendOneRequest(t *testing.T) {
	ts := newTestServer(t)
	ts.uploadDelay = 150 * time.Millisecond
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt"})
	done := watchFinished(ctrl)

	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	_, err = ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrUploadInFlight)
	assert.False(t, ctrl.CanSubmit())

	waitFinished(t, done)
	assert.EqualValues(t, 1, ts.uploads())
	assert.False(t, ctrl.InFlight())
}

func TestSubmitAgainAfterCompletion(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)
	done := watchFinished(ctrl)

	ctrl.SetSelection([]string{"notes.txt"})
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	waitFinished(t, done)

	ctrl.SetSelection([]string{"photo.jpg"})
	_, err = ctrl.Submit(context.Background())
	require.NoError(t, err)
	waitFinished(t, done)

	assert.EqualValues(t, 2, ts.uploads())
}

func TestSubmitWithEmptySelection(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)

	assert.False(t, ctrl.CanSubmit())
	_, err := ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrNoFilesSelected)
	assert.EqualValues(t, 0, ts.uploads())
}

func TestSubmitWhileFullIsRejected(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, gate := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt"})
	gate.Adopt(&model.UsageSnapshot{UsedBytes: 1073741824, MaxBytes: 1073741824, Percent: 100})

	// The UI disables the button, but a stale view can still attempt
	assert.False(t, ctrl.CanSubmit())
	_, err := ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.EqualValues(t, 0, ts.uploads())

	// Selection survives the rejection
	assert.Equal(t, 1, ctrl.Selection().Count())
}

func TestAdmissionFollowsUsageTransitions(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, gate := newTestController(t, ts)
	ctrl.SetSelection([]string{"notes.txt"})

	gate.Adopt(&model.UsageSnapshot{UsedBytes: 900 * 1024 * 1024, MaxBytes: 1073741824, Percent: 84})
	assert.True(t, ctrl.CanSubmit())

	gate.Adopt(&model.UsageSnapshot{UsedBytes: 1073741824, MaxBytes: 1073741824, Percent: 100})
	assert.False(t, ctrl.CanSubmit())
}

func TestSubmitFailureKeepsSelectionAndMessage(t *testing.T) {
	ts := newTestServer(t)
	ts.uploadBody = `{"success": false, "message": "磁盘空间不足"}`
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt", "photo.jpg"})
	done := watchFinished(ctrl)
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	finished := waitFinished(t, done)
	assert.Equal(t, model.TaskStatusError, finished.Status)
	assert.Equal(t, "磁盘空间不足", finished.Error)
	assert.True(t, finished.HasErrors())

	// The selection stays for a retry
	assert.Equal(t, 2, ctrl.Selection().Count())
	assert.False(t, ctrl.InFlight())
}

func TestSubmitSkipsUnreadableFiles(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt", "missing.bin"})
	done := watchFinished(ctrl)
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	finished := waitFinished(t, done)
	assert.Equal(t, model.TaskStatusCompleted, finished.Status)
	require.Len(t, finished.SkippedFiles(), 1)
	assert.Equal(t, "missing.bin", finished.SkippedFiles()[0].Name)

	// The readable file still travels, with totals narrowed to it
	assert.Equal(t, int64(20), finished.BytesTotal)
	assert.EqualValues(t, 1, ts.uploads())
}

func TestSubmitMissingFileFails(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"missing.bin"})
	done := watchFinished(ctrl)
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	finished := waitFinished(t, done)
	assert.Equal(t, model.TaskStatusError, finished.Status)
	assert.Contains(t, finished.Error, "missing.bin")
	assert.EqualValues(t, 0, ts.uploads())
}

func TestCancelStopsUpload(t *testing.T) {
	ts := newTestServer(t)
	ts.uploadDelay = 2 * time.Second
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt"})
	done := watchFinished(ctrl)
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	ctrl.Cancel()

	finished := waitFinished(t, done)
	assert.Equal(t, model.TaskStatusStopped, finished.Status)

	// A cancelled upload keeps the selection
	assert.Equal(t, 1, ctrl.Selection().Count())
	assert.False(t, ctrl.InFlight())
}

func TestSetSelectionReplacesWholesale(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)

	ctrl.SetSelection([]string{"notes.txt", "photo.jpg"})
	require.Equal(t, 2, ctrl.Selection().Count())

	ctrl.SetSelection([]string{"photo.jpg"})
	selection := ctrl.Selection()
	require.Equal(t, 1, selection.Count())
	assert.Equal(t, "photo.jpg", selection.Files[0].Name)
	assert.Equal(t, int64(10), selection.Files[0].Size)

	ctrl.ClearSelection()
	assert.True(t, ctrl.Selection().IsEmpty())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureNone},
		{"no files", ErrNoFilesSelected, FailureNoFiles},
		{"capacity", ErrCapacityExceeded, FailureCapacity},
		{"server rejection", &api.ServerError{Message: "磁盘已满"}, FailureServerRejected},
		{"wrapped server rejection", fmt.Errorf("upload: %w", &api.ServerError{Message: "no"}), FailureServerRejected},
		{"transport", errors.New("connection refused"), FailureTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStateCallbackFires(t *testing.T) {
	ts := newTestServer(t)
	ctrl, _, _ := newTestController(t, ts)

	var changes int64
	ctrl.SetStateCallback(func() { atomic.AddInt64(&changes, 1) })

	ctrl.SetSelection([]string{"notes.txt"})
	ctrl.ClearSelection()

	assert.EqualValues(t, 2, atomic.LoadInt64(&changes))
}
