package form

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/knowbase/kb-uploader/internal/api"
	"github.com/knowbase/kb-uploader/internal/records"
)

// State is the lifecycle of one knowledge form submission.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// Submission errors raised before any network activity.
var (
	ErrEmptySubmission    = errors.New("fill in at least one field before submitting")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// Coordinator drives knowledge form submissions. It syncs the celebrity
// editor into the serialized field right before the payload is built, so
// the device always receives the rows as they are at submit time, then
// walks the submission through its states.
type Coordinator struct {
	client *api.Client
	editor *records.Editor

	mu          sync.RWMutex
	state       State
	lastMessage string
	serialized  string // the celebrities field as last written

	onChange func() // callback for UI updates
}

// NewCoordinator creates a new form submission coordinator
func NewCoordinator(client *api.Client, editor *records.Editor) *Coordinator {
	return &Coordinator{
		client: client,
		editor: editor,
		state:  StateIdle,
	}
}

// SetChangeCallback sets the callback invoked on every state change.
func (c *Coordinator) SetChangeCallback(callback func()) {
	c.onChange = callback
}

// State returns the current submission state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastMessage returns the most recent outcome message, verbatim as the
// device sent it. Empty for local rejections.
func (c *Coordinator) LastMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMessage
}

// SerializedCelebrities returns the celebrities field as written by the
// last submission attempt.
func (c *Coordinator) SerializedCelebrities() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serialized
}

// Submitting reports whether a submission is on the wire.
func (c *Coordinator) Submitting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateSubmitting
}

// Submit validates and sends the three knowledge sections. An all-blank
// form is rejected locally with ErrEmptySubmission and produces no network
// traffic. The transfer itself runs in the background and reports through
// the change callback.
func (c *Coordinator) Submit(ctx context.Context, schoolInfo, history string) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}

	c.state = StateValidating

	// The editor rows are the source of truth: serialize them into the
	// field first, then build the payload from the field. Rows edited
	// since the last attempt can never go stale this way.
	c.serialized = c.editor.Serialize()
	submission := api.KnowledgeSubmission{
		SchoolInfo:  schoolInfo,
		History:     history,
		Celebrities: c.serialized,
	}

	if allBlank(submission) {
		c.state = StateRejected
		c.lastMessage = ""
		c.mu.Unlock()
		c.notifyChange()
		return ErrEmptySubmission
	}

	c.state = StateSubmitting
	c.mu.Unlock()
	c.notifyChange()

	go c.runSubmit(ctx, submission)
	return nil
}

// runSubmit performs the actual request for a submission
func (c *Coordinator) runSubmit(ctx context.Context, submission api.KnowledgeSubmission) {
	message, err := c.client.SubmitKnowledge(ctx, submission)

	c.mu.Lock()
	if err != nil {
		c.state = StateFailed
		c.lastMessage = err.Error()
		log.Error().Err(err).Msg("knowledge submission failed")
	} else {
		c.state = StateSucceeded
		c.lastMessage = message
		log.Info().Msg("knowledge submission accepted")
	}
	c.mu.Unlock()

	c.notifyChange()
}

// Reset returns the coordinator to idle, keeping the last message.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()
	c.notifyChange()
}

// notifyChange calls the change callback if set
func (c *Coordinator) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

// allBlank reports whether a submission carries no content at all. The
// celebrities field needs no trimming: serialization already drops blank
// rows and empty lists collapse to the empty string.
func allBlank(s api.KnowledgeSubmission) bool {
	return strings.TrimSpace(s.SchoolInfo) == "" &&
		strings.TrimSpace(s.History) == "" &&
		s.Celebrities == ""
}
