package records

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/knowbase/kb-uploader/internal/model"
)

// Row is one editable slot of the celebrity list. Rows stay visible while
// blank so the user always has somewhere to type; only non-blank rows become
// records at serialization time.
type Row struct {
	ID          string
	Name        string
	Description string
}

// Editor owns the ordered row list of the celebrity section. It keeps two
// layers apart: the editable rows (UI concern, addressed by reference) and
// the derived record sequence (transport concern, filtered and trimmed).
type Editor struct {
	rows     []*Row
	onChange func() // callback for UI updates
}

// NewEditor creates an editor holding a single empty row.
func NewEditor() *Editor {
	e := &Editor{}
	e.ensureRow()
	return e
}

// SetChangeCallback sets the callback invoked after every row change.
func (e *Editor) SetChangeCallback(callback func()) {
	e.onChange = callback
}

// AddRow appends a row to the visible list and returns it. Empty rows are
// kept visible even though they serialize to nothing.
func (e *Editor) AddRow(name, description string) *Row {
	row := &Row{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
	e.rows = append(e.rows, row)

	log.Debug().Str("row_id", row.ID).Msg("record row added")
	e.notifyChange()
	return row
}

// RemoveRow removes the referenced row. Matching is by instance, not index,
// so references stay valid across concurrent insertions. Logical removal is
// immediate; any removal transition in the UI is cosmetic only.
func (e *Editor) RemoveRow(row *Row) bool {
	for i, r := range e.rows {
		if r == row {
			e.rows = append(e.rows[:i], e.rows[i+1:]...)
			log.Debug().Str("row_id", row.ID).Msg("record row removed")
			e.notifyChange()
			return true
		}
	}
	return false
}

// Rows returns the visible rows in order.
func (e *Editor) Rows() []*Row {
	rows := make([]*Row, len(e.rows))
	copy(rows, e.rows)
	return rows
}

// Count returns the number of visible rows, blank ones included.
func (e *Editor) Count() int {
	return len(e.rows)
}

// Records returns the submission-worthy records: rows with at least one
// non-blank field, trimmed, in row order.
func (e *Editor) Records() []model.CelebrityRecord {
	var records []model.CelebrityRecord
	for _, row := range e.rows {
		record := model.CelebrityRecord{Name: row.Name, Description: row.Description}
		if record.IsBlank() {
			continue
		}
		records = append(records, record.Trimmed())
	}
	return records
}

// Serialize encodes the retained records as a JSON array, or the empty
// string when nothing is retained. Output order equals row order.
func (e *Editor) Serialize() string {
	return Serialize(e.Records())
}

// Load replaces the editor content with the records deserialized from value
// and restores the bootstrap invariant: at least one visible row.
func (e *Editor) Load(value string) {
	e.rows = nil
	for _, record := range Deserialize(value) {
		e.rows = append(e.rows, &Row{
			ID:          uuid.NewString(),
			Name:        record.Name,
			Description: record.Description,
		})
	}
	e.ensureRow()
	e.notifyChange()
}

// Replace swaps the editor content for the given records, keeping the
// bootstrap invariant. Used by file import.
func (e *Editor) Replace(records []model.CelebrityRecord) {
	e.rows = nil
	for _, record := range records {
		e.rows = append(e.rows, &Row{
			ID:          uuid.NewString(),
			Name:        record.Name,
			Description: record.Description,
		})
	}
	e.ensureRow()
	e.notifyChange()
}

// ensureRow injects one empty row into an empty editor
func (e *Editor) ensureRow() {
	if len(e.rows) == 0 {
		e.rows = append(e.rows, &Row{ID: uuid.NewString()})
	}
}

// notifyChange calls the change callback if set
func (e *Editor) notifyChange() {
	if e.onChange != nil {
		e.onChange()
	}
}

// Serialize encodes records as a JSON array, or the empty string for an
// empty set. Records pass through as given; filtering and trimming are the
// editor's concern.
func Serialize(records []model.CelebrityRecord) string {
	if len(records) == 0 {
		return ""
	}

	data, err := json.Marshal(records)
	if err != nil {
		// Unreachable for plain string fields; degrade to the empty list
		log.Error().Err(err).Msg("serialize records failed")
		return ""
	}
	return string(data)
}

// Deserialize decodes a stored list value. A JSON array decodes normally;
// anything else non-empty is legacy data and becomes the description of a
// single record with an empty name. Empty or whitespace-only input yields
// an empty sequence.
func Deserialize(value string) []model.CelebrityRecord {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	var records []model.CelebrityRecord
	if err := json.Unmarshal([]byte(trimmed), &records); err == nil && trimmed[0] == '[' {
		return records
	}

	return []model.CelebrityRecord{{Description: value}}
}
