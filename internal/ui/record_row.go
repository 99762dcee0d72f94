package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/knowbase/kb-uploader/internal/records"
)

// fixedWidth pins an object to a fixed width using a transparent rectangle underneath
func fixedWidth(w float32, obj fyne.CanvasObject) fyne.CanvasObject {
	spacer := canvas.NewRectangle(color.RGBA{0, 0, 0, 0})
	spacer.SetMinSize(fyne.NewSize(w, obj.MinSize().Height))
	return container.NewStack(spacer, obj)
}

// RecordRow is one editable notable-person entry: a name field, a description
// field, and a remove control. Edits write straight through to the backing
// editor row, so serialization always sees the latest text.
type RecordRow struct {
	widget.BaseWidget

	row          *records.Row
	localization *Localization

	// UI components
	nameEntry *widget.Entry
	descEntry *widget.Entry
	removeBtn *widget.Button

	// Callbacks
	onRemove func(row *records.Row)
}

// NewRecordRow creates a row widget bound to the given editor row
func NewRecordRow(row *records.Row, localization *Localization) *RecordRow {
	rr := &RecordRow{
		row:          row,
		localization: localization,
	}
	rr.ExtendBaseWidget(rr)
	rr.createUI()
	return rr
}

// SetOnRemove sets the callback invoked with the backing row when the remove
// control is tapped. The row reference, not a position, identifies the entry.
func (rr *RecordRow) SetOnRemove(onRemove func(row *records.Row)) {
	rr.onRemove = onRemove
}

// Row returns the backing editor row
func (rr *RecordRow) Row() *records.Row {
	return rr.row
}

// createUI creates the UI components
func (rr *RecordRow) createUI() {
	rr.nameEntry = widget.NewEntry()
	rr.nameEntry.SetPlaceHolder(rr.localization.GetText(KeyNameHint))
	rr.nameEntry.SetText(rr.row.Name)
	rr.nameEntry.OnChanged = func(text string) {
		rr.row.Name = text
	}

	rr.descEntry = widget.NewEntry()
	rr.descEntry.SetPlaceHolder(rr.localization.GetText(KeyDescriptionHint))
	rr.descEntry.SetText(rr.row.Description)
	rr.descEntry.OnChanged = func(text string) {
		rr.row.Description = text
	}

	rr.removeBtn = widget.NewButton(IconClose, func() {
		if rr.onRemove != nil {
			rr.onRemove(rr.row)
		}
	})
	rr.removeBtn.Importance = widget.LowImportance
}

// CreateRenderer creates the widget renderer
func (rr *RecordRow) CreateRenderer() fyne.WidgetRenderer {
	return &recordRowRenderer{recordRow: rr}
}

// recordRowRenderer renders the record row widget
type recordRowRenderer struct {
	recordRow *RecordRow
	layout    *fyne.Container
}

// Layout arranges the components
func (r *recordRowRenderer) Layout(size fyne.Size) {
	if r.layout == nil {
		r.createLayout()
	}
	if size.Width < RowMinWidth {
		size.Width = RowMinWidth
	}
	if size.Height < RowMinHeight {
		size.Height = RowMinHeight
	}
	r.layout.Resize(size)
}

// MinSize returns the minimum size
func (r *recordRowRenderer) MinSize() fyne.Size {
	if r.layout != nil {
		return r.layout.MinSize()
	}
	return fyne.NewSize(RowMinWidth, RowMinHeight)
}

// Refresh refreshes the renderer
func (r *recordRowRenderer) Refresh() {
	if r.layout == nil {
		r.createLayout()
	}
	r.layout.Refresh()
}

// Objects returns the container objects
func (r *recordRowRenderer) Objects() []fyne.CanvasObject {
	if r.layout == nil {
		r.createLayout()
	}
	return []fyne.CanvasObject{r.layout}
}

// Destroy cleans up the renderer
func (r *recordRowRenderer) Destroy() {}

// createLayout creates the main layout
func (r *recordRowRenderer) createLayout() {
	rr := r.recordRow

	// Fixed-width name on the left, remove pinned right, description fills the rest
	nameCell := fixedWidth(NameEntryWidth, rr.nameEntry)
	r.layout = container.NewBorder(nil, nil, nameCell, rr.removeBtn, rr.descEntry)
}
