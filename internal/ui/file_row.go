package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/knowbase/kb-uploader/internal/model"
	"github.com/knowbase/kb-uploader/pkg/bytesize"
)

// FileRow shows one selected file: name, size, and reveal/remove controls.
// Rows are cheap and rebuilt wholesale whenever the selection is replaced.
type FileRow struct {
	widget.BaseWidget

	file model.SelectedFile

	// UI components
	nameLabel *widget.Label
	sizeLabel *widget.Label
	revealBtn *widget.Button
	removeBtn *widget.Button

	// Callbacks
	onReveal func(filePath string)
	onRemove func(filePath string)
}

// NewFileRow creates a row widget for one selected file
func NewFileRow(file model.SelectedFile) *FileRow {
	fr := &FileRow{
		file: file,
	}
	fr.ExtendBaseWidget(fr)
	fr.createUI()
	return fr
}

// SetCallbacks sets the reveal and remove callbacks
func (fr *FileRow) SetCallbacks(onReveal func(filePath string), onRemove func(filePath string)) {
	fr.onReveal = onReveal
	fr.onRemove = onRemove
}

// createUI creates the UI components
func (fr *FileRow) createUI() {
	fr.nameLabel = widget.NewLabel(IconFile + " " + fr.file.Name)
	fr.nameLabel.Alignment = fyne.TextAlignLeading
	fr.nameLabel.Truncation = fyne.TextTruncateEllipsis

	// Size is unknown when the file could not be stat'ed at selection time
	sizeText := DashPlaceholder
	if fr.file.Size > 0 {
		sizeText = bytesize.Format(fr.file.Size)
	}
	fr.sizeLabel = widget.NewLabel(sizeText)
	fr.sizeLabel.Alignment = fyne.TextAlignTrailing

	fr.revealBtn = widget.NewButton(IconReveal, func() {
		if fr.onReveal != nil {
			fr.onReveal(fr.file.Path)
		}
	})
	fr.revealBtn.Importance = widget.LowImportance

	fr.removeBtn = widget.NewButton(IconClose, func() {
		if fr.onRemove != nil {
			fr.onRemove(fr.file.Path)
		}
	})
	fr.removeBtn.Importance = widget.LowImportance
}

// CreateRenderer creates the widget renderer
func (fr *FileRow) CreateRenderer() fyne.WidgetRenderer {
	return &fileRowRenderer{fileRow: fr}
}

// fileRowRenderer renders the file row widget
type fileRowRenderer struct {
	fileRow *FileRow
	layout  *fyne.Container
}

// Layout arranges the components
func (r *fileRowRenderer) Layout(size fyne.Size) {
	if r.layout == nil {
		r.createLayout()
	}
	if size.Width < RowMinWidth {
		size.Width = RowMinWidth
	}
	r.layout.Resize(size)
}

// MinSize returns the minimum size
func (r *fileRowRenderer) MinSize() fyne.Size {
	if r.layout != nil {
		return r.layout.MinSize()
	}
	return fyne.NewSize(RowMinWidth, RowMinHeight)
}

// Refresh refreshes the renderer
func (r *fileRowRenderer) Refresh() {
	if r.layout == nil {
		r.createLayout()
	}
	r.layout.Refresh()
}

// Objects returns the container objects
func (r *fileRowRenderer) Objects() []fyne.CanvasObject {
	if r.layout == nil {
		r.createLayout()
	}
	return []fyne.CanvasObject{r.layout}
}

// Destroy cleans up the renderer
func (r *fileRowRenderer) Destroy() {}

// createLayout creates the main layout
func (r *fileRowRenderer) createLayout() {
	fr := r.fileRow

	rightCluster := container.NewHBox(
		fixedWidth(SizeLabelWidth, fr.sizeLabel),
		fr.revealBtn,
		fr.removeBtn,
	)
	r.layout = container.NewBorder(nil, nil, nil, rightCluster, fr.nameLabel)
}
