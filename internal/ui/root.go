package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/knowbase/kb-uploader/internal/api"
	"github.com/knowbase/kb-uploader/internal/archive"
	"github.com/knowbase/kb-uploader/internal/capacity"
	"github.com/knowbase/kb-uploader/internal/config"
	"github.com/knowbase/kb-uploader/internal/form"
	"github.com/knowbase/kb-uploader/internal/model"
	"github.com/knowbase/kb-uploader/internal/platform"
	"github.com/knowbase/kb-uploader/internal/records"
	"github.com/knowbase/kb-uploader/internal/upload"
	"github.com/knowbase/kb-uploader/pkg/bytesize"
)

// Services bundles the backend collaborators the UI drives.
type Services struct {
	Client   *api.Client
	Gate     *capacity.Gate
	Uploader *upload.Controller
	Bundler  archive.Bundler
	Editor   *records.Editor
	Form     *form.Coordinator
	Settings *config.Settings
}

// RootUI represents the main UI structure
type RootUI struct {
	window fyne.Window

	client   *api.Client
	gate     *capacity.Gate
	uploader *upload.Controller
	bundler  archive.Bundler
	editor   *records.Editor
	form     *form.Coordinator
	importer *records.ImportParser

	settings     *config.Settings
	localization *Localization

	// Usage card
	usageCard    *widget.Card
	usageLabel   *widget.Label
	usageBar     *widget.ProgressBar
	usageWarning *widget.Label

	// Upload card
	uploadCard     *widget.Card
	fileRows       *fyne.Container
	selectionLabel *widget.Label
	addFileBtn     *widget.Button
	clearBtn       *widget.Button
	bundleCheck    *widget.Check
	uploadBtn      *widget.Button
	cancelBtn      *widget.Button
	uploadBar      *widget.ProgressBar
	uploadStatus   *widget.Label

	// ID of the archive task whose output feeds the next upload, empty when
	// no bundling is pending. Touched only from the UI thread.
	pendingBundleID string

	// Knowledge form card
	formCard       *widget.Card
	schoolLabel    *widget.Label
	schoolEntry    *widget.Entry
	historyLabel   *widget.Label
	historyEntry   *widget.Entry
	recordsLabel   *widget.Label
	recordRows     *fyne.Container
	recordRowCache map[string]*RecordRow
	addRecordBtn   *widget.Button
	importBtn      *widget.Button
	submitBtn      *widget.Button
	formStatus     *widget.Label

	// Device card
	deviceCard  *widget.Card
	deviceLabel *widget.Label
	statsLabel  *widget.Label
	refreshBtn  *widget.Button

	// Notification panel
	notificationContainer *fyne.Container
	notificationLabel     *widget.Label
	notificationSpinner   *widget.ProgressBarInfinite
}

// NewRootUI creates and initializes the main UI
func NewRootUI(window fyne.Window, app fyne.App, svc Services) *RootUI {
	// Initialize localization from persisted preference
	localization := NewLocalization()
	localization.SetLanguage(svc.Settings.GetLanguage())

	ui := &RootUI{
		window:         window,
		client:         svc.Client,
		gate:           svc.Gate,
		uploader:       svc.Uploader,
		bundler:        svc.Bundler,
		editor:         svc.Editor,
		form:           svc.Form,
		importer:       records.NewImportParser(),
		settings:       svc.Settings,
		localization:   localization,
		recordRowCache: make(map[string]*RecordRow),
	}

	// Set window title
	window.SetTitle(localization.GetText(KeyAppTitle))

	// Wire backend callbacks
	ui.gate.SetChangeCallback(ui.onGateChange)
	ui.uploader.SetUpdateCallback(ui.onBatchUpdate)
	ui.uploader.SetStateCallback(ui.onUploadStateChange)
	ui.bundler.SetUpdateCallback(ui.onArchiveUpdate)
	ui.editor.SetChangeCallback(ui.onEditorChange)
	ui.form.SetChangeCallback(ui.onFormChange)

	ui.setupUI()

	// First usage and status fetch in the background; callbacks render results
	go ui.initialLoad()

	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	// Create menu
	ui.createMenu()

	// Create settings button
	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	// Create logo
	logo, err := LoadLogoResource()
	var logoImage *canvas.Image
	if err == nil {
		logoImage = canvas.NewImageFromResource(logo)
		logoImage.SetMinSize(fyne.NewSize(32, 32))
		logoImage.FillMode = canvas.ImageFillContain
	}

	titleLabel := widget.NewLabel(ui.localization.GetText(KeyAppTitle))
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	// Create top panel with logo and settings
	var topPanel *fyne.Container
	if logoImage != nil {
		topPanel = container.NewBorder(nil, nil, container.NewHBox(logoImage, titleLabel), settingsBtn)
	} else {
		topPanel = container.NewBorder(nil, nil, titleLabel, settingsBtn)
	}

	// Create notification panel under the top bar (hidden by default)
	ui.notificationLabel = widget.NewLabel("")
	ui.notificationLabel.Alignment = fyne.TextAlignLeading
	ui.notificationSpinner = widget.NewProgressBarInfinite()
	ui.notificationSpinner.Hide()
	ui.notificationContainer = container.NewHBox(ui.notificationSpinner, container.NewPadded(ui.notificationLabel))
	ui.notificationContainer.Hide()

	topCombined := container.NewVBox(topPanel, ui.notificationContainer)

	// Create cards
	ui.buildUsageCard()
	ui.buildUploadCard()
	ui.buildFormCard()
	ui.buildDeviceCard()

	left := container.NewVScroll(container.NewVBox(ui.usageCard, ui.uploadCard, ui.deviceCard))
	right := container.NewVScroll(ui.formCard)
	split := container.NewHSplit(left, right)
	split.SetOffset(SplitOffset)

	content := container.NewBorder(
		topCombined, // top
		nil,         // bottom
		nil,         // left
		nil,         // right
		split,       // center
	)

	ui.window.SetContent(content)

	// Render initial state
	ui.refreshUsageCard()
	ui.refreshFileRows()
	ui.refreshUploadControls()
	ui.rebuildRecordRows()
	ui.refreshFormControls()
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	// Settings menu item
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)

	// Language submenu
	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))

	availableLanguages := ui.localization.GetAvailableLanguages()
	for code, name := range availableLanguages {
		langCode := code // Capture for closure
		langItem := fyne.NewMenuItem(name, func() {
			ui.onLanguageChange(langCode)
		})

		// Mark current language
		if ui.localization.GetCurrentLanguage() == code {
			langItem.Checked = true
		}

		languageMenu.Items = append(languageMenu.Items, langItem)
	}

	// Create main menu
	mainMenu := fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeySettings), settingsItem),
		languageMenu,
	)

	ui.window.SetMainMenu(mainMenu)
}

// buildUsageCard creates the device storage card
func (ui *RootUI) buildUsageCard() {
	ui.usageLabel = widget.NewLabel(ui.localization.GetText(KeyUsageChecking))
	ui.usageBar = widget.NewProgressBar()
	ui.usageWarning = widget.NewLabel("")
	ui.usageWarning.Wrapping = fyne.TextWrapWord
	ui.usageWarning.Hide()

	content := container.NewVBox(ui.usageLabel, ui.usageBar, ui.usageWarning)
	ui.usageCard = widget.NewCard(ui.localization.GetText(KeyUsageTitle), "", content)
}

// buildUploadCard creates the file upload card
func (ui *RootUI) buildUploadCard() {
	ui.fileRows = container.NewVBox()

	ui.selectionLabel = widget.NewLabel(ui.localization.GetText(KeyNoFilesSelected))

	ui.addFileBtn = widget.NewButton(ui.localization.GetText(KeyAddFile), ui.onAddFile)
	ui.clearBtn = widget.NewButton(ui.localization.GetText(KeyClear), ui.onClearSelection)
	ui.clearBtn.Importance = widget.LowImportance

	ui.bundleCheck = widget.NewCheck(ui.localization.GetText(KeyBundleOption), nil)
	ui.bundleCheck.SetChecked(ui.settings.GetBundleUploads())
	ui.bundleCheck.OnChanged = func(on bool) {
		ui.settings.SetBundleUploads(on)
	}

	ui.uploadBtn = widget.NewButton(ui.localization.GetText(KeyUpload), ui.onUploadClick)
	ui.uploadBtn.Importance = widget.HighImportance

	ui.cancelBtn = widget.NewButton(ui.localization.GetText(KeyCancel), ui.onCancelUpload)
	ui.cancelBtn.Importance = widget.LowImportance
	ui.cancelBtn.Hide()

	ui.uploadBar = widget.NewProgressBar()
	ui.uploadStatus = widget.NewLabel("")
	ui.uploadStatus.Wrapping = fyne.TextWrapWord

	content := container.NewVBox(
		ui.fileRows,
		container.NewBorder(nil, nil, container.NewHBox(ui.addFileBtn, ui.clearBtn), nil, ui.selectionLabel),
		ui.bundleCheck,
		container.NewBorder(nil, nil, nil, container.NewHBox(ui.cancelBtn, ui.uploadBtn), ui.uploadBar),
		ui.uploadStatus,
	)
	ui.uploadCard = widget.NewCard(ui.localization.GetText(KeyUploadTitle), "", content)
}

// buildFormCard creates the knowledge form card
func (ui *RootUI) buildFormCard() {
	ui.schoolLabel = widget.NewLabel(ui.localization.GetText(KeySchoolInfo))
	ui.schoolEntry = widget.NewMultiLineEntry()
	ui.schoolEntry.Wrapping = fyne.TextWrapWord
	ui.schoolEntry.SetPlaceHolder(ui.localization.GetText(KeySchoolInfoHint))
	ui.schoolEntry.SetMinRowsVisible(FormEntryRows)

	ui.historyLabel = widget.NewLabel(ui.localization.GetText(KeyHistory))
	ui.historyEntry = widget.NewMultiLineEntry()
	ui.historyEntry.Wrapping = fyne.TextWrapWord
	ui.historyEntry.SetPlaceHolder(ui.localization.GetText(KeyHistoryHint))
	ui.historyEntry.SetMinRowsVisible(FormEntryRows)

	ui.recordsLabel = widget.NewLabel(ui.localization.GetText(KeyCelebrities))
	ui.recordRows = container.NewVBox()

	ui.addRecordBtn = widget.NewButton("+ "+ui.localization.GetText(KeyAddRecord), ui.onAddRecord)
	ui.importBtn = widget.NewButton(ui.localization.GetText(KeyImportRecords), ui.onImportRecords)
	ui.importBtn.Importance = widget.LowImportance

	ui.submitBtn = widget.NewButton(ui.localization.GetText(KeySubmit), ui.onSubmitForm)
	ui.submitBtn.Importance = widget.HighImportance

	ui.formStatus = widget.NewLabel("")
	ui.formStatus.Wrapping = fyne.TextWrapWord

	content := container.NewVBox(
		ui.schoolLabel,
		ui.schoolEntry,
		ui.historyLabel,
		ui.historyEntry,
		widget.NewSeparator(),
		ui.recordsLabel,
		ui.recordRows,
		container.NewHBox(ui.addRecordBtn, ui.importBtn),
		widget.NewSeparator(),
		container.NewBorder(nil, nil, nil, ui.submitBtn, ui.formStatus),
	)
	ui.formCard = widget.NewCard(ui.localization.GetText(KeyFormTitle), "", content)
}

// buildDeviceCard creates the device status card
func (ui *RootUI) buildDeviceCard() {
	ui.deviceLabel = widget.NewLabel(DashPlaceholder)
	ui.statsLabel = widget.NewLabel("")
	ui.statsLabel.Wrapping = fyne.TextWrapWord

	ui.refreshBtn = widget.NewButton(ui.localization.GetText(KeyRefresh), ui.onRefreshStatus)
	ui.refreshBtn.Importance = widget.LowImportance

	content := container.NewVBox(ui.deviceLabel, ui.statsLabel, container.NewHBox(ui.refreshBtn))
	ui.deviceCard = widget.NewCard(ui.localization.GetText(KeyDeviceTitle), "", content)
}

// initialLoad performs the first usage and device status fetch
func (ui *RootUI) initialLoad() {
	ctx, cancel := context.WithTimeout(context.Background(), StatusFetchTimeout)
	defer cancel()

	ui.gate.Refresh(ctx)
	ui.loadDeviceStatus(ctx)
}

// onLanguageChange handles language change
func (ui *RootUI) onLanguageChange(langCode string) {
	// Update localization
	ui.localization.SetLanguage(langCode)

	// Save to settings
	ui.settings.SetLanguage(langCode)

	// Update UI texts
	ui.refreshUITexts()

	// Recreate menu to update checkmarks
	ui.createMenu()

	log.Debug().Str("language", langCode).Msg("UI language changed")
}

// refreshUITexts updates all UI texts with current language
func (ui *RootUI) refreshUITexts() {
	l := ui.localization

	ui.window.SetTitle(l.GetText(KeyAppTitle))

	ui.usageCard.SetTitle(l.GetText(KeyUsageTitle))
	ui.uploadCard.SetTitle(l.GetText(KeyUploadTitle))
	ui.formCard.SetTitle(l.GetText(KeyFormTitle))
	ui.deviceCard.SetTitle(l.GetText(KeyDeviceTitle))

	ui.addFileBtn.SetText(l.GetText(KeyAddFile))
	ui.clearBtn.SetText(l.GetText(KeyClear))
	ui.cancelBtn.SetText(l.GetText(KeyCancel))
	ui.bundleCheck.Text = l.GetText(KeyBundleOption)
	ui.bundleCheck.Refresh()

	ui.schoolLabel.SetText(l.GetText(KeySchoolInfo))
	ui.schoolEntry.SetPlaceHolder(l.GetText(KeySchoolInfoHint))
	ui.historyLabel.SetText(l.GetText(KeyHistory))
	ui.historyEntry.SetPlaceHolder(l.GetText(KeyHistoryHint))
	ui.recordsLabel.SetText(l.GetText(KeyCelebrities))
	ui.addRecordBtn.SetText("+ " + l.GetText(KeyAddRecord))
	ui.importBtn.SetText(l.GetText(KeyImportRecords))
	ui.refreshBtn.SetText(l.GetText(KeyRefresh))

	// Row placeholders are set at construction; rebuild so they pick up
	// the new language. Entry text survives because it lives on the rows.
	ui.recordRowCache = make(map[string]*RecordRow)
	ui.rebuildRecordRows()

	ui.refreshUsageCard()
	ui.refreshUploadControls()
	ui.refreshFormControls()
}

// Usage card

// onGateChange handles capacity gate state changes
func (ui *RootUI) onGateChange() {
	fyne.Do(func() {
		ui.refreshUsageCard()
		ui.refreshUploadControls()
	})
}

// refreshUsageCard renders the current gate state
func (ui *RootUI) refreshUsageCard() {
	switch ui.gate.State() {
	case capacity.StateLoaded:
		snapshot := ui.gate.Snapshot()
		ui.usageLabel.SetText(snapshot.StatusText())
		ui.usageBar.SetValue(snapshot.ProgressFraction())
		if snapshot.IsFull() {
			ui.usageWarning.Importance = widget.DangerImportance
			ui.usageWarning.SetText(IconError + " " + ui.localization.GetText(KeyStorageFull))
			ui.usageWarning.Show()
		} else {
			ui.usageWarning.Hide()
		}
	case capacity.StateDegraded:
		// Keep the last good reading on display next to the warning
		if snapshot := ui.gate.Snapshot(); snapshot != nil {
			ui.usageLabel.SetText(snapshot.StatusText())
			ui.usageBar.SetValue(snapshot.ProgressFraction())
		} else {
			ui.usageLabel.SetText(DashPlaceholder)
			ui.usageBar.SetValue(0)
		}
		ui.usageWarning.Importance = widget.WarningImportance
		ui.usageWarning.SetText(IconWarning + " " + ui.localization.GetText(KeyUsageUnavailable) + ": " + ui.gate.Warning())
		ui.usageWarning.Show()
	default:
		ui.usageLabel.SetText(ui.localization.GetText(KeyUsageChecking))
		ui.usageBar.SetValue(0)
		ui.usageWarning.Hide()
	}
}

// Upload card

// selectionPaths returns the paths of the current selection in order
func (ui *RootUI) selectionPaths() []string {
	selection := ui.uploader.Selection()
	if selection == nil {
		return nil
	}
	paths := make([]string, 0, len(selection.Files))
	for _, file := range selection.Files {
		paths = append(paths, file.Path)
	}
	return paths
}

// onAddFile opens a file chooser and appends the picked file to the selection
func (ui *RootUI) onAddFile() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		path := reader.URI().Path()
		_ = reader.Close()

		// The selection is replaced wholesale; append means rebuild plus one
		ui.uploader.SetSelection(append(ui.selectionPaths(), path))
	}, ui.window)

	d.Resize(fyne.NewSize(FileDialogWidth, FileDialogHeight))
	if dir, err := platform.GetHomeDocumentsDir(); err == nil {
		if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			d.SetLocation(lister)
		}
	}
	d.Show()
}

// onRemoveFile drops one file from the selection by path
func (ui *RootUI) onRemoveFile(filePath string) {
	var paths []string
	for _, p := range ui.selectionPaths() {
		if p != filePath {
			paths = append(paths, p)
		}
	}
	ui.uploader.SetSelection(paths)
}

// onClearSelection empties the selection
func (ui *RootUI) onClearSelection() {
	ui.uploader.ClearSelection()
}

// onRevealFile shows a selected file in the system file manager
func (ui *RootUI) onRevealFile(filePath string) {
	if filePath == "" {
		return
	}

	if err := platform.RevealFile(filePath); err != nil {
		log.Warn().Err(err).Str("path", filePath).Msg("reveal file failed")
		ui.showNotification(ui.localization.GetText(KeyRevealFailed)+": "+err.Error(), false)
	}
}

// onUploadStateChange handles selection and in-flight latch changes
func (ui *RootUI) onUploadStateChange() {
	fyne.Do(func() {
		ui.refreshFileRows()
		ui.refreshUploadControls()
	})
}

// refreshFileRows rebuilds the file row list from the current selection
func (ui *RootUI) refreshFileRows() {
	selection := ui.uploader.Selection()

	objects := make([]fyne.CanvasObject, 0, selection.Count())
	if selection != nil {
		for _, file := range selection.Files {
			row := NewFileRow(file)
			row.SetCallbacks(ui.onRevealFile, ui.onRemoveFile)
			objects = append(objects, row)
		}
	}

	ui.fileRows.Objects = objects
	ui.fileRows.Refresh()
}

// refreshUploadControls updates the selection summary and button states
func (ui *RootUI) refreshUploadControls() {
	selection := ui.uploader.Selection()
	if selection.IsEmpty() {
		ui.selectionLabel.SetText(ui.localization.GetText(KeyNoFilesSelected))
	} else {
		ui.selectionLabel.SetText(fmt.Sprintf(ui.localization.GetText(KeyFilesSelected),
			selection.Count(), bytesize.Format(selection.TotalBytes())))
	}

	switch {
	case ui.pendingBundleID != "":
		ui.uploadBtn.Disable()
		ui.uploadBtn.SetText(ui.localization.GetText(KeyBundling))
		ui.cancelBtn.Show()
	case ui.uploader.InFlight():
		ui.uploadBtn.Disable()
		ui.uploadBtn.SetText(ui.localization.GetText(KeyUploading))
		ui.cancelBtn.Show()
	case ui.uploader.CanSubmit():
		ui.uploadBtn.Enable()
		ui.uploadBtn.SetText(ui.localization.GetText(KeyUpload))
		ui.cancelBtn.Hide()
	default:
		// Empty selection or full device; the usage card names the reason
		ui.uploadBtn.Disable()
		ui.uploadBtn.SetText(ui.localization.GetText(KeyUpload))
		ui.cancelBtn.Hide()
	}
}

// onUploadClick handles the upload button click
func (ui *RootUI) onUploadClick() {
	if ui.settings.GetBundleUploads() && !ui.uploader.Selection().IsEmpty() {
		ui.startBundledUpload()
		return
	}
	ui.startUpload()
}

// startUpload submits the current selection
func (ui *RootUI) startUpload() {
	_, err := ui.uploader.Submit(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrCapacityExceeded):
		// A stale view can still reach the button; reject visibly
		ui.uploadStatus.Importance = widget.DangerImportance
		ui.uploadStatus.SetText(ui.localization.GetText(KeyStorageFull))
	default:
		// Empty selection or in-flight race; the button is disabled for
		// these, nothing was sent
		log.Debug().Err(err).Msg("upload submit rejected")
	}
}

// startBundledUpload zips the selection first, then uploads the archive
func (ui *RootUI) startBundledUpload() {
	paths := ui.selectionPaths()
	if len(paths) == 0 {
		return
	}

	task, err := ui.bundler.Start(paths)
	if err != nil {
		ui.uploadStatus.Importance = widget.DangerImportance
		ui.uploadStatus.SetText(ui.localization.GetText(KeyBundleFailed) + ": " + err.Error())
		return
	}

	ui.pendingBundleID = task.ID
	ui.showNotification(ui.localization.GetText(KeyBundling), true)
	ui.refreshUploadControls()

	log.Info().Str("task_id", task.ID).Int("files", len(paths)).Msg("bundling selection before upload")
}

// onArchiveUpdate handles progress from the bundler
func (ui *RootUI) onArchiveUpdate(task *model.ArchiveTask) {
	fyne.Do(func() {
		if task.ID != ui.pendingBundleID {
			return
		}

		switch task.Status {
		case model.TaskStatusRunning:
			ui.uploadBar.SetValue(task.Progress)
			ui.uploadStatus.Importance = widget.MediumImportance
			ui.uploadStatus.SetText(task.GetDisplayName() + " " +
				fmt.Sprintf(ProgressLabelFormat, task.Percent))
		case model.TaskStatusCompleted:
			// Replace the selection with the archive and submit it
			ui.pendingBundleID = ""
			ui.hideNotification()
			ui.uploader.SetSelection([]string{task.OutputPath})
			ui.startUpload()
		case model.TaskStatusError:
			ui.pendingBundleID = ""
			ui.hideNotification()
			ui.uploadStatus.Importance = widget.DangerImportance
			ui.uploadStatus.SetText(ui.localization.GetText(KeyBundleFailed) + ": " + task.LastError)
			ui.refreshUploadControls()
		case model.TaskStatusStopped:
			ui.pendingBundleID = ""
			ui.hideNotification()
			ui.uploadBar.SetValue(0)
			ui.uploadStatus.Importance = widget.MediumImportance
			ui.uploadStatus.SetText(ui.localization.GetText(KeyUploadCancelled))
			ui.refreshUploadControls()
		}
	})
}

// onCancelUpload stops whichever stage is active, bundling or uploading
func (ui *RootUI) onCancelUpload() {
	if ui.pendingBundleID != "" {
		if err := ui.bundler.Stop(ui.pendingBundleID); err != nil {
			log.Warn().Err(err).Str("task_id", ui.pendingBundleID).Msg("stop bundling failed")
		}
		return
	}
	ui.uploader.Cancel()
}

// onBatchUpdate handles progress updates from the upload controller
func (ui *RootUI) onBatchUpdate(batch *model.UploadBatch) {
	fyne.Do(func() {
		ui.uploadBar.SetValue(batch.Progress())

		switch batch.Status {
		case model.TaskStatusStarting:
			ui.uploadStatus.Importance = widget.MediumImportance
			ui.uploadStatus.SetText(ui.localization.GetText(KeyUploading))
		case model.TaskStatusRunning:
			ui.uploadStatus.Importance = widget.MediumImportance
			ui.uploadStatus.SetText(ui.localization.GetText(KeyUploading) + " " +
				fmt.Sprintf(ProgressLabelFormat, batch.Percent()))
		case model.TaskStatusCompleted:
			// Prefer the device's own message when it sent one
			message := batch.Message
			if message == "" {
				message = ui.localization.GetText(KeyUploadCompleted)
			}
			ui.uploadStatus.Importance = widget.SuccessImportance
			ui.uploadStatus.SetText(message)
			ui.notifyUploadComplete(message)
		case model.TaskStatusError:
			ui.uploadStatus.Importance = widget.DangerImportance
			ui.uploadStatus.SetText(ui.localization.GetText(KeyUploadFailed) + ": " + batch.Error)
		case model.TaskStatusStopped:
			ui.uploadStatus.Importance = widget.MediumImportance
			ui.uploadStatus.SetText(ui.localization.GetText(KeyUploadCancelled))
		}
	})
}

// notifyUploadComplete sends a system notification and an in-app toast
func (ui *RootUI) notifyUploadComplete(message string) {
	fyne.CurrentApp().SendNotification(&fyne.Notification{
		Title:   ui.localization.GetText(KeyUploadCompleted),
		Content: message,
	})

	ui.showToast(ui.localization.GetText(KeyUploadCompleted), message)
}

// Knowledge form card

// onEditorChange handles row additions, removals, and replacements
func (ui *RootUI) onEditorChange() {
	fyne.Do(ui.rebuildRecordRows)
}

// rebuildRecordRows syncs the row widgets with the editor rows. Widgets are
// cached per row ID so typing focus survives unrelated changes.
func (ui *RootUI) rebuildRecordRows() {
	rows := ui.editor.Rows()

	cache := make(map[string]*RecordRow, len(rows))
	objects := make([]fyne.CanvasObject, 0, len(rows))
	for _, row := range rows {
		rowWidget, ok := ui.recordRowCache[row.ID]
		if !ok {
			rowWidget = NewRecordRow(row, ui.localization)
			rowWidget.SetOnRemove(ui.onRemoveRecord)
		}
		cache[row.ID] = rowWidget
		objects = append(objects, rowWidget)
	}

	ui.recordRowCache = cache
	ui.recordRows.Objects = objects
	ui.recordRows.Refresh()
}

// onAddRecord appends a fresh blank row
func (ui *RootUI) onAddRecord() {
	ui.editor.AddRow("", "")
}

// onRemoveRecord removes a row, asking first when configured and the row
// holds text. The row reference stays valid while the dialog is open even
// if other rows are added meanwhile.
func (ui *RootUI) onRemoveRecord(row *records.Row) {
	blank := strings.TrimSpace(row.Name) == "" && strings.TrimSpace(row.Description) == ""
	if blank || !ui.settings.GetConfirmOnRemove() {
		ui.editor.RemoveRow(row)
		return
	}

	dialog.ShowConfirm(
		ui.localization.GetText(KeyRemoveRecord),
		ui.localization.GetText(KeyRemoveRecordPrompt),
		func(confirmed bool) {
			if confirmed {
				ui.editor.RemoveRow(row)
			}
		},
		ui.window,
	)
}

// onImportRecords loads records from a file, replacing the current rows
func (ui *RootUI) onImportRecords() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()

		content, err := io.ReadAll(reader)
		if err != nil {
			ui.showNotification(ui.localization.GetText(KeyImportFailed)+": "+err.Error(), false)
			return
		}

		parsed, err := ui.importer.Parse(string(content))
		if err != nil {
			ui.showNotification(ui.localization.GetText(KeyImportFailed)+": "+err.Error(), false)
			return
		}

		ui.editor.Replace(parsed)
		ui.settings.SetLastImportDir(filepath.Dir(reader.URI().Path()))
		ui.showNotification(fmt.Sprintf(ui.localization.GetText(KeyRecordsImported), len(parsed)), false)

		log.Info().Int("records", len(parsed)).Msg("records imported")
	}, ui.window)

	d.SetFilter(storage.NewExtensionFileFilter([]string{".json", ".txt"}))
	d.Resize(fyne.NewSize(FileDialogWidth, FileDialogHeight))
	if dir := ui.settings.GetLastImportDir(); dir != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			d.SetLocation(lister)
		}
	}
	d.Show()
}

// onSubmitForm handles the submit button click
func (ui *RootUI) onSubmitForm() {
	err := ui.form.Submit(context.Background(), ui.schoolEntry.Text, ui.historyEntry.Text)
	if err != nil && !errors.Is(err, form.ErrEmptySubmission) {
		// In-flight latch race; the button is disabled, nothing to report
		log.Debug().Err(err).Msg("form submit rejected")
	}
	// An empty submission moves the coordinator to the rejected state,
	// which the change callback renders
}

// onFormChange handles coordinator state changes
func (ui *RootUI) onFormChange() {
	fyne.Do(ui.refreshFormControls)
}

// refreshFormControls renders the submit button and status line
func (ui *RootUI) refreshFormControls() {
	l := ui.localization

	switch ui.form.State() {
	case form.StateSubmitting:
		ui.submitBtn.Disable()
		ui.submitBtn.SetText(l.GetText(KeySubmitting))
		ui.formStatus.Importance = widget.MediumImportance
		ui.formStatus.SetText("")
	case form.StateRejected:
		ui.submitBtn.Enable()
		ui.submitBtn.SetText(l.GetText(KeySubmit))
		ui.formStatus.Importance = widget.WarningImportance
		ui.formStatus.SetText(l.GetText(KeyEmptySubmission))
	case form.StateSucceeded:
		ui.submitBtn.Enable()
		ui.submitBtn.SetText(l.GetText(KeySubmit))
		ui.formStatus.Importance = widget.SuccessImportance
		ui.formStatus.SetText(ui.form.LastMessage())
	case form.StateFailed:
		ui.submitBtn.Enable()
		ui.submitBtn.SetText(l.GetText(KeySubmit))
		ui.formStatus.Importance = widget.DangerImportance
		ui.formStatus.SetText(l.GetText(KeySubmitFailed) + ": " + ui.form.LastMessage())
	default:
		ui.submitBtn.Enable()
		ui.submitBtn.SetText(l.GetText(KeySubmit))
		ui.formStatus.Importance = widget.MediumImportance
		ui.formStatus.SetText("")
	}
}

// Device card

// onRefreshStatus re-fetches device status and storage usage
func (ui *RootUI) onRefreshStatus() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), StatusFetchTimeout)
		defer cancel()

		ui.gate.Refresh(ctx)
		ui.loadDeviceStatus(ctx)
	}()
}

// loadDeviceStatus fetches device info and renders it
func (ui *RootUI) loadDeviceStatus(ctx context.Context) {
	resp, err := ui.client.FetchStatus(ctx)

	fyne.Do(func() {
		if err != nil {
			log.Warn().Err(err).Msg("device status fetch failed")
			ui.deviceLabel.Importance = widget.WarningImportance
			ui.deviceLabel.SetText(IconWarning + " " + ui.localization.GetText(KeyDeviceUnavailable))
			ui.statsLabel.SetText("")
			return
		}

		info := resp.DeviceInfo
		ui.deviceLabel.Importance = widget.MediumImportance
		ui.deviceLabel.SetText(fmt.Sprintf("%s: %s\nIP: %s\nMAC: %s",
			ui.localization.GetText(KeyHostname), info.Hostname, info.IP, info.MAC))

		stats := resp.KnowledgeStats
		ui.statsLabel.SetText(fmt.Sprintf(ui.localization.GetText(KeyStoredRecords),
			stats.SchoolInfo, stats.History, stats.Celebrities, stats.Total))
	})
}

// Notifications

// showNotification displays a message in the notification panel under the top bar.
// When spinning is true, a spinner is shown to indicate background activity.
func (ui *RootUI) showNotification(message string, spinning bool) {
	if ui.notificationLabel == nil || ui.notificationContainer == nil || ui.notificationSpinner == nil {
		return
	}
	fyne.Do(func() {
		ui.notificationLabel.SetText(message)
		if spinning {
			ui.notificationSpinner.Show()
		} else {
			ui.notificationSpinner.Hide()
		}
		ui.notificationContainer.Show()
		ui.notificationContainer.Refresh()
	})
}

// hideNotification hides the notification panel.
func (ui *RootUI) hideNotification() {
	if ui.notificationContainer == nil || ui.notificationSpinner == nil {
		return
	}
	fyne.Do(func() {
		ui.notificationSpinner.Hide()
		ui.notificationContainer.Hide()
	})
}

// showToast shows an auto-hiding in-app toast in the top-right corner
func (ui *RootUI) showToast(title, message string) {
	titleLabel := widget.NewLabel(title)
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	messageLabel := widget.NewLabel(message)
	messageLabel.Truncation = fyne.TextTruncateEllipsis

	var toastPopup *widget.PopUp
	closeBtn := widget.NewButton(IconClose, func() {
		if toastPopup != nil {
			toastPopup.Hide()
		}
	})
	closeBtn.Importance = widget.LowImportance

	content := container.NewVBox(
		container.NewBorder(nil, nil, titleLabel, closeBtn),
		messageLabel,
	)

	toastPopup = widget.NewPopUp(content, ui.window.Canvas())

	// Position in top-right corner
	canvasSize := ui.window.Canvas().Size()
	toastPopup.Resize(fyne.NewSize(ToastWidth, ToastHeight))
	toastPopup.Move(fyne.NewPos(canvasSize.Width-ToastWidth-ToastMargin, ToastMargin))
	toastPopup.Show()

	// Auto-hide after configured time
	go func() {
		time.Sleep(ToastAutoHide)
		fyne.Do(func() {
			toastPopup.Hide()
		})
	}()
}

// Settings

// onShowSettings shows the settings dialog
func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.localization, ui.window, func() {
		// Language applies immediately; the server URL on next launch
		ui.onLanguageChange(ui.settings.GetLanguage())
	}).Show()
}
