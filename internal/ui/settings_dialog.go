package ui

import (
	"fmt"
	"net/url"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/knowbase/kb-uploader/internal/config"
)

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	// UI components
	serverEntry        *widget.Entry
	languageSelect     *widget.Select
	languageCodes      map[string]string // display label -> language code
	confirmRemoveCheck *widget.Check
}

// NewSettingsDialog creates a new settings dialog. onSaved is invoked after a
// confirmed save so the caller can apply changes that take effect immediately.
func NewSettingsDialog(settings *config.Settings, localization *Localization, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: localization,
		window:       window,
		onSaved:      onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

// createUI creates the settings dialog UI
func (sd *SettingsDialog) createUI() {
	l := sd.localization

	// Device address; applied on the next launch because the HTTP client is
	// built once at startup
	sd.serverEntry = widget.NewEntry()
	sd.serverEntry.SetPlaceHolder("http://192.168.4.1:8080")

	serverHint := widget.NewLabel(l.GetText(KeyServerURLHint))
	serverHint.TextStyle = fyne.TextStyle{Italic: true}

	// Language selection shows display names, settings store language codes
	sd.languageCodes = make(map[string]string)
	languageOptions := []string{}
	for code, label := range sd.settings.GetLanguageOptions() {
		sd.languageCodes[label] = code
		languageOptions = append(languageOptions, label)
	}
	sd.languageSelect = widget.NewSelect(languageOptions, nil)

	sd.confirmRemoveCheck = widget.NewCheck(l.GetText(KeyConfirmRemoveOption), nil)

	// Create form
	form := container.NewVBox(
		widget.NewLabel(l.GetText(KeyServerURL)+":"),
		sd.serverEntry,
		serverHint,

		widget.NewSeparator(),

		widget.NewLabel(l.GetText(KeyLanguage)+":"),
		sd.languageSelect,

		widget.NewSeparator(),

		sd.confirmRemoveCheck,
	)

	// Create dialog with buttons
	sd.dialog = dialog.NewCustomConfirm(
		l.GetText(KeySettings),
		l.GetText(KeySave),
		l.GetText(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

// loadCurrentSettings loads current settings into the UI
func (sd *SettingsDialog) loadCurrentSettings() {
	sd.serverEntry.SetText(sd.settings.GetServerURL())

	current := sd.settings.GetLanguage()
	for label, code := range sd.languageCodes {
		if code == current {
			sd.languageSelect.SetSelected(label)
		}
	}

	sd.confirmRemoveCheck.SetChecked(sd.settings.GetConfirmOnRemove())
}

// onSave handles saving the settings
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	// Validate and save server URL
	serverURL := strings.TrimSpace(sd.serverEntry.Text)
	if serverURL != "" {
		if err := validateServerURL(serverURL); err != nil {
			dialog.ShowError(err, sd.window)
			return
		}
		sd.settings.SetServerURL(serverURL)
	}

	// Save language
	if label := sd.languageSelect.Selected; label != "" {
		if code, ok := sd.languageCodes[label]; ok {
			sd.settings.SetLanguage(code)
		}
	}

	sd.settings.SetConfirmOnRemove(sd.confirmRemoveCheck.Checked)

	dialog.ShowInformation(sd.localization.GetText(KeySettings), sd.localization.GetText(KeySettingsSaved), sd.window)

	if sd.onSaved != nil {
		sd.onSaved()
	}
}

// validateServerURL checks that the text is an absolute http(s) URL
func validateServerURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in URL")
	}
	return nil
}
