package config

import (
	"os"

	"fyne.io/fyne/v2"
)

// Settings keys for Fyne preferences
const (
	KeyServerURL     = "server_url"
	KeyLanguage      = "app_language"
	KeyBundleUploads = "bundle_before_upload"
	KeyLastImportDir = "last_import_directory"
	KeyConfirmRemove = "confirm_record_remove"
)

// Default values for preferences
const (
	DefaultBundleUploads = false
	DefaultConfirmRemove = false
)

// Settings manages per-user application preferences. Values missing from
// the preference store fall back to the file configuration.
type Settings struct {
	app      fyne.App
	fallback *Config
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App, fallback *Config) *Settings {
	if fallback == nil {
		fallback = Default()
	}
	return &Settings{app: app, fallback: fallback}
}

// GetServerURL returns the configured device address
func (s *Settings) GetServerURL() string {
	u := s.app.Preferences().String(KeyServerURL)
	if u == "" {
		s.SetServerURL(s.fallback.ServerURL)
		return s.fallback.ServerURL
	}
	return u
}

// SetServerURL sets the device address
func (s *Settings) SetServerURL(u string) {
	s.app.Preferences().SetString(KeyServerURL, u)
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(s.fallback.Language)
		return s.fallback.Language
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"zh":     "中文",
	}
}

// GetBundleUploads returns whether selections are zipped before upload
func (s *Settings) GetBundleUploads() bool {
	return s.app.Preferences().BoolWithFallback(KeyBundleUploads, DefaultBundleUploads)
}

// SetBundleUploads sets whether selections are zipped before upload
func (s *Settings) SetBundleUploads(bundle bool) {
	s.app.Preferences().SetBool(KeyBundleUploads, bundle)
}

// GetConfirmOnRemove returns whether removing a filled record row asks first
func (s *Settings) GetConfirmOnRemove() bool {
	return s.app.Preferences().BoolWithFallback(KeyConfirmRemove, DefaultConfirmRemove)
}

// SetConfirmOnRemove sets whether removing a filled record row asks first
func (s *Settings) SetConfirmOnRemove(confirm bool) {
	s.app.Preferences().SetBool(KeyConfirmRemove, confirm)
}

// GetLastImportDir returns the directory of the last record import
func (s *Settings) GetLastImportDir() string {
	dir := s.app.Preferences().String(KeyLastImportDir)
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		return homeDir
	}
	return dir
}

// SetLastImportDir sets the directory of the last record import
func (s *Settings) SetLastImportDir(dir string) {
	s.app.Preferences().SetString(KeyLastImportDir, dir)
}
