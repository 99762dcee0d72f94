package ui

import "time"

// UI-wide constants to avoid magic numbers/strings scattered across the codebase.

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFile     = "📄"
	IconReveal   = "📁"
	IconClose    = "×"
	IconError    = "❌"
	IconWarning  = "⚠"
)

// Text fragments
const (
	DashPlaceholder     = "—"
	ProgressLabelFormat = "%d%%"
)

// Layout sizing (rows / cards)
const (
	NameEntryWidth float32 = 150
	SizeLabelWidth float32 = 90

	RowMinWidth  float32 = 320
	RowMinHeight float32 = 40

	FormEntryRows = 3

	SplitOffset = 0.45
)

// Dialog sizing
const (
	FileDialogWidth      float32 = 640
	FileDialogHeight     float32 = 480
	SettingsDialogWidth  float32 = 420
	SettingsDialogHeight float32 = 320
)

// Toast notification sizing and behavior
const (
	ToastWidth    float32 = 300
	ToastHeight   float32 = 110
	ToastMargin   float32 = 20
	ToastAutoHide         = 5 * time.Second
)

// Timeouts
const (
	StatusFetchTimeout = 30 * time.Second
)
