package ui

// Package ui contains the Fyne-based desktop user interface for the application.
// It wires user interactions to the capacity gate, the upload controller, and the
// knowledge form coordinator, and renders usage, selected files, editable record
// rows, and device status. All UI strings are localized via Localization.
