package ui

import (
	"fyne.io/fyne/v2"
)

const (
	AppIcon = "kb-uploader.png"
)

// LoadLogoResource loads the application logo from file path
func LoadLogoResource() (fyne.Resource, error) {
	return fyne.LoadResourceFromPath(AppIcon)
}
