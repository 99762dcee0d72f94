package model

import "path/filepath"

// SelectedFile is one entry of the current file selection.
type SelectedFile struct {
	Path string
	Name string
	Size int64 // size in bytes, 0 if stat failed
}

// FileSelection is the ordered set of files chosen for upload. It is
// ephemeral: replaced wholesale on every selection change and cleared after a
// successful upload. Never persisted.
type FileSelection struct {
	Files []SelectedFile
}

// NewFileSelection builds a selection from paths, in the given order.
// Sizes are filled in by the caller; display names derive from the path.
func NewFileSelection(paths []string) *FileSelection {
	sel := &FileSelection{Files: make([]SelectedFile, 0, len(paths))}
	for _, p := range paths {
		sel.Files = append(sel.Files, SelectedFile{Path: p, Name: filepath.Base(p)})
	}
	return sel
}

// IsEmpty reports whether no files are selected.
func (s *FileSelection) IsEmpty() bool {
	return s == nil || len(s.Files) == 0
}

// Count returns the number of selected files.
func (s *FileSelection) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Files)
}

// TotalBytes returns the summed size of the selection.
func (s *FileSelection) TotalBytes() int64 {
	if s == nil {
		return 0
	}
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}

// Oversized returns the files exceeding the per-file limit. Informational
// only; the server is the authority on file limits.
func (s *FileSelection) Oversized(limit int64) []SelectedFile {
	if s == nil || limit <= 0 {
		return nil
	}
	var over []SelectedFile
	for _, f := range s.Files {
		if f.Size > limit {
			over = append(over, f)
		}
	}
	return over
}
