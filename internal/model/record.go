package model

import "strings"

// CelebrityRecord is one structured entry of the knowledge form: a person's
// name and a free-text description. Both fields may be empty while editing;
// a record is only submission-worthy when at least one field is non-blank.
// Order is insertion order and is preserved end-to-end.
type CelebrityRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// IsBlank reports whether both fields are empty after trimming.
func (r CelebrityRecord) IsBlank() bool {
	return strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.Description) == ""
}

// Trimmed returns a copy with both fields trimmed.
func (r CelebrityRecord) Trimmed() CelebrityRecord {
	return CelebrityRecord{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
	}
}
