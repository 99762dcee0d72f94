package records

import (
	"fmt"
	"strings"

	"github.com/knowbase/kb-uploader/internal/model"
)

// Field separators recognized in plain-text record lines
const (
	FieldSeparatorColon   = ":"
	FieldSeparatorPipe    = "|"
	FieldSeparatorChinese = "："
)

// Line prefixes
const (
	CommentPrefix = "#"
)

// ImportParser converts record files into celebrity records. Files are
// either a JSON array in the list serialization format or plain text with
// one record per line, "name<sep>description" with a colon or pipe
// separator. Lines without a separator carry only a description.
type ImportParser struct {
	separators []string
}

// NewImportParser creates a new record file parser
func NewImportParser() *ImportParser {
	return &ImportParser{
		separators: []string{FieldSeparatorChinese, FieldSeparatorColon, FieldSeparatorPipe},
	}
}

// Parse extracts the records contained in a file. It returns an error when
// the file holds no records at all.
func (p *ImportParser) Parse(content string) ([]model.CelebrityRecord, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("file contains no records")
	}

	// JSON files reuse the list serialization format
	if strings.HasPrefix(trimmed, "[") {
		records := Deserialize(trimmed)
		if len(records) == 0 {
			return nil, fmt.Errorf("file contains no records")
		}
		return records, nil
	}

	var records []model.CelebrityRecord
	for _, line := range strings.Split(content, "\n") {
		record, ok := p.parseLine(line)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("file contains no records")
	}
	return records, nil
}

// parseLine converts a single text line into a record. Blank lines and
// comment lines are skipped.
func (p *ImportParser) parseLine(line string) (model.CelebrityRecord, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, CommentPrefix) {
		return model.CelebrityRecord{}, false
	}

	name, description, found := p.splitFields(line)
	if !found {
		// Lines without a separator are description-only, matching the
		// legacy single-string format
		return model.CelebrityRecord{Description: line}, true
	}

	return model.CelebrityRecord{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}, true
}

// splitFields splits a line at the earliest occurrence of any separator
func (p *ImportParser) splitFields(line string) (string, string, bool) {
	bestIdx := -1
	bestSep := ""
	for _, sep := range p.separators {
		idx := strings.Index(line, sep)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			bestIdx = idx
			bestSep = sep
		}
	}

	if bestIdx < 0 {
		return "", "", false
	}
	return line[:bestIdx], line[bestIdx+len(bestSep):], true
}
