package archive

import (
	"github.com/knowbase/kb-uploader/internal/model"
)

// Bundler defines the interface for the archive service.
type Bundler interface {
	SetUpdateCallback(func(*model.ArchiveTask))
	Start(inputPaths []string) (*model.ArchiveTask, error)
	Stop(taskID string) error
	GetTask(taskID string) (*model.ArchiveTask, bool)
}
