package api

import (
	"github.com/knowbase/kb-uploader/internal/model"
)

// Every device endpoint answers with a success flag; failures carry a
// human-readable message in the same envelope regardless of HTTP status.

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	model.UsageSnapshot
}

// UploadResponse is the body of POST /upload_files. Usage is optional: newer
// servers return a fresh snapshot with the result.
type UploadResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Usage   *model.UsageSnapshot `json:"usage,omitempty"`
}

// KnowledgeSubmission is the form-encoded body of POST /upload. Celebrities
// carries the serialized record list: a JSON array or the empty string.
type KnowledgeSubmission struct {
	SchoolInfo  string
	History     string
	Celebrities string
}

// SubmitResponse is the body of POST /upload.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message,omitempty"`
	DeviceInfo     model.DeviceInfo     `json:"device_info"`
	KnowledgeStats model.KnowledgeStats `json:"knowledge_stats"`
}
