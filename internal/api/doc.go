package api

// Package api implements the HTTP client for the device upload service:
// usage snapshots, multipart file uploads, knowledge-form submission, and
// device status. Server rejections and transport failures surface as
// distinct error types so callers can word messages accordingly.
