package capacity

// Package capacity implements the storage quota gate: it holds the latest
// server-reported usage snapshot, derives the upload admission decision, and
// schedules the single post-upload re-fetch. Fetch failures degrade the gate
// (fail-open) instead of blocking uploads.
