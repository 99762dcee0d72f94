package model

// Package model defines domain data structures used across the app: usage
// snapshots, celebrity records, file selections, upload batches, archive
// tasks, and status enums. Structures are designed for direct binding in the
// UI and explicit state transitions.
