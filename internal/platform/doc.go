package platform

// Package platform contains OS integration helpers: revealing files in the
// system file manager, directory creation, and well-known user directories.
