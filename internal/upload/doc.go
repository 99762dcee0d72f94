package upload

// Package upload owns the file submission flow: holding the current
// selection, admitting or rejecting submissions against the capacity gate,
// serializing transfers so only one request is ever on the wire, and
// feeding progress back to the UI.
