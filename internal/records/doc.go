package records

// Package records implements the editable celebrity list: visible rows the
// user types into, the filtered record sequence derived from them, and the
// serialization contract shared with the device (JSON array, empty string
// for an empty list, legacy plain strings accepted on read).
