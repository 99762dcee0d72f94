package model

// DeviceInfo identifies the assistant device the upload service runs on.
type DeviceInfo struct {
	Hostname string `json:"hostname"`
	IP       string `json:"ip"`
	MAC      string `json:"mac"`
}

// KnowledgeStats counts stored records per knowledge category.
type KnowledgeStats struct {
	SchoolInfo  int `json:"school_info"`
	History     int `json:"history"`
	Celebrities int `json:"celebrities"`
	Total       int `json:"total"`
}
