package models

import "time"

// Generation describes a QR image successfully written to storage
type Generation struct {
	EntryID     string    `json:"entryId"`
	Path        string    `json:"path"`
	SizeBytes   int64     `json:"sizeBytes"`
	RequestID   string    `json:"requestId"`
	GeneratedAt time.Time `json:"generatedAt"`
}
