package model

import "time"

// Target is one filesystem object selected for cleanup by the scanner or by
// an explicit caller.
type Target struct {
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Scope    string         `json:"scope,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BatchEntry is one restorable cleanup record inside a reconstructed batch.
type BatchEntry struct {
	SourcePath  string         `json:"sourcePath"`
	RecyclePath string         `json:"recyclePath"`
	Scope       string         `json:"scope,omitempty"`
	Size        int64          `json:"size"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Batch groups the still-restorable entries sharing one batchId. Batches are
// derived from the audit log on every read, never persisted.
type Batch struct {
	ID         string       `json:"batchId"`
	FirstTime  time.Time    `json:"firstTime"`
	Entries    []BatchEntry `json:"entries"`
	TotalBytes int64        `json:"totalBytes"`
}
