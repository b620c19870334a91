package model

// Failure describes one per-item failure surfaced in a run summary.
type Failure struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CleanupSummary aggregates one cleanup run.
type CleanupSummary struct {
	BatchID        string    `json:"batchId"`
	SuccessCount   int       `json:"successCount"`
	SkippedCount   int       `json:"skippedCount"`
	FailedCount    int       `json:"failedCount"`
	BytesReclaimed int64     `json:"bytesReclaimed"`
	Failures       []Failure `json:"failures,omitempty"`
}

// RestoreSummary aggregates one restore run.
type RestoreSummary struct {
	BatchID       string    `json:"batchId"`
	SuccessCount  int       `json:"successCount"`
	SkippedCount  int       `json:"skippedCount"`
	FailedCount   int       `json:"failedCount"`
	BytesRestored int64     `json:"bytesRestored"`
	Failures      []Failure `json:"failures,omitempty"`
}

// MaintainSummary aggregates one retention run.
type MaintainSummary struct {
	DryRun           bool      `json:"dryRun"`
	BeforeBatches    int       `json:"beforeBatches"`
	BeforeBytes      int64     `json:"beforeBytes"`
	SelectedByAge    int       `json:"selectedByAge"`
	SelectedBySize   int       `json:"selectedBySize"`
	DeletedBatches   int       `json:"deletedBatches"`
	DeletedBytes     int64     `json:"deletedBytes"`
	FailedBatches    int       `json:"failedBatches"`
	RemainingBatches int       `json:"remainingBatches"`
	RemainingBytes   int64     `json:"remainingBytes"`
	Failures         []Failure `json:"failures,omitempty"`
}
