// Package handler exposes the read-only report surface consumed by the
// restore-selection UI: restorable batches, audit queries, and a recycle-root
// summary. All state comes from replaying the audit log; nothing here
// mutates.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"recyclectl/internal/audit"
	"recyclectl/internal/recycle"
)

type ReportHandler struct {
	log *audit.Log
}

func NewReportHandler(log *audit.Log) *ReportHandler {
	return &ReportHandler{log: log}
}

func (h *ReportHandler) Batches(w http.ResponseWriter, r *http.Request) {
	batches, err := recycle.RestorableBatches(h.log)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, batches, nil)
}

func (h *ReportHandler) Audit(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := audit.Query{
		Action:  params.Get("action"),
		Status:  params.Get("status"),
		BatchID: params.Get("batch"),
		Path:    params.Get("path"),
		From:    params.Get("from"),
		To:      params.Get("to"),
		Page:    intParam(params.Get("page")),
		Limit:   intParam(params.Get("limit")),
	}

	records, meta, err := h.log.RunQuery(query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, records, meta)
}

type summaryResponse struct {
	Batches         int    `json:"batches"`
	Entries         int    `json:"entries"`
	TotalBytes      int64  `json:"totalBytes"`
	TotalBytesHuman string `json:"totalBytesHuman"`
	OldestBatch     string `json:"oldestBatch,omitempty"`
	OldestTime      string `json:"oldestTime,omitempty"`
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	batches, err := recycle.RestorableBatches(h.log)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := summaryResponse{Batches: len(batches)}
	for _, batch := range batches {
		resp.Entries += len(batch.Entries)
		resp.TotalBytes += batch.TotalBytes
	}
	resp.TotalBytesHuman = humanize.IBytes(uint64(resp.TotalBytes))

	if len(batches) > 0 {
		oldest := batches[len(batches)-1]
		resp.OldestBatch = oldest.ID
		resp.OldestTime = oldest.FirstTime.UTC().Format(time.RFC3339)
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}

func intParam(raw string) int {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}

	return value
}
