package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"recyclectl/internal/model"
	"recyclectl/pkg/opserror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var opErr *opserror.OpError
	if errors.As(err, &opErr) {
		status = http.StatusBadRequest
		body.Code = string(opErr.Kind)
		body.Message = opErr.Message
		body.Details = opErr.Details
	} else if errors.Is(err, model.ErrBatchNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Batch not found"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
