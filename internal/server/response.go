package server

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	codeInvalidRequest     = "INVALID_REQUEST"
	codeInvalidParameter   = "INVALID_PARAMETER"
	codeInvalidLocation    = "INVALID_LOCATION"
	codeNoSources          = "NO_SOURCES"
	codeSourcesUnavailable = "SOURCES_UNAVAILABLE"
	codeInternal           = "INTERNAL_ERROR"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// fail logs the failure of operation and writes the error envelope.
func fail(ctx context.Context, w http.ResponseWriter, operation string, statusCode int, code, message string, err error) {
	logOperationError(ctx, operation, statusCode, code, message, err)
	writeError(w, statusCode, code, message)
}
