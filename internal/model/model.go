package model

import (
	"encoding/json"
	"strings"
)

type Action string

const (
	ActionTrackReel    Action = "trackReel"
	ActionDownloadData Action = "downloadData"
	ActionClearData    Action = "clearData"
	ActionSortReels    Action = "sortReels"
)

// Status strings returned to the caller. They are part of the wire
// contract, so keep them stable.
const (
	StatusQueued          = "Reel queued for tracking"
	StatusInvalidReel     = "Error: invalid reel data"
	StatusDownloadOK      = "Download started"
	StatusNoData          = "No data to download"
	StatusDownloadReadErr = "Error getting data for download"
	StatusDownloadFailed  = "Download failed"
	StatusCleared         = "Data cleared successfully"
	StatusClearErr        = "Error clearing data"
	StatusNoActiveTab     = "No active tab"
	StatusUnknownAction   = "Unknown action"
)

// Request is one message sent to the server.
type Request struct {
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type Response struct {
	Status string `json:"status"`
}

// IsError reports whether a status describes a failure.
func (r Response) IsError() bool {
	return strings.HasPrefix(r.Status, "Error") || r.Status == StatusDownloadFailed
}

func ErrorStatus(err error) string {
	return "Error: " + err.Error()
}
