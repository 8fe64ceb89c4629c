package model

// WebSocket message types
const (
	WSMessageTypeLog    = "log"
	WSMessageTypeStatus = "status"
	WSMessageTypeError  = "error"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSLogMessage carries one project log entry to stream subscribers.
type WSLogMessage struct {
	Type      string   `json:"type"`
	ProjectID string   `json:"projectId"`
	Entry     LogEntry `json:"entry"`
}

// WSStatusMessage announces a project status transition.
type WSStatusMessage struct {
	Type      string        `json:"type"`
	ProjectID string        `json:"projectId"`
	Status    ProjectStatus `json:"status"`
	Stage     string        `json:"stage,omitempty"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type      string  `json:"type"`
	ProjectID string  `json:"projectId"`
	Error     WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
