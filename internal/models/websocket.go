package models

// WebSocketMessage is the envelope for all hub traffic. Progress events are
// unsolicited and lossy; results echo the caller-generated RequestID so the
// foreground can correlate replies without assuming FIFO ordering.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Progress is the advisory payload emitted by long-running operations.
type Progress struct {
	Operation string `json:"operation"`
	Percent   int    `json:"percent"`
	Status    string `json:"status"`
}
