package link

import (
	"fmt"
	"time"
)

// Status is the externally visible connection state
type Status string

const (
	StatusIdle         Status = "idle"
	StatusScanning     Status = "scanning"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Event is published on every status transition. Message is set only for StatusError;
// Address is set once the peer is known.
type Event struct {
	Status  Status    `json:"status"`
	Message string    `json:"message,omitempty"`
	Address string    `json:"address,omitempty"`
	Time    time.Time `json:"time"`
}

func (e Event) String() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	case e.Address != "":
		return fmt.Sprintf("%s (%s)", e.Status, e.Address)
	default:
		return string(e.Status)
	}
}
