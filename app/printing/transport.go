package printing

import (
	"context"
	"time"
)

// TransportKind identifies a delivery channel for print content.
type TransportKind string

const (
	TransportUSB     TransportKind = "usb"
	TransportNetwork TransportKind = "network"
	TransportSpooler TransportKind = "spooler"
	TransportPDF     TransportKind = "pdf"
)

// Payload is the encoded content handed to a transport attempt. Raw is
// the binary ESC/POS stream; Text is the plain-text rendering for
// transports that cannot accept binary. Both are prepared before the
// attempt chain starts so every attempt sees identical content.
type Payload struct {
	JobID int
	Raw   []byte
	Text  string
	Width int // characters per line
}

// Transport delivers a payload to one kind of destination. Attempts must
// respect ctx cancellation and be safe to abandon on timeout without
// corrupting shared state.
type Transport interface {
	Kind() TransportKind
	Attempt(ctx context.Context, payload *Payload) error
}

// Outcome records one transport attempt.
type Outcome struct {
	Transport TransportKind `json:"transport"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ms"`
}

// Logger is the logging surface the printing package needs; satisfied by
// services.LoggerService.
type Logger interface {
	LogInfo(message string, details ...string)
	LogWarning(message string, details ...string)
	LogError(message string, err error, details ...string)
}
