package printing

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Default raw-printing port (JetDirect / ESC/POS over TCP).
const DefaultNetworkPort = 9100

// NetworkTransport writes the binary stream to the first reachable
// endpoint from a configured candidate list. Candidates come from
// configuration and directory discovery, never from hard-coded LAN
// guesses.
type NetworkTransport struct {
	Endpoints      []string // host:port
	PerHostTimeout time.Duration
}

// NewNetworkTransport creates a transport probing the given endpoints in
// order with a short per-host timeout to keep total probe time bounded.
func NewNetworkTransport(endpoints []string, perHostTimeout time.Duration) *NetworkTransport {
	if perHostTimeout <= 0 {
		perHostTimeout = 2 * time.Second
	}
	return &NetworkTransport{Endpoints: endpoints, PerHostTimeout: perHostTimeout}
}

func (t *NetworkTransport) Kind() TransportKind {
	return TransportNetwork
}

func (t *NetworkTransport) Attempt(ctx context.Context, payload *Payload) error {
	if len(t.Endpoints) == 0 {
		return fmt.Errorf("no network endpoints configured")
	}

	var lastErr error
	for _, endpoint := range t.Endpoints {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("network attempt cancelled: %w", err)
		}
		if err := t.writeTo(endpoint, payload.Raw); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no network printer reachable: %w", lastErr)
}

func (t *NetworkTransport) writeTo(endpoint string, raw []byte) error {
	conn, err := net.DialTimeout("tcp", endpoint, t.PerHostTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(t.PerHostTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := conn.Write(raw); err != nil {
		return fmt.Errorf("failed to write to %s: %w", endpoint, err)
	}
	return nil
}
