// Package probe holds the network reachability checks run against
// tenant instances.
package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dc-edux/sysedux-fleet/internal/core"
)

// DefaultTimeout bounds a single probe dial.
const DefaultTimeout = 5 * time.Second

// Result is what one probe attempt reports back to its caller. It is
// observability only; nothing here is persisted beyond the timestamp
// the batch writes.
type Result struct {
	Address   string
	Success   bool
	LatencyMs int64
	Err       error
}

// TCPProber checks reachability with a bare TCP connect. No payload
// is exchanged; an established connection is a pass.
type TCPProber struct {
	timeout time.Duration
}

func NewTCPProber(timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TCPProber{timeout: timeout}
}

func (p *TCPProber) Probe(ctx context.Context, host string, port int) Result {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	result := Result{Address: address}

	dialer := net.Dialer{Timeout: p.timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	result.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		result.Err = &core.TransientProbeError{Address: address, Err: err}
		return result
	}
	if err := conn.Close(); err != nil {
		result.Err = &core.TransientProbeError{Address: address, Err: fmt.Errorf("close: %w", err)}
		return result
	}

	result.Success = true
	return result
}
