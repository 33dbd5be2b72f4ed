package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc-edux/sysedux-fleet/internal/core"
)

func TestProbeReachablePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	prober := NewTCPProber(2 * time.Second)

	result := prober.Probe(context.Background(), "127.0.0.1", port)
	assert.True(t, result.Success)
	assert.NoError(t, result.Err)
}

func TestProbeRefusedPort(t *testing.T) {
	// Grab a free port and release it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	prober := NewTCPProber(2 * time.Second)
	result := prober.Probe(context.Background(), "127.0.0.1", port)

	assert.False(t, result.Success)
	var probeErr *core.TransientProbeError
	require.ErrorAs(t, result.Err, &probeErr)
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "dc-edux.com", registrableDomain("royal.dc-edux.com"))
	assert.Equal(t, "dc-edux.com", registrableDomain("dc-edux.com"))
}
