package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestTCPProber_PortClaims(t *testing.T) {
	_, open := listen(t)
	closed := closedPort(t)

	p := NewTCPProber(map[string]string{"Redis": "127.0.0.1"}, time.Second, 1, zap.NewNop())

	res, err := p.Probe(context.Background(), domain.EntityState{Entity: "redis", Attribute: "port", Value: strconv.Itoa(open)})
	require.NoError(t, err)
	assert.True(t, res.Holds)
	assert.Contains(t, res.Detail, "accepted")

	res, err = p.Probe(context.Background(), domain.EntityState{Entity: "redis", Attribute: "port", Value: strconv.Itoa(closed)})
	require.NoError(t, err)
	assert.False(t, res.Holds)
}

func TestTCPProber_StateClaims(t *testing.T) {
	_, open := listen(t)
	p := NewTCPProber(map[string]string{"cache": net.JoinHostPort("127.0.0.1", strconv.Itoa(open))}, time.Second, 0, zap.NewNop())

	up, err := p.Probe(context.Background(), domain.EntityState{Entity: "cache", Attribute: "state", Value: "running"})
	require.NoError(t, err)
	assert.True(t, up.Holds)

	down, err := p.Probe(context.Background(), domain.EntityState{Entity: "cache", Attribute: "state", Value: "stopped"})
	require.NoError(t, err)
	assert.False(t, down.Holds)
}

func TestTCPProber_CanProbe(t *testing.T) {
	p := NewTCPProber(map[string]string{"redis": "10.0.0.5", "cache": "10.0.0.6:6379"}, time.Second, 0, zap.NewNop())

	assert.True(t, p.CanProbe(domain.EntityState{Entity: "redis", Attribute: "port", Value: "6379"}))
	assert.False(t, p.CanProbe(domain.EntityState{Entity: "redis", Attribute: "port", Value: "99999"}))
	assert.False(t, p.CanProbe(domain.EntityState{Entity: "redis", Attribute: "state", Value: "running"}))
	assert.True(t, p.CanProbe(domain.EntityState{Entity: "cache", Attribute: "state", Value: "down"}))
	assert.False(t, p.CanProbe(domain.EntityState{Entity: "cache", Attribute: "state", Value: "degraded"}))
	assert.False(t, p.CanProbe(domain.EntityState{Entity: "kafka", Attribute: "port", Value: "9092"}))
	assert.False(t, p.CanProbe(domain.EntityState{Entity: "redis", Attribute: "version", Value: "7"}))

	_, err := p.Probe(context.Background(), domain.EntityState{Entity: "kafka", Attribute: "port", Value: "9092"})
	assert.ErrorIs(t, err, ErrNotProbeable)
}

type timeoutDialer struct {
	calls int
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func (d *timeoutDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls++
	return nil, &net.OpError{Op: "dial", Net: network, Err: timeoutErr{}}
}

func TestTCPProber_TimeoutRetriesThenGivesUp(t *testing.T) {
	p := NewTCPProber(map[string]string{"redis": "10.0.0.5"}, 10*time.Millisecond, 2, zap.NewNop())
	d := &timeoutDialer{}
	p.SetDialer(d)

	_, err := p.Probe(context.Background(), domain.EntityState{Entity: "redis", Attribute: "port", Value: "6379"})
	if !errors.Is(err, ErrProbeTimeout) {
		t.Fatalf("expected ErrProbeTimeout, got %v", err)
	}
	if d.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", d.calls)
	}
}
