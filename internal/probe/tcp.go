// Package probe mechanically checks extracted claims against live systems.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/extract"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	// ErrProbeTimeout means the target never answered; the claim is undecided.
	ErrProbeTimeout = errors.New("probe timed out")
	ErrNotProbeable = errors.New("claim cannot be probed")
)

var upStates = map[string]bool{
	"running": true, "up": true, "enabled": true, "active": true, "online": true,
	"open": true, "healthy": true, "available": true,
	"stopped": false, "down": false, "disabled": false, "inactive": false, "offline": false,
	"closed": false, "unhealthy": false, "unavailable": false,
}

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProber dials hosts configured per entity. Port claims are checked by
// dialing the claimed port; state claims need the configured address to carry
// a port and are checked by whether it accepts a connection.
type TCPProber struct {
	hosts      map[string]string
	timeout    time.Duration
	maxRetries uint64
	dialer     Dialer
	logger     *zap.Logger
}

func NewTCPProber(hosts map[string]string, timeout time.Duration, maxRetries int, logger *zap.Logger) *TCPProber {
	normalized := make(map[string]string, len(hosts))
	for k, v := range hosts {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TCPProber{
		hosts:      normalized,
		timeout:    timeout,
		maxRetries: uint64(maxRetries),
		dialer:     &net.Dialer{},
		logger:     logger,
	}
}

// SetDialer replaces the network dialer.
func (p *TCPProber) SetDialer(d Dialer) {
	p.dialer = d
}

func (p *TCPProber) CanProbe(fact domain.EntityState) bool {
	_, err := p.target(fact)
	return err == nil
}

func (p *TCPProber) target(fact domain.EntityState) (string, error) {
	configured, ok := p.hosts[strings.ToLower(fact.Entity)]
	if !ok || configured == "" {
		return "", ErrNotProbeable
	}

	switch fact.Attribute {
	case extract.AttrPort:
		port, err := strconv.Atoi(fact.Value)
		if err != nil || port <= 0 || port > 65535 {
			return "", ErrNotProbeable
		}
		host := configured
		if h, _, err := net.SplitHostPort(configured); err == nil {
			host = h
		}
		return net.JoinHostPort(host, strconv.Itoa(port)), nil
	case extract.AttrState:
		if _, known := upStates[strings.ToLower(fact.Value)]; !known {
			return "", ErrNotProbeable
		}
		if _, _, err := net.SplitHostPort(configured); err != nil {
			return "", ErrNotProbeable
		}
		return configured, nil
	}
	return "", ErrNotProbeable
}

// Probe reports whether the claim holds. Refused connections are decisive;
// timeouts are retried with exponential backoff and then return ErrProbeTimeout.
func (p *TCPProber) Probe(ctx context.Context, fact domain.EntityState) (domain.ProbeResult, error) {
	addr, err := p.target(fact)
	if err != nil {
		return domain.ProbeResult{}, err
	}

	var reachable bool
	op := func() error {
		dctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		conn, err := p.dialer.DialContext(dctx, "tcp", addr)
		if err == nil {
			conn.Close()
			reachable = true
			return nil
		}
		if isRefused(err) {
			reachable = false
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		p.logger.Debug("probe attempt failed", zap.String("addr", addr), zap.Error(err))
		return ErrProbeTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.ProbeResult{}, fmt.Errorf("%w: %v", ErrProbeTimeout, err)
		}
		return domain.ProbeResult{}, ErrProbeTimeout
	}

	holds := reachable
	if fact.Attribute == extract.AttrState {
		holds = upStates[strings.ToLower(fact.Value)] == reachable
	}

	verb := "refused"
	if reachable {
		verb = "accepted"
	}
	return domain.ProbeResult{
		Holds:  holds,
		Detail: fmt.Sprintf("%s %s connection", addr, verb),
	}, nil
}

func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return strings.Contains(strings.ToLower(opErr.Err.Error()), "refused")
	}
	return false
}
