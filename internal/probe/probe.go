// Package probe watches Rokoko Studio reachability with cheap TCP dials.
// A connect that succeeds is hung up immediately; the HTTP API itself is
// never touched, so probing leaves no trace in Studio.
package probe

import (
	"context"
	"net"
	"time"
)

// DefaultTimeout bounds one probe dial.
const DefaultTimeout = time.Second

// Prober answers whether the target is currently reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// TCPProber dials the target's TCP port.
type TCPProber struct {
	Addr    string
	Timeout time.Duration
}

// NewTCPProber returns a prober for addr (host:port) with the default
// dial timeout.
func NewTCPProber(addr string) *TCPProber {
	return &TCPProber{Addr: addr, Timeout: DefaultTimeout}
}

func (p *TCPProber) Probe(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
