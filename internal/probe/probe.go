package probe

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHost    = "8.8.8.8"
	DefaultPort    = 53
	DefaultTimeout = 3 * time.Second
)

// TCPChecker reports whether a TCP connection to the target can be opened.
// The connection is closed as soon as it is established.
type TCPChecker struct {
	Timeout time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewTCPChecker(timeout time.Duration) *TCPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &net.Dialer{}
	return &TCPChecker{Timeout: timeout, dial: d.DialContext}
}

// Target joins host and port, defaulting to the public resolver.
func Target(host string, port int) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *TCPChecker) Check(ctx context.Context, target string) CheckResult {
	if _, _, err := net.SplitHostPort(target); err != nil {
		target = Target(target, DefaultPort)
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.dial(ctx, "tcp", target)
	latency := time.Since(start).Seconds() * 1000
	if err != nil {
		return CheckResult{Name: "TCP", Success: false, Message: err.Error(), LatencyMS: latency}
	}
	_ = conn.Close()
	return CheckResult{Name: "TCP", Success: true, Message: "connected", LatencyMS: latency}
}

// Probe is the boolean boundary used by the bootstrap and check paths.
func Probe(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return NewTCPChecker(timeout).Check(ctx, Target(host, port)).Success
}
