// Package listener binds the server socket, retrying on successive ports when
// a bind fails, and hands out one inbound connection at a time.
package listener

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"texcalc/fault"
)

// Endpoint is an address and port. Port moves forward during bind retry and
// is fixed once the listener is bound.
type Endpoint struct {
	Address string
	Port    int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// Listener owns the bound socket.
type Listener struct {
	ln       net.Listener
	endpoint Endpoint
}

// Listen binds to ep, and on any bind or listen error tries the next port, up
// to maxAttempts attempts in total. If every attempt fails the error has kind
// fault.BindFailure.
func Listen(ep Endpoint, maxAttempts int, log *zap.Logger) (*Listener, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := ep.Port
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ln, err := net.Listen("tcp", ep.String())
		if err == nil {
			return &Listener{ln: ln, endpoint: ep}, nil
		}
		lastErr = err
		log.Warn("port unavailable, binding to next port",
			zap.Int("port", ep.Port), zap.Int("next", ep.Port+1), zap.Error(err))
		ep.Port++
	}
	if lastErr == nil {
		lastErr = errors.New("no bind attempts allowed")
	}
	return nil, fault.New(fault.BindFailure, ep.Address,
		errors.Wrapf(lastErr, "ports %d-%d", start, start+maxAttempts-1))
}

// MustListen is like Listen but panics on failure. There is no server without
// a bound port.
func MustListen(ep Endpoint, maxAttempts int, log *zap.Logger) *Listener {
	l, err := Listen(ep, maxAttempts, log)
	if err != nil {
		panic(err)
	}
	return l
}

// Accept blocks until one inbound connection is established.
func (l *Listener) Accept() (net.Conn, error) {
	return l.ln.Accept()
}

// Port reports the port the listener is bound to. When the requested port was
// 0 this is the port chosen by the system.
func (l *Listener) Port() int {
	if addr, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return l.endpoint.Port
}

// Endpoint reports the bound endpoint.
func (l *Listener) Endpoint() Endpoint {
	return Endpoint{Address: l.endpoint.Address, Port: l.Port()}
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close closes the socket; a blocked Accept returns net.ErrClosed.
func (l *Listener) Close() error { return l.ln.Close() }
