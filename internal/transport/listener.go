package transport

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// ClientListener accepts plain, unauthenticated TCP connections from
// clients (spec.md §6: the client-facing listener carries no libp2p
// handshake, unlike the broker<->replica transport). Grounded on the
// teacher's core/network.go connection-lifecycle logging style.
type ClientListener struct {
	ln  net.Listener
	log *logrus.Entry
}

// Listen opens a TCP listener on addr (host:port).
func Listen(addr string, log *logrus.Entry) (*ClientListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return &ClientListener{ln: ln, log: log}, nil
}

// Addr returns the listener's bound address.
func (l *ClientListener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *ClientListener) Close() error { return l.ln.Close() }

// Serve accepts connections until the listener is closed, dispatching each
// to handler on its own goroutine.
func (l *ClientListener) Serve(handler func(Session)) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnectionBroken, err)
		}
		l.log.WithField("remote", conn.RemoteAddr()).Debug("client connected")
		go func() {
			defer func() {
				if r := recover(); r != nil {
					l.log.WithField("panic", r).Error("client session handler panicked")
				}
			}()
			handler(NewFrameSession(conn))
		}()
	}
}

// DialClient opens a plain client session to a broker at addr.
func DialClient(addr string) (Session, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return NewFrameSession(conn), nil
}
