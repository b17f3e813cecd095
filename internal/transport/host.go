package transport

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/sirupsen/logrus"
)

// ProtocolID names the libp2p stream protocol carbon replicas and brokers
// speak over.
const ProtocolID protocol.ID = "/carbon/session/1.0.0"

// Host wraps a libp2p host for authenticated broker<->replica sessions.
// Grounded on the teacher's core/network.go NewNode, which builds its host
// the same way (libp2p.New(libp2p.ListenAddrStrings(...))) before layering
// pubsub on top; here streams replace pubsub as the transport's top layer.
type Host struct {
	h   host.Host
	log *logrus.Entry
}

// NewHost starts a libp2p host listening on listenAddr (a multiaddr string,
// e.g. "/ip4/0.0.0.0/tcp/4001").
func NewHost(listenAddr string, log *logrus.Entry) (*Host, error) {
	h, err := libp2p.New(libp2p.ListenAddrStrings(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return &Host{h: h, log: log}, nil
}

// ID returns the host's own peer id.
func (h *Host) ID() peer.ID { return h.h.ID() }

// Addrs returns the host's listen multiaddrs, for publishing to discovery.
func (h *Host) Addrs() []string {
	out := make([]string, 0, len(h.h.Addrs()))
	for _, a := range h.h.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a, h.h.ID()))
	}
	return out
}

// Close shuts the host down.
func (h *Host) Close() error { return h.h.Close() }

// Serve installs handler as the session handler for every inbound stream on
// ProtocolID, running each session on its own goroutine.
func (h *Host) Serve(handler func(Session)) {
	h.h.SetStreamHandler(ProtocolID, func(s network.Stream) {
		defer func() {
			if r := recover(); r != nil {
				h.log.WithField("panic", r).Error("session handler panicked")
			}
		}()
		handler(NewFrameSession(s))
	})
}

// Dial opens an authenticated session to peerAddr (a full multiaddr
// including the /p2p/<id> suffix).
func (h *Host) Dial(ctx context.Context, peerAddr string) (Session, error) {
	info, err := peer.AddrInfoFromString(peerAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := h.h.Connect(ctx, *info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	stream, err := h.h.NewStream(ctx, info.ID, ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return NewFrameSession(stream), nil
}
