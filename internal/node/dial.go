package node

import (
	"context"
	"fmt"

	"carbon/internal/crypto"
	"carbon/internal/transport"
	"carbon/internal/wire"

	"github.com/sirupsen/logrus"
)

// Dialer opens one fresh authenticated stream per RPC to a known replica
// address — the stateless-client analogue of transport.Host.Dial, kept
// separate from Broker so Prober can share it for latency probes.
type Dialer struct {
	host  *transport.Host
	addrs map[crypto.Identity]string
	log   *logrus.Entry
}

// NewDialer builds a Dialer resolving each view member's identity to its
// full libp2p multiaddr (including the /p2p/<id> suffix).
func NewDialer(host *transport.Host, addrs map[crypto.Identity]string, log *logrus.Entry) *Dialer {
	return &Dialer{host: host, addrs: addrs, log: log}
}

// Call dials identity, sends req under kind and decodes the wantKind
// response into resp.
func (d *Dialer) Call(ctx context.Context, identity crypto.Identity, kind wire.Kind, req any, wantKind wire.Kind, resp any) error {
	addr, ok := d.addrs[identity]
	if !ok {
		return fmt.Errorf("node: no known address for replica %x", identity)
	}

	session, err := d.host.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer session.Close()

	env, err := wire.Wrap(kind, req)
	if err != nil {
		return err
	}
	if err := session.Send(env); err != nil {
		return err
	}

	var respEnv wire.Envelope
	if err := session.Receive(&respEnv); err != nil {
		return err
	}
	if respEnv.Kind != wantKind {
		return fmt.Errorf("node: replica %x returned unexpected rpc kind %q", identity, respEnv.Kind)
	}
	return respEnv.Unwrap(resp)
}
