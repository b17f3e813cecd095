package node

import (
	"context"
	"time"

	"carbon/internal/crypto"
	"carbon/internal/ping"
	"carbon/internal/view"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Prober measures round-trip latency to every replica in v on a fixed
// interval and records it on board, feeding the broker's fastest-plurality
// optimization (spec.md §4.4's ping_interval, default 60s).
type Prober struct {
	view     *view.View
	board    *ping.Board
	dialer   *Dialer
	interval time.Duration
	log      *logrus.Entry
}

// NewProber builds a prober for v using dialer to reach every replica.
func NewProber(v *view.View, board *ping.Board, dialer *Dialer, interval time.Duration, log *logrus.Entry) *Prober {
	return &Prober{view: v, board: board, dialer: dialer, interval: interval, log: log}
}

// Run probes every member once immediately, then once per interval, until
// ctx is canceled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.probeAll(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probeAll(ctx context.Context) {
	group, gctx := errgroup.WithContext(ctx)
	for _, m := range p.view.Members() {
		identity := m.Identity
		group.Go(func() error {
			p.probeOne(gctx, identity)
			return nil
		})
	}
	_ = group.Wait()
}

func (p *Prober) probeOne(ctx context.Context, identity crypto.Identity) {
	start := time.Now()
	var resp pingResponse
	if err := p.dialer.Call(ctx, identity, kindPing, pingRequest{}, kindPingResult, &resp); err != nil {
		p.board.Fail(identity)
		p.log.WithError(err).WithField("replica", identity).Debug("ping probe failed")
		return
	}
	p.board.Submit(identity, time.Since(start))
}
