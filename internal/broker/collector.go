package broker

import (
	"context"
	"errors"
	"time"

	"carbon/internal/crypto"
	"carbon/internal/ping"
	"carbon/internal/view"
)

// ErrInsufficientReplicas is returned when the replica set is exhausted
// before enough shards were collected to meet the requested threshold.
var ErrInsufficientReplicas = errors.New("broker: could not collect enough shards from the replica set")

// RequestFunc asks one replica to produce its shard over the statement the
// collector was given, returning the replica's verified-by-caller shard.
type RequestFunc func(ctx context.Context, identity crypto.Identity) (crypto.Shard, error)

// CollectSettings bounds the collector's retry behavior (Design Note §9
// Open Question, resolved in SPEC_FULL.md §4: 3 attempts, exponential
// backoff starting at 100ms).
type CollectSettings struct {
	Retries   int
	BaseDelay time.Duration
}

// DefaultCollectSettings matches SPEC_FULL.md §4's fixed retry budget.
func DefaultCollectSettings() CollectSettings {
	return CollectSettings{Retries: 3, BaseDelay: 100 * time.Millisecond}
}

// CollectCertificate drives the ping-board-optimized broadcast-and-collect
// loop: it first asks only the fastest-ranked subset sized to the
// threshold, then expands to further-ranked replicas on a timeout, up to
// settings.Retries rounds, with exponential backoff between rounds.
// Grounded on original_source/src/brokers/prepare/broker/orchestrate.rs's
// "instruct fastest plurality to submit signatures" strategy, generalized
// to an arbitrary threshold so both the prepare and commit stages can
// reuse it for their reduction/witness/commit/completion certificates.
func CollectCertificate(ctx context.Context, v *view.View, board *ping.Board, stmt crypto.Statement, threshold crypto.Threshold, request RequestFunc, settings CollectSettings) (*crypto.Certificate, error) {
	agg := crypto.NewAggregator(v, stmt)

	need := v.Plurality()
	if threshold == crypto.ThresholdQuorum {
		need = v.Quorum()
	}

	rankings := board.Rankings()
	members := make(map[crypto.Identity]crypto.PublicKey, v.N())
	for _, m := range v.Members() {
		members[m.Identity] = m.Keycard
	}

	type result struct {
		identity crypto.Identity
		shard    crypto.Shard
		err      error
	}

	fuse := NewFuse(ctx)
	defer fuse.Close()

	results := make(chan result, v.N())
	ask := func(batch []crypto.Identity) {
		for _, id := range batch {
			id := id
			fuse.Spawn(func(ctx context.Context) {
				shard, err := request(ctx, id)
				select {
				case results <- result{identity: id, shard: shard, err: err}:
				case <-ctx.Done():
				}
			})
		}
	}

	cursor := 0
	nextBatch := func(n int) []crypto.Identity {
		if cursor >= len(rankings) {
			return nil
		}
		end := cursor + n
		if end > len(rankings) {
			end = len(rankings)
		}
		batch := rankings[cursor:end]
		cursor = end
		return batch
	}

	ask(nextBatch(need))
	delay := settings.BaseDelay

	for attempt := 0; ; {
		timer := time.NewTimer(delay)
		for {
			select {
			case r := <-results:
				timer.Stop()
				if r.err == nil {
					_ = agg.Add(r.identity, members[r.identity], r.shard)
				}
				if agg.Power() >= need {
					return agg.Finalize(threshold)
				}
				timer = time.NewTimer(delay)
				continue
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
			break
		}

		if agg.Power() >= need {
			return agg.Finalize(threshold)
		}

		attempt++
		if attempt > settings.Retries {
			return nil, ErrInsufficientReplicas
		}
		batch := nextBatch(need - agg.Power())
		if len(batch) == 0 {
			return nil, ErrInsufficientReplicas
		}
		ask(batch)
		delay *= 2
	}
}
