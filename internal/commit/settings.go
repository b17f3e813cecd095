// Package commit implements the C8 commit stage (spec.md §4.8): the
// broker sorts and deduplicates a batch of client payloads, collects a
// witness certificate over the payload batch, has replicas apply it
// (resolving deposit dependencies against the replica's own commit
// ledger and excepting payloads whose prepare or dependency can't be
// found), and collects a completion certificate over the resulting
// exception set. Grounded on original_source/src/commit/* and
// original_source/src/brokers/commit/*.
package commit

import "time"

// Settings bounds the commit stage's batching window; certificate
// collection uses broker.DefaultCollectSettings.
type Settings struct {
	SpongeCapacity int
	SpongeTimeout  time.Duration
}

// DefaultSettings returns sponge capacity 256 and timeout 200ms — the same
// batching budget as the prepare stage.
func DefaultSettings() Settings {
	return Settings{SpongeCapacity: 256, SpongeTimeout: 200 * time.Millisecond}
}
