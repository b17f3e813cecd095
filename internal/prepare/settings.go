// Package prepare implements the C7 prepare stage (spec.md §4.7): clients
// submit operations, the broker batches them through a sponge into a
// Merkle-committed vector, replicas endorse the batch (guarding against
// equivocation via internal/database's prepare ledger) and the broker
// collects their shards into a witness certificate. Grounded on
// original_source/src/brokers/prepare/* and
// original_source/src/database/prepare/*.
package prepare

import "time"

// Settings bounds the prepare stage's batching window; certificate
// collection uses broker.DefaultCollectSettings.
type Settings struct {
	SpongeCapacity int
	SpongeTimeout  time.Duration
}

// DefaultSettings returns sponge capacity 256 and timeout 200ms.
func DefaultSettings() Settings {
	return Settings{SpongeCapacity: 256, SpongeTimeout: 200 * time.Millisecond}
}
