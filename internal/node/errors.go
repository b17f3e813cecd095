package node

import "errors"

// ErrSignupQuorumNotMet is returned when fewer than a quorum of replicas
// certified a claim before the broker gave up collecting shards.
var ErrSignupQuorumNotMet = errors.New("node: could not collect a quorum certificate for signup assignment")

// ErrInvalidCommitProof is returned when a client's CommitRequest carries
// an Extract that does not certify the prepare it claims to (spec.md
// §4.8 step 1: "commit_proof verifies against payload.prepare()").
var ErrInvalidCommitProof = errors.New("node: commit proof does not verify against the submitted prepare")
