package account

import (
	"crypto/sha256"
	"encoding/binary"
)

// OperationKind tags the Operation variant, used for dispatch and for the
// commitment encoding (spec.md §3: Operation = tagged variant).
type OperationKind byte

const (
	KindMint OperationKind = iota
	KindWithdraw
	KindDeposit
	KindCollect
	KindSupport
	KindAbandon
)

// Operation is the tagged-variant payload body. Dependency reports the
// prior Completion this operation requires before it may apply, if any
// (spec.md §3: "each operation carries an optional dependency()").
type Operation interface {
	Kind() OperationKind
	Encode() []byte
	Dependency() (Entry, bool)
}

// Commitment hashes an operation's canonical encoding — the commitment
// field of a Prepare.
func Commitment(op Operation) [32]byte {
	b := append([]byte{byte(op.Kind())}, op.Encode()...)
	return sha256.Sum256(b)
}

// MintOp credits balance unconditionally (subject to quorum ordering).
type MintOp struct {
	Amount uint64
}

func (MintOp) Kind() OperationKind           { return KindMint }
func (o MintOp) Dependency() (Entry, bool)   { return Entry{}, false }
func (o MintOp) Encode() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], o.Amount)
	return b[:]
}

// WithdrawOp debits balance and records an outgoing entry keyed by slot,
// per beneficiary, for a later Deposit to reference as its dependency.
type WithdrawOp struct {
	Beneficiary ID
	Slot        uint64
	Amount      uint64
}

func (WithdrawOp) Kind() OperationKind         { return KindWithdraw }
func (o WithdrawOp) Dependency() (Entry, bool) { return Entry{}, false }
func (o WithdrawOp) Encode() []byte {
	b := make([]byte, 24)
	binary.BigEndian.PutUint64(b[0:8], uint64(o.Beneficiary))
	binary.BigEndian.PutUint64(b[8:16], o.Slot)
	binary.BigEndian.PutUint64(b[16:24], o.Amount)
	return b
}

// DepositOp credits the amount carried by a completed Withdraw's
// Completion, optionally folding collect-exclusion bookkeeping into the
// account's deposits root.
type DepositOp struct {
	Withdraw  Entry
	Exclusion *ExclusionProof // nil when Collect is false
	Collect   bool
}

func (DepositOp) Kind() OperationKind { return KindDeposit }
func (o DepositOp) Dependency() (Entry, bool) {
	return o.Withdraw, true
}
func (o DepositOp) Encode() []byte {
	b := append([]byte{}, o.Withdraw.Bytes()...)
	if o.Collect {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return b
}

// ExclusionProof is the Set export (merkle.ExportedSet, kept opaque here to
// avoid an import cycle between account and merkle's generic instantiation
// site) asserting which prior deposits are excluded from this collect.
type ExclusionProof struct {
	Root  [32]byte
	Total int
}

// CollectOp triggers the account to fold pending collected deposits; it
// carries no payload-level data beyond its tag.
type CollectOp struct{}

func (CollectOp) Kind() OperationKind         { return KindCollect }
func (CollectOp) Dependency() (Entry, bool)   { return Entry{}, false }
func (CollectOp) Encode() []byte              { return nil }

// SupportOp inserts a motion hash into the account's support set, capacity
// bounded by Settings.SupportsCapacity.
type SupportOp struct {
	Motion [32]byte
}

func (SupportOp) Kind() OperationKind         { return KindSupport }
func (o SupportOp) Dependency() (Entry, bool) { return Entry{}, false }
func (o SupportOp) Encode() []byte            { return o.Motion[:] }

// AbandonOp removes a motion hash from the account's support set.
type AbandonOp struct {
	Motion [32]byte
}

func (AbandonOp) Kind() OperationKind         { return KindAbandon }
func (o AbandonOp) Dependency() (Entry, bool) { return Entry{}, false }
func (o AbandonOp) Encode() []byte            { return o.Motion[:] }
