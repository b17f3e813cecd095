package database

import (
	"sync"

	"carbon/internal/account"
)

// Accounts is the replica-wide map from Id to its current Account state.
// Grounded on original_source/src/database/database.rs's states field.
type Accounts struct {
	mu       sync.Mutex
	settings account.Settings
	states   map[account.ID]account.Account
}

// NewAccounts returns an empty account store.
func NewAccounts(settings account.Settings) *Accounts {
	return &Accounts{settings: settings, states: make(map[account.ID]account.Account)}
}

// Get returns id's account, creating a fresh Correct one on first access.
func (a *Accounts) Get(id account.ID) account.Account {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.states[id]
	if !ok {
		acc = account.New(id)
		a.states[id] = acc
	}
	return acc
}

// Apply applies payload against its account, storing and returning the
// (possibly transitioned) resulting state.
func (a *Accounts) Apply(payload account.Payload, dependency account.Operation) (account.Account, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := payload.ID()
	acc, ok := a.states[id]
	if !ok {
		acc = account.New(id)
	}
	next, correct := acc.Apply(payload, dependency, a.settings)
	a.states[id] = next
	return next, correct
}

// Database bundles one replica's full local state: account balances, the
// signup allocation book, and the prepare/commit stage ledgers. Grounded on
// original_source/src/database/database.rs, which aggregates the same four
// concerns (there folded into Signup/Families/states) behind a single
// struct a replica's request handlers borrow from.
type Database struct {
	Accounts *Accounts
	Signup   *SignupBook
	Prepare  *PrepareLedger
	Commit   *CommitLedger
}

// New constructs an empty replica database.
func New(settings account.Settings) *Database {
	return &Database{
		Accounts: NewAccounts(settings),
		Signup:   NewSignupBook(),
		Prepare:  NewPrepareLedger(),
		Commit:   NewCommitLedger(),
	}
}
