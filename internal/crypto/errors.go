package crypto

import "errors"

var (
	// ErrForeignComponent is returned when a shard is offered under an
	// identity that is not a member of the view the aggregator was built
	// against.
	ErrForeignComponent = errors.New("crypto: identity not a member of view")
	// ErrShardInvalid is returned when a shard fails signature
	// verification against its claimed keycard and statement.
	ErrShardInvalid = errors.New("crypto: shard invalid")
	// ErrInsufficientPower is returned by Finalize when fewer than the
	// requested threshold's worth of distinct signers contributed.
	ErrInsufficientPower = errors.New("crypto: insufficient power")
	// ErrDuplicateSigner is returned by DistinctPower when two
	// certificates share a signer.
	ErrDuplicateSigner = errors.New("crypto: duplicate signer across certificates")
)
