package crypto

// BLS12-381 signing, grounded on the teacher's AlgoBLS path in
// core/security.go: herumi's binding for Sign/Verify/aggregate, with the
// same additive aggregation (Sign.Add) the teacher uses in
// AggregateBLSSigs. Unlike the teacher's helper, every signature here is
// produced over header-prefixed bytes (see SignBytes) for domain
// separation between statement kinds.

import (
	"encoding/json"
	"errors"
	"fmt"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

func init() {
	if err := bls.Init(bls.BLS12_381); err != nil {
		panic(fmt.Errorf("bls init: %w", err))
	}
	if err := bls.SetETHmode(bls.EthModeDraft07); err != nil {
		panic(fmt.Errorf("bls eth mode: %w", err))
	}
}

// PrivateKey is a replica's or client's BLS signing key.
type PrivateKey struct{ sk bls.SecretKey }

// PublicKey is the corresponding keycard, as carried in a View's member list.
type PublicKey struct{ pk bls.PublicKey }

// Shard is one identity's signature contribution toward an aggregate.
type Shard []byte

// AggregateSignature is a BLS aggregate over some set of shards.
type AggregateSignature []byte

// GeneratePrivateKey creates a fresh signing key (test/bootstrap helper).
func GeneratePrivateKey() PrivateKey {
	var sk bls.SecretKey
	sk.SetByCSPRNG()
	return PrivateKey{sk: sk}
}

// Public derives the keycard for this signing key.
func (k PrivateKey) Public() PublicKey {
	pk := k.sk.GetPublicKey()
	return PublicKey{pk: *pk}
}

// Sign produces a shard over a statement's header-prefixed bytes.
func (k PrivateKey) Sign(stmt Statement) Shard {
	sig := k.sk.SignByte(SignBytes(stmt))
	return Shard(sig.Serialize())
}

// Verify checks a shard against a statement under this keycard.
func (pk PublicKey) Verify(stmt Statement, shard Shard) error {
	var sig bls.Sign
	if err := sig.Deserialize(shard); err != nil {
		return fmt.Errorf("%w: %v", ErrShardInvalid, err)
	}
	if !sig.VerifyByte(&pk.pk, SignBytes(stmt)) {
		return ErrShardInvalid
	}
	return nil
}

// Bytes returns the compressed serialization of the keycard.
func (pk PublicKey) Bytes() []byte { return pk.pk.Serialize() }

// ParsePublicKey deserializes a compressed keycard.
func ParsePublicKey(b []byte) (PublicKey, error) {
	var pk bls.PublicKey
	if err := pk.Deserialize(b); err != nil {
		return PublicKey{}, err
	}
	return PublicKey{pk: pk}, nil
}

// MarshalJSON encodes the keycard's compressed bytes, since bls.PublicKey
// carries no exported fields for encoding/json to walk.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.Bytes())
}

// UnmarshalJSON reverses MarshalJSON.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(raw)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Aggregate merges shards additively, exactly as the teacher's
// AggregateBLSSigs does, except every shard here is already
// domain-separated by the caller's statement header.
func Aggregate(shards []Shard) (AggregateSignature, error) {
	if len(shards) == 0 {
		return nil, errors.New("no shards to aggregate")
	}
	var agg bls.Sign
	for i, raw := range shards {
		var s bls.Sign
		if err := s.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		if i == 0 {
			agg = s
		} else {
			agg.Add(&s)
		}
	}
	return AggregateSignature(agg.Serialize()), nil
}

// VerifyAggregate checks an aggregate signature against a statement for the
// set of keycards that contributed to it (order-insensitive: BLS public key
// aggregation is additive in the group, same as signature aggregation).
func VerifyAggregate(agg AggregateSignature, keycards []PublicKey, stmt Statement) error {
	if len(keycards) == 0 {
		return errors.New("no keycards")
	}
	pubAgg := keycards[0].pk
	for _, k := range keycards[1:] {
		pubAgg.Add(&k.pk)
	}
	var sig bls.Sign
	if err := sig.Deserialize(agg); err != nil {
		return fmt.Errorf("%w: %v", ErrShardInvalid, err)
	}
	if !sig.VerifyByte(&pubAgg, SignBytes(stmt)) {
		return ErrShardInvalid
	}
	return nil
}
