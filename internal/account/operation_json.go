package account

import (
	"encoding/json"
	"fmt"
)

// operationEnvelope is the wire shape for an Operation: its kind tag plus
// the concrete variant's JSON-encoded fields, so internal/wire can carry an
// Operation without internal/account exposing a reflection-based codec to
// every caller.
type operationEnvelope struct {
	Kind OperationKind   `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalOperation encodes op as a self-describing JSON envelope.
func MarshalOperation(op Operation) ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("account: marshal operation: %w", err)
	}
	return json.Marshal(operationEnvelope{Kind: op.Kind(), Data: data})
}

// UnmarshalOperation decodes an envelope produced by MarshalOperation back
// into its concrete Operation variant.
func UnmarshalOperation(b []byte) (Operation, error) {
	var env operationEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("account: unmarshal operation envelope: %w", err)
	}

	switch env.Kind {
	case KindMint:
		var o MintOp
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, err
		}
		return o, nil
	case KindWithdraw:
		var o WithdrawOp
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, err
		}
		return o, nil
	case KindDeposit:
		var o DepositOp
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, err
		}
		return o, nil
	case KindCollect:
		var o CollectOp
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, err
		}
		return o, nil
	case KindSupport:
		var o SupportOp
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, err
		}
		return o, nil
	case KindAbandon:
		var o AbandonOp
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("account: unknown operation kind %d", env.Kind)
	}
}
