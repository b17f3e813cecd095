package node

import (
	"errors"
	"fmt"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/signup"
	"carbon/internal/transport"
	"carbon/internal/view"
	"carbon/internal/wire"
)

// Client is a thin synchronous wrapper around a single broker session: one
// request in flight at a time, matching transport.ClientListener's
// one-envelope-at-a-time dispatch loop. Used by the "carbon client"
// subcommand and by end-to-end tests.
type Client struct {
	session transport.Session
}

// Dial opens a client session to a broker listening at addr.
func Dial(addr string) (*Client, error) {
	session, err := transport.DialClient(addr)
	if err != nil {
		return nil, err
	}
	return &Client{session: session}, nil
}

// Close ends the client's session.
func (c *Client) Close() error { return c.session.Close() }

func (c *Client) call(kind wire.Kind, req any, wantKind wire.Kind, resp any) error {
	env, err := wire.Wrap(kind, req)
	if err != nil {
		return err
	}
	if err := c.session.Send(env); err != nil {
		return err
	}

	var respEnv wire.Envelope
	if err := c.session.Receive(&respEnv); err != nil {
		return err
	}
	if respEnv.Kind != wantKind {
		return fmt.Errorf("node: broker returned unexpected rpc kind %q", respEnv.Kind)
	}
	return respEnv.Unwrap(resp)
}

// Signup requests a fresh account Id, routed through assigner and
// certified by v.
func (c *Client) Signup(sk crypto.PrivateKey, v *view.View, assigner crypto.Identity, settings signup.Settings) (signup.IdAssignment, error) {
	request := signup.NewIdRequest(sk, v, assigner, settings)

	var resp wire.SignupResponse
	if err := c.call(wire.KindSignupRequest, wire.SignupRequest{Request: request}, wire.KindSignupResponse, &resp); err != nil {
		return signup.IdAssignment{}, err
	}
	if resp.Error != "" {
		return signup.IdAssignment{}, errors.New(resp.Error)
	}
	return *resp.Assignment, nil
}

// Prepare submits op for (id, height) and returns its certified extract.
func (c *Client) Prepare(id account.ID, height uint64, op account.Operation) (account.Extract, error) {
	req, err := wire.NewPrepareRequest(id, height, op)
	if err != nil {
		return account.Extract{}, err
	}

	var resp wire.PrepareResponse
	if err := c.call(wire.KindPrepareRequest, req, wire.KindPrepareResponse, &resp); err != nil {
		return account.Extract{}, err
	}
	if resp.Error != "" {
		return account.Extract{}, errors.New(resp.Error)
	}
	return *resp.Extract, nil
}

// Commit submits a prepared op for (id, height), attaching extract as
// evidence of the prior prepare round, and returns the broker's completion
// response.
func (c *Client) Commit(id account.ID, height uint64, op account.Operation, extract account.Extract) (wire.CommitResponse, error) {
	req, err := wire.NewCommitRequest(id, height, op, extract)
	if err != nil {
		return wire.CommitResponse{}, err
	}

	var resp wire.CommitResponse
	if err := c.call(wire.KindCommitRequest, req, wire.KindCommitResponse, &resp); err != nil {
		return wire.CommitResponse{}, err
	}
	if resp.Error != "" {
		return wire.CommitResponse{}, errors.New(resp.Error)
	}
	return resp, nil
}
