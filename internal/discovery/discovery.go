// Package discovery implements the rendezvous service SPEC_FULL.md's CLI
// surface names (`carbon rendezvous --listen <addr>`): a small address
// book replicas publish themselves into and brokers/clients read the
// current view and replica multiaddrs from. spec.md §1 keeps Discovery an
// external collaborator the core only consumes through an interface — this
// package is that collaborator's bundled default implementation, not part
// of the broker/replica protocol itself. Grounded on internal/transport's
// plain-TCP client-facing listener (the same unauthenticated carrier, since
// rendezvous traffic is glue rather than protocol).
package discovery

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"carbon/internal/crypto"
	"carbon/internal/transport"
	"carbon/internal/view"
)

// Record is one replica's published identity, keycard and dial address.
type Record struct {
	Identity crypto.Identity  `json:"identity"`
	Keycard  crypto.PublicKey `json:"keycard"`
	Addr     string           `json:"addr"`
}

// Table is the rendezvous server's current snapshot: the view a client
// should certify against plus every replica's dial address. View travels
// as its ordered member list rather than *view.View directly — view.View
// keeps its derived fields unexported, so View() round-trips it the same
// way internal/node's RPCs round-trip Merkle-backed batches.
type Table struct {
	ViewHash [32]byte        `json:"view_hash"`
	Members  []crypto.Member `json:"members"`
	Records  []Record        `json:"records"`
}

// View reconstructs the *view.View the table's members describe.
func (t Table) View() *view.View {
	return view.New(t.ViewHash, t.Members)
}

// kind discriminates a rendezvous request; kept distinct from wire.Kind
// since this traffic never touches the broker's client-facing protocol.
type kind string

const (
	kindRegister kind = "discovery.register"
	kindFetch    kind = "discovery.fetch"
	kindResult   kind = "discovery.result"
)

type envelope struct {
	Kind kind            `json:"kind"`
	Body json.RawMessage `json:"body"`
}

func wrap(k kind, v any) (envelope, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Kind: k, Body: body}, nil
}

type registerRequest struct {
	Record Record `json:"record"`
}

type fetchRequest struct{}

type resultResponse struct {
	Table Table `json:"table"`
}

// Server accumulates replica registrations into a view, deriving a stable
// hash and member ordering from whichever identities have registered so
// far — there is no separate view-generation step to wait on (that's out
// of scope; see internal/churn), so the view is simply "every replica that
// has registered, ordered by identity".
type Server struct {
	mu      sync.Mutex
	records map[crypto.Identity]Record
}

// NewServer starts an empty rendezvous table.
func NewServer() *Server {
	return &Server{records: make(map[crypto.Identity]Record)}
}

// Serve installs the server's request handler on listener, one request per
// inbound connection message until the peer disconnects.
func (s *Server) Serve(listener *transport.ClientListener) error {
	return listener.Serve(func(sess transport.Session) {
		defer sess.Close()
		for {
			var env envelope
			if err := sess.Receive(&env); err != nil {
				return
			}
			resp, err := s.dispatch(env)
			if err != nil {
				return
			}
			if err := sess.Send(resp); err != nil {
				return
			}
		}
	})
}

func (s *Server) dispatch(env envelope) (envelope, error) {
	switch env.Kind {
	case kindRegister:
		var req registerRequest
		if err := json.Unmarshal(env.Body, &req); err != nil {
			return envelope{}, err
		}
		s.register(req.Record)
		return wrap(kindResult, resultResponse{Table: s.snapshot()})
	case kindFetch:
		return wrap(kindResult, resultResponse{Table: s.snapshot()})
	default:
		return envelope{}, fmt.Errorf("discovery: unknown rpc kind %q", env.Kind)
	}
}

func (s *Server) register(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Identity] = r
}

func (s *Server) snapshot() Table {
	s.mu.Lock()
	records := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].Identity[:], records[j].Identity[:]) < 0
	})

	members := make([]crypto.Member, len(records))
	h := sha256.New()
	for i, r := range records {
		members[i] = crypto.Member{Identity: r.Identity, Keycard: r.Keycard}
		h.Write(r.Identity[:])
	}
	var hash [32]byte
	copy(hash[:], h.Sum(nil))

	return Table{ViewHash: hash, Members: members, Records: records}
}

// Client is a rendezvous client used by replicas (to register) and
// brokers/clients (to fetch the current table).
type Client struct {
	session transport.Session
}

// Dial opens a client session to a rendezvous server at addr.
func Dial(addr string) (*Client, error) {
	session, err := transport.DialClient(addr)
	if err != nil {
		return nil, err
	}
	return &Client{session: session}, nil
}

// Close ends the client's session.
func (c *Client) Close() error { return c.session.Close() }

func (c *Client) call(k kind, req any) (Table, error) {
	env, err := wrap(k, req)
	if err != nil {
		return Table{}, err
	}
	if err := c.session.Send(env); err != nil {
		return Table{}, err
	}
	var respEnv envelope
	if err := c.session.Receive(&respEnv); err != nil {
		return Table{}, err
	}
	var resp resultResponse
	if err := json.Unmarshal(respEnv.Body, &resp); err != nil {
		return Table{}, err
	}
	return resp.Table, nil
}

// Register publishes identity's keycard and dial address to the
// rendezvous server, returning the resulting table.
func (c *Client) Register(identity crypto.Identity, keycard crypto.PublicKey, addr string) (Table, error) {
	return c.call(kindRegister, registerRequest{Record: Record{Identity: identity, Keycard: keycard, Addr: addr}})
}

// Fetch returns the rendezvous server's current table.
func (c *Client) Fetch() (Table, error) {
	return c.call(kindFetch, fetchRequest{})
}
