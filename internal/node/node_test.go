package node

import (
	"context"
	"testing"
	"time"

	"carbon/internal/account"
	"carbon/internal/commit"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/ping"
	"carbon/internal/prepare"
	"carbon/internal/signup"
	"carbon/internal/transport"
	"carbon/internal/view"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func newTestView(n int) (*view.View, []crypto.PrivateKey) {
	members := make([]crypto.Member, n)
	sks := make([]crypto.PrivateKey, n)
	for i := 0; i < n; i++ {
		sk := crypto.GeneratePrivateKey()
		sks[i] = sk
		pk := sk.Public()
		members[i] = crypto.Member{Identity: crypto.IdentityOf(pk), Keycard: pk}
	}
	return view.New([32]byte{9}, members), sks
}

// cluster is a full in-process replica set, each on its own libp2p host
// listening on loopback, plus a broker dialing all of them.
type cluster struct {
	view     *view.View
	replicas []*Replica
	hosts    []*transport.Host
	broker   *Broker

	cancel context.CancelFunc
}

func newCluster(t *testing.T, n int) *cluster {
	t.Helper()

	v, sks := newTestView(n)
	board := ping.New(v.Members())

	c := &cluster{view: v}
	addrs := make(map[crypto.Identity]string, n)

	for i, m := range v.Members() {
		host, err := transport.NewHost("/ip4/127.0.0.1/tcp/0", testLog())
		if err != nil {
			t.Fatalf("replica %d host: %v", i, err)
		}
		db := database.New(account.DefaultSettings())
		replica := NewReplica(v, sks[i], db, signup.DefaultSettings(), testLog())
		replica.Serve(host)

		c.hosts = append(c.hosts, host)
		c.replicas = append(c.replicas, replica)
		addrs[m.Identity] = host.Addrs()[0]
	}

	brokerHost, err := transport.NewHost("/ip4/127.0.0.1/tcp/0", testLog())
	if err != nil {
		t.Fatalf("broker host: %v", err)
	}
	c.hosts = append(c.hosts, brokerHost)
	dialer := NewDialer(brokerHost, addrs, testLog())

	c.broker = NewBroker(v, board, dialer, signup.DefaultSettings(),
		prepare.Settings{SpongeCapacity: 8, SpongeTimeout: 50 * time.Millisecond},
		commit.Settings{SpongeCapacity: 8, SpongeTimeout: 50 * time.Millisecond},
		testLog())

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.broker.Run(ctx)

	t.Cleanup(func() {
		cancel()
		for _, h := range c.hosts {
			h.Close()
		}
	})
	return c
}

func TestBrokerPrepareAndCommitOverNetwork(t *testing.T) {
	c := newCluster(t, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := account.ID(1)
	op := account.MintOp{Amount: 100}

	extract, err := c.broker.Prepare(ctx, id, 1, op)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if extract.Prepare.ID != id {
		t.Fatalf("extract id = %v, want %v", extract.Prepare.ID, id)
	}

	completion, err := c.broker.Commit(ctx, id, 1, op)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if completion.Excepted() {
		t.Fatalf("commit unexpectedly excepted id %v", id)
	}
}

func TestBrokerSignupOverNetwork(t *testing.T) {
	c := newCluster(t, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userSK := crypto.GeneratePrivateKey()
	assigner := c.view.Members()[0].Identity
	request := signup.NewIdRequest(userSK, c.view, assigner, signup.DefaultSettings())

	assignment, err := c.broker.Signup(ctx, request)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := assignment.Validate(c.view); err != nil {
		t.Fatalf("assignment invalid: %v", err)
	}
	if assignment.Keycard.Bytes() == nil {
		t.Fatalf("assignment keycard empty")
	}
}

func TestClientRoundTripsThroughBroker(t *testing.T) {
	c := newCluster(t, 4)

	listener, err := transport.Listen("127.0.0.1:0", testLog())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go c.broker.ServeClients(listener)

	client, err := Dial(listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	id := account.ID(2)
	op := account.MintOp{Amount: 7}

	extract, err := client.Prepare(id, 1, op)
	if err != nil {
		t.Fatalf("client prepare: %v", err)
	}

	resp, err := client.Commit(id, 1, op, extract)
	if err != nil {
		t.Fatalf("client commit: %v", err)
	}
	if resp.Excepted {
		t.Fatalf("client commit unexpectedly excepted")
	}
}

func TestProberFillsBoard(t *testing.T) {
	v, sks := newTestView(3)
	board := ping.New(v.Members())

	var hosts []*transport.Host
	addrs := make(map[crypto.Identity]string, len(v.Members()))
	for i, m := range v.Members() {
		host, err := transport.NewHost("/ip4/127.0.0.1/tcp/0", testLog())
		if err != nil {
			t.Fatalf("host: %v", err)
		}
		db := database.New(account.DefaultSettings())
		replica := NewReplica(v, sks[i], db, signup.DefaultSettings(), testLog())
		replica.Serve(host)
		hosts = append(hosts, host)
		addrs[m.Identity] = host.Addrs()[0]
	}
	defer func() {
		for _, h := range hosts {
			h.Close()
		}
	}()

	proberHost, err := transport.NewHost("/ip4/127.0.0.1/tcp/0", testLog())
	if err != nil {
		t.Fatalf("prober host: %v", err)
	}
	defer proberHost.Close()
	dialer := NewDialer(proberHost, addrs, testLog())

	prober := NewProber(v, board, dialer, 20*time.Millisecond, testLog())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	prober.Run(ctx)

	for _, m := range v.Members() {
		ranked := board.Rankings()
		found := false
		for _, id := range ranked {
			if id == m.Identity {
				found = true
			}
		}
		if !found {
			t.Fatalf("member %x missing from rankings", m.Identity)
		}
	}
}
