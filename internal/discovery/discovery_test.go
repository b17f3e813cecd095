package discovery

import (
	"testing"

	"carbon/internal/crypto"
	"carbon/internal/transport"
	"carbon/pkg/logging"
)

func TestServerRegisterAndFetch(t *testing.T) {
	server := NewServer()

	listener, err := transport.Listen("127.0.0.1:0", logging.Discard())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go server.Serve(listener)

	client, err := Dial(listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	sk := crypto.GeneratePrivateKey()
	pk := sk.Public()
	identity := crypto.IdentityOf(pk)

	table, err := client.Register(identity, pk, "/ip4/127.0.0.1/tcp/4001/p2p/abc")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(table.Records) != 1 || table.Records[0].Identity != identity {
		t.Fatalf("unexpected table after register: %+v", table)
	}
	if table.View().N() != 1 {
		t.Fatalf("expected a single-member view, got %d", table.View().N())
	}

	fetched, err := client.Fetch()
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(fetched.Records) != 1 {
		t.Fatalf("fetch after register: expected 1 record, got %d", len(fetched.Records))
	}
}
