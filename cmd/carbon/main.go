package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"carbon/internal/account"
	"carbon/internal/commit"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/discovery"
	"carbon/internal/node"
	"carbon/internal/ping"
	"carbon/internal/prepare"
	"carbon/internal/signup"
	"carbon/internal/transport"
	"carbon/pkg/config"
	"carbon/pkg/logging"
)

func main() {
	root := &cobra.Command{Use: "carbon"}
	root.AddCommand(replicaCmd())
	root.AddCommand(brokerCmd())
	root.AddCommand(clientCmd())
	root.AddCommand(rendezvousCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// withSignals runs fn(ctx) until the process is asked to stop, canceling
// ctx on SIGINT/SIGTERM. A clean stop exits 0; fn returning an error during
// startup exits 1.
func withSignals(fn func(ctx context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fn(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func replicaCmd() *cobra.Command {
	var discoveryAddr, parameters string
	cmd := &cobra.Command{
		Use:   "replica",
		Short: "run a carbon replica process",
		RunE: func(cmd *cobra.Command, args []string) error {
			withSignals(func(ctx context.Context) error { return runReplica(ctx, discoveryAddr, parameters) })
			return nil
		},
	}
	cmd.Flags().StringVar(&discoveryAddr, "discovery", "", "rendezvous server address")
	cmd.Flags().StringVar(&parameters, "parameters", "", "YAML parameters file")
	cmd.MarkFlagRequired("discovery")
	return cmd
}

func brokerCmd() *cobra.Command {
	var rendezvousAddr, discoveryAddr, parameters string
	var full bool
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "run a carbon broker process",
		RunE: func(cmd *cobra.Command, args []string) error {
			withSignals(func(ctx context.Context) error {
				return runBroker(ctx, rendezvousAddr, discoveryAddr, parameters, full)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&rendezvousAddr, "rendezvous", "", "client-facing listen address")
	cmd.Flags().StringVar(&discoveryAddr, "discovery", "", "rendezvous server address")
	cmd.Flags().StringVar(&parameters, "parameters", "", "YAML parameters file")
	cmd.Flags().BoolVar(&full, "full", false, "request full-replica-set broadcast (only logged: the broker always collects from the fastest plurality first)")
	cmd.MarkFlagRequired("rendezvous")
	cmd.MarkFlagRequired("discovery")
	return cmd
}

func clientCmd() *cobra.Command {
	var rendezvousAddr string
	var rate int
	cmd := &cobra.Command{
		Use:   "client",
		Short: "drive synthetic load against a carbon broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			withSignals(func(ctx context.Context) error { return runClient(ctx, rendezvousAddr, rate) })
			return nil
		},
	}
	cmd.Flags().StringVar(&rendezvousAddr, "rendezvous", "", "broker address to dial")
	cmd.Flags().IntVar(&rate, "rate", 1, "operations submitted per second")
	cmd.MarkFlagRequired("rendezvous")
	return cmd
}

func rendezvousCmd() *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "rendezvous",
		Short: "run the discovery/address-book server",
		RunE: func(cmd *cobra.Command, args []string) error {
			withSignals(func(ctx context.Context) error { return runRendezvous(ctx, listenAddr) })
			return nil
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on")
	cmd.MarkFlagRequired("listen")
	return cmd
}

// runReplica starts a fresh replica identity, registers its address with
// the rendezvous server at discoveryAddr, builds its view from the
// membership table that registration returns, and serves broker RPCs
// until ctx is canceled.
func runReplica(ctx context.Context, discoveryAddr, parameters string) error {
	log := logging.New("replica")
	cfg, err := config.Load(parameters)
	if err != nil {
		return err
	}

	sk := crypto.GeneratePrivateKey()
	identity := crypto.IdentityOf(sk.Public())

	listenAddr := cfg.Network.ListenAddr
	if listenAddr == "" {
		listenAddr = "/ip4/0.0.0.0/tcp/0"
	}
	host, err := transport.NewHost(listenAddr, log)
	if err != nil {
		return err
	}
	defer host.Close()

	rendClient, err := discovery.Dial(discoveryAddr)
	if err != nil {
		return err
	}
	defer rendClient.Close()

	table, err := rendClient.Register(identity, sk.Public(), host.Addrs()[0])
	if err != nil {
		return err
	}
	v := table.View()

	db := database.New(account.Settings{SupportsCapacity: cfg.Protocol.SupportsCapacity})
	signupSettings := signup.Settings{WorkDifficulty: cfg.Protocol.WorkDifficulty, PriorityAttempts: cfg.Protocol.PriorityAttempts}

	replica := node.NewReplica(v, sk, db, signupSettings, log)
	replica.Serve(host)

	log.WithField("identity", fmt.Sprintf("%x", identity)).Info("replica serving")
	<-ctx.Done()
	return nil
}

// runBroker fetches the replica address table from discoveryAddr, opens a
// Dialer to it, and serves clients on rendezvousAddr until ctx is
// canceled.
func runBroker(ctx context.Context, rendezvousAddr, discoveryAddr, parameters string, full bool) error {
	log := logging.New("broker")
	cfg, err := config.Load(parameters)
	if err != nil {
		return err
	}
	if full {
		log.Info("full-broadcast requested: broker will still use the fastest-plurality collector until that knob is wired through internal/broker")
	}

	rendClient, err := discovery.Dial(discoveryAddr)
	if err != nil {
		return err
	}
	defer rendClient.Close()

	table, err := rendClient.Fetch()
	if err != nil {
		return err
	}
	v := table.View()
	if v.N() == 0 {
		return fmt.Errorf("broker: discovery table is empty, no replicas registered yet")
	}

	addrs := make(map[crypto.Identity]string, len(table.Records))
	for _, r := range table.Records {
		addrs[r.Identity] = r.Addr
	}

	host, err := transport.NewHost("/ip4/0.0.0.0/tcp/0", log)
	if err != nil {
		return err
	}
	defer host.Close()

	dialer := node.NewDialer(host, addrs, log)
	board := ping.New(v.Members())

	signupSettings := signup.Settings{WorkDifficulty: cfg.Protocol.WorkDifficulty, PriorityAttempts: cfg.Protocol.PriorityAttempts}
	prepareSettings := prepare.Settings{SpongeCapacity: cfg.Protocol.SpongeCapacity, SpongeTimeout: cfg.Protocol.SpongeTimeout}
	commitSettings := commit.Settings{SpongeCapacity: cfg.Protocol.SpongeCapacity, SpongeTimeout: cfg.Protocol.SpongeTimeout}

	b := node.NewBroker(v, board, dialer, signupSettings, prepareSettings, commitSettings, log)
	prober := node.NewProber(v, board, dialer, cfg.Protocol.PingInterval, log)

	go prober.Run(ctx)
	go func() {
		if err := b.Run(ctx); err != nil {
			log.WithError(err).Warn("broker pipelines stopped")
		}
	}()

	listener, err := transport.Listen(rendezvousAddr, log)
	if err != nil {
		return err
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.WithField("addr", rendezvousAddr).Info("broker serving clients")
	if err := b.ServeClients(listener); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runClient dials the broker at rendezvousAddr and submits MintOps at rate
// operations per second until ctx is canceled.
func runClient(ctx context.Context, rendezvousAddr string, rate int) error {
	log := logging.New("client")

	c, err := node.Dial(rendezvousAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	if rate < 1 {
		rate = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	var height uint64
	id := account.ID(1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			height++
			op := account.MintOp{Amount: 1}
			extract, err := c.Prepare(id, height, op)
			if err != nil {
				log.WithError(err).Warn("prepare failed")
				continue
			}
			if _, err := c.Commit(id, height, op, extract); err != nil {
				log.WithError(err).Warn("commit failed")
			}
		}
	}
}

// runRendezvous starts the discovery/address-book server used as the
// bootstrap collaborator spec.md §1 keeps external to the core.
func runRendezvous(ctx context.Context, listenAddr string) error {
	log := logging.New("rendezvous")
	server := discovery.NewServer()

	listener, err := transport.Listen(listenAddr, log)
	if err != nil {
		return err
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.WithField("addr", listenAddr).Info("rendezvous serving")
	if err := server.Serve(listener); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
