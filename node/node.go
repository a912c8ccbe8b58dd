// Package node starts an auction server: it provisions the identity of the
// node, binds the transport, publishes the descriptor and serves the status
// pages.
package node

import (
	"errors"
	"fmt"
	"net"
	"os"

	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"

	"github.com/dedis/p2p_auctions/centrilized_auctions"
	"github.com/dedis/p2p_auctions/config"
	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/keystore"
	"github.com/dedis/p2p_auctions/rpc"
	"github.com/dedis/p2p_auctions/status"
)

// ErrNoService is returned if the onet server does not run the auction
// service.
var ErrNoService = errors.New("auction service not running")

// ErrBind is returned when the address of the node cannot be listened on.
var ErrBind = errors.New("cannot bind transport")

// Node is a running auction server.
type Node struct {
	Server     *onet.Server
	Service    *centrilized_auctions.Service
	Descriptor *rpc.Descriptor
	store      *keystore.BoltStore
	status     *status.Server
}

// Start provisions both seeds of the node and only then binds the
// transport. A node restarted on the same data directory keeps its
// addresses. Start returns once the node serves calls.
func Start(cfg *config.Server) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrProvisioning, err)
	}
	store, err := keystore.Open(cfg.SeedPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrProvisioning, err)
	}
	n := &Node{store: store}
	if err := n.start(cfg); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (n *Node) start(cfg *config.Server) error {
	seeds, err := identity.Provision(n.store, identity.TransportSeed, identity.ServiceSeed)
	if err != nil {
		return err
	}
	transport, err := seeds.Pair(identity.TransportSeed)
	if err != nil {
		return err
	}
	service, err := seeds.Pair(identity.ServiceSeed)
	if err != nil {
		return err
	}

	si := network.NewServerIdentity(transport.Public, network.Address(cfg.Address))
	si.SetPrivate(transport.Private)
	si.Description = cfg.Description
	si.URL = cfg.URL

	// onet exits the process when it cannot listen, so check first.
	if err := checkListen(cfg); err != nil {
		return err
	}

	// The databases of the onet services go next to the seeds.
	if err := os.Setenv("CONODE_SERVICE_PATH", cfg.DataDir); err != nil {
		return err
	}
	n.Server = onet.NewServerTCPWithListenAddr(si, identity.Suite, cfg.ListenAddress)
	svc, ok := n.Server.Service(centrilized_auctions.ServiceName).(*centrilized_auctions.Service)
	if !ok {
		return ErrNoService
	}
	svc.SetIdentity(service)
	n.Service = svc
	n.Server.StartInBackground()

	n.Descriptor = &rpc.Descriptor{
		Service:     service.Address(),
		Transport:   transport.Address(),
		Address:     si.Address,
		URL:         si.URL,
		Description: si.Description,
	}
	if err := rpc.WriteDescriptor(cfg.DescriptorPath(), n.Descriptor); err != nil {
		return fmt.Errorf("writing descriptor: %w", err)
	}

	if cfg.StatusAddress != "" {
		n.status, err = status.Serve(cfg.StatusAddress, status.NewHandler(n.Descriptor, svc))
		if err != nil {
			return fmt.Errorf("starting status: %w", err)
		}
	}
	log.Lvl1("Auction service listening on", si.Address, "with public key", service.Address())
	return nil
}

// checkListen fails if the transport address or the websocket next to it
// is already taken.
func checkListen(cfg *config.Server) error {
	addr := cfg.ListenAddress
	if addr == "" {
		addr = network.Address(cfg.Address).NetworkAddress()
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}
	p, err := net.LookupPort("tcp", port)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}
	for _, a := range []string{addr, net.JoinHostPort(host, fmt.Sprint(p+1))} {
		l, err := net.Listen("tcp", a)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBind, err)
		}
		l.Close()
	}
	return nil
}

// Address is the public address callers use to reach the service.
func (n *Node) Address() string {
	return n.Descriptor.Service
}

// Close stops the node. The seeds stay in the data directory.
func (n *Node) Close() error {
	var errs []error
	if n.status != nil {
		errs = append(errs, n.status.Close())
	}
	if n.Server != nil {
		errs = append(errs, n.Server.Close())
	}
	errs = append(errs, n.store.Close())
	return errors.Join(errs...)
}
