package centrilized_auctions

import (
	"errors"
	"sync"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/auctions"
	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/keystore"
	"github.com/dedis/p2p_auctions/rpc"
)

// Used for tests
var centauctionID onet.ServiceID

func init() {
	var err error
	centauctionID, err = onet.RegisterNewService(ServiceName, newService)
	log.ErrFatal(err)
}

// Service answers the auction methods of one node. It owns the auctions of
// that node.
type Service struct {
	*onet.ServiceProcessor
	rpc      *rpc.Server
	registry *auctions.Registry

	// store holds the service seed when no identity is set from outside.
	store      keystore.Store
	identityMu sync.Mutex
}

// Call is the only onet handler of the service: it opens the request and
// dispatches it to the method it names.
func (s *Service) Call(req *rpc.CallRequest) (*rpc.CallReply, error) {
	if _, err := s.keyPair(); err != nil {
		return nil, err
	}
	return s.rpc.Serve(req)
}

// keyPair returns the key pair of the service. Unless SetIdentity was
// called first, the pair comes from the seed in the service's database,
// which is created on first use.
func (s *Service) keyPair() (*identity.KeyPair, error) {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	if pair := s.rpc.KeyPair(); pair != nil {
		return pair, nil
	}
	seeds, err := identity.Provision(s.store, identity.ServiceSeed)
	if err != nil {
		return nil, err
	}
	pair, err := seeds.Pair(identity.ServiceSeed)
	if err != nil {
		return nil, err
	}
	s.rpc.SetKeyPair(pair)
	log.Lvl3("Auction service on", s.ServerIdentity(), "has address", pair.Address())
	return pair, nil
}

// PublicKey is the key callers address the service with. It is nil if the
// service has no identity and none can be provisioned.
func (s *Service) PublicKey() kyber.Point {
	pair, err := s.keyPair()
	if err != nil {
		log.Error("Auction service has no identity:", err)
		return nil
	}
	return pair.Public
}

// SetIdentity replaces the key pair of the service. It must be called before
// the server accepts calls; the seed in the service's database is then
// never created.
func (s *Service) SetIdentity(pair *identity.KeyPair) {
	s.identityMu.Lock()
	s.rpc.SetKeyPair(pair)
	s.identityMu.Unlock()
	log.Lvl2("Service identity is now", pair.Address())
}

// Registry returns the auctions of the service.
func (s *Service) Registry() *auctions.Registry {
	return s.registry
}

// Methods lists the methods the service answers.
func (s *Service) Methods() []string {
	return s.rpc.Methods()
}

// NewProtocol is called on the nodes of a directory tree started by
// another node's Discover.
func (s *Service) NewProtocol(tn *onet.TreeNodeInstance, conf *onet.GenericConfig) (onet.ProtocolInstance, error) {
	if tn.ProtocolName() != ProtocolName {
		return nil, nil
	}
	pi, err := NewProtocol(tn)
	if err != nil {
		return nil, err
	}
	pi.(*DirectoryProtocol).Service = s.PublicKey()
	return pi, nil
}

// Discover asks every node of roster for the address of its auction service.
func (s *Service) Discover(roster *onet.Roster, timeout time.Duration) ([]Entry, error) {
	tree := roster.GenerateNaryTreeWithRoot(2, s.ServerIdentity())
	if tree == nil {
		return nil, errors.New("this node is not in the roster")
	}
	pi, err := s.CreateProtocol(ProtocolName, tree)
	if err != nil {
		return nil, err
	}
	proto := pi.(*DirectoryProtocol)
	proto.Service = s.PublicKey()
	if err := proto.Start(); err != nil {
		return nil, err
	}
	select {
	case entries := <-proto.Entries:
		return entries, nil
	case <-time.After(timeout):
		return nil, errors.New("timeout while collecting the directory")
	}
}

func (s *Service) ping(req *Ping) (*PingReply, error) {
	return &PingReply{Nonce: req.Nonce + 1}, nil
}

func (s *Service) createAuction(req *CreateAuction) (*CreateAuctionReply, error) {
	data, err := s.registry.Create(req.Item, req.StartingPrice)
	if err != nil {
		if errors.Is(err, auctions.ErrInvalidInput) {
			return nil, rpc.InvalidInput("%v", err)
		}
		return nil, err
	}
	return &CreateAuctionReply{AuctionID: data.ID, Data: data}, nil
}

func (s *Service) placeBid(req *PlaceBid) (*PlaceBidReply, error) {
	err := s.registry.PlaceBid(req.AuctionID, req.Bidder, req.BidAmount)
	switch {
	case err == nil:
		return &PlaceBidReply{Accepted: true, Message: "bid accepted"}, nil
	case auctions.IsRejection(err), errors.Is(err, auctions.ErrAuctionNotFound):
		return &PlaceBidReply{Message: err.Error()}, nil
	case errors.Is(err, auctions.ErrInvalidInput):
		return nil, rpc.InvalidInput("%v", err)
	}
	return nil, err
}

func (s *Service) closeAuction(req *CloseAuction) (*CloseAuctionReply, error) {
	res, err := s.registry.Close(req.AuctionID)
	if err != nil {
		return nil, err
	}
	return &CloseAuctionReply{
		Message: "Auction closed",
		Winner:  res.Winner,
		Amount:  res.Amount,
	}, nil
}

func (s *Service) registerMethods() error {
	methods := map[string]rpc.Handler{
		MethodPing:          rpc.Typed(s.ping),
		MethodCreateAuction: rpc.Typed(s.createAuction),
		MethodPlaceBid:      rpc.Typed(s.placeBid),
		MethodCloseAuction:  rpc.Typed(s.closeAuction),
	}
	for name, h := range methods {
		if err := s.rpc.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

// newService receives the context that holds information about the node it's
// running on. The service seed is kept in the database of the context, so a
// node restarting on the same database keeps its service address.
func newService(c *onet.Context) (onet.Service, error) {
	store, err := keystore.FromContext(c)
	if err != nil {
		return nil, err
	}
	s := &Service{
		ServiceProcessor: onet.NewServiceProcessor(c),
		rpc:              rpc.NewServer(nil),
		registry:         auctions.NewRegistry(),
		store:            store,
	}
	if err := s.registerMethods(); err != nil {
		return nil, err
	}
	if err := s.RegisterHandlers(s.Call); err != nil {
		return nil, err
	}
	return s, nil
}
