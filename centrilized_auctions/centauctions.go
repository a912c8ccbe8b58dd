package centrilized_auctions

import (
	"context"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/rpc"
)

// Client is a structure to communicate with the auction service of one
// node.
type Client struct {
	*rpc.Client
	Service kyber.Point
}

// NewClient returns a client calling the service with public key service.
// pair is the identity of the caller.
func NewClient(service kyber.Point, pair *identity.KeyPair, resolver rpc.Resolver) *Client {
	return &Client{
		Client:  rpc.NewClient(ServiceName, pair, resolver),
		Service: service,
	}
}

// Ping returns nonce+1 if the service answers.
func (c *Client) Ping(ctx context.Context, nonce int64) (int64, error) {
	reply, err := rpc.Invoke[PingReply](ctx, c.Client, c.Service, MethodPing, &Ping{Nonce: nonce})
	if err != nil {
		return 0, err
	}
	return reply.Nonce, nil
}

// CreateAuction opens an auction and returns the id chosen by the server.
func (c *Client) CreateAuction(ctx context.Context, item string, startingPrice float64) (*CreateAuctionReply, error) {
	log.Lvl4("Creating auction for", item)
	return rpc.Invoke[CreateAuctionReply](ctx, c.Client, c.Service, MethodCreateAuction,
		&CreateAuction{Item: item, StartingPrice: startingPrice})
}

// PlaceBid offers amount on an auction. A rejected bid is not an error: it
// is a reply with Accepted false.
func (c *Client) PlaceBid(ctx context.Context, auctionID, bidder string, amount float64) (*PlaceBidReply, error) {
	return rpc.Invoke[PlaceBidReply](ctx, c.Client, c.Service, MethodPlaceBid,
		&PlaceBid{AuctionID: auctionID, Bidder: bidder, BidAmount: amount})
}

// CloseAuction ends an auction. Closing an unknown or closed auction is an
// error.
func (c *Client) CloseAuction(ctx context.Context, auctionID string) (*CloseAuctionReply, error) {
	return rpc.Invoke[CloseAuctionReply](ctx, c.Client, c.Service, MethodCloseAuction,
		&CloseAuction{AuctionID: auctionID})
}
