package centrilized_auctions

import (
	"math"

	"github.com/dedis/p2p_auctions/auctions"
	"github.com/dedis/p2p_auctions/rpc"
)

// ServiceName can be used from other packages to refer to this service.
const ServiceName = "centrilized_auctions"

// Names of the methods callers can invoke.
const (
	MethodPing          = "ping"
	MethodCreateAuction = "createAuction"
	MethodPlaceBid      = "placeBid"
	MethodCloseAuction  = "closeAuction"
)

// Ping asks for Nonce+1, to check that a service answers.
type Ping struct {
	Nonce int64
}

// PingReply returns the incremented nonce.
type PingReply struct {
	Nonce int64
}

// CreateAuction opens an auction for Item.
type CreateAuction struct {
	Item          string
	StartingPrice float64
}

// Validate implements rpc.Validator.
func (c *CreateAuction) Validate() error {
	if !(c.StartingPrice > 0) || math.IsInf(c.StartingPrice, 0) {
		return rpc.InvalidInput("starting price must be a positive number, got %v", c.StartingPrice)
	}
	return nil
}

// CreateAuctionReply holds the id chosen by the server and the new auction.
type CreateAuctionReply struct {
	AuctionID string
	Data      auctions.AuctionData
}

// PlaceBid offers BidAmount on an auction.
type PlaceBid struct {
	AuctionID string
	Bidder    string
	BidAmount float64
}

// Validate implements rpc.Validator.
func (p *PlaceBid) Validate() error {
	switch {
	case p.Bidder == "":
		return rpc.InvalidInput("bidder is empty")
	case math.IsNaN(p.BidAmount) || math.IsInf(p.BidAmount, 0):
		return rpc.InvalidInput("bid amount must be a number, got %v", p.BidAmount)
	}
	return nil
}

// PlaceBidReply tells whether the bid was accepted. A rejected bid, or a bid
// on an unknown auction, is a normal reply with Accepted false and the reason
// in Message.
type PlaceBidReply struct {
	Accepted bool
	Message  string
}

// CloseAuction ends an auction.
type CloseAuction struct {
	AuctionID string
}

// Validate implements rpc.Validator.
func (c *CloseAuction) Validate() error {
	if c.AuctionID == "" {
		return rpc.InvalidInput("auction id is empty")
	}
	return nil
}

// CloseAuctionReply announces the winner. Winner and Amount are nil when
// nobody bid.
type CloseAuctionReply struct {
	Message string
	Winner  *string
	Amount  *float64
}
