package auctions

// PROTOSTART
// package auctions;
//
// option java_package = "ch.epfl.dedis.auctions.proto";
// option java_outer_classname = "AuctionProto";

// State is the lifecycle of an auction: open, then closed for good.
type State string

const (
	OPEN   State = "open"
	CLOSED State = "closed"
)

// AuctionData is a snapshot of an auction.
type AuctionData struct {
	ID            string  `json:"id"`
	Item          string  `json:"item"`
	StartingPrice float64 `json:"startingPrice"`
	State         State   `json:"state"`
	// HighestBid and HighestBidder are nil until a bid is accepted.
	HighestBid    *float64 `json:"highestBid"`
	HighestBidder *string  `json:"highestBidder"`
	// Bids holds the accepted bids, in the order they were accepted.
	Bids []BidData `json:"bids"`
}

// BidData is one accepted bid.
type BidData struct {
	Bidder string  `json:"bidder"`
	Amount float64 `json:"amount"`
}

// Result is what closing an auction announces. Winner and Amount are nil
// when nobody bid.
type Result struct {
	Item   string
	Winner *string
	Amount *float64
}
