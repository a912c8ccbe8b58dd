// Package scenario drives a fixed list of auction calls against a service
// and reports what happened to each of them.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/centrilized_auctions"
)

// ErrUnknownItem is recorded for a step naming an item the plan never
// created.
var ErrUnknownItem = errors.New("item not created by this plan")

// Caller is the part of the auction client a scenario needs.
type Caller interface {
	CreateAuction(ctx context.Context, item string, startingPrice float64) (*centrilized_auctions.CreateAuctionReply, error)
	PlaceBid(ctx context.Context, auctionID, bidder string, amount float64) (*centrilized_auctions.PlaceBidReply, error)
	CloseAuction(ctx context.Context, auctionID string) (*centrilized_auctions.CloseAuctionReply, error)
}

// Auction is an auction to open.
type Auction struct {
	Item          string
	StartingPrice float64
}

// Bid is a bid placed on the auction of Item.
type Bid struct {
	Item   string
	Bidder string
	Amount float64
}

// Plan lists the calls of a run: auctions are created first, then the bids
// are placed and finally the auctions named in Close are closed, each in
// order.
type Plan struct {
	Auctions []Auction
	Bids     []Bid
	Close    []string
}

// Default is the classic run on two pictures. The first bid on Pic#1 equals
// the starting price and is rejected.
func Default() Plan {
	return Plan{
		Auctions: []Auction{
			{"Pic#1", 75},
			{"Pic#2", 60},
		},
		Bids: []Bid{
			{"Pic#1", "Client#2", 75},
			{"Pic#1", "Client#3", 75.5},
			{"Pic#1", "Client#2", 80},
			{"Pic#2", "Client#2", 70},
			{"Pic#2", "Client#4", 90},
		},
		Close: []string{"Pic#1", "Pic#2"},
	}
}

// Kind says which call an outcome belongs to and how it ended.
type Kind int

const (
	Created Kind = iota
	Accepted
	Rejected
	Closed
	Failed
)

// Outcome is the result of one call of a run.
type Outcome struct {
	Kind      Kind
	Item      string
	AuctionID string
	Bidder    string
	Amount    float64
	Message   string
	// Winner and WinningBid are only set on Closed outcomes with a bid.
	Winner     *string
	WinningBid *float64
	Err        error
}

// String renders the outcome as one line for the operator.
func (o Outcome) String() string {
	switch o.Kind {
	case Created:
		return fmt.Sprintf("Auction created: %s (%s at %s USDt)", o.AuctionID, o.Item, amount(o.Amount))
	case Accepted:
		return fmt.Sprintf("Bid of %s USDt placed on auction %s by %s", amount(o.Amount), o.AuctionID, o.Bidder)
	case Rejected:
		return fmt.Sprintf("Bid of %s USDt on auction %s by %s rejected: %s", amount(o.Amount), o.AuctionID, o.Bidder, o.Message)
	case Closed:
		if o.Winner == nil {
			return fmt.Sprintf("%s. %s: no winner, nobody bid", o.Message, o.Item)
		}
		return fmt.Sprintf("%s. %s winner: %s at %s USDt", o.Message, o.Item, *o.Winner, amount(*o.WinningBid))
	}
	return fmt.Sprintf("%s failed: %v", o.Item, o.Err)
}

func amount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

// Report collects the outcomes of a run in the order of the calls.
type Report struct {
	Outcomes []Outcome
	// AuctionIDs maps the items to the ids the service gave them.
	AuctionIDs map[string]string
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Kind == Failed {
		log.Warn(o.String())
	} else {
		log.Lvl2(o.String())
	}
}

// Count returns the number of outcomes of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// Print writes the report to w, one colored line per outcome.
func (r *Report) Print(w io.Writer) {
	for _, o := range r.Outcomes {
		c := color.New(color.FgGreen)
		switch o.Kind {
		case Created:
			c = color.New(color.FgCyan)
		case Rejected:
			c = color.New(color.FgYellow)
		case Closed:
			if o.Winner == nil {
				c = color.New(color.FgYellow)
			}
		case Failed:
			c = color.New(color.FgRed)
		}
		c.Fprintln(w, o.String())
	}
}

// Run executes p through c. A rejected or failed bid or close is recorded
// and the run goes on; only a failed creation stops the run, as the later
// calls refer to that auction.
func Run(ctx context.Context, c Caller, p Plan) (*Report, error) {
	r := &Report{AuctionIDs: make(map[string]string)}

	for _, a := range p.Auctions {
		reply, err := c.CreateAuction(ctx, a.Item, a.StartingPrice)
		if err != nil {
			r.add(Outcome{Kind: Failed, Item: a.Item, Amount: a.StartingPrice, Err: err})
			return r, fmt.Errorf("creating %s: %w", a.Item, err)
		}
		r.AuctionIDs[a.Item] = reply.AuctionID
		r.add(Outcome{Kind: Created, Item: a.Item, AuctionID: reply.AuctionID, Amount: a.StartingPrice})
	}

	for _, b := range p.Bids {
		o := Outcome{Item: b.Item, Bidder: b.Bidder, Amount: b.Amount}
		id, ok := r.AuctionIDs[b.Item]
		if !ok {
			o.Kind, o.Err = Failed, ErrUnknownItem
			r.add(o)
			continue
		}
		o.AuctionID = id
		reply, err := c.PlaceBid(ctx, id, b.Bidder, b.Amount)
		switch {
		case err != nil:
			o.Kind, o.Err = Failed, err
		case reply.Accepted:
			o.Kind, o.Message = Accepted, reply.Message
		default:
			o.Kind, o.Message = Rejected, reply.Message
		}
		r.add(o)
	}

	for _, item := range p.Close {
		o := Outcome{Item: item}
		id, ok := r.AuctionIDs[item]
		if !ok {
			o.Kind, o.Err = Failed, ErrUnknownItem
			r.add(o)
			continue
		}
		o.AuctionID = id
		reply, err := c.CloseAuction(ctx, id)
		if err != nil {
			o.Kind, o.Err = Failed, err
		} else {
			o.Kind, o.Message = Closed, reply.Message
			o.Winner, o.WinningBid = reply.Winner, reply.Amount
		}
		r.add(o)
	}
	return r, nil
}

// Load is a plan of n auctions on which every bidder bids rounds times.
// Every bid outbids the previous one, so all of them are accepted and the
// last bidder wins every auction.
func Load(n, bidders, rounds int) Plan {
	var p Plan
	for a := 0; a < n; a++ {
		item := fmt.Sprintf("item-%d", a)
		p.Auctions = append(p.Auctions, Auction{item, 1})
		p.Close = append(p.Close, item)
	}
	amount := 1.0
	for r := 0; r < rounds; r++ {
		for b := 0; b < bidders; b++ {
			amount++
			for a := 0; a < n; a++ {
				p.Bids = append(p.Bids, Bid{fmt.Sprintf("item-%d", a), fmt.Sprintf("bidder-%d", b), amount})
			}
		}
	}
	return p
}
