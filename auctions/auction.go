// Package auctions holds live auctions in memory and decides which bids are
// accepted.
//
// The following operations are available:
//   - Create: opens an auction for an item at a starting price
//   - PlaceBid: accepts a bid if it beats the current price
//   - Close: ends an auction and announces the winner
package auctions

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.dedis.ch/onet/v3/log"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction already closed")
	// ErrNotOpen and ErrBidTooLow are the reasons a bid is rejected.
	ErrNotOpen   = errors.New("auction not open")
	ErrBidTooLow = errors.New("bid too low")
)

// IsRejection reports whether err is a bid rejected by the auction rules, as
// opposed to a malformed bid or an unknown auction.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotOpen) || errors.Is(err, ErrBidTooLow)
}

type auction struct {
	sync.Mutex
	data AuctionData
}

// Registry holds the auctions of one server. Calls on different auctions run
// in parallel; calls on the same auction are serialized.
type Registry struct {
	mu       sync.RWMutex
	auctions map[string]*auction
	newID    func() string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		auctions: make(map[string]*auction),
		newID:    uuid.NewString,
	}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// Create opens a new auction and returns its snapshot.
func (r *Registry) Create(item string, startingPrice float64) (AuctionData, error) {
	if !validPrice(startingPrice) {
		return AuctionData{}, fmt.Errorf("%w: starting price must be positive, got %v",
			ErrInvalidInput, startingPrice)
	}
	a := &auction{data: AuctionData{
		Item:          item,
		StartingPrice: startingPrice,
		State:         OPEN,
	}}

	r.mu.Lock()
	id := r.newID()
	for _, exists := r.auctions[id]; exists; _, exists = r.auctions[id] {
		id = r.newID()
	}
	a.data.ID = id
	snap := a.snapshot()
	r.auctions[id] = a
	r.mu.Unlock()

	log.Lvl2("Created auction", id, "for", item, "at", startingPrice)
	return snap, nil
}

func (r *Registry) get(id string) (*auction, error) {
	r.mu.RLock()
	a, ok := r.auctions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAuctionNotFound, id)
	}
	return a, nil
}

// PlaceBid accepts the bid when the auction is open and amount is strictly
// above both the starting price and the highest bid. A rejected bid leaves
// the auction unchanged.
func (r *Registry) PlaceBid(id, bidder string, amount float64) error {
	if bidder == "" {
		return fmt.Errorf("%w: bidder is empty", ErrInvalidInput)
	}
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return fmt.Errorf("%w: bid amount %v", ErrInvalidInput, amount)
	}
	a, err := r.get(id)
	if err != nil {
		return err
	}

	a.Lock()
	defer a.Unlock()
	if a.data.State != OPEN {
		return ErrNotOpen
	}
	threshold := a.data.StartingPrice
	if a.data.HighestBid != nil && *a.data.HighestBid > threshold {
		threshold = *a.data.HighestBid
	}
	if amount <= threshold {
		log.Lvl3("Rejected bid of", bidder, "at", amount, "on", id, "- threshold is", threshold)
		return ErrBidTooLow
	}
	highest, who := amount, bidder
	a.data.HighestBid = &highest
	a.data.HighestBidder = &who
	a.data.Bids = append(a.data.Bids, BidData{Bidder: bidder, Amount: amount})
	log.Lvl2("Accepted bid of", bidder, "at", amount, "on", id)
	return nil
}

// Close ends the auction and returns its winner.
func (r *Registry) Close(id string) (Result, error) {
	a, err := r.get(id)
	if err != nil {
		return Result{}, err
	}

	a.Lock()
	defer a.Unlock()
	if a.data.State == CLOSED {
		return Result{}, fmt.Errorf("%w: %s", ErrAuctionClosed, id)
	}
	a.data.State = CLOSED
	res := Result{Item: a.data.Item}
	if a.data.HighestBidder != nil {
		winner, amount := *a.data.HighestBidder, *a.data.HighestBid
		res.Winner = &winner
		res.Amount = &amount
		log.Lvl2("Closed auction", id, "- winner", winner, "at", amount)
	} else {
		log.Lvl2("Closed auction", id, "without bids")
	}
	return res, nil
}

// Get returns a snapshot of one auction.
func (r *Registry) Get(id string) (AuctionData, error) {
	a, err := r.get(id)
	if err != nil {
		return AuctionData{}, err
	}
	a.Lock()
	defer a.Unlock()
	return a.snapshot(), nil
}

// List returns snapshots of all auctions, sorted by id.
func (r *Registry) List() []AuctionData {
	r.mu.RLock()
	all := make([]*auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		all = append(all, a)
	}
	r.mu.RUnlock()

	out := make([]AuctionData, 0, len(all))
	for _, a := range all {
		a.Lock()
		out = append(out, a.snapshot())
		a.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// snapshot copies the data of a so that callers cannot change it. The
// caller holds the lock of a, or is the only one knowing a.
func (a *auction) snapshot() AuctionData {
	s := a.data
	if a.data.HighestBid != nil {
		v := *a.data.HighestBid
		s.HighestBid = &v
	}
	if a.data.HighestBidder != nil {
		v := *a.data.HighestBidder
		s.HighestBidder = &v
	}
	s.Bids = append([]BidData(nil), a.data.Bids...)
	return s
}
