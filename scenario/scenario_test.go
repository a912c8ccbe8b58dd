package scenario

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/auctions"
	"github.com/dedis/p2p_auctions/centrilized_auctions"
	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/rpc"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

// localCaller answers like the service does, without a network.
type localCaller struct {
	reg       *auctions.Registry
	failClose bool
}

func (l *localCaller) CreateAuction(ctx context.Context, item string, price float64) (*centrilized_auctions.CreateAuctionReply, error) {
	data, err := l.reg.Create(item, price)
	if err != nil {
		return nil, err
	}
	return &centrilized_auctions.CreateAuctionReply{AuctionID: data.ID, Data: data}, nil
}

func (l *localCaller) PlaceBid(ctx context.Context, id, bidder string, amount float64) (*centrilized_auctions.PlaceBidReply, error) {
	if err := l.reg.PlaceBid(id, bidder, amount); err != nil {
		return &centrilized_auctions.PlaceBidReply{Message: err.Error()}, nil
	}
	return &centrilized_auctions.PlaceBidReply{Accepted: true, Message: "bid accepted"}, nil
}

func (l *localCaller) CloseAuction(ctx context.Context, id string) (*centrilized_auctions.CloseAuctionReply, error) {
	if l.failClose {
		return nil, rpc.ErrTransport
	}
	res, err := l.reg.Close(id)
	if err != nil {
		return nil, err
	}
	return &centrilized_auctions.CloseAuctionReply{Message: "Auction closed", Winner: res.Winner, Amount: res.Amount}, nil
}

func checkDefault(t *testing.T, r *Report) {
	require.Equal(t, 2, r.Count(Created))
	require.Equal(t, 4, r.Count(Accepted))
	require.Equal(t, 1, r.Count(Rejected))
	require.Equal(t, 2, r.Count(Closed))
	require.Equal(t, 0, r.Count(Failed))

	rejected := r.Outcomes[2]
	require.Equal(t, Rejected, rejected.Kind)
	require.Equal(t, "Client#2", rejected.Bidder)
	require.Equal(t, auctions.ErrBidTooLow.Error(), rejected.Message)

	pic1, pic2 := r.Outcomes[7], r.Outcomes[8]
	require.Equal(t, "Client#2", *pic1.Winner)
	require.Equal(t, 80.0, *pic1.WinningBid)
	require.Equal(t, "Client#4", *pic2.Winner)
	require.Equal(t, 90.0, *pic2.WinningBid)
	require.Equal(t, "Auction closed. Pic#1 winner: Client#2 at 80 USDt", pic1.String())
}

func TestRun_Default(t *testing.T) {
	r, err := Run(context.Background(), &localCaller{reg: auctions.NewRegistry()}, Default())
	require.NoError(t, err)
	checkDefault(t, r)

	var buf bytes.Buffer
	r.Print(&buf)
	require.Contains(t, buf.String(), "Bid of 75.5 USDt placed on auction "+r.AuctionIDs["Pic#1"]+" by Client#3")
	require.Contains(t, buf.String(), "rejected: bid too low")
}

func TestRun_NoWinner(t *testing.T) {
	p := Plan{
		Auctions: []Auction{{"Pic#3", 10}},
		Close:    []string{"Pic#3"},
	}
	r, err := Run(context.Background(), &localCaller{reg: auctions.NewRegistry()}, p)
	require.NoError(t, err)
	closed := r.Outcomes[1]
	require.Equal(t, Closed, closed.Kind)
	require.Nil(t, closed.Winner)
	require.Contains(t, closed.String(), "no winner")
}

func TestRun_Failures(t *testing.T) {
	// A creation failure stops the run.
	p := Default()
	p.Auctions[1].StartingPrice = 0
	r, err := Run(context.Background(), &localCaller{reg: auctions.NewRegistry()}, p)
	require.ErrorIs(t, err, auctions.ErrInvalidInput)
	require.Len(t, r.Outcomes, 2)
	require.Equal(t, Failed, r.Outcomes[1].Kind)

	// Other failures are recorded and the run goes on.
	p = Default()
	p.Bids = append(p.Bids, Bid{"Pic#9", "Client#5", 10})
	r, err = Run(context.Background(), &localCaller{reg: auctions.NewRegistry(), failClose: true}, p)
	require.NoError(t, err)
	require.Equal(t, 3, r.Count(Failed))
	require.True(t, errors.Is(r.Outcomes[7].Err, ErrUnknownItem))
	require.ErrorIs(t, r.Outcomes[8].Err, rpc.ErrTransport)
	require.Contains(t, r.Outcomes[8].String(), "failed")
}

func TestRun_Service(t *testing.T) {
	local := onet.NewTCPTest(identity.Suite)
	defer local.CloseAll()
	servers := local.GenServers(1)
	svc := servers[0].Service(centrilized_auctions.ServiceName).(*centrilized_auctions.Service)

	dir := rpc.NewDirectory()
	dir.Add(svc.PublicKey(), servers[0].ServerIdentity)
	seed := make([]byte, 32)
	random.New().XORKeyStream(seed, seed)
	pair, err := identity.NewKeyPair(seed)
	require.NoError(t, err)
	c := centrilized_auctions.NewClient(svc.PublicKey(), pair, dir)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := Run(ctx, c, Default())
	require.NoError(t, err)
	checkDefault(t, r)
	require.Len(t, svc.Registry().List(), 2)
}

func TestRun_Load(t *testing.T) {
	p := Load(3, 4, 2)
	require.Len(t, p.Auctions, 3)
	require.Len(t, p.Bids, 24)

	r, err := Run(context.Background(), &localCaller{reg: auctions.NewRegistry()}, p)
	require.NoError(t, err)
	require.Equal(t, 24, r.Count(Accepted))
	require.Equal(t, 3, r.Count(Closed))
	for _, o := range r.Outcomes[len(r.Outcomes)-3:] {
		require.Equal(t, "bidder-3", *o.Winner)
		require.Equal(t, 9.0, *o.WinningBid)
	}
}
