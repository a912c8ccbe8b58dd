package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/simul/monitor"

	"github.com/dedis/p2p_auctions/centrilized_auctions"
	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/keystore"
	"github.com/dedis/p2p_auctions/rpc"
	"github.com/dedis/p2p_auctions/scenario"
)

func init() {
	onet.SimulationRegister("AuctionService", NewSimulationService)
}

// SimulationService holds the state of the simulation.
type SimulationService struct {
	onet.SimulationBFTree
	Auctions int
	Bidders  int
	Bids     int
	Timeout  string
}

// NewSimulationService returns the new simulation, where all fields are
// initialised using the config-file
func NewSimulationService(config string) (onet.Simulation, error) {
	es := &SimulationService{Timeout: "1m"}
	_, err := toml.Decode(config, es)
	if err != nil {
		return nil, err
	}
	return es, nil
}

// Setup creates the tree used for that simulation
func (s *SimulationService) Setup(dir string, hosts []string) (
	*onet.SimulationConfig, error) {
	sc := &onet.SimulationConfig{}
	s.CreateRoster(sc, hosts, 2000)
	err := s.CreateTree(sc)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Node can be used to initialize each node before it will be run
// by the server. Here we call the 'Node'-method of the
// SimulationBFTree structure which will load the roster- and the
// tree-structure to speed up the first round.
func (s *SimulationService) Node(config *onet.SimulationConfig) error {
	index, _ := config.Roster.Search(config.Server.ServerIdentity.ID)
	if index < 0 {
		log.Fatal("Didn't find this node in roster")
	}
	log.Lvl3("Initializing node-index", index)
	return s.SimulationBFTree.Node(config)
}

// Run is used on the destination machines. Every round runs the classic
// scenario and then a load plan against the service of every node.
func (s *SimulationService) Run(config *onet.SimulationConfig) error {
	timeout, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return errors.New("parse duration of Timeout failed: " + err.Error())
	}
	root, ok := config.GetService(centrilized_auctions.ServiceName).(*centrilized_auctions.Service)
	if !ok {
		return errors.New("auction service not running on the root")
	}

	discover := monitor.NewTimeMeasure("discover")
	entries, err := root.Discover(config.Roster, timeout)
	if err != nil {
		return err
	}
	dir := rpc.NewDirectory()
	if err := centrilized_auctions.AddEntries(dir, entries); err != nil {
		return err
	}
	discover.Record()
	log.Lvl2("Found", len(entries), "auction services, rounds:", s.Rounds)

	seed := make([]byte, keystore.SeedSize)
	random.New().XORKeyStream(seed, seed)
	pair, err := identity.NewKeyPair(seed)
	if err != nil {
		return err
	}

	load := scenario.Load(s.Auctions, s.Bidders, s.Bids)
	for round := 0; round < s.Rounds; round++ {
		log.Lvl1("Starting round", round)
		roundM := monitor.NewTimeMeasure("round")
		for _, e := range entries {
			service, err := identity.ParseAddress(e.Service)
			if err != nil {
				return err
			}
			c := centrilized_auctions.NewClient(service, pair, dir)
			err = s.runPlans(c, timeout, load)
			c.Close()
			if err != nil {
				return fmt.Errorf("round %d on %s: %w", round, e.Server, err)
			}
		}
		roundM.Record()
	}
	return nil
}

func (s *SimulationService) runPlans(c *centrilized_auctions.Client, timeout time.Duration, load scenario.Plan) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := scenario.Run(ctx, c, scenario.Default())
	if err != nil {
		return err
	}
	if report.Count(scenario.Rejected) != 1 || report.Count(scenario.Failed) != 0 {
		return errors.New("scenario didn't end as expected")
	}

	bids := monitor.NewTimeMeasure("bids")
	report, err = scenario.Run(ctx, c, load)
	if err != nil {
		return err
	}
	bids.Record()
	if report.Count(scenario.Accepted) != len(load.Bids) {
		return fmt.Errorf("only %d of %d bids accepted", report.Count(scenario.Accepted), len(load.Bids))
	}
	if report.Count(scenario.Closed) != len(load.Close) {
		return errors.New("not every auction closed")
	}
	return nil
}
