// Auctioncli calls an auction server through its public key.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/centrilized_auctions"
	"github.com/dedis/p2p_auctions/config"
	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/keystore"
	"github.com/dedis/p2p_auctions/rpc"
)

var (
	configPath string
	servicePub string
	descriptor string
)

var rootCmd = &cobra.Command{
	Use:   "auctioncli",
	Short: "Client of the auction server",
	Long: `Calls an auction server. The server is named by its public key, given with
--service or read from the descriptor the server wrote.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVarP(&servicePub, "service", "s", "", "public key of the server, in hex")
	rootCmd.PersistentFlags().StringVar(&descriptor, "descriptor", "", "descriptor written by the server")
	rootCmd.PersistentFlags().Duration("timeout", 0, "timeout of every call")
	rootCmd.PersistentFlags().IntP("debug", "d", 0, "debug level (0-5)")
}

// session is a connected client and the context its calls run in.
type session struct {
	*centrilized_auctions.Client
	ctx   context.Context
	store *keystore.BoltStore
}

func (s *session) Close() {
	s.Client.Close()
	s.store.Close()
}

// connect loads the identity of the client and resolves the server.
func connect(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetInt("debug")
	}
	if flags.Changed("timeout") {
		cfg.Timeout.Duration, _ = flags.GetDuration("timeout")
	}
	if descriptor != "" {
		cfg.Descriptor = descriptor
	}
	log.SetDebugVisible(cfg.Debug)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	desc, err := rpc.ReadDescriptor(cfg.Descriptor)
	if err != nil {
		return nil, err
	}
	dir := rpc.NewDirectory()
	if err := dir.AddDescriptor(desc); err != nil {
		return nil, err
	}
	if servicePub == "" {
		servicePub = desc.Service
	}
	service, err := identity.ParseAddress(servicePub)
	if err != nil {
		return nil, fmt.Errorf("bad service key: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}
	store, err := keystore.Open(cfg.SeedPath())
	if err != nil {
		return nil, err
	}
	seeds, err := identity.Provision(store, identity.ClientSeed)
	if err != nil {
		store.Close()
		return nil, err
	}
	pair, err := seeds.Pair(identity.ClientSeed)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Lvl2("Calling", servicePub, "as", pair.Address())

	c := centrilized_auctions.NewClient(service, pair, dir)
	c.Timeout = cfg.Timeout.Duration
	return &session{Client: c, ctx: cmd.Context(), store: store}, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
