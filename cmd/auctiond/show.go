package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/keystore"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the public keys of the server",
	Long: `Print the public keys of the server without starting it. The keys are
created if the data directory holds none yet. Stop the server first: the
seed store can only be opened once.`,
	RunE: showKeys,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func showKeys(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return err
	}
	store, err := keystore.Open(cfg.SeedPath())
	if err != nil {
		return err
	}
	defer store.Close()
	seeds, err := identity.Provision(store, identity.TransportSeed, identity.ServiceSeed)
	if err != nil {
		return err
	}
	for _, name := range []string{identity.ServiceSeed, identity.TransportSeed} {
		pair, err := seeds.Pair(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, pair.Address())
	}
	return nil
}
