// Auctiond runs an auction server reachable through its public key.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "auctiond",
	Short: "Auction server addressed by public key",
	Long: `An auction server. Clients reach it through its public key, which stays the
same across restarts as long as the data directory is kept.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().IntP("debug", "d", 0, "debug level (0-5)")
	rootCmd.PersistentFlags().String("data", "", "data directory, overrides the configuration")
}

// loadConfig reads the configuration and applies the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Server, error) {
	cfg, err := config.LoadServer(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir, _ = flags.GetString("data")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetInt("debug")
	}
	for flag, field := range map[string]*string{
		"address": &cfg.Address,
		"listen":  &cfg.ListenAddress,
		"status":  &cfg.StatusAddress,
	} {
		if flags.Lookup(flag) != nil && flags.Changed(flag) {
			*field, _ = flags.GetString(flag)
		}
	}
	log.SetDebugVisible(cfg.Debug)
	return cfg, cfg.Validate()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
