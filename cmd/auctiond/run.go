package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/node"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the server",
	Long: `Start the server and serve until interrupted.

Examples:
  # Start with the defaults, writing ./db/rpc-server/public.toml
  auctiond run

  # Listen on all interfaces and serve the status pages
  auctiond run --address tls://192.168.1.10:7770 --listen 0.0.0.0:7770 --status 127.0.0.1:8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("address", "", "public address, like tls://host:port")
	runCmd.Flags().String("listen", "", "local address to bind instead of the public one")
	runCmd.Flags().String("status", "", "address of the HTTP status pages, empty to disable")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := node.Start(cfg)
	if err != nil {
		return err
	}
	color.Green("rpc server started listening on public key: %s", n.Address())
	color.Cyan("descriptor written to %s", cfg.DescriptorPath())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Lvl1("Shutting down...")
	return n.Close()
}
