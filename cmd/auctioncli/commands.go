package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dedis/p2p_auctions/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run the two pictures scenario",
	Long: `Create Pic#1 at 75 and Pic#2 at 60 USDt, place five bids, one of them too
low, and close both auctions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		report, err := scenario.Run(s.ctx, s.Client, scenario.Default())
		report.Print(cmd.OutOrStdout())
		return err
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		if _, err := s.Ping(s.ctx, 1); err != nil {
			return err
		}
		color.Green("server answered")
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create ITEM STARTING_PRICE",
	Short: "Open an auction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad starting price: %w", err)
		}
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		reply, err := s.CreateAuction(s.ctx, args[0], price)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), scenario.Outcome{
			Kind: scenario.Created, Item: args[0], AuctionID: reply.AuctionID, Amount: price,
		})
		return nil
	},
}

var bidCmd = &cobra.Command{
	Use:   "bid AUCTION_ID BIDDER AMOUNT",
	Short: "Place a bid",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("bad amount: %w", err)
		}
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		reply, err := s.PlaceBid(s.ctx, args[0], args[1], amount)
		if err != nil {
			return err
		}
		o := scenario.Outcome{Kind: scenario.Accepted, AuctionID: args[0], Bidder: args[1], Amount: amount, Message: reply.Message}
		if !reply.Accepted {
			o.Kind = scenario.Rejected
			color.Yellow("%s", o)
			return nil
		}
		color.Green("%s", o)
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:   "close AUCTION_ID",
	Short: "Close an auction and announce its winner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		reply, err := s.CloseAuction(s.ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), scenario.Outcome{
			Kind: scenario.Closed, Item: args[0], AuctionID: args[0], Message: reply.Message,
			Winner: reply.Winner, WinningBid: reply.Amount,
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd, pingCmd, createCmd, bidCmd, closeCmd)
}
