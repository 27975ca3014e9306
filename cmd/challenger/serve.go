package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/celestia-da-challenge/host"
	"github.com/celestiaorg/celestia-da-challenge/server"
)

const healthRetries = 5

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve challenges, cached Blobstream events, health and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.challenger(ctx)
			if err != nil {
				return err
			}
			c.ImageID = a.cfg.ImageID
			verifier, err := a.sealVerifier()
			if err != nil {
				return err
			}
			if verifier != nil {
				c.Verifier = verifier
			}

			da := host.DAHead(a.celestia)
			settlement := host.SettlementHead(a.eth)
			if err := host.WaitForNode(ctx, "celestia", da, healthRetries); err != nil {
				return err
			}
			if err := host.WaitForNode(ctx, "settlement", settlement, healthRetries); err != nil {
				return err
			}

			cache, err := a.eventCache(ctx)
			if err != nil {
				return err
			}
			if _, err := cache.First(ctx); err != nil {
				a.logger.Warn("first attestation not found yet", "err", err)
			}

			srv := server.New(server.Config{Port: a.cfg.APIPort, HTTPTimeout: a.cfg.HTTPTimeout}, cache, a.registry, a.logger)
			srv.AddHealthCheck("celestia", da)
			srv.AddHealthCheck("settlement", settlement)
			srv.SetChallenger(c)

			return srv.Run(ctx)
		},
	}
	cmd.Flags().String(flagAPIPort, "8080", "HTTP port")
	addChainFlags(cmd)
	addSealFlags(cmd)
	return cmd
}
