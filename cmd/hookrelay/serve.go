package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/hookrelay/ingest"
	"github.com/adamwoolhether/hookrelay/payload"
)

func newServeCmd(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept events over HTTP and forward them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}

			level, err := payload.ParseLevel(cfg.Dispatch.Level)
			if err != nil {
				return err
			}

			relay, err := newRelay(cfg, log)
			if err != nil {
				return err
			}

			app, err := ingest.New(relay,
				ingest.WithLogger(log.With("component", "ingest")),
				ingest.WithLevel(level),
				ingest.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
				ingest.WithCORS(cfg.Server.CORSOrigins...),
			)
			if err != nil {
				closeRelay(cmd.Context(), relay, cfg)
				return err
			}

			srv := ingest.NewServer(app,
				ingest.WithAddr(cfg.Server.Listen),
				ingest.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
				ingest.WithShutdownTimeout(cfg.Dispatch.ShutdownTimeout+5*time.Second),
				ingest.WithServerLogger(log),
				ingest.WithShutdownFunc(func(ctx context.Context) error {
					return relay.Close(ctx)
				}),
			)

			if err := srv.Run(cmd.Context()); err != nil {
				closeRelay(cmd.Context(), relay, cfg)
				return err
			}

			return nil
		},
	}
	cmd.Flags().String("listen", ":8080", "address to listen on")

	return cmd
}
