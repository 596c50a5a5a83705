package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/hookrelay"
	"github.com/adamwoolhether/hookrelay/config"
	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/slogx"
)

func newSendCmd(load loadFunc) *cobra.Command {
	var severity string

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send one message and wait for it to be delivered",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := payload.ParseLevel(severity)
			if err != nil {
				return err
			}

			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}

			relay, err := newRelay(cfg, log)
			if err != nil {
				return err
			}

			if !relay.Emit(level, slogx.RenderText(time.Now(), level, strings.Join(args, " "), nil)) {
				fmt.Fprintf(cmd.OutOrStdout(), "not sent: %s is below %s\n", level, cfg.Dispatch.Level)
			}

			return closeRelay(cmd.Context(), relay, cfg)
		},
	}
	cmd.Flags().StringVarP(&severity, "severity", "s", "info", "level of the message")

	return cmd
}

func newPipeCmd(load loadFunc) *cobra.Command {
	var severity string

	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Forward each line of stdin as an event until EOF or interrupt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := payload.ParseLevel(severity)
			if err != nil {
				return err
			}

			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}

			relay, err := newRelay(cfg, log)
			if err != nil {
				return err
			}

			lines := make(chan string)
			scanErr := make(chan error, 1)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(cmd.InOrStdin())
				sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
				for sc.Scan() {
					select {
					case lines <- sc.Text():
					case <-cmd.Context().Done():
						return
					}
				}
				scanErr <- sc.Err()
			}()

			var n int
		loop:
			for {
				select {
				case line, ok := <-lines:
					if !ok {
						break loop
					}
					if strings.TrimSpace(line) == "" {
						continue
					}
					if relay.Emit(level, slogx.RenderText(time.Now(), level, line, nil)) {
						n++
					}
				case <-cmd.Context().Done():
					break loop
				}
			}

			log.Debug("stdin closed", "forwarded", n)

			var readErr error
			select {
			case readErr = <-scanErr:
			default:
			}

			return errors.Join(readErr, closeRelay(cmd.Context(), relay, cfg))
		},
	}
	cmd.Flags().StringVarP(&severity, "severity", "s", "info", "level of every line")

	return cmd
}

// closeRelay gives the relay the configured shutdown timeout to flush. It
// outlives ctx so an interrupt still gets a final delivery attempt.
func closeRelay(ctx context.Context, relay *hookrelay.Relay, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Dispatch.ShutdownTimeout)
	defer cancel()

	if err := relay.Close(ctx); err != nil {
		return fmt.Errorf("flushing: %w", err)
	}

	return nil
}
