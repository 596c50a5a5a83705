package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adamwoolhether/hookrelay"
	"github.com/adamwoolhether/hookrelay/client"
	"github.com/adamwoolhether/hookrelay/config"
	"github.com/adamwoolhether/hookrelay/dispatch"
	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/webhook"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "hookrelay",
		Short:         "Forward log events to a chat webhook without blocking the producer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("url", "", "webhook url")
	flags.String("username", "", "name to post as")
	flags.String("avatar-url", "", "avatar to post with")
	flags.Bool("code-block", true, "wrap messages in a code block")
	flags.Duration("interval", dispatch.DefaultMinInterval, "minimum time between posts")
	flags.Duration("send-timeout", dispatch.DefaultSendTimeout, "timeout for a single post")
	flags.Duration("shutdown-timeout", 15*time.Second, "time allowed for the final flush")
	flags.String("level", "info", "minimum level forwarded")
	flags.Duration("timeout", 30*time.Second, "http client timeout")
	flags.String("user-agent", "hookrelay", "User-Agent header")
	flags.Int("max-rps", 0, "client side request cap, 0 disables")
	flags.String("log-level", "info", "level of hookrelay's own logs")
	flags.String("log-format", "text", "format of hookrelay's own logs: text, json or auto")

	loader := func(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return nil, nil, err
		}

		log, err := newLogger(cmd.ErrOrStderr(), cfg.Logging)
		if err != nil {
			return nil, nil, err
		}

		return cfg, log, nil
	}

	root.AddCommand(
		newSendCmd(loader),
		newPipeCmd(loader),
		newServeCmd(loader),
		newVersionCmd(),
	)

	return root
}

type loadFunc func(cmd *cobra.Command) (*config.Config, *slog.Logger, error)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hookrelay %s (%s)\n", version, commit)
		},
	}
}

// =============================================================================

// newLogger builds hookrelay's own diagnostic logger. "auto" picks text
// on a terminal and json otherwise.
func newLogger(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(cfg.Format)
	if format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// newRelay translates cfg into a started relay.
func newRelay(cfg *config.Config, log *slog.Logger) (*hookrelay.Relay, error) {
	level, err := payload.ParseLevel(cfg.Dispatch.Level)
	if err != nil {
		return nil, err
	}

	clientOpts := []client.Option{client.WithTimeout(cfg.Transport.Timeout)}
	if cfg.Transport.UserAgent != "" {
		clientOpts = append(clientOpts, client.WithUserAgent(cfg.Transport.UserAgent))
	}
	if cfg.Transport.MaxRPS > 0 {
		clientOpts = append(clientOpts, client.WithThrottle(cfg.Transport.MaxRPS, max(cfg.Transport.Burst, 1)))
	}

	webhookOpts := []webhook.Option{
		webhook.WithUsername(cfg.Webhook.Username),
		webhook.WithCodeBlock(cfg.Webhook.CodeBlock),
	}
	if cfg.Webhook.AvatarURL != "" {
		webhookOpts = append(webhookOpts, webhook.WithAvatarURL(cfg.Webhook.AvatarURL))
	}

	return hookrelay.New(cfg.Webhook.URL,
		hookrelay.WithLogger(log),
		hookrelay.WithLevel(level),
		hookrelay.WithClientOptions(clientOpts...),
		hookrelay.WithWebhookOptions(webhookOpts...),
		hookrelay.WithDispatchOptions(
			dispatch.WithMinInterval(cfg.Dispatch.MinEmitInterval),
			dispatch.WithSendTimeout(cfg.Dispatch.SendTimeout),
		),
	)
}
