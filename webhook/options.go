package webhook

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/adamwoolhether/hookrelay/client"
)

// Option is a functional option for configuring a [Webhook] via [New].
type Option func(*options) error

type options struct {
	client    *client.Client
	logger    *slog.Logger
	username  string
	avatarURL string
	codeBlock *bool
}

// WithClient sets the HTTP client used for posting. It should be shared
// by every Webhook pointed at the same host.
func WithClient(c *client.Client) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("client cannot be nil")
		}
		o.client = c
		return nil
	}
}

// WithLogger sets the logger of the default client. It is ignored when
// WithClient is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithUsername overrides the name the webhook posts under.
func WithUsername(name string) Option {
	return func(o *options) error {
		o.username = name
		return nil
	}
}

// WithAvatarURL overrides the avatar the webhook posts with.
func WithAvatarURL(rawURL string) Option {
	return func(o *options) error {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("avatar url[%s] must be an absolute http(s) url", rawURL)
		}
		o.avatarURL = rawURL
		return nil
	}
}

// WithCodeBlock controls whether inline messages are wrapped in a code
// block. It is on by default.
func WithCodeBlock(enabled bool) Option {
	return func(o *options) error {
		o.codeBlock = &enabled
		return nil
	}
}
