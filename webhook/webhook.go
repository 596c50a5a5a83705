// Package webhook posts batches of log payloads to a Discord-style webhook.
//
// A batch is joined into one message, one payload per line. Messages that
// fit the endpoint's content limit are posted as JSON, wrapped in a code
// block. Longer ones are uploaded as a content.log attachment so a flush
// is always a single request.
//
// Quota responses (429) and gateway errors (502) come back as
// [*client.RateLimitError], whose RetryAfter method tells the caller when
// to try again.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/adamwoolhether/hookrelay/client"
	"github.com/adamwoolhether/hookrelay/payload"
)

// MaxContentLength is the endpoint's limit on message content, in characters.
const MaxContentLength = 2000

const (
	codeFence   = "```"
	fileField   = "file"
	fileName    = "content.log"
	fileContent = "text/plain; charset=utf-8"
)

// ErrInvalidURL is returned by New for a missing or non-http(s) url.
var ErrInvalidURL = errors.New("invalid webhook url")

// Webhook is a Sender for a single webhook url. It is safe for concurrent use.
type Webhook struct {
	url       *url.URL
	client    *client.Client
	username  string
	avatarURL string
	codeBlock bool
}

type message struct {
	Content   string `json:"content,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// New validates rawURL and returns a Webhook posting to it.
func New(rawURL string, optFns ...Option) (*Webhook, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying webhook option: %w", err)
		}
	}

	c := opts.client
	if c == nil {
		var clientOpts []client.Option
		if opts.logger != nil {
			clientOpts = append(clientOpts, client.WithLogger(opts.logger))
		}
		if c, err = client.Build(clientOpts...); err != nil {
			return nil, err
		}
	}

	wh := Webhook{
		url:       u,
		client:    c,
		username:  opts.username,
		avatarURL: opts.avatarURL,
		codeBlock: true,
	}
	if opts.codeBlock != nil {
		wh.codeBlock = *opts.codeBlock
	}

	return &wh, nil
}

// Send posts batch as one message. An empty batch sends nothing.
func (wh *Webhook) Send(ctx context.Context, batch []payload.Payload) error {
	if len(batch) == 0 {
		return nil
	}

	body, err := wh.body(payload.Join(batch))
	if err != nil {
		return err
	}

	req, err := wh.client.Request(ctx, wh.url, http.MethodPost, body)
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}

	err = wh.client.Do(req, http.StatusNoContent,
		client.WithAcceptedStatus(http.StatusOK),
		client.WithRateLimitStatus(http.StatusTooManyRequests, http.StatusBadGateway),
	)
	if err != nil {
		return fmt.Errorf("posting %d payloads: %w", len(batch), err)
	}

	return nil
}

// body picks an inline JSON message when text fits, an attachment otherwise.
func (wh *Webhook) body(text string) (client.RequestOption, error) {
	msg := message{
		Username:  wh.username,
		AvatarURL: wh.avatarURL,
	}

	limit := MaxContentLength
	if wh.codeBlock {
		limit -= 2 * len(codeFence)
	}

	if payload.Len(text) <= limit {
		msg.Content = text
		if wh.codeBlock {
			msg.Content = codeFence + text + codeFence
		}

		b, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encoding webhook message: %w", err)
		}

		return client.WithRawBody(b), nil
	}

	var fields map[string]string
	if msg != (message{}) {
		b, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encoding webhook message: %w", err)
		}
		fields = map[string]string{"payload_json": string(b)}
	}

	file := client.FilePart{
		Field:       fileField,
		Name:        fileName,
		ContentType: fileContent,
		Data:        []byte(text),
	}

	return client.WithMultipart(fields, file), nil
}
