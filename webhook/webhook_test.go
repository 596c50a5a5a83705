package webhook_test

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/hookrelay/client"
	"github.com/adamwoolhether/hookrelay/dispatch"
	"github.com/adamwoolhether/hookrelay/payload"
	"github.com/adamwoolhether/hookrelay/webhook"
)

var _ dispatch.Sender = (*webhook.Webhook)(nil)

// received is what the test server saw of one request.
type received struct {
	contentType string
	message     map[string]string
	files       map[string]string
	fields      map[string]string
}

type server struct {
	url string

	mu   sync.Mutex
	reqs []received
}

func newServer(t *testing.T, status int, headers map[string]string, body string) *server {
	t.Helper()

	s := server{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("exp POST, got %s", r.Method)
		}

		rec := received{contentType: r.Header.Get("Content-Type")}
		mediaType, params, _ := mime.ParseMediaType(rec.contentType)

		switch mediaType {
		case "application/json":
			if err := json.NewDecoder(r.Body).Decode(&rec.message); err != nil {
				t.Errorf("decoding json body: %v", err)
			}
		case "multipart/form-data":
			rec.files = map[string]string{}
			rec.fields = map[string]string{}
			mr := multipart.NewReader(r.Body, params["boundary"])
			for {
				part, err := mr.NextPart()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Errorf("reading part: %v", err)
					break
				}
				b, _ := io.ReadAll(part)
				if part.FileName() != "" {
					rec.files[part.FormName()+":"+part.FileName()] = string(b)
					continue
				}
				rec.fields[part.FormName()] = string(b)
			}
		default:
			t.Errorf("unexpected content type %q", rec.contentType)
		}

		s.mu.Lock()
		s.reqs = append(s.reqs, rec)
		s.mu.Unlock()

		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)

	s.url = ts.URL + "/api/webhooks/1/token"

	return &s
}

func (s *server) requests() []received {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reqs
}

func batch(bodies ...string) []payload.Payload {
	out := make([]payload.Payload, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, payload.Payload{Body: b, Level: payload.LevelInfo})
	}
	return out
}

// =============================================================================

func TestNew_InvalidURL(t *testing.T) {
	testCases := []struct {
		name string
		url  string
	}{
		{name: "Empty", url: ""},
		{name: "Unparsable", url: "http://[::1"},
		{name: "Wrong scheme", url: "ftp://example.com/hook"},
		{name: "Relative", url: "/api/webhooks/1/token"},
		{name: "Missing host", url: "https:///api/webhooks"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := webhook.New(tc.url)
			if !errors.Is(err, webhook.ErrInvalidURL) {
				t.Fatalf("exp ErrInvalidURL, got %v", err)
			}
		})
	}
}

func TestNew_OptionErrors(t *testing.T) {
	testCases := []struct {
		name string
		opt  webhook.Option
	}{
		{name: "Nil client", opt: webhook.WithClient(nil)},
		{name: "Bad avatar", opt: webhook.WithAvatarURL("not a url")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := webhook.New("https://example.com/hook", tc.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWebhook_Send_Inline(t *testing.T) {
	testCases := []struct {
		name   string
		opts   []webhook.Option
		status int
		exp    map[string]string
	}{
		{
			name:   "Code block",
			status: http.StatusNoContent,
			exp:    map[string]string{"content": "```first\nsecond```"},
		},
		{
			name:   "Plain with identity",
			opts:   []webhook.Option{webhook.WithCodeBlock(false), webhook.WithUsername("relay"), webhook.WithAvatarURL("https://example.com/a.png")},
			status: http.StatusOK,
			exp: map[string]string{
				"content":    "first\nsecond",
				"username":   "relay",
				"avatar_url": "https://example.com/a.png",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.status, nil, "")

			wh, err := webhook.New(srv.url, tc.opts...)
			if err != nil {
				t.Fatal(err)
			}

			if err := wh.Send(t.Context(), batch("first", "second")); err != nil {
				t.Fatalf("send: %v", err)
			}

			reqs := srv.requests()
			if len(reqs) != 1 {
				t.Fatalf("exp 1 request, got %d", len(reqs))
			}
			if diff := cmp.Diff(tc.exp, reqs[0].message); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWebhook_Send_ContentLimit(t *testing.T) {
	fits := strings.Repeat("é", webhook.MaxContentLength-6)
	tooLong := fits + "x"

	t.Run("At the limit stays inline", func(t *testing.T) {
		srv := newServer(t, http.StatusNoContent, nil, "")
		wh, _ := webhook.New(srv.url)

		if err := wh.Send(t.Context(), batch(fits)); err != nil {
			t.Fatal(err)
		}

		reqs := srv.requests()
		if len(reqs) != 1 || reqs[0].message == nil {
			t.Fatalf("exp one inline request, got %+v", reqs)
		}
		if got := payload.Len(reqs[0].message["content"]); got != webhook.MaxContentLength {
			t.Errorf("exp %d characters, got %d", webhook.MaxContentLength, got)
		}
	})

	t.Run("Over the limit becomes an attachment", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, nil, "")
		wh, _ := webhook.New(srv.url)

		if err := wh.Send(t.Context(), batch(tooLong)); err != nil {
			t.Fatal(err)
		}

		reqs := srv.requests()
		if len(reqs) != 1 {
			t.Fatalf("exp 1 request, got %d", len(reqs))
		}
		if diff := cmp.Diff(map[string]string{"file:content.log": tooLong}, reqs[0].files); diff != "" {
			t.Errorf("files mismatch (-want +got):\n%s", diff)
		}
		if len(reqs[0].fields) != 0 {
			t.Errorf("exp no payload_json without identity, got %v", reqs[0].fields)
		}
	})

	t.Run("Attachment keeps identity", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, nil, "")
		wh, _ := webhook.New(srv.url, webhook.WithUsername("relay"))

		if err := wh.Send(t.Context(), batch(tooLong)); err != nil {
			t.Fatal(err)
		}

		reqs := srv.requests()
		if got := reqs[0].fields["payload_json"]; got != `{"username":"relay"}` {
			t.Errorf("unexpected payload_json %q", got)
		}
	})
}

func TestWebhook_Send_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		headers   map[string]string
		body      string
		expErr    error
		expRetry  time.Duration
		expQuotas bool
	}{
		{
			name:      "Rate limited",
			status:    http.StatusTooManyRequests,
			headers:   map[string]string{"X-RateLimit-Reset-After": "5"},
			expErr:    client.ErrRateLimited,
			expRetry:  5 * time.Second,
			expQuotas: true,
		},
		{
			name:      "Bad gateway is transient",
			status:    http.StatusBadGateway,
			expErr:    client.ErrRateLimited,
			expRetry:  client.DefaultRetryAfter,
			expQuotas: true,
		},
		{
			name:   "Bad request is permanent",
			status: http.StatusBadRequest,
			body:   `{"message":"Cannot send an empty message","code":50006}`,
			expErr: client.ErrUnexpectedStatusCode,
		},
		{
			name:   "Unknown webhook",
			status: http.StatusNotFound,
			expErr: client.ErrUnexpectedStatusCode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.status, tc.headers, tc.body)
			wh, err := webhook.New(srv.url)
			if err != nil {
				t.Fatal(err)
			}

			err = wh.Send(t.Context(), batch("hello"))
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp %v, got %v", tc.expErr, err)
			}

			var quota interface{ RetryAfter() time.Duration }
			ok := errors.As(err, &quota)
			if ok != tc.expQuotas {
				t.Fatalf("exp quota error %t, got %t", tc.expQuotas, ok)
			}
			if ok && quota.RetryAfter() != tc.expRetry {
				t.Errorf("exp retry after %s, got %s", tc.expRetry, quota.RetryAfter())
			}
		})
	}
}

func TestWebhook_Send_Empty(t *testing.T) {
	srv := newServer(t, http.StatusNoContent, nil, "")
	wh, _ := webhook.New(srv.url)

	if err := wh.Send(t.Context(), nil); err != nil {
		t.Fatal(err)
	}
	if n := len(srv.requests()); n != 0 {
		t.Errorf("exp no request, got %d", n)
	}
}

func TestWebhook_Send_Transport(t *testing.T) {
	wh, err := webhook.New("http://127.0.0.1:1/api/webhooks/1/token")
	if err != nil {
		t.Fatal(err)
	}

	err = wh.Send(t.Context(), batch("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, client.ErrRateLimited) {
		t.Errorf("connection failure must not look like a quota error: %v", err)
	}
}
