package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sealkit/internal/domain"
)

// StaticToken is a TokenProvider that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// StatusError is returned for responses the clients do not map to a domain
// sentinel.
type StatusError struct {
	Method string
	Path   string
	Status int
	Code   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	return msg
}

// ClientOptions configures the HTTP clients.
type ClientOptions struct {
	HTTP   *http.Client
	Tokens domain.TokenProvider
	// RateLimit is the sustained request rate per second; zero disables
	// client-side pacing.
	RateLimit float64
	Burst     int
}

type client struct {
	base    string
	http    *http.Client
	tokens  domain.TokenProvider
	limiter *rate.Limiter
}

func newClient(base string, opts ClientOptions) client {
	c := client{
		base:   strings.TrimRight(base, "/"),
		http:   opts.HTTP,
		tokens: opts.Tokens,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// do sends in as JSON and decodes a 2xx response into out.
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, uuid.NewString())
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(method, path, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(method, path string, resp *http.Response) error {
	var apiErr apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case apiErr.Code == codeStaleRecord:
		return domain.ErrStaleRecord
	case apiErr.Code == codeBackupExists:
		return domain.ErrBackupExists
	case apiErr.Code == codeBackupNotFound:
		return domain.ErrBackupNotFound
	}
	return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Code: apiErr.Code}
}
