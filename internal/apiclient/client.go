// Package apiclient is the HTTP client the CLI uses to talk to a running
// clipforge daemon.
package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/entitlement"
	"clipforge/internal/jobs"
)

// ErrAPIUnavailable reports that no daemon answered.
var ErrAPIUnavailable = errors.New("clipforge API unavailable")

// Error is a non-2xx reply from the daemon.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
	Hint       string
	Decision   *entitlement.Decision
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clipforge API returned status %d", e.StatusCode)
	}
	return e.Message
}

// Client calls the daemon's JSON API.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	userID string
}

// Options configure a Client.
type Options struct {
	Token   string
	UserID  string
	Timeout time.Duration
}

// New returns a client for the daemon bound at bind ("host:port" or a URL).
// An empty bind returns nil.
func New(bind string, opts Options) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		// Timeout stays zero by default; Events and waited submits block.
		http:   &http.Client{Timeout: opts.Timeout},
		token:  strings.TrimSpace(opts.Token),
		userID: strings.TrimSpace(opts.UserID),
	}, nil
}

// Health fetches daemon status.
func (c *Client) Health(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out)
	return out, err
}

// Submit creates a job. With wait set the call returns after analysis.
func (c *Client) Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	var out api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", nil, req, &out)
	return out, err
}

// Job fetches one job's status projection.
func (c *Client) Job(ctx context.Context, id string) (api.Job, error) {
	var out api.Job
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// List returns jobs, optionally narrowed to statuses.
func (c *Client) List(ctx context.Context, statuses ...jobs.Status) (api.JobListResponse, error) {
	values := url.Values{}
	for _, s := range statuses {
		values.Add("status", string(s))
	}
	var out api.JobListResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs", values, nil, &out)
	return out, err
}

// Render triggers the render phase.
func (c *Client) Render(ctx context.Context, id string, soundEnhance bool) (api.ActionResponse, error) {
	var out api.ActionResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/render", nil, api.RenderRequest{SoundEnhance: soundEnhance}, &out)
	return out, err
}

// Cancel stops a job.
func (c *Client) Cancel(ctx context.Context, id string) (api.ActionResponse, error) {
	var out api.ActionResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, nil, &out)
	return out, err
}

// Entitlement reports the caller's plan usage.
func (c *Client) Entitlement(ctx context.Context) (entitlement.Decision, error) {
	var out entitlement.Decision
	err := c.do(ctx, http.MethodGet, "/api/entitlement", nil, nil, &out)
	return out, err
}

// TestNotification asks the daemon to send a test push notification.
func (c *Client) TestNotification(ctx context.Context) (api.NotificationResult, error) {
	var out api.NotificationResult
	err := c.do(ctx, http.MethodPost, "/api/notifications/test", nil, nil, &out)
	return out, err
}

// Events follows the job's event stream, calling fn for every snapshot until
// the stream ends, fn returns an error, or ctx is canceled.
func (c *Client) Events(ctx context.Context, id string, fn func(api.Job) error) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	req, err := c.request(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/events", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var job api.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(job); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	req, err := c.request(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var payload api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err == nil {
		apiErr.Kind = payload.Kind
		apiErr.Message = payload.Error
		apiErr.Hint = payload.Hint
		apiErr.Decision = payload.Decision
	}
	return apiErr
}

// IsAPIUnavailable reports whether err means no daemon is listening.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
