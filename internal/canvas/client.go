// Package canvas is a small client for the parts of the Canvas LMS REST API
// used to find assignment submissions, comment on them and upload files.
package canvas

import (
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

	"github.com/go-logr/logr"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// APIBasePath is the path under which Canvas serves its REST API.
const APIBasePath = "api/v1/"

type (
	Client struct {
		baseURL *url.URL
		token   string
		http    *retryablehttp.Client
		write   *retryablehttp.Client
		upload  *http.Client
		log     logr.Logger
	}

	// ClientConfig provides configuration details to the API client.
	ClientConfig struct {
		// The URL of the Canvas installation, e.g. https://canvas.example.edu.
		BaseURL string
		// Access token generated in the Canvas user settings.
		Token string
		// Maximum number of retries for transient errors. Zero uses the
		// default, a negative value disables retries.
		RetryMax int
		// Override default http transport.
		Transport http.RoundTripper
		// Logger for request tracing and retries.
		Logger logr.Logger
	}
)

// NewClient validates the config and constructs a client. It performs no
// network calls.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("missing Canvas access token")
	}
	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Canvas base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid Canvas base url %q: must be absolute", config.BaseURL)
	}
	baseURL = baseURL.JoinPath(APIBasePath)
	if !strings.HasPrefix(baseURL.Path, "/") {
		baseURL.Path = "/" + baseURL.Path
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	baseURL.RawPath = ""

	if config.Transport == nil {
		config.Transport = http.DefaultTransport
	}
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	c := &Client{
		baseURL: baseURL,
		token:   config.Token,
		log:     log,
		upload: &http.Client{
			Transport: config.Transport,
			Timeout:   5 * time.Minute,
			// Canvas answers a finished upload with a redirect to a
			// confirmation endpoint that must be called with the token.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	retryMax := config.RetryMax
	if retryMax == 0 {
		retryMax = 3
	}
	c.http = newRetryClient(config.Transport, retryMax, log, retryablehttp.DefaultRetryPolicy)
	c.write = newRetryClient(config.Transport, retryMax, log, writeRetryPolicy)
	return c, nil
}

func newRetryClient(transport http.RoundTripper, retryMax int, log logr.Logger, policy retryablehttp.CheckRetry) *retryablehttp.Client {
	client := &retryablehttp.Client{
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		HTTPClient:   &http.Client{Transport: transport, Timeout: 60 * time.Second},
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RetryMax:     max(retryMax, 0),
	}
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if retryMax < 0 {
			return false, err
		}
		retry, retryErr := policy(ctx, resp, err)
		if retry {
			if resp != nil && resp.Request != nil {
				log.Error(err, "retrying Canvas request", "url", resp.Request.URL, "status", resp.StatusCode)
			} else {
				log.Error(err, "retrying Canvas request")
			}
		}
		return retry, retryErr
	}
	return client
}

// writeRetryPolicy retries a request that changes state only when Canvas
// cannot have acted on it: the connection was never established, or the
// request was rate limited.
func writeRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return true, nil
		}
		return false, err
	}
	return resp.StatusCode == http.StatusTooManyRequests, nil
}

// BaseURL returns the API root, ending in /api/v1/.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Assignment returns a handle on an assignment. No request is made.
func (c *Client) Assignment(courseID, assignmentID int64) *Assignment {
	return &Assignment{client: c, CourseID: courseID, ID: assignmentID}
}

// newRequest builds an authenticated request. A relative path is resolved
// against the API root; an absolute URL (pagination links) is used as is.
// A non-nil form is sent url-encoded in the body.
func (c *Client) newRequest(ctx context.Context, method, path string, form url.Values) (*retryablehttp.Request, error) {
	u, err := c.baseURL.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing request path %q: %w", path, err)
	}

	var body any
	if form != nil {
		body = []byte(form.Encode())
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

// do sends the request and decodes a JSON response into v when v is non-nil.
// Responses outside the 2xx range are returned as *APIError.
func (c *Client) do(req *retryablehttp.Request, v any) (*http.Response, error) {
	c.log.V(2).Info("canvas request", "method", req.Method, "url", req.URL.String())

	client := c.http
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		client = c.write
	}
	resp, err := client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("reading Canvas response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, newAPIError(req.Method, req.URL.Redacted(), resp.StatusCode, body)
	}
	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return resp, fmt.Errorf("decoding Canvas response from %s: %w", req.URL.Path, err)
		}
	}
	return resp, nil
}

// getAll follows Link rel="next" pagination and appends each page to out.
func getAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	next := path
	for next != "" {
		req, err := c.newRequest(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		var page []T
		resp, err := c.do(req, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		next = nextLink(resp.Header.Get("Link"))
	}
	return out, nil
}

// nextLink extracts the rel="next" URL from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}
