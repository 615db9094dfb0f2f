package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Request is a single GET against the TMDB API.
type Request struct {
	// Endpoint is a stable, low-cardinality name used for logs and metrics.
	Endpoint string
	Path     string
	Query    url.Values
}

// Doer performs a request and decodes the JSON body into out.
type Doer interface {
	Do(ctx context.Context, req Request, out any) error
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req Request, out any) error

func (f DoerFunc) Do(ctx context.Context, req Request, out any) error {
	return f(ctx, req, out)
}

// Transport is the HTTP Doer that talks to TMDB.
type Transport struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewTransport creates a TMDB transport. timeout bounds each HTTP attempt.
func NewTransport(apiKey, baseURL string, timeout time.Duration) *Transport {
	return &Transport{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do issues the GET and decodes a 200 response into out.
func (t *Transport) Do(ctx context.Context, req Request, out any) error {
	q := url.Values{}
	for k, v := range req.Query {
		q[k] = v
	}
	q.Set("api_key", t.apiKey)
	target := t.baseURL + req.Path + "?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: req.Endpoint, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	slog.Debug("fetching TMDB", "endpoint", req.Endpoint, "path", req.Path)
	resp, err := t.http.Do(httpReq)
	if err != nil {
		return &Error{Kind: classifyTransport(err), Endpoint: req.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			Kind:       KindStatus,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: KindTimeout, Endpoint: req.Endpoint, Err: err}
		}
		return &Error{Kind: KindDecode, Endpoint: req.Endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

// Client is the typed TMDB API client.
type Client struct {
	doer Doer
}

// NewClient creates a client issuing requests through doer.
func NewClient(doer Doer) *Client {
	return &Client{doer: doer}
}

// Trending fetches trending movies for window ("day" or "week").
func (c *Client) Trending(ctx context.Context, window string, page int) (*MoviePage, error) {
	var result MoviePage
	err := c.doer.Do(ctx, Request{
		Endpoint: "trending",
		Path:     "/trending/movie/" + url.PathEscape(window),
		Query:    pageQuery(page),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Popular fetches the popular movies list.
func (c *Client) Popular(ctx context.Context, page int) (*MoviePage, error) {
	var result MoviePage
	err := c.doer.Do(ctx, Request{
		Endpoint: "popular",
		Path:     "/movie/popular",
		Query:    pageQuery(page),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Details fetches a movie with credits, videos and reviews appended.
func (c *Client) Details(ctx context.Context, tmdbID int) (*MovieDetail, error) {
	var result MovieDetail
	err := c.doer.Do(ctx, Request{
		Endpoint: "details",
		Path:     "/movie/" + strconv.Itoa(tmdbID),
		Query:    url.Values{"append_to_response": {"credits,videos,reviews"}},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs a free-text movie search.
func (c *Client) Search(ctx context.Context, query string, page int) (*MoviePage, error) {
	q := pageQuery(page)
	q.Set("query", query)

	var result MoviePage
	err := c.doer.Do(ctx, Request{
		Endpoint: "search",
		Path:     "/search/movie",
		Query:    q,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Recommendations fetches movies TMDB relates to tmdbID.
func (c *Client) Recommendations(ctx context.Context, tmdbID, page int) (*MoviePage, error) {
	var result MoviePage
	err := c.doer.Do(ctx, Request{
		Endpoint: "recommendations",
		Path:     "/movie/" + strconv.Itoa(tmdbID) + "/recommendations",
		Query:    pageQuery(page),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func pageQuery(page int) url.Values {
	return url.Values{"page": {strconv.Itoa(page)}}
}
