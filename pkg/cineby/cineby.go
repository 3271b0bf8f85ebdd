// Package cineby implements a client for the Cineby streaming site.
//
// Cineby is a Next.js application: its JSON data endpoints live under
// /_next/data/<buildId>/ and the buildId token changes on every
// redeploy. The client scrapes the token from the homepage, caches it
// for a TTL, and retries identifier-scoped requests once with a forced
// refresh when the upstream signals the token went stale.
package cineby

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/trace"
	"stremio-cineby/pkg/transport"
)

// ErrNoSession is returned when no build id has ever been obtained from
// the upstream homepage.
var ErrNoSession = errors.New("no upstream build id available")

// StatusError reports a non-2xx upstream response status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.Code)
}

// IsStale reports whether err indicates a stale build id. The upstream
// invalidates identifier-scoped paths on redeploy, which surfaces as a
// 404 or 500 on otherwise valid requests.
func IsStale(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusNotFound || se.Code == http.StatusInternalServerError
}

// Cineby defines the methods to interact with the Cineby site.
type Cineby interface {
	// GetTrending fetches the mixed movie/tv trending listing.
	GetTrending(ctx context.Context, page int) ([]Title, error)
	// GetMovies fetches the movie listing, optionally filtered by a genre id.
	GetMovies(ctx context.Context, page int, genreID int) ([]Title, error)
	// GetSeries fetches the tv listing, optionally filtered by a genre id.
	GetSeries(ctx context.Context, page int, genreID int) ([]Title, error)
	// Search fetches mixed movie/tv search results for a query.
	Search(ctx context.Context, query string, page int) ([]Title, error)
	// GetDetails fetches the full record of one movie or tv item.
	GetDetails(ctx context.Context, kind string, id int) (*Title, error)
	// GetSources fetches the playable sources of one item. Season and
	// episode are only meaningful for tv items and ignored otherwise.
	GetSources(ctx context.Context, kind string, id, season, episode int) ([]Source, error)
}

var buildIDRE = regexp.MustCompile(`"buildId":"([^"]+)"`)

// NewCineby creates a new instance of the Cineby client. baseURL is the
// site itself (scraped for the build id and hosting the data
// endpoints), apiBaseURL the identifier-independent sources API.
func NewCineby(baseURL, apiBaseURL string, sessionTTL time.Duration, logger *slog.Logger) Cineby {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	// The upstream rejects default client signatures.
	rt := transport.NewModifyHeadersRoundTripper(t,
		transport.WithAcceptLanguage("en-US,en;q=0.9"),
		transport.WithUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		transport.WithReferer(baseURL+"/"),
	)

	return &cineby{
		httpClient: &http.Client{
			Timeout:   time.Second * 10,
			Transport: rt,
		},
		baseURL:    baseURL,
		apiBaseURL: apiBaseURL,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

type cineby struct {
	httpClient *http.Client
	baseURL    string
	apiBaseURL string
	sessionTTL time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	buildID   string
	fetchedAt time.Time
}

// getBuildID returns the current build id, scraping the homepage when
// the cached value is missing, expired, or force is set. A failed
// scrape keeps the previous value in place; an empty return means no
// id has ever been obtained.
func (c *cineby) getBuildID(ctx context.Context, force bool) string {
	c.mu.Lock()
	cached := c.buildID
	fresh := cached != "" && time.Since(c.fetchedAt) < c.sessionTTL
	c.mu.Unlock()

	if !force && fresh {
		return cached
	}

	id, err := c.scrapeBuildID(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to refresh upstream build id", "err", err)
		return cached
	}

	c.mu.Lock()
	c.buildID = id
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return id
}

func (c *cineby) scrapeBuildID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", &StatusError{Code: res.StatusCode}
	}

	html, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to io.ReadAll: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to goquery.NewDocumentFromReader: %w", err)
	}

	nextData := struct {
		BuildID string `json:"buildId"`
	}{}
	if raw := doc.Find("script#__NEXT_DATA__").Text(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &nextData); err != nil {
			return "", fmt.Errorf("failed to json.Unmarshal __NEXT_DATA__: %w", err)
		}
	}
	if nextData.BuildID != "" {
		return nextData.BuildID, nil
	}

	// Some deployments inline the bootstrap data outside the
	// __NEXT_DATA__ script; fall back to a raw pattern match.
	matches := buildIDRE.FindSubmatch(html)
	if matches == nil {
		return "", fmt.Errorf("build id not found in homepage document")
	}

	return string(matches[1]), nil
}

// getJSON performs one upstream GET and decodes the body into out.
// Any non-2xx status is reported as a StatusError; network failures
// and malformed bodies are wrapped. Nothing here panics or retries.
func (c *cineby) getJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to json.Decoder.Decode: %w", err)
	}

	return nil
}

// withBuildID runs fn with a warm build id and retries it exactly once
// with a forced refresh when the failure indicates the id went stale.
func withBuildID[T any](ctx context.Context, c *cineby, fn func(buildID string) (T, error)) (T, error) {
	return retry.DoWithData(
		func() (T, error) {
			var zero T
			buildID := c.getBuildID(ctx, false)
			if buildID == "" {
				return zero, ErrNoSession
			}
			return fn(buildID)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.RetryIf(IsStale),
		retry.OnRetry(func(_ uint, err error) {
			c.logger.WarnContext(ctx, "Upstream build id looks stale, forcing refresh", "err", err)
			c.getBuildID(ctx, true)
		}),
		retry.LastErrorOnly(true),
	)
}

func (c *cineby) dataURL(buildID, page string) string {
	return fmt.Sprintf("%s/_next/data/%s/%s.json", c.baseURL, buildID, page)
}

// GetTrending fetches the mixed movie/tv trending listing.
func (c *cineby) GetTrending(ctx context.Context, page int) ([]Title, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cineby.Cineby.GetTrending")
	defer span.End()

	return withBuildID(ctx, c, func(buildID string) ([]Title, error) {
		payload := struct {
			PageProps struct {
				Trending []listItem `json:"trending"`
			} `json:"pageProps"`
		}{}

		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		if err := c.getJSON(ctx, c.dataURL(buildID, "home"), q, &payload); err != nil {
			return nil, err
		}

		titles := make([]Title, 0, len(payload.PageProps.Trending))
		for _, it := range payload.PageProps.Trending {
			titles = append(titles, it.normalize(KindMovie))
		}
		return titles, nil
	})
}

// GetMovies fetches the movie listing, optionally filtered by a genre id.
func (c *cineby) GetMovies(ctx context.Context, page int, genreID int) ([]Title, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cineby.Cineby.GetMovies")
	defer span.End()

	return c.getListing(ctx, "movie", KindMovie, page, genreID)
}

// GetSeries fetches the tv listing, optionally filtered by a genre id.
func (c *cineby) GetSeries(ctx context.Context, page int, genreID int) ([]Title, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cineby.Cineby.GetSeries")
	defer span.End()

	return c.getListing(ctx, "tv", KindTV, page, genreID)
}

func (c *cineby) getListing(ctx context.Context, page string, kind string, pageNumber int, genreID int) ([]Title, error) {
	return withBuildID(ctx, c, func(buildID string) ([]Title, error) {
		payload := struct {
			PageProps struct {
				Results []listItem `json:"results"`
			} `json:"pageProps"`
		}{}

		q := url.Values{}
		q.Set("page", strconv.Itoa(pageNumber))
		if genreID != 0 {
			q.Set("genre", strconv.Itoa(genreID))
		}
		if err := c.getJSON(ctx, c.dataURL(buildID, page), q, &payload); err != nil {
			return nil, err
		}

		titles := make([]Title, 0, len(payload.PageProps.Results))
		for _, it := range payload.PageProps.Results {
			titles = append(titles, it.normalize(kind))
		}
		return titles, nil
	})
}

// Search fetches mixed movie/tv search results for a query.
func (c *cineby) Search(ctx context.Context, query string, page int) ([]Title, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cineby.Cineby.Search")
	defer span.End()

	return withBuildID(ctx, c, func(buildID string) ([]Title, error) {
		payload := struct {
			PageProps struct {
				Results []searchItem `json:"results"`
			} `json:"pageProps"`
		}{}

		q := url.Values{}
		q.Set("q", query)
		q.Set("page", strconv.Itoa(page))
		if err := c.getJSON(ctx, c.dataURL(buildID, "search"), q, &payload); err != nil {
			return nil, err
		}

		titles := make([]Title, 0, len(payload.PageProps.Results))
		for _, it := range payload.PageProps.Results {
			titles = append(titles, it.normalize())
		}
		return titles, nil
	})
}

// GetDetails fetches the full record of one movie or tv item.
func (c *cineby) GetDetails(ctx context.Context, kind string, id int) (*Title, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cineby.Cineby.GetDetails")
	defer span.End()

	return withBuildID(ctx, c, func(buildID string) (*Title, error) {
		payload := struct {
			PageProps struct {
				Media detailItem `json:"media"`
			} `json:"pageProps"`
		}{}

		if err := c.getJSON(ctx, c.dataURL(buildID, fmt.Sprintf("%s/%d", kind, id)), nil, &payload); err != nil {
			return nil, err
		}

		title := payload.PageProps.Media.normalize(kind)
		return &title, nil
	})
}

// GetSources fetches the playable sources of one item from the
// identifier-independent sources API.
func (c *cineby) GetSources(ctx context.Context, kind string, id, season, episode int) ([]Source, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cineby.Cineby.GetSources")
	defer span.End()

	payload := struct {
		Sources []Source `json:"sources"`
	}{}

	var q url.Values
	if kind == KindTV {
		q = url.Values{}
		q.Set("season", strconv.Itoa(season))
		q.Set("episode", strconv.Itoa(episode))
	}

	rawURL := fmt.Sprintf("%s/api/sources/%s/%d", c.apiBaseURL, kind, id)
	if err := c.getJSON(ctx, rawURL, q, &payload); err != nil {
		return nil, err
	}

	return payload.Sources, nil
}
