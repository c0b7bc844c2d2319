package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roamplan/roamplan-api/internal/types"
)

// ErrQuotaExceeded marks a quota or rate-limit rejection from the provider.
// The Discover pipeline treats it as a soft degradation, never a caller error.
var ErrQuotaExceeded = errors.New("web search provider quota exceeded")

// Hint is one free-text search result: a loosely identified place that still
// needs resolution against the canonical places provider before use.
type Hint struct {
	NameHint    string   `json:"name_hint"`
	PlaceIDHint string   `json:"place_id_hint,omitempty"`
	SourceLinks []string `json:"source_links,omitempty"`
	Details     []string `json:"details,omitempty"`
}

// Client is the enrichment provider surface consumed by Discover.
type Client interface {
	Search(ctx context.Context, query string, center *types.Coordinate, zoom int) ([]Hint, error)
}

// HTTPClient queries a free-text web search API and memoizes responses.
// Responses are cached by query+center+zoom because the same day tends to be
// re-discovered repeatedly while a trip is edited; staleness is the only
// concern, so a duplicate fetch on a cache race is acceptable.
type HTTPClient struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	cache    *cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

const (
	defaultCacheTTL = 12 * time.Hour
	cacheCleanup    = 1 * time.Hour
)

// NewHTTPClient builds a web search client with a 12h response cache.
func NewHTTPClient(apiKey, baseURL string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		cache:    cache.New(defaultCacheTTL, cacheCleanup),
		cacheTTL: defaultCacheTTL,
		logger:   logger,
	}
}

type apiResult struct {
	Title    string   `json:"title"`
	PlaceID  string   `json:"place_id"`
	Links    []string `json:"links"`
	Snippets []string `json:"snippets"`
}

type apiResponse struct {
	Results []apiResult `json:"results"`
}

// Search implements Client. Cached responses are served without touching the
// upstream provider or its quota.
func (c *HTTPClient) Search(ctx context.Context, query string, center *types.Coordinate, zoom int) ([]Hint, error) {
	ctx, span := otel.Tracer("WebSearchClient").Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.Int("search.zoom", zoom))

	key := cacheKey(query, center, zoom)
	if cached, found := c.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]Hint), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	q := url.Values{}
	q.Set("q", query)
	q.Set("zoom", fmt.Sprintf("%d", zoom))
	if center != nil {
		q.Set("lat", fmt.Sprintf("%f", center.Lat))
		q.Set("lng", fmt.Sprintf("%f", center.Lng))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "web search request failed")
		return nil, fmt.Errorf("failed to query web search provider: %w", err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode == http.StatusPaymentRequired:
		span.SetStatus(codes.Error, "quota exceeded")
		return nil, ErrQuotaExceeded
	case httpResp.StatusCode != http.StatusOK:
		err := fmt.Errorf("web search provider returned %d", httpResp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var decoded apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode web search response: %w", err)
	}

	hints := make([]Hint, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		hints = append(hints, Hint{
			NameHint:    r.Title,
			PlaceIDHint: r.PlaceID,
			SourceLinks: r.Links,
			Details:     r.Snippets,
		})
	}

	c.cache.Set(key, hints, c.cacheTTL)
	span.SetAttributes(attribute.Int("search.hints", len(hints)))
	return hints, nil
}

func cacheKey(query string, center *types.Coordinate, zoom int) string {
	if center == nil {
		return fmt.Sprintf("websearch:%s::%d", query, zoom)
	}
	return fmt.Sprintf("websearch:%s:%.4f,%.4f:%d", query, center.Lat, center.Lng, zoom)
}
