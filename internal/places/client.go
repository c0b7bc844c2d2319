package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roamplan/roamplan-api/internal/types"
)

var (
	// ErrMisconfigured marks a systemic credential problem: a missing key, a
	// disabled API, or a referrer-restricted key used server-side. Callers
	// must fail the whole request and surface the message to an operator.
	ErrMisconfigured = errors.New("places provider rejected the request: check PLACES_API_KEY (server keys must not be referrer-restricted)")

	// ErrQuotaExceeded marks an over-query-limit rejection.
	ErrQuotaExceeded = errors.New("places provider query limit exceeded")

	// ErrNoMatch is returned when a lookup resolves to no canonical place.
	// Absence of a match is expected and common, not a failure.
	ErrNoMatch = errors.New("no matching place")
)

// Place is the canonical structured-search record, normalized at the
// provider boundary. No provider-specific fields leak past this package.
type Place struct {
	PlaceID     string           `json:"place_id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	Location    types.Coordinate `json:"location"`
	Types       []string         `json:"types,omitempty"`
	Rating      float64          `json:"rating,omitempty"`
	ReviewCount int              `json:"review_count,omitempty"`
}

// LocationBias biases a text lookup toward a circle around the route.
type LocationBias struct {
	Center       types.Coordinate
	RadiusMeters int
}

// Client is the structured place provider surface consumed by Discover.
type Client interface {
	// NearbySearch runs a category-constrained, radius-bounded lookup around
	// a center point. Results are inherently bounded by the search radius.
	NearbySearch(ctx context.Context, center types.Coordinate, radiusMeters int, category string) ([]Place, error)

	// Details resolves a place id to its canonical record, or ErrNoMatch.
	Details(ctx context.Context, placeID string) (*Place, error)

	// FindPlace resolves free text to a canonical place, biased toward the
	// given circle, or ErrNoMatch.
	FindPlace(ctx context.Context, text string, bias LocationBias) (*Place, error)
}

// HTTPClient talks to a Google-Places-style JSON API.
type HTTPClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// NewHTTPClient builds a places client. An empty baseURL selects the
// production endpoint; tests point it at an httptest server.
func NewHTTPClient(apiKey, baseURL string, logger *slog.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type apiPlace struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	Vicinity         string `json:"vicinity"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Types            []string `json:"types"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
}

type apiResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Results      []apiPlace `json:"results"`
	Candidates   []apiPlace `json:"candidates"`
	Result       *apiPlace  `json:"result"`
}

func (p apiPlace) toPlace() Place {
	address := p.FormattedAddress
	if address == "" {
		address = p.Vicinity
	}
	return Place{
		PlaceID:     p.PlaceID,
		Name:        p.Name,
		Address:     address,
		Location:    types.Coordinate{Lat: p.Geometry.Location.Lat, Lng: p.Geometry.Location.Lng},
		Types:       p.Types,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingsTotal,
	}
}

// NearbySearch implements Client.
func (c *HTTPClient) NearbySearch(ctx context.Context, center types.Coordinate, radiusMeters int, category string) ([]Place, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "NearbySearch")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.category", category),
		attribute.Int("search.radius_meters", radiusMeters),
	)

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	q.Set("radius", fmt.Sprintf("%d", radiusMeters))
	q.Set("type", category)

	resp, err := c.get(ctx, "/nearbysearch/json", q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nearby search failed")
		return nil, err
	}

	results := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, r.toPlace())
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

// Details implements Client.
func (c *HTTPClient) Details(ctx context.Context, placeID string) (*Place, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "Details")
	defer span.End()

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "place_id,name,formatted_address,geometry,types,rating,user_ratings_total")

	resp, err := c.get(ctx, "/details/json", q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.Result == nil {
		return nil, ErrNoMatch
	}
	place := resp.Result.toPlace()
	return &place, nil
}

// FindPlace implements Client.
func (c *HTTPClient) FindPlace(ctx context.Context, text string, bias LocationBias) (*Place, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "FindPlace")
	defer span.End()
	span.SetAttributes(attribute.Int("search.bias_radius_meters", bias.RadiusMeters))

	q := url.Values{}
	q.Set("input", text)
	q.Set("inputtype", "textquery")
	q.Set("locationbias", fmt.Sprintf("circle:%d@%f,%f", bias.RadiusMeters, bias.Center.Lat, bias.Center.Lng))
	q.Set("fields", "place_id,name,formatted_address,geometry,types,rating,user_ratings_total")

	resp, err := c.get(ctx, "/findplacefromtext/json", q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoMatch
	}
	place := resp.Candidates[0].toPlace()
	return &place, nil
}

// get performs one provider call with bounded retries on transient failures.
// Provider-status failures are never retried: a denied key or an exhausted
// quota will not heal on its own.
func (c *HTTPClient) get(ctx context.Context, path string, q url.Values) (*apiResponse, error) {
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + q.Encode()

	var out *apiResponse
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		httpResp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("places provider returned %d", httpResp.StatusCode))
		}
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("places provider returned %d", httpResp.StatusCode)
		}

		var decoded apiResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("failed to decode places response: %w", err)
		}
		if err := statusError(decoded.Status, decoded.ErrorMessage); err != nil {
			return err
		}
		out = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func statusError(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED", "INVALID_REQUEST":
		if message != "" {
			return fmt.Errorf("%w: %s", ErrMisconfigured, message)
		}
		return ErrMisconfigured
	case "OVER_QUERY_LIMIT":
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("places provider status %q: %s", status, message)
	}
}
