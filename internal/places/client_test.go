package places

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamplan/roamplan-api/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient("test-key", srv.URL, testLogger())
}

func TestNearbySearch(t *testing.T) {
	t.Run("maps results and passes parameters", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/nearbysearch/json", r.URL.Path)
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			assert.Equal(t, "10000", r.URL.Query().Get("radius"))
			assert.Equal(t, "cafe", r.URL.Query().Get("type"))
			fmt.Fprint(w, `{
				"status": "OK",
				"results": [{
					"place_id": "pl-1",
					"name": "Majestic Cafe",
					"vicinity": "Rua Santa Catarina, Porto",
					"geometry": {"location": {"lat": 41.1468, "lng": -8.6065}},
					"types": ["cafe"],
					"rating": 4.3,
					"user_ratings_total": 21000
				}]
			}`)
		})

		got, err := client.NearbySearch(context.Background(), types.Coordinate{Lat: 41.15, Lng: -8.61}, 10000, "cafe")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "pl-1", got[0].PlaceID)
		assert.Equal(t, "Rua Santa Catarina, Porto", got[0].Address)
		assert.Equal(t, 41.1468, got[0].Location.Lat)
		assert.Equal(t, 21000, got[0].ReviewCount)
	})

	t.Run("zero results is empty, not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
		})
		got, err := client.NearbySearch(context.Background(), types.Coordinate{}, 10000, "cafe")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("request denied maps to ErrMisconfigured", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "REQUEST_DENIED", "error_message": "API key is referrer-restricted"}`)
		})
		_, err := client.NearbySearch(context.Background(), types.Coordinate{}, 10000, "cafe")
		require.ErrorIs(t, err, ErrMisconfigured)
		assert.Contains(t, err.Error(), "referrer-restricted")
	})

	t.Run("over query limit maps to ErrQuotaExceeded", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "OVER_QUERY_LIMIT"}`)
		})
		_, err := client.NearbySearch(context.Background(), types.Coordinate{}, 10000, "cafe")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("retries transient 5xx", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"status": "OK", "results": []}`)
		})
		_, err := client.NearbySearch(context.Background(), types.Coordinate{}, 10000, "cafe")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry provider status failures", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, `{"status": "REQUEST_DENIED"}`)
		})
		_, err := client.NearbySearch(context.Background(), types.Coordinate{}, 10000, "cafe")
		require.ErrorIs(t, err, ErrMisconfigured)
		assert.Equal(t, 1, calls)
	})
}

func TestDetails(t *testing.T) {
	t.Run("resolves a place id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/details/json", r.URL.Path)
			assert.Equal(t, "pl-9", r.URL.Query().Get("place_id"))
			fmt.Fprint(w, `{
				"status": "OK",
				"result": {
					"place_id": "pl-9",
					"name": "Livraria Lello",
					"formatted_address": "R. das Carmelitas 144, Porto",
					"geometry": {"location": {"lat": 41.1470, "lng": -8.6148}}
				}
			}`)
		})
		got, err := client.Details(context.Background(), "pl-9")
		require.NoError(t, err)
		assert.Equal(t, "Livraria Lello", got.Name)
		assert.Equal(t, "R. das Carmelitas 144, Porto", got.Address)
	})

	t.Run("missing result maps to ErrNoMatch", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "ZERO_RESULTS"}`)
		})
		_, err := client.Details(context.Background(), "pl-gone")
		assert.ErrorIs(t, err, ErrNoMatch)
	})
}

func TestFindPlace(t *testing.T) {
	t.Run("takes the first biased candidate", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/findplacefromtext/json", r.URL.Path)
			assert.Equal(t, "Time Out Market", r.URL.Query().Get("input"))
			assert.Contains(t, r.URL.Query().Get("locationbias"), "circle:10000@")
			fmt.Fprint(w, `{
				"status": "OK",
				"candidates": [
					{"place_id": "pl-a", "name": "Time Out Market", "geometry": {"location": {"lat": 41.14, "lng": -8.61}}},
					{"place_id": "pl-b", "name": "Time Out Market Lisbon", "geometry": {"location": {"lat": 38.70, "lng": -9.14}}}
				]
			}`)
		})
		bias := LocationBias{Center: types.Coordinate{Lat: 41.15, Lng: -8.61}, RadiusMeters: 10000}
		got, err := client.FindPlace(context.Background(), "Time Out Market", bias)
		require.NoError(t, err)
		assert.Equal(t, "pl-a", got.PlaceID)
	})

	t.Run("no candidates maps to ErrNoMatch", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "ZERO_RESULTS", "candidates": []}`)
		})
		_, err := client.FindPlace(context.Background(), "nowhere", LocationBias{})
		assert.ErrorIs(t, err, ErrNoMatch)
	})
}
