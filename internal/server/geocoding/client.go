// Package geocoding resolves free-text addresses to coordinates through the
// Google Geocoding HTTP API.
package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/dmitrijs2005/shareplaces/internal/server/models"
	"github.com/goccy/go-json"
)

// DefaultEndpoint is the Google Geocoding JSON endpoint.
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

const statusOK = "OK"

// Client calls the provider once per Resolve; there are no retries.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns the first match for address. Every failure, including an
// unreachable provider, is reported as common.ErrAddressNotFound.
func (c *Client) Resolve(ctx context.Context, address string) (models.Location, error) {
	res, err := c.query(ctx, address)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", common.ErrAddressNotFound, err)
	}
	if res.Status != statusOK || len(res.Results) == 0 {
		return models.Location{}, fmt.Errorf("%w: status %s", common.ErrAddressNotFound, res.Status)
	}

	loc := res.Results[0].Geometry.Location
	return models.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (c *Client) query(ctx context.Context, address string) (*geocodeResponse, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var result geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	return &result, nil
}
