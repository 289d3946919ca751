package eta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"parkly/config"
	"parkly/models"
)

// RouteEstimate is the routing provider's answer for one origin/destination pair.
type RouteEstimate struct {
	DistanceMeters           int `json:"distance_meters"`
	BaseDurationSeconds      int `json:"base_duration_seconds"`
	DurationInTrafficSeconds int `json:"duration_in_traffic_seconds"`
}

// RouteProvider estimates travel between two coordinates. Callers treat
// absence or error as "fallback to the configured default" with reduced
// confidence.
type RouteProvider interface {
	Estimate(ctx context.Context, origin, dest models.GeoPoint) (*RouteEstimate, error)
}

// GoogleRouteProvider fetches estimates from the Google Distance Matrix API.
type GoogleRouteProvider struct {
	Client *http.Client
}

// NewGoogleRouteProvider returns a provider with a bounded request timeout.
func NewGoogleRouteProvider() *GoogleRouteProvider {
	return &GoogleRouteProvider{Client: &http.Client{Timeout: 5 * time.Second}}
}

type distanceMatrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			DurationInTraffic struct {
				Value int `json:"value"`
			} `json:"duration_in_traffic"`
		} `json:"elements"`
	} `json:"rows"`
	Status string `json:"status"`
}

// Estimate queries the Distance Matrix API for the driving estimate.
func (p *GoogleRouteProvider) Estimate(ctx context.Context, origin, dest models.GeoPoint) (*RouteEstimate, error) {
	apiKey := config.AppConfig.GoogleAPIKey
	if apiKey == "" {
		return nil, fmt.Errorf("routing: missing API key")
	}

	url := fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/distancematrix/json?origins=%f,%f&destinations=%f,%f&departure_time=now&key=%s",
		origin.Lat, origin.Lng, dest.Lat, dest.Lng, apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("routing: build request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: request failed: %w", err)
	}
	defer resp.Body.Close()

	var matrix distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&matrix); err != nil {
		return nil, fmt.Errorf("routing: decode response: %w", err)
	}
	if matrix.Status != "OK" || len(matrix.Rows) == 0 || len(matrix.Rows[0].Elements) == 0 {
		return nil, fmt.Errorf("routing: no route found")
	}
	el := matrix.Rows[0].Elements[0]
	if el.Status != "OK" {
		return nil, fmt.Errorf("routing: element status %s", el.Status)
	}

	traffic := el.DurationInTraffic.Value
	if traffic == 0 {
		traffic = el.Duration.Value
	}
	return &RouteEstimate{
		DistanceMeters:           el.Distance.Value,
		BaseDurationSeconds:      el.Duration.Value,
		DurationInTrafficSeconds: traffic,
	}, nil
}
