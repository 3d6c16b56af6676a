// Package nominatim implements ports.Geocoder against the OpenStreetMap
// Nominatim reverse-geocoding API (free, no API key required).
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Geocoder resolves coordinates to place names over HTTP.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// New creates a Geocoder. baseURL is the service root, e.g.
// "https://nominatim.openstreetmap.org".
func New(baseURL, userAgent string, timeout time.Duration) *Geocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Geocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
	} `json:"address"`
}

// ReverseGeocode looks up the place name for a coordinate pair. It returns
// the first available of city, town, village, or county; an empty name
// with a nil error means the response carried none of those fields.
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build reverse request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode reverse response: %w", err)
	}

	for _, name := range []string{
		body.Address.City,
		body.Address.Town,
		body.Address.Village,
		body.Address.County,
	} {
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}
