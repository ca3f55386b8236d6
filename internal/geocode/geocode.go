// Package geocode resolves postal codes and street addresses to
// coordinates through an external forward-geocoding provider.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var ErrNoResults = errors.New("geocoder: no results for address")

type Location struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
	City             string  `json:"city,omitempty"`
	Zipcode          string  `json:"zipcode,omitempty"`
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (Location, error)
}

// Client speaks the nominatim-style search API: GET {base}?q=...&api_key=...
// returning a JSON array ordered by relevance. Only the top hit is used.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (c *Client) Geocode(ctx context.Context, address string) (Location, error) {
	u, err := url.Parse(c.baseURL)

	if err != nil {
		return Location{}, fmt.Errorf("geocoder: bad base url: %w", err)
	}

	params := u.Query()
	params.Set("q", address)
	params.Set("format", "json")
	// addressdetails breaks the hit into components (city, postcode)
	// alongside the display name.
	params.Set("addressdetails", "1")

	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	if err != nil {
		return Location{}, err
	}

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return Location{}, fmt.Errorf("geocoder: request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geocoder: provider returned status %d", resp.StatusCode)
	}

	// provider encodes coordinates as strings
	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
		Address     struct {
			City     string `json:"city"`
			Town     string `json:"town"`
			Village  string `json:"village"`
			Postcode string `json:"postcode"`
		} `json:"address"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return Location{}, fmt.Errorf("geocoder: decode response: %w", err)
	}

	if len(hits) == 0 {
		return Location{}, ErrNoResults
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)

	if err != nil {
		return Location{}, fmt.Errorf("geocoder: bad latitude %q: %w", hits[0].Lat, err)
	}

	lng, err := strconv.ParseFloat(hits[0].Lon, 64)

	if err != nil {
		return Location{}, fmt.Errorf("geocoder: bad longitude %q: %w", hits[0].Lon, err)
	}

	// Smaller places report a town or village instead of a city.
	addr := hits[0].Address
	city := addr.City

	if city == "" {
		city = addr.Town
	}

	if city == "" {
		city = addr.Village
	}

	return Location{
		Lat:              lat,
		Lng:              lng,
		FormattedAddress: hits[0].DisplayName,
		City:             city,
		Zipcode:          addr.Postcode,
	}, nil
}
