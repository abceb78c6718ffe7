package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/lox/hourlyweather/internal/models"
)

const (
	SourceNominatim    = "nominatim"
	EndpointSearch     = "v1/search"
	EndpointReverse    = "reverse"
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com"
	DefaultReverseURL  = "https://nominatim.openstreetmap.org"
	DefaultSearchCount = 5
	locateCandidates   = 10
)

// ErrNoResults is returned when a lookup resolves to nothing.
var ErrNoResults = errors.New("no results")

// GeocodeClient turns names into places and coordinates into names.
type GeocodeClient struct {
	searchURL  string
	reverseURL string
	search     *fetcher
	reverse    *fetcher
	limiter    *rate.Limiter
}

func NewGeocodeClient(searchURL, reverseURL string, client *http.Client) *GeocodeClient {
	if searchURL == "" {
		searchURL = DefaultGeocodeURL
	}
	if reverseURL == "" {
		reverseURL = DefaultReverseURL
	}
	return &GeocodeClient{
		searchURL:  strings.TrimRight(searchURL, "/"),
		reverseURL: strings.TrimRight(reverseURL, "/"),
		search:     newFetcher(SourceOpenMeteo, client),
		reverse:    newFetcher(SourceNominatim, client),
		// Nominatim usage policy: at most one request per second.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

type searchResponse struct {
	Results []struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// Search returns up to count places matching name. A blank name matches nothing.
func (g *GeocodeClient) Search(ctx context.Context, name string, count int) ([]models.Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []models.Place{}, nil
	}
	if count <= 0 {
		count = DefaultSearchCount
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", strconv.Itoa(count))
	q.Set("format", "json")

	body, err := g.search.get(ctx, EndpointSearch, g.searchURL+"/v1/search?"+q.Encode(), &FetchResult{})
	if err != nil {
		return nil, err
	}

	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal search: %w", err)
	}

	places := make([]models.Place, 0, len(data.Results))
	for _, r := range data.Results {
		tz := r.Timezone
		if tz == "" {
			tz = "GMT"
		}
		places = append(places, models.Place{
			ID:        r.ID,
			Name:      r.Name,
			Country:   r.Country,
			Admin1:    r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timezone:  tz,
		})
	}
	return places, nil
}

type reverseResponse struct {
	Name    string `json:"name"`
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
	} `json:"address"`
}

// Reverse returns the locality name for lat/lon.
func (g *GeocodeClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait canceled: %w", err)
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", "10")

	body, err := g.reverse.get(ctx, EndpointReverse, g.reverseURL+"/reverse?"+q.Encode(), &FetchResult{})
	if err != nil {
		return "", err
	}

	var data reverseResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("unmarshal reverse: %w", err)
	}
	for _, name := range []string{data.Address.City, data.Address.Town, data.Address.Village, data.Address.Municipality, data.Name} {
		if name != "" {
			return name, nil
		}
	}
	return "", ErrNoResults
}

// Locate resolves coordinates to the nearest named place.
func (g *GeocodeClient) Locate(ctx context.Context, lat, lon float64) (*models.Place, error) {
	name, err := g.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	candidates, err := g.Search(ctx, name, locateCandidates)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", name, err)
	}
	p, ok := ClosestPlace(candidates, lat, lon)
	if !ok {
		return nil, fmt.Errorf("search %q: %w", name, ErrNoResults)
	}
	return &p, nil
}

// ClosestPlace picks the candidate nearest lat/lon by plain coordinate
// distance. Ties keep the earlier candidate.
func ClosestPlace(places []models.Place, lat, lon float64) (models.Place, bool) {
	if len(places) == 0 {
		return models.Place{}, false
	}
	best := 0
	bestDist := math.Inf(1)
	for i, p := range places {
		d := math.Hypot(p.Latitude-lat, p.Longitude-lon)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return places[best], true
}
