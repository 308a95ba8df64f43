package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/util"
)

// ErrNoResult means the geocoder answered but found nothing.
var ErrNoResult = errors.New("geocode: no result")

// Geocoder is the external (second) resolution tier.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
	Name() string
}

// OpenCage talks to an OpenCage-compatible forward geocoding endpoint.
type OpenCage struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
}

type openCageResp struct {
	Results []struct {
		Formatted string `json:"formatted"`
		Geometry  struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
}

// NewGeocoderFromConfig returns nil when no credential is configured; the
// external tier is then skipped for every run.
func NewGeocoderFromConfig(cfg config.GeocodeConfig) Geocoder {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	return &OpenCage{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		userAgent: cfg.UserAgent,
		client:    util.NewHTTPClient(cfg.Timeout),
	}
}

func (o *OpenCage) Name() string { return "opencage" }

func (o *OpenCage) Geocode(ctx context.Context, query string) (Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("key", o.apiKey)
	q.Set("limit", "1")
	q.Set("no_annotations", "1")

	body, err := util.GetBody(ctx, o.client, o.baseURL+"?"+q.Encode(), o.userAgent)
	if err != nil {
		return Place{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	var r openCageResp
	if err := json.Unmarshal(body, &r); err != nil {
		return Place{}, fmt.Errorf("geocode %q: decode: %w", query, err)
	}
	if len(r.Results) == 0 {
		return Place{}, ErrNoResult
	}
	first := r.Results[0]
	name := first.Formatted
	if name == "" {
		name = query
	}
	return Place{Name: name, Position: model.Position{Lat: first.Geometry.Lat, Lon: first.Geometry.Lng}}, nil
}
