package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VehicleFeedSource fetches the current vehicle positions of a transit feed.
type VehicleFeedSource interface {
	Fetch(ctx context.Context) ([]Vehicle, error)
}

// selectFeed returns the configured feed, or nil when none is set.
func selectFeed(cfg FeedConfig) VehicleFeedSource {
	switch {
	case cfg.GTFSRTURL != "":
		return NewGtfsRtVehicleFeedSource(cfg.GTFSRTURL, cfg.Timeout)
	case cfg.SiriXMLURL != "":
		return NewSiriXmlVehicleFeedSource(cfg.SiriXMLURL, cfg.Timeout)
	case cfg.SiriJSONURL != "":
		return NewSiriJsonVehicleFeedSource(cfg.SiriJSONURL, cfg.Timeout)
	}
	return nil
}

type httpFeed struct {
	kind       string
	url        string
	httpClient *http.Client
}

func newHTTPFeed(kind, url string, timeout time.Duration) httpFeed {
	return httpFeed{
		kind:       kind,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// get performs the GET and hands the body to decode.
func (f httpFeed) get(ctx context.Context, decode func(io.Reader) ([]Vehicle, error)) ([]Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s http status: %d", f.kind, resp.StatusCode)
	}
	vehicles, err := decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s feed: %w", f.kind, err)
	}
	return vehicles, nil
}
