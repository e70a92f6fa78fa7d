package main

import (
	"context"
	"io"
	"time"
)

type SiriJsonVehicleFeedSource struct {
	httpFeed
}

func NewSiriJsonVehicleFeedSource(url string, timeout time.Duration) *SiriJsonVehicleFeedSource {
	return &SiriJsonVehicleFeedSource{httpFeed: newHTTPFeed("siri json", url, timeout)}
}

func (s *SiriJsonVehicleFeedSource) Fetch(ctx context.Context) ([]Vehicle, error) {
	return s.get(ctx, func(r io.Reader) ([]Vehicle, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return decodeSiriJSON(b)
	})
}
