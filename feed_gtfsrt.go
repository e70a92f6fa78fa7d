package main

import (
	"context"
	"io"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

type GtfsRtVehicleFeedSource struct {
	httpFeed
}

func NewGtfsRtVehicleFeedSource(url string, timeout time.Duration) *GtfsRtVehicleFeedSource {
	return &GtfsRtVehicleFeedSource{httpFeed: newHTTPFeed("gtfs-rt", url, timeout)}
}

func (s *GtfsRtVehicleFeedSource) Fetch(ctx context.Context) ([]Vehicle, error) {
	return s.get(ctx, func(r io.Reader) ([]Vehicle, error) {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		var feed gtfs.FeedMessage
		if err := proto.Unmarshal(body, &feed); err != nil {
			return nil, err
		}
		return vehiclesFromFeed(&feed), nil
	})
}

// vehiclesFromFeed keeps vehicle positions that carry an id and coordinates.
// The vehicle descriptor id is preferred over the entity id.
func vehiclesFromFeed(feed *gtfs.FeedMessage) []Vehicle {
	vehicles := make([]Vehicle, 0, len(feed.GetEntity()))
	for _, ent := range feed.GetEntity() {
		vp := ent.GetVehicle()
		pos := vp.GetPosition()
		if vp == nil || pos == nil || pos.Latitude == nil || pos.Longitude == nil {
			continue
		}
		id := vp.GetVehicle().GetId()
		if id == "" {
			id = ent.GetId()
		}
		if id == "" {
			continue
		}
		v := Vehicle{
			ID:  id,
			Lat: float64(pos.GetLatitude()),
			Lon: float64(pos.GetLongitude()),
		}
		if pos.Bearing != nil {
			b := float64(pos.GetBearing())
			v.Bearing = &b
		}
		vehicles = append(vehicles, v)
	}
	return vehicles
}
