package marker

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// InvalidCoordinate is the upstream value for an unavailable latitude or longitude.
	InvalidCoordinate = -80000
	// InvalidHeading is the upstream value for an unavailable heading. Any
	// heading at or above it is unavailable.
	InvalidHeading = 361
)

// Station types with a dedicated icon.
const (
	StationDetected     = 0
	StationPedestrian   = 1
	StationPedestrianV2 = 110
	StationVehicle      = 115
	StationTruck        = 117
)

// Event cause codes with a dedicated icon.
const (
	CauseIcyRoad       = 6
	CauseGenericDanger = 7
)

// IconCategory identifies the glyph drawn for a marker.
type IconCategory int

const (
	IconNone IconCategory = iota
	IconPlainCar
	IconCircle
	IconGreenCircle
	IconDetectedCar
	IconDetectedPedestrian
	IconDetectedTruck
	IconIcyRoad
	IconGenericDanger
)

var iconNames = map[IconCategory]string{
	IconNone:               "none",
	IconPlainCar:           "plain_car",
	IconCircle:             "circle",
	IconGreenCircle:        "green_circle",
	IconDetectedCar:        "detected_car",
	IconDetectedPedestrian: "detected_pedestrian",
	IconDetectedTruck:      "detected_truck",
	IconIcyRoad:            "icy_road",
	IconGenericDanger:      "generic_danger",
}

func (c IconCategory) String() string {
	if s, ok := iconNames[c]; ok {
		return s
	}
	return "unknown"
}

// MarshalText lets icon categories travel as names in JSON drawing commands.
func (c IconCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// MarkerHandle is an opaque reference to a marker issued by a Surface.
type MarkerHandle string

// Object is the marker state of a moving object.
type Object struct {
	ID          string
	Position    orb.Point
	StationType int
	Heading     float64
	Icon        IconCategory
	Popup       string
	Handle      MarkerHandle
}

// Event is the marker state of a road-hazard event.
type Event struct {
	ID        string
	Position  orb.Point
	Elevation float64
	CauseCode int
	Icon      IconCategory
	Popup     string
	Handle    MarkerHandle
}

// LatLon builds an orb.Point, which stores longitude first.
func LatLon(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// ValidCoordinate reports whether lat/lon is a real position: finite, in
// range and not the InvalidCoordinate sentinel.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
