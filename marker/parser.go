package marker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Message tags.
const (
	TagMapAreas   = "map_areas"
	TagMap        = "map"
	TagObject     = "object"
	TagObjectDrop = "objclean"
	TagEvent      = "event"
	TagEventDrop  = "objEventClean"
	TagTerminate  = "terminate"
)

// noToken is sent by upstream when no tile-provider token is configured.
const noToken = "none"

// Record is a decoded update line.
type Record interface {
	Tag() string
}

// MapInit centers the map and optionally describes the covered area. Bounds
// and extension factors hold InvalidCoordinate when not provided.
type MapInit struct {
	Center                         orb.Point
	MinLat, MinLon, MaxLat, MaxLon float64
	LatExt, LonExt                 float64
	Token                          string
	withAreas                      bool
}

// ObjectUpdate creates or moves a moving object.
type ObjectUpdate struct {
	ID          string
	Position    orb.Point
	StationType int
	Heading     float64
}

// ObjectClear removes a moving object.
type ObjectClear struct {
	ID string
}

// EventUpdate creates or moves a road-hazard event.
type EventUpdate struct {
	ID        string
	Position  orb.Point
	Elevation float64
	CauseCode int
}

// EventClear removes a road-hazard event.
type EventClear struct {
	ID string
}

// Terminate notes the end of the upstream session.
type Terminate struct{}

func (m MapInit) Tag() string {
	if m.withAreas {
		return TagMapAreas
	}
	return TagMap
}
func (ObjectUpdate) Tag() string { return TagObject }
func (ObjectClear) Tag() string  { return TagObjectDrop }
func (EventUpdate) Tag() string  { return TagEvent }
func (EventClear) Tag() string   { return TagEventDrop }
func (Terminate) Tag() string    { return TagTerminate }

// Overlay is a rectangle outline drawn over the map.
type Overlay struct {
	Bound orb.Bound
	Color string
}

// Overlays returns the rectangles to draw for m: the covered area in red and,
// when extension factors are present, the extended area in green.
func (m MapInit) Overlays() []Overlay {
	if !ValidCoordinate(m.MinLat, m.MinLon) || !ValidCoordinate(m.MaxLat, m.MaxLon) {
		return nil
	}
	out := []Overlay{{
		Bound: orb.Bound{Min: LatLon(m.MinLat, m.MinLon), Max: LatLon(m.MaxLat, m.MaxLon)},
		Color: "red",
	}}
	if !validFactor(m.LatExt) || !validFactor(m.LonExt) {
		return out
	}
	return append(out, Overlay{
		Bound: orb.Bound{
			Min: LatLon(m.MinLat-m.LatExt, m.MinLon-m.LonExt),
			Max: LatLon(m.MaxLat+m.LatExt, m.MaxLon+m.LonExt),
		},
		Color: "green",
	})
}

func validFactor(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f != InvalidCoordinate
}

// ParseLine splits a line on commas and parses it. Trailing line terminators
// are dropped first.
func ParseLine(line string) (Record, error) {
	return Parse(strings.Split(strings.TrimRight(line, "\r\n"), ","))
}

// Parse decodes ordered fields whose first entry is the message tag.
func Parse(fields []string) (Record, error) {
	if len(fields) == 0 {
		return nil, recordErr("", ErrMalformed)
	}
	tag := fields[0]
	p := fieldParser{tag: tag, fields: fields}
	var rec Record
	switch tag {
	case TagMapAreas:
		if err := p.expect(10); err != nil {
			return nil, err
		}
		rec = MapInit{
			Center:    LatLon(p.float(1), p.float(2)),
			MinLat:    p.float(3),
			MinLon:    p.float(4),
			MaxLat:    p.float(5),
			MaxLon:    p.float(6),
			LatExt:    p.float(7),
			LonExt:    p.float(8),
			Token:     token(fields[9]),
			withAreas: true,
		}
	case TagMap:
		if err := p.expect(4); err != nil {
			return nil, err
		}
		rec = MapInit{
			Center: LatLon(p.float(1), p.float(2)),
			MinLat: InvalidCoordinate, MinLon: InvalidCoordinate,
			MaxLat: InvalidCoordinate, MaxLon: InvalidCoordinate,
			LatExt: InvalidCoordinate, LonExt: InvalidCoordinate,
			Token: token(fields[3]),
		}
	case TagObject:
		if err := p.expect(6); err != nil {
			return nil, err
		}
		rec = ObjectUpdate{
			ID:          p.id(1),
			Position:    LatLon(p.float(2), p.float(3)),
			StationType: p.integer(4),
			Heading:     p.float(5),
		}
	case TagObjectDrop:
		if err := p.expect(2); err != nil {
			return nil, err
		}
		rec = ObjectClear{ID: p.id(1)}
	case TagEvent:
		if err := p.expect(6); err != nil {
			return nil, err
		}
		rec = EventUpdate{
			ID:        p.id(1),
			Position:  LatLon(p.float(2), p.float(3)),
			Elevation: p.float(4),
			CauseCode: p.integer(5),
		}
	case TagEventDrop:
		if err := p.expect(2); err != nil {
			return nil, err
		}
		rec = EventClear{ID: p.id(1)}
	case TagTerminate:
		rec = Terminate{}
	default:
		return nil, recordErr(tag, ErrUnknownType)
	}
	if p.err != nil {
		return nil, p.err
	}
	return rec, nil
}

func token(s string) string {
	s = strings.TrimSpace(s)
	if s == noToken {
		return ""
	}
	return s
}

// fieldParser keeps the first conversion error so a record can be decoded
// field by field and checked once.
type fieldParser struct {
	tag    string
	fields []string
	err    error
}

func (p *fieldParser) expect(n int) error {
	if len(p.fields) != n {
		return recordErr(p.tag, fmt.Errorf("%w: want %d fields, got %d", ErrMalformed, n, len(p.fields)))
	}
	return nil
}

func (p *fieldParser) fail(i int, what string) {
	if p.err == nil {
		p.err = recordErr(p.tag, fmt.Errorf("%w: field %d: %s %q", ErrMalformed, i, what, p.fields[i]))
	}
}

func (p *fieldParser) float(i int) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(p.fields[i]), 64)
	if err != nil {
		p.fail(i, "not a number")
		return math.NaN()
	}
	return f
}

// integer accepts decimal notation too ("5.0"), truncating like upstream does.
func (p *fieldParser) integer(i int) int {
	s := strings.TrimSpace(p.fields[i])
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(i, "not an integer")
		return 0
	}
	return int(f)
}

func (p *fieldParser) id(i int) string {
	if NormalizeID(p.fields[i]) == "" {
		p.fail(i, "empty id")
	}
	return p.fields[i]
}
