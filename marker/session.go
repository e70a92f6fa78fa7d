package marker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Session owns the map surface and both registries for one upstream feed.
type Session struct {
	surface     Surface
	objects     *ObjectRegistry
	events      *EventRegistry
	mapReceived bool
	mapInit     MapInit

	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for dropped records and lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. A nil Metrics records nothing.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// NewSession returns a Session that waits for a map record before applying updates.
func NewSession(surface Surface, opts ...Option) *Session {
	s := &Session{
		surface: surface,
		objects: NewObjectRegistry(surface),
		events:  NewEventRegistry(surface),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleLine parses and applies one update line. A non-nil error means the
// record was dropped; it has already been logged and counted.
func (s *Session) HandleLine(line string) error {
	rec, err := ParseLine(line)
	if err != nil {
		return s.parseFailed(err)
	}
	return s.Apply(rec)
}

// Handle parses and applies one record given as decoded fields.
func (s *Session) Handle(fields []string) error {
	rec, err := Parse(fields)
	if err != nil {
		return s.parseFailed(err)
	}
	return s.Apply(rec)
}

// Apply runs a decoded record against the registries.
func (s *Session) Apply(rec Record) error {
	tag := rec.Tag()
	s.metrics.record(tag)

	var err error
	switch r := rec.(type) {
	case MapInit:
		err = s.initMap(r)
	case Terminate:
		s.logger.Info("upstream session terminated")
	case ObjectUpdate:
		if err = s.requireMap(); err == nil {
			err = s.objects.Upsert(r)
		}
	case ObjectClear:
		if err = s.requireMap(); err == nil {
			err = s.objects.Remove(r.ID)
		}
	case EventUpdate:
		if err = s.requireMap(); err == nil {
			err = s.events.Upsert(r)
		}
	case EventClear:
		if err = s.requireMap(); err == nil {
			err = s.events.Remove(r.ID)
		}
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownType, rec)
	}
	s.metrics.setLive(s.objects.Len(), s.events.Len())

	if errors.Is(err, ErrNoIcon) {
		// Stored anyway, with no drawable icon.
		s.logger.Warn("event has no icon", "error", err)
		return nil
	}
	if err != nil {
		return s.reject(tag, recordErr(tag, err))
	}
	return nil
}

func (s *Session) initMap(m MapInit) error {
	if s.mapReceived {
		s.logger.Debug("map already initialized, ignoring", "tag", m.Tag())
		return nil
	}
	if !ValidCoordinate(m.Center.Lat(), m.Center.Lon()) {
		return fmt.Errorf("%w: map center %v", ErrInvalidPosition, m.Center)
	}
	if err := s.surface.InitMap(m.Center, m.Token); err != nil {
		return fmt.Errorf("init map: %w", err)
	}
	s.mapReceived = true
	s.mapInit = m
	s.logger.Info("map initialized",
		"lat", m.Center.Lat(),
		"lon", m.Center.Lon(),
		"token", m.Token != "")

	// The map is up at this point; a missing rectangle does not undo it.
	for _, o := range m.Overlays() {
		if err := s.surface.AddOverlayRectangle(o.Bound, o.Color); err != nil {
			s.logger.Warn("overlay not drawn", "color", o.Color, "error", err)
		}
	}
	return nil
}

func (s *Session) requireMap() error {
	if !s.mapReceived {
		return ErrNoMap
	}
	return nil
}

// parseFailed ignores broken map records once the map exists, like any
// other repeated map record.
func (s *Session) parseFailed(err error) error {
	tag := tagOf(err)
	if s.mapReceived && (tag == TagMap || tag == TagMapAreas) {
		s.logger.Debug("map already initialized, ignoring", "tag", tag)
		return nil
	}
	return s.reject(tag, err)
}

func (s *Session) reject(tag string, err error) error {
	reason := Reason(err)
	s.metrics.drop(reason)
	level := slog.LevelError
	if reason == "unknown_id" || reason == "unknown_type" {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "record dropped", "tag", tag, "reason", reason, "error", err)
	return err
}

func tagOf(err error) string {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Tag
	}
	return ""
}

// MapReceived reports whether the map has been initialized.
func (s *Session) MapReceived() bool {
	return s.mapReceived
}

// Map returns the record the map was initialized with.
func (s *Session) Map() (MapInit, bool) {
	return s.mapInit, s.mapReceived
}

// Objects returns the moving-object registry.
func (s *Session) Objects() *ObjectRegistry {
	return s.objects
}

// Events returns the event registry.
func (s *Session) Events() *EventRegistry {
	return s.events
}
