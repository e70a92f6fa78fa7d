package marker

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *fakeSurface, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	surface := newFakeSurface()
	return NewSession(surface, WithLogger(logger)), surface, &logs
}

func handleAll(t *testing.T, s *Session, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, s.HandleLine(line), line)
	}
}

func TestSession_UpdatesBeforeMapAreDropped(t *testing.T) {
	s, surface, logs := newTestSession(t)

	for _, line := range []string{
		"object,42,45.0,7.6,3,90",
		"objclean,42",
		"event,E1,45.0,7.6,0,6",
		"objEventClean,E1",
	} {
		assert.ErrorIs(t, s.HandleLine(line), ErrNoMap, line)
	}
	assert.Empty(t, surface.calls)
	assert.Equal(t, 0, s.Objects().Len())
	assert.Equal(t, 0, s.Events().Len())
	assert.Contains(t, logs.String(), "reason=no_map")
}

func TestSession_MapInitOnlyOnce(t *testing.T) {
	s, surface, _ := newTestSession(t)

	handleAll(t, s,
		"map_areas,45.06,7.66,45.0,7.6,45.1,7.7,0.01,0.01,tok",
		"map,10,10,other",
		"map_areas,1,2,3",
	)
	assert.True(t, s.MapReceived())
	assert.Equal(t, 1, surface.count("init"))
	assert.Equal(t, "tok", surface.token)
	assert.Equal(t, LatLon(45.06, 7.66), surface.center)
	require.Len(t, surface.overlays, 2)
	assert.Equal(t, "red", surface.overlays[0].Color)
	assert.Equal(t, "green", surface.overlays[1].Color)

	m, ok := s.Map()
	require.True(t, ok)
	assert.Equal(t, TagMapAreas, m.Tag())
}

func TestSession_MalformedMapBeforeInit(t *testing.T) {
	s, surface, _ := newTestSession(t)
	assert.ErrorIs(t, s.HandleLine("map,45"), ErrMalformed)
	assert.ErrorIs(t, s.HandleLine("map,-80000,-80000,none"), ErrInvalidPosition)
	assert.False(t, s.MapReceived())
	assert.Empty(t, surface.calls)

	handleAll(t, s, "map,45,7,none")
	assert.True(t, s.MapReceived())
	assert.Empty(t, surface.token)
	assert.Empty(t, surface.overlays)
}

func TestSession_ObjectScenario(t *testing.T) {
	s, surface, _ := newTestSession(t)
	handleAll(t, s, "map,45,7.6,none")

	handleAll(t, s, "object,42,45.0,7.6,3,90")
	obj, ok := s.Objects().Get("42")
	require.True(t, ok)
	assert.Equal(t, IconPlainCar, obj.Icon)

	handleAll(t, s, "object,42,45.0,7.6,3,361")
	obj, _ = s.Objects().Get("42")
	assert.Equal(t, IconCircle, obj.Icon)

	handleAll(t, s, "object,42,45.0,7.6,3,45")
	obj, _ = s.Objects().Get("42")
	assert.Equal(t, IconPlainCar, obj.Icon)

	handleAll(t, s, "objclean,42")
	assert.Equal(t, 0, s.Objects().Len())
	assert.Empty(t, surface.markers)
}

func TestSession_EventScenario(t *testing.T) {
	s, surface, logs := newTestSession(t)
	handleAll(t, s,
		"map,45,7.6,none",
		"event,E1,45.0,7.6,0,6",
	)
	ev, _ := s.Events().Get("E1")
	assert.Equal(t, IconIcyRoad, ev.Icon)

	handleAll(t, s, "event,E1,45.1,7.7,0,7")
	ev, _ = s.Events().Get("E1")
	assert.Equal(t, IconGenericDanger, ev.Icon)
	assert.Equal(t, LatLon(45.1, 7.7), ev.Position)

	handleAll(t, s, "objEventClean,E1")
	assert.Equal(t, 0, s.Events().Len())

	err := s.HandleLine("objEventClean,E1")
	assert.ErrorIs(t, err, ErrUnknownID)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Empty(t, surface.markers)
}

func TestSession_MalformedLeavesStateUntouched(t *testing.T) {
	s, surface, _ := newTestSession(t)
	handleAll(t, s, "map,45,7.6,none", "object,1,45.0,7.6,3,90")
	before, _ := s.Objects().Get("1")
	calls := len(surface.calls)

	assert.ErrorIs(t, s.HandleLine("object,1,2,3"), ErrMalformed)
	assert.ErrorIs(t, s.HandleLine("object,1,46.0,7.6,3,east"), ErrMalformed)
	assert.ErrorIs(t, s.Handle([]string{"objclean"}), ErrMalformed)

	after, _ := s.Objects().Get("1")
	assert.Equal(t, before, after)
	assert.Len(t, surface.calls, calls)
}

func TestSession_UnknownTypeAndTerminate(t *testing.T) {
	s, surface, logs := newTestSession(t)
	handleAll(t, s, "map,45,7.6,none")
	calls := len(surface.calls)

	assert.ErrorIs(t, s.HandleLine("spaceship,1"), ErrUnknownType)
	handleAll(t, s, "terminate")
	assert.Len(t, surface.calls, calls)
	assert.Contains(t, logs.String(), "upstream session terminated")
}

func TestSession_UnknownObjectRemovalReported(t *testing.T) {
	s, _, _ := newTestSession(t)
	handleAll(t, s, "map,45,7.6,none")
	assert.ErrorIs(t, s.HandleLine("objclean,404"), ErrUnknownID)
}

func TestSession_EventWithoutIconIsKept(t *testing.T) {
	s, _, logs := newTestSession(t)
	handleAll(t, s, "map,45,7.6,none", "event,E9,45.0,7.6,0,94")
	ev, ok := s.Events().Get("E9")
	require.True(t, ok)
	assert.Equal(t, IconNone, ev.Icon)
	assert.Contains(t, logs.String(), "event has no icon")
}

func TestSession_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := NewSession(newFakeSurface(), WithMetrics(m), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	_ = s.HandleLine("object,1,45,7,3,90")
	_ = s.HandleLine("map,45,7,none")
	_ = s.HandleLine("object,1,45,7,3,90")
	_ = s.HandleLine("object,2,45,7,3,90")
	_ = s.HandleLine("event,E1,45,7,0,6")
	_ = s.HandleLine("object,1,2")
	_ = s.HandleLine("nonsense")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.records.WithLabelValues(TagObject)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("no_map")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("unknown_type")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.live.WithLabelValues("objects")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.live.WithLabelValues("events")))
}

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	assert.Nil(t, m)
	m.record("object")
	m.drop("malformed")
	m.setLive(1, 1)
}

func TestSession_InfiniteHeadingDrawsCircle(t *testing.T) {
	s, surface, _ := newTestSession(t)
	handleAll(t, s, "map,45,7.6,none", "object,9,45,7.6,3,-Inf", "object,9,45.01,7.6,3,+Inf")

	obj, ok := s.Objects().Get("9")
	require.True(t, ok)
	assert.Equal(t, IconCircle, obj.Icon)
	assert.Equal(t, "ID: 9 - Heading: unavailable", obj.Popup)
	assert.Equal(t, 1, surface.count("rotation"))
	assert.Equal(t, 0.0, surface.markers[obj.Handle].rotation)
}

func TestSession_SurfaceFailureDropsWithoutState(t *testing.T) {
	reg := prometheus.NewRegistry()
	surface := newFakeSurface()
	s := NewSession(surface, WithMetrics(NewMetrics(reg)))
	handleAll(t, s, "map,45,7.6,none")

	surface.failRotation = errors.New("rotation rejected")
	err := s.HandleLine("object,1,45,7.6,3,90")
	require.ErrorIs(t, err, surface.failRotation)
	assert.Equal(t, 0, s.Objects().Len())
	assert.Empty(t, surface.markers)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.dropped.WithLabelValues("surface")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.live.WithLabelValues("objects")))
}

func TestSession_OverlayFailureKeepsMap(t *testing.T) {
	s, surface, logs := newTestSession(t)
	surface.failOverlay = errors.New("no rectangles")

	require.NoError(t, s.HandleLine("map_areas,45.06,7.66,45.0,7.6,45.1,7.7,0.01,0.01,tok"))
	assert.True(t, s.MapReceived())
	assert.Equal(t, 2, surface.count("rect"))
	assert.Contains(t, logs.String(), "overlay not drawn")

	require.NoError(t, s.HandleLine("object,1,45.05,7.65,3,90"))
	assert.Equal(t, 1, s.Objects().Len())
}
