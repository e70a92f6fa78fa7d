package main

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vehicle-visualizer/marker"
)

// poller fetches a transit feed periodically and turns what changed between
// two snapshots into object and objclean lines.
type poller struct {
	feed              VehicleFeedSource
	minRefreshSeconds int
	fetchTimeout      time.Duration
	stationType       int
	token             string
	out               chan<- string
	logger            *slog.Logger
	polls             *prometheus.CounterVec

	lastVehicles      map[string]Vehicle
	mostRecentFetchMs int64
	mapSent           bool
}

func newPoller(feed VehicleFeedSource, cfg Config, out chan<- string, logger *slog.Logger, reg prometheus.Registerer) *poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &poller{
		feed:              feed,
		minRefreshSeconds: cfg.Feed.RefreshMinSecs,
		fetchTimeout:      cfg.Feed.Timeout,
		stationType:       cfg.Feed.StationType,
		token:             cfg.Map.Token,
		out:               out,
		logger:            logger,
		lastVehicles:      make(map[string]Vehicle),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visualizer",
			Subsystem: "feed",
			Name:      "polls_total",
			Help:      "Feed polls by result",
		}, []string{"result"}),
	}
	if p.fetchTimeout <= 0 {
		p.fetchTimeout = 10 * time.Second
	}
	if reg != nil {
		reg.MustRegister(p.polls)
	}
	return p
}

func (p *poller) run(ctx context.Context) {
	interval := time.Duration(p.minRefreshSeconds) * time.Second
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			start := time.Now()
			p.tick(ctx)
			elapsed := time.Since(start)
			if p.mostRecentFetchMs != 0 {
				interval = maxDuration(elapsed/2, time.Duration(p.minRefreshSeconds)*time.Second)
			}
			t.Reset(interval)
		}
	}
}

func (p *poller) tick(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()
	vehicles, err := p.feed.Fetch(cctx)
	if err != nil {
		p.polls.WithLabelValues("error").Inc()
		p.logger.Warn("poll error", "error", err)
		return
	}
	p.polls.WithLabelValues("ok").Inc()
	p.logger.Debug("fetched vehicles", "count", len(vehicles))
	p.mostRecentFetchMs = time.Now().UnixMilli()

	var lines []string
	if !p.mapSent {
		line, ok := p.mapLine(vehicles)
		if !ok {
			return
		}
		lines = append(lines, line)
		p.mapSent = true
	}
	lines = append(lines, p.detectChanges(vehicles)...)
	if len(lines) > 0 {
		p.logger.Info("vehicles updated", "lines", len(lines))
	}
	for _, line := range lines {
		select {
		case p.out <- line:
		case <-ctx.Done():
			return
		}
	}
}

// mapLine centers the map on the mean position of the first snapshot.
func (p *poller) mapLine(in []Vehicle) (string, bool) {
	if len(in) == 0 {
		return "", false
	}
	var lat, lon float64
	for _, v := range in {
		lat += v.Lat
		lon += v.Lon
	}
	n := float64(len(in))
	token := p.token
	if token == "" {
		token = "none"
	}
	return strings.Join([]string{
		marker.TagMap, formatFloat(lat / n), formatFloat(lon / n), token,
	}, ","), true
}

// detectChanges returns lines for new or moved vehicles followed by one
// objclean line per vehicle missing from in. Output is ordered by id.
func (p *poller) detectChanges(in []Vehicle) []string {
	now := time.Now().UnixMilli()
	current := make(map[string]Vehicle, len(in))
	var updates []string
	for _, v := range in {
		v.ID = feedID(v.ID)
		if v.ID == "" {
			continue
		}
		if _, dup := current[v.ID]; dup {
			continue
		}
		prev, ok := p.lastVehicles[v.ID]
		if !ok || prev.Lat != v.Lat || prev.Lon != v.Lon || !sameBearing(prev.Bearing, v.Bearing) {
			if v.LastUpdate == 0 {
				v.LastUpdate = now
			}
			updates = append(updates, p.objectLine(v))
		} else {
			v.LastUpdate = prev.LastUpdate
		}
		current[v.ID] = v
	}
	var gone []string
	for id := range p.lastVehicles {
		if _, ok := current[id]; !ok {
			gone = append(gone, marker.TagObjectDrop+","+id)
		}
	}
	p.lastVehicles = current
	sort.Strings(updates)
	sort.Strings(gone)
	return append(updates, gone...)
}

func (p *poller) objectLine(v Vehicle) string {
	heading := float64(marker.InvalidHeading)
	if v.Bearing != nil {
		heading = *v.Bearing
	}
	return strings.Join([]string{
		marker.TagObject, v.ID, formatFloat(v.Lat), formatFloat(v.Lon),
		strconv.Itoa(p.stationType), formatFloat(heading),
	}, ",")
}

// feedID keeps feed ids from breaking the comma separated line format.
func feedID(id string) string {
	return strings.ReplaceAll(marker.NormalizeID(id), ",", "_")
}

func sameBearing(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
