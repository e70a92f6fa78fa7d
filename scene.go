package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"vehicle-visualizer/marker"
)

// Drawing command ops sent to browser clients.
const (
	opInit     = "init"
	opRect     = "rect"
	opCreate   = "create"
	opPosition = "position"
	opRotation = "rotation"
	opIcon     = "icon"
	opPopup    = "popup"
	opRemove   = "remove"
)

var errUnknownHandle = errors.New("unknown marker handle")

// latLng is a [lat, lon] pair, the order browser map widgets expect.
type latLng [2]float64

func toLatLng(p orb.Point) *latLng {
	return &latLng{p.Lat(), p.Lon()}
}

type command struct {
	Op       string              `json:"op"`
	Handle   marker.MarkerHandle `json:"handle,omitempty"`
	Position *latLng             `json:"position,omitempty"`
	Bounds   []latLng            `json:"bounds,omitempty"`
	Icon     string              `json:"icon,omitempty"`
	Rotation *float64            `json:"rotation,omitempty"`
	Popup    *string             `json:"popup,omitempty"`
	Color    string              `json:"color,omitempty"`
	Token    string              `json:"token,omitempty"`
}

type markerView struct {
	handle   marker.MarkerHandle
	position latLng
	icon     string
	rotation float64
	popup    string
}

// scene is the server-side copy of what clients should be showing.
type scene struct {
	center   *latLng
	token    string
	overlays []command
	markers  map[marker.MarkerHandle]*markerView
	order    []marker.MarkerHandle
}

func newScene() *scene {
	return &scene{markers: make(map[marker.MarkerHandle]*markerView)}
}

func (s *scene) apply(cmd command) error {
	switch cmd.Op {
	case opInit:
		s.center = cmd.Position
		s.token = cmd.Token
		return nil
	case opRect:
		s.overlays = append(s.overlays, cmd)
		return nil
	case opCreate:
		s.markers[cmd.Handle] = &markerView{
			handle:   cmd.Handle,
			position: *cmd.Position,
			icon:     cmd.Icon,
		}
		s.order = append(s.order, cmd.Handle)
		return nil
	}

	m, ok := s.markers[cmd.Handle]
	if !ok {
		return fmt.Errorf("%s %s: %w", cmd.Op, cmd.Handle, errUnknownHandle)
	}
	switch cmd.Op {
	case opPosition:
		m.position = *cmd.Position
	case opRotation:
		m.rotation = *cmd.Rotation
	case opIcon:
		m.icon = cmd.Icon
	case opPopup:
		m.popup = *cmd.Popup
	case opRemove:
		delete(s.markers, cmd.Handle)
		s.order = slices.DeleteFunc(s.order, func(h marker.MarkerHandle) bool { return h == cmd.Handle })
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
	return nil
}

// replay returns the commands that rebuild the scene on a fresh client.
func (s *scene) replay() []command {
	if s.center == nil {
		return nil
	}
	out := make([]command, 0, 1+len(s.overlays)+len(s.markers))
	out = append(out, command{Op: opInit, Position: s.center, Token: s.token})
	out = append(out, s.overlays...)
	for _, h := range s.order {
		m := s.markers[h]
		pos := m.position
		rotation := m.rotation
		popup := m.popup
		out = append(out, command{
			Op:       opCreate,
			Handle:   h,
			Position: &pos,
			Icon:     m.icon,
			Rotation: &rotation,
			Popup:    &popup,
		})
	}
	return out
}

// wsSurface implements marker.Surface on top of the websocket hub.
type wsSurface struct {
	hub *wsHub
}

var _ marker.Surface = (*wsSurface)(nil)

func newWSSurface(hub *wsHub) *wsSurface {
	return &wsSurface{hub: hub}
}

func (s *wsSurface) InitMap(center orb.Point, token string) error {
	return s.hub.apply(command{Op: opInit, Position: toLatLng(center), Token: token})
}

func (s *wsSurface) AddOverlayRectangle(b orb.Bound, color string) error {
	return s.hub.apply(command{
		Op:     opRect,
		Bounds: []latLng{*toLatLng(b.Min), *toLatLng(b.Max)},
		Color:  color,
	})
}

func (s *wsSurface) CreateMarker(pos orb.Point, icon marker.IconCategory) (marker.MarkerHandle, error) {
	h := marker.MarkerHandle(uuid.NewString())
	if err := s.hub.apply(command{Op: opCreate, Handle: h, Position: toLatLng(pos), Icon: icon.String()}); err != nil {
		return "", err
	}
	return h, nil
}

func (s *wsSurface) SetPosition(h marker.MarkerHandle, pos orb.Point) error {
	return s.hub.apply(command{Op: opPosition, Handle: h, Position: toLatLng(pos)})
}

func (s *wsSurface) SetRotation(h marker.MarkerHandle, degrees float64) error {
	return s.hub.apply(command{Op: opRotation, Handle: h, Rotation: &degrees})
}

func (s *wsSurface) SetIcon(h marker.MarkerHandle, icon marker.IconCategory) error {
	return s.hub.apply(command{Op: opIcon, Handle: h, Icon: icon.String()})
}

func (s *wsSurface) SetPopup(h marker.MarkerHandle, text string) error {
	return s.hub.apply(command{Op: opPopup, Handle: h, Popup: &text})
}

func (s *wsSurface) Remove(h marker.MarkerHandle) error {
	return s.hub.apply(command{Op: opRemove, Handle: h})
}
