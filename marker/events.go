package marker

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// EventRegistry holds one marker per road-hazard event, keyed by normalized id.
type EventRegistry struct {
	surface Surface
	events  map[string]*Event
}

// NewEventRegistry returns an empty registry drawing on surface.
func NewEventRegistry(surface Surface) *EventRegistry {
	return &EventRegistry{
		surface: surface,
		events:  make(map[string]*Event),
	}
}

// Upsert creates the event's marker on first sight and updates it afterwards.
// An event whose cause code has no icon is still stored; Upsert then returns
// ErrNoIcon alongside the stored state so the caller can warn about it.
func (r *EventRegistry) Upsert(u EventUpdate) error {
	id := NormalizeID(u.ID)
	if !ValidCoordinate(u.Position.Lat(), u.Position.Lon()) {
		return fmt.Errorf("%w: event %s at %v", ErrInvalidPosition, id, u.Position)
	}
	icon := ClassifyEvent(u.CauseCode)
	popup := eventPopup(id, u.CauseCode)

	ev, ok := r.events[id]
	if !ok {
		h, err := r.surface.CreateMarker(u.Position, icon)
		if err != nil {
			return fmt.Errorf("create marker for event %s: %w", id, err)
		}
		ev = &Event{
			ID:        id,
			Position:  u.Position,
			Elevation: u.Elevation,
			CauseCode: u.CauseCode,
			Icon:      icon,
			Popup:     popup,
			Handle:    h,
		}
		if err := r.surface.SetPopup(h, popup); err != nil {
			return discard(r.surface, h, fmt.Errorf("popup for event %s: %w", id, err))
		}
		r.events[id] = ev
		return noIcon(id, u.CauseCode, icon)
	}

	ev.Position = u.Position
	ev.Elevation = u.Elevation
	ev.CauseCode = u.CauseCode
	if err := r.surface.SetPosition(ev.Handle, u.Position); err != nil {
		return fmt.Errorf("move event %s: %w", id, err)
	}
	if popup != ev.Popup {
		ev.Popup = popup
		if err := r.surface.SetPopup(ev.Handle, popup); err != nil {
			return fmt.Errorf("popup for event %s: %w", id, err)
		}
	}
	if icon != ev.Icon {
		ev.Icon = icon
		if err := r.surface.SetIcon(ev.Handle, icon); err != nil {
			return fmt.Errorf("icon for event %s: %w", id, err)
		}
	}
	return noIcon(id, u.CauseCode, icon)
}

func noIcon(id string, causeCode int, icon IconCategory) error {
	if icon != IconNone {
		return nil
	}
	return fmt.Errorf("%w: event %s, cause code %d", ErrNoIcon, id, causeCode)
}

// Remove deletes the event's marker. Unknown ids return ErrUnknownID.
func (r *EventRegistry) Remove(id string) error {
	id = NormalizeID(id)
	ev, ok := r.events[id]
	if !ok {
		return fmt.Errorf("%w: event %s", ErrUnknownID, id)
	}
	delete(r.events, id)
	if err := r.surface.Remove(ev.Handle); err != nil {
		return fmt.Errorf("remove event %s: %w", id, err)
	}
	return nil
}

// Get returns a copy of the event's state.
func (r *EventRegistry) Get(id string) (Event, bool) {
	ev, ok := r.events[NormalizeID(id)]
	if !ok {
		return Event{}, false
	}
	return *ev, true
}

// Len returns the number of tracked events.
func (r *EventRegistry) Len() int {
	return len(r.events)
}

// All returns copies of every tracked event, ordered by id.
func (r *EventRegistry) All() []Event {
	out := make([]Event, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, *ev)
	}
	slices.SortFunc(out, func(a, b Event) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func eventPopup(id string, causeCode int) string {
	return "ID: " + id + " - Cause Code: " + strconv.Itoa(causeCode)
}
