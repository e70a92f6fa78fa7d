package marker

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ObjectRegistry holds one marker per moving object.
type ObjectRegistry struct {
	surface Surface
	objects map[string]*Object
}

// NewObjectRegistry returns an empty registry drawing on surface.
func NewObjectRegistry(surface Surface) *ObjectRegistry {
	return &ObjectRegistry{
		surface: surface,
		objects: make(map[string]*Object),
	}
}

// Upsert creates the object's marker on first sight and updates it afterwards.
func (r *ObjectRegistry) Upsert(u ObjectUpdate) error {
	id := NormalizeID(u.ID)
	if !ValidCoordinate(u.Position.Lat(), u.Position.Lon()) {
		return fmt.Errorf("%w: object %s at %v", ErrInvalidPosition, id, u.Position)
	}
	headingValid := HeadingValid(u.Heading)
	if obj, ok := r.objects[id]; ok {
		return r.update(obj, u, headingValid)
	}
	return r.create(id, u, headingValid)
}

func (r *ObjectRegistry) create(id string, u ObjectUpdate, headingValid bool) error {
	icon := ClassifyObject(u.StationType, headingValid)
	h, err := r.surface.CreateMarker(u.Position, icon)
	if err != nil {
		return fmt.Errorf("create marker for object %s: %w", id, err)
	}
	obj := &Object{
		ID:          id,
		Position:    u.Position,
		StationType: u.StationType,
		Heading:     u.Heading,
		Icon:        icon,
		Popup:       objectPopup(id, u.Heading, headingValid),
		Handle:      h,
	}

	rotation := 0.0
	if headingValid && !isPedestrian(u.StationType) {
		rotation = u.Heading
	}
	if err := r.surface.SetRotation(h, rotation); err != nil {
		return discard(r.surface, h, fmt.Errorf("rotate object %s: %w", id, err))
	}
	if err := r.surface.SetPopup(h, obj.Popup); err != nil {
		return discard(r.surface, h, fmt.Errorf("popup for object %s: %w", id, err))
	}
	r.objects[id] = obj
	return nil
}

// discard removes a marker whose setup failed half way and returns err.
func discard(surface Surface, h MarkerHandle, err error) error {
	if rerr := surface.Remove(h); rerr != nil {
		return errors.Join(err, fmt.Errorf("discard marker %s: %w", h, rerr))
	}
	return err
}

func (r *ObjectRegistry) update(obj *Object, u ObjectUpdate, headingValid bool) error {
	obj.Position = u.Position
	obj.StationType = u.StationType
	obj.Heading = u.Heading
	if err := r.surface.SetPosition(obj.Handle, u.Position); err != nil {
		return fmt.Errorf("move object %s: %w", obj.ID, err)
	}
	if headingValid && !isPedestrian(u.StationType) {
		if err := r.surface.SetRotation(obj.Handle, u.Heading); err != nil {
			return fmt.Errorf("rotate object %s: %w", obj.ID, err)
		}
	}

	// The popup reads "unavailable" only for markers still drawn as a plain
	// car; circles already say so.
	popup := obj.Popup
	switch {
	case headingValid:
		popup = objectPopup(obj.ID, u.Heading, true)
	case obj.Icon == IconPlainCar:
		popup = objectPopup(obj.ID, u.Heading, false)
	}
	if popup != obj.Popup {
		obj.Popup = popup
		if err := r.surface.SetPopup(obj.Handle, popup); err != nil {
			return fmt.Errorf("popup for object %s: %w", obj.ID, err)
		}
	}

	if next := NextObjectIcon(obj.Icon, u.StationType, headingValid); next != obj.Icon {
		obj.Icon = next
		if err := r.surface.SetIcon(obj.Handle, next); err != nil {
			return fmt.Errorf("icon for object %s: %w", obj.ID, err)
		}
	}
	return nil
}

// Remove deletes the object's marker. Unknown ids return ErrUnknownID.
func (r *ObjectRegistry) Remove(id string) error {
	id = NormalizeID(id)
	obj, ok := r.objects[id]
	if !ok {
		return fmt.Errorf("%w: object %s", ErrUnknownID, id)
	}
	delete(r.objects, id)
	if err := r.surface.Remove(obj.Handle); err != nil {
		return fmt.Errorf("remove object %s: %w", id, err)
	}
	return nil
}

// Get returns a copy of the object's state.
func (r *ObjectRegistry) Get(id string) (Object, bool) {
	obj, ok := r.objects[NormalizeID(id)]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// Len returns the number of tracked objects.
func (r *ObjectRegistry) Len() int {
	return len(r.objects)
}

// All returns copies of every tracked object, ordered by id.
func (r *ObjectRegistry) All() []Object {
	out := make([]Object, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, *obj)
	}
	slices.SortFunc(out, func(a, b Object) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func objectPopup(id string, heading float64, headingValid bool) string {
	if !headingValid {
		return "ID: " + id + " - Heading: unavailable"
	}
	return "ID: " + id + " - Heading: " + strconv.FormatFloat(heading, 'f', -1, 64) + " deg"
}
