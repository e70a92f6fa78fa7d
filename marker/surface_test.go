package marker

import (
	"fmt"

	"github.com/paulmach/orb"
)

type surfaceCall struct {
	Op     string
	Handle MarkerHandle
	Pos    orb.Point
	Icon   IconCategory
	Value  float64
	Text   string
	Bound  orb.Bound
}

type fakeMarker struct {
	pos      orb.Point
	icon     IconCategory
	rotation float64
	popup    string
}

// fakeSurface records every call and keeps the resulting marker state.
type fakeSurface struct {
	seq        int
	calls      []surfaceCall
	markers    map[MarkerHandle]*fakeMarker
	center     orb.Point
	token      string
	overlays   []Overlay
	failCreate   error
	failRotation error
	failPopup    error
	failOverlay  error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{markers: make(map[MarkerHandle]*fakeMarker)}
}

func (f *fakeSurface) InitMap(center orb.Point, token string) error {
	f.calls = append(f.calls, surfaceCall{Op: "init", Pos: center, Text: token})
	f.center, f.token = center, token
	return nil
}

func (f *fakeSurface) AddOverlayRectangle(b orb.Bound, color string) error {
	f.calls = append(f.calls, surfaceCall{Op: "rect", Bound: b, Text: color})
	if f.failOverlay != nil {
		return f.failOverlay
	}
	f.overlays = append(f.overlays, Overlay{Bound: b, Color: color})
	return nil
}

func (f *fakeSurface) CreateMarker(pos orb.Point, icon IconCategory) (MarkerHandle, error) {
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.seq++
	h := MarkerHandle(fmt.Sprintf("m%d", f.seq))
	f.calls = append(f.calls, surfaceCall{Op: "create", Handle: h, Pos: pos, Icon: icon})
	f.markers[h] = &fakeMarker{pos: pos, icon: icon}
	return h, nil
}

func (f *fakeSurface) marker(h MarkerHandle) (*fakeMarker, error) {
	m, ok := f.markers[h]
	if !ok {
		return nil, fmt.Errorf("no marker %s", h)
	}
	return m, nil
}

func (f *fakeSurface) SetPosition(h MarkerHandle, pos orb.Point) error {
	f.calls = append(f.calls, surfaceCall{Op: "position", Handle: h, Pos: pos})
	m, err := f.marker(h)
	if err != nil {
		return err
	}
	m.pos = pos
	return nil
}

func (f *fakeSurface) SetRotation(h MarkerHandle, degrees float64) error {
	f.calls = append(f.calls, surfaceCall{Op: "rotation", Handle: h, Value: degrees})
	if f.failRotation != nil {
		return f.failRotation
	}
	m, err := f.marker(h)
	if err != nil {
		return err
	}
	m.rotation = degrees
	return nil
}

func (f *fakeSurface) SetIcon(h MarkerHandle, icon IconCategory) error {
	f.calls = append(f.calls, surfaceCall{Op: "icon", Handle: h, Icon: icon})
	m, err := f.marker(h)
	if err != nil {
		return err
	}
	m.icon = icon
	return nil
}

func (f *fakeSurface) SetPopup(h MarkerHandle, text string) error {
	f.calls = append(f.calls, surfaceCall{Op: "popup", Handle: h, Text: text})
	if f.failPopup != nil {
		return f.failPopup
	}
	m, err := f.marker(h)
	if err != nil {
		return err
	}
	m.popup = text
	return nil
}

func (f *fakeSurface) Remove(h MarkerHandle) error {
	f.calls = append(f.calls, surfaceCall{Op: "remove", Handle: h})
	if _, err := f.marker(h); err != nil {
		return err
	}
	delete(f.markers, h)
	return nil
}

func (f *fakeSurface) count(op string) int {
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}
