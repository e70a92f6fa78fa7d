package marker

import "github.com/paulmach/orb"

// Surface is the drawable map. Positions are orb points (longitude first);
// the Session never passes sentinel coordinates or headings to it.
type Surface interface {
	InitMap(center orb.Point, token string) error
	AddOverlayRectangle(bounds orb.Bound, color string) error
	CreateMarker(pos orb.Point, icon IconCategory) (MarkerHandle, error)
	SetPosition(h MarkerHandle, pos orb.Point) error
	SetRotation(h MarkerHandle, degrees float64) error
	SetIcon(h MarkerHandle, icon IconCategory) error
	SetPopup(h MarkerHandle, text string) error
	Remove(h MarkerHandle) error
}
