// Package marker keeps the rendering state of map markers for moving traffic
// objects and road-hazard events.
//
// A Session ingests update lines ("object,42,45.0,7.6,5,90", "objclean,42",
// "event,E1,45.0,7.6,0,6", ...), keeps one marker per object or event id and
// drives a Surface, the drawable map, through create/update/remove calls. Icon
// categories are recomputed on every update and only pushed to the Surface
// when they change.
//
// A Session is owned by a single goroutine. Lines must be handled one at a
// time, in arrival order; no locking is done internally.
package marker
