package main

// Vehicle is the normalized model produced by every polled feed.
type Vehicle struct {
	ID         string
	Lat        float64
	Lon        float64
	Bearing    *float64
	LastUpdate int64
}
