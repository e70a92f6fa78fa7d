package main

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// siriFloat accepts SIRI numbers written either as JSON numbers or strings.
type siriFloat float64

func (f *siriFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = siriFloat(v)
	return nil
}

type siriLocation struct {
	Latitude  *siriFloat `xml:"Latitude" json:"Latitude"`
	Longitude *siriFloat `xml:"Longitude" json:"Longitude"`
}

type siriJourney struct {
	VehicleRef              string        `xml:"VehicleRef" json:"VehicleRef"`
	VehicleLocation         *siriLocation `xml:"VehicleLocation" json:"VehicleLocation"`
	Bearing                 *siriFloat    `xml:"Bearing" json:"Bearing"`
	FramedVehicleJourneyRef struct {
		DatedVehicleJourneyRef string `xml:"DatedVehicleJourneyRef" json:"DatedVehicleJourneyRef"`
	} `xml:"FramedVehicleJourneyRef" json:"FramedVehicleJourneyRef"`
}

// siriActivity is one VehicleActivity element. Some producers put the
// vehicle ref and location directly on the activity.
type siriActivity struct {
	RecordedAtTime          string        `xml:"RecordedAtTime" json:"RecordedAtTime"`
	VehicleRef              string        `xml:"VehicleRef" json:"VehicleRef"`
	VehicleLocation         *siriLocation `xml:"VehicleLocation" json:"VehicleLocation"`
	MonitoredVehicleJourney *siriJourney  `xml:"MonitoredVehicleJourney" json:"MonitoredVehicleJourney"`
}

func (a siriActivity) vehicle() (Vehicle, bool) {
	id, loc := a.VehicleRef, a.VehicleLocation
	var bearing *siriFloat
	if mvj := a.MonitoredVehicleJourney; mvj != nil {
		if mvj.VehicleRef != "" {
			id = mvj.VehicleRef
		}
		if id == "" {
			id = mvj.FramedVehicleJourneyRef.DatedVehicleJourneyRef
		}
		if mvj.VehicleLocation != nil {
			loc = mvj.VehicleLocation
		}
		bearing = mvj.Bearing
	}
	if id == "" || loc == nil || loc.Latitude == nil || loc.Longitude == nil {
		return Vehicle{}, false
	}
	v := Vehicle{ID: id, Lat: float64(*loc.Latitude), Lon: float64(*loc.Longitude)}
	if v.Lat == 0 && v.Lon == 0 {
		return Vehicle{}, false
	}
	if bearing != nil {
		b := float64(*bearing)
		v.Bearing = &b
	}
	if t, err := time.Parse(time.RFC3339, a.RecordedAtTime); err == nil {
		v.LastUpdate = t.UnixMilli()
	}
	return v, true
}

// siriJSONDelivery covers Siri?.ServiceDelivery.VehicleMonitoringDelivery[].VehicleActivity[].
type siriJSONDelivery struct {
	ServiceDelivery struct {
		VehicleMonitoringDelivery []struct {
			VehicleActivity []siriActivity `json:"VehicleActivity"`
		} `json:"VehicleMonitoringDelivery"`
	} `json:"ServiceDelivery"`
}

func decodeSiriJSON(b []byte) ([]Vehicle, error) {
	var wrapped struct {
		Siri *siriJSONDelivery `json:"Siri"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, err
	}
	root := wrapped.Siri
	if root == nil {
		root = &siriJSONDelivery{}
		if err := json.Unmarshal(b, root); err != nil {
			return nil, err
		}
	}
	var vehicles []Vehicle
	for _, vmd := range root.ServiceDelivery.VehicleMonitoringDelivery {
		for _, va := range vmd.VehicleActivity {
			if v, ok := va.vehicle(); ok {
				vehicles = append(vehicles, v)
			}
		}
	}
	return vehicles, nil
}
