package main

import (
	"context"
	"encoding/xml"
	"io"
	"time"
)

type SiriXmlVehicleFeedSource struct {
	httpFeed
}

func NewSiriXmlVehicleFeedSource(url string, timeout time.Duration) *SiriXmlVehicleFeedSource {
	return &SiriXmlVehicleFeedSource{httpFeed: newHTTPFeed("siri xml", url, timeout)}
}

func (s *SiriXmlVehicleFeedSource) Fetch(ctx context.Context) ([]Vehicle, error) {
	return s.get(ctx, decodeSiriXML)
}

// decodeSiriXML streams the document and decodes each VehicleActivity on its
// own, so namespaces and unrelated wrappers are ignored.
func decodeSiriXML(r io.Reader) ([]Vehicle, error) {
	dec := xml.NewDecoder(r)
	var vehicles []Vehicle
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return vehicles, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "VehicleActivity" {
			continue
		}
		var va siriActivity
		if err := dec.DecodeElement(&va, &se); err != nil {
			return nil, err
		}
		if v, ok := va.vehicle(); ok {
			vehicles = append(vehicles, v)
		}
	}
}
