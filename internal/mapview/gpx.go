package mapview

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

type TrackPoint struct {
	Lat  float64
	Lng  float64
	Time time.Time
}

// GPX builds a GPX 1.1 document with a single track segment.
func GPX(name string, points []TrackPoint) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<gpx version="1.1" creator="runmate" xmlns="http://www.topografix.com/GPX/1/1">`)
	sb.WriteString(`<trk><name>`)
	_ = xml.EscapeText(&sb, []byte(name))
	sb.WriteString(`</name><trkseg>`)

	for _, pt := range points {
		sb.WriteString(fmt.Sprintf(`<trkpt lat="%.6f" lon="%.6f">`, pt.Lat, pt.Lng))
		if !pt.Time.IsZero() {
			sb.WriteString(`<time>` + pt.Time.UTC().Format(time.RFC3339) + `</time>`)
		}
		sb.WriteString(`</trkpt>`)
	}

	sb.WriteString(`</trkseg></trk></gpx>`)
	return sb.String()
}
