// Package mapview renders self-contained HTML map pages for the app's
// embedded web view, and GPX exports of recorded paths.
package mapview

import (
	"bytes"
	"html/template"
	"log"
)

const sdkURL = "https://dapi.kakao.com/v2/maps/sdk.js"

// DefaultCenter is used when there is nothing to center on (Seoul City Hall).
var DefaultCenter = LatLng{Lat: 37.5665, Lng: 126.9780}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Options struct {
	AppKey string
	Center LatLng
	Title  string
}

// Marker is one labelled point; Index is 1-based.
type Marker struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Index    int     `json:"index"`
}

type page struct {
	Title   string
	AppKey  string
	Center  LatLng
	Markers []Marker
	Path    []LatLng
	FitPath bool
}

var pageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8"/>
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>{{.Title}}</title>
	<style>
		body { margin: 0; padding: 0; width: 100%; height: 100vh; overflow: hidden; background: #f0f0f0; }
		#map { width: 100%; height: 100vh; }
		.custom-label { background-color: #1E88E5; color: white; padding: 8px 12px; border-radius: 20px; font-size: 14px; font-weight: bold; box-shadow: 0 2px 4px rgba(0,0,0,0.2); }
	</style>
	<script type="text/javascript" src="` + sdkURL + `?appkey={{.AppKey}}&autoload=false"></script>
</head>
<body>
	<div id="map"></div>
	<script>
		(function() {
			var markers = {{.Markers}};
			var path = {{.Path}};
			var center = {{.Center}};
			var container = document.getElementById('map');

			function fail() {
				container.innerHTML = '<div style="padding: 20px; text-align: center;">Map unavailable</div>';
			}

			if (!window.kakao || !kakao.maps || typeof kakao.maps.load !== 'function') {
				return fail();
			}

			kakao.maps.load(function() {
				var map = new kakao.maps.Map(container, {
					center: new kakao.maps.LatLng(center.lat, center.lng),
					level: 3
				});
				var bounds = new kakao.maps.LatLngBounds();
				var line = [];

				(markers || []).forEach(function(m) {
					var pos = new kakao.maps.LatLng(m.lat, m.lng);
					new kakao.maps.Marker({ position: pos }).setMap(map);
					var label = document.createElement('div');
					label.className = 'custom-label';
					label.textContent = m.index + '. ' + m.name;
					new kakao.maps.CustomOverlay({ position: pos, content: label, yAnchor: 2 }).setMap(map);
					bounds.extend(pos);
					line.push(pos);
				});

				if ((path || []).length > 0) {
					line = path.map(function(p) { return new kakao.maps.LatLng(p.lat, p.lng); });
					line.forEach(function(pos) { bounds.extend(pos); });
				}

				if (line.length > 1) {
					new kakao.maps.Polyline({
						path: line,
						strokeWeight: 5,
						strokeColor: '#1E88E5',
						strokeOpacity: 0.9,
						strokeStyle: 'solid'
					}).setMap(map);
				}
				if (line.length > 0) {
					map.setBounds(bounds);
				}
			});
		})();
	</script>
</body>
</html>`))

func render(p page) string {
	if p.Markers == nil {
		p.Markers = []Marker{}
	}
	if p.Path == nil {
		p.Path = []LatLng{}
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		log.Printf("map render error: %v", err)
		return ""
	}
	return buf.String()
}

func (o Options) center() LatLng {
	if o.Center == (LatLng{}) {
		return DefaultCenter
	}
	return o.Center
}

func (o Options) title(fallback string) string {
	if o.Title == "" {
		return fallback
	}
	return o.Title
}

// RenderMarkers renders a page with the given markers, centered on the first
// one or on the configured center when there are none.
func RenderMarkers(markers []Marker, opts Options) string {
	center := opts.center()
	if len(markers) > 0 {
		center = LatLng{Lat: markers[0].Lat, Lng: markers[0].Lng}
	}
	return render(page{
		Title:   opts.title("Landmarks"),
		AppKey:  opts.AppKey,
		Center:  center,
		Markers: markers,
	})
}

// RenderPath renders a page drawing path as a polyline, centered on the
// latest point.
func RenderPath(path []LatLng, opts Options) string {
	center := opts.center()
	if len(path) > 0 {
		center = path[len(path)-1]
	}
	return render(page{
		Title:  opts.title("Running route"),
		AppKey: opts.AppKey,
		Center: center,
		Path:   path,
	})
}
