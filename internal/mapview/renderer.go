// Package mapview owns the interactive map surface: the map instance, the
// markers built from a resolved record set and the lazily loaded popup
// details behind each marker.
//
// All marker and map state is mutated on a single event-loop goroutine per
// Surface. Network work runs elsewhere and posts its result back.
package mapview

// Renderer creates map instances. It abstracts the rendering library so the
// surface can run headless.
type Renderer interface {
	NewMap(opts MapOptions) (MapInstance, error)
}

// MapInstance is one live map.
type MapInstance interface {
	// OnLoad registers fn to run once the map can receive markers. If the map
	// is already loaded fn runs immediately. fn may be called from any
	// goroutine.
	OnLoad(fn func())
	AddMarker(spec MarkerSpec) (Marker, error)
	Remove()
}

// Marker is a visual marker with an attached popup.
type Marker interface {
	// SetComments replaces the deferred comment area of the popup.
	SetComments(lines []string)
	Remove()
}

// MarkerSpec describes a marker to add. OnOpen and OnClose fire on popup
// interaction and may be called from any goroutine.
type MarkerSpec struct {
	ID      string
	Lat     float64
	Lng     float64
	Popup   PopupContent
	OnOpen  func()
	OnClose func()
}

// MapOptions configures a new map instance.
type MapOptions struct {
	Style               string
	CenterLat           float64
	CenterLng           float64
	Zoom                float64
	Pitch               float64
	Bearing             float64
	NavigationControl   bool
	GeolocateControl    bool
	ScrollZoom          bool
	CooperativeGestures bool
}

// DefaultMapOptions centers on Rio de Janeiro with scroll zoom disabled so
// the page keeps scrolling over the map.
func DefaultMapOptions() MapOptions {
	return MapOptions{
		Style:               "mapbox://styles/mapbox/light-v11",
		CenterLat:           -22.9083,
		CenterLng:           -43.1964,
		Zoom:                10,
		Pitch:               45,
		Bearing:             -10,
		NavigationControl:   true,
		GeolocateControl:    true,
		ScrollZoom:          false,
		CooperativeGestures: true,
	}
}
