package mapview

import (
	"errors"
	"sync"
)

var errMapRemoved = errors.New("map removed")

// MemoryRenderer is a headless Renderer. Maps load immediately unless the
// renderer was created with ManualLoad, in which case MemoryMap.Load fires
// the load callbacks.
type MemoryRenderer struct {
	mu         sync.Mutex
	manualLoad bool
	maps       []*MemoryMap
}

// MemoryOption configures a MemoryRenderer.
type MemoryOption func(*MemoryRenderer)

// ManualLoad defers map load until MemoryMap.Load is called.
func ManualLoad() MemoryOption {
	return func(r *MemoryRenderer) { r.manualLoad = true }
}

func NewMemoryRenderer(opts ...MemoryOption) *MemoryRenderer {
	r := &MemoryRenderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRenderer) NewMap(opts MapOptions) (MapInstance, error) {
	m := &MemoryMap{opts: opts, loaded: !r.manualLoad}
	r.mu.Lock()
	r.maps = append(r.maps, m)
	r.mu.Unlock()
	return m, nil
}

// Maps returns every map created so far.
func (r *MemoryRenderer) Maps() []*MemoryMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*MemoryMap(nil), r.maps...)
}

// Last returns the most recently created map, or nil.
func (r *MemoryRenderer) Last() *MemoryMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.maps) == 0 {
		return nil
	}
	return r.maps[len(r.maps)-1]
}

// MemoryMap is a MapInstance held in memory.
type MemoryMap struct {
	mu      sync.Mutex
	opts    MapOptions
	loaded  bool
	removed bool
	onLoad  []func()
	markers []*MemoryMarker
	added   int
}

func (m *MemoryMap) OnLoad(fn func()) {
	m.mu.Lock()
	if !m.loaded {
		m.onLoad = append(m.onLoad, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

// Load marks the map as loaded and fires the registered callbacks.
func (m *MemoryMap) Load() {
	m.mu.Lock()
	if m.loaded || m.removed {
		m.mu.Unlock()
		return
	}
	m.loaded = true
	fns := m.onLoad
	m.onLoad = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *MemoryMap) AddMarker(spec MarkerSpec) (Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil, errMapRemoved
	}
	mk := &MemoryMarker{m: m, spec: spec}
	m.markers = append(m.markers, mk)
	m.added++
	return mk, nil
}

func (m *MemoryMap) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
}

// Options returns the options the map was created with.
func (m *MemoryMap) Options() MapOptions { return m.opts }

// Removed reports whether Remove was called.
func (m *MemoryMap) Removed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}

// Markers returns the markers currently on the map, in insertion order.
func (m *MemoryMap) Markers() []*MemoryMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MemoryMarker(nil), m.markers...)
}

// Added counts every marker ever added to the map.
func (m *MemoryMap) Added() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.added
}

// Marker returns the live marker with id, or nil.
func (m *MemoryMap) Marker(id string) *MemoryMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mk := range m.markers {
		if mk.spec.ID == id {
			return mk
		}
	}
	return nil
}

func (m *MemoryMap) drop(mk *MemoryMarker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.markers {
		if x == mk {
			m.markers = append(m.markers[:i], m.markers[i+1:]...)
			return
		}
	}
}

// MemoryMarker is a Marker held by a MemoryMap. Open and Close simulate
// popup interaction.
type MemoryMarker struct {
	m        *MemoryMap
	mu       sync.Mutex
	spec     MarkerSpec
	comments []string
	open     bool
	removed  bool
}

func (mk *MemoryMarker) ID() string { return mk.spec.ID }

// Position returns the marker coordinates.
func (mk *MemoryMarker) Position() (lat, lng float64) { return mk.spec.Lat, mk.spec.Lng }

// Popup returns the popup content including any loaded comments.
func (mk *MemoryMarker) Popup() PopupContent {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	p := mk.spec.Popup
	p.Comments = append([]string(nil), mk.comments...)
	return p
}

// Open opens the popup. Opening an open popup does nothing.
func (mk *MemoryMarker) Open() {
	mk.mu.Lock()
	if mk.removed || mk.open {
		mk.mu.Unlock()
		return
	}
	mk.open = true
	fn := mk.spec.OnOpen
	mk.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close closes the popup.
func (mk *MemoryMarker) Close() {
	mk.mu.Lock()
	if mk.removed || !mk.open {
		mk.mu.Unlock()
		return
	}
	mk.open = false
	fn := mk.spec.OnClose
	mk.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (mk *MemoryMarker) SetComments(lines []string) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.comments = append([]string(nil), lines...)
}

func (mk *MemoryMarker) Remove() {
	mk.mu.Lock()
	if mk.removed {
		mk.mu.Unlock()
		return
	}
	mk.removed = true
	mk.mu.Unlock()
	mk.m.drop(mk)
}
