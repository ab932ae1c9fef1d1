package maprender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"geowatch/internal/filter"
	"geowatch/internal/geometry"
	"geowatch/internal/metrics"
	"geowatch/internal/model"
)

// Pipeline lifecycle states.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// ErrDestroyed is returned when a destroyed pipeline is asked to start
// again. Destroyed is terminal; a new pipeline must be constructed.
var ErrDestroyed = errors.New("maprender: pipeline destroyed")

// clusterThreshold is the marker count above which the clustering
// primitive takes over; at or below it markers are added individually.
const clusterThreshold = 10

// panStep is the fixed angular step of one arrow-key pan.
const panStep = 0.01

const touchHint = "Use two fingers to move the map"

// Defaults applied by New when the corresponding option is zero.
const (
	defaultZoom          = 13
	defaultClusterRadius = 80
	defaultTouchRadius   = 50
	defaultDebounce      = 300 * time.Millisecond
	defaultRefreshDelay  = 400 * time.Millisecond
)

// Source supplies the read-only record snapshot the pipeline renders. A
// new snapshot identity means a full rebuild.
type Source func(ctx context.Context) ([]model.GeoRecord, error)

// Options wires a Pipeline's collaborators and tuning knobs.
type Options struct {
	Provider  Provider
	Source    Source
	Viewer    model.Viewer
	Navigator Navigator
	Logger    *slog.Logger

	Center model.GeoPoint
	Zoom   int
	Device Device

	TileURL         string
	TileAttribution string

	MarkerCap          int
	ClusterEnabled     bool
	ClusterRadius      int
	ClusterRadiusTouch int

	DebounceDelay time.Duration
	RefreshDelay  time.Duration

	// OnRefresh drives an external loading indicator around each
	// simulated refresh cycle. Optional.
	OnRefresh func(loading bool)
}

// Pipeline drives one map canvas from construction to teardown. All layer
// state is exclusively owned by the pipeline while it is ready; rebuilds
// are wholesale and idempotent, so correctness never depends on
// incremental bookkeeping.
type Pipeline struct {
	mu     sync.Mutex
	state  State
	opts   Options
	engine filter.Engine
	filter filter.State
	canvas Canvas
	device Device
	deb    *Debouncer
	log    *slog.Logger

	markerCount int
	clustered   bool
}

// New constructs an uninitialized pipeline with role-appropriate default
// filters.
func New(opts Options) *Pipeline {
	if opts.Zoom == 0 {
		opts.Zoom = defaultZoom
	}
	if opts.Center == (model.GeoPoint{}) {
		opts.Center = geometry.DefaultCenter
	}
	if opts.ClusterRadius == 0 {
		opts.ClusterRadius = defaultClusterRadius
	}
	if opts.ClusterRadiusTouch == 0 {
		opts.ClusterRadiusTouch = defaultTouchRadius
	}
	if opts.DebounceDelay == 0 {
		opts.DebounceDelay = defaultDebounce
	}
	if opts.RefreshDelay == 0 {
		opts.RefreshDelay = defaultRefreshDelay
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		state:  StateUninitialized,
		opts:   opts,
		engine: filter.NewEngine(opts.MarkerCap),
		filter: filter.Defaults(opts.Viewer),
		device: opts.Device,
		log:    log,
	}
	p.deb = NewDebouncer(opts.DebounceDelay, p.settled)
	return p
}

// Init loads the mapping capability and brings the pipeline to Ready. A
// second call while already Ready is a no-op. A provider failure is
// logged and leaves the pipeline in Loading; it never crashes the host.
func (p *Pipeline) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateReady:
		return nil
	case StateDestroyed:
		return ErrDestroyed
	}
	p.state = StateLoading
	canvas, err := p.opts.Provider.NewCanvas(ctx, CanvasOptions{
		Center:      p.opts.Center,
		Zoom:        p.opts.Zoom,
		Interaction: interactionFor(p.device),
	})
	if err != nil {
		p.log.Error("map capability load failed", "err", err)
		return err
	}
	p.canvas = canvas
	if p.opts.TileURL != "" {
		if err := canvas.AddTileLayer(p.opts.TileURL, p.opts.TileAttribution); err != nil {
			p.log.Error("tile layer attach failed", "err", err)
		}
	}
	p.state = StateReady
	metrics.MapSessions.Inc()
	p.rebuildLocked(ctx)
	return nil
}

// Destroy releases the map instance and clears marker state. Terminal:
// pending timers are cancelled and no rebuild may run afterwards.
func (p *Pipeline) Destroy() {
	p.deb.Cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDestroyed {
		return
	}
	if p.canvas != nil {
		p.canvas.Destroy()
		p.canvas = nil
	}
	if p.state == StateReady {
		metrics.MapSessions.Dec()
	}
	p.state = StateDestroyed
	p.markerCount = 0
}

// State reports the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Filter returns a copy of the current filter state.
func (p *Pipeline) Filter() filter.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// MarkerCount reports how many markers the last rebuild materialized.
func (p *Pipeline) MarkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markerCount
}

// Clustered reports whether the last rebuild went through the clustering
// primitive.
func (p *Pipeline) Clustered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clustered
}

// ScheduleFilter feeds a partial filter update into the debounced intake.
// Calls within one debounce window coalesce into a single merged update
// and one refresh cycle.
func (p *Pipeline) ScheduleFilter(u filter.Update) {
	p.deb.Schedule(u)
}

// ClearFilters resets the facets to role defaults and refreshes.
func (p *Pipeline) ClearFilters() {
	p.mu.Lock()
	p.filter = filter.Defaults(p.opts.Viewer)
	p.mu.Unlock()
	p.refreshCycle()
}

// Rebuild re-renders from a fresh snapshot without touching the filter
// state; used when the upstream store announces changed records.
func (p *Pipeline) Rebuild(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuildLocked(ctx)
}

// settled runs on the debounce timer once a filter burst goes quiet.
func (p *Pipeline) settled(u filter.Update) {
	p.mu.Lock()
	if p.state == StateDestroyed {
		p.mu.Unlock()
		return
	}
	p.filter = filter.Merge(p.filter, u, p.opts.Viewer)
	p.mu.Unlock()
	p.refreshCycle()
}

// refreshCycle simulates the asynchronous store refresh that drives the
// loading indicator, then rebuilds. The rebuild reads the filter state at
// rebuild time, so a cycle that was overtaken by a newer settle still
// renders the newest state.
func (p *Pipeline) refreshCycle() {
	if p.opts.OnRefresh != nil {
		p.opts.OnRefresh(true)
	}
	if p.opts.RefreshDelay > 0 {
		time.Sleep(p.opts.RefreshDelay)
	}
	p.mu.Lock()
	p.rebuildLocked(context.Background())
	p.mu.Unlock()
	if p.opts.OnRefresh != nil {
		p.opts.OnRefresh(false)
	}
}

// rebuildLocked rebuilds the marker layer wholesale. Callers hold p.mu.
// Any failure while mutating layers is caught and logged; the next rebuild
// proceeds normally on a degraded layer rather than crashing the host.
func (p *Pipeline) rebuildLocked(ctx context.Context) {
	if p.state != StateReady || p.canvas == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("marker layer mutation panicked", "panic", r)
		}
	}()

	records, err := p.opts.Source(ctx)
	if err != nil {
		p.log.Error("record snapshot failed", "err", err)
		return
	}
	working := p.engine.Apply(records, p.opts.Viewer, p.filter)

	if err := p.canvas.ClearLayers(); err != nil {
		p.log.Error("layer clear failed", "err", err)
	}

	specs := make([]MarkerSpec, 0, len(working))
	for _, rec := range working {
		specs = append(specs, MarkerSpec{
			ID:       rec.ID,
			Position: geometry.ResolvePosition(rec),
			Color:    statusColor(rec),
			Popup:    popupHTML(rec),
		})
	}

	p.clustered = false
	if p.opts.ClusterEnabled && len(specs) > clusterThreshold {
		radius := p.opts.ClusterRadius
		if p.device.Mobile() {
			radius = p.opts.ClusterRadiusTouch
		}
		group, err := p.canvas.NewClusterGroup(ClusterOptions{Radius: radius, IconSize: ClusterIconSize})
		if err != nil {
			p.log.Error("cluster group creation failed", "err", err)
		} else {
			p.clustered = true
			for _, spec := range specs {
				if err := group.AddMarker(spec); err != nil {
					p.log.Error("cluster marker add failed", "id", spec.ID, "err", err)
				}
			}
		}
	}
	if !p.clustered {
		for _, spec := range specs {
			if err := p.canvas.AddMarker(spec); err != nil {
				p.log.Error("marker add failed", "id", spec.ID, "err", err)
			}
		}
	}

	p.markerCount = len(specs)
	metrics.MapRebuilds.Inc()
	metrics.MarkersRendered.Observe(float64(len(specs)))
}

// Resize recomputes the device class for a new viewport. When the class
// changes, the current view is captured, gestures are retuned, the canvas
// recalculates its size and only then is the view reapplied.
func (p *Pipeline) Resize(device Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateReady {
		p.device = device
		return
	}
	classChanged := device.Mobile() != p.device.Mobile()
	p.device = device
	if !classChanged {
		return
	}
	center, zoom := p.canvas.Center(), p.canvas.Zoom()
	p.canvas.SetInteraction(interactionFor(device))
	p.canvas.InvalidateSize()
	p.canvas.SetView(center, zoom)
}

// Gesture surfaces an ephemeral hint when a single-finger drag is
// attempted on a touch device.
func (p *Pipeline) Gesture(fingers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateReady || !p.device.Touch || fingers != 1 {
		return
	}
	p.canvas.ShowHint(touchHint)
}

// Key handles keyboard accessibility: arrows pan by a fixed angular step,
// plus and minus zoom. Every other key is ignored without side effects.
func (p *Pipeline) Key(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateReady {
		return
	}
	switch key {
	case "ArrowUp":
		p.canvas.PanBy(panStep, 0)
	case "ArrowDown":
		p.canvas.PanBy(-panStep, 0)
	case "ArrowLeft":
		p.canvas.PanBy(0, -panStep)
	case "ArrowRight":
		p.canvas.PanBy(0, panStep)
	case "+":
		p.canvas.ZoomBy(1)
	case "-":
		p.canvas.ZoomBy(-1)
	}
}

// OpenMissionCreate asks the router collaborator for the mission creation
// surface. One-way notification.
func (p *Pipeline) OpenMissionCreate() {
	if p.opts.Navigator != nil {
		p.opts.Navigator.MissionCreate()
	}
}

// OpenMissionDetail asks the router collaborator for a mission detail
// surface by opaque identifier.
func (p *Pipeline) OpenMissionDetail(id string) {
	if p.opts.Navigator != nil && id != "" {
		p.opts.Navigator.MissionDetail(id)
	}
}

func interactionFor(d Device) InteractionFlags {
	if d.Mobile() {
		return InteractionFlags{}
	}
	return InteractionFlags{Dragging: true, ScrollZoom: true, DoubleClickZoom: true}
}
