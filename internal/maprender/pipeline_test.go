package maprender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"geowatch/internal/filter"
	"geowatch/internal/model"
)

// fakeCanvas implements Canvas in memory and records the operation order.
type fakeCanvas struct {
	mu       sync.Mutex
	ops      []string
	markers  []MarkerSpec
	groups   []*fakeGroup
	center   model.GeoPoint
	zoom     int
	flags    InteractionFlags
	hints    []string
	addErr   error
	destroys int
}

type fakeGroup struct {
	opts    ClusterOptions
	markers []MarkerSpec
}

func (g *fakeGroup) AddMarker(m MarkerSpec) error {
	g.markers = append(g.markers, m)
	return nil
}

func (c *fakeCanvas) op(name string) {
	c.mu.Lock()
	c.ops = append(c.ops, name)
	c.mu.Unlock()
}

func (c *fakeCanvas) AddTileLayer(url, attr string) error { c.op("tiles"); return nil }

func (c *fakeCanvas) AddMarker(m MarkerSpec) error {
	c.op("addMarker")
	if c.addErr != nil {
		return c.addErr
	}
	c.mu.Lock()
	c.markers = append(c.markers, m)
	c.mu.Unlock()
	return nil
}

func (c *fakeCanvas) NewClusterGroup(opts ClusterOptions) (ClusterGroup, error) {
	c.op("clusterGroup")
	g := &fakeGroup{opts: opts}
	c.mu.Lock()
	c.groups = append(c.groups, g)
	c.mu.Unlock()
	return g, nil
}

func (c *fakeCanvas) ClearLayers() error {
	c.op("clear")
	c.mu.Lock()
	c.markers = nil
	c.groups = nil
	c.mu.Unlock()
	return nil
}

func (c *fakeCanvas) SetView(center model.GeoPoint, zoom int) {
	c.op("setView")
	c.center, c.zoom = center, zoom
}

func (c *fakeCanvas) Center() model.GeoPoint { return c.center }
func (c *fakeCanvas) Zoom() int              { return c.zoom }
func (c *fakeCanvas) PanBy(dLat, dLng float64) {
	c.op("pan")
	c.center.Lat += dLat
	c.center.Lng += dLng
}
func (c *fakeCanvas) ZoomBy(delta int)                      { c.op("zoom"); c.zoom += delta }
func (c *fakeCanvas) SetInteraction(flags InteractionFlags) { c.op("interaction"); c.flags = flags }
func (c *fakeCanvas) InvalidateSize()                       { c.op("invalidateSize") }
func (c *fakeCanvas) ShowHint(text string)                  { c.op("hint"); c.hints = append(c.hints, text) }
func (c *fakeCanvas) Destroy()                              { c.op("destroy"); c.destroys++ }

type fakeProvider struct {
	canvas *fakeCanvas
	err    error
	calls  int
}

func (p *fakeProvider) NewCanvas(ctx context.Context, opts CanvasOptions) (Canvas, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	p.canvas.center = opts.Center
	p.canvas.zoom = opts.Zoom
	p.canvas.flags = opts.Interaction
	return p.canvas, nil
}

func missionRecords(n int) []model.GeoRecord {
	out := make([]model.GeoRecord, 0, n)
	lat, lng := 33.55, -7.60
	for i := 0; i < n; i++ {
		la, ln := lat+float64(i)*0.001, lng
		out = append(out, model.GeoRecord{
			Kind:      model.KindMission,
			ID:        fmt.Sprintf("m%03d", i),
			Commune:   "Anfa",
			Status:    model.MissionPlanned,
			Latitude:  &la,
			Longitude: &ln,
		})
	}
	return out
}

func newTestPipeline(t *testing.T, records []model.GeoRecord, opts Options) (*Pipeline, *fakeCanvas) {
	t.Helper()
	canvas := &fakeCanvas{}
	opts.Provider = &fakeProvider{canvas: canvas}
	if opts.Source == nil {
		opts.Source = func(context.Context) ([]model.GeoRecord, error) { return records, nil }
	}
	if opts.Viewer.Role == "" {
		opts.Viewer = model.Viewer{Role: model.RoleSupervisor}
	}
	opts.Logger = slog.Default()
	if opts.DebounceDelay == 0 {
		opts.DebounceDelay = 10 * time.Millisecond
	}
	if opts.RefreshDelay == 0 {
		opts.RefreshDelay = time.Millisecond
	}
	p := New(opts)
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p, canvas
}

func TestInitIdempotent(t *testing.T) {
	p, canvas := newTestPipeline(t, missionRecords(3), Options{})
	if p.State() != StateReady {
		t.Fatalf("state = %v, want ready", p.State())
	}
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if canvas.destroys != 0 {
		t.Fatal("second Init must be a no-op")
	}
	if p.MarkerCount() != 3 {
		t.Fatalf("markers = %d, want 3", p.MarkerCount())
	}
}

func TestProviderFailureStaysLoading(t *testing.T) {
	p := New(Options{
		Provider: &fakeProvider{err: errors.New("cdn unreachable")},
		Source:   func(context.Context) ([]model.GeoRecord, error) { return nil, nil },
		Viewer:   model.Viewer{Role: model.RoleSupervisor},
	})
	if err := p.Init(context.Background()); err == nil {
		t.Fatal("Init should surface the provider error")
	}
	if p.State() != StateLoading {
		t.Fatalf("state = %v, want loading", p.State())
	}
}

func TestDestroyIsTerminal(t *testing.T) {
	p, canvas := newTestPipeline(t, missionRecords(2), Options{})
	p.Destroy()
	if p.State() != StateDestroyed {
		t.Fatalf("state = %v, want destroyed", p.State())
	}
	if canvas.destroys != 1 {
		t.Fatalf("canvas destroys = %d", canvas.destroys)
	}
	if err := p.Init(context.Background()); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("Init after destroy = %v, want ErrDestroyed", err)
	}
	// A rebuild after teardown must not touch the canvas.
	before := len(canvas.ops)
	p.Rebuild(context.Background())
	if len(canvas.ops) != before {
		t.Fatal("rebuild ran after destroy")
	}
}

func TestClusteringThreshold(t *testing.T) {
	p, canvas := newTestPipeline(t, missionRecords(10), Options{ClusterEnabled: true})
	if p.Clustered() {
		t.Fatal("10 markers must render individually")
	}
	if len(canvas.markers) != 10 {
		t.Fatalf("individual markers = %d", len(canvas.markers))
	}

	p2, canvas2 := newTestPipeline(t, missionRecords(11), Options{ClusterEnabled: true})
	if !p2.Clustered() {
		t.Fatal("11 markers must activate clustering")
	}
	if len(canvas2.groups) != 1 || len(canvas2.groups[0].markers) != 11 {
		t.Fatalf("cluster group markers = %+v", canvas2.groups)
	}
	if got := canvas2.groups[0].opts.IconSize(5); got != SizeSmall {
		t.Errorf("icon size for 5 = %v", got)
	}
	if got := canvas2.groups[0].opts.IconSize(50); got != SizeMedium {
		t.Errorf("icon size for 50 = %v", got)
	}
	if got := canvas2.groups[0].opts.IconSize(150); got != SizeLarge {
		t.Errorf("icon size for 150 = %v", got)
	}
}

func TestClusterRadiusFollowsDeviceClass(t *testing.T) {
	_, canvas := newTestPipeline(t, missionRecords(20), Options{
		ClusterEnabled: true,
		Device:         Device{Touch: true, Width: 390},
	})
	if len(canvas.groups) != 1 {
		t.Fatal("expected a cluster group")
	}
	if canvas.groups[0].opts.Radius != defaultTouchRadius {
		t.Fatalf("touch radius = %d, want %d", canvas.groups[0].opts.Radius, defaultTouchRadius)
	}
}

func TestMarkerCapHonored(t *testing.T) {
	p, canvas := newTestPipeline(t, missionRecords(140), Options{})
	if p.MarkerCount() != filter.DefaultCap {
		t.Fatalf("markers = %d, want cap %d", p.MarkerCount(), filter.DefaultCap)
	}
	if len(canvas.markers) != filter.DefaultCap {
		t.Fatalf("canvas markers = %d", len(canvas.markers))
	}
	// Stable prefix: the first record is still the first marker.
	if canvas.markers[0].ID != "m000" {
		t.Fatalf("first marker = %s", canvas.markers[0].ID)
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	var refreshes int32
	records := missionRecords(5)
	p, _ := newTestPipeline(t, records, Options{
		DebounceDelay: 30 * time.Millisecond,
		OnRefresh: func(loading bool) {
			if loading {
				atomic.AddInt32(&refreshes, 1)
			}
		},
	})
	status := model.MissionPlanned
	view := filter.ViewMissions
	for i := 0; i < 6; i++ {
		p.ScheduleFilter(filter.Update{Status: &status})
	}
	p.ScheduleFilter(filter.Update{View: &view})
	time.Sleep(120 * time.Millisecond)
	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Fatalf("refresh cycles = %d, want exactly 1 per settled burst", got)
	}
	s := p.Filter()
	if s.Status != status || s.View != view {
		t.Fatalf("filter = %+v, want merged burst payload", s)
	}
}

func TestDestroyCancelsPendingBurst(t *testing.T) {
	var refreshes int32
	p, _ := newTestPipeline(t, missionRecords(2), Options{
		DebounceDelay: 40 * time.Millisecond,
		OnRefresh: func(loading bool) {
			if loading {
				atomic.AddInt32(&refreshes, 1)
			}
		},
	})
	status := model.MissionDone
	p.ScheduleFilter(filter.Update{Status: &status})
	p.Destroy()
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&refreshes); got != 0 {
		t.Fatalf("refresh fired after destroy: %d", got)
	}
}

func TestResizePreservesViewOnClassChange(t *testing.T) {
	p, canvas := newTestPipeline(t, missionRecords(1), Options{Device: Device{Width: 1400}})
	canvas.SetView(model.GeoPoint{Lat: 33.61, Lng: -7.51}, 15)
	canvas.ops = nil

	p.Resize(Device{Touch: true, Width: 390})

	want := []string{"interaction", "invalidateSize", "setView"}
	if len(canvas.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", canvas.ops, want)
	}
	for i, op := range want {
		if canvas.ops[i] != op {
			t.Fatalf("ops = %v, want size recalculation before view reapplication", canvas.ops)
		}
	}
	if canvas.center.Lat != 33.61 || canvas.zoom != 15 {
		t.Fatalf("view lost on resize: %+v zoom %d", canvas.center, canvas.zoom)
	}
	if canvas.flags.Dragging {
		t.Fatal("dragging still enabled on touch device")
	}

	// Same class again: nothing to do.
	canvas.ops = nil
	p.Resize(Device{Touch: true, Width: 380})
	if len(canvas.ops) != 0 {
		t.Fatalf("ops on same-class resize: %v", canvas.ops)
	}
}

func TestGestureHintOnTouch(t *testing.T) {
	p, canvas := newTestPipeline(t, nil, Options{Device: Device{Touch: true, Width: 390}})
	p.Gesture(1)
	p.Gesture(2)
	if len(canvas.hints) != 1 {
		t.Fatalf("hints = %v, want one single-finger hint", canvas.hints)
	}

	p2, canvas2 := newTestPipeline(t, nil, Options{Device: Device{Width: 1400}})
	p2.Gesture(1)
	if len(canvas2.hints) != 0 {
		t.Fatal("hint surfaced on a non-touch device")
	}
}

func TestKeyboardPanAndZoom(t *testing.T) {
	p, canvas := newTestPipeline(t, nil, Options{})
	center, zoom := canvas.center, canvas.zoom
	p.Key("ArrowUp")
	if canvas.center.Lat != center.Lat+panStep {
		t.Fatalf("ArrowUp lat = %v", canvas.center.Lat)
	}
	p.Key("ArrowRight")
	if canvas.center.Lng != center.Lng+panStep {
		t.Fatalf("ArrowRight lng = %v", canvas.center.Lng)
	}
	p.Key("+")
	p.Key("+")
	p.Key("-")
	if canvas.zoom != zoom+1 {
		t.Fatalf("zoom = %d, want %d", canvas.zoom, zoom+1)
	}
	before := len(canvas.ops)
	p.Key("Escape")
	p.Key("x")
	if len(canvas.ops) != before {
		t.Fatal("unhandled keys must have no side effects")
	}
}

func TestMarkerAddFailureDoesNotAbortRebuild(t *testing.T) {
	canvas := &fakeCanvas{addErr: errors.New("layer detached")}
	opts := Options{
		Provider: &fakeProvider{canvas: canvas},
		Source:   func(context.Context) ([]model.GeoRecord, error) { return missionRecords(3), nil },
		Viewer:   model.Viewer{Role: model.RoleSupervisor},
		Logger:   slog.Default(),
	}
	p := New(opts)
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// All adds failed but the pipeline stays ready and retries next cycle.
	if p.State() != StateReady {
		t.Fatalf("state = %v", p.State())
	}
	canvas.addErr = nil
	p.Rebuild(context.Background())
	if len(canvas.markers) != 3 {
		t.Fatalf("markers after recovery = %d", len(canvas.markers))
	}
}

func TestSourceErrorKeepsPipelineAlive(t *testing.T) {
	failing := int32(1)
	source := func(context.Context) ([]model.GeoRecord, error) {
		if atomic.LoadInt32(&failing) == 1 {
			return nil, errors.New("store offline")
		}
		return missionRecords(2), nil
	}
	p, canvas := newTestPipeline(t, nil, Options{Source: source})
	if p.MarkerCount() != 0 {
		t.Fatalf("markers = %d during outage", p.MarkerCount())
	}
	atomic.StoreInt32(&failing, 0)
	p.Rebuild(context.Background())
	if len(canvas.markers) != 2 {
		t.Fatalf("markers after store recovery = %d", len(canvas.markers))
	}
}
