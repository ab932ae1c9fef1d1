// Package maprender owns the map lifecycle: it converts the filter
// engine's working set into marker and cluster layer operations against an
// external mapping capability, reacts to device and viewport changes, and
// exposes a debounced filter-change entry point. The mapping library is
// never touched as ambient global state; it is injected as the Provider
// interface below, constructed once per pipeline instance and owned by it.
package maprender

import (
	"context"

	"geowatch/internal/model"
)

// SizeBucket classifies cluster icons by member count.
type SizeBucket string

const (
	SizeSmall  SizeBucket = "small"
	SizeMedium SizeBucket = "medium"
	SizeLarge  SizeBucket = "large"
)

// ClusterIconSize is the step function keying cluster icon size to member
// count.
func ClusterIconSize(count int) SizeBucket {
	switch {
	case count < 10:
		return SizeSmall
	case count < 100:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// InteractionFlags toggles the canvas gestures. Single-finger dragging,
// scroll zoom and double-click zoom are disabled on touch devices so the
// page underneath stays scrollable.
type InteractionFlags struct {
	Dragging        bool `json:"dragging"`
	ScrollZoom      bool `json:"scrollZoom"`
	DoubleClickZoom bool `json:"doubleClickZoom"`
}

// CanvasOptions configures a new map canvas.
type CanvasOptions struct {
	Center      model.GeoPoint   `json:"center"`
	Zoom        int              `json:"zoom"`
	Interaction InteractionFlags `json:"interaction"`
}

// MarkerSpec is one rendered marker: a resolved position, a status-derived
// icon color and pre-rendered popup HTML.
type MarkerSpec struct {
	ID       string         `json:"id"`
	Position model.GeoPoint `json:"position"`
	Color    string         `json:"color"`
	Popup    string         `json:"popup"`
}

// ClusterOptions configures the external spatial-clustering primitive. The
// pipeline only feeds it; the grouping algorithm itself belongs to the
// mapping library.
type ClusterOptions struct {
	Radius   int
	IconSize func(count int) SizeBucket
}

// Canvas is the mapping capability the pipeline renders onto. The
// production implementation streams these operations to a browser client;
// tests implement it in memory.
type Canvas interface {
	AddTileLayer(urlTemplate, attribution string) error
	AddMarker(m MarkerSpec) error
	NewClusterGroup(opts ClusterOptions) (ClusterGroup, error)
	ClearLayers() error
	SetView(center model.GeoPoint, zoom int)
	Center() model.GeoPoint
	Zoom() int
	PanBy(dLat, dLng float64)
	ZoomBy(delta int)
	SetInteraction(flags InteractionFlags)
	InvalidateSize()
	ShowHint(text string)
	Destroy()
}

// ClusterGroup is the spatial grouping primitive markers are fed into when
// clustering is active.
type ClusterGroup interface {
	AddMarker(m MarkerSpec) error
}

// Provider constructs canvases. Construction is the external asynchronous
// resource fetch of the mapping library; failure leaves the pipeline in
// the loading state.
type Provider interface {
	NewCanvas(ctx context.Context, opts CanvasOptions) (Canvas, error)
}

// Navigator receives one-way navigation requests from the pipeline's popup
// affordances.
type Navigator interface {
	MissionCreate()
	MissionDetail(id string)
}

// Device describes the viewport the map is rendered into.
type Device struct {
	Touch bool
	Width int
}

// mobileWidth is the widest viewport still treated as a mobile device.
const mobileWidth = 768

// Mobile reports the device class used for clustering radius and
// interaction decisions.
func (d Device) Mobile() bool { return d.Touch || (d.Width > 0 && d.Width <= mobileWidth) }
