package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"geowatch/internal/maprender"
	"geowatch/internal/model"
)

// wsCanvas streams layer operations to a browser client as JSON frames.
// Each frame carries an "op" discriminator; the client replays them against
// its local mapping library. View state is mirrored here so the pipeline
// can read it back without a round trip.
type wsCanvas struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	log    *slog.Logger
	center model.GeoPoint
	zoom   int
	groups int
	broken bool
}

func newWSCanvas(conn *websocket.Conn, log *slog.Logger) *wsCanvas {
	return &wsCanvas{conn: conn, log: log}
}

// send writes one frame. After the first write failure the canvas goes
// silent; the session's read loop notices the broken connection and tears
// the pipeline down.
func (c *wsCanvas) send(frame map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.broken = true
		c.log.Debug("ws write failed", "err", err)
		return err
	}
	return nil
}

func (c *wsCanvas) open(opts maprender.CanvasOptions) error {
	c.mu.Lock()
	c.center = opts.Center
	c.zoom = opts.Zoom
	c.mu.Unlock()
	return c.send(map[string]any{
		"op":          "canvas",
		"center":      opts.Center,
		"zoom":        opts.Zoom,
		"interaction": opts.Interaction,
	})
}

func (c *wsCanvas) AddTileLayer(urlTemplate, attribution string) error {
	return c.send(map[string]any{"op": "tileLayer", "url": urlTemplate, "attribution": attribution})
}

func (c *wsCanvas) AddMarker(m maprender.MarkerSpec) error {
	return c.send(map[string]any{"op": "marker", "marker": m})
}

func (c *wsCanvas) NewClusterGroup(opts maprender.ClusterOptions) (maprender.ClusterGroup, error) {
	c.mu.Lock()
	c.groups++
	id := c.groups
	c.mu.Unlock()
	err := c.send(map[string]any{
		"op":     "clusterGroup",
		"id":     id,
		"radius": opts.Radius,
		// Icon size thresholds the client factory mirrors.
		"sizeThresholds": map[string]int{"medium": 10, "large": 100},
	})
	if err != nil {
		return nil, err
	}
	return &wsClusterGroup{c: c, id: id}, nil
}

func (c *wsCanvas) ClearLayers() error {
	return c.send(map[string]any{"op": "clear"})
}

func (c *wsCanvas) SetView(center model.GeoPoint, zoom int) {
	c.mu.Lock()
	c.center = center
	c.zoom = zoom
	c.mu.Unlock()
	_ = c.send(map[string]any{"op": "setView", "center": center, "zoom": zoom})
}

func (c *wsCanvas) Center() model.GeoPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center
}

func (c *wsCanvas) Zoom() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *wsCanvas) PanBy(dLat, dLng float64) {
	c.mu.Lock()
	c.center.Lat += dLat
	c.center.Lng += dLng
	c.mu.Unlock()
	_ = c.send(map[string]any{"op": "panBy", "dLat": dLat, "dLng": dLng})
}

func (c *wsCanvas) ZoomBy(delta int) {
	c.mu.Lock()
	c.zoom += delta
	c.mu.Unlock()
	_ = c.send(map[string]any{"op": "zoomBy", "delta": delta})
}

func (c *wsCanvas) SetInteraction(flags maprender.InteractionFlags) {
	_ = c.send(map[string]any{"op": "interaction", "interaction": flags})
}

func (c *wsCanvas) InvalidateSize() {
	_ = c.send(map[string]any{"op": "invalidateSize"})
}

func (c *wsCanvas) ShowHint(text string) {
	_ = c.send(map[string]any{"op": "hint", "text": text})
}

func (c *wsCanvas) Destroy() {
	_ = c.send(map[string]any{"op": "destroy"})
}

type wsClusterGroup struct {
	c  *wsCanvas
	id int
}

func (g *wsClusterGroup) AddMarker(m maprender.MarkerSpec) error {
	return g.c.send(map[string]any{"op": "clusterMarker", "group": g.id, "marker": m})
}

// wsProvider hands the session's canvas to the pipeline.
type wsProvider struct {
	canvas *wsCanvas
}

func (p *wsProvider) NewCanvas(ctx context.Context, opts maprender.CanvasOptions) (maprender.Canvas, error) {
	if err := p.canvas.open(opts); err != nil {
		return nil, err
	}
	return p.canvas, nil
}

// wsNavigator forwards popup navigation requests to the client.
type wsNavigator struct {
	c *wsCanvas
}

func (n *wsNavigator) MissionCreate() {
	_ = n.c.send(map[string]any{"op": "navigate", "to": "mission-create"})
}

func (n *wsNavigator) MissionDetail(id string) {
	_ = n.c.send(map[string]any{"op": "navigate", "to": "mission-detail", "id": id})
}
