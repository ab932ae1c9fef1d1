package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"geowatch/internal/filter"
	"geowatch/internal/geoindex"
	"geowatch/internal/maprender"
	"geowatch/internal/model"
	"geowatch/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The map endpoint authenticates by token, not by cookie, so
	// cross-origin upgrades carry no ambient credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Per-session intake budget. Key repeats while panning are the hottest
// message source; anything past the burst is dropped, not queued.
const (
	sessionMsgRate  = 20
	sessionMsgBurst = 40
)

// clientMsg is one inbound control frame from the map client.
type clientMsg struct {
	Type    string       `json:"type"`
	Filter  *filterPatch `json:"filter,omitempty"`
	Device  *deviceInfo  `json:"device,omitempty"`
	Key     string       `json:"key,omitempty"`
	Fingers int          `json:"fingers,omitempty"`
	ID      string       `json:"id,omitempty"`
}

// filterPatch is a partial filter update. Absent fields leave the current
// value alone; an explicit empty string clears the facet.
type filterPatch struct {
	View    *string `json:"view"`
	Type    *string `json:"type"`
	Status  *string `json:"status"`
	Commune *string `json:"commune"`
	From    *string `json:"from"`
	To      *string `json:"to"`
}

type deviceInfo struct {
	Touch bool `json:"touch"`
	Width int  `json:"width"`
}

func (p *filterPatch) update() filter.Update {
	return filter.Update{
		View:    p.View,
		Type:    p.Type,
		Status:  p.Status,
		Commune: p.Commune,
		From:    patchDate(p.From),
		To:      patchDate(p.To),
	}
}

// patchDate maps an optional date string onto the update pointer protocol:
// nil stays nil, empty clears, malformed input is ignored.
func patchDate(v *string) *time.Time {
	if v == nil {
		return nil
	}
	if *v == "" {
		return &time.Time{}
	}
	if t, err := time.Parse("2006-01-02", *v); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, *v); err == nil {
		return &t
	}
	return nil
}

// handleMapWS runs one live map session. The pipeline renders onto a
// wsCanvas that streams layer operations down the socket; inbound frames
// feed filter changes, device changes and input events back into it.
func (s *Server) handleMapWS(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.getViewer(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthorized", "viewer identity required", r.URL.Path)
		return
	}

	device := deviceFromQuery(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	canvas := newWSCanvas(conn, s.Log)
	pipeline := maprender.New(maprender.Options{
		Provider:  &wsProvider{canvas: canvas},
		Source:    func(ctx context.Context) ([]model.GeoRecord, error) { return store.Snapshot(ctx, s.Store) },
		Viewer:    viewer,
		Navigator: &wsNavigator{c: canvas},
		Logger:    s.Log,

		Center: s.Cfg.Map.Center,
		Zoom:   s.Cfg.Map.Zoom,
		Device: device,

		TileURL:         s.Cfg.Map.TileURL,
		TileAttribution: s.Cfg.Map.TileAttribution,

		MarkerCap:          s.Cfg.Map.MarkerCap,
		ClusterEnabled:     s.Cfg.Map.Cluster,
		ClusterRadius:      s.Cfg.Map.ClusterRadius,
		ClusterRadiusTouch: s.Cfg.Map.ClusterRadiusTouch,

		DebounceDelay: s.Cfg.Map.Debounce(),
		RefreshDelay:  s.Cfg.Map.Refresh(),

		OnRefresh: func(loading bool) {
			_ = canvas.send(map[string]any{"op": "loading", "active": loading})
		},
	})
	defer pipeline.Destroy()

	if err := pipeline.Init(ctx); err != nil {
		s.Log.Warn("map session init failed", "err", err, "viewer", viewer.ID)
		return
	}

	events, unsubscribe := s.Broker.Subscribe(ctx, s.sessionChannel(viewer))
	defer unsubscribe()
	go func() {
		for range events {
			pipeline.Rebuild(ctx)
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(sessionMsgRate), sessionMsgBurst)
	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Log.Debug("ws session closed", "err", err)
			}
			return
		}
		if !limiter.Allow() {
			continue
		}
		s.dispatch(ctx, pipeline, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, p *maprender.Pipeline, msg clientMsg) {
	switch msg.Type {
	case "filter":
		if msg.Filter != nil {
			p.ScheduleFilter(msg.Filter.update())
		}
	case "clear-filters":
		p.ClearFilters()
	case "rebuild":
		p.Rebuild(ctx)
	case "resize":
		if msg.Device != nil {
			p.Resize(maprender.Device{Touch: msg.Device.Touch, Width: msg.Device.Width})
		}
	case "key":
		p.Key(msg.Key)
	case "gesture":
		p.Gesture(msg.Fingers)
	case "mission-create":
		p.OpenMissionCreate()
	case "mission-detail":
		p.OpenMissionDetail(msg.ID)
	default:
		s.Log.Debug("ws unknown message type", "type", msg.Type)
	}
}

// sessionChannel picks the broker channel a session listens on: restricted
// viewers follow their own prefecture, everyone else follows everything.
func (s *Server) sessionChannel(viewer model.Viewer) string {
	if viewer.Restricted() {
		if short, ok := geoindex.PrefectureShortOf(viewer.Commune); ok {
			return short
		}
	}
	return GlobalChannel
}

func deviceFromQuery(r *http.Request) maprender.Device {
	q := r.URL.Query()
	width, _ := strconv.Atoi(q.Get("width"))
	touch := q.Get("touch") == "1" || q.Get("touch") == "true"
	return maprender.Device{Touch: touch, Width: width}
}
