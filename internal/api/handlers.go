package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geowatch/internal/buildinfo"
	"geowatch/internal/filter"
	"geowatch/internal/geoindex"
	"geowatch/internal/geometry"
	"geowatch/internal/model"
	"geowatch/internal/store"
	"geowatch/internal/visibility"
)

// handleListRecords serves the filtered uniform record view. With
// format=geojson the same result is rendered as a FeatureCollection,
// records without geometry degrade to their resolved point position.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.getViewer(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthorized", "viewer identity required", r.URL.Path)
		return
	}

	records, err := store.Snapshot(r.Context(), s.Store)
	if err != nil {
		s.Log.Error("snapshot failed", "err", err)
		writeProblem(w, http.StatusInternalServerError, "internal error", "could not load records", r.URL.Path)
		return
	}

	state := filter.ParseQuery(r.URL.Query(), viewer)
	engine := filter.NewEngine(s.Cfg.Map.MarkerCap)
	out := engine.Apply(records, viewer, state)

	if r.URL.Query().Get("format") == "geojson" {
		writeJSON(w, http.StatusOK, recordsFeatureCollection(out))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": out,
		"count":   len(out),
	})
}

func recordsFeatureCollection(records []model.GeoRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		var f *geojson.Feature
		if rec.Geometry != nil {
			f = geojson.NewFeature(rec.Geometry.Geometry())
		} else {
			pos := geometry.ResolvePosition(rec)
			f = geojson.NewFeature(orb.Point{pos.Lng, pos.Lat})
		}
		f.ID = rec.ID
		f.Properties["kind"] = rec.Kind
		f.Properties["status"] = rec.Status
		if rec.Title != "" {
			f.Properties["title"] = rec.Title
		}
		if rec.Commune != "" {
			f.Properties["commune"] = rec.Commune
		}
		if rec.Prefecture != "" {
			f.Properties["prefecture"] = rec.Prefecture
		}
		if rec.Type != "" {
			f.Properties["type"] = rec.Type
		}
		if rec.SurfaceHa != nil {
			f.Properties["surfaceHa"] = *rec.SurfaceHa
		}
		if !rec.Date.IsZero() {
			f.Properties["date"] = rec.Date.Format(time.RFC3339)
		}
		fc.Append(f)
	}
	return fc
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.getViewer(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthorized", "viewer identity required", r.URL.Path)
		return
	}
	missions, err := s.Store.ListMissions(r.Context())
	if err != nil {
		s.Log.Error("list missions failed", "err", err)
		writeProblem(w, http.StatusInternalServerError, "internal error", "could not load missions", r.URL.Path)
		return
	}
	out := make([]model.Mission, 0, len(missions))
	for _, m := range missions {
		if visibility.IsVisible(viewer, m.Record()) {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": out, "count": len(out)})
}

func (s *Server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.getViewer(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthorized", "viewer identity required", r.URL.Path)
		return
	}

	var in model.MissionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error(), r.URL.Path)
		return
	}
	if in.Title == "" {
		writeProblem(w, http.StatusBadRequest, "invalid body", "title is required", r.URL.Path)
		return
	}
	in.Commune = geoindex.Normalize(in.Commune)
	if viewer.Restricted() {
		// Field agents plan missions inside their own jurisdiction only.
		if in.Commune == "" {
			in.Commune = viewer.Commune
		} else if !geoindex.SameJurisdiction(in.Commune, viewer.Commune) {
			writeProblem(w, http.StatusForbidden, "forbidden", "commune outside your jurisdiction", r.URL.Path)
			return
		}
		if in.AssigneeID == "" {
			in.AssigneeID = viewer.ID
		}
	}

	m, err := s.Store.CreateMission(r.Context(), in)
	if err != nil {
		s.Log.Error("create mission failed", "err", err)
		writeProblem(w, http.StatusInternalServerError, "internal error", "could not create mission", r.URL.Path)
		return
	}

	s.publishRecordChange(r.Context(), Event{
		Type:     "record-change",
		Kind:     model.KindMission,
		RecordID: m.ID,
		Commune:  m.Commune,
	})
	writeJSON(w, http.StatusCreated, m)
}

// publishRecordChange notifies the record's own prefecture channel and the
// global channel, so both scoped and elevated sessions refresh.
func (s *Server) publishRecordChange(ctx context.Context, evt Event) {
	if short, ok := geoindex.PrefectureShortOf(evt.Commune); ok {
		s.Broker.Publish(ctx, short, evt)
	}
	s.Broker.Publish(ctx, GlobalChannel, evt)
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.getViewer(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthorized", "viewer identity required", r.URL.Path)
		return
	}
	id := r.PathValue("id")
	m, err := s.Store.GetMission(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "not found", "no such mission", r.URL.Path)
		return
	}
	if err != nil {
		s.Log.Error("get mission failed", "err", err, "id", id)
		writeProblem(w, http.StatusInternalServerError, "internal error", "could not load mission", r.URL.Path)
		return
	}
	// The action predicate gates detail reads: assignees may open their
	// own missions even outside their geographic scope. Everything else
	// out of scope reads as absent rather than forbidden.
	if !visibility.IsVisibleAction(viewer, m.Record()) {
		writeProblem(w, http.StatusNotFound, "not found", "no such mission", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleBounds frames a commune or jurisdiction as a padded lat/lng box.
func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if commune := q.Get("commune"); commune != "" {
		b, ok := geoindex.CommuneBounds(commune)
		if !ok {
			writeProblem(w, http.StatusNotFound, "not found", "unknown commune", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}
	if j := q.Get("jurisdiction"); j != "" {
		b, ok := geoindex.JurisdictionBounds(j)
		if !ok {
			writeProblem(w, http.StatusNotFound, "not found", "unknown jurisdiction", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}
	writeProblem(w, http.StatusBadRequest, "invalid query", "commune or jurisdiction parameter required", r.URL.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	info["status"] = "ok"
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.Store.ListMissions(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "not ready", "store unavailable", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
