package api

import (
	"net/http"
	"strings"

	"geowatch/internal/geoindex"
	"geowatch/internal/model"
)

// getViewer resolves the calling viewer from the request. A Bearer token is
// verified through the configured auth verifier; without one the viewer may
// be supplied by X-Role / X-Commune / X-Viewer-Id headers, which keeps local
// development and tests free of token plumbing.
func (s *Server) getViewer(r *http.Request) (model.Viewer, bool) {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		v, err := s.Auth.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			return model.Viewer{}, false
		}
		return s.localize(v), true
	}

	role := strings.ToUpper(strings.TrimSpace(r.Header.Get("X-Role")))
	if role == "" {
		return model.Viewer{}, false
	}
	v := model.Viewer{
		ID:      strings.TrimSpace(r.Header.Get("X-Viewer-Id")),
		Role:    role,
		Commune: r.Header.Get("X-Commune"),
	}
	return s.localize(v), true
}

// localize normalizes the viewer's home commune and derives its prefecture.
func (s *Server) localize(v model.Viewer) model.Viewer {
	v.Commune = geoindex.Normalize(v.Commune)
	if p, ok := geoindex.PrefectureOf(v.Commune); ok {
		v.Prefecture = p
	}
	return v
}
