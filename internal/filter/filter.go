// Package filter combines the visibility policy with user-selected facet
// filters to produce the bounded, ordered working set handed to the render
// pipeline.
package filter

import (
	"net/url"
	"time"

	"geowatch/internal/geoindex"
	"geowatch/internal/model"
	"geowatch/internal/visibility"
)

// DefaultCap bounds the working set; the filtered sequence is truncated to
// this length after filtering, as a stable prefix.
const DefaultCap = 100

// View scopes.
const (
	ViewAll      = "all"
	ViewMissions = "missions"
	ViewChanges  = "changes"
)

// State holds the user-selected facets. Empty string facets are wildcards.
type State struct {
	View    string
	Type    string
	Status  string
	Commune string
	From    *time.Time
	To      *time.Time
}

// Update is a partial change to a State. Nil fields are left unchanged; a
// pointer to the zero value clears the facet.
type Update struct {
	View    *string
	Type    *string
	Status  *string
	Commune *string
	From    *time.Time
	To      *time.Time
}

// Defaults builds the role-appropriate initial state. A restricted
// viewer's commune facet is pre-set to their home commune.
func Defaults(viewer model.Viewer) State {
	s := State{View: ViewAll}
	if viewer.Restricted() {
		s.Commune = geoindex.Normalize(viewer.Commune)
	}
	return s
}

// Merge applies a partial update. The commune facet of a restricted viewer
// is not independently clearable: blanking it snaps back to the home
// commune.
func Merge(s State, u Update, viewer model.Viewer) State {
	if u.View != nil {
		s.View = normalizeView(*u.View)
	}
	if u.Type != nil {
		s.Type = *u.Type
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Commune != nil {
		s.Commune = geoindex.Normalize(*u.Commune)
	}
	if u.From != nil {
		if u.From.IsZero() {
			s.From = nil
		} else {
			t := *u.From
			s.From = &t
		}
	}
	if u.To != nil {
		if u.To.IsZero() {
			s.To = nil
		} else {
			t := *u.To
			s.To = &t
		}
	}
	if viewer.Restricted() && s.Commune == "" {
		s.Commune = geoindex.Normalize(viewer.Commune)
	}
	return s
}

// ParseQuery seeds a State from an external query string. Recognized keys
// mirror the State fields; unknown keys are ignored and malformed values
// fail open, leaving the field at its default.
func ParseQuery(values url.Values, viewer model.Viewer) State {
	s := Defaults(viewer)
	if v := values.Get("view"); v != "" {
		s.View = normalizeView(v)
	}
	if v := values.Get("type"); v != "" {
		s.Type = v
	}
	if v := values.Get("status"); v != "" {
		s.Status = v
	}
	if v := values.Get("commune"); v != "" {
		s.Commune = geoindex.Normalize(v)
	}
	if t, ok := parseDate(values.Get("from")); ok {
		s.From = &t
	}
	if t, ok := parseDate(values.Get("to")); ok {
		s.To = &t
	}
	if viewer.Restricted() && s.Commune == "" {
		s.Commune = geoindex.Normalize(viewer.Commune)
	}
	return s
}

func normalizeView(v string) string {
	switch v {
	case ViewMissions, ViewChanges, ViewAll:
		return v
	}
	return ViewAll
}

func parseDate(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Engine applies visibility and facets with a configured cap.
type Engine struct {
	Cap int
}

// NewEngine returns an Engine; a non-positive cap falls back to
// DefaultCap.
func NewEngine(cap int) Engine {
	if cap <= 0 {
		cap = DefaultCap
	}
	return Engine{Cap: cap}
}

// Apply produces the ordered working set: records are partitioned by kind,
// restricted to what the viewer may see, facet-filtered, concatenated
// missions first and truncated to the cap. Order within a partition
// follows the input, which makes truncation deterministic. No predicate
// here ever errors; a record with an absent or incoherent date simply
// fails the date-range test.
func (e Engine) Apply(records []model.GeoRecord, viewer model.Viewer, s State) []model.GeoRecord {
	var missions, changes []model.GeoRecord
	for _, rec := range records {
		if !visibility.IsVisible(viewer, rec) {
			continue
		}
		if !e.matchFacets(rec, s) {
			continue
		}
		switch rec.Kind {
		case model.KindMission:
			if s.View == ViewChanges {
				continue
			}
			missions = append(missions, rec)
		case model.KindChange:
			if s.View == ViewMissions {
				continue
			}
			changes = append(changes, rec)
		}
	}
	out := make([]model.GeoRecord, 0, len(missions)+len(changes))
	out = append(out, missions...)
	out = append(out, changes...)
	if len(out) > e.Cap {
		out = out[:e.Cap]
	}
	return out
}

func (e Engine) matchFacets(rec model.GeoRecord, s State) bool {
	if s.Status != "" && rec.Status != s.Status {
		return false
	}
	if s.Type != "" && rec.Type != s.Type {
		return false
	}
	if s.Commune != "" && geoindex.Normalize(rec.Commune) != s.Commune {
		return false
	}
	if s.From != nil || s.To != nil {
		if rec.Date.IsZero() {
			return false
		}
		if s.From != nil && rec.Date.Before(*s.From) {
			return false
		}
		if s.To != nil && rec.Date.After(*s.To) {
			return false
		}
	}
	return true
}
