// Package visibility decides which geo-tagged records a viewer may see.
// Every read surface must go through these two predicates instead of
// re-deriving per-role checks.
package visibility

import (
	"geowatch/internal/geoindex"
	"geowatch/internal/model"
)

// IsVisible reports whether the record falls inside the viewer's scope.
// Elevated roles see everything. A restricted viewer sees a record when
// any of three widening tiers matches:
//
//  1. the normalized communes are equal (the strict case),
//  2. both communes belong to the same jurisdiction (the common case: an
//     agent oversees a whole arrondissement),
//  3. the prefecture short labels are equal (the widest fallback, covering
//     cross-naming of the same city when commune data is inconsistent).
//
// The predicate is pure and total: missing fields are non-matching, never
// an error.
func IsVisible(viewer model.Viewer, rec model.GeoRecord) bool {
	if !viewer.Restricted() {
		return true
	}
	recCommune := geoindex.Normalize(rec.Commune)
	homeCommune := geoindex.Normalize(viewer.Commune)
	if recCommune != "" && recCommune == homeCommune {
		return true
	}
	if geoindex.SameJurisdiction(rec.Commune, viewer.Commune) {
		return true
	}
	recShort, okRec := geoindex.PrefectureShortOf(rec.Commune)
	homeShort, okHome := geoindex.PrefectureShortOf(viewer.Commune)
	return okRec && okHome && recShort == homeShort
}

// IsVisibleAction additionally grants visibility when the record is
// attributed to the viewer by identity, independent of geography.
func IsVisibleAction(viewer model.Viewer, rec model.GeoRecord) bool {
	if viewer.ID != "" && rec.OwnerID == viewer.ID {
		return true
	}
	return IsVisible(viewer, rec)
}
