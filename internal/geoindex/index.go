// Package geoindex answers jurisdiction-containment, aliasing and framing
// queries over the static administrative reference table. Every lookup is
// total: unknown names degrade to the zero value and a false flag, never
// to an error. Callers must treat a false flag as "no containment relation
// available", not as a failure.
package geoindex

import (
	"sort"
	"strings"

	"geowatch/internal/model"
)

const (
	communePad      = 0.015
	jurisdictionPad = 0.02
)

// Normalize resolves field-data spellings onto canonical commune names.
// Unknown names pass through trimmed but otherwise unchanged, so the
// function never fails and is idempotent.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if canonical, ok := aliases[trimmed]; ok {
		return canonical
	}
	return trimmed
}

// JurisdictionOf returns the unit overseeing the commune. The second
// return is false for communes outside the reference table.
func JurisdictionOf(commune string) (Jurisdiction, bool) {
	name, ok := jurisdictionByCommune[Normalize(commune)]
	if !ok {
		return Jurisdiction{}, false
	}
	return jurisdictions[name], true
}

// CommunesOf lists the canonical communes of a jurisdiction, sorted for
// deterministic output. Unknown jurisdictions yield nil.
func CommunesOf(jurisdiction string) []string {
	members := communesByJurisdiction[jurisdiction]
	if members == nil {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	sort.Strings(out)
	return out
}

// PrefectureOf returns the full prefecture label of the commune's
// jurisdiction.
func PrefectureOf(commune string) (string, bool) {
	j, ok := JurisdictionOf(commune)
	if !ok {
		return "", false
	}
	return j.Prefecture, true
}

// PrefectureShortOf collapses all arrondissement-level labels of the same
// city into one short label, so "Maârif" and "Sidi Moumen" both answer
// "Casablanca".
func PrefectureShortOf(commune string) (string, bool) {
	j, ok := JurisdictionOf(commune)
	if !ok {
		return "", false
	}
	return j.Short, true
}

// SameJurisdiction reports whether both communes normalize onto the same
// known jurisdiction. Either commune being unknown means no containment
// relation, hence false.
func SameJurisdiction(a, b string) bool {
	ja, ok := JurisdictionOf(a)
	if !ok {
		return false
	}
	jb, ok := JurisdictionOf(b)
	if !ok {
		return false
	}
	return ja.Name == jb.Name
}

// CoordinatesOf returns the representative point of a commune.
func CoordinatesOf(commune string) (model.GeoPoint, bool) {
	p, ok := coordinates[Normalize(commune)]
	return p, ok
}

// CommuneBounds frames a commune with a fixed pad around its
// representative point.
func CommuneBounds(commune string) (model.Bounds, bool) {
	p, ok := CoordinatesOf(commune)
	if !ok {
		return model.Bounds{}, false
	}
	return padBounds(p.Lat, p.Lat, p.Lng, p.Lng, communePad), true
}

// JurisdictionBounds frames a whole jurisdiction: the min/max envelope of
// its member commune coordinates, padded slightly wider than a single
// commune frame.
func JurisdictionBounds(jurisdiction string) (model.Bounds, bool) {
	members := communesByJurisdiction[jurisdiction]
	if len(members) == 0 {
		return model.Bounds{}, false
	}
	first := true
	var minLat, maxLat, minLng, maxLng float64
	for _, commune := range members {
		p, ok := coordinates[commune]
		if !ok {
			continue
		}
		if first {
			minLat, maxLat, minLng, maxLng = p.Lat, p.Lat, p.Lng, p.Lng
			first = false
			continue
		}
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lng < minLng {
			minLng = p.Lng
		}
		if p.Lng > maxLng {
			maxLng = p.Lng
		}
	}
	if first {
		return model.Bounds{}, false
	}
	return padBounds(minLat, maxLat, minLng, maxLng, jurisdictionPad), true
}

// Communes lists every canonical commune in the reference table, sorted.
func Communes() []string {
	out := make([]string, 0, len(jurisdictionByCommune))
	for commune := range jurisdictionByCommune {
		out = append(out, commune)
	}
	sort.Strings(out)
	return out
}

// Known reports whether the commune (after normalization) appears in the
// reference table.
func Known(commune string) bool {
	_, ok := jurisdictionByCommune[Normalize(commune)]
	return ok
}

func padBounds(minLat, maxLat, minLng, maxLng, pad float64) model.Bounds {
	return model.Bounds{
		SouthWest: model.GeoPoint{Lat: minLat - pad, Lng: minLng - pad},
		NorthEast: model.GeoPoint{Lat: maxLat + pad, Lng: maxLng + pad},
	}
}
