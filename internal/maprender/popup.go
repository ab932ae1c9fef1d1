package maprender

import (
	"fmt"
	"html"
	"strings"

	"geowatch/internal/model"
)

// descriptionLimit caps the popup description; longer text is truncated
// with an ellipsis marker.
const descriptionLimit = 100

// statusColor maps a record status onto its marker color.
func statusColor(rec model.GeoRecord) string {
	switch rec.Status {
	case model.MissionPlanned:
		return "#3388ff"
	case model.MissionInProgress, model.ChangeInTreatment:
		return "#ff9800"
	case model.MissionDone, model.ChangeTreated:
		return "#4caf50"
	case model.MissionSuspended:
		return "#9e9e9e"
	case model.ChangeDetected:
		return "#e53935"
	}
	return "#607d8b"
}

// popupHTML renders the popup content block: title, kind badge, an
// optional commune/prefecture line, then status, surface and truncated
// description lines when the record carries them.
func popupHTML(rec model.GeoRecord) string {
	var b strings.Builder
	title := rec.Title
	if title == "" {
		title = rec.ID
	}
	badge := "Mission"
	if rec.Kind == model.KindChange {
		badge = "Change"
	}
	b.WriteString(`<div class="gw-popup">`)
	fmt.Fprintf(&b, `<strong>%s</strong> <span class="gw-badge">%s</span>`,
		html.EscapeString(title), badge)
	if rec.Commune != "" || rec.Prefecture != "" {
		var parts []string
		if rec.Commune != "" {
			parts = append(parts, rec.Commune)
		}
		if rec.Prefecture != "" {
			parts = append(parts, rec.Prefecture)
		}
		b.WriteString("<br>")
		b.WriteString(html.EscapeString(strings.Join(parts, ", ")))
	}
	if rec.Status != "" {
		fmt.Fprintf(&b, `<br>Status: %s`, html.EscapeString(rec.Status))
	}
	if rec.SurfaceHa != nil {
		fmt.Fprintf(&b, `<br>Surface: %.2f ha`, *rec.SurfaceHa)
	}
	if rec.Description != "" {
		fmt.Fprintf(&b, `<br><em>%s</em>`, html.EscapeString(truncate(rec.Description, descriptionLimit)))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// truncate shortens s to at most n runes, appending an ellipsis when text
// was dropped.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
