package model

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// Record kinds.
const (
	KindMission = "mission"
	KindChange  = "change"
)

// Mission statuses.
const (
	MissionPlanned    = "PLANNED"
	MissionInProgress = "IN_PROGRESS"
	MissionDone       = "DONE"
	MissionSuspended  = "SUSPENDED"
)

// Change statuses.
const (
	ChangeDetected    = "DETECTED"
	ChangeInTreatment = "IN_TREATMENT"
	ChangeTreated     = "TREATED"
)

// Viewer roles. FIELD_AGENT is the only restricted role; every other role
// sees unrestricted data.
const (
	RoleFieldAgent  = "FIELD_AGENT"
	RoleSupervisor  = "SUPERVISOR"
	RoleCoordinator = "COORDINATOR"
	RoleAdmin       = "ADMIN"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a lat/lng axis-aligned box used for camera framing.
type Bounds struct {
	SouthWest GeoPoint `json:"southWest"`
	NorthEast GeoPoint `json:"northEast"`
}

// Mission is a planned field intervention supplied read-only by the store.
type Mission struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Commune     string            `json:"commune,omitempty"`
	Prefecture  string            `json:"prefecture,omitempty"`
	Status      string            `json:"status,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	SurfaceHa   *float64          `json:"surfaceHa,omitempty"`
	Description string            `json:"description,omitempty"`
	AssigneeID  string            `json:"assigneeId,omitempty"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
	// Legacy records carry a bare coordinate pair instead of GeoJSON.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Change is a detected land-use change supplied read-only by the store.
type Change struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Commune     string            `json:"commune,omitempty"`
	Prefecture  string            `json:"prefecture,omitempty"`
	Type        string            `json:"type,omitempty"`
	Status      string            `json:"status,omitempty"`
	DetectedAt  time.Time         `json:"detectedAt"`
	SurfaceHa   *float64          `json:"surfaceHa,omitempty"`
	Description string            `json:"description,omitempty"`
	ReporterID  string            `json:"reporterId,omitempty"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
}

// GeoRecord is the uniform read-only view the policy, filter and render
// layers operate on. Both variants project into it; nothing downstream
// mutates the underlying record.
type GeoRecord struct {
	Kind        string
	ID          string
	Title       string
	Commune     string
	Prefecture  string
	Type        string
	Status      string
	Date        time.Time
	SurfaceHa   *float64
	Description string
	// OwnerID is the identity the record is attributed to: the mission
	// assignee or the change reporter.
	OwnerID   string
	Geometry  *geojson.Geometry
	Latitude  *float64
	Longitude *float64
}

// Record converts a Mission into its uniform view.
func (m Mission) Record() GeoRecord {
	return GeoRecord{
		Kind:        KindMission,
		ID:          m.ID,
		Title:       m.Title,
		Commune:     m.Commune,
		Prefecture:  m.Prefecture,
		Status:      m.Status,
		Date:        m.CreatedAt,
		SurfaceHa:   m.SurfaceHa,
		Description: m.Description,
		OwnerID:     m.AssigneeID,
		Geometry:    m.Geometry,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
	}
}

// Record converts a Change into its uniform view. The primary date of a
// change is its detection timestamp.
func (c Change) Record() GeoRecord {
	return GeoRecord{
		Kind:        KindChange,
		ID:          c.ID,
		Title:       c.Title,
		Commune:     c.Commune,
		Prefecture:  c.Prefecture,
		Type:        c.Type,
		Status:      c.Status,
		Date:        c.DetectedAt,
		SurfaceHa:   c.SurfaceHa,
		Description: c.Description,
		OwnerID:     c.ReporterID,
		Geometry:    c.Geometry,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
	}
}

// Viewer identifies who is looking at the map. Immutable for the duration
// of a session; drives the visibility policy.
type Viewer struct {
	ID         string `json:"id,omitempty"`
	Role       string `json:"role"`
	Commune    string `json:"commune,omitempty"`
	Prefecture string `json:"prefecture,omitempty"`
}

// Restricted reports whether the viewer's visibility is scoped to their
// home jurisdiction.
func (v Viewer) Restricted() bool { return v.Role == RoleFieldAgent }

// MissionInput is the payload accepted by the mission create endpoint.
type MissionInput struct {
	Title       string            `json:"title"`
	Commune     string            `json:"commune"`
	Status      string            `json:"status,omitempty"`
	SurfaceHa   *float64          `json:"surfaceHa,omitempty"`
	Description string            `json:"description,omitempty"`
	AssigneeID  string            `json:"assigneeId,omitempty"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
}
