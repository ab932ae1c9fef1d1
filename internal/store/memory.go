package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geowatch/internal/geoindex"
	"geowatch/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set, and the
// backend of choice in tests.
type Memory struct {
	mu       sync.Mutex
	missions map[string]model.Mission
	order    []string // mission ids, creation order
	changes  []model.Change
}

func NewMemory() *Memory {
	return &Memory{missions: map[string]model.Mission{}}
}

func (m *Memory) ListMissions(ctx context.Context) ([]model.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Mission, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.missions[id])
	}
	return out, nil
}

func (m *Memory) ListChanges(ctx context.Context) ([]model.Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Change, len(m.changes))
	copy(out, m.changes)
	return out, nil
}

func (m *Memory) GetMission(ctx context.Context, id string) (model.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mission, ok := m.missions[id]
	if !ok {
		return model.Mission{}, ErrNotFound
	}
	return mission, nil
}

func (m *Memory) CreateMission(ctx context.Context, in model.MissionInput) (model.Mission, error) {
	commune := geoindex.Normalize(in.Commune)
	prefecture, _ := geoindex.PrefectureOf(commune)
	status := in.Status
	if status == "" {
		status = model.MissionPlanned
	}
	mission := model.Mission{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Commune:     commune,
		Prefecture:  prefecture,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		SurfaceHa:   in.SurfaceHa,
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
		Geometry:    in.Geometry,
	}
	m.mu.Lock()
	m.missions[mission.ID] = mission
	m.order = append(m.order, mission.ID)
	m.mu.Unlock()
	return mission, nil
}

// AddChange seeds a change record; changes arrive from the detection
// pipeline, which is outside this service, so there is no public create
// endpoint for them.
func (m *Memory) AddChange(c model.Change) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	m.mu.Lock()
	m.changes = append(m.changes, c)
	m.mu.Unlock()
}

func (m *Memory) Close() {}

// SeedDemo loads a small cross-jurisdiction data set covering every
// geometry encoding the resolver handles: GeoJSON points, polygons,
// legacy coordinate pairs and records with no geometry at all.
func (m *Memory) SeedDemo() {
	now := time.Now().UTC()
	surface := 3.4
	demoMissions := []model.MissionInput{
		{
			Title:    "Contrôle parcelle Anfa",
			Commune:  "Anfa",
			Geometry: geojson.NewGeometry(orb.Point{-7.6388, 33.5928}),
		},
		{
			Title:   "Relevé Maârif",
			Commune: "Maarif",
			Status:  model.MissionInProgress,
			Geometry: geojson.NewGeometry(orb.Polygon{{
				{-7.645, 33.572}, {-7.641, 33.572}, {-7.641, 33.575}, {-7.645, 33.575}, {-7.645, 33.572},
			}}),
			SurfaceHa: &surface,
		},
		{
			Title:   "Inspection Mohammedia",
			Commune: "Mohammedia",
			Status:  model.MissionDone,
		},
	}
	ctx := context.Background()
	for _, in := range demoMissions {
		_, _ = m.CreateMission(ctx, in)
	}

	lat, lng := 33.5441, -7.5999
	m.AddChange(model.Change{
		Title:      "Construction non déclarée",
		Commune:    "Ain Chock",
		Prefecture: "Préfecture d'arrondissements d'Aïn Chock",
		Type:       "CONSTRUCTION",
		Status:     model.ChangeDetected,
		DetectedAt: now.AddDate(0, 0, -3),
		Latitude:   &lat,
		Longitude:  &lng,
	})
	m.AddChange(model.Change{
		Title:      "Extension bâtie",
		Commune:    "Sidi Moumen",
		Type:       "EXTENSION",
		Status:     model.ChangeInTreatment,
		DetectedAt: now.AddDate(0, 0, -10),
		Geometry:   geojson.NewGeometry(orb.Point{-7.5250, 33.5900}),
	})
}
