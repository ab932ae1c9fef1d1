package store

import (
	"context"
	"testing"

	"geowatch/internal/model"
)

func TestMemoryCreateAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created, err := m.CreateMission(ctx, model.MissionInput{Title: "Relevé", Commune: "Maarif"})
	if err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	if created.ID == "" || created.Status != model.MissionPlanned {
		t.Fatalf("created = %+v", created)
	}
	if created.Commune != "Maârif" {
		t.Fatalf("commune not normalized: %q", created.Commune)
	}
	if created.Prefecture == "" {
		t.Fatal("prefecture not derived from the reference table")
	}
	got, err := m.GetMission(ctx, created.ID)
	if err != nil || got.ID != created.ID {
		t.Fatalf("GetMission: %v %+v", err, got)
	}
	if _, err := m.GetMission(ctx, "nope"); err != ErrNotFound {
		t.Fatalf("GetMission miss = %v, want ErrNotFound", err)
	}
}

func TestMemoryListOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		if _, err := m.CreateMission(ctx, model.MissionInput{Title: title, Commune: "Anfa"}); err != nil {
			t.Fatalf("CreateMission: %v", err)
		}
	}
	missions, err := m.ListMissions(ctx)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(missions) != 3 || missions[0].Title != "a" || missions[2].Title != "c" {
		t.Fatalf("creation order lost: %+v", missions)
	}
}

func TestSnapshotProjectsBothKinds(t *testing.T) {
	m := NewMemory()
	m.SeedDemo()
	records, err := Snapshot(context.Background(), m)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	var missions, changes int
	for _, rec := range records {
		switch rec.Kind {
		case model.KindMission:
			missions++
			if changes > 0 {
				t.Fatal("missions must precede changes in the snapshot")
			}
		case model.KindChange:
			changes++
		}
	}
	if missions == 0 || changes == 0 {
		t.Fatalf("seed produced %d missions, %d changes", missions, changes)
	}
}
