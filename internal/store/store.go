// Package store supplies mission and change records to the core. Records
// are handed out as read-only snapshots: a new slice identity means the
// caller should recompute its derived views.
package store

import (
	"context"
	"errors"

	"geowatch/internal/model"
)

// Store is the upstream data collaborator interface.
type Store interface {
	ListMissions(ctx context.Context) ([]model.Mission, error)
	ListChanges(ctx context.Context) ([]model.Change, error)
	GetMission(ctx context.Context, id string) (model.Mission, error)
	CreateMission(ctx context.Context, in model.MissionInput) (model.Mission, error)
	Close()
}

var ErrNotFound = errors.New("not found")

// Snapshot projects both record kinds into the uniform view consumed by
// the filter and render layers, missions first.
func Snapshot(ctx context.Context, s Store) ([]model.GeoRecord, error) {
	missions, err := s.ListMissions(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := s.ListChanges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.GeoRecord, 0, len(missions)+len(changes))
	for _, m := range missions {
		out = append(out, m.Record())
	}
	for _, c := range changes {
		out = append(out, c.Record())
	}
	return out, nil
}
