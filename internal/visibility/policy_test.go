package visibility

import (
	"testing"

	"geowatch/internal/model"
)

func agent(commune string) model.Viewer {
	return model.Viewer{ID: "agent-1", Role: model.RoleFieldAgent, Commune: commune, Prefecture: "Casablanca"}
}

func TestElevatedRolesSeeEverything(t *testing.T) {
	rec := model.GeoRecord{Commune: "Nouaceur"}
	for _, role := range []string{model.RoleSupervisor, model.RoleCoordinator, model.RoleAdmin} {
		v := model.Viewer{Role: role, Commune: "Maârif"}
		if !IsVisible(v, rec) {
			t.Errorf("role %s should see record in a foreign province", role)
		}
	}
}

func TestRestrictedTiers(t *testing.T) {
	v := agent("Maârif")
	cases := []struct {
		name    string
		commune string
		want    bool
	}{
		{"same commune", "Maârif", true},
		{"same commune via alias", "Maarif", true},
		{"same jurisdiction", "Anfa", true},
		{"same city, other arrondissement", "Sidi Moumen", true},
		{"independent prefecture", "Mohammedia", false},
		{"other province", "Bouskoura", false},
		{"unknown commune", "Atlantis", false},
		{"empty commune", "", false},
	}
	for _, tc := range cases {
		got := IsVisible(v, model.GeoRecord{Commune: tc.commune})
		if got != tc.want {
			t.Errorf("%s: IsVisible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUnknownHomeCommuneMatchesNothingForeign(t *testing.T) {
	// Both communes unknown must not match through the prefecture tier.
	v := agent("Atlantis")
	if IsVisible(v, model.GeoRecord{Commune: "Lemuria"}) {
		t.Error("two unknown communes must not match")
	}
	// Exact equality of trimmed unknown names still counts as tier one.
	if !IsVisible(v, model.GeoRecord{Commune: " Atlantis "}) {
		t.Error("identical unknown communes should match on equality")
	}
}

func TestIsVisibleActionOwnership(t *testing.T) {
	v := agent("Maârif")
	foreign := model.GeoRecord{Commune: "Mohammedia", OwnerID: "agent-1"}
	if !IsVisibleAction(v, foreign) {
		t.Error("record attributed to the viewer should be visible regardless of geography")
	}
	other := model.GeoRecord{Commune: "Mohammedia", OwnerID: "agent-2"}
	if IsVisibleAction(v, other) {
		t.Error("foreign record owned by someone else should stay hidden")
	}
	// An empty viewer ID never matches an empty owner.
	anon := model.Viewer{Role: model.RoleFieldAgent, Commune: "Maârif"}
	if IsVisibleAction(anon, model.GeoRecord{Commune: "Mohammedia"}) {
		t.Error("empty owner and viewer IDs must not grant visibility")
	}
}
