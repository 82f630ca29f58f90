package nav

import "testing"

func TestBuildMarksExactlyOneActive(t *testing.T) {
	for _, current := range []string{Home, Drinks, Emergency, "unknown", ""} {
		active := 0
		for _, it := range Build(current) {
			if it.Active {
				active++
			}
		}
		if active != 1 {
			t.Fatalf("Build(%q): expected exactly one active item, got %d", current, active)
		}
	}
}

func TestBuildUnknownFallsBackToHome(t *testing.T) {
	for _, it := range Build("nope") {
		if it.Active && it.ID != Home {
			t.Fatalf("expected home to be active, got %s", it.ID)
		}
	}
}

func TestTilesExcludeHomeAndEmergency(t *testing.T) {
	for _, it := range Tiles() {
		if it.ID == Home || it.ID == Emergency {
			t.Fatalf("unexpected tile %s", it.ID)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid(Breakfast) || Valid("admin") {
		t.Fatalf("unexpected page validity")
	}
	if !ValidModal(ModalTerms) || ValidModal(Home) {
		t.Fatalf("unexpected modal validity")
	}
}
