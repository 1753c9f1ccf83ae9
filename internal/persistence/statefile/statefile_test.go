package statefile

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleState() StateV1 {
	return StateV1{
		Header: Header{Version: 1, SavedAt: 1756725000},
		Buyback: BuybackV1{
			LastGeneratedAt: 1756720000,
			Offers: []OfferV1{
				{ID: "IRON_INGOT", InitialPrice: 241.5, CurrentPrice: 120.75, Step: 24.15, GroupSize: 12},
				{ID: "DIAMOND_SWORD", InitialPrice: 3500, CurrentPrice: 0, Step: 350, Disabled: true, GroupSize: 1},
			},
		},
		Demand: DemandV1{
			BuysSinceAdjust: map[string]int{"BREAD": 2},
			BuyMult:         map[string]float64{"BREAD": 1.1},
			SellMult:        map[string]float64{"IRON_INGOT": 0.95},
		},
		Quests: QuestsV1{
			Date:    "2025-09-01",
			IDs:     []string{"fetch_iron", "kill_zombies"},
			Rewards: map[string]int{"fetch_iron": 150, "kill_zombies": 210},
			Players: map[string]PlayerV1{
				"p1": {
					Date:      "2025-09-01",
					Progress:  map[string]int{"kill_zombies": 4},
					Completed: map[string]bool{"fetch_iron": true},
					Claimed:   map[string]bool{},
				},
			},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.zst")
	want := sampleState()
	if err := Write(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.Header != want.Header {
		t.Fatalf("header = %+v, want %+v", got.Header, want.Header)
	}
	if got.Buyback.LastGeneratedAt != want.Buyback.LastGeneratedAt {
		t.Fatalf("buyback timestamp mismatch")
	}
	if len(got.Buyback.Offers) != 2 || got.Buyback.Offers[0] != want.Buyback.Offers[0] {
		t.Fatalf("offers = %+v", got.Buyback.Offers)
	}
	if !got.Buyback.Offers[1].Disabled {
		t.Fatalf("disabled flag lost")
	}
	if got.Demand.BuyMult["BREAD"] != 1.1 || got.Demand.SellMult["IRON_INGOT"] != 0.95 {
		t.Fatalf("demand = %+v", got.Demand)
	}
	if got.Quests.Date != "2025-09-01" || len(got.Quests.IDs) != 2 {
		t.Fatalf("quests = %+v", got.Quests)
	}
	if got.Quests.Players["p1"].Progress["kill_zombies"] != 4 {
		t.Fatalf("player progress lost: %+v", got.Quests.Players["p1"])
	}
}

func TestWriteCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.zst")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.zst")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.zst"))
	if err == nil {
		t.Fatalf("read of missing file must fail")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.zst")
	if err := os.WriteFile(path, []byte("not a zstd stream"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("read of corrupt file must fail")
	}
}
