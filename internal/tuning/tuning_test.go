package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Prices.Common != 100 || d.Prices.Uncommon != 300 || d.Prices.Epic != 1000 || d.Prices.Legendary != 5000 {
		t.Fatalf("tier prices = %+v", d.Prices)
	}
	if d.Prices.Garbage != 2 {
		t.Fatalf("garbage price = %v", d.Prices.Garbage)
	}
	if d.Pricing.Dynamic.ShopIncreaseEveryNBuys != 3 || d.Pricing.Dynamic.MaxShopMultiplier != 3.0 {
		t.Fatalf("dynamic = %+v", d.Pricing.Dynamic)
	}
	if d.Rotation.Minutes != 30 || d.Rotation.CycleSeconds != 30 {
		t.Fatalf("rotation = %+v", d.Rotation)
	}
	if d.Buyback.OfferCount != 20 || d.Buyback.RegenSeconds != 7200 || d.Buyback.BaseMultiplier != 0.7 {
		t.Fatalf("buyback = %+v", d.Buyback)
	}
	q := d.Buyback.Quotas
	if q.Weapons+q.Tools+q.Blocks+q.RawMaterials+q.Miscellany != d.Buyback.OfferCount {
		t.Fatalf("quota sum %d != offer count %d", q.Weapons+q.Tools+q.Blocks+q.RawMaterials+q.Miscellany, d.Buyback.OfferCount)
	}
	if d.Quests.ResetZone != "Europe/Kyiv" || d.Quests.DailyCount != 7 {
		t.Fatalf("quests = %+v", d.Quests)
	}
	if d.Quests.FetchCount+d.Quests.KillCount+d.Quests.FishCount != d.Quests.DailyCount {
		t.Fatalf("kind counts do not sum to daily count: %+v", d.Quests)
	}
	if d.SpawnItemPrice != 2500 || d.LuckyBlockPrice != 500 {
		t.Fatalf("special prices = %v / %v", d.SpawnItemPrice, d.LuckyBlockPrice)
	}
}

func TestLoadPartialOverrideKeepsDefaults(t *testing.T) {
	path := writeYAML(t, `
prices:
  legendary: 8000
buyback:
  base_multiplier: 0.9
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Prices.Legendary != 8000 {
		t.Fatalf("legendary = %v, want override 8000", got.Prices.Legendary)
	}
	if got.Prices.Common != 100 {
		t.Fatalf("common = %v, want default kept", got.Prices.Common)
	}
	if got.Buyback.BaseMultiplier != 0.9 {
		t.Fatalf("base multiplier = %v", got.Buyback.BaseMultiplier)
	}
	if got.Buyback.RegenSeconds != 7200 {
		t.Fatalf("regen seconds = %v, want default kept", got.Buyback.RegenSeconds)
	}
}

func TestLoadClampsDegenerateValues(t *testing.T) {
	path := writeYAML(t, `
pricing:
  dynamic:
    shop_increase_every_n_buys: 0
    max_shop_multiplier: 0.5
    min_shop_multiplier: -1
rotation:
  minutes: 0
  cycle_seconds: -5
buyback:
  offer_count: 0
quests:
  reward_min: 200
  reward_max: 50
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Pricing.Dynamic.ShopIncreaseEveryNBuys != 1 {
		t.Fatalf("increase cadence = %d, want clamped to 1", got.Pricing.Dynamic.ShopIncreaseEveryNBuys)
	}
	if got.Pricing.Dynamic.MaxShopMultiplier != 1 {
		t.Fatalf("max shop multiplier = %v, want clamped to 1", got.Pricing.Dynamic.MaxShopMultiplier)
	}
	if got.Pricing.Dynamic.MinShopMultiplier != 0.1 {
		t.Fatalf("min shop multiplier = %v, want clamped to 0.1", got.Pricing.Dynamic.MinShopMultiplier)
	}
	if got.Rotation.Minutes != 1 || got.Rotation.CycleSeconds != 1 {
		t.Fatalf("rotation = %+v, want clamped to 1/1", got.Rotation)
	}
	if got.Buyback.OfferCount != 1 {
		t.Fatalf("offer count = %d, want clamped to 1", got.Buyback.OfferCount)
	}
	if got.Quests.RewardMax != got.Quests.RewardMin {
		t.Fatalf("reward range = [%d,%d], want max raised to min", got.Quests.RewardMin, got.Quests.RewardMax)
	}
}

func TestLoadMissingFileReturnsDefaultsAndError(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if got.Prices.Common != 100 {
		t.Fatalf("defaults must survive a missing file")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeYAML(t, "prices: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml must fail")
	}
}
