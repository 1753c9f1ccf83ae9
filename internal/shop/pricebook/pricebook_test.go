package pricebook

import (
	"testing"

	"tradepost.gg/internal/catalogs"
	"tradepost.gg/internal/shop/classify"
	"tradepost.gg/internal/tuning"
)

func testBook(t *testing.T) *Book {
	t.Helper()
	items := catalogs.ItemCatalog{Defs: map[string]catalogs.ItemDef{}}
	add := func(d catalogs.ItemDef) {
		if d.MaxStack == 0 {
			d.MaxStack = 64
		}
		items.Defs[d.ID] = d
		items.Palette = append(items.Palette, d.ID)
	}
	add(catalogs.ItemDef{ID: "WOODEN_SWORD", MaxStack: 1})
	add(catalogs.ItemDef{ID: "IRON_SWORD", MaxStack: 1})
	add(catalogs.ItemDef{ID: "DIAMOND_SWORD", MaxStack: 1})
	add(catalogs.ItemDef{ID: "NETHERITE_SWORD", MaxStack: 1})
	add(catalogs.ItemDef{ID: "GOLDEN_SWORD", MaxStack: 1})
	add(catalogs.ItemDef{ID: "ARROW"})
	add(catalogs.ItemDef{ID: "STRING"})
	add(catalogs.ItemDef{ID: "ZOMBIE_SPAWN_EGG"})
	add(catalogs.ItemDef{ID: "SPONGE", Block: true})

	tune := tuning.Defaults()
	tune.Pricing.YieldByItem = map[string]float64{"ARROW": 0.25, "GOLDEN_SWORD": 0.25}
	return New(classify.New(items), tune)
}

func TestTierBasePrices(t *testing.T) {
	b := testBook(t)
	cases := []struct {
		id   string
		want float64
	}{
		{"WOODEN_SWORD", 100},
		{"IRON_SWORD", 300},
		{"DIAMOND_SWORD", 1000},
		{"NETHERITE_SWORD", 5000},
	}
	for _, tc := range cases {
		if got := b.UnitPrice(tc.id); got != tc.want {
			t.Fatalf("UnitPrice(%s) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestYieldFactorScalesPrice(t *testing.T) {
	b := testBook(t)
	if got := b.UnitPrice("GOLDEN_SWORD"); got != 75 {
		t.Fatalf("UnitPrice(GOLDEN_SWORD) = %v, want 300*0.25 = 75", got)
	}
	// ARROW sits in the garbage tier, so the yield factor scales the flat
	// garbage base.
	if got := b.UnitPrice("ARROW"); got != 0.5 {
		t.Fatalf("UnitPrice(ARROW) = %v, want 2*0.25 = 0.5", got)
	}
}

func TestSpecialCategoryFlatPrices(t *testing.T) {
	b := testBook(t)
	if got := b.UnitPrice("ZOMBIE_SPAWN_EGG"); got != 2500 {
		t.Fatalf("spawn egg price = %v, want 2500", got)
	}
	if got := b.UnitPrice("SPONGE"); got != 500 {
		t.Fatalf("lucky block price = %v, want 500", got)
	}
	if got := b.UnitPrice("STRING"); got != 2 {
		t.Fatalf("garbage price = %v, want 2", got)
	}
}

func TestReloadSwapsPrices(t *testing.T) {
	b := testBook(t)
	tune := tuning.Defaults()
	tune.Prices.Common = 50
	b.Reload(tune)
	if got := b.UnitPrice("WOODEN_SWORD"); got != 50 {
		t.Fatalf("after reload UnitPrice(WOODEN_SWORD) = %v, want 50", got)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{1.006, 1.01},
		{1.004, 1.0},
		{0.0, 0.0},
		{-1.006, -1.01},
		{549.999, 550.0},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
