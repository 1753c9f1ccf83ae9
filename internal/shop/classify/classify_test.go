package classify

import (
	"testing"

	"tradepost.gg/internal/catalogs"
)

func testItems(t *testing.T, defs ...catalogs.ItemDef) catalogs.ItemCatalog {
	t.Helper()
	out := catalogs.ItemCatalog{Defs: map[string]catalogs.ItemDef{}}
	for _, d := range defs {
		if d.MaxStack == 0 {
			d.MaxStack = 64
		}
		out.Defs[d.ID] = d
		out.Palette = append(out.Palette, d.ID)
	}
	return out
}

func TestTierFromName(t *testing.T) {
	c := New(testItems(t))
	cases := []struct {
		id   string
		want Tier
	}{
		{"NETHERITE_SWORD", TierLegendary},
		{"ENCHANTED_GOLDEN_APPLE", TierLegendary},
		{"ELYTRA", TierLegendary},
		{"BEACON", TierLegendary},
		{"ANCIENT_DEBRIS", TierLegendary},
		{"DIAMOND_PICKAXE", TierEpic},
		{"TRIDENT", TierEpic},
		{"SHULKER_BOX", TierEpic},
		{"GOLDEN_APPLE", TierEpic},
		{"ENDER_PEARL", TierEpic},
		{"IRON_SWORD", TierUncommon},
		{"GOLDEN_HELMET", TierUncommon},
		{"BOW", TierUncommon},
		{"SHIELD", TierUncommon},
		{"CHAINMAIL_CHESTPLATE", TierUncommon},
		{"ANVIL", TierUncommon},
		{"WOODEN_SWORD", TierCommon},
		{"LEATHER_BOOTS", TierCommon},
		{"DIRT", TierGarbage},
		{"STONE_SWORD", TierGarbage},
	}
	for _, tc := range cases {
		if got := c.TierFor(tc.id); got != tc.want {
			t.Fatalf("TierFor(%s) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestCategorize(t *testing.T) {
	items := testItems(t,
		catalogs.ItemDef{ID: "IRON_SWORD", MaxStack: 1},
		catalogs.ItemDef{ID: "IRON_HELMET", MaxStack: 1},
		catalogs.ItemDef{ID: "FURNACE", Block: true},
		catalogs.ItemDef{ID: "ZOMBIE_SPAWN_EGG"},
		catalogs.ItemDef{ID: "SPONGE", Block: true},
		catalogs.ItemDef{ID: "STRING"},
	)
	c := New(items)

	cases := []struct {
		id   string
		want Category
	}{
		{"IRON_SWORD", CategoryToolOrWeapon},
		{"IRON_HELMET", CategoryArmor},
		{"FURNACE", CategoryBlock},
		{"ZOMBIE_SPAWN_EGG", CategorySpawnItem},
		{"SPONGE", CategorySpecialReward},
		{"STRING", CategoryGarbage},
	}
	for _, tc := range cases {
		if got := c.Categorize(tc.id); got != tc.want {
			t.Fatalf("Categorize(%s) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestUnknownItemClassifiesGarbage(t *testing.T) {
	c := New(testItems(t))
	tier, cat := c.Classify("NO_SUCH_ITEM")
	if tier != TierGarbage || cat != CategoryGarbage {
		t.Fatalf("unknown item: got (%v, %v), want garbage in both", tier, cat)
	}
}

func TestDisallowedForBuyback(t *testing.T) {
	banned := []string{"ZOMBIE_SPAWN_EGG", "SHULKER_BOX", "RED_SHULKER_BOX", "IRON_ORE", "BEACON", "BEDROCK"}
	for _, id := range banned {
		if !DisallowedForBuyback(id) {
			t.Fatalf("expected %s disallowed for buyback", id)
		}
	}
	allowed := []string{"IRON_INGOT", "IRON_SWORD", "FURNACE", "STRING"}
	for _, id := range allowed {
		if DisallowedForBuyback(id) {
			t.Fatalf("expected %s allowed for buyback", id)
		}
	}
}

func TestBuildBuybackPools(t *testing.T) {
	items := testItems(t,
		catalogs.ItemDef{ID: "IRON_SWORD", MaxStack: 1},
		catalogs.ItemDef{ID: "BOW", MaxStack: 1},
		catalogs.ItemDef{ID: "IRON_PICKAXE", MaxStack: 1},
		catalogs.ItemDef{ID: "FURNACE", Block: true},
		catalogs.ItemDef{ID: "IRON_ORE", Block: true},
		catalogs.ItemDef{ID: "IRON_INGOT"},
		catalogs.ItemDef{ID: "REDSTONE"},
		catalogs.ItemDef{ID: "STRING"},
		catalogs.ItemDef{ID: "IRON_HELMET", MaxStack: 1},
		catalogs.ItemDef{ID: "BEACON", Block: true},
	)
	c := New(items)
	p := c.BuildBuybackPools()

	if len(p.Weapons) != 2 {
		t.Fatalf("weapons pool = %v, want IRON_SWORD and BOW", p.Weapons)
	}
	if len(p.Tools) != 1 || p.Tools[0] != "IRON_PICKAXE" {
		t.Fatalf("tools pool = %v", p.Tools)
	}
	if len(p.Blocks) != 1 || p.Blocks[0] != "FURNACE" {
		t.Fatalf("blocks pool = %v (ore and beacon must be excluded)", p.Blocks)
	}
	if len(p.RawMaterials) != 2 {
		t.Fatalf("raw materials pool = %v", p.RawMaterials)
	}
	if len(p.Miscellany) != 1 || p.Miscellany[0] != "STRING" {
		t.Fatalf("miscellany pool = %v (armor must not land here)", p.Miscellany)
	}
}

func TestShieldStaysOutOfBuybackPools(t *testing.T) {
	items := testItems(t,
		catalogs.ItemDef{ID: "SHIELD", MaxStack: 1},
		catalogs.ItemDef{ID: "IRON_SWORD", MaxStack: 1},
	)
	c := New(items)

	// SHIELD still trades as equipment in the shop.
	if got := c.Categorize("SHIELD"); got != CategoryToolOrWeapon {
		t.Fatalf("Categorize(SHIELD) = %v", got)
	}
	if !c.Useful("SHIELD") {
		t.Fatalf("SHIELD must stay tradable")
	}

	// But the shop only buys back offensive weapons.
	p := c.BuildBuybackPools()
	if len(p.Weapons) != 1 || p.Weapons[0] != "IRON_SWORD" {
		t.Fatalf("weapons pool = %v, want only IRON_SWORD", p.Weapons)
	}
	for _, pool := range [][]string{p.Tools, p.Blocks, p.RawMaterials, p.Miscellany} {
		for _, id := range pool {
			if id == "SHIELD" {
				t.Fatalf("SHIELD leaked into a buyback pool")
			}
		}
	}
}

func TestTierPoolsOnlyContainUsefulItems(t *testing.T) {
	items := testItems(t,
		catalogs.ItemDef{ID: "DIAMOND_SWORD", MaxStack: 1},
		catalogs.ItemDef{ID: "DIAMOND_ORE", Block: true},
		catalogs.ItemDef{ID: "ZOMBIE_SPAWN_EGG"},
	)
	c := New(items)
	pool := c.TierPool(TierEpic)
	if len(pool) != 1 || pool[0] != "DIAMOND_SWORD" {
		t.Fatalf("epic pool = %v, want only DIAMOND_SWORD", pool)
	}
	if got := c.CategoryPool(CategorySpawnItem); len(got) != 1 || got[0] != "ZOMBIE_SPAWN_EGG" {
		t.Fatalf("spawn item pool = %v", got)
	}
}
