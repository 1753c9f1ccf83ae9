// Package classify maps item ids to a rarity tier and a structural category.
// Classification is a pure function of the item id plus the structural facts
// (block flag, stack size) carried by the item catalog.
package classify

import (
	"sort"
	"strings"

	"tradepost.gg/internal/catalogs"
)

type Tier int

const (
	TierCommon Tier = iota
	TierUncommon
	TierEpic
	TierLegendary
	TierGarbage
)

func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "COMMON"
	case TierUncommon:
		return "UNCOMMON"
	case TierEpic:
		return "EPIC"
	case TierLegendary:
		return "LEGENDARY"
	default:
		return "GARBAGE"
	}
}

// Tradable tiers, rarest last. Garbage is excluded.
var Tiers = []Tier{TierCommon, TierUncommon, TierEpic, TierLegendary}

type Category int

const (
	CategoryArmor Category = iota
	CategoryToolOrWeapon
	CategoryBlock
	CategorySpawnItem
	CategorySpecialReward
	CategoryGarbage
)

func (c Category) String() string {
	switch c {
	case CategoryArmor:
		return "ARMOR"
	case CategoryToolOrWeapon:
		return "TOOL_OR_WEAPON"
	case CategoryBlock:
		return "BLOCK"
	case CategorySpawnItem:
		return "SPAWN_ITEM"
	case CategorySpecialReward:
		return "SPECIAL_REWARD"
	default:
		return "GARBAGE"
	}
}

// LuckyBlockID is the single item sold as a special reward block.
const LuckyBlockID = "SPONGE"

type Classifier struct {
	items catalogs.ItemCatalog

	tierPools     map[Tier][]string
	categoryPools map[Category][]string
}

func New(items catalogs.ItemCatalog) *Classifier {
	c := &Classifier{items: items}
	c.buildPools()
	return c
}

func (c *Classifier) Known(id string) bool {
	_, ok := c.items.Defs[id]
	return ok
}

func (c *Classifier) IsBlock(id string) bool {
	return c.items.Defs[id].Block
}

func (c *Classifier) Stackable(id string) bool {
	d, ok := c.items.Defs[id]
	return ok && d.Stackable()
}

// Classify returns the tier and category for an item id. Unrecognized ids
// classify as garbage in both dimensions.
func (c *Classifier) Classify(id string) (Tier, Category) {
	if !c.Known(id) {
		return TierGarbage, CategoryGarbage
	}
	return c.TierFor(id), c.Categorize(id)
}

func (c *Classifier) TierFor(id string) Tier {
	n := id
	switch {
	case strings.Contains(n, "NETHERITE"), n == "ENCHANTED_GOLDEN_APPLE", n == "ELYTRA":
		return TierLegendary
	case strings.Contains(n, "DIAMOND"), n == "TRIDENT", strings.Contains(n, "SHULKER"),
		n == "GOLDEN_APPLE", strings.Contains(n, "ENDER"):
		return TierEpic
	case strings.HasPrefix(n, "IRON"), strings.HasPrefix(n, "GOLDEN"), strings.Contains(n, "GOLD"),
		n == "BOW", n == "CROSSBOW", n == "SHIELD", strings.HasPrefix(n, "CHAINMAIL"):
		return TierUncommon
	case strings.HasPrefix(n, "WOODEN"), strings.HasPrefix(n, "LEATHER"):
		return TierCommon
	case n == "BEACON", n == "BEDROCK", n == "ENCHANTING_TABLE", n == "ANCIENT_DEBRIS":
		return TierLegendary
	case n == "ANVIL":
		return TierUncommon
	}
	return TierGarbage
}

func (c *Classifier) Categorize(id string) Category {
	n := id
	if isArmorName(n) {
		return CategoryArmor
	}
	if isWeaponName(n) || isToolName(n) {
		return CategoryToolOrWeapon
	}
	if strings.HasSuffix(n, "SPAWN_EGG") {
		return CategorySpawnItem
	}
	if n == LuckyBlockID {
		return CategorySpecialReward
	}
	if c.IsBlock(n) {
		return CategoryBlock
	}
	return CategoryGarbage
}

func isArmorName(n string) bool {
	return strings.HasSuffix(n, "_HELMET") || strings.HasSuffix(n, "_CHESTPLATE") ||
		strings.HasSuffix(n, "_LEGGINGS") || strings.HasSuffix(n, "_BOOTS") || n == "ELYTRA"
}

func isWeaponName(n string) bool {
	return strings.HasSuffix(n, "_SWORD") || n == "BOW" || n == "CROSSBOW" || n == "TRIDENT" || n == "SHIELD"
}

func isToolName(n string) bool {
	return strings.HasSuffix(n, "_PICKAXE") || strings.HasSuffix(n, "_AXE") ||
		strings.HasSuffix(n, "_SHOVEL") || strings.HasSuffix(n, "_HOE") ||
		n == "SHEARS" || n == "FISHING_ROD"
}

// Useful reports whether an item belongs in the tradable catalog at all:
// equipment and functional blocks, not raw clutter.
func (c *Classifier) Useful(id string) bool {
	n := id
	if strings.HasSuffix(n, "SPAWN_EGG") {
		return false
	}
	if isArmorName(n) || isWeaponName(n) || isToolName(n) {
		return true
	}
	if c.IsBlock(n) {
		return functionalBlocks[n] || strings.HasSuffix(n, "SHULKER_BOX")
	}
	return n == "GOLDEN_APPLE" || n == "ENCHANTED_GOLDEN_APPLE"
}

var functionalBlocks = map[string]bool{
	"ENCHANTING_TABLE":  true,
	"ANVIL":             true,
	"GRINDSTONE":        true,
	"SMITHING_TABLE":    true,
	"CARTOGRAPHY_TABLE": true,
	"STONECUTTER":       true,
	"LOOM":              true,
	"FURNACE":           true,
	"BLAST_FURNACE":     true,
	"SMOKER":            true,
	"BREWING_STAND":     true,
	"BEACON":            true,
	"ENDER_CHEST":       true,
	"HOPPER":            true,
}

func (c *Classifier) buildPools() {
	c.tierPools = map[Tier][]string{}
	c.categoryPools = map[Category][]string{}

	for _, id := range c.items.Palette {
		if strings.HasSuffix(id, "SPAWN_EGG") {
			c.categoryPools[CategorySpawnItem] = append(c.categoryPools[CategorySpawnItem], id)
			continue
		}
		if !c.Useful(id) {
			continue
		}
		cat := c.Categorize(id)
		c.categoryPools[cat] = append(c.categoryPools[cat], id)
		c.tierPools[c.TierFor(id)] = append(c.tierPools[c.TierFor(id)], id)
	}
	c.categoryPools[CategorySpecialReward] = appendUnique(c.categoryPools[CategorySpecialReward], LuckyBlockID)
}

// TierPool returns the tradable item ids classified into a tier. The returned
// slice is a copy and safe to shuffle.
func (c *Classifier) TierPool(t Tier) []string {
	return append([]string(nil), c.tierPools[t]...)
}

func (c *Classifier) CategoryPool(cat Category) []string {
	return append([]string(nil), c.categoryPools[cat]...)
}

// BuybackPools groups every eligible item id into the structural pools the
// buy-back rotation draws from.
type BuybackPools struct {
	Weapons      []string
	Tools        []string
	Blocks       []string
	RawMaterials []string
	Miscellany   []string
}

// DisallowedForBuyback is the hard denylist for buy-back eligibility: items
// players should sell in refined form (ores), spawn-granting items, container
// variants and singleton special blocks.
func DisallowedForBuyback(id string) bool {
	n := id
	if strings.HasSuffix(n, "SPAWN_EGG") {
		return true
	}
	if strings.Contains(n, "SHULKER_BOX") {
		return true
	}
	if strings.Contains(n, "ORE") {
		return true
	}
	return n == "BEACON" || n == "BEDROCK"
}

// isBuybackWeaponName is narrower than isWeaponName: the shop buys back
// offensive weapons only, so SHIELD stays out of the weapons pool (and, being
// non-stackable, out of buy-back entirely).
func isBuybackWeaponName(n string) bool {
	return strings.HasSuffix(n, "_SWORD") || n == "BOW" || n == "CROSSBOW" || n == "TRIDENT"
}

func isRawMaterialName(n string) bool {
	for _, suf := range []string{"_INGOT", "_NUGGET", "_DUST", "_SHARD", "_CRYSTALS", "_PEARL", "_BALL", "_POWDER"} {
		if strings.HasSuffix(n, suf) {
			return true
		}
	}
	switch n {
	case "REDSTONE", "LAPIS_LAZULI", "QUARTZ", "DIAMOND", "EMERALD", "COAL", "CHARCOAL", "GLOWSTONE_DUST":
		return true
	}
	return false
}

func (c *Classifier) BuildBuybackPools() BuybackPools {
	var p BuybackPools
	for _, id := range c.items.Palette {
		if DisallowedForBuyback(id) {
			continue
		}
		n := id
		stackable := c.Stackable(id)
		switch {
		case isBuybackWeaponName(n):
			p.Weapons = append(p.Weapons, id)
		case isToolName(n):
			p.Tools = append(p.Tools, id)
		case c.IsBlock(id):
			p.Blocks = append(p.Blocks, id)
		case stackable && isRawMaterialName(n):
			p.RawMaterials = append(p.RawMaterials, id)
		case stackable && !isArmorName(n):
			p.Miscellany = append(p.Miscellany, id)
		}
	}
	return p
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	s = append(s, v)
	sort.Strings(s)
	return s
}
