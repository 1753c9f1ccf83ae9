// Package pricebook computes static unit prices from tier base prices and
// per-item yield factors. The price table is an immutable snapshot swapped
// atomically on reload, so concurrent readers never see a half-updated table.
package pricebook

import (
	"math"
	"sync/atomic"

	"tradepost.gg/internal/shop/classify"
	"tradepost.gg/internal/tuning"
)

type Book struct {
	cls  *classify.Classifier
	snap atomic.Pointer[table]
}

type table struct {
	tierPrices [4]float64 // indexed by classify.Tier for the tradable tiers
	garbage    float64
	yield      map[string]float64

	spawnItemPrice  float64
	luckyBlockPrice float64
}

func New(cls *classify.Classifier, tune tuning.Tuning) *Book {
	b := &Book{cls: cls}
	b.Reload(tune)
	return b
}

// Reload replaces the whole price table. In-flight computations see either
// the old or the new table, never a mix.
func (b *Book) Reload(tune tuning.Tuning) {
	t := &table{
		garbage:         tune.Prices.Garbage,
		yield:           make(map[string]float64, len(tune.Pricing.YieldByItem)),
		spawnItemPrice:  tune.SpawnItemPrice,
		luckyBlockPrice: tune.LuckyBlockPrice,
	}
	t.tierPrices[classify.TierCommon] = tune.Prices.Common
	t.tierPrices[classify.TierUncommon] = tune.Prices.Uncommon
	t.tierPrices[classify.TierEpic] = tune.Prices.Epic
	t.tierPrices[classify.TierLegendary] = tune.Prices.Legendary
	for id, f := range tune.Pricing.YieldByItem {
		t.yield[id] = f
	}
	b.snap.Store(t)
}

func (b *Book) PriceForTier(tier classify.Tier) float64 {
	t := b.snap.Load()
	if tier == classify.TierGarbage {
		return t.garbage
	}
	if tier < 0 || int(tier) >= len(t.tierPrices) {
		return t.tierPrices[classify.TierCommon]
	}
	return t.tierPrices[tier]
}

// UnitPrice is the static unit price of an item id: the tier base price
// adjusted by the item's yield factor, floored at 0.01 and rounded to cents.
// Spawn items and the lucky block have flat configured prices.
func (b *Book) UnitPrice(id string) float64 {
	t := b.snap.Load()
	switch b.cls.Categorize(id) {
	case classify.CategorySpawnItem:
		return t.spawnItemPrice
	case classify.CategorySpecialReward:
		return t.luckyBlockPrice
	}
	tier := b.cls.TierFor(id)
	base := b.PriceForTier(tier)
	factor, ok := t.yield[id]
	if !ok {
		factor = 1.0
	}
	return Round2(math.Max(0.01, base*factor))
}

func (b *Book) Classifier() *classify.Classifier { return b.cls }

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100.0) / 100.0
}
