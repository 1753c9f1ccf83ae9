// Package demand tracks per-item dynamic price multipliers: repeated purchases
// inflate the shop (buy-side) price, sales deflate both the sell-side payout
// and the shop price, modeling a flooded market.
package demand

import (
	"sync"

	"tradepost.gg/internal/shop/pricebook"
	"tradepost.gg/internal/tuning"
)

type Tracker struct {
	book *pricebook.Book

	mu              sync.Mutex
	params          tuning.Dynamic
	buysSinceAdjust map[string]int
	buyMult         map[string]float64
	sellMult        map[string]float64
}

func New(book *pricebook.Book, params tuning.Dynamic) *Tracker {
	return &Tracker{
		book:            book,
		params:          params,
		buysSinceAdjust: map[string]int{},
		buyMult:         map[string]float64{},
		sellMult:        map[string]float64{},
	}
}

// Reload swaps the dynamic parameters. Accumulated multipliers are kept; only
// future adjustments use the new factors.
func (t *Tracker) Reload(params tuning.Dynamic) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.params = params
}

// RecordPurchase counts one purchase of an item. Every Nth purchase bumps the
// buy multiplier by the configured factor, capped at the maximum.
func (t *Tracker) RecordPurchase(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cnt := t.buysSinceAdjust[id] + 1
	t.buysSinceAdjust[id] = cnt
	if cnt%t.params.ShopIncreaseEveryNBuys == 0 {
		next := t.buyMultLocked(id) * (1.0 + t.params.ShopIncreaseFactor)
		if next > t.params.MaxShopMultiplier {
			next = t.params.MaxShopMultiplier
		}
		t.buyMult[id] = next
	}
}

// RecordSale applies supply pressure for units sold back to the shop: the sell
// multiplier shrinks per unit (floored), and the buy multiplier decays toward
// its floor as well.
func (t *Tracker) RecordSale(id string, units int) {
	if units <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	nextSell := t.sellMultLocked(id) * maxf(0.0, 1.0-t.params.SellDecreasePerItem*float64(units))
	if nextSell < t.params.MinSellMultiplier {
		nextSell = t.params.MinSellMultiplier
	}
	t.sellMult[id] = nextSell

	nextBuy := t.buyMultLocked(id) * maxf(0.0, 1.0-t.params.ShopDecreasePerItemOnSell*float64(units))
	if nextBuy < t.params.MinShopMultiplier {
		nextBuy = t.params.MinShopMultiplier
	}
	t.buyMult[id] = nextBuy
}

func (t *Tracker) buyMultLocked(id string) float64 {
	if m, ok := t.buyMult[id]; ok {
		return m
	}
	return 1.0
}

func (t *Tracker) sellMultLocked(id string) float64 {
	if m, ok := t.sellMult[id]; ok {
		return m
	}
	return 1.0
}

func (t *Tracker) BuyMultiplier(id string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buyMultLocked(id)
}

func (t *Tracker) SellMultiplier(id string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sellMultLocked(id)
}

// DynamicBuyPrice is what a player pays the shop per unit right now.
func (t *Tracker) DynamicBuyPrice(id string) float64 {
	return pricebook.Round2(t.book.UnitPrice(id) * t.BuyMultiplier(id))
}

// DynamicSellUnitPrice is the base of what the shop pays a player per unit.
func (t *Tracker) DynamicSellUnitPrice(id string) float64 {
	return pricebook.Round2(t.book.UnitPrice(id) * t.SellMultiplier(id))
}

// State is the serializable multiplier state, for persistence across restarts.
type State struct {
	BuysSinceAdjust map[string]int
	BuyMult         map[string]float64
	SellMult        map[string]float64
}

func (t *Tracker) Export() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := State{
		BuysSinceAdjust: make(map[string]int, len(t.buysSinceAdjust)),
		BuyMult:         make(map[string]float64, len(t.buyMult)),
		SellMult:        make(map[string]float64, len(t.sellMult)),
	}
	for k, v := range t.buysSinceAdjust {
		s.BuysSinceAdjust[k] = v
	}
	for k, v := range t.buyMult {
		s.BuyMult[k] = v
	}
	for k, v := range t.sellMult {
		s.SellMult[k] = v
	}
	return s
}

func (t *Tracker) Import(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buysSinceAdjust = map[string]int{}
	t.buyMult = map[string]float64{}
	t.sellMult = map[string]float64{}
	for k, v := range s.BuysSinceAdjust {
		t.buysSinceAdjust[k] = v
	}
	for k, v := range s.BuyMult {
		if v > 0 {
			t.buyMult[k] = v
		}
	}
	for k, v := range s.SellMult {
		if v > 0 {
			t.sellMult[k] = v
		}
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
