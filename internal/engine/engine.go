// Package engine wires the trading post together: catalog classification,
// pricing, demand multipliers, the rotating for-sale drop, the decaying
// buy-back set and the daily quest system, behind one orchestrator driven by
// a once-per-second tick.
package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tradepost.gg/internal/catalogs"
	"tradepost.gg/internal/economy"
	"tradepost.gg/internal/persistence/indexdb"
	"tradepost.gg/internal/persistence/statefile"
	"tradepost.gg/internal/quest"
	"tradepost.gg/internal/shop/buyback"
	"tradepost.gg/internal/shop/classify"
	"tradepost.gg/internal/shop/demand"
	"tradepost.gg/internal/shop/drop"
	"tradepost.gg/internal/shop/pricebook"
	"tradepost.gg/internal/tuning"
)

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Ledger   economy.Ledger
	Inv      economy.Inventory

	// Optional collaborators.
	Index     *indexdb.Store
	StatePath string
	Logger    *log.Logger
}

type Post struct {
	cfg    Config
	logger *log.Logger

	cls     *classify.Classifier
	book    *pricebook.Book
	demand  *demand.Tracker
	drop    *drop.Selector
	buyback *buyback.Rotation
	quests  *quest.Engine

	// sellMu serializes sell transactions, and every path that regenerates or
	// rescales the buy-back set, so the previewed payout is the payout
	// actually applied after the ledger deposit succeeds.
	sellMu sync.Mutex

	dirty atomic.Bool
}

func New(cfg Config) *Post {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	cls := classify.New(cfg.Catalogs.Items)
	book := pricebook.New(cls, cfg.Tuning)
	dem := demand.New(book, cfg.Tuning.Pricing.Dynamic)

	p := &Post{
		cfg:     cfg,
		logger:  logger,
		cls:     cls,
		book:    book,
		demand:  dem,
		drop:    drop.New(book, cfg.Tuning.Rotation),
		buyback: buyback.New(book, dem, cfg.Tuning.Buyback),
		quests:  quest.New(cfg.Catalogs.Quests, cfg.Tuning.Quests, cfg.Ledger, cfg.Inv, logger),
	}
	p.buyback.OnChange(func() { p.dirty.Store(true) })
	p.quests.OnChange(func() { p.dirty.Store(true) })
	return p
}

func (p *Post) Classifier() *classify.Classifier { return p.cls }
func (p *Post) PriceBook() *pricebook.Book       { return p.book }
func (p *Post) Demand() *demand.Tracker          { return p.demand }
func (p *Post) Drop() *drop.Selector             { return p.drop }
func (p *Post) Buyback() *buyback.Rotation       { return p.buyback }
func (p *Post) Quests() *quest.Engine            { return p.quests }

// Restore loads persisted state. A missing or corrupt state file is a local
// failure: the engine starts from defaults with a warning.
func (p *Post) Restore() {
	if p.cfg.StatePath == "" {
		return
	}
	st, err := statefile.Read(p.cfg.StatePath)
	if err != nil {
		p.logger.Printf("state restore: %v; starting fresh", err)
		return
	}
	p.buyback.Import(buyback.State{
		LastGeneratedAt: st.Buyback.LastGeneratedAt,
		Offers:          offersFromV1(st.Buyback.Offers),
	})
	p.demand.Import(demand.State{
		BuysSinceAdjust: st.Demand.BuysSinceAdjust,
		BuyMult:         st.Demand.BuyMult,
		SellMult:        st.Demand.SellMult,
	})
	qs := quest.State{
		Date:    st.Quests.Date,
		IDs:     st.Quests.IDs,
		Rewards: st.Quests.Rewards,
		Players: map[string]quest.PlayerState{},
	}
	for id, pl := range st.Quests.Players {
		qs.Players[id] = quest.PlayerState{
			Date:      pl.Date,
			Progress:  pl.Progress,
			Completed: pl.Completed,
			Claimed:   pl.Claimed,
		}
	}
	p.quests.Import(qs)
}

// Activate brings rotations and the daily quest set up to date after Restore.
func (p *Post) Activate() {
	p.drop.Roll()
	p.buyback.EnsureActive()
	if p.quests.EnsureDailyQuests() {
		p.recordRegen("QUESTS", len(p.quests.Active()))
	}
	p.Save()
}

// Tick drives the scheduled work; call once per second. State is flushed to
// disk when anything changed since the last tick.
func (p *Post) Tick() {
	dropGen := p.drop.Generation()
	p.drop.Tick()
	if p.drop.Generation() != dropGen {
		p.recordRegen("DROP", len(p.drop.Current()))
	}

	p.sellMu.Lock()
	before := p.buyback.Export().LastGeneratedAt
	p.buyback.Tick()
	regenerated := p.buyback.Export().LastGeneratedAt != before
	p.sellMu.Unlock()
	if regenerated {
		p.recordRegen("BUYBACK", len(p.buyback.Offers()))
	}

	if p.quests.EnsureDailyQuests() {
		p.recordRegen("QUESTS", len(p.quests.Active()))
	}

	if p.dirty.Swap(false) {
		p.save()
	}
}

// Save flushes state unconditionally (shutdown path).
func (p *Post) Save() {
	p.dirty.Store(false)
	p.save()
}

func (p *Post) save() {
	if p.cfg.StatePath == "" {
		return
	}
	bb := p.buyback.Export()
	dm := p.demand.Export()
	qs := p.quests.Export()
	st := statefile.StateV1{
		Header: statefile.Header{Version: 1, SavedAt: time.Now().Unix()},
		Buyback: statefile.BuybackV1{
			LastGeneratedAt: bb.LastGeneratedAt,
			Offers:          offersToV1(bb.Offers),
		},
		Demand: statefile.DemandV1{
			BuysSinceAdjust: dm.BuysSinceAdjust,
			BuyMult:         dm.BuyMult,
			SellMult:        dm.SellMult,
		},
		Quests: statefile.QuestsV1{
			Date:    qs.Date,
			IDs:     qs.IDs,
			Rewards: qs.Rewards,
			Players: map[string]statefile.PlayerV1{},
		},
	}
	for id, pl := range qs.Players {
		st.Quests.Players[id] = statefile.PlayerV1{
			Date:      pl.Date,
			Progress:  pl.Progress,
			Completed: pl.Completed,
			Claimed:   pl.Claimed,
		}
	}
	if err := statefile.Write(p.cfg.StatePath, st); err != nil {
		p.logger.Printf("state save: %v", err)
	}
}

func offersToV1(offers []buyback.Offer) []statefile.OfferV1 {
	out := make([]statefile.OfferV1, 0, len(offers))
	for _, o := range offers {
		out = append(out, statefile.OfferV1{
			ID:           o.ID,
			InitialPrice: o.InitialPrice,
			CurrentPrice: o.CurrentPrice,
			Step:         o.Step,
			Disabled:     o.Disabled,
			GroupSize:    o.GroupSize,
		})
	}
	return out
}

func offersFromV1(offers []statefile.OfferV1) []buyback.Offer {
	out := make([]buyback.Offer, 0, len(offers))
	for _, o := range offers {
		out = append(out, buyback.Offer{
			ID:           o.ID,
			InitialPrice: o.InitialPrice,
			CurrentPrice: o.CurrentPrice,
			Step:         o.Step,
			Disabled:     o.Disabled,
			GroupSize:    o.GroupSize,
		})
	}
	return out
}

func (p *Post) recordRegen(kind string, items int) {
	p.logger.Printf("%s rotation regenerated with %d entries", kind, items)
	if p.cfg.Index != nil {
		p.cfg.Index.RecordRegen(indexdb.Regen{Kind: kind, Items: items})
	}
}

// ReloadTuning swaps runtime configuration. Price tables swap atomically,
// existing buy-back offers are rescaled by the base multiplier ratio.
func (p *Post) ReloadTuning(t tuning.Tuning) {
	p.book.Reload(t)
	p.demand.Reload(t.Pricing.Dynamic)
	p.drop.Reload(t.Rotation)
	p.sellMu.Lock()
	p.buyback.ReloadConfig(t.Buyback)
	p.sellMu.Unlock()
	p.dirty.Store(true)
}

func (p *Post) ForceRegenerateBuyback() []string {
	p.sellMu.Lock()
	ids := p.buyback.ForceRegenerate()
	p.sellMu.Unlock()
	p.recordRegen("BUYBACK", len(ids))
	return ids
}

func (p *Post) ForceRegenerateQuests() []string {
	ids := p.quests.ForceRegenerate()
	p.recordRegen("QUESTS", len(ids))
	return ids
}
