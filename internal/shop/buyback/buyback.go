// Package buyback manages the rotating set of buy-back offers: prices the shop
// pays players, decaying per unit sold until exhausted, regenerated on a fixed
// interval from structural category pools.
package buyback

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"tradepost.gg/internal/shop/classify"
	"tradepost.gg/internal/shop/demand"
	"tradepost.gg/internal/shop/pricebook"
	"tradepost.gg/internal/tuning"
)

type Offer struct {
	ID           string  `json:"id"`
	InitialPrice float64 `json:"initial_price"`
	CurrentPrice float64 `json:"current_price"`
	Step         float64 `json:"step"`
	Disabled     bool    `json:"disabled"`
	GroupSize    int     `json:"group_size"`
}

// SellResult reports the outcome of a sell transaction. On success Units is
// the clamped unit count actually bought and Offer the post-transaction state.
type SellResult struct {
	ID     string
	Units  int
	Payout float64
	OK     bool
	Offer  *Offer
}

type Rotation struct {
	book   *pricebook.Book
	demand *demand.Tracker

	mu              sync.Mutex
	cfg             tuning.Buyback
	rng             *rand.Rand
	now             func() time.Time
	offers          []Offer
	lastGeneratedAt time.Time

	// onChange runs under the rotation lock after every state mutation, so the
	// persistence enqueue is ordered with the mutation it reflects.
	onChange func()
}

func New(book *pricebook.Book, dem *demand.Tracker, cfg tuning.Buyback) *Rotation {
	return &Rotation{
		book:   book,
		demand: dem,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// SetClock overrides the wall clock and randomness source. Test hook.
func (r *Rotation) SetClock(now func() time.Time, rng *rand.Rand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now != nil {
		r.now = now
	}
	if rng != nil {
		r.rng = rng
	}
}

func (r *Rotation) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Rotation) changedLocked() {
	if r.onChange != nil {
		r.onChange()
	}
}

// EnsureActive regenerates if the set is empty or overdue. Called once after
// restore at startup.
func (r *Rotation) EnsureActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.offers) == 0 || r.secondsUntilRegenLocked() <= 0 {
		r.regenerateLocked()
	}
}

func (r *Rotation) SecondsUntilRegen() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.secondsUntilRegenLocked()
}

func (r *Rotation) secondsUntilRegenLocked() int64 {
	elapsed := int64(r.now().Sub(r.lastGeneratedAt) / time.Second)
	remain := r.cfg.RegenSeconds - elapsed
	if remain < 0 {
		return 0
	}
	return remain
}

// Offers returns a snapshot copy of the current set.
func (r *Rotation) Offers() []Offer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Offer(nil), r.offers...)
}

func (r *Rotation) GetOffer(id string) (Offer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.ID == id {
			return o, true
		}
	}
	return Offer{}, false
}

// MaxSellableUnits for an offer: how many units the decaying price still
// covers. A zero floor division with a positive price still allows one final
// unit; this below-step final sale is intentional.
func MaxSellableUnits(o Offer) int {
	if o.Disabled || o.Step <= 0 {
		return 0
	}
	n := int(math.Floor(o.CurrentPrice / o.Step))
	if n == 0 && o.CurrentPrice > 0 {
		return 1
	}
	if n < 0 {
		return 0
	}
	return n
}

func (r *Rotation) MaxSellableUnitsFor(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.ID == id {
			return MaxSellableUnits(o)
		}
	}
	return 0
}

// PreviewPayout computes the payout TransactSell would produce, without
// mutating anything.
func (r *Rotation) PreviewPayout(id string, amount int) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.ID == id && !o.Disabled {
			units := amount
			if possible := MaxSellableUnits(o); units > possible {
				units = possible
			}
			if units <= 0 {
				return 0
			}
			return pricebook.Round2(seriesPayout(o, units))
		}
	}
	return 0
}

// seriesPayout is the arithmetic-series sum of unit prices from CurrentPrice
// down to CurrentPrice-(units-1)*Step, averaging first and last term.
func seriesPayout(o Offer, units int) float64 {
	last := o.CurrentPrice - float64(units-1)*o.Step
	if last < 0 {
		last = 0
	}
	return float64(units) * (o.CurrentPrice + last) / 2.0
}

// TransactSell clamps the requested amount to what the offer still covers,
// decays the price and forwards the sale to the demand tracker. Atomic per
// rotation: concurrent sells serialize, each seeing the previous decrement.
func (r *Rotation) TransactSell(id string, amount int) SellResult {
	if amount <= 0 {
		return SellResult{ID: id}
	}
	r.mu.Lock()
	for i := range r.offers {
		o := &r.offers[i]
		if o.ID != id || o.Disabled {
			continue
		}
		units := amount
		if possible := MaxSellableUnits(*o); units > possible {
			units = possible
		}
		if units <= 0 {
			snap := *o
			r.mu.Unlock()
			return SellResult{ID: id, Offer: &snap}
		}
		payout := seriesPayout(*o, units)
		o.CurrentPrice = pricebook.Round2(o.CurrentPrice - float64(units)*o.Step)
		if o.CurrentPrice <= 0 {
			o.CurrentPrice = 0
			o.Disabled = true
		}
		snap := *o
		r.changedLocked()
		r.mu.Unlock()

		r.demand.RecordSale(id, units)
		return SellResult{ID: id, Units: units, Payout: pricebook.Round2(payout), OK: true, Offer: &snap}
	}
	r.mu.Unlock()
	return SellResult{ID: id}
}

// Tick regenerates the whole set once the regeneration interval has elapsed.
func (r *Rotation) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.secondsUntilRegenLocked() <= 0 {
		r.regenerateLocked()
	}
}

// ForceRegenerate bypasses the timer and returns the chosen item ids.
func (r *Rotation) ForceRegenerate() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regenerateLocked()
	ids := make([]string, 0, len(r.offers))
	for _, o := range r.offers {
		ids = append(ids, o.ID)
	}
	return ids
}

func (r *Rotation) regenerateLocked() {
	cls := r.book.Classifier()
	pools := cls.BuildBuybackPools()

	shuffle := func(s []string) {
		r.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
	}
	shuffle(pools.Weapons)
	shuffle(pools.Tools)
	shuffle(pools.Blocks)
	shuffle(pools.RawMaterials)
	shuffle(pools.Miscellany)

	picked := make([]string, 0, r.cfg.OfferCount)
	seen := map[string]bool{}
	pick := func(pool []string, count int) {
		for _, id := range pool {
			if len(picked) >= r.cfg.OfferCount || count <= 0 {
				return
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			picked = append(picked, id)
			count--
		}
	}
	pick(pools.Weapons, r.cfg.Quotas.Weapons)
	pick(pools.Tools, r.cfg.Quotas.Tools)
	pick(pools.Blocks, r.cfg.Quotas.Blocks)
	pick(pools.RawMaterials, r.cfg.Quotas.RawMaterials)
	pick(pools.Miscellany, r.cfg.Quotas.Miscellany)

	// Top up from a shuffled combined filler pool until the target count or
	// the eligible universe is exhausted.
	filler := append(append(append([]string(nil), pools.Blocks...), pools.RawMaterials...), pools.Miscellany...)
	shuffle(filler)
	for _, id := range filler {
		if len(picked) >= r.cfg.OfferCount {
			break
		}
		if !seen[id] {
			seen[id] = true
			picked = append(picked, id)
		}
	}

	offers := make([]Offer, 0, len(picked))
	for _, id := range picked {
		base := r.demand.DynamicBuyPrice(id)
		tier := cls.TierFor(id)
		init := pricebook.Round2(base * r.cfg.BaseMultiplier * tierSellMultiplier(tier))
		step := pricebook.Round2(init * 0.10)
		offers = append(offers, Offer{
			ID:           id,
			InitialPrice: init,
			CurrentPrice: init,
			Step:         step,
			Disabled:     init <= 0,
			GroupSize:    groupSizeFor(cls, id, tier),
		})
	}
	r.offers = offers
	r.lastGeneratedAt = r.now()
	r.changedLocked()
}

// tierSellMultiplier boosts buy-back prices for rarer tiers.
func tierSellMultiplier(tier classify.Tier) float64 {
	switch tier {
	case classify.TierUncommon:
		return 1.15
	case classify.TierEpic:
		return 1.5
	case classify.TierLegendary:
		return 2.0
	default:
		return 1.0
	}
}

// groupSizeFor is the sale batch unit: rarer tiers trade in smaller batches,
// non-stackables always one at a time.
func groupSizeFor(cls *classify.Classifier, id string, tier classify.Tier) int {
	if !cls.Stackable(id) {
		return 1
	}
	switch tier {
	case classify.TierLegendary:
		return 4
	case classify.TierEpic:
		return 8
	case classify.TierUncommon:
		return 12
	default:
		return 16
	}
}

// ReloadConfig rescales existing offers when the base multiplier changes,
// without a full regenerate. Skips the rescale when the old multiplier was
// non-positive.
func (r *Rotation) ReloadConfig(cfg tuning.Buyback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.cfg.BaseMultiplier
	r.cfg = cfg
	if len(r.offers) == 0 || old <= 0 {
		return
	}
	ratio := cfg.BaseMultiplier / old
	if math.Abs(ratio-1.0) < 1e-9 {
		return
	}
	for i := range r.offers {
		o := &r.offers[i]
		o.InitialPrice = pricebook.Round2(o.InitialPrice * ratio)
		o.CurrentPrice = pricebook.Round2(o.CurrentPrice * ratio)
		o.Step = pricebook.Round2(o.Step * ratio)
		if o.CurrentPrice <= 0 {
			o.CurrentPrice = 0
			o.Disabled = true
		}
	}
	r.changedLocked()
}

// State is the serializable rotation state.
type State struct {
	LastGeneratedAt int64
	Offers          []Offer
}

func (r *Rotation) Export() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		LastGeneratedAt: r.lastGeneratedAt.Unix(),
		Offers:          append([]Offer(nil), r.offers...),
	}
}

func (r *Rotation) Import(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.LastGeneratedAt > 0 {
		r.lastGeneratedAt = time.Unix(s.LastGeneratedAt, 0)
	}
	r.offers = append([]Offer(nil), s.Offers...)
}
