// Package drop maintains the rotating for-sale assortment: a tier-quota sample
// of the tradable catalog, replaced wholesale on a fixed period.
package drop

import (
	"math/rand"
	"sync"
	"time"

	"tradepost.gg/internal/shop/classify"
	"tradepost.gg/internal/shop/pricebook"
	"tradepost.gg/internal/tuning"
)

type Item struct {
	ID       string            `json:"id"`
	Tier     classify.Tier     `json:"tier"`
	Category classify.Category `json:"category"`
	Price    float64           `json:"price"`
}

type Selector struct {
	book *pricebook.Book

	mu         sync.Mutex
	cfg        tuning.Rotation
	rng        *rand.Rand
	now        func() time.Time
	current    []Item
	nextRollAt time.Time
	generation uint64
}

func New(book *pricebook.Book, cfg tuning.Rotation) *Selector {
	return &Selector{
		book: book,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

// SetClock overrides the wall clock and randomness source. Test hook.
func (s *Selector) SetClock(now func() time.Time, rng *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
	if rng != nil {
		s.rng = rng
	}
}

func (s *Selector) Reload(cfg tuning.Rotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Roll replaces the assortment with a fresh tier-quota sample. Ties are broken
// by shuffle order so rotations stay unpredictable.
func (s *Selector) Roll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollLocked()
}

func (s *Selector) rollLocked() {
	cls := s.book.Classifier()
	quotas := []struct {
		tier  classify.Tier
		count int
	}{
		{classify.TierCommon, s.cfg.Counts.Common},
		{classify.TierUncommon, s.cfg.Counts.Uncommon},
		{classify.TierEpic, s.cfg.Counts.Epic},
		{classify.TierLegendary, s.cfg.Counts.Legendary},
	}

	next := make([]Item, 0, 16)
	for _, q := range quotas {
		pool := cls.TierPool(q.tier)
		s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for i := 0; i < q.count && i < len(pool); i++ {
			id := pool[i]
			next = append(next, Item{
				ID:       id,
				Tier:     q.tier,
				Category: cls.Categorize(id),
				Price:    s.book.UnitPrice(id),
			})
		}
	}
	s.rng.Shuffle(len(next), func(i, j int) { next[i], next[j] = next[j], next[i] })

	s.current = next
	s.nextRollAt = s.now().Add(time.Duration(s.cfg.Minutes) * time.Minute)
	s.generation++
}

// Generation increments on every roll; pollers use it to detect replacement.
func (s *Selector) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Tick rolls a new assortment once the rotation period has elapsed.
func (s *Selector) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.now().Before(s.nextRollAt) {
		s.rollLocked()
	}
}

// Current returns the live assortment. The slice is a copy; readers never
// observe a partially replaced list.
func (s *Selector) Current() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.current...)
}

func (s *Selector) SecondsRemaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.nextRollAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// CycleIndex increments every cycle window within the rotation period. It only
// signals the display layer to refresh visuals; the assortment is untouched.
func (s *Selector) CycleIndex() int {
	s.mu.Lock()
	total := int64(s.cfg.Minutes) * 60
	cycle := int64(s.cfg.CycleSeconds)
	d := s.nextRollAt.Sub(s.now())
	s.mu.Unlock()
	if cycle <= 0 {
		return 0
	}
	remain := int64(d / time.Second)
	if remain < 0 {
		remain = 0
	}
	elapsed := total - remain
	return int(elapsed / cycle)
}

func (s *Selector) RotationMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Minutes
}

func (s *Selector) CycleSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.CycleSeconds
}
