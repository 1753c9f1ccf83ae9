// Package quest runs the daily quest system: a balanced subset of the static
// quest pool is selected per calendar day with unique integer rewards, and
// per-player progress/completion/claim state resets lazily at the daily
// rollover in the configured reference zone.
package quest

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"tradepost.gg/internal/catalogs"
	"tradepost.gg/internal/economy"
	"tradepost.gg/internal/tuning"
)

type Engine struct {
	pool   catalogs.QuestCatalog
	cfg    tuning.Quests
	ledger economy.Ledger
	inv    economy.Inventory
	zone   *time.Location
	logger *log.Logger

	// deliverMu serializes fetch deliveries: the inventory count, the removal
	// and the completion mark must act as one step.
	deliverMu sync.Mutex

	mu      sync.Mutex
	rng     *rand.Rand
	now     func() time.Time
	daily   dailySet
	players map[string]*playerState

	onChange func()
}

type dailySet struct {
	date    string
	ids     []string
	rewards map[string]int
}

type playerState struct {
	date      string
	progress  map[string]int
	completed map[string]bool
	claimed   map[string]bool
}

func newPlayerState(date string) *playerState {
	return &playerState{
		date:      date,
		progress:  map[string]int{},
		completed: map[string]bool{},
		claimed:   map[string]bool{},
	}
}

func New(pool catalogs.QuestCatalog, cfg tuning.Quests, ledger economy.Ledger, inv economy.Inventory, logger *log.Logger) *Engine {
	zone, err := time.LoadLocation(cfg.ResetZone)
	if err != nil {
		if logger != nil {
			logger.Printf("quest: unknown reset zone %q, using UTC", cfg.ResetZone)
		}
		zone = time.UTC
	}
	return &Engine{
		pool:    pool,
		cfg:     cfg,
		ledger:  ledger,
		inv:     inv,
		zone:    zone,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		daily:   dailySet{rewards: map[string]int{}},
		players: map[string]*playerState{},
	}
}

// SetClock overrides the wall clock and randomness source. Test hook.
func (e *Engine) SetClock(now func() time.Time, rng *rand.Rand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now != nil {
		e.now = now
	}
	if rng != nil {
		e.rng = rng
	}
}

func (e *Engine) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

func (e *Engine) changedLocked() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Engine) todayKeyLocked() string {
	return e.now().In(e.zone).Format("2006-01-02")
}

// EnsureDailyQuests regenerates the daily set when the stored date falls
// behind today. Returns whether a regeneration occurred. On the same day it
// only backfills missing or invalid rewards.
func (e *Engine) EnsureDailyQuests() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	today := e.todayKeyLocked()
	if e.daily.date == today && len(e.daily.ids) > 0 {
		e.assignRewardsLocked()
		return false
	}
	e.regenerateLocked(today)
	return true
}

// ForceRegenerate always rebuilds the daily set and resets every player,
// regardless of date. Administrative bypass.
func (e *Engine) ForceRegenerate() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regenerateLocked(e.todayKeyLocked())
	return append([]string(nil), e.daily.ids...)
}

func (e *Engine) regenerateLocked(today string) {
	e.daily = dailySet{
		date:    today,
		ids:     e.generateIDsLocked(),
		rewards: map[string]int{},
	}
	e.assignRewardsLocked()
	// Quest identities changed: every player's state for the old set is void.
	e.players = map[string]*playerState{}
	e.changedLocked()
}

// generateIDsLocked picks a balanced daily subset: the per-kind quotas first,
// then backfill from the whole pool if any kind ran short.
func (e *Engine) generateIDsLocked() []string {
	var fetch, kill, fish []string
	for _, id := range e.pool.Order {
		switch e.pool.ByID[id].Kind {
		case catalogs.KindFetch:
			fetch = append(fetch, id)
		case catalogs.KindKill:
			kill = append(kill, id)
		case catalogs.KindFish:
			fish = append(fish, id)
		}
	}
	shuffle := func(s []string) {
		e.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
	}
	shuffle(fetch)
	shuffle(kill)
	shuffle(fish)

	out := make([]string, 0, e.cfg.DailyCount)
	take := func(src []string, n int) {
		for i := 0; i < n && i < len(src); i++ {
			out = append(out, src[i])
		}
	}
	take(fetch, e.cfg.FetchCount)
	take(kill, e.cfg.KillCount)
	take(fish, e.cfg.FishCount)

	if len(out) < e.cfg.DailyCount {
		all := append([]string(nil), e.pool.Order...)
		shuffle(all)
		for _, id := range all {
			if len(out) >= e.cfg.DailyCount {
				break
			}
			if !contains(out, id) {
				out = append(out, id)
			}
		}
	}
	if len(out) > e.cfg.DailyCount {
		out = out[:e.cfg.DailyCount]
	}
	return out
}

// assignRewardsLocked draws unique integer rewards without replacement from
// [RewardMin,RewardMax]. Existing in-range, pairwise-distinct assignments for
// the current ids are preserved.
func (e *Engine) assignRewardsLocked() {
	ids := e.daily.ids
	if len(ids) == 0 {
		return
	}
	ok := true
	seen := map[int]bool{}
	for _, id := range ids {
		v, has := e.daily.rewards[id]
		if !has || v < e.cfg.RewardMin || v > e.cfg.RewardMax || seen[v] {
			ok = false
			break
		}
		seen[v] = true
	}
	if ok {
		return
	}

	vals := make([]int, 0, e.cfg.RewardMax-e.cfg.RewardMin+1)
	for v := e.cfg.RewardMin; v <= e.cfg.RewardMax; v++ {
		vals = append(vals, v)
	}
	e.rng.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
	e.daily.rewards = map[string]int{}
	for i, id := range ids {
		if i >= len(vals) {
			break
		}
		e.daily.rewards[id] = vals[i]
	}
	e.changedLocked()
}

// DailyReward is the assigned reward for a quest id, or the pool definition's
// base reward clamped into the configured range when no valid assignment
// exists.
func (e *Engine) DailyReward(id string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.daily.rewards[id]; ok && v >= e.cfg.RewardMin && v <= e.cfg.RewardMax {
		return float64(v)
	}
	fallback := float64(e.cfg.RewardMin)
	if def, ok := e.pool.ByID[id]; ok {
		fallback = def.BaseReward
	}
	if fallback < float64(e.cfg.RewardMin) {
		fallback = float64(e.cfg.RewardMin)
	}
	if fallback > float64(e.cfg.RewardMax) {
		fallback = float64(e.cfg.RewardMax)
	}
	return fallback
}

// Active returns the day's quest definitions in selection order.
func (e *Engine) Active() []catalogs.QuestDef {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]catalogs.QuestDef, 0, len(e.daily.ids))
	for _, id := range e.daily.ids {
		if def, ok := e.pool.ByID[id]; ok {
			out = append(out, def)
		}
	}
	return out
}

func (e *Engine) Get(id string) (catalogs.QuestDef, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !contains(e.daily.ids, id) {
		return catalogs.QuestDef{}, false
	}
	def, ok := e.pool.ByID[id]
	return def, ok
}

// EnsureDailySynced lazily resets one player's maps when their last-sync date
// is behind today. Other players are untouched.
func (e *Engine) EnsureDailySynced(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncedPlayerLocked(playerID)
}

func (e *Engine) syncedPlayerLocked(playerID string) *playerState {
	today := e.todayKeyLocked()
	ps := e.players[playerID]
	if ps == nil || ps.date != today {
		ps = newPlayerState(today)
		e.players[playerID] = ps
		e.changedLocked()
	}
	return ps
}

func (e *Engine) Progress(playerID, questID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncedPlayerLocked(playerID).progress[questID]
}

func (e *Engine) IsCompleted(playerID, questID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncedPlayerLocked(playerID).completed[questID]
}

func (e *Engine) IsClaimed(playerID, questID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncedPlayerLocked(playerID).claimed[questID]
}

// AddProgress adds up to delta progress, clamped to the quest requirement.
// Returns true when this call flipped the quest to completed. No-op once
// claimed.
func (e *Engine) AddProgress(playerID, questID string, delta int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	def, ok := e.pool.ByID[questID]
	if !ok || !contains(e.daily.ids, questID) {
		return false
	}
	ps := e.syncedPlayerLocked(playerID)
	if ps.claimed[questID] {
		return false
	}
	if delta < 0 {
		delta = 0
	}
	next := ps.progress[questID] + delta
	if next > def.Required {
		next = def.Required
	}
	ps.progress[questID] = next
	completedNow := false
	if !ps.completed[questID] && next >= def.Required {
		ps.completed[questID] = true
		completedNow = true
	}
	e.changedLocked()
	return completedNow
}

// RecordKill routes a kill event to any active kill quest targeting the
// entity kind.
func (e *Engine) RecordKill(playerID, entityKind string) {
	for _, def := range e.Active() {
		if def.Kind == catalogs.KindKill && def.TargetEntity == entityKind {
			e.AddProgress(playerID, def.ID, 1)
		}
	}
}

// RecordFishCatch routes a fish-catch event to every active fishing quest.
func (e *Engine) RecordFishCatch(playerID string) {
	for _, def := range e.Active() {
		if def.Kind == catalogs.KindFish {
			e.AddProgress(playerID, def.ID, 1)
		}
	}
}

type DeliverStatus int

const (
	DeliverOK DeliverStatus = iota
	DeliverAlreadyClaimed
	DeliverAlreadyCompleted
	DeliverInsufficient
	DeliverUnknownQuest
)

// DeliverFetch completes a fetch quest in one step when the player holds the
// full required amount. The held units are consumed through the inventory
// collaborator. Fails without mutation when holdings are short. Delivers are
// serialized so two racing calls cannot both consume or both complete.
func (e *Engine) DeliverFetch(playerID, questID string) DeliverStatus {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	def, ok := e.pool.ByID[questID]
	if !ok || !contains(e.daily.ids, questID) || def.Kind != catalogs.KindFetch {
		e.mu.Unlock()
		return DeliverUnknownQuest
	}
	ps := e.syncedPlayerLocked(playerID)
	if ps.claimed[questID] {
		e.mu.Unlock()
		return DeliverAlreadyClaimed
	}
	if ps.completed[questID] {
		e.mu.Unlock()
		return DeliverAlreadyCompleted
	}
	e.mu.Unlock()

	// Inventory calls are external; keep them outside the engine lock. The
	// holdings can shrink between the count and the removal (the game side
	// owns the inventory), so the removal is checked and a partial removal is
	// granted back before failing.
	if e.inv.CountHeld(playerID, def.TargetItem) < def.Required {
		return DeliverInsufficient
	}
	if removed := e.inv.RemoveHeld(playerID, def.TargetItem, def.Required); removed < def.Required {
		if removed > 0 {
			e.inv.Grant(playerID, def.TargetItem, removed)
		}
		return DeliverInsufficient
	}

	e.mu.Lock()
	ps = e.syncedPlayerLocked(playerID)
	ps.progress[questID] = def.Required
	ps.completed[questID] = true
	e.changedLocked()
	e.mu.Unlock()
	return DeliverOK
}

type ClaimStatus int

const (
	ClaimOK ClaimStatus = iota
	ClaimAlreadyClaimed
	ClaimNotReady
	ClaimFailed
)

type ClaimResult struct {
	Status ClaimStatus
	Reward float64
}

// Claim deposits the daily reward through the ledger and marks the quest
// claimed on success. The claimed flag is reserved before the deposit: a
// concurrent claim for the same quest sees it and cannot pay a second time. A
// failed deposit releases the reservation, so the claim stays retryable.
func (e *Engine) Claim(playerID, questID string) ClaimResult {
	e.mu.Lock()
	if !contains(e.daily.ids, questID) {
		e.mu.Unlock()
		return ClaimResult{Status: ClaimFailed}
	}
	ps := e.syncedPlayerLocked(playerID)
	if ps.claimed[questID] {
		e.mu.Unlock()
		return ClaimResult{Status: ClaimAlreadyClaimed}
	}
	if !ps.completed[questID] {
		e.mu.Unlock()
		return ClaimResult{Status: ClaimNotReady}
	}
	ps.claimed[questID] = true
	e.mu.Unlock()

	reward := e.DailyReward(questID)
	if !e.ledger.Deposit(playerID, reward) {
		e.mu.Lock()
		// A daily rollover in between replaces the player state wholesale, in
		// which case there is nothing to release.
		ps = e.syncedPlayerLocked(playerID)
		delete(ps.claimed, questID)
		e.changedLocked()
		e.mu.Unlock()
		return ClaimResult{Status: ClaimFailed}
	}

	e.mu.Lock()
	e.changedLocked()
	e.mu.Unlock()
	return ClaimResult{Status: ClaimOK, Reward: reward}
}

// ClaimAll claims every completed-and-unclaimed quest for the player and
// returns how many were claimed and the total reward paid.
func (e *Engine) ClaimAll(playerID string) (int, float64) {
	count := 0
	total := 0.0
	for _, def := range e.Active() {
		if e.IsCompleted(playerID, def.ID) && !e.IsClaimed(playerID, def.ID) {
			if res := e.Claim(playerID, def.ID); res.Status == ClaimOK {
				count++
				total += res.Reward
			}
		}
	}
	return count, total
}

// SecondsUntilNextReset is the time to the next midnight in the reference
// zone.
func (e *Engine) SecondsUntilNextReset() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now().In(e.zone)
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.zone).AddDate(0, 0, 1)
	return int64(next.Sub(now) / time.Second)
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
