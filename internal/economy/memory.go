package economy

import "sync"

// MemoryLedger is a mutex-guarded in-process Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: map[string]float64{}}
}

func (l *MemoryLedger) Balance(playerID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[playerID]
}

func (l *MemoryLedger) Withdraw(playerID string, amount float64) bool {
	if amount < 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[playerID] < amount {
		return false
	}
	l.balances[playerID] -= amount
	return true
}

func (l *MemoryLedger) Deposit(playerID string, amount float64) bool {
	if amount < 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[playerID] += amount
	return true
}

// MemoryInventory is a mutex-guarded in-process Inventory.
type MemoryInventory struct {
	mu   sync.Mutex
	held map[string]map[string]int // player -> item -> count
}

func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{held: map[string]map[string]int{}}
}

func (inv *MemoryInventory) Grant(playerID, itemID string, amount int) {
	if amount <= 0 {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	m := inv.held[playerID]
	if m == nil {
		m = map[string]int{}
		inv.held[playerID] = m
	}
	m[itemID] += amount
}

func (inv *MemoryInventory) CountHeld(playerID, itemID string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.held[playerID][itemID]
}

func (inv *MemoryInventory) RemoveHeld(playerID, itemID string, amount int) int {
	if amount <= 0 {
		return 0
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	have := inv.held[playerID][itemID]
	take := amount
	if take > have {
		take = have
	}
	if take > 0 {
		inv.held[playerID][itemID] = have - take
	}
	return take
}
