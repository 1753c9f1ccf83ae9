// Package economy declares the external collaborator interfaces the trading
// post engine moves currency and items through. Implementations live outside
// the engine; memory.go provides in-process ones for tests and dev servers.
package economy

// Ledger is the external balance ledger. Withdraw and Deposit report success;
// engine operations that move currency must check the result and leave
// in-memory state untouched on failure.
type Ledger interface {
	Balance(playerID string) float64
	Withdraw(playerID string, amount float64) bool
	Deposit(playerID string, amount float64) bool
}

// Inventory is the external item holder. RemoveHeld returns how many units
// were actually removed; callers that need all-or-nothing semantics must check
// the count and Grant back any partial removal.
type Inventory interface {
	CountHeld(playerID, itemID string) int
	RemoveHeld(playerID, itemID string, amount int) int
	Grant(playerID, itemID string, amount int)
}
