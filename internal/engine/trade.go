package engine

import (
	"tradepost.gg/internal/persistence/indexdb"
	"tradepost.gg/internal/shop/buyback"
	"tradepost.gg/internal/shop/pricebook"
)

// FailReason distinguishes precondition failures. They are result values, not
// errors: nothing mutated.
type FailReason string

const (
	FailNone              FailReason = ""
	FailUnknownItem       FailReason = "unknown_item"
	FailBadAmount         FailReason = "bad_amount"
	FailInsufficientFunds FailReason = "insufficient_funds"
	FailNoOffer           FailReason = "no_offer"
	FailOfferExhausted    FailReason = "offer_exhausted"
	FailNoItems           FailReason = "insufficient_items"
	FailLedger            FailReason = "ledger_rejected"
	FailOfferChanged      FailReason = "offer_changed"
)

type BuyOutcome struct {
	OK        bool       `json:"ok"`
	Reason    FailReason `json:"reason,omitempty"`
	ItemID    string     `json:"item_id"`
	Units     int        `json:"units"`
	UnitPrice float64    `json:"unit_price"`
	Total     float64    `json:"total"`
}

// Buy charges the player the current dynamic shop price and records the
// purchases so demand inflates. Item hand-over is the collaborator's side of
// the transaction.
func (p *Post) Buy(playerID, itemID string, units int) BuyOutcome {
	if units <= 0 {
		return BuyOutcome{Reason: FailBadAmount, ItemID: itemID}
	}
	if !p.cls.Known(itemID) {
		return BuyOutcome{Reason: FailUnknownItem, ItemID: itemID}
	}
	unit := p.demand.DynamicBuyPrice(itemID)
	total := pricebook.Round2(unit * float64(units))
	if !p.cfg.Ledger.Withdraw(playerID, total) {
		return BuyOutcome{Reason: FailInsufficientFunds, ItemID: itemID, UnitPrice: unit, Total: total}
	}
	for i := 0; i < units; i++ {
		p.demand.RecordPurchase(itemID)
	}
	p.dirty.Store(true)
	if p.cfg.Index != nil {
		p.cfg.Index.RecordTransaction(indexdb.Transaction{
			Kind: "BUY", Player: playerID, Subject: itemID, Units: units, Amount: total,
		})
	}
	return BuyOutcome{OK: true, ItemID: itemID, Units: units, UnitPrice: unit, Total: total}
}

type SellOutcome struct {
	OK     bool           `json:"ok"`
	Reason FailReason     `json:"reason,omitempty"`
	ItemID string         `json:"item_id"`
	Units  int            `json:"units"`
	Payout float64        `json:"payout"`
	Offer  *buyback.Offer `json:"offer,omitempty"`
}

// Sell sells units into the buy-back offer for the item. The ledger deposit
// happens before the offer decays; a rejected deposit leaves everything
// untouched. Removal of the held units is signaled through the inventory
// collaborator afterwards.
func (p *Post) Sell(playerID, itemID string, requested int) SellOutcome {
	if requested <= 0 {
		return SellOutcome{Reason: FailBadAmount, ItemID: itemID}
	}

	p.sellMu.Lock()
	defer p.sellMu.Unlock()

	offer, ok := p.buyback.GetOffer(itemID)
	if !ok {
		return SellOutcome{Reason: FailNoOffer, ItemID: itemID}
	}
	if offer.Disabled {
		return SellOutcome{Reason: FailOfferExhausted, ItemID: itemID, Offer: &offer}
	}
	units := requested
	if possible := buyback.MaxSellableUnits(offer); units > possible {
		units = possible
	}
	if held := p.cfg.Inv.CountHeld(playerID, itemID); units > held {
		units = held
	}
	if units <= 0 {
		reason := FailOfferExhausted
		if p.cfg.Inv.CountHeld(playerID, itemID) <= 0 {
			reason = FailNoItems
		}
		return SellOutcome{Reason: reason, ItemID: itemID, Offer: &offer}
	}

	payout := p.buyback.PreviewPayout(itemID, units)
	if !p.cfg.Ledger.Deposit(playerID, payout) {
		return SellOutcome{Reason: FailLedger, ItemID: itemID, Offer: &offer}
	}

	// The rotation can only regenerate through paths that also take sellMu,
	// but the ledger call is external: re-check the offer after the deposit
	// and refund if the set was swapped underneath it, so the payout never
	// settles against an offer the player was not quoted.
	if cur, ok := p.buyback.GetOffer(itemID); !ok || cur != offer {
		if !p.cfg.Ledger.Withdraw(playerID, payout) {
			p.logger.Printf("sell refund failed: player=%s item=%s amount=%.2f", playerID, itemID, payout)
		}
		return SellOutcome{Reason: FailOfferChanged, ItemID: itemID}
	}

	// Deposit verified against the live offer; under sellMu the transaction
	// matches the preview.
	res := p.buyback.TransactSell(itemID, units)
	p.cfg.Inv.RemoveHeld(playerID, itemID, res.Units)
	if p.cfg.Index != nil {
		p.cfg.Index.RecordTransaction(indexdb.Transaction{
			Kind: "SELL", Player: playerID, Subject: itemID, Units: res.Units, Amount: res.Payout,
		})
	}
	return SellOutcome{OK: true, ItemID: itemID, Units: res.Units, Payout: res.Payout, Offer: res.Offer}
}

// PreviewSell reports the units and payout a Sell would produce right now.
func (p *Post) PreviewSell(playerID, itemID string, requested int) SellOutcome {
	offer, ok := p.buyback.GetOffer(itemID)
	if !ok {
		return SellOutcome{Reason: FailNoOffer, ItemID: itemID}
	}
	units := requested
	if possible := buyback.MaxSellableUnits(offer); units > possible {
		units = possible
	}
	if held := p.cfg.Inv.CountHeld(playerID, itemID); units > held {
		units = held
	}
	if units <= 0 {
		return SellOutcome{Reason: FailOfferExhausted, ItemID: itemID, Offer: &offer}
	}
	return SellOutcome{
		ItemID: itemID,
		Units:  units,
		Payout: p.buyback.PreviewPayout(itemID, units),
		Offer:  &offer,
	}
}
