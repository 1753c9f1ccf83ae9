package engine

import (
	"tradepost.gg/internal/catalogs"
	"tradepost.gg/internal/persistence/indexdb"
	"tradepost.gg/internal/quest"
)

// QuestView is the per-player read model for one active quest.
type QuestView struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Kind      catalogs.QuestKind `json:"kind"`
	Target    string             `json:"target,omitempty"`
	Required  int                `json:"required"`
	Progress  int                `json:"progress"`
	Completed bool               `json:"completed"`
	Claimed   bool               `json:"claimed"`
	Reward    float64            `json:"reward"`
}

func (p *Post) QuestViews(playerID string) []QuestView {
	defs := p.quests.Active()
	out := make([]QuestView, 0, len(defs))
	for _, def := range defs {
		target := def.TargetItem
		if def.Kind == catalogs.KindKill {
			target = def.TargetEntity
		}
		out = append(out, QuestView{
			ID:        def.ID,
			Name:      def.Name,
			Kind:      def.Kind,
			Target:    target,
			Required:  def.Required,
			Progress:  p.quests.Progress(playerID, def.ID),
			Completed: p.quests.IsCompleted(playerID, def.ID),
			Claimed:   p.quests.IsClaimed(playerID, def.ID),
			Reward:    p.quests.DailyReward(def.ID),
		})
	}
	return out
}

func (p *Post) DeliverFetch(playerID, questID string) quest.DeliverStatus {
	return p.quests.DeliverFetch(playerID, questID)
}

func (p *Post) ClaimQuest(playerID, questID string) quest.ClaimResult {
	res := p.quests.Claim(playerID, questID)
	if res.Status == quest.ClaimOK && p.cfg.Index != nil {
		p.cfg.Index.RecordTransaction(indexdb.Transaction{
			Kind: "CLAIM", Player: playerID, Subject: questID, Units: 1, Amount: res.Reward,
		})
	}
	return res
}

func (p *Post) ClaimAllQuests(playerID string) (int, float64) {
	count := 0
	total := 0.0
	for _, def := range p.quests.Active() {
		if p.quests.IsCompleted(playerID, def.ID) && !p.quests.IsClaimed(playerID, def.ID) {
			if res := p.ClaimQuest(playerID, def.ID); res.Status == quest.ClaimOK {
				count++
				total += res.Reward
			}
		}
	}
	return count, total
}

// Status is the countdown snapshot the display layer polls.
type Status struct {
	DropSecondsRemaining  int64  `json:"drop_seconds_remaining"`
	CycleIndex            int    `json:"cycle_index"`
	DropGeneration        uint64 `json:"drop_generation"`
	BuybackSecondsToRegen int64  `json:"buyback_seconds_to_regen"`
	QuestSecondsToReset   int64  `json:"quest_seconds_to_reset"`
}

func (p *Post) Status() Status {
	return Status{
		DropSecondsRemaining:  p.drop.SecondsRemaining(),
		CycleIndex:            p.drop.CycleIndex(),
		DropGeneration:        p.drop.Generation(),
		BuybackSecondsToRegen: p.buyback.SecondsUntilRegen(),
		QuestSecondsToReset:   p.quests.SecondsUntilNextReset(),
	}
}
