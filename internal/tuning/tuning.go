package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Prices  Prices  `yaml:"prices"`
	Pricing Pricing `yaml:"pricing"`

	Rotation Rotation `yaml:"rotation"`
	Buyback  Buyback  `yaml:"buyback"`
	Quests   Quests   `yaml:"quests"`

	SpawnItemPrice  float64 `yaml:"spawn_item_price"`
	LuckyBlockPrice float64 `yaml:"lucky_block_price"`
}

type Prices struct {
	Common    float64 `yaml:"common"`
	Uncommon  float64 `yaml:"uncommon"`
	Epic      float64 `yaml:"epic"`
	Legendary float64 `yaml:"legendary"`
	Garbage   float64 `yaml:"garbage"`
}

type Pricing struct {
	// Per-item-id yield factors for multi-yield items.
	YieldByItem map[string]float64 `yaml:"yield_by_item"`

	Dynamic Dynamic `yaml:"dynamic"`
}

type Dynamic struct {
	ShopIncreaseEveryNBuys    int     `yaml:"shop_increase_every_n_buys"`
	ShopIncreaseFactor        float64 `yaml:"shop_increase_factor"`
	MaxShopMultiplier         float64 `yaml:"max_shop_multiplier"`
	SellDecreasePerItem       float64 `yaml:"sell_decrease_per_item"`
	MinSellMultiplier         float64 `yaml:"min_sell_multiplier"`
	ShopDecreasePerItemOnSell float64 `yaml:"shop_decrease_per_item_on_sell"`
	MinShopMultiplier         float64 `yaml:"min_shop_multiplier"`
}

type Rotation struct {
	Minutes      int `yaml:"minutes"`
	CycleSeconds int `yaml:"cycle_seconds"`

	Counts RotationCounts `yaml:"counts"`
}

type RotationCounts struct {
	Common    int `yaml:"common"`
	Uncommon  int `yaml:"uncommon"`
	Epic      int `yaml:"epic"`
	Legendary int `yaml:"legendary"`
}

type Buyback struct {
	OfferCount     int     `yaml:"offer_count"`
	RegenSeconds   int64   `yaml:"regen_seconds"`
	BaseMultiplier float64 `yaml:"base_multiplier"`

	Quotas BuybackQuotas `yaml:"quotas"`
}

type BuybackQuotas struct {
	Weapons      int `yaml:"weapons"`
	Tools        int `yaml:"tools"`
	Blocks       int `yaml:"blocks"`
	RawMaterials int `yaml:"raw_materials"`
	Miscellany   int `yaml:"miscellany"`
}

type Quests struct {
	// IANA zone for the daily reset boundary.
	ResetZone string `yaml:"reset_zone"`

	DailyCount int `yaml:"daily_count"`
	FetchCount int `yaml:"fetch_count"`
	KillCount  int `yaml:"kill_count"`
	FishCount  int `yaml:"fish_count"`

	RewardMin int `yaml:"reward_min"`
	RewardMax int `yaml:"reward_max"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.clamp()
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		Prices: Prices{
			Common:    100.0,
			Uncommon:  300.0,
			Epic:      1000.0,
			Legendary: 5000.0,
			Garbage:   2.0,
		},
		Pricing: Pricing{
			Dynamic: Dynamic{
				ShopIncreaseEveryNBuys:    3,
				ShopIncreaseFactor:        0.10,
				MaxShopMultiplier:         3.0,
				SellDecreasePerItem:       0.005,
				MinSellMultiplier:         0.25,
				ShopDecreasePerItemOnSell: 0.02,
				MinShopMultiplier:         0.8,
			},
		},
		Rotation: Rotation{
			Minutes:      30,
			CycleSeconds: 30,
			Counts: RotationCounts{
				Common:    4,
				Uncommon:  3,
				Epic:      2,
				Legendary: 1,
			},
		},
		Buyback: Buyback{
			OfferCount:     20,
			RegenSeconds:   2 * 60 * 60,
			BaseMultiplier: 0.7,
			Quotas: BuybackQuotas{
				Weapons:      2,
				Tools:        3,
				Blocks:       5,
				RawMaterials: 5,
				Miscellany:   5,
			},
		},
		Quests: Quests{
			ResetZone:  "Europe/Kyiv",
			DailyCount: 7,
			FetchCount: 3,
			KillCount:  2,
			FishCount:  2,
			RewardMin:  100,
			RewardMax:  300,
		},
		SpawnItemPrice:  2500.0,
		LuckyBlockPrice: 500.0,
	}
}

// clamp keeps partial or malformed configs from producing degenerate parameters.
func (t *Tuning) clamp() {
	d := &t.Pricing.Dynamic
	if d.ShopIncreaseEveryNBuys < 1 {
		d.ShopIncreaseEveryNBuys = 1
	}
	if d.ShopIncreaseFactor < 0 {
		d.ShopIncreaseFactor = 0
	}
	if d.MaxShopMultiplier < 1 {
		d.MaxShopMultiplier = 1
	}
	if d.SellDecreasePerItem < 0 {
		d.SellDecreasePerItem = 0
	}
	if d.MinSellMultiplier < 0 {
		d.MinSellMultiplier = 0
	}
	if d.ShopDecreasePerItemOnSell < 0 {
		d.ShopDecreasePerItemOnSell = 0
	}
	if d.MinShopMultiplier < 0.1 {
		d.MinShopMultiplier = 0.1
	}
	if t.Rotation.CycleSeconds < 1 {
		t.Rotation.CycleSeconds = 1
	}
	if t.Rotation.Minutes < 1 {
		t.Rotation.Minutes = 1
	}
	if t.Buyback.OfferCount < 1 {
		t.Buyback.OfferCount = 1
	}
	if t.Buyback.RegenSeconds < 1 {
		t.Buyback.RegenSeconds = 1
	}
	if t.Quests.DailyCount < 1 {
		t.Quests.DailyCount = 1
	}
	if t.Quests.RewardMin < 0 {
		t.Quests.RewardMin = 0
	}
	if t.Quests.RewardMax < t.Quests.RewardMin {
		t.Quests.RewardMax = t.Quests.RewardMin
	}
}
