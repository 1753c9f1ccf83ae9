package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Catalogs struct {
	Items  ItemCatalog
	Quests QuestCatalog
}

type ItemCatalog struct {
	Palette []string
	Defs    map[string]ItemDef
	Digest  string
}

// ItemDef describes one tradeable item kind. Classification (tier, category)
// is derived from the id by the classify package; the catalog only carries
// the structural facts classification cannot infer from the name.
type ItemDef struct {
	ID       string `json:"id"`
	Block    bool   `json:"block,omitempty"`
	MaxStack int    `json:"max_stack"`
}

func (d ItemDef) Stackable() bool { return d.MaxStack > 1 }

type QuestCatalog struct {
	Order  []string
	ByID   map[string]QuestDef
	Digest string
}

type QuestKind string

const (
	KindFetch QuestKind = "FETCH"
	KindKill  QuestKind = "KILL"
	KindFish  QuestKind = "FISH"
)

type QuestDef struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         QuestKind `json:"kind"`
	TargetItem   string    `json:"target_item,omitempty"`
	TargetEntity string    `json:"target_entity,omitempty"`
	Required     int       `json:"required"`
	BaseReward   float64   `json:"base_reward"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(configDir, &c.Items); err != nil {
		return nil, err
	}
	if err := loadQuests(configDir, &c.Quests); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// validateSchema checks raw JSON against the named schema under
// <configDir>/schemas. A missing schema file is not an error; malformed
// documents against a present schema are.
func validateSchema(configDir, schemaName string, raw []byte) error {
	path := filepath.Join(configDir, "schemas", schemaName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	s, err := jsonschema.Compile(path)
	if err != nil {
		return fmt.Errorf("compile %s: %w", schemaName, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", schemaName, err)
	}
	return nil
}

func loadItems(configDir string, out *ItemCatalog) error {
	path := filepath.Join(configDir, "items.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema(configDir, "items.schema.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		if d.MaxStack <= 0 {
			d.MaxStack = 64
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	return nil
}

func loadQuests(configDir string, out *QuestCatalog) error {
	path := filepath.Join(configDir, "quests.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema(configDir, "quests.schema.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []QuestDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("quests.json: %w", err)
	}
	out.ByID = map[string]QuestDef{}
	out.Order = out.Order[:0]
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("quests.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("quests.json: duplicate id %s", d.ID)
		}
		switch d.Kind {
		case KindFetch:
			if d.TargetItem == "" {
				return fmt.Errorf("quests.json: %s: fetch quest without target_item", d.ID)
			}
		case KindKill:
			if d.TargetEntity == "" {
				return fmt.Errorf("quests.json: %s: kill quest without target_entity", d.ID)
			}
		case KindFish:
		default:
			return fmt.Errorf("quests.json: %s: unknown kind %q", d.ID, d.Kind)
		}
		if d.Required <= 0 {
			return fmt.Errorf("quests.json: %s: required must be positive", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}
