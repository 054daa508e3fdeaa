package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ItemKind is the closed set of template categories. Equip slots and the
// use/consume rules dispatch on it.
type ItemKind string

const (
	KindWeapon     ItemKind = "WEAPON"
	KindArmor      ItemKind = "ARMOR"
	KindConsumable ItemKind = "CONSUMABLE"
	KindMaterial   ItemKind = "MATERIAL"
)

func ParseItemKind(s string) (ItemKind, bool) {
	switch ItemKind(s) {
	case KindWeapon, KindArmor, KindConsumable, KindMaterial:
		return ItemKind(s), true
	default:
		return "", false
	}
}

type Rarity string

const (
	RarityCommon   Rarity = "COMMON"
	RarityUncommon Rarity = "UNCOMMON"
	RarityRare     Rarity = "RARE"
	RarityEpic     Rarity = "EPIC"
)

type ItemTemplate struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      ItemKind `json:"kind"`
	Rarity    Rarity   `json:"rarity"`
	Stackable bool     `json:"stackable,omitempty"`
	MaxStack  int      `json:"max_stack,omitempty"`
	Damage    int      `json:"damage,omitempty"`
	Defense   int      `json:"defense,omitempty"`
	Heal      int      `json:"heal,omitempty"`
	// SpawnWeight biases deterministic room loot placement; 0 means the
	// template never spawns in the world (quest/reward only).
	SpawnWeight int `json:"spawn_weight,omitempty"`
}

type ItemCatalog struct {
	Templates []ItemTemplate
	ByID      map[string]ItemTemplate
	Digest    string
}

func Load(configDir string) (*ItemCatalog, error) {
	return loadItems(filepath.Join(configDir, "items.json"))
}

func loadItems(path string) (*ItemCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []ItemTemplate
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("items.json: %w", err)
	}
	return build(defs)
}

func build(defs []ItemTemplate) (*ItemCatalog, error) {
	c := &ItemCatalog{ByID: map[string]ItemTemplate{}}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("item catalog: empty id")
		}
		if _, ok := ParseItemKind(string(d.Kind)); !ok {
			return nil, fmt.Errorf("item catalog: %s: unknown kind %q", d.ID, d.Kind)
		}
		if d.Stackable && d.MaxStack <= 0 {
			d.MaxStack = 10
		}
		if !d.Stackable {
			d.MaxStack = 1
		}
		if _, dup := c.ByID[d.ID]; dup {
			return nil, fmt.Errorf("item catalog: duplicate id %s", d.ID)
		}
		c.ByID[d.ID] = d
	}

	ids := make([]string, 0, len(c.ByID))
	for id := range c.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	c.Templates = make([]ItemTemplate, 0, len(ids))
	for _, id := range ids {
		c.Templates = append(c.Templates, c.ByID[id])
	}

	canon, _ := json.Marshal(c.Templates)
	sum := sha256.Sum256(canon)
	c.Digest = hex.EncodeToString(sum[:])
	return c, nil
}

// Spawnable returns the templates eligible for world placement, in the
// catalog's stable order.
func (c *ItemCatalog) Spawnable() []ItemTemplate {
	out := make([]ItemTemplate, 0, len(c.Templates))
	for _, t := range c.Templates {
		if t.SpawnWeight > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Defaults is the built-in catalog used when no configs directory is
// supplied (tests, bots, minimal deployments).
func Defaults() *ItemCatalog {
	c, err := build([]ItemTemplate{
		{ID: "rusty_sword", Name: "Rusty Sword", Kind: KindWeapon, Rarity: RarityCommon, Damage: 4, SpawnWeight: 30},
		{ID: "iron_sword", Name: "Iron Sword", Kind: KindWeapon, Rarity: RarityUncommon, Damage: 8, SpawnWeight: 15},
		{ID: "ranger_bow", Name: "Ranger Bow", Kind: KindWeapon, Rarity: RarityRare, Damage: 12, SpawnWeight: 6},
		{ID: "leather_vest", Name: "Leather Vest", Kind: KindArmor, Rarity: RarityCommon, Defense: 3, SpawnWeight: 25},
		{ID: "chain_mail", Name: "Chain Mail", Kind: KindArmor, Rarity: RarityRare, Defense: 7, SpawnWeight: 8},
		{ID: "bandage", Name: "Bandage", Kind: KindConsumable, Rarity: RarityCommon, Stackable: true, MaxStack: 5, Heal: 15, SpawnWeight: 40},
		{ID: "healing_potion", Name: "Healing Potion", Kind: KindConsumable, Rarity: RarityUncommon, Stackable: true, MaxStack: 3, Heal: 40, SpawnWeight: 12},
		{ID: "scrap_metal", Name: "Scrap Metal", Kind: KindMaterial, Rarity: RarityCommon, Stackable: true, MaxStack: 10, SpawnWeight: 35},
		{ID: "royale_crown", Name: "Royale Crown", Kind: KindMaterial, Rarity: RarityEpic},
	})
	if err != nil {
		panic(err)
	}
	return c
}
