package authority

import (
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/state"
)

// Item action kinds.
const (
	ItemActionPickup  = "pickup"
	ItemActionUse     = "use"
	ItemActionEquip   = "equip"
	ItemActionUnequip = "unequip"
	ItemActionDrop    = "drop"
)

type ItemOutcome struct {
	Accepted   bool
	Reason     string
	ActionType string
	ItemID     string
	TemplateID string
	Slot       int
	Quantity   int
	Health     int
	// Dropped is the world instance created by a drop action.
	Dropped *state.ItemInstance
}

// ValidateItemAction applies one inventory action against the match's world
// item table. The table is mutated on success (pickup removes, drop adds);
// it is owned by the calling match goroutine.
func (e *Engine) ValidateItemAction(p *state.PlayerState, itemID, kind string, worldItems map[string]*state.ItemInstance, now time.Time) ItemOutcome {
	out := ItemOutcome{ActionType: kind, ItemID: itemID, Slot: -1}
	reject := func(code string) ItemOutcome {
		out.Reason = code
		return out
	}
	if p == nil || !p.Alive {
		return reject(protocol.ErrDead)
	}

	switch kind {
	case ItemActionPickup:
		return e.pickup(p, itemID, worldItems, out)
	case ItemActionUse:
		return e.use(p, itemID, out)
	case ItemActionEquip:
		return e.equip(p, itemID, out)
	case ItemActionUnequip:
		return e.unequip(p, itemID, out)
	case ItemActionDrop:
		return e.drop(p, itemID, worldItems, out)
	default:
		return reject(protocol.ErrProtoBadRequest)
	}
}

func (e *Engine) pickup(p *state.PlayerState, itemID string, worldItems map[string]*state.ItemInstance, out ItemOutcome) ItemOutcome {
	inst, ok := worldItems[itemID]
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}
	if p.Pos.Dist(inst.Pos) > e.tun.Items.PickupRange {
		out.Reason = protocol.ErrOutOfRange
		return out
	}
	tpl, ok := e.catalog.ByID[inst.TemplateID]
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}

	slot := -1
	if tpl.Stackable {
		if i, ok := p.Inventory.FindStackable(tpl.ID, tpl.MaxStack); ok {
			s := p.Inventory.Get(i)
			if s.Quantity+inst.Quantity <= tpl.MaxStack {
				slot = i
				s.Quantity += inst.Quantity
			}
		}
	}
	if slot == -1 {
		i, ok := p.Inventory.FindEmpty()
		if !ok {
			if tpl.Stackable {
				out.Reason = protocol.ErrInventoryFull
			} else {
				out.Reason = protocol.ErrNoEmptySlot
			}
			return out
		}
		slot = i
		p.Inventory.Slots[i] = &state.ItemStack{
			InstanceID: inst.ID,
			TemplateID: inst.TemplateID,
			Quantity:   inst.Quantity,
		}
	}

	delete(worldItems, itemID)
	out.Accepted = true
	out.TemplateID = inst.TemplateID
	out.Slot = slot
	out.Quantity = p.Inventory.Get(slot).Quantity
	return out
}

func (e *Engine) use(p *state.PlayerState, itemID string, out ItemOutcome) ItemOutcome {
	slot, ok := p.Inventory.FindInstance(itemID)
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}
	s := p.Inventory.Get(slot)
	tpl, ok := e.catalog.ByID[s.TemplateID]
	if !ok || tpl.Kind != catalogs.KindConsumable {
		out.Reason = protocol.ErrNotConsumable
		return out
	}

	out.Health = p.ApplyHealthDelta(tpl.Heal)
	s.Quantity--
	if s.Quantity <= 0 {
		p.Inventory.Remove(slot)
	}
	out.Accepted = true
	out.TemplateID = tpl.ID
	out.Slot = slot
	out.Quantity = s.Quantity
	return out
}

func equipSlotFor(kind catalogs.ItemKind) (state.EquipSlot, bool) {
	switch kind {
	case catalogs.KindWeapon:
		return state.SlotWeapon, true
	case catalogs.KindArmor:
		return state.SlotArmor, true
	default:
		return "", false
	}
}

func (e *Engine) equip(p *state.PlayerState, itemID string, out ItemOutcome) ItemOutcome {
	slot, ok := p.Inventory.FindInstance(itemID)
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}
	s := p.Inventory.Get(slot)
	tpl, ok := e.catalog.ByID[s.TemplateID]
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}
	cat, ok := equipSlotFor(tpl.Kind)
	if !ok {
		out.Reason = protocol.ErrNotEquippable
		return out
	}
	// Swapping in auto-unequips any occupant.
	p.Inventory.Equipped[cat] = slot
	out.Accepted = true
	out.TemplateID = tpl.ID
	out.Slot = slot
	out.Quantity = s.Quantity
	return out
}

func (e *Engine) unequip(p *state.PlayerState, itemID string, out ItemOutcome) ItemOutcome {
	slot, ok := p.Inventory.FindInstance(itemID)
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}
	for cat, idx := range p.Inventory.Equipped {
		if idx == slot {
			p.Inventory.Equipped[cat] = -1
			s := p.Inventory.Get(slot)
			out.Accepted = true
			out.TemplateID = s.TemplateID
			out.Slot = slot
			out.Quantity = s.Quantity
			return out
		}
	}
	out.Reason = protocol.ErrNotEquipped
	return out
}

func (e *Engine) drop(p *state.PlayerState, itemID string, worldItems map[string]*state.ItemInstance, out ItemOutcome) ItemOutcome {
	slot, ok := p.Inventory.FindInstance(itemID)
	if !ok {
		out.Reason = protocol.ErrUnknownItem
		return out
	}
	s := p.Inventory.Remove(slot)
	inst := &state.ItemInstance{
		ID:         s.InstanceID,
		TemplateID: s.TemplateID,
		Pos:        state.Vec2{X: p.Pos.X + 2, Y: p.Pos.Y + 2},
		Quantity:   s.Quantity,
	}
	worldItems[inst.ID] = inst
	out.Accepted = true
	out.TemplateID = s.TemplateID
	out.Slot = slot
	out.Quantity = s.Quantity
	out.Dropped = inst
	return out
}
