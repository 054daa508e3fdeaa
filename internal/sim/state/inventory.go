package state

// ItemStack is the contents of one inventory slot.
type ItemStack struct {
	InstanceID string
	TemplateID string
	Quantity   int
}

// EquipSlot is a fixed equipment category; one item of each may be worn.
type EquipSlot string

const (
	SlotWeapon EquipSlot = "weapon"
	SlotArmor  EquipSlot = "armor"
)

// Inventory holds a fixed number of slots plus the per-category equipped
// slot indices. A slot index of -1 means nothing is equipped there.
type Inventory struct {
	Slots    []*ItemStack
	Equipped map[EquipSlot]int
}

func NewInventory(slots int) Inventory {
	return Inventory{
		Slots:    make([]*ItemStack, slots),
		Equipped: map[EquipSlot]int{SlotWeapon: -1, SlotArmor: -1},
	}
}

// FindStackable returns the first slot already holding templateID with
// room below maxStack.
func (inv *Inventory) FindStackable(templateID string, maxStack int) (int, bool) {
	for i, s := range inv.Slots {
		if s != nil && s.TemplateID == templateID && s.Quantity < maxStack {
			return i, true
		}
	}
	return -1, false
}

func (inv *Inventory) FindEmpty() (int, bool) {
	for i, s := range inv.Slots {
		if s == nil {
			return i, true
		}
	}
	return -1, false
}

// FindInstance locates the slot holding the given item instance.
func (inv *Inventory) FindInstance(instanceID string) (int, bool) {
	for i, s := range inv.Slots {
		if s != nil && s.InstanceID == instanceID {
			return i, true
		}
	}
	return -1, false
}

func (inv *Inventory) Get(slot int) *ItemStack {
	if slot < 0 || slot >= len(inv.Slots) {
		return nil
	}
	return inv.Slots[slot]
}

// Remove clears a slot, unequipping it first if worn, and returns the
// removed stack.
func (inv *Inventory) Remove(slot int) *ItemStack {
	s := inv.Get(slot)
	if s == nil {
		return nil
	}
	for cat, idx := range inv.Equipped {
		if idx == slot {
			inv.Equipped[cat] = -1
		}
	}
	inv.Slots[slot] = nil
	return s
}

// EquippedIn returns the stack worn in the given category, if any.
func (inv *Inventory) EquippedIn(cat EquipSlot) (*ItemStack, int) {
	idx, ok := inv.Equipped[cat]
	if !ok || idx < 0 {
		return nil, -1
	}
	return inv.Get(idx), idx
}

// Count sums quantities of a template across all slots.
func (inv *Inventory) Count(templateID string) int {
	n := 0
	for _, s := range inv.Slots {
		if s != nil && s.TemplateID == templateID {
			n += s.Quantity
		}
	}
	return n
}
