package state

import (
	"math"
	"time"
)

// Vec2 is a point in continuous world units.
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Dist(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// CellFor maps a world position to its world-grid cell.
func CellFor(pos Vec2, cellSize float64) [2]int {
	return [2]int{
		int(math.Floor(pos.X / cellSize)),
		int(math.Floor(pos.Y / cellSize)),
	}
}

// RoomLocal returns the position's offset inside its world cell.
func RoomLocal(pos Vec2, cellSize float64) Vec2 {
	cell := CellFor(pos, cellSize)
	return Vec2{
		X: pos.X - float64(cell[0])*cellSize,
		Y: pos.Y - float64(cell[1])*cellSize,
	}
}

// PlayerState is the authoritative per-player gameplay state. It lives on
// the session and is mutated only by the authority and match engines, never
// directly from client input.
type PlayerState struct {
	ID   string
	Name string

	Pos     Vec2
	Cell    [2]int
	RoomPos Vec2

	Health    int
	MaxHealth int
	Alive     bool
	Kills     int

	LastMoveAt   time.Time
	LastAttackAt time.Time
	LastCombatAt time.Time
	InCombat     bool
	DiedAt       time.Time

	Inventory Inventory
}

func NewPlayerState(id, name string, maxHealth, slots int) *PlayerState {
	return &PlayerState{
		ID:        id,
		Name:      name,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Alive:     true,
		Inventory: NewInventory(slots),
	}
}

// SetPos updates all coordinate spaces together.
func (p *PlayerState) SetPos(pos Vec2, cellSize float64) {
	p.Pos = pos
	p.Cell = CellFor(pos, cellSize)
	p.RoomPos = RoomLocal(pos, cellSize)
}

// ApplyHealthDelta adjusts health, clamped to [0, MaxHealth], and returns
// the new value.
func (p *PlayerState) ApplyHealthDelta(delta int) int {
	h := p.Health + delta
	if h < 0 {
		h = 0
	}
	if h > p.MaxHealth {
		h = p.MaxHealth
	}
	p.Health = h
	return h
}

// ItemInstance is a world item: one spawned copy of a template.
type ItemInstance struct {
	ID         string
	TemplateID string
	Pos        Vec2
	Quantity   int
}
