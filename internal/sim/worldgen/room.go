package worldgen

// RoomSize is the fixed edge length of a room's terrain and entity grids.
const RoomSize = 20

type Tile = uint8

const (
	TileFloor Tile = iota
	TileWall
	TileWater
	TileRubble
)

type Entity = uint8

const (
	EntityNone Entity = iota
	EntityEnemy
	EntityNPC
	EntityChest
	EntityTrap
	EntityItem
)

// Archetype selects the interior pattern of a generated room.
type Archetype uint8

const (
	ArchetypeRoad Archetype = iota
	ArchetypeBridge
	ArchetypeField
	ArchetypeForest
	ArchetypeSettlement
	ArchetypeDungeon
	ArchetypeCave
	ArchetypeShore
)

func (a Archetype) String() string {
	switch a {
	case ArchetypeRoad:
		return "ROAD"
	case ArchetypeBridge:
		return "BRIDGE"
	case ArchetypeField:
		return "FIELD"
	case ArchetypeForest:
		return "FOREST"
	case ArchetypeSettlement:
		return "SETTLEMENT"
	case ArchetypeDungeon:
		return "DUNGEON"
	case ArchetypeCave:
		return "CAVE"
	case ArchetypeShore:
		return "SHORE"
	default:
		return "UNKNOWN"
	}
}

// ArchetypeFor maps accessible terrain to its room archetype. Inaccessible
// terrain has no archetype; callers must not ask.
func ArchetypeFor(k TerrainKind) Archetype {
	switch k {
	case TerrainRoad:
		return ArchetypeRoad
	case TerrainBridge:
		return ArchetypeBridge
	case TerrainField:
		return ArchetypeField
	case TerrainForest:
		return ArchetypeForest
	case TerrainSettlement:
		return ArchetypeSettlement
	case TerrainDungeon:
		return ArchetypeDungeon
	case TerrainCave:
		return ArchetypeCave
	case TerrainShore:
		return ArchetypeShore
	default:
		return ArchetypeField
	}
}

// Room is the explorable interior generated for one world cell. Grids are
// flat row-major slices of RoomSize*RoomSize.
type Room struct {
	X, Y      int
	Terrain   TerrainKind
	Archetype Archetype
	Tiles     []Tile
	Entities  []Entity
}

func (r *Room) index(ix, iy int) int {
	return ix + iy*RoomSize
}

func (r *Room) Tile(ix, iy int) Tile {
	return r.Tiles[r.index(ix, iy)]
}

func (r *Room) Entity(ix, iy int) Entity {
	return r.Entities[r.index(ix, iy)]
}

func isBorder(ix, iy int) bool {
	return ix == 0 || iy == 0 || ix == RoomSize-1 || iy == RoomSize-1
}

// GenerateRoom materializes the room for world cell (x, y), or nil when the
// terrain there is inaccessible. Pure in (seed, x, y): repeated calls,
// including after cache eviction, produce identical grids.
func GenerateRoom(seed int64, x, y int) *Room {
	terrain := TerrainAt(seed, x, y)
	if !Accessible(terrain) {
		return nil
	}

	rs := RoomSeed(seed, x, y)
	r := &Room{
		X:         x,
		Y:         y,
		Terrain:   terrain,
		Archetype: ArchetypeFor(terrain),
		Tiles:     make([]Tile, RoomSize*RoomSize),
		Entities:  make([]Entity, RoomSize*RoomSize),
	}

	for iy := 0; iy < RoomSize; iy++ {
		for ix := 0; ix < RoomSize; ix++ {
			i := r.index(ix, iy)
			if isBorder(ix, iy) {
				r.Tiles[i] = TileWall
				continue
			}
			r.Tiles[i] = interiorTile(r.Archetype, rs, ix, iy)
		}
	}

	for iy := 1; iy < RoomSize-1; iy++ {
		for ix := 1; ix < RoomSize-1; ix++ {
			i := r.index(ix, iy)
			if r.Tiles[i] != TileFloor {
				continue
			}
			r.Entities[i] = entityAt(r.Archetype, rs, ix, iy)
		}
	}

	return r
}

func interiorTile(a Archetype, rs int64, ix, iy int) Tile {
	roll := Hash3(rs, ix, iy, 0) % 1000
	switch a {
	case ArchetypeRoad:
		if roll < 30 {
			return TileRubble
		}
		return TileFloor
	case ArchetypeBridge:
		// A walkway band over water.
		mid := RoomSize / 2
		if iy < mid-2 || iy > mid+2 {
			return TileWater
		}
		return TileFloor
	case ArchetypeField:
		if roll < 70 {
			return TileWall
		}
		return TileFloor
	case ArchetypeForest:
		if roll < 230 {
			return TileWall
		}
		return TileFloor
	case ArchetypeSettlement:
		return settlementTile(rs, ix, iy)
	case ArchetypeDungeon:
		if roll < 220 {
			return TileWall
		}
		return TileFloor
	case ArchetypeCave:
		if roll < 300 {
			return TileWall
		}
		return TileFloor
	case ArchetypeShore:
		// Water creeps in from the bottom with a noisy edge.
		waterline := RoomSize - 5 + int(Hash3(rs, ix, 0, 1)%3)
		if iy >= waterline {
			return TileWater
		}
		if roll < 50 {
			return TileRubble
		}
		return TileFloor
	default:
		return TileFloor
	}
}

// settlementTile lays two deterministic rectangular building shells whose
// placement derives from the room seed.
func settlementTile(rs int64, ix, iy int) Tile {
	for b := 0; b < 2; b++ {
		h := Hash3(rs, b, 0, 2)
		bx := 2 + int(h%uint64(RoomSize-10))
		by := 2 + int((h>>8)%uint64(RoomSize-10))
		bw := 4 + int((h>>16)%4)
		bh := 4 + int((h>>24)%4)
		if ix < bx || ix > bx+bw || iy < by || iy > by+bh {
			continue
		}
		onEdge := ix == bx || ix == bx+bw || iy == by || iy == by+bh
		if !onEdge {
			return TileFloor
		}
		// Leave a door in the south wall.
		if iy == by+bh && ix == bx+bw/2 {
			return TileFloor
		}
		return TileWall
	}
	return TileFloor
}

type entityOdds struct {
	enemy, npc, chest, trap, item uint64
}

func oddsFor(a Archetype) entityOdds {
	switch a {
	case ArchetypeRoad:
		return entityOdds{item: 6, npc: 5}
	case ArchetypeBridge:
		return entityOdds{enemy: 5, item: 5}
	case ArchetypeField:
		return entityOdds{enemy: 8, item: 8, chest: 2}
	case ArchetypeForest:
		return entityOdds{enemy: 12, item: 10, chest: 3}
	case ArchetypeSettlement:
		return entityOdds{enemy: 4, npc: 18, chest: 8, trap: 2, item: 12}
	case ArchetypeDungeon:
		return entityOdds{enemy: 25, trap: 12, chest: 10, item: 8}
	case ArchetypeCave:
		return entityOdds{enemy: 20, trap: 8, chest: 6, item: 10}
	case ArchetypeShore:
		return entityOdds{enemy: 6, chest: 5, item: 12}
	default:
		return entityOdds{}
	}
}

func entityAt(a Archetype, rs int64, ix, iy int) Entity {
	o := oddsFor(a)
	roll := Hash3(rs, ix, iy, 3) % 1000
	switch {
	case roll < o.enemy:
		return EntityEnemy
	case roll < o.enemy+o.npc:
		return EntityNPC
	case roll < o.enemy+o.npc+o.chest:
		return EntityChest
	case roll < o.enemy+o.npc+o.chest+o.trap:
		return EntityTrap
	case roll < o.enemy+o.npc+o.chest+o.trap+o.item:
		return EntityItem
	default:
		return EntityNone
	}
}
