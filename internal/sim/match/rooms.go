package match

import (
	"fmt"
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/state"
	"dropzone.gg/internal/sim/worldgen"
)

// roomAt materializes the room for a world cell the first time anything
// needs it. Materialization also spawns the room's ground items, which is
// the only non-pure part: the instances live in the match item table and
// can be picked up or moved afterwards. Inaccessible terrain has no room
// and is never cached; re-derivation is pure.
func (m *Match) roomAt(cx, cy int) *worldgen.Room {
	key := [2]int{cx, cy}
	if r, ok := m.rooms[key]; ok {
		return r
	}
	r := worldgen.GenerateRoom(m.cfg.Seed, cx, cy)
	if r == nil {
		return nil
	}
	m.rooms[key] = r
	m.spawnRoomItems(r, cx, cy)
	return r
}

// spawnRoomItems derives the room's ground items from its entity grid.
// Template choice is hashed off the room seed so every match with the same
// world seed starts with the same loot on the same tiles.
func (m *Match) spawnRoomItems(r *worldgen.Room, cx, cy int) {
	spawnable := m.cfg.Catalog.Spawnable()
	if len(spawnable) == 0 {
		return
	}
	total := 0
	for _, tpl := range spawnable {
		total += tpl.SpawnWeight
	}
	rs := worldgen.RoomSeed(m.cfg.Seed, cx, cy)
	for iy := 0; iy < worldgen.RoomSize; iy++ {
		for ix := 0; ix < worldgen.RoomSize; ix++ {
			if r.Entity(ix, iy) != worldgen.EntityItem {
				continue
			}
			roll := int(worldgen.Hash3(rs, ix, iy, 7) % uint64(total))
			var tpl = spawnable[0]
			for _, cand := range spawnable {
				if roll < cand.SpawnWeight {
					tpl = cand
					break
				}
				roll -= cand.SpawnWeight
			}
			qty := 1
			if tpl.Stackable {
				qty = 1 + int(worldgen.Hash3(rs, ix, iy, 11)%3)
			}
			inst := &state.ItemInstance{
				ID:         fmt.Sprintf("itm_%d_%d_%d_%d", cx, cy, ix, iy),
				TemplateID: tpl.ID,
				Pos:        tileCenter(cx, cy, ix, iy, m.tun.World.CellSize),
				Quantity:   qty,
			}
			m.items[inst.ID] = inst
		}
	}
}

// tileCenter maps a tile index inside a room to continuous world units.
func tileCenter(cx, cy, ix, iy int, cellSize float64) state.Vec2 {
	step := cellSize / float64(worldgen.RoomSize)
	return state.Vec2{
		X: float64(cx)*cellSize + (float64(ix)+0.5)*step,
		Y: float64(cy)*cellSize + (float64(iy)+0.5)*step,
	}
}

// markExplored records the player's current cell as visited and streams the
// room payload if this session has not seen it yet. Exploration is only
// counted here: the player has to actually stand in the cell, and movement
// validation keeps them off inaccessible terrain.
func (m *Match) markExplored(sess *session, now time.Time) {
	cell := sess.player.Cell
	if m.streamRoom(sess, cell[0], cell[1]) {
		m.recordRoomExplored(sess.playerID, now)
	}
}

// streamRoom sends the room payload for a cell the session has not seen
// yet. Returns true only when a room was newly streamed; inaccessible
// cells have no room and leave no trace.
func (m *Match) streamRoom(sess *session, cx, cy int) bool {
	key := [2]int{cx, cy}
	if sess.sentRooms[key] {
		return false
	}
	r := m.roomAt(cx, cy)
	if r == nil {
		return false
	}
	sess.sentRooms[key] = true
	m.send(sess, protocol.RoomDataMsg{
		Type:     protocol.TypeRoomData,
		WorldPos: key,
		Room: protocol.RoomPayload{
			Terrain:   r.Terrain.String(),
			Archetype: r.Archetype.String(),
			Size:      worldgen.RoomSize,
			Tiles:     tileRows(r),
			Entities:  entityRows(r),
		},
	})
	return true
}

func tileRows(r *worldgen.Room) [][]uint8 {
	rows := make([][]uint8, worldgen.RoomSize)
	for iy := 0; iy < worldgen.RoomSize; iy++ {
		row := make([]uint8, worldgen.RoomSize)
		for ix := 0; ix < worldgen.RoomSize; ix++ {
			row[ix] = uint8(r.Tile(ix, iy))
		}
		rows[iy] = row
	}
	return rows
}

func entityRows(r *worldgen.Room) [][]uint8 {
	rows := make([][]uint8, worldgen.RoomSize)
	for iy := 0; iy < worldgen.RoomSize; iy++ {
		row := make([]uint8, worldgen.RoomSize)
		for ix := 0; ix < worldgen.RoomSize; ix++ {
			row[ix] = uint8(r.Entity(ix, iy))
		}
		rows[iy] = row
	}
	return rows
}
