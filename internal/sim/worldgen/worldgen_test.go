package worldgen

import "testing"

func TestTerrainAt_Pure(t *testing.T) {
	const seed = 42
	for y := -25; y <= 25; y++ {
		for x := -25; x <= 25; x++ {
			a := TerrainAt(seed, x, y)
			b := TerrainAt(seed, x, y)
			if a != b {
				t.Fatalf("terrain diverged at (%d,%d): %v vs %v", x, y, a, b)
			}
		}
	}
}

func TestTerrainAt_SeedVariation(t *testing.T) {
	// Different seeds must produce different maps somewhere off the road
	// and landmark cells.
	diff := 0
	for y := 1; y <= 20; y++ {
		for x := 1; x <= 20; x++ {
			if _, ok := LandmarkAt(x, y); ok {
				continue
			}
			if TerrainAt(1, x, y) != TerrainAt(2, x, y) {
				diff++
			}
		}
	}
	if diff == 0 {
		t.Fatalf("seed has no effect on terrain")
	}
}

func TestTerrainAt_RoadBand(t *testing.T) {
	for x := -50; x <= 50; x++ {
		if _, ok := LandmarkAt(x, 0); ok {
			continue
		}
		k := TerrainAt(7, x, 0)
		if k != TerrainRoad && k != TerrainBridge {
			t.Fatalf("y=0 cell (%d,0) is %v, want road or bridge", x, k)
		}
	}
}

func TestTerrainAt_Landmarks(t *testing.T) {
	for _, l := range Landmarks() {
		for _, seed := range []int64{1, 99, -3} {
			if got := TerrainAt(seed, l.X, l.Y); got != l.Terrain {
				t.Fatalf("landmark %s: terrain %v, want %v", l.Name, got, l.Terrain)
			}
		}
	}
}

func TestGenerateRoom_InaccessibleNil(t *testing.T) {
	const seed = 1337
	found := 0
	for y := -40; y <= 40 && found < 10; y++ {
		for x := -40; x <= 40 && found < 10; x++ {
			if Accessible(TerrainAt(seed, x, y)) {
				continue
			}
			found++
			if r := GenerateRoom(seed, x, y); r != nil {
				t.Fatalf("room generated on inaccessible terrain at (%d,%d)", x, y)
			}
		}
	}
	if found == 0 {
		t.Fatalf("no inaccessible terrain found in scan")
	}
}

func TestGenerateRoom_BorderAndSize(t *testing.T) {
	const seed = 1337
	checked := 0
	for y := -15; y <= 15; y++ {
		for x := -15; x <= 15; x++ {
			r := GenerateRoom(seed, x, y)
			if r == nil {
				continue
			}
			checked++
			if len(r.Tiles) != RoomSize*RoomSize || len(r.Entities) != RoomSize*RoomSize {
				t.Fatalf("(%d,%d): grid size %d/%d", x, y, len(r.Tiles), len(r.Entities))
			}
			for i := 0; i < RoomSize; i++ {
				for _, pos := range [][2]int{{i, 0}, {i, RoomSize - 1}, {0, i}, {RoomSize - 1, i}} {
					if r.Tile(pos[0], pos[1]) != TileWall {
						t.Fatalf("(%d,%d): border cell (%d,%d) not wall", x, y, pos[0], pos[1])
					}
					if r.Entity(pos[0], pos[1]) != EntityNone {
						t.Fatalf("(%d,%d): entity on border cell (%d,%d)", x, y, pos[0], pos[1])
					}
				}
			}
		}
	}
	if checked == 0 {
		t.Fatalf("no accessible rooms in scan")
	}
}

func TestGenerateRoom_Deterministic(t *testing.T) {
	const seed = 7
	for y := -5; y <= 5; y++ {
		for x := -5; x <= 5; x++ {
			a := GenerateRoom(seed, x, y)
			b := GenerateRoom(seed, x, y)
			if (a == nil) != (b == nil) {
				t.Fatalf("(%d,%d): nil mismatch", x, y)
			}
			if a == nil {
				continue
			}
			for i := range a.Tiles {
				if a.Tiles[i] != b.Tiles[i] || a.Entities[i] != b.Entities[i] {
					t.Fatalf("(%d,%d): grids diverge at index %d", x, y, i)
				}
			}
		}
	}
}

func TestGenerateRoom_EntitiesOnFloorOnly(t *testing.T) {
	const seed = 99
	for y := -10; y <= 10; y++ {
		for x := -10; x <= 10; x++ {
			r := GenerateRoom(seed, x, y)
			if r == nil {
				continue
			}
			for i := range r.Entities {
				if r.Entities[i] != EntityNone && r.Tiles[i] != TileFloor {
					t.Fatalf("(%d,%d): entity %d on tile %d at index %d", x, y, r.Entities[i], r.Tiles[i], i)
				}
			}
		}
	}
}
