package worldgen

// TerrainKind is the closed set of world-cell terrain categories.
type TerrainKind uint8

const (
	TerrainRoad TerrainKind = iota
	TerrainBridge
	TerrainField
	TerrainForest
	TerrainSettlement
	TerrainDungeon
	TerrainCave
	TerrainShore
	TerrainCliff
	TerrainDeepWater
	TerrainDenseForest
	TerrainMountain
)

func (k TerrainKind) String() string {
	switch k {
	case TerrainRoad:
		return "ROAD"
	case TerrainBridge:
		return "BRIDGE"
	case TerrainField:
		return "FIELD"
	case TerrainForest:
		return "FOREST"
	case TerrainSettlement:
		return "SETTLEMENT"
	case TerrainDungeon:
		return "DUNGEON"
	case TerrainCave:
		return "CAVE"
	case TerrainShore:
		return "SHORE"
	case TerrainCliff:
		return "CLIFF"
	case TerrainDeepWater:
		return "DEEP_WATER"
	case TerrainDenseForest:
		return "DENSE_FOREST"
	case TerrainMountain:
		return "MOUNTAIN"
	default:
		return "UNKNOWN"
	}
}

// Accessible reports whether a room can be entered (and therefore
// materialized) on this terrain.
func Accessible(k TerrainKind) bool {
	switch k {
	case TerrainDeepWater, TerrainDenseForest, TerrainMountain, TerrainCliff:
		return false
	default:
		return true
	}
}

// Landmark is a fixed, pre-placed named location. The list is identical for
// every match; only the surrounding procedural terrain varies with the seed.
type Landmark struct {
	X, Y    int
	Name    string
	Terrain TerrainKind
}

var landmarks = []Landmark{
	{X: 0, Y: 0, Name: "Spawn Crossing", Terrain: TerrainRoad},
	{X: 6, Y: 4, Name: "Fort Bastion", Terrain: TerrainSettlement},
	{X: -7, Y: 2, Name: "Sunken Chapel", Terrain: TerrainDungeon},
	{X: 5, Y: -6, Name: "Smugglers' Cove", Terrain: TerrainShore},
	{X: -3, Y: 7, Name: "Old Span", Terrain: TerrainBridge},
	{X: -5, Y: -8, Name: "Hermit's Hollow", Terrain: TerrainCave},
	{X: 8, Y: -3, Name: "Thresher Fields", Terrain: TerrainField},
	{X: 9, Y: 9, Name: "Watcher's Peak", Terrain: TerrainMountain},
}

var landmarkIndex = func() map[[2]int]Landmark {
	m := make(map[[2]int]Landmark, len(landmarks))
	for _, l := range landmarks {
		m[[2]int{l.X, l.Y}] = l
	}
	return m
}()

func Landmarks() []Landmark {
	out := make([]Landmark, len(landmarks))
	copy(out, landmarks)
	return out
}

func LandmarkAt(x, y int) (Landmark, bool) {
	l, ok := landmarkIndex[[2]int{x, y}]
	return l, ok
}

// TerrainAt maps world cell (x, y) to a terrain kind. Landmarks win, then
// the horizontal road band through the origin, then fixed threshold bands
// over a seeded hash. Pure in (seed, x, y).
func TerrainAt(seed int64, x, y int) TerrainKind {
	if l, ok := LandmarkAt(x, y); ok {
		return l.Terrain
	}
	roll := Hash2(seed, x, y) % 1000
	if y == 0 {
		// The road spans the map; where it would cross open water it
		// becomes a bridge instead.
		if roll < 120 {
			return TerrainBridge
		}
		return TerrainRoad
	}
	switch {
	case roll >= 900:
		return TerrainMountain
	case roll >= 820:
		return TerrainDenseForest
	case roll >= 700:
		return TerrainForest
	case roll >= 540:
		return TerrainField
	case roll >= 460:
		return TerrainSettlement
	case roll >= 380:
		return TerrainDungeon
	case roll >= 300:
		return TerrainCave
	case roll >= 240:
		return TerrainCliff
	case roll >= 120:
		return TerrainShore
	default:
		return TerrainDeepWater
	}
}
