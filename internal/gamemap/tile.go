package gamemap

// TileID identifies the kind of a map tile. Values are persisted in override
// lists, so existing ids never change meaning.
type TileID uint8

const (
	TileFloor TileID = iota
	TileWall
	TileDoor
	TileWater
	TileGrass
	TileTree
	TileStairsUp
	TileStairsDown
	TileSand
	TilePavement
	TileSnow
	TileLava
	TileAsh
	TileCactus
	TileIce
	TileRubble
	TileOre

	tileCount
)

// Category groups tiles for connected-tile selection: walls join walls,
// liquids join liquids, and so on.
type Category uint8

const (
	CatGround Category = iota
	CatWall
	CatLiquid
	CatFlora
	CatStructure
)

// TileInfo is the gameplay metadata for one tile kind.
type TileInfo struct {
	Name     string
	Walkable bool
	Opaque   bool
	Category Category
}

// TileTable resolves tile metadata. Movement validation and the visibility
// engine consult it; the core never hardcodes walkability.
type TileTable interface {
	Info(id TileID) TileInfo
}

// StaticTable is a TileTable backed by a fixed slice indexed by TileID.
type StaticTable []TileInfo

// Info returns the entry for id, or an opaque impassable "void" tile for ids
// outside the table.
func (t StaticTable) Info(id TileID) TileInfo {
	if int(id) >= len(t) {
		return TileInfo{Name: "void", Opaque: true, Category: CatWall}
	}
	return t[id]
}

// DefaultTiles is the built-in tile table.
var DefaultTiles = StaticTable{
	TileFloor:      {Name: "floor", Walkable: true, Category: CatGround},
	TileWall:       {Name: "wall", Opaque: true, Category: CatWall},
	TileDoor:       {Name: "door", Walkable: true, Opaque: true, Category: CatStructure},
	TileWater:      {Name: "water", Category: CatLiquid},
	TileGrass:      {Name: "grass", Walkable: true, Category: CatGround},
	TileTree:       {Name: "tree", Opaque: true, Category: CatFlora},
	TileStairsUp:   {Name: "stairs up", Walkable: true, Category: CatStructure},
	TileStairsDown: {Name: "stairs down", Walkable: true, Category: CatStructure},
	TileSand:       {Name: "sand", Walkable: true, Category: CatGround},
	TilePavement:   {Name: "pavement", Walkable: true, Category: CatGround},
	TileSnow:       {Name: "snow", Walkable: true, Category: CatGround},
	TileLava:       {Name: "lava", Category: CatLiquid},
	TileAsh:        {Name: "ash", Walkable: true, Category: CatGround},
	TileCactus:     {Name: "cactus", Category: CatFlora},
	TileIce:        {Name: "ice", Walkable: true, Category: CatLiquid},
	TileRubble:     {Name: "rubble", Walkable: true, Category: CatStructure},
	TileOre:        {Name: "ore vein", Opaque: true, Category: CatWall},
}
