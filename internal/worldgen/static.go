package worldgen

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"terminus-core/internal/gamemap"
)

// layoutLegend maps the characters of a hand-authored chunk to tiles.
// Unknown characters become pavement.
var layoutLegend = map[rune]gamemap.TileID{
	'#': gamemap.TileWall,
	'^': gamemap.TileWall,
	'.': gamemap.TilePavement,
	'+': gamemap.TileDoor,
	'~': gamemap.TileWater,
	',': gamemap.TileGrass,
	'T': gamemap.TileTree,
	'S': gamemap.TileSand,
	'C': gamemap.TileCactus,
	'=': gamemap.TileLava,
	'*': gamemap.TileIce,
	'>': gamemap.TileStairsDown,
	'<': gamemap.TileStairsUp,
}

// ParseLayout builds a size×size grid from layout rows. Rows or columns past
// size are ignored; missing ones are pavement.
func ParseLayout(size int, rows []string) *gamemap.Grid {
	grid := gamemap.NewFilled(size, size, gamemap.TilePavement)
	for y, row := range rows {
		if y >= size {
			break
		}
		x := 0
		for _, ch := range row {
			if x >= size {
				break
			}
			if t, ok := layoutLegend[ch]; ok {
				grid.Set(x, y, t)
			}
			x++
		}
	}
	return grid
}

// findTile returns the first tile t in row-major order.
func findTile(grid *gamemap.Grid, t gamemap.TileID) (x, y int, ok bool) {
	for i, v := range grid.Tiles {
		if v == t {
			return i % grid.Width, i / grid.Width, true
		}
	}
	return 0, 0, false
}

// StaticChunk is one hand-authored chunk in a static map file.
type StaticChunk struct {
	At   [3]int   `yaml:"at"` // cx, cy, z
	Rows []string `yaml:"rows"`
}

type staticFile struct {
	Chunks []StaticChunk `yaml:"chunks"`
}

// DecodeStatic reads a static map document:
//
//	chunks:
//	  - at: [0, 0, 0]
//	    rows:
//	      - "####"
//	      - "#.>#"
func DecodeStatic(r io.Reader) (map[Coord][]string, error) {
	var f staticFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	out := make(map[Coord][]string, len(f.Chunks))
	for _, c := range f.Chunks {
		k := Coord{CX: c.At[0], CY: c.At[1], Z: c.At[2]}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("static chunk %v defined twice", k)
		}
		out[k] = c.Rows
	}
	return out, nil
}

// LoadStatic reads a static map file. An empty path yields no static chunks.
func LoadStatic(path string) (map[Coord][]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := DecodeStatic(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
