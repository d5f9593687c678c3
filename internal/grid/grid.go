// Package grid plans the rectangular query tiles that cover a bounding region,
// optionally pruned against a coverage outline so ocean-only tiles are never
// fetched.
package grid

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Tile is one rectangular query region submitted as a single upstream request.
// Invariants: Bottom < Top and Left < Right.
type Tile struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// BBox is a geographic bounding box in decimal degrees.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Direction selects the latitude scan order. Longitude always advances
// west to east within a band. The order carries no semantics beyond being
// deterministic, which the tests rely on.
type Direction string

const (
	// SouthToNorth scans latitude bands ascending from the southern bound.
	SouthToNorth Direction = "south-north"
	// NorthToSouth scans latitude bands descending from the northern bound.
	// This is the order used with coastline pruning: each band is scanned
	// until the outline is entered and abandoned once it is exited.
	NorthToSouth Direction = "north-south"
)

// ParseDirection validates a direction string from config.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case SouthToNorth, NorthToSouth:
		return Direction(s), nil
	case "":
		return SouthToNorth, nil
	}
	return "", eris.Errorf("grid: unknown scan direction %q", s)
}

// Planner computes the ordered tile set for a sweep.
type Planner struct {
	Bounds    BBox
	LatStep   float64
	LonStep   float64
	Direction Direction

	// Contains, when non-nil, prunes the grid: a tile is emitted only if its
	// top-left corner lies inside the coverage outline. Within a band, tiles
	// before the outline is first entered are skipped; once a tile has been
	// accepted and a later corner falls outside, the rest of the band is
	// abandoned. This assumes the outline does not re-enter a scan row after
	// exiting it, a deliberate approximation that bounds work against an
	// irregular coastline without polygon-intersection cost. Concave
	// re-entries (fjords, sounds) may lose coverage.
	Contains func(lat, lng float64) bool
}

// Plan returns the ordered tiles covering the bounds. Every point in the
// bounds falls in at least one tile; the final tile of a band or column may
// extend past the nominal boundary, which the upstream feed tolerates.
func (p Planner) Plan() ([]Tile, error) {
	if p.LatStep <= 0 || p.LonStep <= 0 {
		return nil, eris.Errorf("grid: step sizes must be positive, got lat=%v lon=%v", p.LatStep, p.LonStep)
	}
	if p.Bounds.MinLat >= p.Bounds.MaxLat {
		return nil, eris.Errorf("grid: min_lat %v must be below max_lat %v", p.Bounds.MinLat, p.Bounds.MaxLat)
	}
	if p.Bounds.MinLng >= p.Bounds.MaxLng {
		return nil, eris.Errorf("grid: min_lng %v must be below max_lng %v", p.Bounds.MinLng, p.Bounds.MaxLng)
	}

	dir := p.Direction
	if dir == "" {
		dir = SouthToNorth
	}

	var tiles []Tile
	bands := 0
	switch dir {
	case SouthToNorth:
		for lat := p.Bounds.MinLat; lat <= p.Bounds.MaxLat; lat += p.LatStep {
			tiles = p.planBand(tiles, lat+p.LatStep)
			bands++
		}
	case NorthToSouth:
		for lat := p.Bounds.MaxLat; lat >= p.Bounds.MinLat; lat -= p.LatStep {
			tiles = p.planBand(tiles, lat)
			bands++
		}
	default:
		return nil, eris.Errorf("grid: unknown scan direction %q", dir)
	}

	zap.L().Debug("planned tile grid",
		zap.Int("tiles", len(tiles)),
		zap.Int("bands", bands),
		zap.String("direction", string(dir)),
		zap.Bool("pruned", p.Contains != nil),
	)
	return tiles, nil
}

// planBand appends one latitude band's tiles, west to east. top is the band's
// northern edge; the corner tested against the coverage outline is the
// tile's top-left.
func (p Planner) planBand(tiles []Tile, top float64) []Tile {
	rowStarted := false
	for lng := p.Bounds.MinLng; lng <= p.Bounds.MaxLng; lng += p.LonStep {
		if p.Contains != nil {
			if !p.Contains(top, lng) {
				if rowStarted {
					break
				}
				continue
			}
			rowStarted = true
		}
		tiles = append(tiles, Tile{
			Top:    top,
			Bottom: top - p.LatStep,
			Left:   lng,
			Right:  lng + p.LonStep,
		})
	}
	return tiles
}
