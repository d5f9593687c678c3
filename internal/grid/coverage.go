package grid

import (
	"os"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"gopkg.in/yaml.v3"
)

// northAmericaRing outlines the North American landmass as lon/lat pairs.
// It is coarse on purpose: it only has to reject open-ocean tiles, not trace
// the coastline.
var northAmericaRing = []float64{
	-167.112472, 66.142750,
	-141.338990, 64.849412,
	-133.751810, 61.959240,
	-124.034403, 59.923587,
	-98.886950, 60.024861,
	-89.134663, 54.191839,
	-78.002418, 52.392400,
	-68.923741, 52.262380,
	-64.749177, 60.317732,
	-55.453238, 52.251482,
	-50.877762, 46.855167,
	-65.601410, 43.080521,
	-70.294206, 40.142875,
	-77.333400, 32.299939,
	-77.333400, 25.157298,
	-82.084856, 23.983664,
	-85.545793, 27.989875,
	-92.878287, 28.558147,
	-95.869945, 26.109243,
	-99.624181, 26.948968,
	-117.750106, 31.702996,
	-126.197139, 37.585581,
	-124.789300, 46.209501,
	-133.646953, 53.315787,
	-139.630268, 58.501270,
	-146.024202, 59.557690,
	-160.571870, 57.412078,
	-170.426742, 61.602696,
}

// Coverage wraps a single closed outline ring and answers point containment
// queries for grid pruning.
type Coverage struct {
	ring []float64
}

// NewCoverage builds a Coverage from flat lon/lat coordinate pairs. The ring
// is closed automatically if the input is open.
func NewCoverage(ring []float64) (*Coverage, error) {
	if len(ring) < 6 || len(ring)%2 != 0 {
		return nil, eris.Errorf("coverage: ring needs at least 3 lon/lat pairs, got %d values", len(ring))
	}
	closed := ring
	n := len(ring)
	if ring[0] != ring[n-2] || ring[1] != ring[n-1] {
		closed = make([]float64, 0, n+2)
		closed = append(closed, ring...)
		closed = append(closed, ring[0], ring[1])
	}
	return &Coverage{ring: closed}, nil
}

// NorthAmerica returns the builtin continental outline.
func NorthAmerica() *Coverage {
	c, err := NewCoverage(northAmericaRing)
	if err != nil {
		// The builtin ring is well-formed; a failure here is a programming error.
		panic(err)
	}
	return c
}

// Contains reports whether the point lies inside the outline.
func (c *Coverage) Contains(lat, lng float64) bool {
	return xy.IsPointInRing(geom.XY, geom.Coord{lng, lat}, c.ring)
}

// LoadRingShapefile reads the first polygon from an ESRI shapefile and
// returns its outer ring as a Coverage. Inner rings and additional shapes
// are ignored; pruning only needs the outer boundary.
func LoadRingShapefile(path string) (*Coverage, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || len(poly.Points) == 0 {
			continue
		}

		end := int32(len(poly.Points))
		if poly.NumParts > 1 {
			end = poly.Parts[1]
		}
		ring := make([]float64, 0, end*2)
		for _, pt := range poly.Points[:end] {
			ring = append(ring, pt.X, pt.Y)
		}
		return NewCoverage(ring)
	}

	return nil, eris.Errorf("coverage: no polygon found in %s", path)
}

// LoadRingYAML reads an outline from a YAML file containing a list of
// [lon, lat] pairs.
func LoadRingYAML(path string) (*Coverage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: read ring file %s", path)
	}

	var pairs [][]float64
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, eris.Wrapf(err, "coverage: parse ring file %s", path)
	}

	ring := make([]float64, 0, len(pairs)*2)
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, eris.Errorf("coverage: ring entry %d in %s must be [lon, lat]", i, path)
		}
		ring = append(ring, p[0], p[1])
	}
	return NewCoverage(ring)
}
