package main

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cacher300/Massive-Webscraping-operation/internal/config"
	"github.com/cacher300/Massive-Webscraping-operation/internal/grid"
)

// loadCoverage resolves the configured coverage outline. An empty outline
// disables pruning.
func loadCoverage(c config.CoverageConfig) (*grid.Coverage, error) {
	switch {
	case c.Outline == "":
		return nil, nil
	case c.Outline == "north-america":
		return grid.NorthAmerica(), nil
	case strings.HasSuffix(c.Outline, ".shp"):
		return grid.LoadRingShapefile(c.Outline)
	case strings.HasSuffix(c.Outline, ".yaml"), strings.HasSuffix(c.Outline, ".yml"):
		return grid.LoadRingYAML(c.Outline)
	}
	return nil, eris.Errorf("coverage outline %q is not builtin and not a .shp/.yaml path", c.Outline)
}

// buildPlanner assembles the tile planner from config.
func buildPlanner(cfg *config.Config) (grid.Planner, error) {
	dir, err := grid.ParseDirection(cfg.Grid.Direction)
	if err != nil {
		return grid.Planner{}, err
	}

	p := grid.Planner{
		Bounds: grid.BBox{
			MinLat: cfg.Grid.MinLat,
			MaxLat: cfg.Grid.MaxLat,
			MinLng: cfg.Grid.MinLng,
			MaxLng: cfg.Grid.MaxLng,
		},
		LatStep:   cfg.Grid.LatStep,
		LonStep:   cfg.Grid.LonStep,
		Direction: dir,
	}

	cov, err := loadCoverage(cfg.Coverage)
	if err != nil {
		return grid.Planner{}, err
	}
	if cov != nil {
		p.Contains = cov.Contains
	}

	return p, nil
}
