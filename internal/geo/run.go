package geo

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"cocoa-insights-go/internal/chart"
	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/dataset"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/pipeline"
	"cocoa-insights-go/internal/report"
)

// Exercise is the directory name used under data, results and cleaned
const Exercise = "geospatial"

// Result holds everything the geospatial run produced
type Result struct {
	Farms    []*Farm
	Cleaned  []*Farm
	Overlaps []Overlap
	Removed  []Removal
	Invalid  map[string]error
	Stats    Stats
	Files    []string
}

// Run loads the polygon survey, measures overlaps and forest cover, cleans
// heavy overlaps and writes the workbooks, GeoJSON and maps.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	var (
		table  *dataset.Table
		forest *Forest
		res    = &Result{}
		ts     = report.Timestamp(time.Now())
		outDir = cfg.ResultsPath(Exercise)
	)

	steps := []pipeline.Step{
		{Name: "load", Run: func(ctx context.Context) error {
			path := cfg.PolygonInput
			if path == "" {
				p, err := dataset.FindInput(cfg.RawDir(Exercise))
				if err != nil {
					return err
				}
				path = p
			}
			t, err := dataset.ReadTable(path)
			if err != nil {
				return err
			}
			table = t
			log.WithField("file", path).WithField("rows", len(t.Rows)).Info("polygon survey loaded")
			return nil
		}},
		{Name: "polygons", Run: func(ctx context.Context) error {
			rows, missing, err := dataset.LoadPolygons(table)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				log.WithField("missing", missing).Warn("optional polygon columns not found")
			}
			res.Farms, res.Invalid = BuildFarms(rows)
			for id, err := range res.Invalid {
				log.WithError(err).WithField("polygon_id", id).Warn("invalid polygon dropped")
			}
			if len(res.Farms) == 0 {
				return fmt.Errorf("no valid polygons in %s", table.Path)
			}
			log.WithFields(map[string]interface{}{
				"valid":   len(res.Farms),
				"invalid": len(res.Invalid),
			}).Info("polygons built")
			return nil
		}},
		{Name: "overlaps", Run: func(ctx context.Context) error {
			res.Overlaps = DetectOverlaps(res.Farms)
			SortOverlaps(res.Overlaps)
			Annotate(res.Farms, res.Overlaps)
			log.WithField("overlaps", OverlapCounts(res.Overlaps)).Info("overlap detection done")
			return nil
		}},
		{Name: "forest", Optional: true, Run: func(ctx context.Context) error {
			if cfg.ForestLayer == "" {
				log.Warn("FOREST_LAYER not set; forest analysis skipped")
				ForestCover(res.Farms, nil)
				return nil
			}
			f, err := LoadForest(ctx, cfg.ForestLayer, log)
			if err != nil {
				ForestCover(res.Farms, nil)
				return err
			}
			forest = f
			ForestCover(res.Farms, forest)
			log.WithFields(map[string]interface{}{
				"forest_polygons": len(forest.Polygons),
				"farms_in_forest": CountInForest(res.Farms),
			}).Info("forest overlap done")
			return nil
		}},
		{Name: "clean", Run: func(ctx context.Context) error {
			res.Cleaned, res.Removed = Clean(res.Farms, res.Overlaps, cfg.OverlapCleanThreshold)
			Annotate(res.Cleaned, DetectOverlaps(res.Cleaned))
			ForestCover(res.Cleaned, forest)
			res.Stats = Summarize(res.Farms, res.Cleaned, res.Overlaps)
			log.WithFields(map[string]interface{}{
				"threshold": cfg.OverlapCleanThreshold,
				"removed":   len(res.Removed),
				"kept":      len(res.Cleaned),
			}).Info("overlap treatment done")
			return nil
		}},
		{Name: "report", Run: func(ctx context.Context) error {
			analysis := filepath.Join(outDir, fmt.Sprintf("cocoa_farm_analysis_%s.xlsx", ts))
			if err := WriteAnalysis(analysis, res.Farms, res.Overlaps, res.Stats); err != nil {
				return err
			}
			cleanedXLSX := cfg.CleanedPath(Exercise, fmt.Sprintf("cleaned_cocoa_farms_%s.xlsx", ts))
			if err := WriteCleaned(cleanedXLSX, res.Cleaned); err != nil {
				return err
			}
			cleanedJSON := cfg.CleanedPath(Exercise, fmt.Sprintf("cleaned_cocoa_farms_%s.geojson", ts))
			if err := WriteGeoJSON(cleanedJSON, res.Cleaned); err != nil {
				return err
			}
			res.Files = append(res.Files, analysis, cleanedXLSX, cleanedJSON)
			return nil
		}},
		{Name: "maps", Optional: true, Run: func(ctx context.Context) error {
			files, err := DrawMaps(chart.New(cfg.DPI), outDir, res.Farms, res.Cleaned, res.Overlaps, forest)
			res.Files = append(res.Files, files...)
			return err
		}},
	}

	if err := pipeline.Run(ctx, log, steps); err != nil {
		return res, err
	}
	for _, m := range res.Stats.Metrics() {
		log.WithField("value", m.Value).Info(m.Name)
	}
	return res, nil
}
