package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"immo-estimator/apperrors"
	"immo-estimator/models"
	"immo-estimator/utils"
)

// Plot file names written by Plotter.Render.
const (
	PriceHistogramFile = "price_distribution.png"
	PriceByTypeFile    = "price_by_type.png"
	PriceSurfaceFile   = "price_vs_surface.png"
)

const histogramBins = 30

// Plotter renders exploratory charts of a cleaned dataset as PNG files.
type Plotter struct {
	logger    *utils.Logger
	outputDir string
}

func NewPlotter(logger *utils.Logger, outputDir string) *Plotter {
	return &Plotter{logger: logger, outputDir: outputDir}
}

// Render writes every chart and returns the paths written. Charts whose
// inputs are absent are skipped.
func (p *Plotter) Render(ds *models.Dataset, enc *models.Encoding) ([]string, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("plots: %w", apperrors.ErrEmptyDataset)
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("plots: create output dir: %w", err)
	}

	var written []string
	steps := []struct {
		file string
		draw func(*models.Dataset, *models.Encoding) (*plot.Plot, error)
	}{
		{PriceHistogramFile, priceHistogram},
		{PriceByTypeFile, priceByType},
		{PriceSurfaceFile, priceVsSurface},
	}
	for _, s := range steps {
		pl, err := s.draw(ds, enc)
		if err != nil {
			return written, fmt.Errorf("plots: %s: %w", s.file, err)
		}
		if pl == nil {
			p.logger.Warn("[plots] Skipping %s: required columns missing", s.file)
			continue
		}
		path := filepath.Join(p.outputDir, s.file)
		if err := pl.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
			return written, fmt.Errorf("plots: save %s: %w", path, err)
		}
		written = append(written, path)
	}

	p.logger.Info("[plots] Wrote %d charts to %s", len(written), p.outputDir)
	return written, nil
}

func priceHistogram(ds *models.Dataset, _ *models.Encoding) (*plot.Plot, error) {
	prices := numericValues(ds.Column(TargetColumn))
	if len(prices) == 0 {
		return nil, nil
	}
	pl := plot.New()
	pl.Title.Text = "Price distribution"
	pl.X.Label.Text = "Price (€)"
	pl.Y.Label.Text = "Listings"

	h, err := plotter.NewHist(prices, histogramBins)
	if err != nil {
		return nil, err
	}
	pl.Add(h)
	return pl, nil
}

func priceByType(ds *models.Dataset, enc *models.Encoding) (*plot.Plot, error) {
	types := categoryOf(ds, enc, "type")
	pi := ds.Index(TargetColumn)
	if pi < 0 {
		return nil, nil
	}

	groups := make(map[string]plotter.Values)
	for r, row := range ds.Rows {
		v, ok := row[pi].Number()
		if !ok || types[r] == "" {
			continue
		}
		groups[types[r]] = append(groups[types[r]], v)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	pl := plot.New()
	pl.Title.Text = "Price by property type"
	pl.Y.Label.Text = "Price (€)"
	for i, name := range names {
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), groups[name])
		if err != nil {
			return nil, err
		}
		pl.Add(box)
	}
	pl.NominalX(names...)
	return pl, nil
}

func priceVsSurface(ds *models.Dataset, _ *models.Encoding) (*plot.Plot, error) {
	pi, si := ds.Index(TargetColumn), ds.Index("habitablesurface")
	if pi < 0 || si < 0 {
		return nil, nil
	}

	pts := make(plotter.XYs, 0, ds.Len())
	for _, row := range ds.Rows {
		price, ok1 := row[pi].Number()
		surface, ok2 := row[si].Number()
		if ok1 && ok2 {
			pts = append(pts, plotter.XY{X: surface, Y: price})
		}
	}
	if len(pts) == 0 {
		return nil, nil
	}

	pl := plot.New()
	pl.Title.Text = "Price vs habitable surface"
	pl.X.Label.Text = "Habitable surface (m²)"
	pl.Y.Label.Text = "Price (€)"

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	pl.Add(sc)
	return pl, nil
}

func numericValues(cells []models.Cell) plotter.Values {
	var out plotter.Values
	for _, c := range cells {
		if v, ok := c.Number(); ok {
			out = append(out, v)
		}
	}
	return out
}
