package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"

	"immo-estimator/models"
	"immo-estimator/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// WithOutput returns a copy of the service printing to w.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	cp := *s
	cp.out = w
	return &cp
}

// Generate summarises a cleaned dataset. enc, when given, lets province
// counts be recovered from the expanded province columns.
func (s *InsightService) Generate(ds *models.Dataset, enc *models.Encoding) *models.DatasetInsights {
	report := &models.DatasetInsights{
		ListingsByProvince: make(map[string]int),
	}
	if ds == nil || ds.Len() == 0 {
		return report
	}

	report.TotalRows = ds.Len()
	report.Columns = len(ds.Columns)

	var prices []float64
	for _, c := range ds.Column(TargetColumn) {
		if v, ok := c.Number(); ok {
			prices = append(prices, v)
		}
	}

	if len(prices) > 0 {
		sort.Float64s(prices)
		report.MinPrice = round2(prices[0])
		report.MaxPrice = round2(prices[len(prices)-1])
		report.AveragePrice = round2(stat.Mean(prices, nil))
		report.MedianPrice = round2(stat.Quantile(0.5, stat.Empirical, prices, nil))
	}

	for _, p := range categoryOf(ds, enc, "province") {
		if p != "" {
			report.ListingsByProvince[p]++
		}
	}

	s.logger.Debug("[insights] %d rows, %d provinces", report.TotalRows, len(report.ListingsByProvince))
	return report
}

// categoryOf returns, per row, the category of col. It reads col directly
// when present and otherwise decodes its one-hot columns, rows with no
// column set belonging to the reference category.
func categoryOf(ds *models.Dataset, enc *models.Encoding, col string) []string {
	out := make([]string, ds.Len())
	if i := ds.Index(col); i >= 0 {
		for r, row := range ds.Rows {
			if row[i].Valid {
				out[r] = row[i].Value
			}
		}
		return out
	}
	if enc == nil || len(enc.OneHot[col]) == 0 {
		return out
	}

	cats := enc.OneHot[col]
	for r := range out {
		out[r] = cats[0]
	}
	for _, cat := range cats[1:] {
		i := ds.Index(models.DummyColumn(col, cat))
		if i < 0 {
			continue
		}
		for r, row := range ds.Rows {
			if row[i].Value == "1" {
				out[r] = cat
			}
		}
	}
	return out
}

func (s *InsightService) Print(r *models.DatasetInsights) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 CLEANED DATASET INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings : \033[1m%d\033[0m\n", r.TotalRows)
	fmt.Fprintf(w, "  Columns  : \033[1m%d\033[0m\n", r.Columns)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalRows > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", FormatPrice(r.AveragePrice))
		fmt.Fprintf(w, "  Median price  : \033[1;32m%s\033[0m\n", FormatPrice(r.MedianPrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", FormatPrice(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", FormatPrice(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Province\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByProvince) == 0 {
		fmt.Fprintf(w, "  No province data\n")
	} else {
		type provCount struct {
			name  string
			count int
		}
		var provs []provCount
		for name, cnt := range r.ListingsByProvince {
			provs = append(provs, provCount{name, cnt})
		}
		sort.Slice(provs, func(i, j int) bool {
			if provs[i].count != provs[j].count {
				return provs[i].count > provs[j].count
			}
			return provs[i].name < provs[j].name
		})
		// Bars are scaled to the largest province.
		max := provs[0].count
		for _, pc := range provs {
			bar := strings.Repeat("█", (pc.count*30+max-1)/max)
			fmt.Fprintf(w, "  %-22s %s (%d)\n", truncate(pc.name, 20), bar, pc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// PrintMetrics prints the train/test score table of a run.
func (s *InsightService) PrintMetrics(run *models.TrainingRun) {
	w := s.out
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;33m  %s (%d features)\033[0m\n", run.ModelName, run.Features)
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  %-8s %14s %14s %14s\n", "Metric", "TRAIN", "TEST", "DIFF")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, row := range metricRows(run) {
		fmt.Fprintf(w, "  %-8s %14.2f %14.2f %14.2f\n", row.name, row.train, row.test, row.train-row.test)
	}
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Rows: %d train / %d test\n\n", run.TrainRows, run.TestRows)
}

type metricRow struct {
	name        string
	train, test float64
}

func metricRows(run *models.TrainingRun) []metricRow {
	return []metricRow{
		{"R²", run.Train.R2, run.Test.R2},
		{"R² %", run.Train.R2 * 100, run.Test.R2 * 100},
		{"RMSE", run.Train.RMSE, run.Test.RMSE},
		{"MAE", run.Train.MAE, run.Test.MAE},
	}
}

// FormatPrice renders a price with thousands separators, e.g. 1,234.56 €.
func FormatPrice(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f €", v)
}

func round2(f float64) float64 {
	if f < 0 {
		return -round2(-f)
	}
	return float64(int64(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
