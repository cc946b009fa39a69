// Package report renders sampling diagnostics for a loaded split: how the
// candidate points are spread across labels and how the class-balanced
// sampler re-weights them.
package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// LabelShare is one label's slice of the candidate table.
type LabelShare struct {
	Label     int
	Count     int
	Candidate float64 // fraction of all candidates carrying Label
	Draw      float64 // probability that a draw picks Label
}

// Shares combines per-label candidate counts and draw probabilities into a
// label-ordered table. Labels present in only one map get zero for the
// other column. weights may be nil, in which case draws follow the
// candidate distribution.
func Shares(counts map[int]int, weights map[int]float64) ([]LabelShare, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no label counts")
	}
	seen := make(map[int]struct{}, len(counts)+len(weights))
	total := 0
	for l, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("label %d has negative count %d", l, c)
		}
		seen[l] = struct{}{}
		total += c
	}
	for l := range weights {
		seen[l] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	out := make([]LabelShare, len(labels))
	for i, l := range labels {
		s := LabelShare{Label: l, Count: counts[l]}
		if total > 0 {
			s.Candidate = float64(s.Count) / float64(total)
		}
		if weights == nil {
			s.Draw = s.Candidate
		} else {
			s.Draw = weights[l]
		}
		out[i] = s
	}
	return out, nil
}

func labelNames(shares []LabelShare) []string {
	names := make([]string, len(shares))
	for i, s := range shares {
		names[i] = strconv.Itoa(s.Label)
	}
	return names
}

// LabelHistogram writes a PNG bar chart comparing the candidate share and
// the draw probability of every label.
func LabelHistogram(path string, counts map[int]int, weights map[int]float64) error {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return fmt.Errorf("label histogram %q: want a .png path", path)
	}
	shares, err := Shares(counts, weights)
	if err != nil {
		return fmt.Errorf("label histogram: %w", err)
	}

	cand := make(plotter.Values, len(shares))
	draw := make(plotter.Values, len(shares))
	for i, s := range shares {
		cand[i] = s.Candidate
		draw[i] = s.Draw
	}

	p := plot.New()
	p.Title.Text = "Label balance"
	p.X.Label.Text = "Label"
	p.Y.Label.Text = "Fraction"

	w := vg.Points(12)
	candBars, err := plotter.NewBarChart(cand, w)
	if err != nil {
		return fmt.Errorf("candidate bars: %w", err)
	}
	candBars.LineStyle.Width = vg.Length(0)
	candBars.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	candBars.Offset = -w / 2

	drawBars, err := plotter.NewBarChart(draw, w)
	if err != nil {
		return fmt.Errorf("draw bars: %w", err)
	}
	drawBars.LineStyle.Width = vg.Length(0)
	drawBars.Color = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	drawBars.Offset = w / 2

	p.Add(candBars, drawBars)
	p.Legend.Add("candidates", candBars)
	p.Legend.Add("draws", drawBars)
	p.Legend.Top = true
	p.Legend.Left = false
	p.NominalX(labelNames(shares)...)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save label histogram: %w", err)
	}
	return nil
}

// WeightsHTML renders an HTML page with two bar charts: candidate counts per
// label and the per-label draw probability. labels fixes the x axis order;
// when empty the labels of counts are used in ascending order.
func WeightsHTML(w io.Writer, labels []int, counts map[int]int, weights map[int]float64) error {
	shares, err := Shares(counts, weights)
	if err != nil {
		return fmt.Errorf("weights chart: %w", err)
	}
	byLabel := make(map[int]LabelShare, len(shares))
	for _, s := range shares {
		byLabel[s.Label] = s
	}
	if len(labels) > 0 {
		ordered := make([]LabelShare, 0, len(labels))
		for _, l := range labels {
			s, ok := byLabel[l]
			if !ok {
				s = LabelShare{Label: l}
			}
			ordered = append(ordered, s)
		}
		shares = ordered
	}

	names := labelNames(shares)
	countData := make([]opts.BarData, len(shares))
	drawData := make([]opts.BarData, len(shares))
	total := 0
	for i, s := range shares {
		countData[i] = opts.BarData{Value: s.Count}
		drawData[i] = opts.BarData{Value: s.Draw}
		total += s.Count
	}

	countBar := charts.NewBar()
	countBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Candidates per label", Subtitle: fmt.Sprintf("labels=%d candidates=%d", len(shares), total)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "label"}),
	)
	countBar.SetXAxis(names).
		AddSeries("candidates", countData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	drawBar := charts.NewBar()
	drawBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Draw probability per label"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "label"}),
	)
	drawBar.SetXAxis(names).AddSeries("draws", drawData)

	page := components.NewPage()
	page.PageTitle = "Label weights"
	page.AddCharts(countBar, drawBar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render weights chart: %w", err)
	}
	return nil
}
