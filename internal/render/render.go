// Package render draws global explanations as horizontal bar charts.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/KaramelBytes/gam-cli/internal/explain"
	"github.com/KaramelBytes/gam-cli/internal/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgeps"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Layout selects how explanations are arranged into files.
type Layout int

const (
	// PerCluster writes one image per explanation: {base}_{id}.{format}.
	PerCluster Layout = iota
	// Grid writes every explanation as a panel of one image: {base}.{format}.
	Grid
)

func (l Layout) String() string {
	if l == Grid {
		return "grid"
	}
	return "per-cluster"
}

// ParseLayout maps a flag value to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per-cluster", "per_cluster", "separate":
		return PerCluster, nil
	case "grid", "subplots":
		return Grid, nil
	}
	return 0, errs.Configf("layout", s, "use per-cluster or grid")
}

var formats = map[string]bool{
	"png": true, "svg": true, "pdf": true, "eps": true,
	"jpg": true, "jpeg": true, "tif": true, "tiff": true,
}

// Options configures a Renderer. Zero values select defaults.
type Options struct {
	Layout Layout
	// Format is the image format and file extension; default png.
	Format string
	// Width and Height size a single chart (a grid panel in Grid layout).
	Width, Height vg.Length
	// Title prefixes each chart title; default "Explanation".
	Title string
	// Sizes[id] is appended to chart titles as "(n=...)" when it has one
	// entry per explanation.
	Sizes []int
	// Viewer opens written files when Render is called with display=true.
	// Nil uses the system viewer.
	Viewer Viewer
}

// Renderer writes explanation charts to disk.
type Renderer struct {
	opt Options
}

// New returns a Renderer with defaults filled in.
func New(opt Options) *Renderer {
	if opt.Format == "" {
		opt.Format = "png"
	}
	opt.Format = strings.ToLower(strings.TrimPrefix(opt.Format, "."))
	if opt.Width <= 0 {
		opt.Width = 5 * vg.Inch
	}
	if opt.Height <= 0 {
		opt.Height = 3 * vg.Inch
	}
	if opt.Title == "" {
		opt.Title = "Explanation"
	}
	if opt.Viewer == nil {
		opt.Viewer = SystemViewer{}
	}
	return &Renderer{opt: opt}
}

// Options returns the effective options.
func (r *Renderer) Options() Options { return r.opt }

// WithSizes returns a copy of r that titles charts with the given sizes.
func (r *Renderer) WithSizes(sizes []int) *Renderer {
	opt := r.opt
	opt.Sizes = append([]int(nil), sizes...)
	return &Renderer{opt: opt}
}

// Render charts the top numFeatures pairs of every explanation in set and
// returns the written paths. When display is true each file is handed to the
// viewer after all files are written.
func (r *Renderer) Render(set explain.Set, numFeatures int, base string, display bool) ([]string, error) {
	if len(set) == 0 {
		return nil, errs.Configf("explanations", nil, "nothing to plot")
	}
	if !formats[r.opt.Format] {
		return nil, errs.Configf("format", r.opt.Format, "use png, svg, pdf, eps, jpg or tif")
	}
	if strings.TrimSpace(base) == "" {
		return nil, errs.Configf("output", base, "empty output path")
	}
	plots := make([]*plot.Plot, len(set))
	for id, e := range set {
		top, err := explain.Top(explain.Sorted(e), numFeatures)
		if err != nil {
			return nil, fmt.Errorf("explanation %d: %w", id, err)
		}
		p, err := r.chart(id, len(set), top)
		if err != nil {
			return nil, &errs.RenderError{Path: base, Err: err}
		}
		plots[id] = p
	}
	if err := utils.EnsureParentDir(base); err != nil {
		return nil, &errs.RenderError{Path: filepath.Dir(base), Err: err}
	}

	var paths []string
	if r.opt.Layout == Grid {
		path := fmt.Sprintf("%s.%s", base, r.opt.Format)
		if err := r.saveGrid(plots, path); err != nil {
			return nil, &errs.RenderError{Path: path, Err: err}
		}
		paths = append(paths, path)
	} else {
		for id, p := range plots {
			path := fmt.Sprintf("%s_%d.%s", base, id, r.opt.Format)
			if err := p.Save(r.opt.Width, r.opt.Height, path); err != nil {
				return nil, &errs.RenderError{Path: path, Err: err}
			}
			paths = append(paths, path)
		}
	}

	if display {
		for _, path := range paths {
			if err := r.opt.Viewer.Open(path); err != nil {
				return paths, &errs.RenderError{Path: path, Err: fmt.Errorf("open viewer: %w", err)}
			}
		}
	}
	return paths, nil
}

func (r *Renderer) title(id, count int) string {
	if len(r.opt.Sizes) == count {
		return fmt.Sprintf("%s %d (n=%d)", r.opt.Title, id, r.opt.Sizes[id])
	}
	return fmt.Sprintf("%s %d", r.opt.Title, id)
}

// chart draws e as horizontal bars with the highest weight on top.
func (r *Renderer) chart(id, count int, e explain.Explanation) (*plot.Plot, error) {
	n := len(e)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, pair := range e {
		values[n-1-i] = pair.Weight
		names[n-1-i] = pair.Label
	}

	p := plot.New()
	p.Title.Text = r.title(id, count)
	p.X.Label.Text = "Attribution weight"
	p.X.Min = 0

	barWidth := r.opt.Height / vg.Length(2*n+2)
	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return nil, fmt.Errorf("bar chart %d: %w", id, err)
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(id)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

// saveGrid lays the plots out in rows of up to three panels on one canvas.
func (r *Renderer) saveGrid(plots []*plot.Plot, path string) error {
	cols := min(3, len(plots))
	rows := (len(plots) + cols - 1) / cols
	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
	}
	for id, p := range plots {
		grid[id/cols][id%cols] = p
	}

	w := r.opt.Width * vg.Length(cols)
	h := r.opt.Height * vg.Length(rows)
	c, err := draw.NewFormattedCanvas(w, h, r.opt.Format)
	if err != nil {
		return err
	}
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(2), PadBottom: vg.Points(2),
		PadLeft: vg.Points(2), PadRight: vg.Points(2),
	}
	canvases := plot.Align(grid, tiles, draw.New(c))
	for i := range grid {
		for j, p := range grid[i] {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
