// Package gam runs the global attribution mapping pipeline: load local
// attributions, normalize them, group them with k-medoids, and describe each
// group by its medoid as a ranked global explanation.
package gam

import (
	"fmt"

	"github.com/KaramelBytes/gam-cli/internal/attribution"
	"github.com/KaramelBytes/gam-cli/internal/cluster"
	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/KaramelBytes/gam-cli/internal/explain"
	"github.com/KaramelBytes/gam-cli/internal/render"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// State is the furthest pipeline stage completed.
type State int

const (
	Unloaded State = iota
	Loaded
	Normalized
	Clustered
	Explained
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Normalized:
		return "normalized"
	case Clustered:
		return "clustered"
	case Explained:
		return "explained"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// GAM holds one pipeline run. It is not safe for concurrent use.
type GAM struct {
	cfg      Config
	log      *zap.Logger
	renderer *render.Renderer

	state        State
	matrix       *attribution.Matrix
	normalized   *mat.Dense
	degenerate   []int
	result       *cluster.Result
	explanations explain.Set
	sizes        []int
	silhouette   float64
}

// Option customizes a GAM.
type Option func(*GAM)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *GAM) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRenderer replaces the default PNG renderer used by Plot.
func WithRenderer(r *render.Renderer) Option {
	return func(g *GAM) {
		if r != nil {
			g.renderer = r
		}
	}
}

// New returns an unloaded pipeline. cfg is validated by the first stage that
// needs it.
func New(cfg Config, opts ...Option) *GAM {
	g := &GAM{cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	if g.renderer == nil {
		g.renderer = render.New(render.Options{})
	}
	return g
}

func (g *GAM) Config() Config              { return g.cfg }
func (g *GAM) State() State                { return g.state }
func (g *GAM) Matrix() *attribution.Matrix { return g.matrix }
func (g *GAM) Normalized() *mat.Dense      { return g.normalized }
func (g *GAM) Result() *cluster.Result     { return g.result }
func (g *GAM) Explanations() explain.Set   { return g.explanations }
func (g *GAM) Sizes() []int                { return g.sizes }
func (g *GAM) Silhouette() float64         { return g.silhouette }

// Degenerate lists the rows normalization replaced with uniform weights.
func (g *GAM) Degenerate() []int { return g.degenerate }

// Assignment returns the cluster id of every sample, or nil before clustering.
func (g *GAM) Assignment() []int {
	if g.result == nil {
		return nil
	}
	return g.result.Assignment
}

// Load reads the attribution file. Earlier artifacts are discarded only when
// the load succeeds.
func (g *GAM) Load() error {
	if err := g.cfg.Validate(); err != nil {
		return err
	}
	m, err := attribution.Load(g.cfg.AttributionsPath, g.cfg.Load)
	if err != nil {
		g.log.Error("load attributions", zap.String("path", g.cfg.AttributionsPath), zap.Error(err))
		return err
	}
	rows, cols := m.Dims()
	if g.cfg.K > rows {
		return errs.Configf("k", g.cfg.K, "exceeds sample count %d", rows)
	}
	g.reset()
	g.matrix = m
	g.state = Loaded
	g.log.Info("loaded attributions",
		zap.String("path", m.Source),
		zap.Int("samples", rows),
		zap.Int("features", cols))
	return nil
}

// Normalize turns each loaded row into a distribution over features.
func (g *GAM) Normalize() error {
	if g.state < Loaded {
		return errs.Configf("state", g.state, "load attributions before normalizing")
	}
	mode, err := attribution.ParseNormalizeMode(g.cfg.Normalization)
	if err != nil {
		return err
	}
	normalized, degenerate := attribution.Normalize(g.matrix.Values, mode)
	g.clearDownstream()
	g.normalized, g.degenerate = normalized, degenerate
	g.state = Normalized
	if len(degenerate) > 0 {
		ids := make([]string, len(degenerate))
		for i, r := range degenerate {
			ids[i] = g.matrix.SampleIDs[r]
		}
		g.log.Warn("uniform weights substituted",
			zap.Strings("samples", ids),
			zap.Error(&errs.DegenerateInputError{Rows: degenerate}))
	}
	g.log.Debug("normalized attributions", zap.String("mode", mode.String()))
	return nil
}

// Cluster groups the samples, counts each group and builds one explanation
// per medoid. Earlier clustering artifacts are replaced.
func (g *GAM) Cluster() error {
	if g.state < Normalized || g.normalized == nil {
		return errs.Configf("state", g.state, "normalize attributions before clustering")
	}
	opt, err := g.cfg.clusterOptions()
	if err != nil {
		return err
	}
	data := mat.Matrix(g.normalized)
	if !g.cfg.UseNormalized {
		data = g.matrix.Values
	}
	res, err := cluster.KMedoids(data, opt)
	if err != nil {
		return err
	}
	centers := res.Centers
	if !g.cfg.UseNormalized {
		centers = g.normalizedRows(res.Medoids)
	}
	g.clearDownstream()
	g.result = res
	g.sizes = explain.Sizes(res.Assignment)
	g.silhouette = cluster.Silhouette(res.Distances, res.Assignment)
	g.state = Clustered

	set, err := explain.BuildSet(centers, g.matrix.Labels)
	if err != nil {
		return err
	}
	g.explanations = set
	g.state = Explained
	g.log.Info("clustered attributions",
		zap.Int("k", opt.K),
		zap.String("distance", g.cfg.Distance),
		zap.Ints("medoids", res.Medoids),
		zap.Ints("sizes", g.sizes),
		zap.Int("iterations", res.Iterations),
		zap.Bool("converged", res.Converged),
		zap.Float64("cost", res.Cost),
		zap.Float64("silhouette", g.silhouette))
	if !res.Converged {
		g.log.Warn("k-medoids stopped at iteration cap", zap.Int("max_iter", opt.MaxIter))
	}
	return nil
}

// Run completes whatever stages are missing and always re-clusters.
func (g *GAM) Run() error {
	if g.state < Loaded {
		if err := g.Load(); err != nil {
			return err
		}
	}
	if g.state < Normalized {
		if err := g.Normalize(); err != nil {
			return err
		}
	}
	return g.Cluster()
}

// SetExplanations installs explanations computed elsewhere, for example a
// saved run, so they can be plotted without clustering. The pipeline state
// is left alone.
func (g *GAM) SetExplanations(set explain.Set, sizes []int) {
	g.explanations = set
	g.sizes = append([]int(nil), sizes...)
}

// Plot renders the top numFeatures pairs of every explanation under base.
func (g *GAM) Plot(numFeatures int, base string, display bool) ([]string, error) {
	if len(g.explanations) == 0 {
		return nil, errs.Configf("explanations", nil, "run clustering first")
	}
	r := g.renderer
	if len(g.sizes) == len(g.explanations) {
		r = r.WithSizes(g.sizes)
	}
	paths, err := r.Render(g.explanations, numFeatures, base, display)
	if err != nil {
		g.log.Error("plot explanations", zap.String("output", base), zap.Error(err))
		return paths, err
	}
	g.log.Info("wrote explanation charts", zap.Strings("files", paths))
	return paths, nil
}

// normalizedRows returns the normalized form of the given raw rows.
func (g *GAM) normalizedRows(rows []int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = mat.Row(nil, r, g.normalized)
	}
	return out
}

func (g *GAM) clearDownstream() {
	g.result = nil
	g.explanations = nil
	g.sizes = nil
	g.silhouette = 0
}

func (g *GAM) reset() {
	g.clearDownstream()
	g.matrix = nil
	g.normalized = nil
	g.degenerate = nil
	g.state = Unloaded
}
