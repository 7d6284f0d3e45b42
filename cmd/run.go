package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/attribution"
	cfgpkg "github.com/KaramelBytes/gam-cli/internal/config"
	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/KaramelBytes/gam-cli/internal/gam"
	"github.com/KaramelBytes/gam-cli/internal/render"
	"github.com/KaramelBytes/gam-cli/internal/runstore"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var (
	runK             int
	runDistance      string
	runInitMedoids   string
	runInit          string
	runSeed          int64
	runMaxIter       int
	runNormalization string
	runRaw           bool
	runIDColumn      string
	runDelimiter     string
	runDecimal       string
	runSheetName     string
	runSheetIndex    int
	runMaxRows       int
	runNumFeatures   int
	runOutput        string
	runLayout        string
	runFormat        string
	runDisplay       bool
	runSaveRun       string
	runExport        string
	runNoPlot        bool
)

// viewer opens rendered files for --display; nil uses the system viewer.
var viewer render.Viewer

var runPipelineCmd = &cobra.Command{
	Use:   "run <attributions.csv|.tsv|.xlsx>",
	Short: "Cluster local attributions into global explanations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		gcfg, err := pipelineConfig(cmd, c, args[0])
		if err != nil {
			return err
		}
		r, err := newRenderer(cmd, c, runLayout, runFormat)
		if err != nil {
			return err
		}
		g := gam.New(gcfg, gam.WithLogger(log()), gam.WithRenderer(r))
		if err := g.Run(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		rows, cols := g.Matrix().Dims()
		fmt.Fprintf(out, "✓ Loaded %d samples × %d features from %s\n", rows, cols, args[0])
		if d := g.Degenerate(); len(d) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %d sample(s) had no attribution mass and were given uniform weights\n", len(d))
		}
		res := g.Result()
		fmt.Fprintf(out, "✓ Clustered into %d explanations (distance %s, %d iterations, silhouette %.3f)\n",
			len(g.Explanations()), gcfg.Distance, res.Iterations, g.Silhouette())
		if !res.Converged {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ k-medoids hit --max-iter %d before converging\n", gcfg.MaxIter)
		}

		n := numFeatures(cmd, c, runNumFeatures, cols)
		fmt.Fprintln(out)
		fmt.Fprintln(out, render.TerminalBars(g.Explanations(), n, g.Sizes()))
		fmt.Fprintln(out)

		var images []string
		if !runNoPlot {
			base := runOutput
			if base == "" {
				base = filepath.Join(c.OutputDir, "explanation")
			}
			images, err = g.Plot(n, base, runDisplay)
			if err != nil {
				return err
			}
			for _, p := range images {
				fmt.Fprintf(out, "✓ Wrote %s\n", p)
			}
		}

		if runSaveRun == "" && runExport == "" {
			return nil
		}
		rec, err := runstore.FromGAM(g)
		if err != nil {
			return err
		}
		rec.Images = images
		for _, path := range []string{runPath(c, runSaveRun), runExport} {
			if path == "" {
				continue
			}
			if err := rec.Save(path); err != nil {
				return fmt.Errorf("save run: %w", err)
			}
			fmt.Fprintf(out, "✓ Saved run %s to %s\n", rec.ID, path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runPipelineCmd)
	f := runPipelineCmd.Flags()
	f.IntVarP(&runK, "k", "k", 2, "number of explanations (clusters)")
	f.StringVar(&runDistance, "distance", "l1", "distance metric: l1, euclidean, jensen_shannon, hellinger, spearman")
	f.StringVar(&runInitMedoids, "init-medoids", "", "comma-separated 0-based rows to start from, one per cluster")
	f.StringVar(&runInit, "init", "build", "medoid initialization when --init-medoids is unset: build or random")
	f.Int64Var(&runSeed, "seed", 42, "seed for --init random")
	f.IntVar(&runMaxIter, "max-iter", 100, "maximum k-medoids iterations")
	f.StringVar(&runNormalization, "normalization", "shift", "how negative attributions are handled: shift or abs")
	f.BoolVar(&runRaw, "raw", false, "cluster raw attributions instead of normalized ones")
	f.StringVar(&runIDColumn, "id-column", "", "name of a sample id column to exclude from features")
	f.StringVar(&runDelimiter, "delimiter", "", "field delimiter (default: sniffed from the file)")
	f.StringVar(&runDecimal, "decimal", ".", "decimal separator: '.' or ','")
	f.StringVar(&runSheetName, "sheet-name", "", "XLSX sheet name")
	f.IntVar(&runSheetIndex, "sheet-index", 1, "XLSX sheet index (1-based) when --sheet-name is unset")
	f.IntVar(&runMaxRows, "max-rows", 0, "read at most this many samples (0 = all)")
	f.IntVarP(&runNumFeatures, "num-features", "n", 5, "features shown per explanation")
	f.StringVarP(&runOutput, "output", "o", "", "output path base for charts (default <output_dir>/explanation)")
	f.StringVar(&runLayout, "layout", "per-cluster", "chart layout: per-cluster or grid")
	f.StringVar(&runFormat, "format", "png", "image format: png, svg, pdf, eps, jpg, tif")
	f.BoolVar(&runDisplay, "display", false, "open the charts after writing them")
	f.StringVar(&runSaveRun, "save-run", "", "save the run record (.json or .yaml) for `gam plot`; bare names go under runs_dir")
	f.StringVar(&runExport, "export", "", "export explanations (.json, .yaml, .csv or .md)")
	f.BoolVar(&runNoPlot, "no-plot", false, "skip chart rendering")
}

// pipelineConfig merges config-file defaults with the flags that were set.
func pipelineConfig(cmd *cobra.Command, c *cfgpkg.Global, path string) (gam.Config, error) {
	f := cmd.Flags()
	g := gam.DefaultConfig(path)
	g.K, g.Distance, g.Init = c.K, c.Distance, c.Init
	g.Seed, g.MaxIter, g.Normalization = c.Seed, c.MaxIter, c.Normalization
	g.Parallelism = c.Parallelism
	if f.Changed("k") {
		g.K = runK
	}
	if f.Changed("distance") {
		g.Distance = runDistance
	}
	if f.Changed("init") {
		g.Init = runInit
	}
	if f.Changed("seed") {
		g.Seed = runSeed
	}
	if f.Changed("max-iter") {
		g.MaxIter = runMaxIter
	}
	if f.Changed("normalization") {
		g.Normalization = runNormalization
	}
	g.UseNormalized = !runRaw
	if runInitMedoids != "" {
		medoids, err := parseIndices(runInitMedoids)
		if err != nil {
			return g, err
		}
		g.InitMedoids = medoids
	}

	load := attribution.DefaultLoadOptions()
	load.IDColumn = c.IDColumn
	if f.Changed("id-column") {
		load.IDColumn = runIDColumn
	}
	delim := c.Delimiter
	if f.Changed("delimiter") {
		delim = runDelimiter
	}
	if delim != "" {
		r, err := singleRune("delimiter", delim)
		if err != nil {
			return g, err
		}
		load.Delimiter = r
	}
	dec := c.DecimalSeparator
	if f.Changed("decimal") {
		dec = runDecimal
	}
	if dec != "" {
		r, err := singleRune("decimal", dec)
		if err != nil {
			return g, err
		}
		load.DecimalSeparator = r
		if r == ',' {
			load.ThousandsSeparator = '.'
		}
	}
	load.SheetName = runSheetName
	load.SheetIndex = runSheetIndex
	load.MaxRows = runMaxRows
	g.Load = load

	return g, g.Validate()
}

func parseIndices(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errs.Configf("init_medoids", s, "expected comma-separated integers")
		}
		out = append(out, i)
	}
	return out, nil
}

func singleRune(field, s string) (rune, error) {
	if s == `\t` || strings.EqualFold(s, "tab") {
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, errs.Configf(field, s, "must be a single character")
	}
	return r[0], nil
}

// numFeatures returns the flag value when set, otherwise the configured
// default capped at the available features.
func numFeatures(cmd *cobra.Command, c *cfgpkg.Global, flagValue, available int) int {
	if cmd.Flags().Changed("num-features") {
		return flagValue
	}
	n := c.NumFeatures
	if n <= 0 || n > available {
		n = available
	}
	return n
}

// runPath places a bare run file name under the configured runs directory.
func runPath(c *cfgpkg.Global, name string) string {
	if name == "" || c.RunsDir == "" || filepath.Base(name) != name {
		return name
	}
	return filepath.Join(c.RunsDir, name)
}

func newRenderer(cmd *cobra.Command, c *cfgpkg.Global, layout, format string) (*render.Renderer, error) {
	f := cmd.Flags()
	if !f.Changed("layout") {
		layout = c.Layout
	}
	if !f.Changed("format") {
		format = c.Format
	}
	l, err := render.ParseLayout(layout)
	if err != nil {
		return nil, err
	}
	return render.New(render.Options{
		Layout: l,
		Format: format,
		Width:  vg.Length(c.Width) * vg.Inch,
		Height: vg.Length(c.Height) * vg.Inch,
		Viewer: viewer,
	}), nil
}
