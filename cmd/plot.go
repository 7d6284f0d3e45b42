package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/gam"
	"github.com/KaramelBytes/gam-cli/internal/runstore"
	"github.com/spf13/cobra"
)

var (
	plotNumFeatures int
	plotOutput      string
	plotLayout      string
	plotFormat      string
	plotDisplay     bool
)

var plotCmd = &cobra.Command{
	Use:   "plot <run.json|run.yaml>",
	Short: "Render the explanations of a saved run",
	Long:  "Render the explanations of a saved run. A bare file name that does not exist\nin the working directory is looked up in runs_dir.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		path := args[0]
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = runPath(c, path)
		}
		rec, err := runstore.Load(path)
		if err != nil {
			return err
		}
		r, err := newRenderer(cmd, c, plotLayout, plotFormat)
		if err != nil {
			return err
		}
		g := gam.New(gam.Config{AttributionsPath: rec.Source, K: rec.K}, gam.WithLogger(log()), gam.WithRenderer(r))
		g.SetExplanations(rec.Explanations, rec.Sizes)

		base := plotOutput
		if base == "" {
			stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			base = filepath.Join(c.OutputDir, stem)
		}
		n := numFeatures(cmd, c, plotNumFeatures, rec.Explanations.Features())
		paths, err := g.Plot(n, base, plotDisplay)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	f := plotCmd.Flags()
	f.IntVarP(&plotNumFeatures, "num-features", "n", 5, "features shown per explanation")
	f.StringVarP(&plotOutput, "output", "o", "", "output path base (default <output_dir>/<run name>)")
	f.StringVar(&plotLayout, "layout", "per-cluster", "chart layout: per-cluster or grid")
	f.StringVar(&plotFormat, "format", "png", "image format: png, svg, pdf, eps, jpg, tif")
	f.BoolVar(&plotDisplay, "display", false, "open the charts after writing them")
}
