package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/gam-cli/internal/attribution"
	"github.com/KaramelBytes/gam-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/gam-cli/internal/config"
	"github.com/KaramelBytes/gam-cli/internal/render"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set GAM defaults",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "k: %d\n", c.K)
		fmt.Fprintf(out, "distance: %s\n", c.Distance)
		fmt.Fprintf(out, "init: %s\n", c.Init)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "max_iter: %d\n", c.MaxIter)
		fmt.Fprintf(out, "normalization: %s\n", c.Normalization)
		if c.Parallelism > 0 {
			fmt.Fprintf(out, "parallelism: %d\n", c.Parallelism)
		}
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		fmt.Fprintf(out, "decimal_separator: %s\n", c.DecimalSeparator)
		if c.IDColumn != "" {
			fmt.Fprintf(out, "id_column: %s\n", c.IDColumn)
		}
		fmt.Fprintf(out, "num_features: %d\n", c.NumFeatures)
		fmt.Fprintf(out, "output_dir: %s\n", c.OutputDir)
		fmt.Fprintf(out, "layout: %s\n", c.Layout)
		fmt.Fprintf(out, "format: %s\n", c.Format)
		fmt.Fprintf(out, "width_in: %.2f\n", c.Width)
		fmt.Fprintf(out, "height_in: %.2f\n", c.Height)
		fmt.Fprintf(out, "runs_dir: %s\n", c.RunsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := settings()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "k":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for k: %v (must be >= 1)", val)
		}
		c.K = i
	case "distance":
		if _, err := cluster.LookupDistance(val); err != nil {
			return err
		}
		c.Distance = val
	case "init":
		s, err := cluster.ParseInitStrategy(val)
		if err != nil {
			return err
		}
		c.Init = s.String()
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "max_iter":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for max_iter: %v", val)
		}
		c.MaxIter = i
	case "normalization":
		m, err := attribution.ParseNormalizeMode(val)
		if err != nil {
			return err
		}
		c.Normalization = m.String()
	case "parallelism":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for parallelism: %v", val)
		}
		c.Parallelism = i
	case "delimiter":
		if _, err := singleRune("delimiter", val); err != nil {
			return err
		}
		c.Delimiter = val
	case "decimal_separator":
		if val != "." && val != "," {
			return fmt.Errorf("invalid decimal_separator: %s (use . or ,)", val)
		}
		c.DecimalSeparator = val
	case "id_column":
		c.IDColumn = val
	case "num_features":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for num_features: %v", val)
		}
		c.NumFeatures = i
	case "output_dir":
		c.OutputDir = val
	case "layout":
		l, err := render.ParseLayout(val)
		if err != nil {
			return err
		}
		c.Layout = l.String()
	case "format":
		c.Format = val
	case "width_in", "height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		if key == "width_in" {
			c.Width = f
		} else {
			c.Height = f
		}
	case "runs_dir":
		c.RunsDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
