package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure. Values seed the defaults of `gam run` and
// `gam plot`; command-line flags override them.
type Global struct {
	K             int    `mapstructure:"k" yaml:"k"`
	Distance      string `mapstructure:"distance" yaml:"distance"`
	Init          string `mapstructure:"init" yaml:"init"`
	Seed          int64  `mapstructure:"seed" yaml:"seed"`
	MaxIter       int    `mapstructure:"max_iter" yaml:"max_iter"`
	Normalization string `mapstructure:"normalization" yaml:"normalization"`
	Parallelism   int    `mapstructure:"parallelism" yaml:"parallelism"`

	// Input parsing
	Delimiter        string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	IDColumn         string `mapstructure:"id_column" yaml:"id_column"`

	// Output
	NumFeatures int     `mapstructure:"num_features" yaml:"num_features"`
	OutputDir   string  `mapstructure:"output_dir" yaml:"output_dir"`
	Layout      string  `mapstructure:"layout" yaml:"layout"`
	Format      string  `mapstructure:"format" yaml:"format"`
	Width       float64 `mapstructure:"width_in" yaml:"width_in"`
	Height      float64 `mapstructure:"height_in" yaml:"height_in"`
	RunsDir     string  `mapstructure:"runs_dir" yaml:"runs_dir"`
}

// Dir returns ~/.gam, the home of the default config file and saved runs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".gam"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.gam/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (GAM_*) > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("GAM")
	v.AutomaticEnv()

	v.SetDefault("k", 2)
	v.SetDefault("distance", "l1")
	v.SetDefault("init", "build")
	v.SetDefault("seed", 42)
	v.SetDefault("max_iter", 100)
	v.SetDefault("normalization", "shift")
	v.SetDefault("parallelism", 0)
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", ".")
	v.SetDefault("id_column", "")
	v.SetDefault("num_features", 5)
	v.SetDefault("output_dir", ".")
	v.SetDefault("layout", "per-cluster")
	v.SetDefault("format", "png")
	v.SetDefault("width_in", 5.0)
	v.SetDefault("height_in", 3.0)
	v.SetDefault("runs_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.RunsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}
