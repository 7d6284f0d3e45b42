package gam

import (
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/attribution"
	"github.com/KaramelBytes/gam-cli/internal/cluster"
	"github.com/KaramelBytes/gam-cli/internal/errs"
)

// Config holds the construction parameters of a pipeline.
type Config struct {
	// AttributionsPath is the CSV/TSV/XLSX file of local attributions.
	AttributionsPath string
	// K is the number of explanations to produce.
	K int
	// Distance names the metric; see cluster.DistanceNames.
	Distance string
	// InitMedoids optionally fixes the starting medoids (0-based rows).
	InitMedoids []int
	// Init is "build" or "random" and applies when InitMedoids is empty.
	Init    string
	Seed    int64
	MaxIter int
	// Normalization is "shift" or "abs".
	Normalization string
	// UseNormalized clusters the normalized matrix. When false the raw
	// attributions are clustered and only the medoids are normalized.
	UseNormalized bool
	// Parallelism bounds distance matrix workers; 0 means GOMAXPROCS.
	Parallelism int
	Load        attribution.LoadOptions
}

// DefaultConfig returns the pipeline defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		AttributionsPath: path,
		K:                2,
		Distance:         cluster.DefaultDistance,
		Init:             cluster.InitBuild.String(),
		Seed:             42,
		MaxIter:          100,
		Normalization:    attribution.ShiftMode.String(),
		UseNormalized:    true,
		Load:             attribution.DefaultLoadOptions(),
	}
}

// Validate reports the first invalid parameter as a ConfigurationError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AttributionsPath) == "" {
		return errs.Configf("attributions_path", nil, "required")
	}
	if c.K < 1 {
		return errs.Configf("k", c.K, "must be at least 1")
	}
	if c.MaxIter < 0 {
		return errs.Configf("max_iter", c.MaxIter, "must not be negative")
	}
	if len(c.InitMedoids) > 0 && len(c.InitMedoids) != c.K {
		return errs.Configf("init_medoids", c.InitMedoids, "need exactly %d indices (one per cluster)", c.K)
	}
	if _, err := cluster.LookupDistance(c.Distance); err != nil {
		return err
	}
	if _, err := cluster.ParseInitStrategy(c.Init); err != nil {
		return err
	}
	if _, err := attribution.ParseNormalizeMode(c.Normalization); err != nil {
		return err
	}
	return nil
}

func (c Config) clusterOptions() (cluster.Options, error) {
	dist, err := cluster.LookupDistance(c.Distance)
	if err != nil {
		return cluster.Options{}, err
	}
	strategy, err := cluster.ParseInitStrategy(c.Init)
	if err != nil {
		return cluster.Options{}, err
	}
	return cluster.Options{
		K:           c.K,
		Distance:    dist,
		InitMedoids: c.InitMedoids,
		Init:        strategy,
		Seed:        c.Seed,
		MaxIter:     c.MaxIter,
		Parallelism: c.Parallelism,
	}, nil
}
