// Package runstore persists finished pipeline runs so their explanations can
// be re-plotted or shared without reclustering.
package runstore

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/gam-cli/internal/explain"
	"github.com/KaramelBytes/gam-cli/internal/gam"
	"github.com/KaramelBytes/gam-cli/internal/utils"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Record is a finished run persisted on disk.
type Record struct {
	ID            string      `json:"id" yaml:"id"`
	CreatedAt     time.Time   `json:"created_at" yaml:"created_at"`
	Source        string      `json:"source" yaml:"source"`
	K             int         `json:"k" yaml:"k"`
	Distance      string      `json:"distance" yaml:"distance"`
	Normalization string      `json:"normalization" yaml:"normalization"`
	Seed          int64       `json:"seed" yaml:"seed"`
	Labels        []string    `json:"labels" yaml:"labels"`
	Explanations  explain.Set `json:"explanations" yaml:"explanations"`
	Sizes         []int       `json:"sizes" yaml:"sizes"`
	Medoids       []int       `json:"medoids" yaml:"medoids"`
	MedoidIDs     []string    `json:"medoid_ids,omitempty" yaml:"medoid_ids,omitempty"`
	Assignment    []int       `json:"assignment,omitempty" yaml:"assignment,omitempty"`
	Cost          float64     `json:"cost" yaml:"cost"`
	Silhouette    float64     `json:"silhouette" yaml:"silhouette"`
	Iterations    int         `json:"iterations" yaml:"iterations"`
	Converged     bool        `json:"converged" yaml:"converged"`
	Images        []string    `json:"images,omitempty" yaml:"images,omitempty"`
}

// FromGAM captures the artifacts of an explained pipeline.
func FromGAM(g *gam.GAM) (*Record, error) {
	if g.State() < gam.Explained {
		return nil, fmt.Errorf("pipeline is %s, nothing to record", g.State())
	}
	cfg := g.Config()
	res := g.Result()
	m := g.Matrix()
	r := &Record{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Source:        m.Source,
		K:             cfg.K,
		Distance:      cfg.Distance,
		Normalization: cfg.Normalization,
		Seed:          cfg.Seed,
		Labels:        append([]string(nil), m.Labels...),
		Explanations:  g.Explanations(),
		Sizes:         g.Sizes(),
		Medoids:       res.Medoids,
		Assignment:    res.Assignment,
		Cost:          res.Cost,
		Silhouette:    g.Silhouette(),
		Iterations:    res.Iterations,
		Converged:     res.Converged,
	}
	for _, i := range res.Medoids {
		r.MedoidIDs = append(r.MedoidIDs, m.SampleIDs[i])
	}
	return r, nil
}

// Save writes the record in the format implied by the path extension:
// .json (default), .yaml/.yml, .csv or .md. CSV and Markdown are one-way
// exports; Load only reads JSON and YAML.
func (r *Record) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch utils.Ext(path) {
	case "yaml", "yml":
		data, err = yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
	case "csv":
		data, err = r.csv()
	case "md", "markdown":
		data = []byte(r.Markdown())
	default:
		data, err = utils.PrettyJSON(r)
	}
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}

// Load reads a record saved as JSON or YAML.
func Load(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run record not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run record: %w", err)
	}
	var r Record
	switch utils.Ext(path) {
	case "yaml", "yml":
		err = yaml.Unmarshal(b, &r)
	case "json", "":
		err = json.Unmarshal(b, &r)
	default:
		return nil, fmt.Errorf("run record %s: unsupported format (use .json or .yaml)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse run record: %w", err)
	}
	if len(r.Explanations) == 0 {
		return nil, fmt.Errorf("run record %s has no explanations", path)
	}
	return &r, nil
}

// csv flattens explanations to one row per (cluster, feature).
func (r *Record) csv() ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"cluster", "size", "rank", "feature", "weight"})
	for id, e := range r.Explanations {
		size := ""
		if id < len(r.Sizes) {
			size = strconv.Itoa(r.Sizes[id])
		}
		for rank, p := range e {
			_ = w.Write([]string{
				strconv.Itoa(id),
				size,
				strconv.Itoa(rank + 1),
				p.Label,
				strconv.FormatFloat(p.Weight, 'g', -1, 64),
			})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return []byte(b.String()), nil
}

// Markdown renders a run summary followed by the explanation tables.
func (r *Record) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN SUMMARY]\n")
	if r.ID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", r.ID))
	}
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Source))
	}
	b.WriteString(fmt.Sprintf("k: %d, distance: %s, normalization: %s\n", r.K, r.Distance, r.Normalization))
	b.WriteString(fmt.Sprintf("Cost: %.4g, silhouette: %.3f, iterations: %d", r.Cost, r.Silhouette, r.Iterations))
	if !r.Converged {
		b.WriteString(" (not converged)")
	}
	b.WriteString("\n\n")
	b.WriteString(r.Explanations.Markdown(0, r.Sizes))
	return b.String()
}
