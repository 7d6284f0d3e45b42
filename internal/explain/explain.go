// Package explain turns cluster medoids into ranked global explanations and
// counts how many samples each explanation covers.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/errs"
)

// Pair is one feature and its weight within an explanation.
type Pair struct {
	Label  string  `json:"label" yaml:"label"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Explanation is a medoid's attribution vector as (label, weight) pairs,
// sorted by weight descending. Equal weights keep column order.
type Explanation []Pair

// Set holds one explanation per cluster, indexed by cluster id.
type Set []Explanation

// Build pairs vec with labels and sorts the pairs by weight, highest first.
func Build(vec []float64, labels []string) (Explanation, error) {
	if len(vec) != len(labels) {
		return nil, errs.Configf("feature_labels", len(labels), "medoid has %d weights", len(vec))
	}
	e := make(Explanation, len(vec))
	for i, w := range vec {
		e[i] = Pair{Label: labels[i], Weight: w}
	}
	sort.SliceStable(e, func(i, j int) bool { return e[i].Weight > e[j].Weight })
	return e, nil
}

// BuildSet builds one explanation per center in cluster id order.
func BuildSet(centers [][]float64, labels []string) (Set, error) {
	set := make(Set, 0, len(centers))
	for id, c := range centers {
		e, err := Build(c, labels)
		if err != nil {
			return nil, fmt.Errorf("explanation %d: %w", id, err)
		}
		set = append(set, e)
	}
	return set, nil
}

// Top returns the n highest-weighted pairs of e.
func Top(e Explanation, n int) (Explanation, error) {
	if n < 1 || n > len(e) {
		return nil, errs.Configf("num_features", n, "must be between 1 and %d", len(e))
	}
	return append(Explanation(nil), e[:n]...), nil
}

// Sorted returns a copy of e ordered by weight descending. Explanations
// built here are already sorted; injected ones may not be.
func Sorted(e Explanation) Explanation {
	out := append(Explanation(nil), e...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// Labels returns the feature names in ranked order.
func (e Explanation) Labels() []string {
	out := make([]string, len(e))
	for i, p := range e {
		out[i] = p.Label
	}
	return out
}

// Weights returns the weights in ranked order.
func (e Explanation) Weights() []float64 {
	out := make([]float64, len(e))
	for i, p := range e {
		out[i] = p.Weight
	}
	return out
}

// Features returns the shortest explanation length in the set, the largest
// num_features every explanation can satisfy.
func (s Set) Features() int {
	if len(s) == 0 {
		return 0
	}
	n := len(s[0])
	for _, e := range s[1:] {
		n = min(n, len(e))
	}
	return n
}

// Markdown renders the top n pairs of every explanation as a table per
// cluster. sizes may be nil; n <= 0 means every feature.
func (s Set) Markdown(n int, sizes []int) string {
	var b strings.Builder
	b.WriteString("[GLOBAL EXPLANATIONS]\n")
	b.WriteString(fmt.Sprintf("Clusters: %d\n", len(s)))
	for id, e := range s {
		b.WriteString("\n")
		if id < len(sizes) {
			b.WriteString(fmt.Sprintf("## Explanation %d (n=%d)\n\n", id, sizes[id]))
		} else {
			b.WriteString(fmt.Sprintf("## Explanation %d\n\n", id))
		}
		b.WriteString("| Rank | Feature | Weight |\n|---:|---|---:|\n")
		limit := len(e)
		if n > 0 && n < limit {
			limit = n
		}
		for i, p := range e[:limit] {
			b.WriteString(fmt.Sprintf("| %d | %s | %.4f |\n", i+1, safeCell(p.Label), p.Weight))
		}
	}
	return b.String()
}

func safeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
