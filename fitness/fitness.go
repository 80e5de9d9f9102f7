// Package fitness turns per-individual simulation metrics into the
// single scalar the evolution driver ranks on.
package fitness

import (
	"math"

	"github.com/brinefold/vivarium/genome"
)

// DisqualifiedFitness is the sentinel applied to disqualified
// individuals; it always sorts last.
const DisqualifiedFitness = -10000

// Weights are the non-negative coefficients displacement, mean speed,
// and mean upright-ness are combined with.
type Weights struct {
	Displacement float64
	Speed        float64
	Upright      float64
}

// DefaultWeights are the stock displacement/speed/upright weights.
var DefaultWeights = Weights{Displacement: 0.5, Speed: 1.0, Upright: 1.0}

// Score computes one individual's fitness from its recorded metrics.
// NaN metric fields are treated as 0; a disqualified individual always
// receives DisqualifiedFitness regardless of its other metrics.
func Score(m genome.Metrics, w Weights) float64 {
	if m.Disqualified {
		return DisqualifiedFitness
	}
	return w.Displacement*clean(m.Displacement) +
		w.Speed*clean(m.MeanSpeed) +
		w.Upright*clean(m.MeanUpright)
}

func clean(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// ScoreAll scores every individual via Score and writes the result into
// each Individual's Fitness field, returning the same slice.
func ScoreAll(population []genome.Individual, metrics []genome.Metrics, w Weights) []genome.Individual {
	for i := range population {
		m := genome.Metrics{}
		if i < len(metrics) {
			m = metrics[i]
		}
		population[i].Metrics = &m
		f := Score(m, w)
		population[i].Fitness = &f
	}
	return population
}
