package evolve

import (
	"sort"
	"strconv"

	"github.com/brinefold/vivarium/genome"
	"github.com/brinefold/vivarium/rng"
)

// rankDescending sorts population by fitness, highest first. Disqualified
// individuals (fitness.DisqualifiedFitness) naturally sort last. The sort
// is stable so ties preserve population order, keeping reproduction
// deterministic for a given rng stream.
func rankDescending(population []genome.Individual) []genome.Individual {
	ranked := make([]genome.Individual, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		return fitnessOf(ranked[i]) > fitnessOf(ranked[j])
	})
	return ranked
}

func fitnessOf(ind genome.Individual) float64 {
	if ind.Fitness == nil {
		return 0
	}
	return *ind.Fitness
}

func meanFitness(population []genome.Individual) float64 {
	sum, n := 0.0, 0
	for _, ind := range population {
		if ind.Metrics != nil && ind.Metrics.Disqualified {
			continue
		}
		sum += fitnessOf(ind)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// tournamentSelect picks one winner from a random sample of size 2 or 3
// chosen by r itself, returning the fittest of the sample.
func tournamentSelect(ranked []genome.Individual, r *rng.Source) genome.Individual {
	size := 2
	if r.Bool(0.5) {
		size = 3
	}
	if size > len(ranked) {
		size = len(ranked)
	}
	best := ranked[r.Int(len(ranked))]
	for i := 1; i < size; i++ {
		cand := ranked[r.Int(len(ranked))]
		if fitnessOf(cand) > fitnessOf(best) {
			best = cand
		}
	}
	return best
}

// reproduce builds the next generation: the single best individual
// survives unchanged (elitism), every other slot is filled by mutating
// a clone of a tournament winner.
func reproduce(ranked []genome.Individual, cfg Config, source *rng.Source) []genome.Individual {
	next := make([]genome.Individual, len(ranked))
	if len(ranked) == 0 {
		return next
	}
	next[0] = ranked[0]

	selectSrc := source.Split("select")
	mutateSrc := source.Split("mutate")
	for i := 1; i < len(ranked); i++ {
		idx := strconv.Itoa(i)
		parent := tournamentSelect(ranked, selectSrc.Split("t"+idx))
		childGenome := MutateGenome(parent.Genome, cfg.MorphMutation, cfg.ControllerMutation, mutateSrc.Split("m"+idx))
		next[i] = genome.Individual{
			ID:     parent.ID + "-" + idx,
			Genome: childGenome,
		}
	}
	return next
}
