// Package evolve runs the construct/evaluate/rank/emit/select-reproduce
// generation loop that turns one starting genome into many generations
// of creatures.
package evolve

import (
	"context"
	"strconv"

	"github.com/brinefold/vivarium/fitness"
	"github.com/brinefold/vivarium/genome"
	"github.com/brinefold/vivarium/physics"
	"github.com/brinefold/vivarium/rng"
	"github.com/brinefold/vivarium/sim"
)

// SelectionWeights names the three metrics the fitness formula
// combines, under their run-configuration names.
type SelectionWeights struct {
	Distance float64 `yaml:"distance" json:"distance"`
	Speed    float64 `yaml:"speed" json:"speed"`
	Upright  float64 `yaml:"upright" json:"upright"`
}

func (w SelectionWeights) toFitnessWeights() fitness.Weights {
	return fitness.Weights{Displacement: w.Distance, Speed: w.Speed, Upright: w.Upright}
}

// Config is the evolution run's configuration surface.
type Config struct {
	Seed               string             `yaml:"seed" json:"seed"`
	PopulationSize     int                `yaml:"populationSize" json:"populationSize"`
	Generations        int                `yaml:"generations" json:"generations"`
	SelectionWeights   SelectionWeights   `yaml:"selectionWeights" json:"selectionWeights"`
	MorphMutation      MorphMutation      `yaml:"morphMutation" json:"morphMutation"`
	ControllerMutation ControllerMutation `yaml:"controllerMutation" json:"controllerMutation"`
	StartingModelID    *string            `yaml:"startingModelId,omitempty" json:"startingModelId,omitempty"`
	Scene              physics.Scene      `yaml:"-" json:"-"`
	EvaluationTicks    int                `yaml:"-" json:"-"`
}

// GenerationEvent is onGeneration's payload.
type GenerationEvent struct {
	Generation         int
	AbsoluteGeneration int
	BestFitness        float64
	MeanFitness        float64
	BestIndividual     genome.Individual
	BestMetrics        genome.Metrics
	Evaluated          int
}

// RunState is the persisted shape a Store implementation saves and
// loads.
type RunState struct {
	Status           string
	ConfigHash       uint32
	Generation       int
	TotalGenerations int
	History          []GenerationEvent
	Population       []genome.Individual
	RNGState         uint32
	Best             *genome.Individual
	UpdatedAt        string
}

// ReplayFrame is one recorded outer tick's transforms for every
// creature still in play at that tick, keyed by population index.
type ReplayFrame struct {
	Tick      int
	Transform map[int][]float64
}

// Store is the narrow persistence contract the driver needs; package
// store's FileStore satisfies it. Defined here (consumer side) so
// evolve never imports store and no import cycle is possible.
type Store interface {
	SaveRunState(RunState) error
	LoadRunState() (RunState, bool, error)
	SaveReplay(generation int, frames []ReplayFrame) error
}

// Callbacks receives the driver's emitted messages.
type Callbacks struct {
	OnGeneration    func(GenerationEvent)
	OnStateSnapshot func(RunState)
	OnComplete      func(RunState)
}

// AbortError wraps a run's cooperative cancellation.
type AbortError struct{ Err error }

func (e *AbortError) Error() string { return "aborted: " + e.Err.Error() }
func (e *AbortError) Unwrap() error { return e.Err }

// Driver owns one run's lifecycle.
type Driver struct {
	cfg   Config
	store Store
	cb    Callbacks
	obs   sim.Observer
}

// New returns a driver for cfg. store may be nil (no persistence); cb's
// fields may be nil (messages are simply dropped).
func New(cfg Config, store Store, cb Callbacks) *Driver {
	if cfg.EvaluationTicks <= 0 {
		cfg.EvaluationTicks = 600 // 10s at the fixed 60Hz substep rate.
	}
	return &Driver{cfg: cfg, store: store, cb: cb}
}

// SetObserver forwards the scheduler's per-tick telemetry (simTime,
// physicsFPS) emitted during each generation's evaluation phase.
func (d *Driver) SetObserver(obs sim.Observer) { d.obs = obs }

// Run executes the full generation loop, resuming from a saved state if
// one is present and its config hash matches cfg, otherwise starting
// fresh from either cfg.StartingModelID or the default genome.
func (d *Driver) Run(ctx context.Context, resume bool, configHash uint32) error {
	generation, history, population, rngState := d.start(resume, configHash)
	source := rng.New(rngState)

	if generation >= d.cfg.Generations {
		final := RunState{
			Status: "complete", ConfigHash: configHash, Generation: generation,
			TotalGenerations: d.cfg.Generations, History: history, Population: population,
			RNGState: source.State(),
		}
		if len(history) > 0 {
			b := history[len(history)-1].BestIndividual
			final.Best = &b
		}
		d.emitComplete(final)
		return nil
	}

	for generation < d.cfg.Generations {
		if err := ctx.Err(); err != nil {
			return d.abort(ctx, err, generation, history, population, source, configHash)
		}

		recorder := newReplayRecorder(d.obs)
		scheduler := sim.NewScheduler(sim.Config{Scene: d.cfg.Scene, SimulationSpeed: 1}, recorder)
		scheduler.Init(population)
		metrics, completed := scheduler.RunContext(ctx, d.cfg.EvaluationTicks)
		population = fitness.ScoreAll(population, metrics, d.cfg.SelectionWeights.toFitnessWeights())
		if !completed {
			recorder.q.Cancel()
			return d.abort(ctx, ctx.Err(), generation, history, population, source, configHash)
		}

		ranked := rankDescending(population)
		event := GenerationEvent{
			Generation:         generation,
			AbsoluteGeneration: generation,
			BestFitness:        fitnessOf(ranked[0]),
			MeanFitness:        meanFitness(ranked),
			BestIndividual:     ranked[0],
			Evaluated:          len(ranked),
		}
		if ranked[0].Metrics != nil {
			event.BestMetrics = *ranked[0].Metrics
		}
		history = append(history, event)
		if d.cb.OnGeneration != nil {
			d.cb.OnGeneration(event)
		}
		if d.store != nil {
			if bestIndex := indexByID(population, ranked[0].ID); bestIndex >= 0 {
				_ = d.store.SaveReplay(generation, recorder.finish(bestIndex))
			}
		}

		population = reproduce(ranked, d.cfg, source)
		generation++

		snapshot := RunState{
			Status: "running", ConfigHash: configHash, Generation: generation,
			TotalGenerations: d.cfg.Generations, History: history, Population: population,
			RNGState: source.State(),
		}
		best := event.BestIndividual
		snapshot.Best = &best
		if d.cb.OnStateSnapshot != nil {
			d.cb.OnStateSnapshot(snapshot)
		}
		if d.store != nil {
			_ = d.store.SaveRunState(snapshot)
		}
	}

	final := RunState{
		Status: "complete", ConfigHash: configHash, Generation: generation,
		TotalGenerations: d.cfg.Generations, History: history, Population: population,
		RNGState: source.State(),
	}
	if len(history) > 0 {
		b := history[len(history)-1].BestIndividual
		final.Best = &b
	}
	d.emitComplete(final)
	return nil
}

func (d *Driver) emitComplete(final RunState) {
	if d.cb.OnComplete != nil {
		d.cb.OnComplete(final)
	}
	if d.store != nil {
		_ = d.store.SaveRunState(final)
	}
}

func (d *Driver) abort(ctx context.Context, cause error, generation int, history []GenerationEvent, population []genome.Individual, source *rng.Source, configHash uint32) error {
	snapshot := RunState{
		Status: "aborted", ConfigHash: configHash, Generation: generation,
		TotalGenerations: d.cfg.Generations, History: history, Population: population,
		RNGState: source.State(),
	}
	if d.cb.OnStateSnapshot != nil {
		d.cb.OnStateSnapshot(snapshot)
	}
	if d.store != nil {
		_ = d.store.SaveRunState(snapshot)
	}
	if cause == nil {
		cause = ctx.Err()
	}
	return &AbortError{Err: cause}
}

// start resolves the run's starting point: a matching resume, or a
// fresh population seeded from cfg.
func (d *Driver) start(resume bool, configHash uint32) (generation int, history []GenerationEvent, population []genome.Individual, rngState uint32) {
	if resume && d.store != nil {
		if saved, ok, err := d.store.LoadRunState(); err == nil && ok && saved.ConfigHash == configHash {
			return saved.Generation, saved.History, saved.Population, saved.RNGState
		}
	}
	master := rng.NewFromSeedString(d.cfg.Seed)
	population = constructInitialPopulation(d.cfg, master.Split("pop"))
	return 0, nil, population, master.State()
}

func indexByID(population []genome.Individual, id string) int {
	for i, ind := range population {
		if ind.ID == id {
			return i
		}
	}
	return -1
}

func constructInitialPopulation(cfg Config, source *rng.Source) []genome.Individual {
	base := genome.DefaultHopper()
	if cfg.StartingModelID != nil {
		if g, ok := genome.ModelByID(*cfg.StartingModelID); ok {
			base = g
		}
	}
	pop := make([]genome.Individual, cfg.PopulationSize)
	for i := 0; i < cfg.PopulationSize; i++ {
		g := MutateGenome(base, cfg.MorphMutation, cfg.ControllerMutation, source.Split("seed"))
		pop[i] = genome.Individual{ID: "gen0-" + strconv.Itoa(i), Genome: g}
	}
	return pop
}
