// Command vivarium runs the evolve-simulate-select loop headlessly:
// load a run configuration, resume or start fresh, and log each
// generation's outcome as it completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/brinefold/vivarium/config"
	"github.com/brinefold/vivarium/evolve"
	"github.com/brinefold/vivarium/logging"
	"github.com/brinefold/vivarium/sim"
	"github.com/brinefold/vivarium/store"
)

var (
	configPath     = flag.String("config", "", "Run config YAML file (empty = use embedded defaults)")
	seedFlag       = flag.String("seed", "", "Override the configured PRNG seed")
	populationFlag = flag.Int("population", 0, "Override populationSize (0 = use config)")
	generations    = flag.Int("generations", 0, "Override generations (0 = use config)")
	dataDir        = flag.String("data", "./vivarium-run", "Directory for run state and replay persistence")
	resume         = flag.Bool("resume", false, "Resume the run saved under -data, if its config hash matches")
	logInterval    = flag.Int("log-interval", 1, "Log every Nth generation (0 = disabled)")
	logFile        = flag.String("logfile", "", "Write logs to this file instead of stdout")
	perf           = flag.Bool("perf", false, "Log per-generation wall-clock timing")
)

// PerfStats tracks wall-clock duration for each named phase of a
// generation and reports a rolling average per phase.
type PerfStats struct {
	samples    map[string][]time.Duration
	maxSamples int
}

// NewPerfStats returns a sampler retaining the most recent maxSamples
// recordings per name.
func NewPerfStats(maxSamples int) *PerfStats {
	return &PerfStats{samples: make(map[string][]time.Duration), maxSamples: maxSamples}
}

// Record appends d to name's sample window, evicting the oldest sample
// once the window is full.
func (p *PerfStats) Record(name string, d time.Duration) {
	p.samples[name] = append(p.samples[name], d)
	if len(p.samples[name]) > p.maxSamples {
		p.samples[name] = p.samples[name][1:]
	}
}

// Avg returns name's rolling average, or 0 if nothing has been recorded.
func (p *PerfStats) Avg(name string) time.Duration {
	s := p.samples[name]
	if len(s) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s))
}

// SortedNames returns every recorded name, slowest average first.
func (p *PerfStats) SortedNames() []string {
	names := make([]string, 0, len(p.samples))
	for name := range p.samples {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return p.Avg(names[i]) > p.Avg(names[j]) })
	return names
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vivarium:", err)
		os.Exit(1)
	}
}

func run() error {
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening logfile: %w", err)
		}
		defer f.Close()
		logging.SetWriter(f)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *seedFlag != "" {
		cfg.Seed = *seedFlag
	}
	if *populationFlag > 0 {
		cfg.PopulationSize = *populationFlag
	}
	if *generations > 0 {
		cfg.Generations = *generations
	}
	if errs := config.Validate(cfg); len(errs) != 0 {
		for _, e := range errs {
			logging.Logf("%s", e)
		}
		return fmt.Errorf("invalid configuration (%d violation(s))", len(errs))
	}

	fileStore, err := store.New(*dataDir)
	if err != nil {
		return fmt.Errorf("opening data dir: %w", err)
	}

	perfStats := NewPerfStats(30)
	var genStart time.Time

	cb := evolve.Callbacks{
		OnGeneration: func(ev evolve.GenerationEvent) {
			if *perf {
				perfStats.Record("generation", time.Since(genStart))
			}
			if *logInterval > 0 && ev.AbsoluteGeneration%*logInterval == 0 {
				logging.Logf("gen %d: best=%.4f mean=%.4f evaluated=%d",
					ev.AbsoluteGeneration, ev.BestFitness, ev.MeanFitness, ev.Evaluated)
				if *perf {
					for _, name := range perfStats.SortedNames() {
						logging.Logf("  %-12s %s", name, perfStats.Avg(name).Round(time.Millisecond))
					}
				}
			}
			genStart = time.Now()
		},
		OnComplete: func(final evolve.RunState) {
			logging.Logf("run complete: status=%s generations=%d", final.Status, final.Generation)
		},
	}

	driver := evolve.New(cfg.ToEvolveConfig(), fileStore, cb)
	driver.SetObserver(sim.NopObserver{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	genStart = time.Now()
	configHash := config.Hash(cfg)
	if err := driver.Run(ctx, *resume, configHash); err != nil {
		if _, ok := err.(*evolve.AbortError); ok {
			logging.Logf("run aborted: %v", err)
			return nil
		}
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
