// Package config loads and validates a run's YAML configuration,
// merging a user file over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brinefold/vivarium/evolve"
	"github.com/brinefold/vivarium/physics"
	"github.com/brinefold/vivarium/rng"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the on-disk run configuration. Seed is optional: an empty
// Seed is hashed like any other string (neither config nor the CLI
// substitutes a wall-clock seed), so it selects one fixed PRNG stream.
type Config struct {
	SceneName          string                    `yaml:"scene"`
	Seed               string                    `yaml:"seed,omitempty"`
	PopulationSize     int                       `yaml:"populationSize"`
	Generations        int                       `yaml:"generations"`
	SelectionWeights   evolve.SelectionWeights   `yaml:"selectionWeights"`
	MorphMutation      evolve.MorphMutation      `yaml:"morphMutation"`
	ControllerMutation evolve.ControllerMutation `yaml:"controllerMutation"`
	StartingModelID    *string                   `yaml:"startingModelId,omitempty"`
	EvaluationTicks    int                       `yaml:"evaluationTicks"`
}

var scenesByName = map[string]physics.Scene{
	"earth":   physics.SceneEarth,
	"moon":    physics.SceneMoon,
	"jupiter": physics.SceneJupiter,
	"water":   physics.SceneWater,
}

// Load reads defaults.yaml, then overlays path's contents (if path is
// non-empty) on top of it — only the fields present in the user file
// override the embedded defaults, since both unmarshal into the same
// struct value.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Scene resolves the configured scene name to its physics.Scene value.
// Unknown names fall back to physics.SceneEarth.
func (c Config) Scene() physics.Scene {
	if s, ok := scenesByName[c.SceneName]; ok {
		return s
	}
	return physics.SceneEarth
}

// ToEvolveConfig builds the evolve.Config this run configuration
// describes, plugging in the resolved scene.
func (c Config) ToEvolveConfig() evolve.Config {
	return evolve.Config{
		Seed:               c.Seed,
		PopulationSize:     c.PopulationSize,
		Generations:        c.Generations,
		SelectionWeights:   c.SelectionWeights,
		MorphMutation:      c.MorphMutation,
		ControllerMutation: c.ControllerMutation,
		StartingModelID:    c.StartingModelID,
		Scene:              c.Scene(),
		EvaluationTicks:    c.EvaluationTicks,
	}
}

// Validate checks c against every range invariant a run configuration
// must satisfy, collecting every violation rather than stopping at the
// first.
func Validate(c Config) []string {
	var errs []string
	if _, ok := scenesByName[c.SceneName]; !ok {
		errs = append(errs, fmt.Sprintf("config: unknown scene %q (want one of earth, moon, jupiter, water)", c.SceneName))
	}
	if c.PopulationSize <= 0 {
		errs = append(errs, fmt.Sprintf("config: populationSize must be positive, got %d", c.PopulationSize))
	}
	if c.Generations < 0 {
		errs = append(errs, fmt.Sprintf("config: generations must be non-negative, got %d", c.Generations))
	}
	if c.EvaluationTicks <= 0 {
		errs = append(errs, fmt.Sprintf("config: evaluationTicks must be positive, got %d", c.EvaluationTicks))
	}
	errs = append(errs, validateWeights(c.SelectionWeights)...)
	errs = append(errs, validateProbability("morphMutation.addLimbChance", c.MorphMutation.AddLimbChance)...)
	errs = append(errs, validateProbability("morphMutation.resizeChance", c.MorphMutation.ResizeChance)...)
	errs = append(errs, validateProbability("morphMutation.jointJitterChance", c.MorphMutation.JointJitterChance)...)
	errs = append(errs, validateProbability("controllerMutation.weightJitterChance", c.ControllerMutation.WeightJitterChance)...)
	errs = append(errs, validateProbability("controllerMutation.oscillatorChance", c.ControllerMutation.OscillatorChance)...)
	errs = append(errs, validateProbability("controllerMutation.addConnectionChance", c.ControllerMutation.AddConnectionChance)...)
	return errs
}

func validateWeights(w evolve.SelectionWeights) []string {
	var errs []string
	if w.Distance < 0 {
		errs = append(errs, fmt.Sprintf("config: selectionWeights.distance must be non-negative, got %v", w.Distance))
	}
	if w.Speed < 0 {
		errs = append(errs, fmt.Sprintf("config: selectionWeights.speed must be non-negative, got %v", w.Speed))
	}
	if w.Upright < 0 {
		errs = append(errs, fmt.Sprintf("config: selectionWeights.upright must be non-negative, got %v", w.Upright))
	}
	return errs
}

func validateProbability(field string, v float64) []string {
	if v < 0 || v > 1 {
		return []string{fmt.Sprintf("config: %s must be in [0,1], got %v", field, v)}
	}
	return nil
}

// Hash computes a stable 32-bit fingerprint of the run-shaping fields —
// everything a resume must match to safely continue an in-progress run.
// It deliberately excludes Seed and StartingModelID: those select which
// run to resume, not what shape it must have.
func Hash(c Config) uint32 {
	canonical := fmt.Sprintf(
		"scene=%s;population=%d;generations=%d;weights=%v;morphMut=%+v;ctrlMut=%+v;ticks=%d",
		c.SceneName, c.PopulationSize, c.Generations, c.SelectionWeights,
		c.MorphMutation, c.ControllerMutation, c.EvaluationTicks,
	)
	return rng.HashString(canonical)
}
