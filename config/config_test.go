package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brinefold/vivarium/physics"
)

func TestLoadEmptyPathUsesEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PopulationSize <= 0 || cfg.Generations <= 0 {
		t.Fatalf("expected non-zero defaults, got %+v", cfg)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("expected embedded defaults to validate cleanly, got %v", errs)
	}
}

func TestUserFileOverridesOnlyItsOwnFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("populationSize: 7\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PopulationSize != 7 {
		t.Fatalf("expected overridden populationSize 7, got %d", cfg.PopulationSize)
	}
	if cfg.Generations <= 0 {
		t.Fatalf("expected generations to retain its default, got %d", cfg.Generations)
	}
}

func TestSceneResolvesKnownNames(t *testing.T) {
	cases := map[string]physics.Scene{
		"earth":   physics.SceneEarth,
		"moon":    physics.SceneMoon,
		"jupiter": physics.SceneJupiter,
		"water":   physics.SceneWater,
	}
	for name, want := range cases {
		cfg := Config{SceneName: name}
		if got := cfg.Scene(); got.Name != want.Name {
			t.Fatalf("Scene(%q) = %+v, want %+v", name, got, want)
		}
	}
}

func TestSceneUnknownNameFallsBackToEarth(t *testing.T) {
	cfg := Config{SceneName: "mars"}
	if got := cfg.Scene(); got.Name != physics.SceneEarth.Name {
		t.Fatalf("expected fallback to earth, got %+v", got)
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	cfg := Config{
		SceneName:       "mars",
		PopulationSize:  0,
		Generations:     -1,
		EvaluationTicks: 0,
	}
	errs := Validate(cfg)
	if len(errs) < 4 {
		t.Fatalf("expected at least 4 violations, got %d: %v", len(errs), errs)
	}
}

func TestValidateRejectsOutOfRangeProbability(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.MorphMutation.AddLimbChance = 1.5
	errs := Validate(cfg)
	found := false
	for _, e := range errs {
		if e == "config: morphMutation.addLimbChance must be in [0,1], got 1.5" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an addLimbChance range violation, got %v", errs)
	}
}

func TestHashStableForIdenticalConfig(t *testing.T) {
	a, _ := Load("")
	b, _ := Load("")
	if Hash(a) != Hash(b) {
		t.Fatalf("expected identical configs to hash identically")
	}
}

func TestHashChangesWithShapeNotWithSeed(t *testing.T) {
	a, _ := Load("")
	b := a
	b.Seed = "some-other-seed"
	if Hash(a) != Hash(b) {
		t.Fatalf("expected hash to ignore Seed")
	}
	c := a
	c.PopulationSize = a.PopulationSize + 1
	if Hash(a) == Hash(c) {
		t.Fatalf("expected hash to change with populationSize")
	}
}

func TestToEvolveConfigCarriesFields(t *testing.T) {
	cfg, _ := Load("")
	ec := cfg.ToEvolveConfig()
	if ec.PopulationSize != cfg.PopulationSize || ec.Generations != cfg.Generations {
		t.Fatalf("ToEvolveConfig dropped fields: %+v", ec)
	}
	if ec.Scene.Name != cfg.Scene().Name {
		t.Fatalf("ToEvolveConfig scene mismatch: %+v vs %+v", ec.Scene, cfg.Scene())
	}
}
