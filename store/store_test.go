package store

import (
	"path/filepath"
	"testing"

	"github.com/brinefold/vivarium/evolve"
	"github.com/brinefold/vivarium/genome"
)

func TestLoadRunStateBeforeAnySaveReportsNotOK(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, ok, err := s.LoadRunState()
	if err != nil {
		t.Fatalf("LoadRunState: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false with no saved state")
	}
}

func TestRunStateRoundTrips(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fitness := 3.5
	want := evolve.RunState{
		Status:           "running",
		ConfigHash:       12345,
		Generation:       7,
		TotalGenerations: 20,
		RNGState:         999,
		Population: []genome.Individual{
			{ID: "gen7-0", Genome: genome.DefaultHopper(), Fitness: &fitness},
		},
	}
	if err := s.SaveRunState(want); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}
	got, ok, err := s.LoadRunState()
	if err != nil {
		t.Fatalf("LoadRunState: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true after save")
	}
	if got.Status != want.Status || got.ConfigHash != want.ConfigHash || got.Generation != want.Generation {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if len(got.Population) != 1 || got.Population[0].ID != "gen7-0" {
		t.Fatalf("population did not round trip: %+v", got.Population)
	}
	if *got.Population[0].Fitness != fitness {
		t.Fatalf("fitness did not round trip: %v", got.Population[0].Fitness)
	}
}

func TestSaveRunStateOverwritesPreviousSave(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveRunState(evolve.RunState{Generation: 1}); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}
	if err := s.SaveRunState(evolve.RunState{Generation: 2}); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}
	got, ok, err := s.LoadRunState()
	if err != nil || !ok {
		t.Fatalf("LoadRunState: ok=%v err=%v", ok, err)
	}
	if got.Generation != 2 {
		t.Fatalf("expected latest save to win, got generation %d", got.Generation)
	}
}

func TestClearRunStateRemovesSavedFile(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveRunState(evolve.RunState{Generation: 5}); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}
	if err := s.ClearRunState(); err != nil {
		t.Fatalf("ClearRunState: %v", err)
	}
	_, ok, err := s.LoadRunState()
	if err != nil {
		t.Fatalf("LoadRunState: %v", err)
	}
	if ok {
		t.Fatalf("expected no state after Clear")
	}
}

func TestClearRunStateOnAlreadyClearIsNotAnError(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.ClearRunState(); err != nil {
		t.Fatalf("ClearRunState on empty store: %v", err)
	}
}

func TestSaveRunStateLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveRunState(evolve.RunState{Generation: 1}); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp files, found %v", matches)
	}
}

func TestReplayRoundTrips(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frames := []evolve.ReplayFrame{
		{Tick: 0, Transform: map[int][]float64{0: {0, 1, 0, 0, 0, 0, 1}}},
		{Tick: 1, Transform: map[int][]float64{0: {0.1, 1, 0, 0, 0, 0, 1}}},
	}
	if err := s.SaveReplay(3, frames); err != nil {
		t.Fatalf("SaveReplay: %v", err)
	}
	got, ok, err := s.LoadReplay()
	if err != nil || !ok {
		t.Fatalf("LoadReplay: ok=%v err=%v", ok, err)
	}
	if got.Generation != 3 || len(got.Frames) != len(frames) {
		t.Fatalf("replay round trip mismatch: %+v", got)
	}
	if err := s.ClearReplay(); err != nil {
		t.Fatalf("ClearReplay: %v", err)
	}
	if _, ok, _ := s.LoadReplay(); ok {
		t.Fatalf("expected no replay after Clear")
	}
}

func TestFileStoreSatisfiesEvolveStore(t *testing.T) {
	var _ evolve.Store = (*FileStore)(nil)
}
