// Package store persists run state and replay recordings to disk as
// JSON, with a write-temp-then-rename step so a crash mid-write never
// corrupts the file a later resume reads back.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brinefold/vivarium/evolve"
)

// RunStateVersion is incremented when the persisted RunState shape
// changes in an incompatible way.
const RunStateVersion = 1

type runStateEnvelope struct {
	Version int             `json:"version"`
	State   evolve.RunState `json:"state"`
}

// FileStore persists a single run's state and replay recording under
// dir. It satisfies evolve.Store structurally.
type FileStore struct {
	dir string
}

// New returns a FileStore rooted at dir, creating dir if necessary.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) runStatePath() string { return filepath.Join(s.dir, "run_state.json") }
func (s *FileStore) replayPath() string   { return filepath.Join(s.dir, "replay.json") }

// SaveRunState writes state, replacing any previously saved state.
func (s *FileStore) SaveRunState(state evolve.RunState) error {
	return writeJSONAtomic(s.runStatePath(), runStateEnvelope{Version: RunStateVersion, State: state})
}

// LoadRunState reads the previously saved state. ok is false (with a
// nil error) if no state has been saved yet.
func (s *FileStore) LoadRunState() (evolve.RunState, bool, error) {
	var env runStateEnvelope
	ok, err := readJSON(s.runStatePath(), &env)
	if err != nil || !ok {
		return evolve.RunState{}, ok, err
	}
	return env.State, true, nil
}

// ClearRunState removes any saved state, so a future resume starts
// fresh even if the caller later asks for one.
func (s *FileStore) ClearRunState() error {
	return removeIfExists(s.runStatePath())
}

// ReplayFrame is one broadcast tick of one creature's body transforms,
// keyed by the creature's index in that generation's population.
type ReplayFrame struct {
	Tick      int               `json:"tick"`
	Transform map[int][]float64 `json:"transform"`
}

// Replay is one generation's recorded evaluation of the creatures in
// Frames (the evolution driver saves only its best individual's), for
// later playback outside the evolution loop.
type Replay struct {
	Generation int           `json:"generation"`
	Frames     []ReplayFrame `json:"frames"`
}

// SaveReplay writes generation's recorded frames, replacing any
// previously saved replay. It satisfies evolve.Store.
func (s *FileStore) SaveReplay(generation int, frames []evolve.ReplayFrame) error {
	converted := make([]ReplayFrame, len(frames))
	for i, f := range frames {
		converted[i] = ReplayFrame{Tick: f.Tick, Transform: f.Transform}
	}
	return writeJSONAtomic(s.replayPath(), Replay{Generation: generation, Frames: converted})
}

// LoadReplay reads the previously saved replay. ok is false (with a
// nil error) if no replay has been saved yet.
func (s *FileStore) LoadReplay() (Replay, bool, error) {
	var r Replay
	ok, err := readJSON(s.replayPath(), &r)
	return r, ok, err
}

// ClearReplay removes any saved replay.
func (s *FileStore) ClearReplay() error {
	return removeIfExists(s.replayPath())
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename temp file into place: %w", err)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("store: unmarshal %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
