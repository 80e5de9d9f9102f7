package sim

import (
	"math"
	"testing"

	"github.com/brinefold/vivarium/genome"
	"github.com/brinefold/vivarium/lin"
	"github.com/brinefold/vivarium/physics"
)

func TestRunProducesMetricsForEveryIndividual(t *testing.T) {
	pop := []genome.Individual{
		{ID: "a", Genome: genome.DefaultHopper()},
		{ID: "b", Genome: genome.DefaultHopper()},
	}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, nil)
	s.Init(pop)
	metrics := s.Run(30)
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(metrics))
	}
	for i, m := range metrics {
		if m.Disqualified {
			t.Fatalf("individual %d unexpectedly disqualified", i)
		}
		if m.RuntimeAlive <= 0 {
			t.Fatalf("individual %d has zero runtime alive", i)
		}
	}
}

func TestFailedInstantiationReportsDisqualified(t *testing.T) {
	bad := genome.DefaultHopper()
	bad.Morphology[0].Size = genome.Vec3{X: 0, Y: 0, Z: 0}
	pop := []genome.Individual{{ID: "bad", Genome: bad}}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, nil)
	s.Init(pop)
	metrics := s.Run(5)
	if !metrics[0].Disqualified {
		t.Fatalf("expected disqualified metrics for a failed instantiation")
	}
}

func TestExcessiveSpeedDisqualifiesAndFreezesDisplacement(t *testing.T) {
	pop := []genome.Individual{{ID: "a", Genome: genome.DefaultHopper()}}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, nil)
	s.Init(pop)
	root := s.creatures[0].world.Body(s.creatures[0].result.RootID)
	root.Pos.X += 3 // give the root a non-zero displacement before disqualification
	before := s.Run(1)[0].Displacement
	root.LinVel.X = 1000
	metrics := s.Run(1)
	if !metrics[0].Disqualified {
		t.Fatalf("expected disqualification from excessive speed")
	}
	if metrics[0].Displacement != before {
		t.Fatalf("displacement = %v, want it frozen at the pre-disqualification value %v", metrics[0].Displacement, before)
	}
}

func TestSimulationSpeedClampsSubstepsToFive(t *testing.T) {
	s := NewScheduler(Config{Scene: physics.SceneEarth, SimulationSpeed: 100}, nil)
	pop := []genome.Individual{{ID: "a", Genome: genome.DefaultHopper()}}
	s.Init(pop)
	s.Run(1)
	// simTime should have advanced by at most 5 substeps worth of dt.
	if s.simTime > 5*fixedDt+1e-9 {
		t.Fatalf("simTime advanced %v, want <= %v (5 substeps clamp)", s.simTime, 5*fixedDt)
	}
}

func TestSetConfigSwitchesSceneLiveWithoutRebuild(t *testing.T) {
	pop := []genome.Individual{{ID: "a", Genome: genome.DefaultHopper()}}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, nil)
	s.Init(pop)
	worldBefore := s.creatures[0].world
	s.Run(3)

	s.SetConfig(Config{Scene: physics.SceneMoon})
	if s.creatures[0].world != worldBefore {
		t.Fatalf("expected the same World instance after a scene switch, got a new one")
	}
	if s.creatures[0].world.Scene != physics.SceneMoon {
		t.Fatalf("expected the live World's Scene to be updated to Moon immediately")
	}

	root := s.creatures[0].world.Body(s.creatures[0].result.RootID)
	root.LinVel = lin.V3{}
	s.creatures[0].world.Step(fixedDt)
	want := physics.SceneMoon.Gravity.Y * fixedDt / (1 + physics.SceneMoon.LinearDamping*fixedDt)
	if math.Abs(root.LinVel.Y-want) > 1e-9 {
		t.Fatalf("expected the next Step to apply Moon gravity (y=%v, damping=%v): got LinVel.Y=%v, want %v",
			physics.SceneMoon.Gravity.Y, physics.SceneMoon.LinearDamping, root.LinVel.Y, want)
	}
}

func TestComputeSensorsJointAngVelIsChildsOwnNotRelativeToParent(t *testing.T) {
	pop := []genome.Individual{{ID: "a", Genome: genome.DefaultHopper()}}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, nil)
	s.Init(pop)
	c := s.creatures[0]

	root := c.world.Body(c.result.RootID)
	child := c.world.Body(c.result.Joints[0].ChildID)
	root.AngVel = lin.V3{X: 10, Y: 10, Z: 10}
	child.AngVel = lin.V3{X: 1, Y: -2, Z: 3}

	sensors := computeSensors(c)
	want := math.Abs(1.0) + math.Abs(-2.0) + math.Abs(3.0)
	if sensors.JointAngVel != want {
		t.Fatalf("JointAngVel = %v, want %v (child's own |ω|, ignoring parent)", sensors.JointAngVel, want)
	}
}

func TestTransformsMatchBodyCountAndOrder(t *testing.T) {
	pop := []genome.Individual{{ID: "a", Genome: genome.DefaultHopper()}}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, nil)
	s.Init(pop)
	buf := s.Transforms(0)
	wantLen := 7 * len(s.creatures[0].result.BodyOrder)
	if len(buf) != wantLen {
		t.Fatalf("transform buffer len = %d, want %d", len(buf), wantLen)
	}
}

type recordingObserver struct {
	readyCalled  bool
	updateCalled int
	tickCalled   int
	lastTicks    map[int][]float64
}

func (r *recordingObserver) OnReady()                            { r.readyCalled = true }
func (r *recordingObserver) OnUpdate(simTime, physicsFPS float64) { r.updateCalled++ }
func (r *recordingObserver) OnTick(tick int, transforms map[int][]float64) {
	r.tickCalled++
	r.lastTicks = transforms
}

func TestObserverReceivesReadyAndUpdate(t *testing.T) {
	obs := &recordingObserver{}
	pop := []genome.Individual{{ID: "a", Genome: genome.DefaultHopper()}}
	s := NewScheduler(Config{Scene: physics.SceneEarth}, obs)
	s.Init(pop)
	if !obs.readyCalled {
		t.Fatalf("expected OnReady to be called during Init")
	}
	s.Run(3)
	if obs.updateCalled != 3 {
		t.Fatalf("expected 3 OnUpdate calls, got %d", obs.updateCalled)
	}
	if obs.tickCalled != 3 {
		t.Fatalf("expected 3 OnTick calls, got %d", obs.tickCalled)
	}
	if len(obs.lastTicks) != 1 {
		t.Fatalf("expected 1 creature's transforms in the last tick, got %d", len(obs.lastTicks))
	}
}
