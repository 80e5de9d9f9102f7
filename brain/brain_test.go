package brain

import (
	"math"
	"testing"

	"github.com/brinefold/vivarium/genome"
)

func TestNodeWithNoIncomingConnectionsCollapsesToZero(t *testing.T) {
	b := genome.Brain{
		Nodes: []genome.NeuralNode{
			{ID: "h", Type: genome.Hidden},
		},
	}
	e := NewEvaluator(b)
	prev := e.InitialActivations()
	next := e.Tick(prev, Sensors{}, 0)
	if next["h"] != 0 {
		t.Fatalf("isolated hidden node = %v, want tanh(0)=0", next["h"])
	}
}

func TestSynchronousUpdateReadsOnlyPrevious(t *testing.T) {
	b := genome.Brain{
		Nodes: []genome.NeuralNode{
			{ID: "a", Type: genome.Hidden},
			{ID: "b", Type: genome.Hidden},
		},
		Connections: []genome.NeuralConnection{
			{ID: "c1", Source: "a", Target: "b", Weight: 1},
			{ID: "c2", Source: "b", Target: "a", Weight: 1},
		},
	}
	e := NewEvaluator(b)
	prev := map[string]float64{"a": 0.5, "b": -0.5}
	next := e.Tick(prev, Sensors{}, 0)
	// Both updates must read the *same* prev snapshot.
	if next["a"] != math.Tanh(-0.5) {
		t.Fatalf("a = %v, want tanh(prev b)=%v", next["a"], math.Tanh(-0.5))
	}
	if next["b"] != math.Tanh(0.5) {
		t.Fatalf("b = %v, want tanh(prev a)=%v", next["b"], math.Tanh(0.5))
	}
}

func TestActivationsStayInUnitRange(t *testing.T) {
	b := genome.Brain{
		Nodes: []genome.NeuralNode{
			{ID: "a", Type: genome.Hidden},
			{ID: "b", Type: genome.Actuator, Target: &genome.ActuatorTarget{ID: "1"}},
		},
		Connections: []genome.NeuralConnection{
			{ID: "c1", Source: "a", Target: "b", Weight: 1000},
		},
	}
	e := NewEvaluator(b)
	prev := map[string]float64{"a": 1, "b": 0}
	next := e.Tick(prev, Sensors{}, 0)
	if next["b"] < -1 || next["b"] > 1 {
		t.Fatalf("actuator activation %v outside [-1,1]", next["b"])
	}
}

func TestSensorS1Threshold(t *testing.T) {
	b := genome.Brain{Nodes: []genome.NeuralNode{{ID: "s1", Type: genome.Sensor}}}
	e := NewEvaluator(b)
	below := e.Tick(e.InitialActivations(), Sensors{RootY: 0.1}, 0)
	above := e.Tick(e.InitialActivations(), Sensors{RootY: 10}, 0)
	if below["s1"] != 1 {
		t.Fatalf("s1 below threshold = %v, want 1", below["s1"])
	}
	if above["s1"] != -1 {
		t.Fatalf("s1 above threshold = %v, want -1", above["s1"])
	}
}

func TestOscillatorUsesLayoutY(t *testing.T) {
	b := genome.Brain{Nodes: []genome.NeuralNode{{ID: "osc", Type: genome.Oscillator, Y: 0.25}}}
	e := NewEvaluator(b)
	next := e.Tick(e.InitialActivations(), Sensors{}, 1.5)
	want := math.Sin(2*1.5 + 0.25*10)
	if next["osc"] != want {
		t.Fatalf("oscillator = %v, want %v", next["osc"], want)
	}
}

func TestActuatorTargetFallsBackWhenMissing(t *testing.T) {
	e := NewEvaluator(genome.Brain{})
	_, ok := e.ActuatorTarget(3, map[string]float64{}, 1)
	if ok {
		t.Fatalf("expected no actuator for unmodeled block")
	}
}

func TestActuatorTargetScalesByAmp(t *testing.T) {
	b := genome.Brain{
		Nodes: []genome.NeuralNode{
			{ID: "a1", Type: genome.Actuator, Target: &genome.ActuatorTarget{ID: "1"}},
		},
	}
	e := NewEvaluator(b)
	target, ok := e.ActuatorTarget(1, map[string]float64{"a1": 0.5}, 2)
	if !ok {
		t.Fatalf("expected actuator found")
	}
	if target != 1 {
		t.Fatalf("target = %v, want 1 (0.5*2)", target)
	}
}
