// Package brain evaluates one synchronous activation tick of a creature's
// neural controller graph.
package brain

import (
	"math"
	"strconv"

	"github.com/brinefold/vivarium/genome"
)

// Sensors carries the per-tick sensory readings the scheduler (package
// sim) computes from physics state before calling Tick.
type Sensors struct {
	RootY        float64 // root body world Y.
	JointAngVel  float64 // |ω.x|+|ω.y|+|ω.z| of the first joint's child body, or 0.
	RootLinVelX  float64 // root body world-X linear velocity.
}

// Evaluator holds the static brain graph plus precomputed reverse
// adjacency, so repeated Tick calls don't re-walk connections.
type Evaluator struct {
	brain              genome.Brain
	nodeIndex          map[string]int
	connectionsByTgt   map[string][]genome.NeuralConnection
}

// NewEvaluator precomputes the reverse adjacency (connectionsByTarget)
// so each tick's activation lookups never walk the full connection
// list per node.
func NewEvaluator(b genome.Brain) *Evaluator {
	e := &Evaluator{
		brain:            b,
		nodeIndex:        make(map[string]int, len(b.Nodes)),
		connectionsByTgt: make(map[string][]genome.NeuralConnection, len(b.Nodes)),
	}
	for i, n := range b.Nodes {
		e.nodeIndex[n.ID] = i
	}
	for _, c := range b.Connections {
		e.connectionsByTgt[c.Target] = append(e.connectionsByTgt[c.Target], c)
	}
	return e
}

// InitialActivations returns the starting activation map: each node's
// declared initial Activation, or 0 if absent.
func (e *Evaluator) InitialActivations() map[string]float64 {
	out := make(map[string]float64, len(e.brain.Nodes))
	for _, n := range e.brain.Nodes {
		if n.Activation != nil {
			out[n.ID] = *n.Activation
		} else {
			out[n.ID] = 0
		}
	}
	return out
}

// Tick computes the next activation map from prev. All reads come from
// prev; writes go to a freshly allocated map, making the update
// synchronous.
func (e *Evaluator) Tick(prev map[string]float64, sensors Sensors, simTime float64) map[string]float64 {
	next := make(map[string]float64, len(e.brain.Nodes))
	for _, n := range e.brain.Nodes {
		switch n.Type {
		case genome.Sensor:
			next[n.ID] = e.sensorValue(n, sensors)
		case genome.Oscillator:
			next[n.ID] = math.Sin(2*simTime + n.Y*10)
		case genome.Hidden, genome.Actuator:
			sum := 0.0
			for _, c := range e.connectionsByTgt[n.ID] {
				sum += prev[c.Source] * c.Weight
			}
			next[n.ID] = math.Tanh(sum)
		default:
			next[n.ID] = 0
		}
	}
	return next
}

func (e *Evaluator) sensorValue(n genome.NeuralNode, s Sensors) float64 {
	switch n.ID {
	case "s1":
		if s.RootY < 0.55 {
			return 1
		}
		return -1
	case "s2":
		return math.Tanh(s.JointAngVel / 6)
	case "s3":
		return math.Tanh(s.RootLinVelX / 5)
	default:
		return 0
	}
}

// ActuatorTarget returns the joint motor target for the actuator driving
// the joint whose child block id is blockID, or ok=false if no such
// actuator node exists in this brain.
func (e *Evaluator) ActuatorTarget(blockID int, activations map[string]float64, amp float64) (target float64, ok bool) {
	id := actuatorID(blockID)
	idx, found := e.nodeIndex[id]
	if !found || e.brain.Nodes[idx].Type != genome.Actuator {
		return 0, false
	}
	return activations[id] * amp, true
}

func actuatorID(blockID int) string {
	return "a" + strconv.Itoa(blockID)
}
