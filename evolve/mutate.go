package evolve

import (
	"strconv"

	"github.com/brinefold/vivarium/genome"
	"github.com/brinefold/vivarium/rng"
)

// MorphMutation holds the per-operation probabilities the run
// configuration names for body-plan mutation.
type MorphMutation struct {
	AddLimbChance     float64 `yaml:"addLimbChance" json:"addLimbChance"`
	ResizeChance      float64 `yaml:"resizeChance" json:"resizeChance"`
	JointJitterChance float64 `yaml:"jointJitterChance" json:"jointJitterChance"`
}

// ControllerMutation holds the per-operation probabilities for brain
// mutation.
type ControllerMutation struct {
	WeightJitterChance   float64 `yaml:"weightJitterChance" json:"weightJitterChance"`
	OscillatorChance     float64 `yaml:"oscillatorChance" json:"oscillatorChance"`
	AddConnectionChance  float64 `yaml:"addConnectionChance" json:"addConnectionChance"`
}

// DefaultMorphMutation and DefaultControllerMutation are conservative
// rates that keep most offspring close to their parent.
var (
	DefaultMorphMutation      = MorphMutation{AddLimbChance: 0.05, ResizeChance: 0.2, JointJitterChance: 0.3}
	DefaultControllerMutation = ControllerMutation{WeightJitterChance: 0.3, OscillatorChance: 0.1, AddConnectionChance: 0.05}
)

// MutateGenome applies morph and brain mutation independently, each
// driven by its own rng split so that toggling one mutation family off
// does not change the other's random draws.
func MutateGenome(g genome.Genome, morphM MorphMutation, ctrlM ControllerMutation, source *rng.Source) genome.Genome {
	g = mutateMorph(g, morphM, source.Split("morph"))
	g = mutateBrain(g, ctrlM, source.Split("brain"))
	return g
}

func mutateMorph(g genome.Genome, m MorphMutation, r *rng.Source) genome.Genome {
	g = g.Clone()

	if r.Bool(m.ResizeChance) && len(g.Morphology) > 0 {
		i := r.Int(len(g.Morphology))
		scale := r.Float(0.85, 1.15)
		n := g.Morphology[i]
		n.Size = genome.Vec3{X: n.Size.X * scale, Y: n.Size.Y * scale, Z: n.Size.Z * scale}
		g.Morphology[i] = n
	}

	if r.Bool(m.JointJitterChance) && len(g.Morphology) > 0 {
		i := r.Int(len(g.Morphology))
		n := g.Morphology[i]
		if n.JointParams != nil {
			jp := *n.JointParams
			jp.Phase += r.Float(-0.3, 0.3)
			jp.Amp = clamp(jp.Amp+r.Float(-0.1, 0.1), 0, 2)
			n.JointParams = &jp
			g.Morphology[i] = n
		}
	}

	if r.Bool(m.AddLimbChance) {
		g = addLimb(g, r)
	}

	return g
}

// addLimb attaches a small new block to a random existing block on a
// random free-ish face, with its own revolute joint and jointParams
// oscillator fallback. Failure to find a usable id/face is a silent
// no-op: mutation operators never produce an invalid genome on their
// own account, since morph.Instantiate validates the end result.
func addLimb(g genome.Genome, r *rng.Source) genome.Genome {
	if len(g.Morphology) == 0 {
		return g
	}
	parent := g.Morphology[r.Int(len(g.Morphology))]
	maxID := 0
	for _, n := range g.Morphology {
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	newID := maxID + 1
	face := genome.AttachFace(r.Choice(6))
	size := genome.Vec3{X: 0.2 + r.Float(0, 0.2), Y: 0.4 + r.Float(0, 0.4), Z: 0.2 + r.Float(0, 0.2)}
	node := genome.BlockNode{
		ID:         newID,
		ParentID:   &parent.ID,
		Size:       size,
		AttachFace: face,
		JointType:  genome.Revolute,
		JointParams: &genome.JointParams{
			Speed: r.Float(1, 4),
			Phase: r.Float(0, 6.28),
			Amp:   r.Float(0.3, 1.0),
		},
	}
	next, err := genome.AddNode(g, node)
	if err != nil {
		return g
	}
	return next
}

func mutateBrain(g genome.Genome, m ControllerMutation, r *rng.Source) genome.Genome {
	g = g.Clone()

	if r.Bool(m.WeightJitterChance) && len(g.Brain.Connections) > 0 {
		i := r.Int(len(g.Brain.Connections))
		g.Brain.Connections[i].Weight += r.Float(-0.5, 0.5)
	}

	if r.Bool(m.OscillatorChance) {
		for i, n := range g.Brain.Nodes {
			if n.Type == genome.Oscillator {
				g.Brain.Nodes[i].Y = clamp(n.Y+r.Float(-0.1, 0.1), 0, 1)
			}
		}
	}

	if r.Bool(m.AddConnectionChance) {
		g = addConnection(g, r)
	}

	return g
}

// addConnection wires a random source node into a random non-sensor
// target. Like addLimb, a collision or invalid wiring is a silent
// no-op rather than a mutation failure.
func addConnection(g genome.Genome, r *rng.Source) genome.Genome {
	if len(g.Brain.Nodes) < 2 {
		return g
	}
	var targets []genome.NeuralNode
	for _, n := range g.Brain.Nodes {
		if n.Type != genome.Sensor {
			targets = append(targets, n)
		}
	}
	if len(targets) == 0 {
		return g
	}
	src := g.Brain.Nodes[r.Int(len(g.Brain.Nodes))]
	tgt := targets[r.Int(len(targets))]
	id := "c" + strconv.Itoa(len(g.Brain.Connections)) + "-" + strconv.FormatUint(uint64(r.State()), 36)
	next, err := genome.AddConnection(g, genome.NeuralConnection{
		ID:     id,
		Source: src.ID,
		Target: tgt.ID,
		Weight: r.Float(-1, 1),
	})
	if err != nil {
		return g
	}
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
