package genome

// namedModels maps a startingModelId to the genome it selects for
// generation 0. "hopper" is the only built-in model; callers that pass
// an unrecognized id fall back to DefaultHopper.
var namedModels = map[string]func() Genome{
	"hopper": DefaultHopper,
}

// ModelByID looks up a named starting model. ok is false for an unknown
// id, in which case the caller should fall back to DefaultHopper.
func ModelByID(id string) (g Genome, ok bool) {
	ctor, ok := namedModels[id]
	if !ok {
		return Genome{}, false
	}
	return ctor(), true
}

// DefaultHopper returns the seed genome used for generation 0 when no
// startingModelId is supplied: a single root torso with one hinged limb
// driven by an oscillator-to-actuator pair. It is intentionally small —
// mutation (see package evolve) is responsible for growing complexity.
func DefaultHopper() Genome {
	root := 0
	limb := 1
	return Genome{
		Version: SchemaVersion,
		Morphology: Morphology{
			{
				ID:        root,
				Size:      Vec3{X: 1, Y: 0.5, Z: 1},
				JointType: Revolute,
			},
			{
				ID:          limb,
				ParentID:    &root,
				Size:        Vec3{X: 0.3, Y: 1, Z: 0.3},
				AttachFace:  FaceNegY,
				JointType:   Revolute,
				JointParams: &JointParams{Speed: 2, Phase: 0, Amp: 0.8},
			},
		},
		Brain: Brain{
			Nodes: []NeuralNode{
				{ID: "s1", Type: Sensor, X: 0, Y: 0},
				{ID: "s2", Type: Sensor, X: 0, Y: 0.3},
				{ID: "s3", Type: Sensor, X: 0, Y: 0.6},
				{ID: "osc", Type: Oscillator, X: 0.5, Y: 0.5},
				{ID: "a1", Type: Actuator, X: 1, Y: 0.5, Target: &ActuatorTarget{ID: "1", Channel: "torque"}},
			},
			Connections: []NeuralConnection{
				{ID: "c1", Source: "osc", Target: "a1", Weight: 1},
				{ID: "c2", Source: "s1", Target: "a1", Weight: 0.3},
			},
		},
	}
}
