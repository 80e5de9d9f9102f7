package genome

import "fmt"

// ValidationErrors is a human-readable report produced by Validate. A
// genome is valid iff len(ValidationErrors) == 0.
type ValidationErrors []string

// Error implements the error interface so a ValidationErrors value can be
// returned directly where a single error is expected.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "genome: valid"
	}
	if len(v) == 1 {
		return v[0]
	}
	return fmt.Sprintf("%s (and %d more)", v[0], len(v)-1)
}

// Validate checks g against every structural and numeric invariant a
// morphology and brain graph must satisfy, and returns every violation
// found, plus a valid flag (true iff there are none).
func Validate(g Genome) (errs ValidationErrors, valid bool) {
	if g.Version != SchemaVersion {
		errs = append(errs, fmt.Sprintf("unsupported schema version %d (want %d)", g.Version, SchemaVersion))
	}

	errs = append(errs, validateMorphology(g.Morphology)...)
	errs = append(errs, validateBrain(g.Brain)...)

	return errs, len(errs) == 0
}

func validateMorphology(m Morphology) ValidationErrors {
	var errs ValidationErrors

	seen := make(map[int]int, len(m)) // id -> index
	roots := 0
	for i, n := range m {
		if prev, dup := seen[n.ID]; dup {
			errs = append(errs, fmt.Sprintf("morphology: duplicate node id %d (indexes %d and %d)", n.ID, prev, i))
			continue
		}
		seen[n.ID] = i

		if n.Size.X <= 0 || n.Size.Y <= 0 || n.Size.Z <= 0 {
			errs = append(errs, fmt.Sprintf("morphology: node %d has non-positive size %+v", n.ID, n.Size))
		}
		if !finite(n.Size.X) || !finite(n.Size.Y) || !finite(n.Size.Z) {
			errs = append(errs, fmt.Sprintf("morphology: node %d has non-finite size %+v", n.ID, n.Size))
		}
		if n.Rotation != nil && (!finite(n.Rotation.X) || !finite(n.Rotation.Y) || !finite(n.Rotation.Z)) {
			errs = append(errs, fmt.Sprintf("morphology: node %d has non-finite rotation %+v", n.ID, *n.Rotation))
		}

		if n.IsRoot() {
			roots++
			continue
		}
		if !n.AttachFace.Valid() {
			errs = append(errs, fmt.Sprintf("morphology: node %d has invalid attachFace %d", n.ID, n.AttachFace))
		}

		parentIdx, ok := seen[*n.ParentID]
		if !ok {
			errs = append(errs, fmt.Sprintf("morphology: node %d has parentId %d that does not reference an earlier node", n.ID, *n.ParentID))
		} else if parentIdx >= i {
			errs = append(errs, fmt.Sprintf("morphology: node %d has a forward/self parentId %d", n.ID, *n.ParentID))
		}

		if n.JointType != Revolute && n.JointType != Spherical {
			errs = append(errs, fmt.Sprintf("morphology: node %d has unknown jointType %q", n.ID, n.JointType))
		}
	}

	switch {
	case len(m) == 0:
		errs = append(errs, "morphology: empty, requires exactly one root")
	case roots != 1:
		errs = append(errs, fmt.Sprintf("morphology: found %d root nodes, want exactly 1", roots))
	}

	return errs
}

func validateBrain(b Brain) ValidationErrors {
	var errs ValidationErrors

	nodeByID := make(map[string]NeuralNode, len(b.Nodes))
	for _, n := range b.Nodes {
		if _, dup := nodeByID[n.ID]; dup {
			errs = append(errs, fmt.Sprintf("brain: duplicate node id %q", n.ID))
			continue
		}
		nodeByID[n.ID] = n

		switch n.Type {
		case Sensor, Oscillator, Hidden, Actuator:
		default:
			errs = append(errs, fmt.Sprintf("brain: node %q has unknown type %q", n.ID, n.Type))
		}
		if n.Activation != nil && !finite(*n.Activation) {
			errs = append(errs, fmt.Sprintf("brain: node %q has non-finite activation", n.ID))
		}
		if n.X < 0 || n.X > 1 || n.Y < 0 || n.Y > 1 {
			errs = append(errs, fmt.Sprintf("brain: node %q has layout coordinates outside [0,1]: (%v,%v)", n.ID, n.X, n.Y))
		}
		if n.Type == Actuator && n.Target == nil {
			errs = append(errs, fmt.Sprintf("brain: actuator node %q is missing a target", n.ID))
		}
	}

	edgeSeen := make(map[[2]string]bool, len(b.Connections))
	for _, c := range b.Connections {
		src, srcOK := nodeByID[c.Source]
		_, tgtOK := nodeByID[c.Target]
		if !srcOK {
			errs = append(errs, fmt.Sprintf("brain: connection %q has unknown source %q", c.ID, c.Source))
		}
		if !tgtOK {
			errs = append(errs, fmt.Sprintf("brain: connection %q has unknown target %q", c.ID, c.Target))
		}
		if tgtOK && nodeByID[c.Target].Type == Sensor {
			errs = append(errs, fmt.Sprintf("brain: connection %q targets a SENSOR node %q", c.ID, c.Target))
		}
		if !finite(c.Weight) {
			errs = append(errs, fmt.Sprintf("brain: connection %q has non-finite weight", c.ID))
		}
		key := [2]string{c.Source, c.Target}
		if edgeSeen[key] {
			errs = append(errs, fmt.Sprintf("brain: duplicate connection %s -> %s", c.Source, c.Target))
		}
		edgeSeen[key] = true
		_ = src
	}

	return errs
}
