package genome

import "testing"

func TestValidDefaultHopper(t *testing.T) {
	errs, ok := Validate(DefaultHopper())
	if !ok {
		t.Fatalf("DefaultHopper should validate, got errors: %v", errs)
	}
}

func TestModelByIDFindsHopper(t *testing.T) {
	g, ok := ModelByID("hopper")
	if !ok {
		t.Fatalf("expected \"hopper\" to be a known model")
	}
	if errs, valid := Validate(g); !valid {
		t.Fatalf("hopper model should validate, got errors: %v", errs)
	}
}

func TestModelByIDUnknownReportsNotOK(t *testing.T) {
	if _, ok := ModelByID("no-such-model"); ok {
		t.Fatalf("expected unknown model id to report ok=false")
	}
}

func TestRoundTrip(t *testing.T) {
	g := DefaultHopper()
	data, err := Serialize(g)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	back, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	data2, err := Serialize(back)
	if err != nil {
		t.Fatalf("Serialize(back): %v", err)
	}
	if string(data) != string(data2) {
		t.Fatalf("round trip not byte-identical:\n%s\nvs\n%s", data, data2)
	}
}

func TestDetectsMissingRoot(t *testing.T) {
	g := DefaultHopper()
	g.Morphology = g.Morphology[1:] // drop the root, leaving an orphan
	_, ok := Validate(g)
	if ok {
		t.Fatalf("expected invalid genome with no root")
	}
}

func TestDetectsForwardParentReference(t *testing.T) {
	g := DefaultHopper()
	later := 1 // the limb, declared after node 0
	g.Morphology[0].ParentID = &later
	errs, ok := Validate(g)
	if ok {
		t.Fatalf("expected invalid genome with forward parentId")
	}
	if len(errs) == 0 {
		t.Fatalf("expected at least one validation error")
	}
}

func TestDetectsDuplicateNodeID(t *testing.T) {
	g := DefaultHopper()
	dup := g.Morphology[1]
	g.Morphology = append(g.Morphology, dup)
	_, ok := Validate(g)
	if ok {
		t.Fatalf("expected invalid genome with duplicate node id")
	}
}

func TestDetectsSensorAsConnectionTarget(t *testing.T) {
	g := DefaultHopper()
	g.Brain.Connections = append(g.Brain.Connections, NeuralConnection{
		ID: "bad", Source: "osc", Target: "s1", Weight: 1,
	})
	_, ok := Validate(g)
	if ok {
		t.Fatalf("expected invalid genome with SENSOR as connection target")
	}
}

func TestDetectsUnknownConnectionEndpoint(t *testing.T) {
	g := DefaultHopper()
	g.Brain.Connections = append(g.Brain.Connections, NeuralConnection{
		ID: "bad", Source: "ghost", Target: "a1", Weight: 1,
	})
	_, ok := Validate(g)
	if ok {
		t.Fatalf("expected invalid genome with unknown connection source")
	}
}

func TestAddNodeDuplicateID(t *testing.T) {
	g := DefaultHopper()
	_, err := AddNode(g, BlockNode{ID: 1, Size: Vec3{X: 1, Y: 1, Z: 1}})
	if err == nil {
		t.Fatalf("expected DuplicateIDError")
	}
	if _, ok := err.(*DuplicateIDError); !ok {
		t.Fatalf("expected *DuplicateIDError, got %T", err)
	}
}

func TestAddNodeReturnsNewGenome(t *testing.T) {
	g := DefaultHopper()
	parent := 0
	g2, err := AddNode(g, BlockNode{ID: 2, ParentID: &parent, Size: Vec3{X: 1, Y: 1, Z: 1}, AttachFace: FacePosX, JointType: Revolute})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if len(g.Morphology) != 2 {
		t.Fatalf("original genome was mutated, len=%d", len(g.Morphology))
	}
	if len(g2.Morphology) != 3 {
		t.Fatalf("new genome missing appended node, len=%d", len(g2.Morphology))
	}
}

func TestAddConnectionDuplicateID(t *testing.T) {
	g := DefaultHopper()
	_, err := AddConnection(g, NeuralConnection{ID: "c1", Source: "osc", Target: "a1", Weight: 0.1})
	if err == nil {
		t.Fatalf("expected DuplicateIDError")
	}
}

func TestUnsupportedSchemaVersion(t *testing.T) {
	g := DefaultHopper()
	g.Version = 99
	_, ok := Validate(g)
	if ok {
		t.Fatalf("expected invalid genome with unsupported schema version")
	}
}
