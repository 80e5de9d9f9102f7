// Package morph walks a genome's morphology graph and instantiates it as
// rigid bodies and motorized joints inside a physics world.
package morph

import (
	"fmt"

	"github.com/brinefold/vivarium/genome"
	"github.com/brinefold/vivarium/lin"
	"github.com/brinefold/vivarium/physics"
)

// DisqualifiedFitness is the sentinel fitness assigned to an individual
// whose morphology fails to instantiate.
const DisqualifiedFitness = -10000

// InstantiationError reports why a morphology could not be instantiated:
// an orphan parentId, a cycle, a duplicate id, or a non-finite size or
// rotation. Any of these disqualifies the whole individual.
type InstantiationError struct {
	Reason string
}

func (e *InstantiationError) Error() string { return "instantiation: " + e.Reason }

// Transform is a block's computed world pose at spawn time.
type Transform struct {
	Pos lin.V3
	Rot lin.Q
}

// Result is everything the scheduler (package sim) needs to drive one
// freshly-spawned creature.
type Result struct {
	Bodies    map[int]*physics.Body
	BodyOrder []int
	Joints    []*physics.Joint
	RootID    int
	Transform map[int]Transform
}

// Instantiate builds the body graph described by m at spawnPos inside
// world, registering every body and joint it creates.
func Instantiate(m genome.Morphology, spawnPos lin.V3, world *physics.World) (*Result, error) {
	nodeByID := make(map[int]genome.BlockNode, len(m))
	order := make(map[int]int, len(m))
	var rootID int
	rootFound := false

	for i, n := range m {
		if _, dup := nodeByID[n.ID]; dup {
			return nil, &InstantiationError{Reason: fmt.Sprintf("duplicate node id %d", n.ID)}
		}
		if !finiteVec3(n.Size) || n.Size.X <= 0 || n.Size.Y <= 0 || n.Size.Z <= 0 {
			return nil, &InstantiationError{Reason: fmt.Sprintf("node %d has non-positive or non-finite size", n.ID)}
		}
		if n.Rotation != nil && !finiteVec3(*n.Rotation) {
			return nil, &InstantiationError{Reason: fmt.Sprintf("node %d has non-finite rotation", n.ID)}
		}
		nodeByID[n.ID] = n
		order[n.ID] = i
		if n.IsRoot() {
			if rootFound {
				return nil, &InstantiationError{Reason: "more than one root node"}
			}
			rootFound = true
			rootID = n.ID
		}
	}
	if !rootFound {
		return nil, &InstantiationError{Reason: "no root node"}
	}

	parentToChildren := make(map[int][]int)
	for _, n := range m {
		if n.IsRoot() {
			continue
		}
		parentID := *n.ParentID
		if _, ok := nodeByID[parentID]; !ok {
			return nil, &InstantiationError{Reason: fmt.Sprintf("node %d has orphan parentId %d", n.ID, parentID)}
		}
		if order[parentID] >= order[n.ID] {
			return nil, &InstantiationError{Reason: fmt.Sprintf("node %d parentId %d is not earlier in declaration order (cycle or forward reference)", n.ID, parentID)}
		}
		parentToChildren[parentID] = append(parentToChildren[parentID], n.ID)
	}

	res := &Result{
		Bodies:    make(map[int]*physics.Body),
		Joints:    nil,
		RootID:    rootID,
		Transform: make(map[int]Transform),
	}

	rootNode := nodeByID[rootID]
	rootRot := lin.Identity
	if rootNode.Rotation != nil {
		rootRot = lin.EulerToQuat(rootNode.Rotation.X, rootNode.Rotation.Y, rootNode.Rotation.Z)
	}
	spawn := Transform{Pos: spawnPos, Rot: rootRot}
	res.Transform[rootID] = spawn
	addBody(world, res, rootNode, spawn)

	type queued struct {
		id int
		tf Transform
	}
	queue := []queued{{rootID, spawn}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		childIDs := parentToChildren[cur.id]
		groups := groupByFace(nodeByID, childIDs)

		for _, group := range groupKeysInOrder(nodeByID, childIDs) {
			ids := groups[group]
			for idx, childID := range ids {
				child := nodeByID[childID]
				parent := nodeByID[cur.id]
				pivotWorld := computePivotWorld(parent, cur.tf, child, idx, len(ids))
				childTf := computeChildTransform(parent, cur.tf, child, pivotWorld)
				res.Transform[childID] = childTf
				addBody(world, res, child, childTf)

				joint := buildJoint(parent, cur.tf, child, childTf, pivotWorld)
				world.AddJoint(joint)
				res.Joints = append(res.Joints, joint)

				queue = append(queue, queued{childID, childTf})
			}
		}
	}
	return res, nil
}

func finiteVec3(v genome.Vec3) bool {
	return lin.Finite(lin.V3{X: v.X, Y: v.Y, Z: v.Z})
}

func toV3(v genome.Vec3) lin.V3 { return lin.V3{X: v.X, Y: v.Y, Z: v.Z} }

func axisComponent(v lin.V3, axisIdx int) float64 {
	switch axisIdx {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func withAxisComponent(v lin.V3, axisIdx int, val float64) lin.V3 {
	switch axisIdx {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}

// groupByFace buckets childIDs by attachFace, preserving each bucket's
// internal declaration order.
func groupByFace(nodeByID map[int]genome.BlockNode, childIDs []int) map[genome.AttachFace][]int {
	out := make(map[genome.AttachFace][]int)
	for _, id := range childIDs {
		f := nodeByID[id].AttachFace
		out[f] = append(out[f], id)
	}
	return out
}

// groupKeysInOrder returns each distinct attachFace among childIDs in the
// order it was first declared, so face groups themselves are processed in
// a stable, declaration-derived order.
func groupKeysInOrder(nodeByID map[int]genome.BlockNode, childIDs []int) []genome.AttachFace {
	seen := make(map[genome.AttachFace]bool)
	var out []genome.AttachFace
	for _, id := range childIDs {
		f := nodeByID[id].AttachFace
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// computePivotWorld places the attachment pivot on the parent's attach
// face, including the tangential uAxis spread for
// siblings sharing a face (see the uAxis/vAxis resolution in DESIGN.md).
func computePivotWorld(parent genome.BlockNode, parentTf Transform, child genome.BlockNode, indexInFace, countInFace int) lin.V3 {
	face := child.AttachFace
	axisIdx := face.AxisIndex()
	dir := face.Dir()
	uIdx := (axisIdx + 1) % 3
	vIdx := (axisIdx + 2) % 3

	parentHalf := axisComponent(toV3(parent.Size), axisIdx) / 2
	parentDim := axisComponent(toV3(parent.Size), uIdx)

	spreadOffset := 0.0
	if countInFace > 1 {
		t := float64(indexInFace) / float64(countInFace-1)
		spreadOffset = (t - 0.5) * (parentDim * 0.8)
	}

	var parentOffsetU, parentOffsetV float64
	if child.ParentOffset != nil {
		parentOffsetU, parentOffsetV = child.ParentOffset.U, child.ParentOffset.V
	}

	pivotLocal := lin.V3{}
	pivotLocal = withAxisComponent(pivotLocal, axisIdx, dir*parentHalf)
	pivotLocal = withAxisComponent(pivotLocal, uIdx, spreadOffset+parentOffsetU)
	pivotLocal = withAxisComponent(pivotLocal, vIdx, parentOffsetV)

	return lin.Add(parentTf.Pos, lin.Rotate(parentTf.Rot, pivotLocal))
}

// computeChildTransform places the child's center relative to an
// already-computed pivot.
func computeChildTransform(parent genome.BlockNode, parentTf Transform, child genome.BlockNode, pivotWorld lin.V3) Transform {
	face := child.AttachFace
	axisIdx := face.AxisIndex()
	dir := face.Dir()
	uIdx := (axisIdx + 1) % 3
	vIdx := (axisIdx + 2) % 3

	childHalf := axisComponent(toV3(child.Size), axisIdx) / 2

	var childOffsetU, childOffsetV float64
	if child.ChildOffset != nil {
		childOffsetU, childOffsetV = child.ChildOffset.U, child.ChildOffset.V
	}

	localChildRot := lin.Identity
	if child.Rotation != nil {
		localChildRot = lin.EulerToQuat(child.Rotation.X, child.Rotation.Y, child.Rotation.Z)
	}

	offsetLocal := lin.V3{}
	offsetLocal = withAxisComponent(offsetLocal, axisIdx, dir*childHalf)
	offsetLocal = withAxisComponent(offsetLocal, uIdx, -childOffsetU)
	offsetLocal = withAxisComponent(offsetLocal, vIdx, -childOffsetV)

	rotatedChildOffset := lin.Rotate(parentTf.Rot, lin.Rotate(localChildRot, offsetLocal))
	childPos := lin.Add(pivotWorld, rotatedChildOffset)
	childRot := lin.Mult(parentTf.Rot, localChildRot)

	return Transform{Pos: childPos, Rot: childRot}
}

// buildJoint derives the revolute joint's anchors and axis from the
// parent/child transforms and their shared pivot.
func buildJoint(parent genome.BlockNode, parentTf Transform, child genome.BlockNode, childTf Transform, pivotWorld lin.V3) *physics.Joint {
	a1World := lin.Sub(pivotWorld, parentTf.Pos)
	a2World := lin.Sub(pivotWorld, childTf.Pos)
	a1Local := lin.Rotate(lin.Invert(parentTf.Rot), a1World)
	a2Local := lin.Rotate(lin.Invert(childTf.Rot), a2World)

	worldAxis := lin.Rotate(childTf.Rot, lin.V3{X: 0, Y: 0, Z: 1})
	axisParentLocal := lin.Rotate(lin.Invert(parentTf.Rot), worldAxis)

	return physics.NewRevoluteJoint(parent.ID, child.ID, a1Local, a2Local, axisParentLocal)
}

func addBody(world *physics.World, res *Result, n genome.BlockNode, tf Transform) {
	half := lin.Scale(toV3(n.Size), 0.5*0.95)
	b := physics.NewDynamicBox(n.ID, tf.Pos, tf.Rot, half, 2.0, 1.0, 0.0)
	world.AddBody(b)
	res.Bodies[n.ID] = b
	res.BodyOrder = append(res.BodyOrder, n.ID)
}
