package physics

import (
	"math"

	"github.com/brinefold/vivarium/lin"
)

// Joint is a motorized revolute impulse joint between a parent and child
// body, with swing limits. Target is the motor's desired joint angle in
// radians, set once per substep by the caller (package sim, via package
// brain's actuator output) before World.Step.
type Joint struct {
	ParentID int
	ChildID  int

	// Anchors are expressed in each body's local frame so they track the
	// body through rotation; see morph.Instantiate for their derivation.
	AnchorParentLocal lin.V3
	AnchorChildLocal  lin.V3

	// AxisParentLocal is the joint's rotation axis expressed in the
	// parent's local frame.
	AxisParentLocal lin.V3

	LowerLimit float64
	UpperLimit float64

	Stiffness float64
	Damping   float64

	Target float64
}

// NewRevoluteJoint returns a joint with default swing limits and motor
// gains.
func NewRevoluteJoint(parentID, childID int, anchorParentLocal, anchorChildLocal, axisParentLocal lin.V3) *Joint {
	return &Joint{
		ParentID:          parentID,
		ChildID:           childID,
		AnchorParentLocal: anchorParentLocal,
		AnchorChildLocal:  anchorChildLocal,
		AxisParentLocal:   axisParentLocal,
		LowerLimit:        -math.Pi / 1.5,
		UpperLimit:        math.Pi / 1.5,
		Stiffness:         200,
		Damping:           20,
	}
}

// AnchorWorldPoints returns the world-space positions of both anchors,
// which should coincide within floating point tolerance for a
// well-formed, freshly-instantiated joint (the "joint closure" property).
func (j *Joint) AnchorWorldPoints(parent, child *Body) (a1, a2 lin.V3) {
	return parent.WorldAnchor(j.AnchorParentLocal), child.WorldAnchor(j.AnchorChildLocal)
}

// angle returns the current twist of child relative to parent about the
// joint axis, via a swing-twist decomposition of their relative rotation.
func (j *Joint) angle(parent, child *Body) float64 {
	rel := lin.Mult(lin.Invert(parent.Rot), child.Rot)
	axis := unitV3(vecOrUp(j.AxisParentLocal))
	relXYZ := lin.V3{X: rel.X, Y: rel.Y, Z: rel.Z}
	return 2 * math.Atan2(lin.Dot(relXYZ, axis), rel.W)
}

func vecOrUp(v lin.V3) lin.V3 {
	if lin.Len(v) < 1e-9 {
		return lin.V3{X: 0, Y: 0, Z: 1}
	}
	return v
}

// unitV3 returns v scaled to unit length; v must be non-zero (see vecOrUp).
func unitV3(v lin.V3) lin.V3 { return lin.Scale(v, 1/lin.Len(v)) }

// clampedTarget clamps the motor target to the joint's swing limits.
func (j *Joint) clampedTarget() float64 {
	t := j.Target
	if t < j.LowerLimit {
		t = j.LowerLimit
	}
	if t > j.UpperLimit {
		t = j.UpperLimit
	}
	return t
}

// motorTorque returns the scalar torque (about the world-space joint
// axis) the PD motor applies this substep, and the world-space axis it
// acts along.
func (j *Joint) motorTorque(parent, child *Body) (torque float64, worldAxis lin.V3) {
	worldAxis = unitV3(lin.Rotate(parent.Rot, vecOrUp(j.AxisParentLocal)))
	angle := j.angle(parent, child)
	angVelAlongAxis := lin.Dot(lin.Sub(child.AngVel, parent.AngVel), worldAxis)
	target := j.clampedTarget()
	torque = j.Stiffness*(target-angle) - j.Damping*angVelAlongAxis
	return torque, worldAxis
}
