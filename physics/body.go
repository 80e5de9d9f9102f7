// Package physics is a small rigid-body simulation sized for articulated
// creatures: dynamic boxes connected by motorized revolute joints,
// integrated with a fixed timestep. It intentionally omits general
// narrow-phase collision (convex hull GJK/EPA contact generation) since
// creatures in this simulation only need joint dynamics, gravity, damping,
// and simple ground-plane/velocity-threshold checks — see DESIGN.md.
package physics

import "github.com/brinefold/vivarium/lin"

// CollisionGroup identifies which broad collision layer a body belongs
// to. Creatures occupy GroupCreature and only the ground occupies
// GroupGround; creatures do not collide with each other.
type CollisionGroup uint32

const (
	GroupGround   CollisionGroup = 1
	GroupCreature CollisionGroup = 2
)

// Body is one dynamic rigid box in the world.
type Body struct {
	ID int

	Pos V3WorldSpace
	Rot lin.Q

	LinVel lin.V3
	AngVel lin.V3

	InvMass    float64 // 0 for fixed/static bodies.
	HalfExtent lin.V3  // collider half-size (0.95x the block's half-size).

	LinearDamping  float64
	AngularDamping float64
	Friction       float64
	Restitution    float64

	Group CollisionGroup
	Mask  CollisionGroup

	Sleeping     bool
	Disqualified bool
}

// V3WorldSpace is a plain alias documenting that a field holds a
// world-space position, as opposed to a local/anchor-space vector.
type V3WorldSpace = lin.V3

// NewDynamicBox creates an awake, dynamic box body at the given pose.
// density*volume derives the mass; mass is infinite (InvMass 0) if
// density or volume is non-positive.
func NewDynamicBox(id int, pos lin.V3, rot lin.Q, halfExtent lin.V3, density, friction, restitution float64) *Body {
	volume := 8 * halfExtent.X * halfExtent.Y * halfExtent.Z
	mass := density * volume
	invMass := 0.0
	if mass > 0 {
		invMass = 1 / mass
	}
	return &Body{
		Pos:            pos,
		Rot:            rot,
		InvMass:        invMass,
		HalfExtent:     halfExtent,
		LinearDamping:  0.5,
		AngularDamping: 1.0,
		Friction:       friction,
		Restitution:    restitution,
		Group:          GroupCreature,
		Mask:           GroupGround,
		ID:             id,
	}
}

// Speed returns the current linear velocity.
func (b *Body) Speed() lin.V3 { return b.LinVel }

// Teleport resets position and zeroes both velocities, used for
// disqualification and out-of-bounds respawn.
func (b *Body) Teleport(pos lin.V3) {
	b.Pos = pos
	b.LinVel = lin.V3{}
	b.AngVel = lin.V3{}
}

// Sleep zeroes velocities and marks the body as no longer integrated.
func (b *Body) Sleep() {
	b.Sleeping = true
	b.LinVel = lin.V3{}
	b.AngVel = lin.V3{}
}

// WorldAnchor converts a body-local anchor point to world space.
func (b *Body) WorldAnchor(localAnchor lin.V3) lin.V3 {
	return lin.Add(b.Pos, lin.Rotate(b.Rot, localAnchor))
}
