package physics

import "github.com/brinefold/vivarium/lin"

// Scene bundles the environment constants that vary between spawn
// scenes: gravity strength and per-body drag.
type Scene struct {
	Name           string
	Gravity        lin.V3
	LinearDamping  float64
	AngularDamping float64
}

var (
	SceneEarth   = Scene{Name: "earth", Gravity: lin.V3{X: 0, Y: -9.81, Z: 0}, LinearDamping: 0.5, AngularDamping: 1.0}
	SceneMoon    = Scene{Name: "moon", Gravity: lin.V3{X: 0, Y: -1.62, Z: 0}, LinearDamping: 0.1, AngularDamping: 1.0}
	SceneJupiter = Scene{Name: "jupiter", Gravity: lin.V3{X: 0, Y: -24.79, Z: 0}, LinearDamping: 0.5, AngularDamping: 1.0}
	SceneWater   = Scene{Name: "water", Gravity: lin.V3{X: 0, Y: -9.81, Z: 0}, LinearDamping: 3.0, AngularDamping: 4.0}
)

const (
	disqualifySpeed = 50.0
	respawnY        = -20.0
	groundY         = 0.0
)

// World owns every body and joint for one creature instance (or, when
// bodies/joints from several creatures are appended, a shared batch of
// them) and advances them with a fixed substep.
type World struct {
	Scene Scene

	bodies    map[int]*Body
	bodyOrder []int
	joints    []*Joint

	// inertia is a crude isotropic moment-of-inertia estimate per body,
	// derived from its box half-extent, used only to turn joint torque
	// into angular acceleration. It is not a full inertia tensor: the
	// creatures here are loosely articulated chains of boxes, not
	// precision mechanisms, so an isotropic approximation is enough to
	// make limbs swing believably without the bookkeeping of a full
	// tensor integration.
	invInertia map[int]float64
}

// NewWorld returns an empty world for the given scene.
func NewWorld(scene Scene) *World {
	return &World{
		Scene:      scene,
		bodies:     make(map[int]*Body),
		invInertia: make(map[int]float64),
	}
}

// AddBody registers a body, computing its approximate inverse inertia
// from its mass and half-extent.
func (w *World) AddBody(b *Body) {
	w.bodies[b.ID] = b
	w.bodyOrder = append(w.bodyOrder, b.ID)
	if b.InvMass <= 0 {
		w.invInertia[b.ID] = 0
		return
	}
	mass := 1 / b.InvMass
	e := b.HalfExtent
	// Solid box moment of inertia about an axis through the centroid,
	// averaged across the three axes for an isotropic stand-in.
	ix := (mass / 3) * (e.Y*e.Y + e.Z*e.Z)
	iy := (mass / 3) * (e.X*e.X + e.Z*e.Z)
	iz := (mass / 3) * (e.X*e.X + e.Y*e.Y)
	avg := (ix + iy + iz) / 3
	if avg <= 0 {
		w.invInertia[b.ID] = 0
		return
	}
	w.invInertia[b.ID] = 1 / avg
}

// AddJoint registers a motorized joint between two already-added bodies.
func (w *World) AddJoint(j *Joint) { w.joints = append(w.joints, j) }

// Body returns the body with the given id, or nil.
func (w *World) Body(id int) *Body { return w.bodies[id] }

// BodyOrder returns body ids in the stable order they were added, which
// Step's caller relies on for packing the transform buffer.
func (w *World) BodyOrder() []int { return w.bodyOrder }

// Joints returns every registered joint.
func (w *World) Joints() []*Joint { return w.joints }

// Step advances the world by one fixed substep of size dt: motor
// torques, gravity, damping, integration, a soft ground-plane contact
// and the velocity-threshold disqualification / fall-through-floor
// respawn checks. It returns the ids of any bodies that newly became
// disqualified this call.
func (w *World) Step(dt float64) (newlyDisqualified []int) {
	for _, j := range w.joints {
		parent, child := w.bodies[j.ParentID], w.bodies[j.ChildID]
		if parent == nil || child == nil || parent.Sleeping || child.Sleeping {
			continue
		}
		torque, axis := j.motorTorque(parent, child)
		dw := lin.Scale(axis, torque*dt)
		if ip := w.invInertia[parent.ID]; ip > 0 {
			parent.AngVel = lin.Sub(parent.AngVel, lin.Scale(dw, ip))
		}
		if ic := w.invInertia[child.ID]; ic > 0 {
			child.AngVel = lin.Add(child.AngVel, lin.Scale(dw, ic))
		}
	}

	for _, id := range w.bodyOrder {
		b := w.bodies[id]
		if b.Sleeping || b.InvMass <= 0 {
			continue
		}
		b.LinVel = lin.Add(b.LinVel, lin.Scale(w.Scene.Gravity, dt))
		b.LinVel = lin.Scale(b.LinVel, 1/(1+w.Scene.LinearDamping*dt))
		b.AngVel = lin.Scale(b.AngVel, 1/(1+w.Scene.AngularDamping*dt))

		b.Pos = lin.Add(b.Pos, lin.Scale(b.LinVel, dt))
		b.Rot = integrateRotation(b.Rot, b.AngVel, dt)

		if b.Pos.Y >= respawnY && b.Pos.Y-b.HalfExtent.Y < groundY {
			b.Pos.Y = groundY + b.HalfExtent.Y
			if b.LinVel.Y < 0 {
				b.LinVel.Y = -b.LinVel.Y * b.Restitution
			}
			b.LinVel.X *= 1 - b.Friction*dt
			b.LinVel.Z *= 1 - b.Friction*dt
		}
	}

	for _, j := range w.joints {
		w.correctJointAnchors(j)
	}

	for _, id := range w.bodyOrder {
		b := w.bodies[id]
		if b.Disqualified || b.Sleeping {
			continue
		}
		if lin.Len(b.LinVel) > disqualifySpeed {
			b.Teleport(lin.V3{X: 0, Y: -100, Z: 0})
			b.Sleep()
			b.Disqualified = true
			newlyDisqualified = append(newlyDisqualified, id)
			continue
		}
		if b.Pos.Y < respawnY {
			b.Teleport(lin.V3{X: 0, Y: 5, Z: 0})
		}
	}
	return newlyDisqualified
}

// correctJointAnchors nudges both bodies of a joint towards coincident
// anchor points, distributed by inverse mass. This is a simplified
// positional bias correction in the spirit of an XPBD position
// constraint: it keeps articulated limbs from drifting apart under the
// motor's torque without a full iterative constraint solver.
func (w *World) correctJointAnchors(j *Joint) {
	parent, child := w.bodies[j.ParentID], w.bodies[j.ChildID]
	if parent == nil || child == nil {
		return
	}
	a1, a2 := j.AnchorWorldPoints(parent, child)
	delta := lin.Sub(a2, a1)
	if lin.Len(delta) < 1e-9 {
		return
	}
	wp, wc := parent.InvMass, child.InvMass
	total := wp + wc
	if total <= 0 {
		return
	}
	if !parent.Sleeping && wp > 0 {
		parent.Pos = lin.Add(parent.Pos, lin.Scale(delta, wp/total))
	}
	if !child.Sleeping && wc > 0 {
		child.Pos = lin.Sub(child.Pos, lin.Scale(delta, wc/total))
	}
}

// integrateRotation advances q by the angular velocity ω over dt using
// the standard quaternion derivative q' = 1/2 * (0,ω) * q, then
// renormalizes to counter drift.
func integrateRotation(q lin.Q, w lin.V3, dt float64) lin.Q {
	spin := lin.Q{X: w.X, Y: w.Y, Z: w.Z, W: 0}
	dq := lin.Mult(spin, q)
	next := lin.Q{
		X: q.X + 0.5*dt*dq.X,
		Y: q.Y + 0.5*dt*dq.Y,
		Z: q.Z + 0.5*dt*dq.Z,
		W: q.W + 0.5*dt*dq.W,
	}
	return lin.Unit(next)
}
