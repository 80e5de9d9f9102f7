// Package sim is the fixed-step scheduler that evaluates a population of
// creatures: each generation's individuals are instantiated into their
// own physics world, ticked forward in lockstep, and scored into the
// per-creature metrics that package fitness later turns into a single
// number.
package sim

import (
	"context"
	"math"

	"github.com/brinefold/vivarium/brain"
	"github.com/brinefold/vivarium/genome"
	"github.com/brinefold/vivarium/lin"
	"github.com/brinefold/vivarium/morph"
	"github.com/brinefold/vivarium/physics"
)

const fixedDt = 1.0 / 60

// Config selects the run's environment and throttle.
type Config struct {
	Scene           physics.Scene
	SimulationSpeed float64 // outer-tick substep multiplier; <=0 treated as 1.
}

// Observer receives the scheduler's emitted messages. Implementations
// should return quickly; the scheduler does not buffer.
type Observer interface {
	OnReady()
	OnUpdate(simTime float64, physicsFPS float64)
	// OnTick delivers one outer tick's body transforms, keyed by the
	// creature's population index, for every creature still in play
	// (failed or disqualified creatures are omitted once they drop out).
	OnTick(tick int, transforms map[int][]float64)
}

// NopObserver implements Observer with no-ops, for callers that only
// want the returned metrics.
type NopObserver struct{}

func (NopObserver) OnReady()                             {}
func (NopObserver) OnUpdate(simTime, physicsFPS float64) {}
func (NopObserver) OnTick(tick int, transforms map[int][]float64) {}

type creature struct {
	individual   genome.Individual
	world        *physics.World
	result       *morph.Result
	evaluator    *brain.Evaluator
	activations  map[string]float64
	jointParams  map[int]*genome.JointParams // by child block id, for the oscillator fallback
	failed       bool
	disqualified bool

	startRootX  float64
	frozenX     float64
	sumSpeed    float64
	sumUpright  float64
	peakHeight  float64
	aliveTicks  int
	totalTicks  int
	contactHits int
}

// Scheduler evaluates one population for one fixed-length window.
type Scheduler struct {
	cfg       Config
	creatures []*creature
	simTime   float64
	observer  Observer
}

// NewScheduler returns a scheduler using obs for emitted messages; a
// nil obs is replaced with NopObserver.
func NewScheduler(cfg Config, obs Observer) *Scheduler {
	if obs == nil {
		obs = NopObserver{}
	}
	if cfg.SimulationSpeed <= 0 {
		cfg.SimulationSpeed = 1
	}
	return &Scheduler{cfg: cfg, observer: obs}
}

// SetConfig updates the scheduler's scene and/or speed. A scene change
// takes effect immediately: it is pushed into every live creature's
// World, so the very next Step applies the new gravity and per-body
// damping with no setupWorld/Init rebuild. SimulationSpeed only affects
// the substep count of the next Run/RunContext call.
func (s *Scheduler) SetConfig(cfg Config) {
	if cfg.SimulationSpeed <= 0 {
		cfg.SimulationSpeed = 1
	}
	if cfg.Scene != s.cfg.Scene {
		for _, c := range s.creatures {
			if c.world != nil {
				c.world.Scene = cfg.Scene
			}
		}
	}
	s.cfg = cfg
}

// UpdateSpeed changes the substep multiplier without a rebuild; the new
// substep count applies from the next Run/RunContext call.
func (s *Scheduler) UpdateSpeed(speed float64) {
	if speed <= 0 {
		speed = 1
	}
	s.cfg.SimulationSpeed = speed
}

// Init (SET_POPULATION + INIT) instantiates every individual's
// morphology into its own physics world at a shared spawn point. An
// individual whose morphology fails to instantiate is recorded as
// disqualified and skipped by subsequent Run calls.
func (s *Scheduler) Init(population []genome.Individual) {
	s.creatures = make([]*creature, len(population))
	s.simTime = 0
	spawn := lin.V3{X: 0, Y: 5, Z: 0}
	for i, ind := range population {
		c := &creature{individual: ind}
		world := physics.NewWorld(s.cfg.Scene)
		result, err := morph.Instantiate(ind.Genome.Morphology, spawn, world)
		if err != nil {
			c.failed = true
			c.disqualified = true
			s.creatures[i] = c
			continue
		}
		c.world = world
		c.result = result
		c.evaluator = brain.NewEvaluator(ind.Genome.Brain)
		c.activations = c.evaluator.InitialActivations()
		c.jointParams = make(map[int]*genome.JointParams)
		for _, n := range ind.Genome.Morphology {
			if n.JointParams != nil {
				c.jointParams[n.ID] = n.JointParams
			}
		}
		if root := world.Body(result.RootID); root != nil {
			c.startRootX = root.Pos.X
			c.frozenX = root.Pos.X
			c.peakHeight = root.Pos.Y
		}
		s.creatures[i] = c
	}
	s.observer.OnReady()
}

// Run advances every creature for ticks fixed outer steps and returns
// the accumulated metrics, in population order. It is equivalent to
// RunContext with a context.Background().
func (s *Scheduler) Run(ticks int) []genome.Metrics {
	metrics, _ := s.RunContext(context.Background(), ticks)
	return metrics
}

// RunContext is Run with cooperative cancellation: ctx is checked at
// every substep boundary, so an abort interrupts the window at the next
// substep rather than running it to completion. The second return value
// reports whether the full window ran; on false, metrics reflect
// whatever ticks completed before cancellation.
func (s *Scheduler) RunContext(ctx context.Context, ticks int) ([]genome.Metrics, bool) {
	steps := int(math.Ceil(s.cfg.SimulationSpeed))
	if steps > 5 {
		steps = 5
	}
	if steps < 1 {
		steps = 1
	}

	completed := true
outer:
	for tick := 0; tick < ticks; tick++ {
		for sub := 0; sub < steps; sub++ {
			if ctx.Err() != nil {
				completed = false
				break outer
			}
			for _, c := range s.creatures {
				if c.failed || c.disqualified {
					continue
				}
				s.stepCreature(c)
			}
			s.simTime += fixedDt
		}
		s.observer.OnUpdate(s.simTime, 1/fixedDt)
		s.observer.OnTick(tick, s.currentTransforms())
	}

	metrics := make([]genome.Metrics, len(s.creatures))
	for i, c := range s.creatures {
		metrics[i] = s.finalize(c)
	}
	return metrics, completed
}

// computeSensors builds one tick's sensor reading from c's current
// physics state: RootY and RootLinVelX come from the root body,
// JointAngVel is |ω.x|+|ω.y|+|ω.z| of the first joint's child body
// itself (not relative to its parent), or 0 if the morphology has no
// joints.
func computeSensors(c *creature) brain.Sensors {
	root := c.world.Body(c.result.RootID)
	sensors := brain.Sensors{RootY: root.Pos.Y, RootLinVelX: root.LinVel.X}
	if len(c.result.Joints) > 0 {
		j0 := c.result.Joints[0]
		if child := c.world.Body(j0.ChildID); child != nil {
			sensors.JointAngVel = math.Abs(child.AngVel.X) + math.Abs(child.AngVel.Y) + math.Abs(child.AngVel.Z)
		}
	}
	return sensors
}

func (s *Scheduler) stepCreature(c *creature) {
	sensors := computeSensors(c)
	c.activations = c.evaluator.Tick(c.activations, sensors, s.simTime)

	for _, j := range c.result.Joints {
		if target, ok := c.evaluator.ActuatorTarget(j.ChildID, c.activations, amp(c.jointParams[j.ChildID])); ok {
			j.Target = target
		} else if jp := c.jointParams[j.ChildID]; jp != nil {
			j.Target = math.Sin(s.simTime*jp.Speed+jp.Phase) * jp.Amp
		} else {
			j.Target = 0
		}
	}

	newlyDQ := c.world.Step(fixedDt)
	c.totalTicks++

	dq := false
	for _, id := range newlyDQ {
		if id == c.result.RootID {
			dq = true
		}
	}
	if dq {
		c.disqualified = true
		return
	}

	c.aliveTicks++
	root := c.world.Body(c.result.RootID)
	c.frozenX = root.Pos.X
	c.sumSpeed += lin.Len(root.LinVel)
	c.sumUpright += lin.Rotate(root.Rot, lin.V3{X: 0, Y: 1, Z: 0}).Y
	if root.Pos.Y > c.peakHeight {
		c.peakHeight = root.Pos.Y
	}
	touching := false
	for _, id := range c.result.BodyOrder {
		if id == c.result.RootID {
			continue
		}
		b := c.world.Body(id)
		if b.Pos.Y-b.HalfExtent.Y <= 1e-3 {
			touching = true
			break
		}
	}
	if touching {
		c.contactHits++
	}
}

func amp(jp *genome.JointParams) float64 {
	if jp == nil {
		return 1
	}
	return jp.Amp
}

func (s *Scheduler) finalize(c *creature) genome.Metrics {
	if c.failed {
		return genome.Metrics{Disqualified: true}
	}
	m := genome.Metrics{
		Displacement:     c.frozenX - c.startRootX,
		RuntimeAlive:     float64(c.aliveTicks) * fixedDt,
		PeakHeight:       c.peakHeight,
		Disqualified:     c.disqualified,
		FootContactRatio: safeDiv(float64(c.contactHits), float64(c.totalTicks)),
		MeanSpeed:        safeDiv(c.sumSpeed, float64(c.aliveTicks)),
		MeanUpright:      safeDiv(c.sumUpright, float64(c.aliveTicks)),
	}
	return m
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// currentTransforms packs every still-active creature's Transforms
// output, keyed by population index, for one OnTick broadcast.
func (s *Scheduler) currentTransforms() map[int][]float64 {
	out := make(map[int][]float64, len(s.creatures))
	for i, c := range s.creatures {
		if c.failed || c.disqualified {
			continue
		}
		out[i] = s.Transforms(i)
	}
	return out
}

// Transforms packs [x,y,z,qx,qy,qz,qw] per body, in the creature's
// stable creation order, for transform broadcast to observers.
func (s *Scheduler) Transforms(creatureIndex int) []float64 {
	if creatureIndex < 0 || creatureIndex >= len(s.creatures) {
		return nil
	}
	c := s.creatures[creatureIndex]
	if c.failed {
		return nil
	}
	buf := make([]float64, 0, 7*len(c.result.BodyOrder))
	for _, id := range c.result.BodyOrder {
		b := c.world.Body(id)
		buf = append(buf, b.Pos.X, b.Pos.Y, b.Pos.Z, b.Rot.X, b.Rot.Y, b.Rot.Z, b.Rot.W)
	}
	return buf
}
