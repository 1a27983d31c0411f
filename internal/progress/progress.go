// Package progress computes the perceived progress of a deployment.
//
// The backend reports nothing between accepting a create request and
// returning the instance URL, so progress is a pure function of elapsed time
// over a fixed display duration. Snapshots never move backwards.
package progress

import (
	"context"
	"math"
	"time"

	"k8s.io/utils/clock"
)

// Stage is one step of a deployment as shown to the user.
type Stage string

const (
	StageAllocate        Stage = "allocate"
	StageInitialize      Stage = "initialize"
	StageInstallTemplate Stage = "install_template"
	StageConfigure       Stage = "configure"
	StageMapDomain       Stage = "map_domain"
)

var stageOrder = []Stage{
	StageAllocate,
	StageInitialize,
	StageInstallTemplate,
	StageConfigure,
	StageMapDomain,
}

var stageLabels = map[Stage]string{
	StageAllocate:        "Allocating resources",
	StageInitialize:      "Initializing database",
	StageInstallTemplate: "Installing template",
	StageConfigure:       "Configuring instance",
	StageMapDomain:       "Mapping domain",
}

// Stages returns the stages in display order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// Label returns the human readable name of s.
func (s Stage) Label() string {
	return stageLabels[s]
}

// Status of a stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// StageState pairs a stage with its status.
type StageState struct {
	Stage  Stage  `json:"stage"`
	Label  string `json:"label"`
	Status Status `json:"status"`
}

// Snapshot is the progress shown at one instant.
type Snapshot struct {
	Percent int          `json:"percent"`
	Stages  []StageState `json:"stages"`
}

// Done reports whether every stage has completed.
func (s Snapshot) Done() bool {
	return s.Percent >= 100
}

// Initial is the snapshot at the start of a run: 0% and all stages pending.
func Initial() Snapshot {
	return At(0)
}

// At returns the snapshot for a fraction of the display duration. Fractions
// are clamped to [0, 1]. Stage i of n completes once fraction reaches
// (i+1)/n; the first incomplete stage is active once fraction is above zero.
func At(fraction float64) Snapshot {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	n := len(stageOrder)
	completed := int(math.Floor(fraction * float64(n)))
	snap := Snapshot{
		Percent: int(math.Floor(fraction * 100)),
		Stages:  make([]StageState, n),
	}
	for i, st := range stageOrder {
		status := StatusPending
		switch {
		case i < completed:
			status = StatusCompleted
		case i == completed && fraction > 0:
			status = StatusActive
		}
		snap.Stages[i] = StageState{Stage: st, Label: st.Label(), Status: status}
	}
	return snap
}

// Policy is the minimum-display policy of the animation.
type Policy struct {
	// Duration is how long the animation runs before reaching 100%.
	Duration time.Duration
	// Tick is the refresh interval.
	Tick time.Duration
}

// DefaultPolicy matches the dashboard's perceived deployment time.
var DefaultPolicy = Policy{Duration: 20 * time.Second, Tick: 200 * time.Millisecond}

// Animation drives snapshots from a clock.
type Animation struct {
	policy Policy
	clock  clock.WithTicker
}

// NewAnimation creates an animation. A nil clock uses the wall clock.
func NewAnimation(policy Policy, clk clock.WithTicker) *Animation {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if policy.Tick <= 0 {
		policy.Tick = DefaultPolicy.Tick
	}
	return &Animation{policy: policy, clock: clk}
}

// Policy returns the animation's display policy.
func (a *Animation) Policy() Policy {
	return a.policy
}

// Run emits the initial snapshot, then one per tick, and returns nil after
// emitting the 100% snapshot once the duration has elapsed. It returns
// ctx.Err() if ctx ends first; no further snapshots are emitted after that.
func (a *Animation) Run(ctx context.Context, onTick func(Snapshot)) error {
	start := a.clock.Now()
	last := Initial()
	onTick(last)

	if a.policy.Duration <= 0 {
		onTick(At(1))
		return nil
	}

	ticker := a.clock.NewTicker(a.policy.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		elapsed := a.clock.Since(start)
		snap := At(float64(elapsed) / float64(a.policy.Duration))
		if snap.Percent < last.Percent {
			snap = last
		}
		last = snap
		onTick(snap)

		if snap.Done() {
			return nil
		}
	}
}
