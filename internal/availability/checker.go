// Package availability implements the debounced instance-name availability
// probe used by the deployment wizard.
//
// Keystrokes call Schedule. A name that fails local validation is reported
// immediately without touching the network. A valid name is probed once the
// input has been quiet for the debounce interval; a newer probe cancels the
// older in-flight one and stale results are never delivered.
package availability

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/metrics"
	"odoodeploy.io/console/internal/pkg/schedule"
	"odoodeploy.io/console/internal/validation"
)

// DefaultDebounce is the quiet period before a remote probe fires.
const DefaultDebounce = 500 * time.Millisecond

// Verdict classifies the availability of a name.
type Verdict string

const (
	// VerdictPending means a probe is scheduled but has not fired yet.
	VerdictPending    Verdict = "pending"
	VerdictChecking   Verdict = "checking"
	VerdictInvalid    Verdict = "invalid"
	VerdictAvailable  Verdict = "available"
	VerdictTaken      Verdict = "taken"
	VerdictUnverified Verdict = "unverified"
)

// Messages shown for remote verdicts.
const (
	MessageAvailable  = "This name is available"
	MessageTaken      = "This name is already taken"
	MessageUnverified = "Couldn't verify availability, please try again"
)

// State is the availability view of one instance name.
type State struct {
	Name           string  `json:"name"`
	Verdict        Verdict `json:"verdict"`
	Checking       bool    `json:"checking"`
	Available      bool    `json:"available"`
	Message        string  `json:"message"`
	ResolvedDomain string  `json:"resolved_domain,omitempty"`
}

// Prober performs the remote uniqueness check.
type Prober interface {
	CheckAvailability(ctx context.Context, name string) (bool, error)
}

// Sink receives every state the checker produces.
type Sink func(State)

// Option configures a Checker.
type Option func(*Checker)

// WithClock sets the clock driving the debounce timer.
func WithClock(clk clock.WithDelayedExecution) Option {
	return func(c *Checker) { c.clock = clk }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Checker) { c.debounce = d }
}

// Checker is owned by one wizard view. Stop it on teardown.
type Checker struct {
	ctx      context.Context
	prober   Prober
	sink     Sink
	clock    clock.WithDelayedExecution
	debounce time.Duration
	task     *schedule.Task

	mu       sync.Mutex
	suffix   string
	seq      uint64
	inFlight context.CancelFunc
	stopped  bool
}

// NewChecker creates a checker whose probes are bound to ctx.
func NewChecker(ctx context.Context, prober Prober, sink Sink, opts ...Option) *Checker {
	c := &Checker{
		ctx:      ctx,
		prober:   prober,
		sink:     sink,
		clock:    clock.RealClock{},
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = func(State) {}
	}
	c.task = schedule.NewTask(c.clock, c.debounce)
	return c
}

// SetSuffix sets the platform subdomain suffix used to build resolved domains.
func (c *Checker) SetSuffix(suffix string) {
	c.mu.Lock()
	c.suffix = suffix
	c.mu.Unlock()
}

// Schedule records a keystroke. Any pending probe is cancelled and, when
// name is locally valid, a new one is armed.
func (c *Checker) Schedule(name string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.cancelInFlightLocked()
	c.mu.Unlock()

	if res := validation.InstanceName(name); !res.Valid {
		c.task.Cancel()
		c.sink(State{Name: name, Verdict: VerdictInvalid, Message: res.Message})
		return
	}

	c.sink(State{Name: name, Verdict: VerdictPending})
	c.task.Schedule(func() { c.fire(name, seq) })
}

// CheckNow probes name immediately and returns the resulting state. The
// result is also delivered to the sink unless a newer keystroke superseded it.
func (c *Checker) CheckNow(ctx context.Context, name string) State {
	c.task.Cancel()

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.cancelInFlightLocked()
	c.mu.Unlock()

	if res := validation.InstanceName(name); !res.Valid {
		st := State{Name: name, Verdict: VerdictInvalid, Message: res.Message}
		c.sink(st)
		return st
	}
	return c.probe(ctx, name, seq)
}

// Cancel drops the pending and in-flight probes. The checker stays usable.
func (c *Checker) Cancel() {
	c.task.Cancel()

	c.mu.Lock()
	c.seq++
	c.cancelInFlightLocked()
	c.mu.Unlock()
}

// Stop cancels the pending and in-flight probes. Later calls are ignored.
func (c *Checker) Stop() {
	c.task.Cancel()

	c.mu.Lock()
	c.stopped = true
	c.seq++
	c.cancelInFlightLocked()
	c.mu.Unlock()
}

func (c *Checker) fire(name string, seq uint64) {
	c.probe(c.ctx, name, seq)
}

func (c *Checker) probe(parent context.Context, name string, seq uint64) State {
	c.mu.Lock()
	if seq != c.seq || c.stopped {
		c.mu.Unlock()
		return State{Name: name, Verdict: VerdictPending}
	}
	ctx, cancel := context.WithCancel(parent)
	c.inFlight = cancel
	c.mu.Unlock()
	defer cancel()

	c.sink(State{Name: name, Verdict: VerdictChecking, Checking: true})

	available, err := c.prober.CheckAvailability(ctx, name)

	c.mu.Lock()
	if seq != c.seq || c.stopped {
		c.mu.Unlock()
		logger.Debug("dropping stale availability result", zap.String("instance", name))
		return State{Name: name, Verdict: VerdictPending}
	}
	c.inFlight = nil
	suffix := c.suffix
	c.mu.Unlock()

	st := c.verdict(name, suffix, available, err)
	metrics.RecordAvailabilityCheck(string(st.Verdict))
	c.sink(st)
	return st
}

func (c *Checker) verdict(name, suffix string, available bool, err error) State {
	if err != nil {
		logger.Warn("availability check failed",
			zap.String("instance", name),
			zap.Error(err),
		)
		return State{Name: name, Verdict: VerdictUnverified, Message: MessageUnverified}
	}
	if !available {
		return State{Name: name, Verdict: VerdictTaken, Message: MessageTaken}
	}
	return State{
		Name:           name,
		Verdict:        VerdictAvailable,
		Available:      true,
		Message:        MessageAvailable,
		ResolvedDomain: ResolveDomain(name, suffix),
	}
}

func (c *Checker) cancelInFlightLocked() {
	if c.inFlight != nil {
		c.inFlight()
		c.inFlight = nil
	}
}

// ResolveDomain joins an instance name and the platform suffix. It returns
// "" while the suffix is unknown.
func ResolveDomain(name, suffix string) string {
	if suffix == "" {
		return ""
	}
	return name + "." + suffix
}
