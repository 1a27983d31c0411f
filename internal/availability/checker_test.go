package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"odoodeploy.io/console/internal/config"
	"odoodeploy.io/console/internal/pkg/logger"
)

func init() {
	_ = logger.Init(config.LogConfig{Level: "error", Format: "json"})
}

type fakeProber struct {
	mu        sync.Mutex
	calls     []string
	available bool
	err       error
	block     chan struct{}
}

func (p *fakeProber) CheckAvailability(ctx context.Context, name string) (bool, error) {
	p.mu.Lock()
	p.calls = append(p.calls, name)
	block := p.block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return p.available, p.err
}

func (p *fakeProber) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) Sink(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) Last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return State{}
	}
	return r.states[len(r.states)-1]
}

func (r *recorder) Verdicts() []Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Verdict, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Verdict)
	}
	return out
}

func TestChecker_DebouncesKeystrokes(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	p := &fakeProber{available: true}
	rec := &recorder{}
	c := NewChecker(context.Background(), p, rec.Sink, WithClock(clk))
	c.SetSuffix("odoo.example.com")

	for _, name := range []string{"sho", "shop", "shop-", "shop-1", "shop-12"} {
		c.Schedule(name)
		clk.Step(100 * time.Millisecond)
	}
	assert.Empty(t, p.Calls())

	// 100ms + 399ms after the last keystroke: still quiet.
	clk.Step(399 * time.Millisecond)
	assert.Never(t, func() bool { return len(p.Calls()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Step(time.Millisecond)
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"shop-12"}, p.Calls())

	require.Eventually(t, func() bool { return rec.Last().Verdict == VerdictAvailable }, time.Second, 5*time.Millisecond)
	last := rec.Last()
	assert.True(t, last.Available)
	assert.Equal(t, "shop-12.odoo.example.com", last.ResolvedDomain)

	clk.Step(time.Second)
	assert.Len(t, p.Calls(), 1)
}

func TestChecker_InvalidNameShortCircuits(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	p := &fakeProber{available: true}
	rec := &recorder{}
	c := NewChecker(context.Background(), p, rec.Sink, WithClock(clk))

	c.Schedule("shop")
	c.Schedule("Shop")

	last := rec.Last()
	assert.Equal(t, VerdictInvalid, last.Verdict)
	assert.False(t, last.Available)
	assert.NotEmpty(t, last.Message)

	clk.Step(time.Second)
	assert.Never(t, func() bool { return len(p.Calls()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestChecker_Verdicts(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		err       error
		suffix    string
		want      State
	}{
		{
			name:      "available without suffix",
			available: true,
			want:      State{Name: "shop", Verdict: VerdictAvailable, Available: true, Message: MessageAvailable},
		},
		{
			name:      "available with suffix",
			available: true,
			suffix:    "apps.test",
			want: State{
				Name: "shop", Verdict: VerdictAvailable, Available: true,
				Message: MessageAvailable, ResolvedDomain: "shop.apps.test",
			},
		},
		{
			name: "taken",
			want: State{Name: "shop", Verdict: VerdictTaken, Message: MessageTaken},
		},
		{
			name:      "backend failure is unverified",
			available: true,
			err:       errors.New("connection refused"),
			want:      State{Name: "shop", Verdict: VerdictUnverified, Message: MessageUnverified},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProber{available: tt.available, err: tt.err}
			rec := &recorder{}
			c := NewChecker(context.Background(), p, rec.Sink)
			c.SetSuffix(tt.suffix)

			got := c.CheckNow(context.Background(), "shop")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, rec.Last())
			assert.Equal(t, []Verdict{VerdictChecking, tt.want.Verdict}, rec.Verdicts())
		})
	}
}

func TestChecker_NewerKeystrokeDropsInFlightResult(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	p := &fakeProber{available: true, block: make(chan struct{})}
	rec := &recorder{}
	c := NewChecker(context.Background(), p, rec.Sink, WithClock(clk))

	done := make(chan State, 1)
	go func() { done <- c.CheckNow(context.Background(), "first") }()
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	c.Schedule("second")

	select {
	case st := <-done:
		assert.Equal(t, VerdictPending, st.Verdict)
	case <-time.After(time.Second):
		t.Fatal("in-flight probe was not cancelled")
	}

	for _, v := range rec.Verdicts() {
		assert.NotEqual(t, VerdictUnverified, v, "stale failure must not reach the sink")
	}
	assert.Equal(t, VerdictPending, rec.Last().Verdict)
	assert.Equal(t, "second", rec.Last().Name)
}

func TestChecker_StopCancelsPending(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	p := &fakeProber{available: true}
	c := NewChecker(context.Background(), p, nil, WithClock(clk))

	c.Schedule("shop")
	c.Stop()
	clk.Step(time.Second)
	c.Schedule("other")
	clk.Step(time.Second)

	assert.Never(t, func() bool { return len(p.Calls()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestResolveDomain(t *testing.T) {
	assert.Equal(t, "", ResolveDomain("shop", ""))
	assert.Equal(t, "shop.odoo.io", ResolveDomain("shop", "odoo.io"))
}

func TestChecker_CancelKeepsCheckerUsable(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	p := &fakeProber{available: true}
	c := NewChecker(context.Background(), p, nil, WithClock(clk))

	c.Schedule("shop")
	c.Cancel()
	clk.Step(time.Second)
	assert.Never(t, func() bool { return len(p.Calls()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	c.Schedule("other")
	clk.Step(time.Second)
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"other"}, p.Calls())
}
