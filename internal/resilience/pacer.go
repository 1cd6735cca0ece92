package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// PacerConfig describes the anti-throttling behavior of a driver session.
// The delays exist because the external sources rate-limit or bot-detect
// aggressive clients; they are not a correctness mechanism.
type PacerConfig struct {
	// UnitDelay is the fixed minimum pause between units of work.
	UnitDelay time.Duration

	// UnitJitter is the upper bound of the random extra pause added to
	// UnitDelay.
	UnitJitter time.Duration

	// LongBreakEvery triggers an extended pause after this many successful
	// units (0 disables long breaks).
	LongBreakEvery int

	// LongBreakMin/Max bound the extended pause.
	LongBreakMin time.Duration
	LongBreakMax time.Duration

	// CooldownAfter is the number of consecutive transient failures that
	// triggers a cooldown (0 disables cooldowns).
	CooldownAfter int

	// Cooldown is how long to pause when the failure threshold is hit.
	Cooldown time.Duration
}

// Pacer applies a PacerConfig at the defined points of a driver loop:
// after each unit, after each success, and after each transient failure.
// It is not safe for concurrent use; drivers are single-threaded by design.
type Pacer struct {
	cfg       PacerConfig
	successes int
	failures  int

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewPacer creates a Pacer for one driver session.
func NewPacer(cfg PacerConfig) *Pacer {
	return &Pacer{cfg: cfg, sleep: sleepCtx}
}

// AfterUnit pauses between units of work: fixed floor plus random jitter.
func (p *Pacer) AfterUnit(ctx context.Context) {
	d := p.cfg.UnitDelay
	if p.cfg.UnitJitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.cfg.UnitJitter)))
	}
	if d > 0 {
		p.sleep(ctx, d)
	}
}

// AfterSuccess resets the failure streak and, every LongBreakEvery
// successes, takes an extended break.
func (p *Pacer) AfterSuccess(ctx context.Context) {
	p.failures = 0
	p.successes++
	if p.cfg.LongBreakEvery <= 0 || p.successes%p.cfg.LongBreakEvery != 0 {
		return
	}
	d := p.cfg.LongBreakMin
	if p.cfg.LongBreakMax > p.cfg.LongBreakMin {
		d += time.Duration(rand.Int64N(int64(p.cfg.LongBreakMax - p.cfg.LongBreakMin)))
	}
	zap.L().Info("pacer: taking extended break",
		zap.Int("successes", p.successes),
		zap.Duration("break", d),
	)
	p.sleep(ctx, d)
}

// AfterTransientFailure counts a network-shaped failure toward the cooldown
// threshold and pauses when it is reached. Returns true when a cooldown
// was taken, so the caller can checkpoint beforehand via OnCooldown.
func (p *Pacer) AfterTransientFailure(ctx context.Context, onCooldown func()) bool {
	if p.cfg.CooldownAfter <= 0 {
		return false
	}
	p.failures++
	if p.failures < p.cfg.CooldownAfter {
		return false
	}
	zap.L().Warn("pacer: consecutive transient failures, cooling down",
		zap.Int("failures", p.failures),
		zap.Duration("cooldown", p.cfg.Cooldown),
	)
	if onCooldown != nil {
		onCooldown()
	}
	p.sleep(ctx, p.cfg.Cooldown)
	p.failures = 0
	return true
}

// ResetFailures clears the streak for failures that are conclusive about
// the track rather than the network.
func (p *Pacer) ResetFailures() { p.failures = 0 }

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
