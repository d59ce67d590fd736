// Package scheduler emits bus events on cron schedules. Modules that need
// periodic work subscribe to the configured event names instead of running
// their own timers, which keeps timer ownership in one place and lets the
// registry tear it down cleanly.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/audiostracker/appcore"
)

// ModuleName is the registration name for this module.
const ModuleName = "scheduler"

// Module runs the cron loop.
type Module struct {
	appcore.BaseModule
	cfg  Config
	cron *cron.Cron
}

// New returns a factory for the scheduler module.
func New(cfg Config) appcore.ModuleFactory {
	return func(core *appcore.AppCore) appcore.Module {
		return &Module{
			BaseModule: appcore.NewBaseModule(core, ModuleName),
			cfg:        cfg,
		}
	}
}

// Init registers every configured job and starts the cron loop. An invalid
// cron spec fails init; the module never half-starts.
func (m *Module) Init(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())
	for _, job := range m.cfg.Jobs {
		event := job.Event
		if _, err := c.AddFunc(job.Spec, func() {
			m.Emit(event, time.Now())
		}); err != nil {
			return fmt.Errorf("job %q with spec %q: %w", job.Event, job.Spec, err)
		}
		m.Logger().Debug("Scheduled job", "event", job.Event, "spec", job.Spec)
	}

	c.Start()
	m.cron = c
	return nil
}

// Destroy stops the cron loop and waits for running jobs, bounded by ctx.
// Idempotent.
func (m *Module) Destroy(ctx context.Context) error {
	if m.cron == nil {
		return nil
	}
	stopCtx := m.cron.Stop()
	m.cron = nil

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
	m.ReleaseSubscriptions()
	return nil
}
