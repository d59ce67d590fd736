package appcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// themeModule is a small but realistic module built on the BaseModule
// helper: it mirrors a state path into an event and exposes a typed API to
// collaborators.
type themeModule struct {
	BaseModule
	current string
}

func newThemeModule(core *AppCore) Module {
	return &themeModule{BaseModule: NewBaseModule(core, "theme")}
}

func (m *themeModule) Init(context.Context) error {
	if saved, ok := m.GetState("settings.theme").(string); ok {
		m.current = saved
	} else {
		m.current = "light"
	}

	_, err := m.SubscribeState("settings.theme", func(change StateChange) {
		if next, ok := change.NewValue.(string); ok {
			m.current = next
			m.Emit("theme:changed", next)
		}
	})
	return err
}

func (m *themeModule) Destroy(context.Context) error {
	m.ReleaseSubscriptions()
	return nil
}

func (m *themeModule) Current() string { return m.current }

func TestBaseModuleDelegation(t *testing.T) {
	core := New(nil)
	require.NoError(t, core.SetState("settings.theme", "dark"))
	require.NoError(t, core.Register("theme", newThemeModule))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())

	theme, ok := core.GetModule("theme").(*themeModule)
	require.True(t, ok)
	assert.Equal(t, "dark", theme.Current())

	var events []Event
	_, err = core.On("theme:changed", func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, core.SetState("settings.theme", "sepia"))
	assert.Equal(t, "sepia", theme.Current())
	require.Len(t, events, 1)
	assert.Equal(t, "sepia", events[0].Payload)
	assert.Equal(t, "theme", events[0].Source, "module emissions carry the module name")
}

func TestBaseModuleReleaseSubscriptions(t *testing.T) {
	core := New(nil)
	base := NewBaseModule(core, "m")

	var busCalls, stateCalls int
	_, err := base.On("evt", func(Event) error {
		busCalls++
		return nil
	})
	require.NoError(t, err)
	_, err = base.SubscribeState("k", func(StateChange) { stateCalls++ })
	require.NoError(t, err)

	core.Emit("evt", nil)
	require.NoError(t, core.SetState("k", 1))

	base.ReleaseSubscriptions()
	base.ReleaseSubscriptions() // idempotent

	core.Emit("evt", nil)
	require.NoError(t, core.SetState("k", 2))

	assert.Equal(t, 1, busCalls)
	assert.Equal(t, 1, stateCalls)
}

func TestBaseModuleOptionalCollaborator(t *testing.T) {
	core := New(nil)
	base := NewBaseModule(core, "m")

	// Absence is a normal case, never a crash.
	assert.Nil(t, base.GetModule("not-registered"))
}
