package appcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchModule coordinates with the theme module purely through the core:
// state reads, bus events, and optional-collaborator lookup. No direct
// references between modules.
type searchModule struct {
	BaseModule
	queries []string
}

func newSearchModule(core *AppCore) Module {
	return &searchModule{BaseModule: NewBaseModule(core, "search")}
}

func (m *searchModule) Init(context.Context) error {
	_, err := m.On("search:query", func(e Event) error {
		query, _ := e.Payload.(string)
		m.queries = append(m.queries, query)
		return m.SetState("search.last", query)
	})
	return err
}

func (m *searchModule) Destroy(context.Context) error {
	m.ReleaseSubscriptions()
	return nil
}

func TestCrossModuleCoordinationThroughCore(t *testing.T) {
	core := New(nil)
	require.NoError(t, core.SetState("settings.theme", "dark"))
	require.NoError(t, core.Register("state", moduleFactory(&testModule{name: "state"})))
	require.NoError(t, core.Register("theme", newThemeModule, "state"))
	require.NoError(t, core.Register("search", newSearchModule, "state"))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())

	core.Emit("search:query", "brandon sanderson")

	search, ok := core.GetModule("search").(*searchModule)
	require.True(t, ok)
	assert.Equal(t, []string{"brandon sanderson"}, search.queries)
	assert.Equal(t, "brandon sanderson", core.GetState("search.last"))

	// Optional collaborator: the search module can reach theme only through
	// the registry, and must tolerate absence.
	theme, ok := search.GetModule("theme").(*themeModule)
	require.True(t, ok)
	assert.Equal(t, "dark", theme.Current())

	core.Destroy(context.Background())
	assert.Nil(t, core.GetModule("search"), "destroyed modules are no longer ready")
}

func TestDestroyCancelsInFlightInit(t *testing.T) {
	core := New(nil)

	started := make(chan struct{})
	require.NoError(t, core.Register("slowboot", moduleFactory(&testModule{
		name: "slowboot",
		initFn: func(ctx context.Context) error {
			close(started)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return errors.New("init was never cancelled")
			}
		},
	})))

	initDone := make(chan *InitResult, 1)
	go func() {
		result, err := core.Init(context.Background())
		if err == nil {
			initDone <- result
		}
	}()

	<-started
	core.Destroy(context.Background())

	select {
	case result := <-initDone:
		assert.Equal(t, []string{"slowboot"}, result.Failed,
			"teardown must unwind suspended init work")
	case <-time.After(2 * time.Second):
		t.Fatal("init did not observe teardown cancellation")
	}
}

func TestCoreOptions(t *testing.T) {
	cfg := &CoreConfig{InitTimeout: time.Second, DestroyTimeout: time.Second}
	core := New(nil, WithConfig(cfg))
	assert.Equal(t, time.Second, core.Config().InitTimeout)

	// nil config is ignored, defaults stay.
	core = New(nil, WithConfig(nil))
	assert.Equal(t, DefaultCoreConfig().InitTimeout, core.Config().InitTimeout)
}
