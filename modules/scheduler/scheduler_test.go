package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiostracker/appcore"
)

func TestScheduledJobEmitsEvent(t *testing.T) {
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{
		Jobs: []JobConfig{{Spec: "* * * * * *", Event: "refresh:tick"}},
	})))

	ticks := make(chan appcore.Event, 4)
	_, err := core.On("refresh:tick", func(e appcore.Event) error {
		select {
		case ticks <- e:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())
	defer core.Destroy(context.Background())

	select {
	case e := <-ticks:
		_, ok := e.Payload.(time.Time)
		assert.True(t, ok, "tick payload should be the tick time")
		assert.Equal(t, ModuleName, e.Source)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job never fired")
	}
}

func TestInvalidCronSpecFailsInit(t *testing.T) {
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{
		Jobs: []JobConfig{{Spec: "not a cron spec", Event: "x"}},
	})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ModuleName}, result.Failed)
}

func TestDestroyIsIdempotent(t *testing.T) {
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())

	mod := core.GetModule(ModuleName)
	require.NotNil(t, mod)
	require.NoError(t, mod.Destroy(context.Background()))
	require.NoError(t, mod.Destroy(context.Background()))
}
