package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiostracker/appcore"
)

func writeSettings(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

func TestInitMirrorsSettingsIntoState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeSettings(t, path, "theme: dark\nnotify:\n  email: true\n")

	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{Path: path})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())
	defer core.Destroy(context.Background())

	assert.Equal(t, "dark", core.GetState("settings.theme"))
	assert.Equal(t, true, core.GetState("settings.notify.email"))
}

func TestFileChangeReloadsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeSettings(t, path, "theme: dark\n")

	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{Path: path})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())
	defer core.Destroy(context.Background())

	reloaded := make(chan struct{}, 1)
	_, err = core.On(EventSettingsReloaded, func(appcore.Event) error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	writeSettings(t, path, "theme: sepia\n")

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("settings change was never observed")
	}
	assert.Equal(t, "sepia", core.GetState("settings.theme"))
}

func TestInitFailsOnMissingFile(t *testing.T) {
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{
		Path: filepath.Join(t.TempDir(), "absent.yaml"),
	})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ModuleName}, result.Failed)
}

func TestCustomStatePrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeSettings(t, path, "volume: 7\n")

	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{Path: path, StatePrefix: "prefs"})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())
	defer core.Destroy(context.Background())

	assert.Equal(t, 7, core.GetState("prefs.volume"))
}
