package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiostracker/appcore"
)

func bootCore(t *testing.T) (*appcore.AppCore, string) {
	t.Helper()
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{Addr: "127.0.0.1:0"})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())
	t.Cleanup(func() { core.Destroy(context.Background()) })

	mod, ok := core.GetModule(ModuleName).(*Module)
	require.True(t, ok)
	require.NotEmpty(t, mod.Addr())
	return core, "http://" + mod.Addr()
}

func TestHealthEndpoint(t *testing.T) {
	_, base := bootCore(t)

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestModulesEndpointReportsStatuses(t *testing.T) {
	_, base := bootCore(t)

	resp, err := http.Get(base + "/modules")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var statuses map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statuses))
	assert.Equal(t, "ready", statuses[ModuleName])
}

func TestStateEndpointServesSnapshot(t *testing.T) {
	core, base := bootCore(t)
	require.NoError(t, core.SetState("library.count", 42))

	resp, err := http.Get(base + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))

	library, ok := state["library"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 42, library["count"])

	// The module publishes its bound address for collaborators.
	httpState, ok := state["httpapi"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, httpState["addr"])
}

func TestDestroyReleasesSubscriptionsWhenShutdownFails(t *testing.T) {
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{Addr: "127.0.0.1:0"})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	require.True(t, result.AllReady())

	mod, ok := core.GetModule(ModuleName).(*Module)
	require.True(t, ok)
	_, err = mod.On("library:changed", func(appcore.Event) error { return nil })
	require.NoError(t, err)

	// A half-written request keeps the connection active, so shutdown under
	// an already-cancelled context cannot complete.
	conn, err := net.Dial("tcp", mod.Addr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("GET /healthz HTTP/1.1\r\nHost: localhost\r\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, mod.Destroy(ctx))
	assert.Equal(t, 0, core.Bus().SubscriberCount("library:changed"),
		"a failed teardown must still release tracked subscriptions")
}

func TestBindFailureFailsInit(t *testing.T) {
	core := appcore.New(nil)
	require.NoError(t, core.Register(ModuleName, New(Config{Addr: "256.0.0.1:99999"})))

	result, err := core.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ModuleName}, result.Failed)
}
