package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netroomlab/netroom/pkg/api"
	"github.com/netroomlab/netroom/pkg/bus"
	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/inventory"
	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/metrics"
	"github.com/netroomlab/netroom/pkg/phase"
	"github.com/netroomlab/netroom/pkg/publish"
	"github.com/netroomlab/netroom/pkg/room"
)

// TestEditorWorkflow walks the full authoring journey: seed a draft room,
// place devices in the editor layout, publish, then play the published room
// through the firewall and phase endpoints.
func TestEditorWorkflow(t *testing.T) {
	roomsDir := t.TempDir()
	assetDir := t.TempDir()

	// Assets referenced by the layout.
	writeAsset(t, assetDir, "network/router.glb")
	writeAsset(t, assetDir, "servers/rack.glb")

	store := room.NewStore(roomsDir)
	require.NoError(t, store.WriteSource("demo-lab", draftRoom("demo-lab")))

	log := logging.NewNopLogger()
	reg := metrics.NewRegistry()
	b := bus.New()
	defer b.Shutdown()

	flows := flow.NewRunner(draftRoom("demo-lab").Flows, b, log)
	phases := phase.NewRunner(draftRoom("demo-lab").Phases, b, flows, log)

	audit, err := publish.OpenLog(t.TempDir())
	require.NoError(t, err)
	defer audit.Close()

	assets := inventory.NewDir(assetDir)
	publisher := publish.NewPublisher(store, assets, true, log, reg, audit)

	server := api.NewServer(api.Options{
		Addr:       "127.0.0.1:0",
		DesignMode: true,
		Store:      store,
		Publisher:  publisher,
		Scanner:    inventory.NewScanner(assetDir, log, reg),
		Rules:      firewall.NewRuleSet(firewall.DefaultRules()),
		Phases:     phases,
		Audit:      audit,
		Log:        log,
		Metrics:    reg,
	})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	t.Log("Step 1: the inventory lists the available models")
	var inv api.InventoryResponse
	getJSON(t, ts.URL+"/inventory", &inv)
	require.True(t, inv.OK)
	assert.Len(t, inv.Items, 2)
	assert.Contains(t, inv.Categories, "network")

	t.Log("Step 2: publish the editor layout")
	layout := publish.Layout{
		"a": {ID: "router-1000000001", Category: "router", Model: "/assets/network/router.glb"},
		"b": {ID: "server-1000000002", Category: "server", Model: "/assets/servers/rack.glb", Label: "Primary DNS"},
	}
	var pub api.PublishResponse
	postJSON(t, ts.URL+"/rooms/demo-lab/publish", map[string]any{"layout": layout}, http.StatusOK, &pub)
	require.True(t, pub.OK)
	assert.Equal(t, 2, pub.Result.DevicesWritten)

	t.Log("Step 3: the source document now carries canonical devices")
	merged, err := store.LoadSource("demo-lab")
	require.NoError(t, err)
	require.Len(t, merged.Devices, 2)
	assert.Equal(t, "router1", merged.Devices[0].Alias)
	assert.Equal(t, "dns1", merged.Devices[1].Alias)

	t.Log("Step 4: promote the draft and load it as a player")
	require.NoError(t, store.WriteFinal("demo-lab", merged))
	var got api.RoomResponse
	getJSON(t, ts.URL+"/rooms/demo-lab", &got)
	require.True(t, got.OK)
	assert.Len(t, got.Room.Objects, 2)

	t.Log("Step 5: the seed firewall leaves SSH open; a student closes it")
	sshProbe := firewall.Traffic{SrcZone: firewall.ZoneWAN, DstZone: firewall.ZoneLAN, Protocol: firewall.ProtocolTCP, Port: 22}
	var eval api.EvaluateResponse
	postJSON(t, ts.URL+"/firewall/evaluate", sshProbe, http.StatusOK, &eval)
	assert.Equal(t, firewall.ActionAllow, eval.Decision.Action)

	fixed := api.RulesRequest{Rules: []firewall.Rule{
		{ID: "deny-wan-ssh", SrcZone: firewall.ZoneWAN, DstZone: firewall.ZoneLAN, Protocol: firewall.ProtocolTCP, Port: 22, Action: firewall.ActionDeny},
	}}
	var rules api.RulesResponse
	putJSON(t, ts.URL+"/firewall/rules", fixed, http.StatusOK, &rules)
	require.True(t, rules.OK)

	postJSON(t, ts.URL+"/firewall/evaluate", sshProbe, http.StatusOK, &eval)
	assert.Equal(t, firewall.ActionDeny, eval.Decision.Action)
	assert.Equal(t, 0, eval.Decision.MatchedIndex)

	t.Log("Step 6: run the intro phase")
	var phaseResp api.PhaseResponse
	postJSON(t, ts.URL+"/phases/intro/run", nil, http.StatusOK, &phaseResp)
	require.True(t, phaseResp.OK)

	t.Log("Step 7: the audit log recorded the publish")
	var publishes api.PublishesResponse
	getJSON(t, ts.URL+"/publishes", &publishes)
	require.True(t, publishes.OK)
	require.Len(t, publishes.Entries, 1)
	assert.Equal(t, "success", publishes.Entries[0].Status)
	assert.Equal(t, 2, publishes.Entries[0].Devices)
}

// TestPublishFailureJourney exercises the aggregate missing-asset report and
// verifies a failed publish leaves the room untouched.
func TestPublishFailureJourney(t *testing.T) {
	roomsDir := t.TempDir()
	assetDir := t.TempDir()

	store := room.NewStore(roomsDir)
	require.NoError(t, store.WriteSource("demo-lab", draftRoom("demo-lab")))

	log := logging.NewNopLogger()
	reg := metrics.NewRegistry()
	b := bus.New()
	defer b.Shutdown()

	flows := flow.NewRunner(nil, b, log)
	phases := phase.NewRunner(nil, b, flows, log)

	server := api.NewServer(api.Options{
		Addr:       "127.0.0.1:0",
		DesignMode: true,
		Store:      store,
		Publisher:  publish.NewPublisher(store, inventory.NewDir(assetDir), true, log, reg, nil),
		Scanner:    inventory.NewScanner(assetDir, log, reg),
		Rules:      firewall.NewRuleSet(firewall.DefaultRules()),
		Phases:     phases,
		Log:        log,
		Metrics:    reg,
	})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	layout := publish.Layout{
		"a": {ID: "router-1000000001", Category: "router", Model: "/assets/network/router.glb"},
		"b": {ID: "server-1000000002", Category: "server", Model: "/assets/servers/rack.glb"},
	}

	var errResp api.ErrorResponse
	postJSON(t, ts.URL+"/rooms/demo-lab/publish", map[string]any{"layout": layout}, http.StatusConflict, &errResp)
	assert.False(t, errResp.OK)
	require.Len(t, errResp.MissingAssets, 2, "every missing asset must be reported at once")

	merged, err := store.LoadSource("demo-lab")
	require.NoError(t, err)
	assert.Empty(t, merged.Devices, "failed publish must not modify the room")
}

func draftRoom(slug string) *room.Config {
	return &room.Config{
		ID:   slug,
		Meta: room.Meta{Title: "Demo Lab", Summary: "Networking playground"},
		Camera: room.Camera{
			Position: room.Vec3{Y: 4, Z: 8},
			FOV:      50,
		},
		Structure: room.Structure{Width: 12, Depth: 10, Height: 3.5},
		Flows: []flow.Spec{
			{ID: "dns-query", Path: []string{"laptop1", "router1", "dns1"}},
		},
		Phases: []phase.Spec{
			{ID: "intro", Actions: []phase.Action{{Kind: phase.ActionHUDText, Text: "Welcome"}}},
		},
	}
}

func writeAsset(t *testing.T, dir, rel string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("glTF"), 0o644))
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func postJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	doJSON(t, http.MethodPost, url, body, wantStatus, out)
}

func putJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	doJSON(t, http.MethodPut, url, body, wantStatus, out)
}

func doJSON(t *testing.T, method, url string, body any, wantStatus int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, wantStatus, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
