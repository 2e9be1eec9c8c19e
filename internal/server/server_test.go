package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openw3/world3/internal/analysis"
	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/sim"
	"github.com/openw3/world3/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	tables, err := lookup.Load()
	require.NoError(t, err)
	st := store.NewMemStore()
	srv := New(sim.NewRunner(tables), st, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	var body map[string]string
	resp := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestParamsSchema(t *testing.T) {
	ts, _ := newTestServer(t)
	var descs []model.ParameterDescriptor
	resp := getJSON(t, ts.URL+"/api/v1/params/schema", &descs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, descs)
	for _, d := range descs {
		assert.NotEmpty(t, d.Field)
		assert.LessOrEqual(t, d.Min, d.Max)
	}
}

func TestScenarioCRUD(t *testing.T) {
	ts, _ := newTestServer(t)

	// Presets are seeded.
	var summaries []store.Summary
	resp := getJSON(t, ts.URL+"/api/v1/scenarios", &summaries)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, summaries)

	// Create.
	p := model.DefaultParams()
	p.Meta.ID = ""
	p.Meta.Name = "My Experiment"
	body, _ := json.Marshal(p)
	resp, err := http.Post(ts.URL+"/api/v1/scenarios", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var created store.Scenario
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, created.Params.Meta.ID, "server must assign an id")
	assert.False(t, created.IsPreset)

	id := created.Params.Meta.ID

	// Get.
	var got store.Scenario
	resp = getJSON(t, ts.URL+"/api/v1/scenarios/"+id, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "My Experiment", got.Params.Meta.Name)

	// Update.
	got.Params.ResourceEfficiency = 3
	body, _ = json.Marshal(got.Params)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/scenarios/"+id, bytes.NewReader(body))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Delete.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/scenarios/"+id, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = getJSON(t, ts.URL+"/api/v1/scenarios/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePresetForbidden(t *testing.T) {
	ts, st := newTestServer(t)

	summaries, err := st.List()
	require.NoError(t, err)
	var presetID string
	for _, s := range summaries {
		if s.IsPreset {
			presetID = s.ID
			break
		}
	}
	require.NotEmpty(t, presetID)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/scenarios/"+presetID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = st.Get(presetID)
	assert.NoError(t, err, "preset must survive the delete attempt")
}

func TestRunScenarioBatch(t *testing.T) {
	ts, st := newTestServer(t)

	p := model.DefaultParams()
	p.Meta.Name = "short"
	p.EndYear = 1920
	require.NoError(t, st.Put(store.Scenario{Params: p}))

	var out sim.Output
	resp, err := http.Post(ts.URL+"/api/v1/scenarios/"+p.Meta.ID+"/run", "application/json", nil)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out.States, 21) // 1900..1920 inclusive
	assert.Equal(t, 1900.0, out.States[0].Time)
	assert.Equal(t, 1920.0, out.States[len(out.States)-1].Time)
}

func TestAnalyzeScenario(t *testing.T) {
	ts, st := newTestServer(t)

	p := model.DefaultParams()
	p.Meta.Name = "indicators"
	p.EndYear = 1960
	require.NoError(t, st.Put(store.Scenario{Params: p}))

	var report analysis.Report
	resp := getJSON(t, ts.URL+"/api/v1/scenarios/"+p.Meta.ID+"/analysis", &report)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Greater(t, report.PeakPopulation, 1.0e9)
	assert.NotEmpty(t, report.Shape)

	resp = getJSON(t, ts.URL+"/api/v1/scenarios/nope/analysis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunScenarioUnknown(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/v1/scenarios/nope/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of type want arrives, failing the test
// when the deadline passes first. Step messages are counted along the way.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (map[string]json.RawMessage, int) {
	t.Helper()
	steps := 0
	deadline := time.Now().Add(15 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var envelope map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &envelope))
		var typ string
		require.NoError(t, json.Unmarshal(envelope["type"], &typ))
		switch typ {
		case want:
			return envelope, steps
		case "sim_step":
			steps++
		case "sim_error":
			t.Fatalf("unexpected sim_error: %s", data)
		}
	}
}

func TestWebSocketStreamRun(t *testing.T) {
	ts, st := newTestServer(t)

	p := model.DefaultParams()
	p.Meta.Name = "stream"
	p.EndYear = 1930
	require.NoError(t, st.Put(store.Scenario{Params: p}))

	conn := dialWS(t, ts)
	start := map[string]any{"type": "start_simulation", "scenario_id": p.Meta.ID}
	require.NoError(t, conn.WriteJSON(start))

	envelope, steps := readUntil(t, conn, "sim_complete")
	assert.Equal(t, 31, steps) // 1900..1930 inclusive

	var total int
	require.NoError(t, json.Unmarshal(envelope["total_steps"], &total))
	assert.Equal(t, steps, total)
}

func TestWebSocketUpdateParamsAck(t *testing.T) {
	ts, st := newTestServer(t)

	p := model.DefaultParams()
	p.Meta.Name = "tweak"
	p.EndYear = 1910
	require.NoError(t, st.Put(store.Scenario{Params: p}))

	conn := dialWS(t, ts)
	update := map[string]any{"type": "update_params", "scenario_id": p.Meta.ID, "params": p}
	require.NoError(t, conn.WriteJSON(update))

	// Ack arrives before any step of the debounced run.
	envelope, steps := readUntil(t, conn, "params_ack")
	assert.Zero(t, steps)
	var sid string
	require.NoError(t, json.Unmarshal(envelope["scenario_id"], &sid))
	assert.Equal(t, p.Meta.ID, sid)

	_, steps = readUntil(t, conn, "sim_complete")
	assert.Equal(t, 11, steps)
}

func TestWebSocketMalformedMessage(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reticulate"}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &envelope))
	var typ string
	require.NoError(t, json.Unmarshal(envelope["type"], &typ))
	assert.Equal(t, "sim_error", typ)

	// The connection stays usable afterwards.
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "stop_simulation"}))
}
