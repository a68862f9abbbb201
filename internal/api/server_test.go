package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/huddle/internal/broadcast"
	"github.com/dyluth/huddle/internal/dispatch"
	"github.com/dyluth/huddle/internal/relay"
	"github.com/dyluth/huddle/internal/variant"
	"github.com/dyluth/huddle/pkg/activity"
)

// setupServer runs the full stack over miniredis with a live relay.
func setupServer(t *testing.T) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := activity.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.PutHostMessage(context.Background(), &activity.HostMessage{ID: "msg-1", ChannelID: "general"}))

	r := relay.New(relay.Options{InstanceName: "test-instance"}, broadcast.New(client), nil, client)
	r.Start(context.Background())
	t.Cleanup(r.Stop)

	d := dispatch.New(client, client, r, variant.Builtin(), dispatch.Options{InstanceName: "test-instance"})
	ts := httptest.NewServer(NewServer(d, client, client))
	t.Cleanup(ts.Close)
	return ts, mr
}

func call(t *testing.T, ts *httptest.Server, method, path, actor string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if actor != "" {
		req.Header.Set(HeaderActorID, actor)
		req.Header.Set(HeaderActorName, strings.ToUpper(actor[:1])+actor[1:])
	}
	if actor == "root" {
		req.Header.Set(HeaderActorRole, "admin")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

type m = map[string]interface{}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts, _ := setupServer(t)

	resp, created := call(t, ts, http.MethodPost, "/v1/sessions", "alice", m{
		"host_message_id": "msg-1",
		"type":            "parking-lot",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, created)
	id := created["id"].(string)
	assert.Equal(t, "general", created["channel_ref"])
	assert.Equal(t, float64(1), created["version"])

	resp, updated := call(t, ts, http.MethodPost, "/v1/sessions/"+id+"/actions/add_item", "bob", m{
		"type":  "parking-lot",
		"input": m{"text": "budget"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, updated)
	assert.Equal(t, float64(2), updated["version"])

	resp, got := call(t, ts, http.MethodGet, "/v1/sessions/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := got["payload"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].(map[string]interface{})["author_id"])

	resp, _ = call(t, ts, http.MethodPost, "/v1/sessions/"+id+"/close", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, closed := call(t, ts, http.MethodPost, "/v1/sessions/"+id+"/close", "root", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, closed["closed"])
	assert.Equal(t, "root", closed["closed_by"])

	resp, body := call(t, ts, http.MethodPost, "/v1/sessions/"+id+"/close", "alice", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "AlreadyClosed", body["code"])
}

func TestErrorMapping(t *testing.T) {
	ts, _ := setupServer(t)

	_, created := call(t, ts, http.MethodPost, "/v1/sessions", "alice", m{"host_message_id": "msg-1", "type": "risk-matrix"})
	id := created["id"].(string)

	tests := []struct {
		name       string
		method     string
		path       string
		actor      string
		body       interface{}
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{"missing host message", http.MethodPost, "/v1/sessions", "alice", m{"host_message_id": "nope", "type": "poll"}, http.StatusNotFound, "HostMessageNotFound", ""},
		{"unknown type", http.MethodPost, "/v1/sessions", "alice", m{"host_message_id": "msg-1", "type": "karaoke"}, http.StatusBadRequest, "UnknownActivityType", ""},
		{"unknown body field", http.MethodPost, "/v1/sessions", "alice", m{"host_message_id": "msg-1", "kind": "poll"}, http.StatusBadRequest, "InvalidInput", "body"},
		{"session not found", http.MethodGet, "/v1/sessions/missing", "", nil, http.StatusNotFound, "SessionNotFound", ""},
		{"type mismatch", http.MethodPost, "/v1/sessions/" + id + "/actions/add_item", "bob", m{"type": "parking-lot", "input": m{"text": "x"}}, http.StatusBadRequest, "TypeMismatch", ""},
		{"unsupported action", http.MethodPost, "/v1/sessions/" + id + "/actions/vote", "bob", m{"type": "risk-matrix"}, http.StatusBadRequest, "UnsupportedAction", ""},
		{"invalid input", http.MethodPost, "/v1/sessions/" + id + "/actions/add_risk", "bob", m{"type": "risk-matrix", "input": m{"title": "x", "probability": 9, "impact": 1}}, http.StatusBadRequest, "InvalidInput", "probability"},
		{"anonymous", http.MethodPost, "/v1/sessions/" + id + "/actions/add_risk", "", m{"type": "risk-matrix", "input": m{"title": "x", "probability": 1, "impact": 1}}, http.StatusForbidden, "Forbidden", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := call(t, ts, tt.method, tt.path, tt.actor, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, body)
			assert.Equal(t, tt.wantCode, body["code"])
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(activity.CodeLimitExceeded))
	assert.Equal(t, http.StatusConflict, StatusFor(activity.CodeStaleWrite))
	assert.Equal(t, http.StatusConflict, StatusFor(activity.CodeSessionClosed))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("Unknown"))
}

func TestHealthz(t *testing.T) {
	ts, mr := setupServer(t)

	resp, body := call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	mr.Close()
	resp, body = call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestStreamDeliversSnapshots(t *testing.T) {
	ts, _ := setupServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/channels/general/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, created := call(t, ts, http.MethodPost, "/v1/sessions", "alice", m{
		"host_message_id": "msg-1",
		"type":            "poll",
		"setup":           m{"question": "Lunch?", "options": []string{"A", "B"}},
	})
	id := created["id"].(string)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var snap activity.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, id, snap.SessionID)
	assert.Equal(t, activity.TypePoll, snap.Type)
	assert.Equal(t, int64(1), snap.Version)
	assert.False(t, snap.Closed)

	call(t, ts, http.MethodPost, "/v1/sessions/"+id+"/close", "alice", nil)
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, int64(2), snap.Version)
	assert.True(t, snap.Closed)
}
