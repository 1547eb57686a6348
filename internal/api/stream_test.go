package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelserve/internal/model"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.handleConnect))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsPredictions(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	// Registration happens in the HTTP handler after the handshake, so
	// wait until the hub has seen the client.
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	prob := 0.8
	p := model.NewPrediction(map[string]float64{"mean_radius": 14.2})
	p.Value = model.LabelValue("MALIGNANT")
	p.Probability = &prob
	p.Model = &model.Model{Name: "breast_cancer_rf", Version: "1", Type: model.Classification}
	hub.PublishPrediction(p)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg feedMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "prediction", msg.Type)

	var pr map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &pr))
	assert.Equal(t, p.ID, pr["id"])
	assert.Equal(t, "MALIGNANT", pr["value"])
	assert.Equal(t, "breast_cancer_rf", pr["model"].(map[string]any)["model_name"])
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)

	// No clients connected: publishing must not block or panic.
	p := model.NewPrediction(map[string]float64{"a": 1})
	p.Value = model.NumberValue(1.5)
	hub.PublishPrediction(p)
}

func TestHubRunClosesClientsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	// The write pump exits when the hub closes the send channel, which
	// closes the underlying connection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
