package feed

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/sim"
	"github.com/san-kum/magnetsim/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type frameJSON struct {
	Type    string                    `json:"type"`
	Frame   int                       `json:"frame"`
	Time    float64                   `json:"t"`
	Pointer [2]float64                `json:"pointer"`
	Items   []storage.ExportTransform `json:"items"`
}

func newSim(t *testing.T, count int) *sim.Simulator {
	t.Helper()
	cfg := cluster.DefaultConfig()
	cfg.Count = count
	st, err := cluster.Initialize(count, cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	return sim.New(st, nil)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHealthAndConfig(t *testing.T) {
	srv := NewServer(newSim(t, 4), sim.Config{FPS: 60}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 0, health["clients"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg struct {
		Count       int                `json:"count"`
		Integration string             `json:"integration"`
		Params      map[string]float64 `json:"params"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, 4, cfg.Count)
	assert.Equal(t, "frame", cfg.Integration)
	assert.InDelta(t, cluster.DefaultSpringStiffness, cfg.Params["spring_stiffness"], 1e-12)
}

func TestRunBroadcastsFramesThenCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := NewServer(newSim(t, 3), sim.Config{FPS: 60, Frames: 5}, nil, sim.Unpaced())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Run(context.Background()))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 1; i <= 5; i++ {
		var f frameJSON
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, "frame", f.Type)
		assert.Equal(t, i, f.Frame)
		assert.InDelta(t, float64(i)/60, f.Time, 1e-12)
		assert.Len(t, f.Items, 3)
	}
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
	assert.Equal(t, 0, srv.Clients())

	late := dial(t, ts)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "expected going away, got %v", err)
}

func TestPointerMessagesSteerSimulation(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSim(t, 3)
	srv := NewServer(s, sim.Config{FPS: 120}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	conn := dial(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "pointer", X: 0.3, Y: -0.2}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f frameJSON
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == "frame" && f.Pointer == [2]float64{0.3, -0.2} {
			break
		}
	}

	require.NoError(t, conn.WriteJSON(Message{Type: "wave"}))
	for {
		var f frameJSON
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == "error" {
			break
		}
	}
}
