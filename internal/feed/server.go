// Package feed streams a running cluster to websocket clients and lets
// them steer the pointer.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/san-kum/magnetsim/internal/logging"
	"github.com/san-kum/magnetsim/internal/sim"
	"github.com/san-kum/magnetsim/internal/storage"
)

// Message is what clients send. Only "pointer" is understood; X and Y are
// in the cluster plane.
type Message struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FrameMessage is broadcast once per simulated frame.
type FrameMessage struct {
	Type  string `json:"type"`
	Index int    `json:"frame"`
	storage.ExportFrame
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	sim      *sim.Simulator
	pipeline *sim.Pipeline
	hub      *hub
	engine   *gin.Engine
	log      *zap.Logger
	started  time.Time
	frame    atomic.Int64
}

// NewServer serves s, advancing it according to run. Options are passed to
// the underlying pipeline.
func NewServer(s *sim.Simulator, run sim.Config, log *zap.Logger, opts ...sim.PipelineOption) *Server {
	log = logging.OrNop(log)
	srv := &Server{
		sim:      s,
		pipeline: sim.NewPipeline(s, run, append([]sim.PipelineOption{sim.WithLogger(log)}, opts...)...),
		hub:      newHub(log),
		log:      log,
		started:  time.Now(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.GET("/healthz", srv.health)
	r.GET("/config", srv.config)
	r.GET("/ws", srv.serveWS)
	srv.engine = r
	return srv
}

func (s *Server) Handler() http.Handler { return s.engine }

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int { return s.hub.len() }

// Run advances the simulation and broadcasts every frame until the run ends
// or ctx is cancelled, then disconnects all clients.
func (s *Server) Run(ctx context.Context) error {
	defer s.hub.close()

	frames, err := s.pipeline.Start(ctx)
	if err != nil {
		return err
	}
	for f := range frames {
		msg := FrameMessage{Type: "frame", Index: f.Index, ExportFrame: storage.ExportFrame{
			Time:    f.Time,
			Pointer: [2]float64(f.Pointer.Current),
			Items:   make([]storage.ExportTransform, len(f.Transforms)),
		}}
		for i, tr := range f.Transforms {
			msg.Items[i] = storage.NewExportTransform(tr)
		}
		s.pipeline.Release(f)
		s.frame.Store(int64(f.Index))

		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if dropped := s.hub.broadcast(data); dropped > 0 {
			s.log.Debug("frame dropped", zap.Int("frame", f.Index), zap.Int("clients", dropped))
		}
	}
	return nil
}

// ListenAndServe serves HTTP on addr while Run drives the simulation. It
// returns when ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.engine}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.ListenAndServe() }()
	s.log.Info("feed listening", zap.String("addr", addr))

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	if rerr := <-runErr; rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"frame":   s.frame.Load(),
		"clients": s.hub.len(),
		"uptime":  time.Since(s.started).String(),
	})
}

func (s *Server) config(c *gin.Context) {
	cfg := s.sim.State().Config()
	c.JSON(http.StatusOK, gin.H{
		"count":         s.sim.State().Len(),
		"icon_count":    cfg.IconCount,
		"bounds":        [3]float64(cfg.Bounds),
		"integration":   cfg.Integration,
		"rotation_mode": cfg.RotationMode,
		"params":        cfg.Params(),
	})
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.add(cl) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.log.Info("client connected", zap.String("remote", c.Request.RemoteAddr))

	go cl.writePump(s.log)
	go s.readPump(cl)
}

func (s *Server) readPump(c *client) {
	defer s.hub.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject(c, "malformed message")
			continue
		}
		switch msg.Type {
		case "pointer":
			if math.IsNaN(msg.X) || math.IsInf(msg.X, 0) || math.IsNaN(msg.Y) || math.IsInf(msg.Y, 0) {
				s.reject(c, "pointer must be finite")
				continue
			}
			s.sim.Pointer().Sample(mgl64.Vec2{msg.X, msg.Y})
		default:
			s.reject(c, "unknown message type "+msg.Type)
		}
	}
}

func (s *Server) reject(c *client, reason string) {
	data, _ := json.Marshal(errorMessage{Type: "error", Message: reason})
	s.hub.send(c, data)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
