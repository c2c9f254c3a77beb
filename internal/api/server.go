// Package api provides the read-only HTTP API for observing a run.
// All endpoints are GET; nothing here can change the simulation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

// Default development origins, always allowed.
var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// endFramePrefix identifies the final stream frame without decoding it.
var endFramePrefix = []byte(`{"type":"end"`)

// Server serves a Feed over HTTP.
type Server struct {
	Feed        *Feed
	Port        int
	CORSOrigins []string // Extra allowed origins; CORS_ORIGINS env is appended
	RateLimit   RateLimitConfig

	upgrader websocket.Upgrader
	limiter  *RateLimiter
	http     *http.Server
}

// NewServer creates a server with the default rate limit.
func NewServer(feed *Feed, port int) *Server {
	return &Server{Feed: feed, Port: port, RateLimit: DefaultRateLimit()}
}

// Handler builds the full middleware chain.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(s.RateLimit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/civs", s.handleCivs)
	mux.HandleFunc("GET /api/v1/planets", s.handlePlanets)
	mux.HandleFunc("GET /api/v1/turn", s.handleTurn)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	return s.corsHandler().Handler(s.limiter.Middleware(mux))
}

// corsHandler allows the dev origins plus configured ones.
func (s *Server) corsHandler() *cors.Cors {
	origins := append([]string(nil), devOrigins...)
	origins = append(origins, s.CORSOrigins...)
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, o := range strings.Split(env, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "rate_limit", s.RateLimit.RequestsPerSecond)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	meta := s.Feed.Meta()
	status := map[string]any{
		"name":        "civ-diplomacy",
		"run_id":      meta.RunID,
		"seed":        meta.Seed,
		"scenario":    meta.Scenario,
		"max_turns":   meta.MaxTurns,
		"grid":        []int{meta.Width, meta.Height},
		"turn":        0,
		"alive":       0,
		"done":        false,
		"subscribers": s.Feed.Subscribers(),
	}
	if sum, ok := s.Feed.Latest(); ok {
		status["turn"] = sum.Turn
		alive := 0
		for _, c := range sum.Civs {
			if c.Status == "active" {
				alive++
			}
		}
		status["alive"] = alive
		status["wars"] = sum.Wars()
	}
	if out := s.Feed.Outcome(); out != nil {
		status["done"] = true
		status["end_type"] = out.End
		if out.WinnerID != nil {
			status["winner_id"] = *out.WinnerID
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleCivs(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.Feed.Latest()
	if !ok {
		writeJSON(w, []any{})
		return
	}
	if r.URL.Query().Get("status") == "active" {
		active := sum.Civs[:0:0]
		for _, c := range sum.Civs {
			if c.Status == "active" {
				active = append(active, c)
			}
		}
		writeJSON(w, active)
		return
	}
	writeJSON(w, sum.Civs)
}

func (s *Server) handlePlanets(w http.ResponseWriter, r *http.Request) {
	planets := s.Feed.Planets()
	if planets == nil {
		planets = []PlanetView{}
	}
	writeJSON(w, planets)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.Feed.Latest()
	if !ok {
		http.Error(w, "no turn published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, sum)
}

// handleStream pushes one frame per turn until the run ends or the client
// disconnects. Client messages are read only to detect the close.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, frames := s.Feed.Subscribe()
	defer s.Feed.Unsubscribe(id)
	slog.Debug("stream subscriber joined", "subscriber", id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if out := s.Feed.Outcome(); out != nil {
		s.writeFrame(conn, StreamMessage{Type: "end", Outcome: out})
		return
	}

	for {
		select {
		case <-closed:
			return
		case b, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
			if bytes.HasPrefix(b, endFramePrefix) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run over"),
					time.Now().Add(time.Second))
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, msg StreamMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
