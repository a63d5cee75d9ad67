package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"depthmirror/internal/config"
	"depthmirror/internal/logger"
	"depthmirror/internal/output"
	"depthmirror/internal/pose"
)

// Server exposes the live preview over HTTP: an MJPEG view of the combined
// color+depth frame, a websocket feed of pose results, and read-only config.
type Server struct {
	router   *mux.Router
	cfg      *config.Config
	stream   *output.MJPEGStream
	upgrader websocket.Upgrader

	poseMu      sync.RWMutex
	latestPose  *pose.Result
	poseClients map[*websocket.Conn]struct{}
	clientsMu   sync.Mutex
}

// NewServer creates a preview server over the given MJPEG stream.
func NewServer(cfg *config.Config, stream *output.MJPEGStream) *Server {
	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
		stream: stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		poseClients: make(map[*websocket.Conn]struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/pose/current", s.handleCurrentPose).Methods("GET")
	api.HandleFunc("/pose/stream", s.handlePoseStream)

	s.router.HandleFunc("/stream", s.stream.StreamHandler())
	s.router.HandleFunc("/", s.stream.ViewerHandler())
}

// Start serves HTTP on the given port. It blocks until the listener fails.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Preview server listening")
	return http.ListenAndServe(addr, s.router)
}

// PublishPose records the latest pose result and pushes it to websocket
// subscribers. A nil result is published as an explicit null so subscribers
// see detection gaps.
func (s *Server) PublishPose(res *pose.Result) {
	s.poseMu.Lock()
	s.latestPose = res
	s.poseMu.Unlock()

	payload, err := json.Marshal(poseMessage{Time: time.Now().UnixMilli(), Pose: res})
	if err != nil {
		return
	}

	s.clientsMu.Lock()
	for conn := range s.poseClients {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.poseClients, conn)
		}
	}
	s.clientsMu.Unlock()
}

type poseMessage struct {
	Time int64        `json:"time"`
	Pose *pose.Result `json:"pose"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"streaming": s.stream.IsRunning(),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.cfg)
}

func (s *Server) handleCurrentPose(w http.ResponseWriter, r *http.Request) {
	s.poseMu.RLock()
	res := s.latestPose
	s.poseMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(poseMessage{Time: time.Now().UnixMilli(), Pose: res})
}

func (s *Server) handlePoseStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.poseClients[conn] = struct{}{}
	s.clientsMu.Unlock()
	logger.WithComponent("api").Info().Msg("Pose feed client connected")

	// Reader loop only to detect disconnect; the feed is write-only.
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.poseClients, conn)
			s.clientsMu.Unlock()
			conn.Close()
			logger.WithComponent("api").Info().Msg("Pose feed client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
