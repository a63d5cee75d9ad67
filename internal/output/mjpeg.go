package output

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"depthmirror/internal/logger"
)

// MJPEGStream fans the preview out to HTTP clients as Motion JPEG. Slow
// clients skip frames instead of backpressuring the pipeline.
type MJPEGStream struct {
	mu      sync.RWMutex
	running bool

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
	startTime  time.Time
}

// NewMJPEGStream creates an idle MJPEG stream.
func NewMJPEGStream() *MJPEGStream {
	return &MJPEGStream{clients: make(map[chan []byte]struct{})}
}

// Start marks the stream active.
func (m *MJPEGStream) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("MJPEG stream already running")
	}
	m.running = true
	m.startTime = time.Now()
	m.frameCount = 0
	return nil
}

// Stop disconnects all clients and marks the stream idle.
func (m *MJPEGStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false

	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("output").Info().
		Uint64("frames", m.frameCount).
		Msg("MJPEG stream stopped")
	return nil
}

// IsRunning reports whether the stream is active.
func (m *MJPEGStream) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// WriteFrame encodes one BGR frame as JPEG and broadcasts it to all
// connected clients. The input Mat is not modified or retained.
func (m *MJPEGStream) WriteFrame(frame gocv.Mat) error {
	if !m.IsRunning() {
		return fmt.Errorf("MJPEG stream not running")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := make([]byte, len(buf.GetBytes()))
	copy(jpegData, buf.GetBytes())
	buf.Close()

	m.mu.Lock()
	m.frameCount++
	m.mu.Unlock()

	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame.
		}
	}
	m.clientsMu.RUnlock()
	return nil
}

// StreamHandler returns the multipart MJPEG HTTP handler.
func (m *MJPEGStream) StreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		m.clientsMu.Lock()
		m.clients[frameChan] = struct{}{}
		count := len(m.clients)
		m.clientsMu.Unlock()
		logger.WithComponent("output").Info().Int("clients", count).Msg("MJPEG client connected")

		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, frameChan)
			count := len(m.clients)
			m.clientsMu.Unlock()
			logger.WithComponent("output").Info().Int("clients", count).Msg("MJPEG client disconnected")
		}()

		for jpegData := range frameChan {
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

// ViewerHandler serves a minimal page embedding the stream.
func (m *MJPEGStream) ViewerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>depthmirror</title>
<style>body{margin:0;background:#000;display:flex;justify-content:center;align-items:center;min-height:100vh}
img{max-width:100vw;max-height:100vh}</style>
</head>
<body><img src="/stream" alt="depthmirror preview"></body>
</html>`))
	}
}
