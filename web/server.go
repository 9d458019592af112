package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"markestedt/linkgrab/scheduler"
	"markestedt/linkgrab/status"
	"markestedt/linkgrab/storage"
)

//go:embed static/*
var staticFiles embed.FS

// Downloader starts and reports download batches
type Downloader interface {
	TriggerDownloadAll() bool
	Status() scheduler.Status
	LastBatch() (scheduler.Summary, bool)
}

// QueueReader lists the pending links
type QueueReader interface {
	List() ([]string, error)
}

// StateReader reports the visual status
type StateReader interface {
	State() status.State
}

// Server is the local status API and dashboard
type Server struct {
	db         *storage.DB
	downloader Downloader
	queue      QueueReader
	indicator  StateReader
	port       int
	hub        *Hub

	server *http.Server
}

// NewServer creates a new web server
func NewServer(db *storage.DB, d Downloader, q QueueReader, ind StateReader, port int) *Server {
	hub := NewHub()
	go hub.Run()

	return &Server{
		db:         db,
		downloader: d,
		queue:      q,
		indicator:  ind,
		port:       port,
		hub:        hub,
	}
}

// Handler returns the routes of the server
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistory)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	return mux, nil
}

// Start listens on 127.0.0.1 and serves until Stop is called
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	slog.Info("Starting web server", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the HTTP server down and disconnects websocket clients
func (s *Server) Stop() {
	s.hub.Stop()
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("Web server shutdown", "error", err)
	}
}

// BroadcastStatus broadcasts a status update to all connected clients
func (s *Server) BroadcastStatus(st status.State) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{Status: st.String()},
	})
}

// BroadcastQueue broadcasts the number of pending links
func (s *Server) BroadcastQueue(count int) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeQueue,
		Data: QueueMessage{Count: count},
	})
}

// BroadcastDownload broadcasts a finished download to all connected clients
func (s *Server) BroadcastDownload(d *storage.Download) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeDownload,
		Data: DownloadMessage{
			ID:        d.ID,
			URL:       d.URL,
			Handler:   d.Handler,
			Success:   d.Success,
			Timestamp: d.StartedAt.UTC().Format(time.RFC3339),
		},
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	// new clients start from the current state; writePump only runs once the
	// client is registered, so nothing broadcast after this message is missed
	if data, err := json.Marshal(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{Status: s.indicator.State().String()},
	}); err == nil {
		client.send <- data
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
