package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"markestedt/linkgrab/storage"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// handleStatus returns the scheduler and indicator state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":    s.downloader.Status().String(),
		"indicator": s.indicator.State().String(),
	}
	if last, ok := s.downloader.LastBatch(); ok {
		response["last_batch"] = last
	}

	writeJSON(w, http.StatusOK, response)
}

// handleQueue returns the pending links
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	links, err := s.queue.List()
	if err != nil {
		slog.Error("Failed to read download list", "error", err)
		http.Error(w, "Failed to read download list", http.StatusInternalServerError)
		return
	}
	if links == nil {
		links = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"links": links,
		"count": len(links),
	})
}

// handleDownload starts a batch, the same as the download hotkey
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.downloader.TriggerDownloadAll() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already running"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	handlers, err := s.db.GetHandlerStats(days)
	if err != nil {
		slog.Error("Failed to get handler stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overall":  overall,
		"daily":    daily,
		"handlers": handlers,
	})
}

// handleHistory handles GET and DELETE requests for download history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated download history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	downloads, err := s.db.GetDownloads(limit, offset)
	if err != nil {
		slog.Error("Failed to get downloads", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	if downloads == nil {
		downloads = []storage.Download{}
	}

	total, err := s.db.GetDownloadCount()
	if err != nil {
		slog.Error("Failed to get download count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"downloads": downloads,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// handleDeleteHistory deletes a download record by ID (/api/history/123)
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/history/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || idStr == r.URL.Path {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeleteDownload(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Download not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete download", "error", err, "id", id)
		http.Error(w, "Failed to delete download", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
