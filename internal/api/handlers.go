package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hmiplocal/hculink/internal/hmip"
)

// handleListDevices returns all mirrored devices keyed by device ID.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mirror.Devices())
}

// handleGetDevice returns a single mirrored device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	device, ok := s.mirror.Device(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// handleDeviceOccurrences returns recent button occurrences for a device.
//
// Query parameters:
//   - channel: Restrict to one channel index (optional, default all)
//   - limit: Maximum number of entries (optional)
func (s *Server) handleDeviceOccurrences(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "occurrence history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")

	channel := -1
	if raw := r.URL.Query().Get("channel"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "channel must be a non-negative integer")
			return
		}
		channel = n
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), id, channel, limit)
	if err != nil {
		s.logger.Error("failed to query occurrence history", "error", err, "device_id", id)
		writeInternalError(w, "failed to query occurrence history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":   id,
		"occurrences": entries,
	})
}

// handleListGroups returns all mirrored groups keyed by group ID.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mirror.Groups())
}

// handleGetGroup returns a single mirrored group by ID.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	group, ok := s.mirror.Group(id)
	if !ok {
		writeNotFound(w, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// handleGetHome returns the mirrored home object plus the resolved hub
// complex: the primary access point and every access-point device id.
func (s *Server) handleGetHome(w http.ResponseWriter, _ *http.Request) {
	if !s.mirror.Loaded() {
		writeNotFound(w, "home state not loaded")
		return
	}

	payload := map[string]any{
		"home":             s.mirror.Home(),
		"access_point_ids": s.mirror.AccessPointIDs(),
	}
	if primary, ok := s.mirror.PrimaryAccessPoint(); ok {
		payload["primary_access_point"] = primary
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleMetrics returns runtime counters for monitoring.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	devices, groups := s.mirror.Counts()
	payload := map[string]any{
		"link_state": string(s.sup.State()),
		"reconnects": s.sup.Reconnects(),
		"devices":    devices,
		"groups":     groups,
	}
	if link := s.sup.Client(); link != nil {
		if c, ok := link.(statsProvider); ok {
			stats := c.Stats()
			payload["frames_tx"] = stats.FramesTx
			payload["frames_rx"] = stats.FramesRx
			payload["events_dispatched"] = stats.EventsDispatched
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

// statsProvider is implemented by hub clients that expose frame counters.
type statsProvider interface {
	Stats() hmip.Stats
}
