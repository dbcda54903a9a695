package handle

import (
	"encoding/json"
	"net/http"

	"gride/internal/mylogger"
	"gride/internal/realtime-service/core/ports"

	"github.com/gorilla/mux"
)

// PresenceHandler serves the operational view of the presence registry.
type PresenceHandler struct {
	registry ports.IPresenceRegistry
	mirror   ports.IPresenceMirror
	log      mylogger.Logger
}

// NewPresenceHandler builds the handler. mirror may be nil; when set, drivers
// connected to another gateway process are looked up there.
func NewPresenceHandler(registry ports.IPresenceRegistry, mirror ports.IPresenceMirror, log mylogger.Logger) *PresenceHandler {
	return &PresenceHandler{
		registry: registry,
		mirror:   mirror,
		log:      log,
	}
}

func (ph *PresenceHandler) ListDrivers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := ph.registry.List()
		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"count":   len(entries),
			"drivers": entries,
		})
	}
}

func (ph *PresenceHandler) GetDriver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := mux.Vars(r)["driver_id"]

		if entry, ok := ph.registry.Get(driverID); ok {
			jsonResponse(w, http.StatusOK, entry)
			return
		}

		if ph.mirror != nil {
			entry, ok, err := ph.mirror.Get(r.Context(), driverID)
			if err != nil {
				ph.log.Action("GetDriverPresence").Warn("presence mirror lookup failed", "driver_id", driverID, "error", err.Error())
			} else if ok {
				jsonResponse(w, http.StatusOK, entry)
				return
			}
		}

		jsonError(w, http.StatusNotFound, "NotFound", "driver is not connected")
	}
}

func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, code int, kind, msg string) {
	jsonResponse(w, code, map[string]interface{}{
		"success": false,
		"kind":    kind,
		"error":   msg,
	})
}
