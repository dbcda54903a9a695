package myhttp

import (
	"encoding/json"
	"net/http"

	"gride/internal/auth"
	"gride/internal/mylogger"
	"gride/internal/realtime-service/adapters/driver/myhttp/handle"
	"gride/internal/realtime-service/adapters/driver/myhttp/ws"
	"gride/internal/realtime-service/core/ports"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the realtime HTTP surface: the websocket endpoint, the
// admin presence view, health and metrics.
func NewRouter(
	log mylogger.Logger,
	gateway *ws.Gateway,
	registry ports.IPresenceRegistry,
	mirror ports.IPresenceMirror,
	authMiddleware *auth.AuthMiddleware,
	allowedOrigins []string,
	health http.HandlerFunc,
) http.Handler {
	presenceHandler := handle.NewPresenceHandler(registry, mirror, log)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.Handle("/ws", gateway.ServeWS()).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin/presence").Subrouter()
	admin.Handle("/drivers", authMiddleware.Wrap(presenceHandler.ListDrivers(), auth.RoleAdmin)).Methods(http.MethodGet)
	admin.Handle("/drivers/{driver_id}", authMiddleware.Wrap(presenceHandler.GetDriver(), auth.RoleAdmin)).Methods(http.MethodGet)

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)
}

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
