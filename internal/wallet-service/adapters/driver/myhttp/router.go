package myhttp

import (
	"encoding/json"
	"net/http"

	"gride/internal/auth"
	"gride/internal/mylogger"
	"gride/internal/wallet-service/adapters/driver/myhttp/handle"
	"gride/internal/wallet-service/core/ports"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the wallet HTTP API. health reports dependency status on /health.
func NewRouter(
	log mylogger.Logger,
	walletService ports.IWalletService,
	authMiddleware *auth.AuthMiddleware,
	allowedOrigins []string,
	health http.HandlerFunc,
) http.Handler {
	walletHandler := handle.NewWalletHandler(walletService, log)

	r := mux.NewRouter()
	r.Use(instrument)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	r.Handle("/api/driver/wallet", authMiddleware.Wrap(walletHandler.GetWallet(), auth.RoleDriver)).Methods(http.MethodGet)

	driver := r.PathPrefix("/api/driver/wallet").Subrouter()
	driver.Handle("/transactions", authMiddleware.Wrap(walletHandler.ListTransactions(), auth.RoleDriver)).Methods(http.MethodGet)
	driver.Handle("/transfers", authMiddleware.Wrap(walletHandler.ListTransfers(), auth.RoleDriver)).Methods(http.MethodGet)
	driver.Handle("/payout", authMiddleware.Wrap(walletHandler.RequestPayout(), auth.RoleDriver)).Methods(http.MethodPost)
	driver.Handle("/send", authMiddleware.Wrap(walletHandler.SendMoney(), auth.RoleDriver)).Methods(http.MethodPost)
	driver.Handle("/receive", authMiddleware.Wrap(walletHandler.GetReceiveInfo(), auth.RoleDriver)).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin/wallets").Subrouter()
	admin.Handle("/{driver_id}/adjustments", authMiddleware.Wrap(walletHandler.ApplyAdjustment(), auth.RoleAdmin)).Methods(http.MethodPost)

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
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
