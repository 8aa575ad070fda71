package handler

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/walletapp/wallet-service/internal/auth"
	"github.com/walletapp/wallet-service/internal/metrics"
	"github.com/walletapp/wallet-service/internal/middleware"
)

// NewRouter wires all routes. Auth endpoints sit behind the rate
// limiter, transaction endpoints behind token verification. The reset
// route is registered before the {id} route so "reset" is never
// captured as a transaction id.
func NewRouter(h *Handler, tokens *auth.TokenManager, limiter *middleware.RateLimiter, collector *metrics.Collector, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(collector.Middleware())
	r.Handle("/metrics", collector.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.Use(limiter.Middleware())
	authRouter.HandleFunc("/register", h.Register).Methods("POST")
	authRouter.HandleFunc("/login", h.Login).Methods("POST")

	// Protected routes
	txRouter := api.PathPrefix("/transactions").Subrouter()
	txRouter.Use(middleware.Auth(tokens, log))
	txRouter.HandleFunc("", h.ListTransactions).Methods("GET")
	txRouter.HandleFunc("", h.CreateTransaction).Methods("POST")
	txRouter.HandleFunc("/reset/all", h.ResetTransactions).Methods("DELETE")
	txRouter.HandleFunc("/summary", h.Summary).Methods("GET")
	txRouter.HandleFunc("/export", h.Export).Methods("GET")
	txRouter.HandleFunc("/email-report", h.EmailReport).Methods("POST")
	txRouter.HandleFunc("/{id}", h.DeleteTransaction).Methods("DELETE")

	return r
}
