// Package handler exposes the HTTP surface of the wallet service.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/walletapp/wallet-service/internal/apperr"
	"github.com/walletapp/wallet-service/internal/middleware"
	"github.com/walletapp/wallet-service/internal/models"
	"github.com/walletapp/wallet-service/internal/report"
	"github.com/walletapp/wallet-service/internal/service"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailReportRequest struct {
	Email string `json:"email"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	user, token, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userPayload{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userPayload{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

// ListTransactions returns a page of the caller's transactions.
// Optional query parameters: limit (default 100, max 1000) and offset.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, apperr.Validation("limit must be an integer"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.writeError(w, apperr.Validation("offset must be an integer"))
		return
	}

	txs, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// CreateTransaction records a new income or expense for the caller
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	var input models.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	tx, err := h.svc.CreateTransaction(r.Context(), userID, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction removes one transaction owned by the caller
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	if err := h.svc.DeleteTransaction(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}

// ResetTransactions removes every transaction owned by the caller
func (h *Handler) ResetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	count, err := h.svc.ResetTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"deleted": count,
		"message": fmt.Sprintf("%d transactions deleted", count),
	})
}

// Summary returns the caller's aggregated totals
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	summary, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// Export streams the caller's transactions as a spreadsheet attachment
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	workbook, err := h.svc.ExportTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", report.AttachmentFilename))
	w.WriteHeader(http.StatusOK)
	w.Write(workbook)
}

// EmailReport sends the caller's report to the address in the body
func (h *Handler) EmailReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, apperr.Unauthorized("unauthorized"))
		return
	}

	var req emailReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	if err := h.svc.EmailReport(r.Context(), userID, req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "report sent"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}

func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(raw)
}
