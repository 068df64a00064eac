package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"quest-progression-service/internal/app"
	"quest-progression-service/internal/domain"
	"quest-progression-service/internal/leaderboard"
)

// APIHandler exposes the non-session surface over REST: leaderboards,
// login-streak checks and profile progress.
type APIHandler struct {
	service *app.QuestService
	now     func() time.Time
}

func NewAPIHandler(service *app.QuestService) *APIHandler {
	return &APIHandler{service: service, now: time.Now}
}

// Register mounts all routes, the websocket endpoint included, on the router.
func Register(r *mux.Router, api *APIHandler, ws *WSHandler) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.HandleFunc("/ws/quest", ws.ServeWS)
	r.HandleFunc("/api/leaderboard", api.Leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/login", api.RecordLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/progress/{userId}", api.Progress).Methods(http.MethodGet)
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = string(leaderboard.CategoryOverall)
	}
	lb, err := h.service.Leaderboard(r.Context(), leaderboard.Category(category), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (h *APIHandler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	upd, err := h.service.RecordLogin(r.Context(), req.UserID, req.Username, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upd)
}

func (h *APIHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	progress, err := h.service.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidCategory):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrTopicNotFound):
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
