package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/api/middleware"
	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DreamHandler struct {
	svc *service.DreamService
}

func NewDreamHandler(svc *service.DreamService) *DreamHandler {
	return &DreamHandler{svc: svc}
}

type createDreamRequest struct {
	Content     string     `json:"content"`
	RecordedAt  *time.Time `json:"recorded_at,omitempty"`
	StressLevel *int       `json:"stress_level,omitempty"`
	MoodRating  *int       `json:"mood_rating,omitempty"`
}

func (h *DreamHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createDreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dream := &domain.Dream{
		UserID:      user.ID,
		Content:     req.Content,
		StressLevel: req.StressLevel,
		MoodRating:  req.MoodRating,
	}
	if req.RecordedAt != nil {
		dream.RecordedAt = *req.RecordedAt
	}

	if err := h.svc.Create(r.Context(), dream); err != nil {
		if errors.Is(err, service.ErrInvalidDream) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create dream")
		return
	}

	writeJSON(w, http.StatusCreated, dream)
}

func (h *DreamHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	dreams, err := h.svc.List(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dreams")
		return
	}
	if dreams == nil {
		dreams = []domain.Dream{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"dreams": dreams})
}

func (h *DreamHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dream id")
		return
	}

	dream, err := h.svc.GetByID(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrDreamNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get dream")
		return
	}

	writeJSON(w, http.StatusOK, dream)
}

// RecordAnalysis accepts the result of the upstream analysis for a dream.
func (h *DreamHandler) RecordAnalysis(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dream id")
		return
	}

	var analysis domain.DreamAnalysis
	if err := json.NewDecoder(r.Body).Decode(&analysis); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.RecordAnalysis(r.Context(), user.ID, id, &analysis); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAnalysis):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDreamNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record analysis")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
