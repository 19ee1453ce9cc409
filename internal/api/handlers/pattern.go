package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/dreamlog/internal/api/middleware"
	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/service"
)

type PatternHandler struct {
	svc *service.PatternService
}

func NewPatternHandler(svc *service.PatternService) *PatternHandler {
	return &PatternHandler{svc: svc}
}

func (h *PatternHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var patternType *domain.PatternType
	if v := r.URL.Query().Get("type"); v != "" {
		if !domain.ValidPatternType(v) {
			writeError(w, http.StatusBadRequest, "invalid pattern type")
			return
		}
		t := domain.PatternType(v)
		patternType = &t
	}

	patterns, err := h.svc.List(r.Context(), user.ID, patternType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list patterns")
		return
	}
	if patterns == nil {
		patterns = []domain.Pattern{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns})
}

// Refresh schedules a background detection run and returns immediately.
func (h *PatternHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.svc.Trigger(user.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}
