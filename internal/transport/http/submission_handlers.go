package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/domain"
)

type submissionHandler struct {
	scoring *app.ScoringService
}

type submitRequest struct {
	Questions json.RawMessage `json:"questions"`
}

func (h *submissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	answers, err := domain.DecodeAnswers(req.Questions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := h.scoring.Submit(r.Context(), chi.URLParam(r, "id"), id.UserID, answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, outcome)
}

func (h *submissionHandler) result(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	sub, err := h.scoring.Result(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sub)
}

func (h *submissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	subs, err := h.scoring.SubmissionsForUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, subs)
}

func (h *submissionHandler) listForExam(w http.ResponseWriter, r *http.Request) {
	subs, err := h.scoring.SubmissionsForExam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, subs)
}

func (h *submissionHandler) attempted(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ok, err := h.scoring.HasAttempted(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"attempted": ok})
}

func (h *submissionHandler) roster(w http.ResponseWriter, r *http.Request) {
	users, err := h.scoring.Roster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}
