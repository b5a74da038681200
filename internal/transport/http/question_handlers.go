package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/domain"
)

type questionHandler struct {
	questions *app.QuestionService
}

// createQuestionsRequest accepts either a single question object or a
// {"category": ..., "questions": [...]} batch.
type createQuestionsRequest struct {
	Category  string            `json:"category"`
	Questions []domain.Question `json:"questions"`
}

type rateQuestionRequest struct {
	Rating *float64 `json:"rating"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (h *questionHandler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		writeError(w, r, err)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		writeError(w, r, errBadRequest("expected a question object or a questions batch"))
		return
	}

	var req createQuestionsRequest
	_, batch := fields["questions"]
	if batch {
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, r, errBadRequest("malformed questions batch"))
			return
		}
	} else {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			writeError(w, r, errBadRequest("malformed question"))
			return
		}
		req.Category = q.Category
		req.Questions = []domain.Question{q}
	}

	created, err := h.questions.CreateQuestions(r.Context(), chi.URLParam(r, "courseID"), req.Category, id.UserID, req.Questions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if batch {
		writeData(w, http.StatusCreated, created)
		return
	}
	writeData(w, http.StatusCreated, created[0])
}

func (h *questionHandler) get(w http.ResponseWriter, r *http.Request) {
	q, err := h.questions.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id, _ := auth.FromContext(r.Context()); !id.IsAuthor() {
		q = redactQuestion(q)
	}
	writeData(w, http.StatusOK, q)
}

func (h *questionHandler) listByCourse(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questions.ListByCourse(r.Context(), chi.URLParam(r, "courseID"), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id, _ := auth.FromContext(r.Context()); !id.IsAuthor() {
		for i := range qs {
			qs[i] = redactQuestion(qs[i])
		}
	}
	writeData(w, http.StatusOK, qs)
}

func (h *questionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	qs, err := h.questions.ListByTeacher(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, qs)
}

func (h *questionHandler) update(w http.ResponseWriter, r *http.Request) {
	if !h.owned(w, r) {
		return
	}
	var patch domain.QuestionPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.questions.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, q)
}

func (h *questionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.owned(w, r) {
		return
	}
	if err := h.questions.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

func (h *questionHandler) rate(w http.ResponseWriter, r *http.Request) {
	var req rateQuestionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Rating == nil {
		writeError(w, r, errBadRequest("rating is required"))
		return
	}
	q, err := h.questions.RateQuestion(r.Context(), chi.URLParam(r, "id"), *req.Rating)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id, _ := auth.FromContext(r.Context()); !id.IsAuthor() {
		q = redactQuestion(q)
	}
	writeData(w, http.StatusOK, q)
}

func (h *questionHandler) countMine(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	n, err := h.questions.CountByTeacher(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"count": n})
}

// deleteByCategory removes only the caller's own questions.
func (h *questionHandler) deleteByCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.questions.DeleteByCategory(r.Context(), chi.URLParam(r, "courseID"), req.Category, id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, deleted)
}

func (h *questionHandler) owned(w http.ResponseWriter, r *http.Request) bool {
	q, err := h.questions.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		err = requireOwner(r, q.CreatedBy)
	}
	if err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}
