package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/domain"
)

type examHandler struct {
	exams *app.ExamService
}

type createExamRequest struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	Status           domain.ExamStatus `json:"status"`
	Complexity       domain.Complexity `json:"complexity"`
	EstimatedMinutes int               `json:"estimatedMinutes"`
	QuestionIDs      []string          `json:"questionIds"`
}

type updateExamRequest struct {
	domain.ExamPatch
	QuestionIDs *[]string `json:"questionIds"`
}

type questionIDsRequest struct {
	QuestionIDs []string `json:"questionIds"`
}

func (h *examHandler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req createExamRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	exam, err := h.exams.CreateExam(r.Context(), domain.Exam{
		CourseID:         chi.URLParam(r, "courseID"),
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Status:           req.Status,
		Complexity:       req.Complexity,
		EstimatedMinutes: req.EstimatedMinutes,
		CreatedBy:        id.UserID,
	}, req.QuestionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, exam)
}

func (h *examHandler) get(w http.ResponseWriter, r *http.Request) {
	exam, err := h.exams.GetExam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, exam)
}

func (h *examHandler) listByCourse(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exams.ListByCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, exams)
}

func (h *examHandler) listMine(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	exams, err := h.exams.ListByTeacher(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, exams)
}

func (h *examHandler) update(w http.ResponseWriter, r *http.Request) {
	if !h.owned(w, r) {
		return
	}
	var req updateExamRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	exam, err := h.exams.UpdateExam(r.Context(), chi.URLParam(r, "id"), req.ExamPatch, req.QuestionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, exam)
}

func (h *examHandler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.owned(w, r) {
		return
	}
	if err := h.exams.DeleteExam(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

func (h *examHandler) questions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.exams.QuestionsFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id, _ := auth.FromContext(r.Context()); !id.IsAuthor() {
		qs = redactBound(qs)
	}
	writeData(w, http.StatusOK, qs)
}

func (h *examHandler) addQuestions(w http.ResponseWriter, r *http.Request) {
	h.rebind(w, r, h.exams.AddQuestions)
}

func (h *examHandler) removeQuestions(w http.ResponseWriter, r *http.Request) {
	h.rebind(w, r, h.exams.RemoveQuestions)
}

func (h *examHandler) rebind(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, examID string, ids []string) error) {
	if !h.owned(w, r) {
		return
	}
	var req questionIDsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	examID := chi.URLParam(r, "id")
	if err := apply(r.Context(), examID, req.QuestionIDs); err != nil {
		writeError(w, r, err)
		return
	}
	qs, err := h.exams.QuestionsFor(r.Context(), examID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, qs)
}

// owned writes the failure and returns false unless the caller may change the exam.
func (h *examHandler) owned(w http.ResponseWriter, r *http.Request) bool {
	exam, err := h.exams.GetExam(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		err = requireOwner(r, exam.CreatedBy)
	}
	if err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// requireOwner admits the author of a resource and admins.
func requireOwner(r *http.Request, createdBy string) error {
	id, _ := auth.FromContext(r.Context())
	if id.Role == auth.RoleAdmin || (createdBy != "" && id.UserID == createdBy) {
		return nil
	}
	return domain.ErrNotOwner
}

func redactBound(qs []domain.BoundQuestion) []domain.BoundQuestion {
	out := make([]domain.BoundQuestion, len(qs))
	for i, q := range qs {
		q.CorrectOptionID = ""
		out[i] = q
	}
	return out
}

func redactQuestion(q domain.Question) domain.Question {
	q.CorrectOptionID = ""
	return q
}
