package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/logging"
)

// Deps are the collaborators the HTTP surface is served from.
type Deps struct {
	Exams     *app.ExamService
	Questions *app.QuestionService
	Scoring   *app.ScoringService
	Board     *app.Board
	Tokens    *auth.TokenService
	Logger    logrus.FieldLogger
	// AllowedOrigins feeds CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter builds the chi router for the exam service.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	exams := &examHandler{exams: d.Exams}
	questions := &questionHandler{questions: d.Questions}
	subs := &submissionHandler{scoring: d.Scoring}
	board := newBoardHandler(d.Exams, d.Board, origins)
	authorOnly := auth.RequireRole(writeFailure, auth.RoleTeacher, auth.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(d.Tokens, writeFailure))

		pr.Route("/exams", func(er chi.Router) {
			er.With(authorOnly).Get("/", exams.listMine)
			er.Get("/submissions/exam", subs.listMine)
			er.Get("/courses/{courseID}", exams.listByCourse)
			er.With(authorOnly).Post("/courses/{courseID}", exams.create)

			er.Route("/{id}", func(ir chi.Router) {
				ir.Get("/", exams.get)
				ir.With(authorOnly).Put("/", exams.update)
				ir.With(authorOnly).Delete("/", exams.delete)

				ir.Get("/questions", exams.questions)
				ir.With(authorOnly).Post("/questions", exams.addQuestions)
				ir.With(authorOnly).Delete("/questions", exams.removeQuestions)

				ir.Post("/submit", subs.submit)
				ir.Get("/result", subs.result)
				ir.Get("/attempted", subs.attempted)
				ir.With(authorOnly).Get("/roster", subs.roster)
				ir.With(authorOnly).Get("/submissions", subs.listForExam)
				ir.With(authorOnly).Get("/board", board.serve)
			})
		})

		pr.Route("/questions", func(qr chi.Router) {
			qr.With(authorOnly).Get("/", questions.listMine)
			qr.With(authorOnly).Get("/teacher/count", questions.countMine)
			qr.Get("/courses/{courseID}", questions.listByCourse)
			qr.With(authorOnly).Post("/courses/{courseID}", questions.create)
			qr.With(authorOnly).Delete("/courses/{courseID}/category", questions.deleteByCategory)
			qr.Get("/{id}", questions.get)
			qr.With(authorOnly).Put("/{id}", questions.update)
			qr.With(authorOnly).Delete("/{id}", questions.delete)
			qr.Post("/{id}/rate", questions.rate)
		})
	})
	return r
}

// requestLogger attaches a request-scoped logrus entry to the context and logs completion.
func requestLogger(base logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := base.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), entry)))
			entry.WithFields(logrus.Fields{
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			}).Debug("request served")
		})
	}
}
