package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/logging"
)

const boardWriteWait = 10 * time.Second

type boardHandler struct {
	exams    *app.ExamService
	board    *app.Board
	upgrader websocket.Upgrader
}

type boardMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func newBoardHandler(exams *app.ExamService, board *app.Board, origins []string) *boardHandler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &boardHandler{
		exams: exams,
		board: board,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// serve streams leaderboard snapshots of one exam until the client goes away.
func (h *boardHandler) serve(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "id")
	if _, err := h.exams.GetExam(r.Context(), examID); err != nil {
		writeError(w, r, err)
		return
	}

	log := logging.FromContext(r.Context()).WithField("exam_id", examID)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("board upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.board.Subscribe(r.Context(), examID)
	if err != nil {
		_ = conn.WriteJSON(boardMessage{Type: "error", Payload: map[string]string{"message": err.Error()}})
		return
	}
	defer cancel()

	closed := make(chan struct{})
	writerDone := make(chan struct{})

	// Single writer; the read loop below only watches for the peer closing.
	go func() {
		defer close(writerDone)
		for {
			select {
			case lb, ok := <-updates:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(boardWriteWait))
				if err := conn.WriteJSON(boardMessage{Type: "leaderboard", Payload: lb}); err != nil {
					log.WithError(err).Debug("board write failed")
					return
				}
			case <-closed:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(closed)
	<-writerDone
}
