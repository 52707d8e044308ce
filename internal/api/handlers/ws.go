package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// jobEvent is one websocket frame. Progress frames carry a stage; the
// final frame carries the job's terminal status.
type jobEvent struct {
	Type   string       `json:"type"` // "stage" or "status"
	Stage  *StageUpdate `json:"stage,omitempty"`
	Status JobStatus    `json:"status,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// JobSocketHandler streams job progress over a websocket.
type JobSocketHandler struct {
	jobs   *JobStore
	logger *logger.Logger
}

// NewJobSocketHandler creates a websocket handler over the job store.
func NewJobSocketHandler(jobs *JobStore, log *logger.Logger) *JobSocketHandler {
	return &JobSocketHandler{jobs: jobs, logger: log}
}

// Stream replays the job's recorded stages, then forwards new ones as they
// happen. The connection closes after the terminal status frame.
// GET /ws/jobs/{id}
func (h *JobSocketHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	replay, updates, cancel, ok := h.jobs.Subscribe(id)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, stage := range replay {
		if err := h.write(conn, jobEvent{Type: "stage", Stage: &stage}); err != nil {
			return
		}
	}

	for update := range updates {
		if err := h.write(conn, jobEvent{Type: "stage", Stage: &update}); err != nil {
			return
		}
	}

	// Channel closed: the job reached a terminal state.
	job, ok := h.jobs.Get(id)
	if !ok {
		return
	}
	h.write(conn, jobEvent{Type: "status", Status: job.Status, Error: job.Error})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
}

func (h *JobSocketHandler) write(conn *websocket.Conn, event jobEvent) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}
