package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
)

// Event is the job-completion payload the backend posts to a configured
// callback URL.
type Event struct {
	EventID string          `json:"event_id"`
	JobID   string          `json:"job_id"`
	Status  api.JobStatus   `json:"status"`
	Outputs []api.JobOutput `json:"outputs"`
	Errors  []string        `json:"errors"`
}

// Handler consumes accepted events.
type Handler func(Event)

// seenLimit caps the de-dup set so a long-running listener cannot grow it
// without bound. Oldest keys are evicted first.
const seenLimit = 8192

// Server receives job webhooks. Deliveries are at-least-once; events are
// de-duplicated by event id so the handler sees each at most once.
type Server struct {
	logger  *infra.Logger
	handler Handler

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewServer constructs a webhook receiver.
func NewServer(logger *infra.Logger, handler Handler) *Server {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Server{
		logger:  logger,
		handler: handler,
		seen:    make(map[string]struct{}),
	}
}

// Router builds the HTTP surface for the receiver.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		Logger(*s.logger),
	)
	r.Get("/healthz", s.handleHealth)
	r.Post("/webhooks/jobs", s.handleJobEvent)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid payload"})
		return
	}
	if ev.JobID == "" || !ev.Status.Known() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "job_id and a known status are required"})
		return
	}

	key := ev.EventID
	if key == "" {
		key = ev.JobID + ":" + string(ev.Status)
	}
	if s.markSeen(key) {
		s.logger.Debug().Str("job_id", ev.JobID).Msg("webhook: duplicate delivery ignored")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	s.logger.Info().Str("job_id", ev.JobID).Str("status", string(ev.Status)).
		Str("request_id", RequestIDFromContext(r.Context())).
		Msg("webhook: job event received")
	if s.handler != nil {
		s.handler(ev)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// markSeen records a delivery key and reports whether it was already known.
// Once the set reaches seenLimit the oldest keys are dropped, so a
// re-delivery arriving after thousands of newer events can fire the handler
// again; handlers stay idempotent regardless.
func (s *Server) markSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return true
	}
	if len(s.order) >= seenLimit {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, key)
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
