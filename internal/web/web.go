package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/invoicevision/internal/extract"
	"github.com/local/invoicevision/internal/queue"
	"github.com/local/invoicevision/internal/statuscheck"
	"github.com/local/invoicevision/internal/store"
	"github.com/local/invoicevision/internal/workflow"
)

// Server is the thin HTTP surface: synchronous extraction, async job
// submission and progress/result lookup. Queue and status store are optional;
// without them the async endpoints answer 503.
type Server struct {
	Workflow    *workflow.Workflow
	Queue       *queue.RedisQueue
	Status      *store.RedisStatus
	Checker     *statuscheck.Checker
	MaxUploadMB int
}

// Routes registers all handlers on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("POST /extract_async", s.handleExtractAsync)
	mux.HandleFunc("GET /progress/{id}", s.handleProgress)
	mux.HandleFunc("GET /result/{id}", s.handleResult)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) maxBytes() int64 {
	mb := s.MaxUploadMB
	if mb <= 0 {
		mb = 25
	}
	return int64(mb) << 20
}

// readDocument pulls the uploaded document out of the request: multipart
// field "file" if present, raw body otherwise.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes())

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file field: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, err := s.readDocument(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty document")
		return
	}

	res, err := s.Workflow.Run(r.Context(), data)
	if err != nil {
		var uerr *workflow.UnsupportedFormatError
		var serr *extract.SchemaError
		var ferr *extract.FieldTypeError
		switch {
		case errors.As(err, &uerr):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.As(err, &serr), errors.As(err, &ferr):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Error().Err(err).Msg("extraction failed")
			writeError(w, http.StatusBadGateway, "extraction failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type asyncRequest struct {
	SourceRef string `json:"source_ref"`
}

func (s *Server) handleExtractAsync(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil || s.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "async processing not configured")
		return
	}

	job := queue.Job{ID: uuid.NewString(), Submitted: time.Now()}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req asyncRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil || req.SourceRef == "" {
			writeError(w, http.StatusBadRequest, "expected {\"source_ref\": \"s3://...\"}")
			return
		}
		job.SourceRef = req.SourceRef
	} else {
		data, err := s.readDocument(w, r)
		if err != nil || len(data) == 0 {
			writeError(w, http.StatusBadRequest, "empty document")
			return
		}
		job.Data = data
	}

	payload, err := json.Marshal(job)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode job")
		return
	}
	if err := s.Queue.Enqueue(r.Context(), payload); err != nil {
		log.Error().Err(err).Msg("enqueue failed")
		writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}
	if err := s.Status.Set(r.Context(), job.ID, store.Status{
		Status:   store.StateQueued,
		Progress: 0,
		Message:  "queued",
	}); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("status init failed")
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "async processing not configured")
		return
	}
	id := r.PathValue("id")
	st, found, err := s.Status.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "status store unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "async processing not configured")
		return
	}
	id := r.PathValue("id")
	body, found, err := s.Status.GetResult(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "status store unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no result for job")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"status": "ok"}
	if s.Checker != nil {
		out["dependencies"] = s.Checker.Summary(r.Context())
	}
	if s.Queue != nil {
		if depth, dlq, err := s.Queue.Depths(r.Context()); err == nil {
			out["queue"] = map[string]int64{"depth": depth, "dlq": dlq}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
