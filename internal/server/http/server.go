package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/utubettl/utubettl/internal/queue"
	"github.com/utubettl/utubettl/internal/reqid"
	"github.com/utubettl/utubettl/internal/runtime"
	"github.com/utubettl/utubettl/pkg/log"
)

// Server is a minimal REST gateway over a Runtime's spaces.
type Server struct {
	rt     *runtime.Runtime
	logger log.Logger
	srv    *http.Server
	lis    net.Listener
}

// New builds a Server with routes registered against rt.
func New(rt *runtime.Runtime, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewLogger(log.WithLevel(log.InfoLevel))
	}
	s := &Server{rt: rt, logger: logger.WithComponent("httpserver")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/spaces", s.handleListSpaces)
	mux.HandleFunc("POST /v1/spaces", s.handleCreateSpace)
	mux.HandleFunc("POST /v1/spaces/{name}/tasks", s.handlePut)
	mux.HandleFunc("POST /v1/spaces/{name}/take", s.handleTake)
	mux.HandleFunc("GET /v1/spaces/{name}/tasks/{id}", s.handlePeek)
	mux.HandleFunc("POST /v1/spaces/{name}/tasks/{id}/release", s.handleRelease)
	mux.HandleFunc("DELETE /v1/spaces/{name}/tasks/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/spaces/{name}/tasks/{id}/bury", s.handleBury)
	mux.HandleFunc("POST /v1/spaces/{name}/kick", s.handleKick)
	mux.HandleFunc("GET /v1/spaces/{name}/completed", s.handleCompleted)

	s.srv = &http.Server{Handler: reqid.Middleware(cors(s.withLogging(mux)))}
	return s
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(cctx)
	case err := <-errCh:
		return err
	}
}

// Close closes the listener without waiting for in-flight requests.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			log.Str("method", r.Method),
			log.Str("path", r.URL.Path),
			log.Str("request_id", reqid.FromContext(r.Context())),
			log.Any("elapsed", time.Since(start)),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) space(w http.ResponseWriter, r *http.Request) (*queue.Queue, bool) {
	name := r.PathValue("name")
	q, err := s.rt.GetSpace(name)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return nil, false
	}
	return q, true
}

func taskID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, errors.New("invalid task id"))
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"spaces": s.rt.ListSpaces()})
}

type createSpaceReq struct {
	Name  string         `json:"name"`
	TTLMs int64          `json:"ttl_ms"`
	TTRMs int64          `json:"ttr_ms"`
	Pri   int32          `json:"pri"`
	Limit map[string]int `json:"limit"`
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req createSpaceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	_, meta, err := s.rt.CreateSpace(req.Name, queue.SpaceOptions{
		TTL:   time.Duration(req.TTLMs) * time.Millisecond,
		TTR:   time.Duration(req.TTRMs) * time.Millisecond,
		Pri:   req.Pri,
		Limit: req.Limit,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrInvalidLimit) {
			status = http.StatusBadRequest
		}
		writeErr(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

type putReq struct {
	Data    []byte `json:"data"`
	TTLMs   *int64 `json:"ttl_ms"`
	TTRMs   *int64 `json:"ttr_ms"`
	Pri     *int32 `json:"pri"`
	Utube   string `json:"utube"`
	DelayMs int64  `json:"delay_ms"`
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	var req putReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	opts := queue.PutOptions{Utube: req.Utube, Delay: time.Duration(req.DelayMs) * time.Millisecond}
	if req.TTLMs != nil {
		d := time.Duration(*req.TTLMs) * time.Millisecond
		opts.TTL = &d
	}
	if req.TTRMs != nil {
		d := time.Duration(*req.TTRMs) * time.Millisecond
		opts.TTR = &d
	}
	opts.Pri = req.Pri

	task, err := q.Put(req.Data, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrInvalidTimeout) {
			status = http.StatusBadRequest
		}
		writeErr(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, queue.NormalizeTask(task))
}

func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	task, found, err := q.Take()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNoContent, nil)
		return
	}
	writeJSON(w, http.StatusOK, queue.NormalizeTask(task))
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, found, err := q.Peek(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, errors.New("task not found"))
		return
	}
	writeJSON(w, http.StatusOK, queue.NormalizeTask(task))
}

type releaseReq struct {
	DelayMs int64 `json:"delay_ms"`
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req releaseReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
	}
	task, found, err := q.Release(id, queue.ReleaseOptions{Delay: time.Duration(req.DelayMs) * time.Millisecond})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, errors.New("task not found"))
		return
	}
	writeJSON(w, http.StatusOK, queue.NormalizeTask(task))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, found, err := q.Delete(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, errors.New("task not found"))
		return
	}
	writeJSON(w, http.StatusOK, queue.NormalizeTask(task))
}

func (s *Server) handleBury(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, found, err := q.Bury(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, errors.New("task not found"))
		return
	}
	writeJSON(w, http.StatusOK, queue.NormalizeTask(task))
}

type kickReq struct {
	N int `json:"n"`
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	q, ok := s.space(w, r)
	if !ok {
		return
	}
	var req kickReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.N <= 0 {
		req.N = 1
	}
	kicked, err := q.Kick(req.N)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"kicked": kicked})
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := queue.NewCompletedLog(s.rt.DB(), name, 0).List(limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": entries})
}
