package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ostren/ember/pkg/api"
	"github.com/ostren/ember/pkg/api/http/common"
	"github.com/ostren/ember/pkg/structs"
)

const (
	wait = 30 * time.Second
)

type Server struct {
	addr       string
	debug      bool
	svc        api.API
	exit       chan os.Signal
	httpserver *http.Server
}

func NewServer(addr string, debug bool) *Server {
	return &Server{
		addr:  addr,
		debug: debug,
		exit:  make(chan os.Signal, 1),
	}
}

func (s *Server) ServeForever(svc api.API) error {
	s.svc = svc

	s.httpserver = &http.Server{
		Handler:      s.Router(),
		Addr:         s.addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("listening on ", s.httpserver.Addr)
		if err := s.httpserver.ListenAndServe(); err != nil {
			log.Warn(err)
		}
	}()

	signal.Notify(s.exit, os.Interrupt)
	defer s.Close()
	<-s.exit

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	return s.httpserver.Shutdown(ctx)
}

// Handler returns the route table bound to the given service, for callers
// embedding the API in their own server.
func Handler(svc api.API, debug bool) http.Handler {
	s := &Server{svc: svc, debug: debug}
	return s.Router()
}

// Router builds the route table; split out so tests can drive it directly.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc(common.API_HEALTH, s.Health).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOBS, s.Jobs).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc(common.API_JOB, s.getJob).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOB_RESULT, s.getResult).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOB_CANCEL, s.cancelJob).Methods(http.MethodPatch)
	router.HandleFunc(common.API_SEARCH, s.Search).Methods(http.MethodGet)

	if s.debug {
		log.Info("debug enabled, adding per-request logging middleware")
		router.Use(loggingMiddleware)
	}
	return router
}

func (s *Server) Jobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getJobs(w, r)
	case http.MethodPost:
		s.createJob(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	cjr := &structs.CreateJobRequest{}
	err := unmarshalJson(w, r, cjr)
	if err != nil {
		return
	}

	resp, err := s.svc.CreateJob(r.Context(), cjr)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	// the job is admitted & queued, not done
	w.WriteHeader(http.StatusAccepted)
	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		log.Warn("failed to write response: ", err)
	}
}

func (s *Server) getJobs(w http.ResponseWriter, r *http.Request) {
	q := &structs.Query{}
	err := unmarshalQuery(w, r, q)
	if err != nil {
		return
	}

	items, err := s.svc.Jobs(q)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	if s.debug {
		log.Info(r.URL, " returned ", len(items), " items")
	}

	err = json.NewEncoder(w).Encode(items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Job(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Result(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, err = w.Write(data)
	if err != nil {
		log.Warn("failed to write artifact: ", err)
	}
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	updated, err := s.svc.Cancel([]string{mux.Vars(r)["id"]})
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	err = json.NewEncoder(w).Encode(&common.UpdateResponse{Updated: updated})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalSearch(w, r)
	if err != nil {
		return
	}

	results, err := s.svc.Search(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	err = json.NewEncoder(w).Encode(results)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) Close() error {
	s.exit <- os.Interrupt
	return nil
}
