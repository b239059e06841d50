// Package server exposes an emulator over a JSON remote control API.
//
// Routes:
//   - POST /api/load  {"code": "..."} assembles and loads a program.
//   - POST /api/step  executes one instruction.
//   - POST /api/reset drops the loaded program.
//   - GET  /api/state returns the machine state.
//
// Every state response drains the program output produced since the
// previous response.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ezrec/stackvm/config"
	"github.com/ezrec/stackvm/emulator"
	"github.com/ezrec/stackvm/translate"
)

var f = translate.From

// MaxRequestSize is the largest accepted request body, in bytes.
const MaxRequestSize = 1 << 20

// LoadRequest is the body of a load request.
type LoadRequest struct {
	Code string `json:"code"`
}

// Server is the remote control API over a single emulator.
type Server struct {
	Verbose   bool
	StepLimit int
	Defines   map[string]int64

	mu     sync.Mutex
	emu    *emulator.Emulator // nil when no program is loaded.
	router *mux.Router
}

// New creates a server from a host configuration.
func New(cfg *config.Config) (s *Server) {
	s = &Server{
		Verbose:   cfg.Verbose,
		StepLimit: cfg.StepLimit,
		Defines:   cfg.Defines,
		router:    mux.NewRouter(),
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/load", s.handleLoad).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/step", s.handleStep).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet, http.MethodOptions)
	s.router.Use(corsMiddleware)

	return
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the API on addr until the context ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) (err error) {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("stackvm: serving on %v", addr)

	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	return
}

// corsMiddleware allows browser front ends on any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		log.Printf("stackvm: response: %v", err)
	}
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var request LoadRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestSize))
	err := decoder.Decode(&request)
	if err != nil {
		http.Error(w, f("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	emu := emulator.NewEmulator()
	emu.Verbose = s.Verbose
	emu.StepLimit = s.StepLimit

	err = emu.Load(strings.NewReader(request.Code), s.Defines)
	if err != nil {
		http.Error(w, f("Assembly error: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.emu = emu
	writeJSON(w, s.emu.State())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emu == nil {
		http.Error(w, f("No program loaded"), http.StatusBadRequest)
		return
	}

	_, err := s.emu.Tick()
	if err != nil {
		if s.Verbose {
			log.Printf("stackvm: %v", err)
		}
		http.Error(w, f("VM error: %v", err), http.StatusBadRequest)
		return
	}

	writeJSON(w, s.emu.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emu = nil
	writeJSON(w, "VM reset")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emu == nil {
		http.Error(w, f("No program loaded"), http.StatusBadRequest)
		return
	}

	writeJSON(w, s.emu.State())
}
