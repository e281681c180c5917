// Package main provides the query service: a read-only HTTP API over
// the persisted PID tables, serving per-run event times, species rows
// and the beta/mass channels.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/storage"
	chstore "tof-pid-lab/internal/storage/clickhouse"
	pgstore "tof-pid-lab/internal/storage/postgres"
)

// Server serves the query API over the persistent stores.
type Server struct {
	evtStore storage.EventTimeStore
	nsStore  storage.NsigmaStore
	bmStore  storage.BetaMassStore
	logger   *log.Logger
	started  time.Time
	requests atomic.Int64
}

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "Serve event times and species rows from ClickHouse instead")
	addr := flag.String("addr", ":8080", "HTTP listen address")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()

	srv := &Server{
		evtStore: pgstore.NewEventTimeStore(pool),
		nsStore:  pgstore.NewNsigmaStore(pool),
		bmStore:  pgstore.NewBetaMassStore(pool),
		logger:   logger,
		started:  time.Now(),
	}

	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse connection failed: %v", err)
		}
		defer conn.Close()
		srv.evtStore = chstore.NewEventTimeStore(conn)
		srv.nsStore = chstore.NewNsigmaStore(conn)
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv.routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting query server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/event-times", s.handleEventTimes)
	mux.HandleFunc("/nsigma", s.handleNsigma)
	mux.HandleFunc("/beta", s.handleBeta)
	mux.HandleFunc("/mass", s.handleMass)
	return mux
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Requests int64  `json:"requests"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).String(),
		Requests: s.requests.Load(),
	})
}

// eventTimeRow is the wire form of one event-time record.
type eventTimeRow struct {
	TrackIndex int     `json:"track_index"`
	Value      float64 `json:"value"`
	Err        float64 `json:"err"`
	Flags      uint8   `json:"flags"`
}

func (s *Server) handleEventTimes(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	run, ok := runParam(w, r)
	if !ok {
		return
	}
	recs, err := s.evtStore.GetByRun(r.Context(), run)
	if err != nil {
		s.storeError(w, err)
		return
	}
	rows := make([]eventTimeRow, len(recs))
	for i, rec := range recs {
		rows[i] = eventTimeRow{rec.TrackIndex, rec.Value, rec.Err, rec.Flags}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_number": run, "rows": rows})
}

// nsigmaRow is the wire form of one species row.
type nsigmaRow struct {
	TrackIndex int     `json:"track_index"`
	Species    string  `json:"species"`
	Nsigma     float64 `json:"nsigma"`
	Resolution float64 `json:"resolution"`
}

func (s *Server) handleNsigma(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	run, ok := runParam(w, r)
	if !ok {
		return
	}
	sp, err := domain.ParseSpecies(r.URL.Query().Get("species"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.nsStore.GetByRunSpecies(r.Context(), run, sp)
	if err != nil {
		s.storeError(w, err)
		return
	}
	rows := make([]nsigmaRow, len(recs))
	for i, rec := range recs {
		rows[i] = nsigmaRow{rec.TrackIndex, rec.Species.String(), rec.Nsigma, rec.Resolution}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_number": run, "rows": rows})
}

// betaRow is the wire form of one velocity-channel record.
type betaRow struct {
	TrackIndex int     `json:"track_index"`
	Beta       float64 `json:"beta"`
	BetaErr    float64 `json:"beta_err"`
}

func (s *Server) handleBeta(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	run, ok := runParam(w, r)
	if !ok {
		return
	}
	recs, err := s.bmStore.GetBetaByRun(r.Context(), run)
	if err != nil {
		s.storeError(w, err)
		return
	}
	rows := make([]betaRow, len(recs))
	for i, rec := range recs {
		rows[i] = betaRow{rec.TrackIndex, rec.Beta, rec.BetaErr}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_number": run, "rows": rows})
}

// massRow is the wire form of one mass-channel record.
type massRow struct {
	TrackIndex int     `json:"track_index"`
	Mass       float64 `json:"mass"`
}

func (s *Server) handleMass(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	run, ok := runParam(w, r)
	if !ok {
		return
	}
	recs, err := s.bmStore.GetMassByRun(r.Context(), run)
	if err != nil {
		s.storeError(w, err)
		return
	}
	rows := make([]massRow, len(recs))
	for i, rec := range recs {
		rows[i] = massRow{rec.TrackIndex, rec.Mass}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_number": run, "rows": rows})
}

// runParam parses the mandatory run query parameter. On failure it
// writes the error response and returns ok=false.
func runParam(w http.ResponseWriter, r *http.Request) (int32, bool) {
	raw := r.URL.Query().Get("run")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing run parameter")
		return 0, false
	}
	run, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || run <= 0 {
		writeError(w, http.StatusBadRequest, "invalid run parameter")
		return 0, false
	}
	return int32(run), true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.logger.Printf("Store error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
