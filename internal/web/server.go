// Package web exposes a small dashboard for driving benchmark runs
// remotely: a JSON status endpoint, a run trigger and a websocket
// stream of live progress events.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gamedns/gamedns/internal/bench"
	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/config"
	"github.com/gamedns/gamedns/internal/util"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second

	eventBuffer = 32
)

// Event is one message on the websocket stream.
type Event struct {
	Type   string `json:"type"` // "started", "progress", "finished", "error"
	RunID  string `json:"run_id,omitempty"`
	Server string `json:"server,omitempty"`
	Done   int    `json:"done,omitempty"`
	Total  int    `json:"total,omitempty"`
	Error  string `json:"error,omitempty"`
}

type statusResponse struct {
	Running   bool          `json:"running"`
	LastRunID string        `json:"last_run_id,omitempty"`
	Report    *reportStatus `json:"report,omitempty"`
}

type reportStatus struct {
	Scorable  int          `json:"scorable"`
	Servers   int          `json:"servers"`
	Primary   *serverEntry `json:"primary,omitempty"`
	Secondary *serverEntry `json:"secondary,omitempty"`
	Ranked    []rankEntry  `json:"ranked"`
}

type serverEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type rankEntry struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Score       float64 `json:"score"`
	AvgMillis   float64 `json:"avg_ms"`
	JitterMs    float64 `json:"jitter_ms"`
	LossPercent float64 `json:"loss_percent"`
}

// ReportSink receives finished reports, e.g. for archiving.
type ReportSink func(report bench.Report, settings bench.Settings, startedAt time.Time)

// Server serves the dashboard. One benchmark runs at a time.
type Server struct {
	cfg      config.WebConfig
	servers  []catalog.Server
	settings bench.Settings
	logger   util.Logger
	sink     ReportSink

	// extra runner options, set by tests to stub the sampler
	runnerOpts []bench.Option

	// runCtx bounds benchmark runs to the server's lifetime so that
	// shutdown cancels an in-flight run.
	runCtx context.Context

	httpSrv  *http.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	running    bool
	lastRunID  string
	lastReport *bench.Report
	subs       map[chan Event]struct{}
}

func NewServer(cfg config.WebConfig, servers []catalog.Server, settings bench.Settings, logger util.Logger, sink ReportSink) *Server {
	return &Server{
		cfg:      cfg,
		servers:  servers,
		settings: settings,
		logger:   logger,
		sink:     sink,
		runCtx:   context.Background(),
		subs:     make(map[chan Event]struct{}),
	}
}

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.runCtx = ctx
	addr := net.JoinHostPort(s.cfg.BindAddr, strconv.Itoa(s.cfg.BindPort))
	s.httpSrv = &http.Server{Addr: addr, Handler: s.routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard started", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statusResponse{Running: s.running, LastRunID: s.lastRunID}
	if s.lastReport != nil {
		resp.Report = buildReportStatus(*s.lastReport)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "a benchmark is already running", http.StatusConflict)
		return
	}
	s.running = true
	runID := uuid.NewString()
	s.lastRunID = runID
	s.mu.Unlock()

	go s.runBenchmark(runID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"run_id": runID})
}

func (s *Server) runBenchmark(runID string) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.publish(Event{Type: "started", RunID: runID, Total: len(s.servers)})
	startedAt := time.Now()

	opts := append([]bench.Option{
		bench.WithLogger(s.logger),
		bench.WithProgress(func(done, total int, srv catalog.Server) {
			s.publish(Event{Type: "progress", RunID: runID, Server: srv.Name, Done: done, Total: total})
		}),
	}, s.runnerOpts...)
	runner := bench.NewRunner(s.settings, opts...)
	report, err := runner.Run(s.runCtx, s.servers)
	if err != nil {
		s.logger.Error("benchmark failed", "run_id", runID, "error", err)
		s.publish(Event{Type: "error", RunID: runID, Error: err.Error()})
		return
	}

	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()

	if s.sink != nil {
		s.sink(report, s.settings, startedAt)
	}
	s.publish(Event{Type: "finished", RunID: runID, Done: len(s.servers), Total: len(s.servers)})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	events := s.subscribe()
	defer s.unsubscribe(events)
	defer conn.Close()

	// Reader goroutine: consume pongs and detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case event := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) subscribe() chan Event {
	ch := make(chan Event, eventBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Event) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// publish fans an event out to all subscribers, dropping it for any
// subscriber whose buffer is full rather than stalling the benchmark.
func (s *Server) publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func buildReportStatus(report bench.Report) *reportStatus {
	status := &reportStatus{
		Scorable: len(report.Ranked),
		Servers:  len(report.Samples),
		Ranked:   make([]rankEntry, 0, len(report.Ranked)),
	}
	for i, res := range report.Ranked {
		status.Ranked = append(status.Ranked, rankEntry{
			Rank:        i + 1,
			Name:        res.Server.Name,
			Address:     res.Server.Address,
			Score:       res.Score,
			AvgMillis:   res.Stats.AvgMillis,
			JitterMs:    res.Stats.JitterMillis,
			LossPercent: res.Stats.LossPercent,
		})
	}
	if p := report.Recommendation.Primary; p != nil {
		status.Primary = &serverEntry{Name: p.Server.Name, Address: p.Server.Address}
	}
	if sec := report.Recommendation.Secondary; sec != nil {
		status.Secondary = &serverEntry{Name: sec.Server.Name, Address: sec.Server.Address}
	}
	return status
}
