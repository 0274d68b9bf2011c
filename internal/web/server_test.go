package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamedns/gamedns/internal/bench"
	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/config"
	"github.com/gamedns/gamedns/internal/pinger"
	"github.com/gamedns/gamedns/internal/util"
)

type fakeSampler struct {
	rtt   time.Duration
	gate  chan struct{}
	probe int
}

func (f *fakeSampler) Probe(ctx context.Context, timeout time.Duration) pinger.Result {
	if f.gate != nil && f.probe == 0 {
		<-f.gate
	}
	f.probe++
	return pinger.Result{OK: true, RTT: f.rtt}
}

func (f *fakeSampler) Close() error { return nil }

func testLogger() util.Logger {
	return util.NewLogger(slog.LevelError)
}

func newTestServer(t *testing.T, factory pinger.Factory) *Server {
	t.Helper()
	servers := []catalog.Server{
		{Name: "Google Primary", Address: "8.8.8.8"},
		{Name: "Cloudflare Primary", Address: "1.1.1.1"},
	}
	settings := bench.Settings{PingCount: 3, Timeout: 100 * time.Millisecond, MaxWorkers: 2}
	s := NewServer(config.WebConfig{BindAddr: "127.0.0.1", BindPort: 0}, servers, settings, testLogger(), nil)
	s.runnerOpts = []bench.Option{bench.WithSamplerFactory(factory)}
	return s
}

func getStatus(t *testing.T, url string) statusResponse {
	t.Helper()
	resp, err := http.Get(url + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return status
}

func TestStatusBeforeFirstRun(t *testing.T) {
	s := newTestServer(t, func(string) (pinger.Sampler, error) {
		return &fakeSampler{rtt: 10 * time.Millisecond}, nil
	})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	status := getStatus(t, ts.URL)
	if status.Running {
		t.Fatal("no run should be in progress")
	}
	if status.Report != nil {
		t.Fatal("no report expected before the first run")
	}
}

func TestRunProducesReport(t *testing.T) {
	s := newTestServer(t, func(string) (pinger.Sampler, error) {
		return &fakeSampler{rtt: 10 * time.Millisecond}, nil
	})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		status := getStatus(t, ts.URL)
		if !status.Running && status.Report != nil {
			if status.Report.Scorable != 2 {
				t.Fatalf("scorable = %d, want 2", status.Report.Scorable)
			}
			if status.Report.Primary == nil {
				t.Fatal("finished run must carry a primary recommendation")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunStopsWithServerLifetime(t *testing.T) {
	s := newTestServer(t, func(string) (pinger.Sampler, error) {
		t.Error("run under a cancelled lifetime must not open samplers")
		return nil, errors.New("unexpected")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runCtx = ctx
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/run: %v", err)
	}
	resp.Body.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		status := getStatus(t, ts.URL)
		if !status.Running && status.Report != nil {
			if status.Report.Scorable != 0 {
				t.Fatalf("cancelled run ranked %d servers", status.Report.Scorable)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("cancelled run did not settle in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConcurrentRunIsRejected(t *testing.T) {
	gate := make(chan struct{})
	s := newTestServer(t, func(string) (pinger.Sampler, error) {
		return &fakeSampler{rtt: 10 * time.Millisecond, gate: gate}, nil
	})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	first, err := http.Post(ts.URL+"/api/run", "application/json", nil)
	if err != nil {
		t.Fatalf("first POST: %v", err)
	}
	first.Body.Close()

	second, err := http.Post(ts.URL+"/api/run", "application/json", nil)
	if err != nil {
		t.Fatalf("second POST: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("second run status = %d, want 409", second.StatusCode)
	}
	close(gate)
}

func TestWebsocketStreamsRunEvents(t *testing.T) {
	s := newTestServer(t, func(string) (pinger.Sampler, error) {
		return &fakeSampler{rtt: 10 * time.Millisecond}, nil
	})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	resp, err := http.Post(ts.URL+"/api/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/run: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	seen := map[string]bool{}
	for !seen["finished"] {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read event (seen %v): %v", seen, err)
		}
		seen[event.Type] = true
		if event.Type == "error" {
			t.Fatalf("unexpected error event: %s", event.Error)
		}
	}
	if !seen["started"] || !seen["progress"] {
		t.Fatalf("incomplete event stream: %v", seen)
	}
}
