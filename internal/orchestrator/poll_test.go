package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"imgto3d/internal/api"
)

// jobSequence serves a scripted series of status responses, then keeps
// repeating the last one. Requests past a terminal response are recorded so
// tests can prove polling stopped.
type jobSequence struct {
	mu      sync.Mutex
	scripts []func(w http.ResponseWriter)
	calls   int
}

func (s *jobSequence) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}
	script := s.scripts[idx]
	s.mu.Unlock()
	script(w)
}

func (s *jobSequence) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func statusResponse(status string, outputs []api.JobOutput) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "job-1",
			"status":  status,
			"outputs": outputs,
		})
	}
}

func errorResponse(code int) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
		w.Write([]byte(`{"message":"transient"}`))
	}
}

func pollClient(t *testing.T, seq *jobSequence) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(seq.handler))
	t.Cleanup(srv.Close)
	creds := api.NewCredentials()
	creds.SetAPIKey("ak_test")
	client, err := api.NewClient(api.Options{BaseURL: srv.URL, Credentials: creds})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func fastPollConfig() PollConfig {
	return PollConfig{Interval: 5 * time.Millisecond, ErrorInterval: 5 * time.Millisecond}
}

func TestWatchObservesLifecycleToCompletion(t *testing.T) {
	outputs := []api.JobOutput{
		{Format: api.FormatGLB, URL: "http://cdn.local/model.glb", SizeBytes: 2048},
	}
	seq := &jobSequence{scripts: []func(http.ResponseWriter){
		statusResponse("queued", nil),
		statusResponse("running", nil),
		statusResponse("exporting", nil),
		statusResponse("completed", outputs),
	}}
	poller := NewPoller(pollClient(t, seq), nil, fastPollConfig())

	var mu sync.Mutex
	var observed []api.JobStatus
	completions := 0
	watch := poller.Watch(context.Background(), "job-1",
		func(rec *api.JobRecord) {
			mu.Lock()
			observed = append(observed, rec.Status)
			mu.Unlock()
		},
		func(rec *api.JobRecord) {
			mu.Lock()
			completions++
			mu.Unlock()
			if len(rec.Outputs) == 0 {
				t.Errorf("completion record has no outputs")
			}
		})

	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not finish")
	}

	final, err := watch.Result()
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	if final.Status != api.StatusCompleted {
		t.Fatalf("final status = %q, want completed", final.Status)
	}

	mu.Lock()
	gotObserved := append([]api.JobStatus(nil), observed...)
	gotCompletions := completions
	mu.Unlock()

	want := []api.JobStatus{api.StatusQueued, api.StatusRunning, api.StatusExporting, api.StatusCompleted}
	if len(gotObserved) != len(want) {
		t.Fatalf("observations = %v, want %v", gotObserved, want)
	}
	for i := range want {
		if gotObserved[i] != want[i] {
			t.Fatalf("observation %d = %q, want %q", i, gotObserved[i], want[i])
		}
	}
	if gotCompletions != 1 {
		t.Fatalf("completions = %d, want exactly 1", gotCompletions)
	}

	// No request may follow a terminal observation.
	requests := seq.callCount()
	time.Sleep(50 * time.Millisecond)
	if got := seq.callCount(); got != requests {
		t.Fatalf("requests after terminal status: %d -> %d", requests, got)
	}
	if requests != 4 {
		t.Fatalf("requests = %d, want 4", requests)
	}
}

func TestWatchStopIsDeterministic(t *testing.T) {
	seq := &jobSequence{scripts: []func(http.ResponseWriter){
		statusResponse("running", nil),
	}}
	poller := NewPoller(pollClient(t, seq), nil, fastPollConfig())

	observed := make(chan struct{}, 64)
	completions := 0
	watch := poller.Watch(context.Background(), "job-1",
		func(rec *api.JobRecord) { observed <- struct{}{} },
		func(rec *api.JobRecord) { completions++ })

	select {
	case <-observed:
	case <-time.After(2 * time.Second):
		t.Fatalf("no observation before stop")
	}
	watch.Stop()
	watch.Stop() // idempotent

	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not stop")
	}

	requests := seq.callCount()
	time.Sleep(50 * time.Millisecond)
	if got := seq.callCount(); got != requests {
		t.Fatalf("requests after stop: %d -> %d", requests, got)
	}
	final, err := watch.Result()
	if final != nil || err != nil {
		t.Fatalf("stopped watch result = %v, %v, want nil, nil", final, err)
	}
	if completions != 0 {
		t.Fatalf("stop must not fire the completion callback")
	}
}

func TestWatchRecoversFromTransientErrors(t *testing.T) {
	seq := &jobSequence{scripts: []func(http.ResponseWriter){
		statusResponse("running", nil),
		errorResponse(http.StatusBadGateway),
		errorResponse(http.StatusBadGateway),
		statusResponse("completed", []api.JobOutput{{Format: api.FormatGLB, URL: "u"}}),
	}}
	poller := NewPoller(pollClient(t, seq), nil, fastPollConfig())

	watch := poller.Watch(context.Background(), "job-1", nil, nil)
	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not finish")
	}
	final, err := watch.Result()
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	if final.Status != api.StatusCompleted {
		t.Fatalf("final status = %q, want completed despite transient errors", final.Status)
	}
}

func TestWatchGivesUpAfterRetryCeiling(t *testing.T) {
	seq := &jobSequence{scripts: []func(http.ResponseWriter){
		errorResponse(http.StatusInternalServerError),
	}}
	cfg := fastPollConfig()
	cfg.MaxErrorRetries = 3
	poller := NewPoller(pollClient(t, seq), nil, cfg)

	watch := poller.Watch(context.Background(), "job-1", nil, nil)
	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not give up")
	}
	final, err := watch.Result()
	if final != nil {
		t.Fatalf("final = %+v, want nil", final)
	}
	if err == nil || !strings.Contains(err.Error(), "gave up after 3") {
		t.Fatalf("error = %v, want give-up after 3 consecutive errors", err)
	}
	if got := seq.callCount(); got != 3 {
		t.Fatalf("requests = %d, want 3", got)
	}
}

func TestWatchHonorsContextCancel(t *testing.T) {
	seq := &jobSequence{scripts: []func(http.ResponseWriter){
		statusResponse("queued", nil),
	}}
	poller := NewPoller(pollClient(t, seq), nil, fastPollConfig())

	ctx, cancel := context.WithCancel(context.Background())
	watch := poller.Watch(ctx, "job-1", nil, nil)
	cancel()
	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watch ignored context cancellation")
	}
}
