package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"imgto3d/internal/api"
)

// pipelineBackend fakes the full upload-submit-poll surface for batch runs.
// Jobs created from a group containing poison.jpg fail at submission; all
// other jobs complete on the second poll.
type pipelineBackend struct {
	mu       sync.Mutex
	nextJob  int
	jobPolls map[string]int
}

func newPipelineRunner(t *testing.T, concurrency int) (*Runner, *pipelineBackend) {
	t.Helper()
	b := &pipelineBackend{jobPolls: map[string]int{}}

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /uploads/presign", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Filenames    []string `json:"filenames"`
			ContentTypes []string `json:"content_types"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode presign body: %v", err)
			return
		}
		slots := make([]api.UploadSlot, len(body.Filenames))
		for i, name := range body.Filenames {
			slots[i] = api.UploadSlot{
				PutURL:      srv.URL + "/put/" + name,
				Key:         "uploads/" + name,
				ContentType: body.ContentTypes[i],
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"urls": slots})
	})
	mux.HandleFunc("PUT /put/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "unreachable.jpg" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Images []api.ImageRef `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode job body: %v", err)
			return
		}
		for _, img := range body.Images {
			if img.Filename == "poison.jpg" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"detail":"image rejected"}`))
				return
			}
		}
		b.mu.Lock()
		b.nextJob++
		id := fmt.Sprintf("job-%d", b.nextJob)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"id": id, "status": "queued"})
	})
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.mu.Lock()
		b.jobPolls[id]++
		polls := b.jobPolls[id]
		b.mu.Unlock()
		status := "running"
		var outputs []api.JobOutput
		if polls >= 2 {
			status = "completed"
			outputs = []api.JobOutput{{Format: api.FormatGLB, URL: srv.URL + "/out/" + id}}
		}
		json.NewEncoder(w).Encode(map[string]any{"id": id, "status": status, "outputs": outputs})
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	creds := api.NewCredentials()
	creds.SetAPIKey("ak_test")
	client, err := api.NewClient(api.Options{BaseURL: srv.URL, Credentials: creds})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	uploader := NewUploader(client, nil, 2)
	submitter := NewSubmitter(client, nil)
	poller := NewPoller(client, nil, PollConfig{Interval: 5 * time.Millisecond, ErrorInterval: 5 * time.Millisecond})
	return NewRunner(uploader, submitter, poller, nil, concurrency), b
}

func batchGroup(prefix string, n int) []api.LocalFile {
	files := make([]api.LocalFile, n)
	for i := range files {
		files[i] = api.LocalFile{
			Name:        fmt.Sprintf("%s-%d.jpg", prefix, i),
			ContentType: "image/jpeg",
			Data:        []byte{0xFF},
		}
	}
	return files
}

func TestRunnerDrivesGroupsToCompletion(t *testing.T) {
	runner, _ := newPipelineRunner(t, 2)

	groups := [][]api.LocalFile{
		batchGroup("alpha", 3),
		batchGroup("beta", 4),
		batchGroup("gamma", 5),
	}
	params := api.JobParameters{Quality: api.QualityFast, TargetFormats: []string{api.FormatGLB}}

	results := runner.Run(context.Background(), groups, params)
	if len(results) != len(groups) {
		t.Fatalf("results = %d, want %d", len(results), len(groups))
	}
	for i, res := range results {
		if res.Index != i {
			t.Fatalf("results[%d].Index = %d", i, res.Index)
		}
		if res.Err != nil {
			t.Fatalf("group %d failed: %v", i, res.Err)
		}
		if res.JobID == "" {
			t.Fatalf("group %d has no job id", i)
		}
		if res.Record == nil || res.Record.Status != api.StatusCompleted {
			t.Fatalf("group %d record = %+v, want completed", i, res.Record)
		}
	}
}

func TestRunnerIsolatesGroupFailures(t *testing.T) {
	runner, _ := newPipelineRunner(t, 2)

	bad := batchGroup("bad", 3)
	bad[1].Name = "poison.jpg"
	groups := [][]api.LocalFile{
		batchGroup("good", 3),
		bad,
		batchGroup("tail", 3),
	}
	params := api.JobParameters{Quality: api.QualityFast, TargetFormats: []string{api.FormatGLB}}

	results := runner.Run(context.Background(), groups, params)

	if results[1].Err == nil {
		t.Fatalf("poisoned group should fail")
	}
	if !strings.Contains(results[1].Err.Error(), "image rejected") {
		t.Fatalf("group 1 error = %v, want backend rejection", results[1].Err)
	}
	for _, i := range []int{0, 2} {
		if results[i].Err != nil {
			t.Fatalf("group %d should survive sibling failure, got %v", i, results[i].Err)
		}
		if results[i].Record == nil || results[i].Record.Status != api.StatusCompleted {
			t.Fatalf("group %d record = %+v, want completed", i, results[i].Record)
		}
	}
}

func TestRunnerFailedUploadCreatesNoJob(t *testing.T) {
	runner, backend := newPipelineRunner(t, 1)

	broken := batchGroup("broken", 3)
	broken[2].Name = "unreachable.jpg"
	groups := [][]api.LocalFile{broken, batchGroup("fine", 3)}
	params := api.JobParameters{Quality: api.QualityFast, TargetFormats: []string{api.FormatGLB}}

	results := runner.Run(context.Background(), groups, params)

	if results[0].Err == nil {
		t.Fatalf("upload failure should fail the group")
	}
	var ue *UploadError
	if !errors.As(results[0].Err, &ue) {
		t.Fatalf("group 0 error = %T, want *UploadError", results[0].Err)
	}
	if results[0].JobID != "" {
		t.Fatalf("no job may exist for a partially uploaded group, got %q", results[0].JobID)
	}
	if results[1].Err != nil {
		t.Fatalf("sibling group failed: %v", results[1].Err)
	}

	// Exactly one job: the sibling's. The broken group never reached /jobs.
	backend.mu.Lock()
	jobs := backend.nextJob
	backend.mu.Unlock()
	if jobs != 1 {
		t.Fatalf("jobs created = %d, want 1", jobs)
	}
}

func TestRunnerSerialWhenConcurrencyOne(t *testing.T) {
	runner, backend := newPipelineRunner(t, 1)

	groups := [][]api.LocalFile{
		batchGroup("one", 3),
		batchGroup("two", 3),
	}
	params := api.JobParameters{Quality: api.QualityHigh, TargetFormats: []string{api.FormatUSDZ}}

	results := runner.Run(context.Background(), groups, params)
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("group %d failed: %v", i, res.Err)
		}
	}
	backend.mu.Lock()
	jobs := backend.nextJob
	backend.mu.Unlock()
	if jobs != 2 {
		t.Fatalf("jobs created = %d, want 2", jobs)
	}
}
