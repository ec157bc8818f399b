package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/observability"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/store"
)

const meshBody = `{
  "mesh": {"cols": 3, "rows": 3},
  "application": {"flows": [
    {"name": "a", "source": "cam", "target": "dsp", "period": 4, "deadline": 100, "datasize": 16},
    {"name": "b", "source": "dsp", "target": "cpu", "period": 6, "deadline": 100, "datasize": 8}
  ]},
  "mapping": {"cam": "0", "dsp": "4", "cpu": "8"}
}`

const topologyBody = `{
  "topology": {
    "nodes": [{"id": "0", "x": 0, "y": 0}, {"id": "1", "x": 1, "y": 0}],
    "links": [{"source": "0", "target": "1"}, {"source": "1", "target": "0"}]
  },
  "application": {"flows": [
    {"name": "f1", "source": "t0", "target": "t1", "period": 10, "deadline": 5, "datasize": 64}
  ]},
  "mapping": {"t0": "0", "t1": "1"},
  "options": {"pad": 3}
}`

func newTestServer(t *testing.T, s solver.Solver) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, store.NewMemoryStore(), s, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPostModel(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := post(t, ts.URL+"/v1/models", meshBody)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	var m modelResponse
	decodeBody(t, resp, &m)
	if m.Hyperperiod != 12 || m.NumPackets != 5 {
		t.Errorf("model = hp %d, %d packets; want 12, 5", m.Hyperperiod, m.NumPackets)
	}
	if m.NumLinks == 0 || !strings.Contains(m.DZN, "num_packets = 5;") {
		t.Errorf("unexpected model response %+v", m)
	}
}

func TestPostModelTopology(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := post(t, ts.URL+"/v1/models", topologyBody)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	var m modelResponse
	decodeBody(t, resp, &m)
	if m.NumLinks != 3 || m.SkippedLinks != 3 {
		t.Errorf("links = %d used, %d skipped; want 3, 3", m.NumLinks, m.SkippedLinks)
	}
	if !strings.Contains(m.DZN, "[|  26,  %0-1\n") {
		t.Errorf("pad option not applied:\n%s", m.DZN)
	}
}

func TestPostModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", `{"bogus": 1}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no topology", `{"application": {"flows": []}, "mapping": {}}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{
			"partitioned topology",
			strings.Replace(topologyBody, `, {"source": "1", "target": "0"}`, "", 1),
			http.StatusBadRequest,
			errors.ErrCodeInvalidTopology,
		},
		{
			"unmapped task",
			strings.Replace(meshBody, `"cpu": "8"`, `"other": "8"`, 1),
			http.StatusBadRequest,
			errors.ErrCodeUnmappedTask,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t, nil)
			resp := post(t, ts.URL+"/v1/models", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var e errorBody
			decodeBody(t, resp, &e)
			if e.Code != string(tt.code) {
				t.Errorf("code = %q, want %q (%s)", e.Code, tt.code, e.Message)
			}
		})
	}
}

func TestPostModelBodyLimit(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.MaxBodyBytes = 16
	resp := post(t, ts.URL+"/v1/models", meshBody)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	_, ts := newTestServer(t, solver.Static([]byte("release = [0, 4, 8, 0, 6];\n----------\n")))

	resp := post(t, ts.URL+"/v1/schedules", meshBody)
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	var run store.Run
	decodeBody(t, resp, &run)
	if !store.ValidID(run.ID) {
		t.Fatalf("invalid run ID %q", run.ID)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/schedules/"+run.ID {
		t.Errorf("Location = %q", loc)
	}
	if run.Schedule == nil || len(run.Schedule.Entries) != 5 {
		t.Fatalf("schedule = %+v", run.Schedule)
	}

	get, err := http.Get(ts.URL + "/v1/schedules/" + run.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	var got store.Run
	decodeBody(t, get, &got)
	if got.ID != run.ID || got.Schedule.Entries[4].Release != 6 {
		t.Errorf("GET returned %+v", got)
	}

	list, err := http.Get(ts.URL + "/v1/schedules?limit=10")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var runs []store.Run
	decodeBody(t, list, &runs)
	if len(runs) != 1 {
		t.Errorf("list returned %d runs, want 1", len(runs))
	}
}

func TestGetScheduleNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/v1/schedules/" + store.NewID())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var e errorBody
	decodeBody(t, resp, &e)
	if e.Code != string(errors.ErrCodeNotFound) {
		t.Errorf("code = %q, want NOT_FOUND", e.Code)
	}
}

func TestScheduleSolverErrors(t *testing.T) {
	tests := []struct {
		name   string
		s      solver.Solver
		status int
	}{
		{"no solver", nil, http.StatusServiceUnavailable},
		{
			"unavailable",
			solver.Func(func(context.Context, []byte) ([]byte, error) {
				return nil, errors.New(errors.ErrCodeSolverUnavailable, "minizinc not found")
			}),
			http.StatusServiceUnavailable,
		},
		{
			"timeout",
			solver.Func(func(context.Context, []byte) ([]byte, error) {
				return nil, errors.New(errors.ErrCodeTimeout, "too slow")
			}),
			http.StatusGatewayTimeout,
		},
		{"unsatisfiable", solver.Static([]byte("=====UNSATISFIABLE=====\n")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t, tt.s)
			resp := post(t, ts.URL+"/v1/schedules", meshBody)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidFlow, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeNodeNotFound, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeSolverUnavailable, "x"), http.StatusServiceUnavailable},
		{errors.New(errors.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{errors.New(errors.ErrCodeInconsistentModel, "x"), http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	errs   int
}

func (h *httpRecorder) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func (h *httpRecorder) OnError(context.Context, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs++
}

func (h *httpRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.routes)
}

func TestHTTPHooks(t *testing.T) {
	h := &httpRecorder{}
	observability.SetHTTPHooks(h)
	defer observability.Reset()

	_, ts := newTestServer(t, nil)
	post(t, ts.URL+"/v1/models", meshBody)
	resp, err := http.Get(ts.URL + "/v1/schedules/" + store.NewID())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// Responses are reported after the body is written.
	deadline := time.Now().Add(2 * time.Second)
	for h.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	want := "POST /v1/models,GET /v1/schedules/{id}"
	if got := strings.Join(h.routes, ","); got != want {
		t.Errorf("routes = %s, want %s", got, want)
	}
	if h.errs != 1 {
		t.Errorf("errors = %d, want 1", h.errs)
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
