package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jpalmerr/agentcheck/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"assets/index.html": &fstest.MapFile{Data: []byte("<title>{{.Title}}</title>")},
	}
}

func TestHandleRecords(t *testing.T) {
	st := store.NewMemoryStore(10)
	st.Add(store.Record{Timestamp: "2024-05-01 10:00:00", APIName: "api", AvailableAgents: "5"})
	st.Add(store.Record{Timestamp: "2024-05-01 10:15:00", APIName: "api", AvailableAgents: "Connection Error", Failed: true})

	srv := NewServer(st, 0, "", nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got []store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[1].Failed || got[1].AvailableAgents != "Connection Error" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestHandleRecords_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, "", nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/records", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleLatest(t *testing.T) {
	st := store.NewMemoryStore(10)
	srv := NewServer(st, 0, "", nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("empty store status = %d, want 204", rec.Code)
	}

	st.Add(store.Record{Timestamp: "2024-05-01 10:00:00", APIName: "api", AvailableAgents: "1"})
	st.Add(store.Record{Timestamp: "2024-05-01 10:15:00", APIName: "api", AvailableAgents: "2"})

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.AvailableAgents != "2" {
		t.Errorf("AvailableAgents = %q, want 2", got.AvailableAgents)
	}
}

func TestHandleCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	content := "Timestamp,APIName,AvailableAgents\n2024-05-01 10:00:00,api,5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(store.NewMemoryStore(10), 0, path, nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records.csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if rec.Body.String() != content {
		t.Errorf("body = %q, want %q", rec.Body.String(), content)
	}
}

func TestHandleCSV_Missing(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, filepath.Join(t.TempDir(), "none.csv"), nil, "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records.csv", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDashboard_TitleEscaped(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, "", testAssets(), "<script>x</script>", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("title not escaped: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;x&lt;/script&gt;") {
		t.Errorf("escaped title missing: %s", body)
	}
}

func TestHandleDashboard_DefaultTitle(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, "", testAssets(), "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Body.String(), defaultTitle) {
		t.Errorf("body = %q, want default title", rec.Body.String())
	}
}

func TestHandleDashboard_UnknownPath(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, "", testAssets(), "", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// readEvent reads the next SSE data line.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	lines := make(chan string, 1)
	go func() {
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			if strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				return
			}
		}
	}()

	select {
	case line, ok := <-lines:
		if !ok {
			t.Fatal("stream closed before event")
		}
		return line
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for SSE event")
		return ""
	}
}

func TestHandleSSE_SendsLatestThenUpdates(t *testing.T) {
	st := store.NewMemoryStore(10)
	st.Add(store.Record{APIName: "api", AvailableAgents: "1"})

	srv := NewServer(st, 0, "", nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)

	var first store.Record
	if err := json.Unmarshal([]byte(readEvent(t, reader)), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first.AvailableAgents != "1" {
		t.Errorf("first event = %+v, want latest record", first)
	}

	// the subscription is registered before the first event is written
	st.Add(store.Record{APIName: "api", AvailableAgents: "Invalid JSON Response", Failed: true})

	var second store.Record
	if err := json.Unmarshal([]byte(readEvent(t, reader)), &second); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !second.Failed {
		t.Errorf("second event = %+v, want failed record", second)
	}
}

// addOnSubscribeStore adds a record right after each subscription, as a
// check finishing while an SSE client connects would.
type addOnSubscribeStore struct {
	*store.MemoryStore
	rec store.Record
}

func (a *addOnSubscribeStore) SubscribeLatest() (<-chan store.Record, store.Record, bool) {
	ch, latest, ok := a.MemoryStore.SubscribeLatest()
	a.Add(a.rec)
	return ch, latest, ok
}

func TestHandleSSE_RecordAddedWhileSubscribingSentOnce(t *testing.T) {
	st := &addOnSubscribeStore{
		MemoryStore: store.NewMemoryStore(10),
		rec:         store.Record{APIName: "api", AvailableAgents: "2"},
	}
	st.Add(store.Record{APIName: "api", AvailableAgents: "1"})

	srv := NewServer(st, 0, "", nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)

	for _, want := range []string{"1", "2"} {
		var got store.Record
		if err := json.Unmarshal([]byte(readEvent(t, reader)), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.AvailableAgents != want {
			t.Fatalf("event = %+v, want record %s", got, want)
		}
	}

	st.MemoryStore.Add(store.Record{APIName: "api", AvailableAgents: "3"})

	var third store.Record
	if err := json.Unmarshal([]byte(readEvent(t, reader)), &third); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if third.AvailableAgents != "3" {
		t.Errorf("event = %+v, want record 3 with no repeat of record 2", third)
	}
}

func TestHandleSSE_ExitsOnCancel(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, "", nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}
}

// nonFlushWriter is a ResponseWriter that does not implement http.Flusher.
type nonFlushWriter struct {
	header http.Header
	code   int
}

func (n *nonFlushWriter) Header() http.Header {
	if n.header == nil {
		n.header = make(http.Header)
	}
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) { return len(b), nil }

func (n *nonFlushWriter) WriteHeader(statusCode int) { n.code = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(10), 0, "", nil, "", testLogger())

	w := &nonFlushWriter{}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.code)
	}
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := NewServer(store.NewMemoryStore(10), port, "", nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Error("Start() expected error for port in use, got nil")
	}
}

func TestStart_ServesAndShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	srv := NewServer(store.NewMemoryStore(10), port, "", nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/api/records")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
}
