package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"
)

type receivedChunk struct {
	Index    int
	Total    int
	UUID     string
	Filename string
	Data     []byte
}

// fakeCorpus imitates the corpus API chunk and finalize endpoints.
type fakeCorpus struct {
	mu sync.Mutex

	// chunk index of every chunk request, in arrival order
	attempts []int
	// accepted chunks only
	chunks []receivedChunk
	// chunk index -> number of attempts to reject; -1 rejects forever
	failures map[int]int
	// chunk index -> number of attempts whose connection is closed without an answer
	drops map[int]int
	// chunk index -> number of attempts held for hang before answering
	hangs         map[int]int
	hang          time.Duration
	finalizeForms []url.Values
	authHeaders   []string

	finalizeStatus int
	finalizeBody   string
	finalizeDrop   bool
	finalizeHang   time.Duration
	onFinalize     func()
}

func newFakeCorpus(t *testing.T) (*fakeCorpus, *httptest.Server) {
	t.Helper()
	fc := &fakeCorpus{
		failures:       map[int]int{},
		drops:          map[int]int{},
		hangs:          map[int]int{},
		finalizeStatus: http.StatusCreated,
		finalizeBody:   `{"id": "rec-42"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/records/upload/chunk", fc.handleChunk)
	mux.HandleFunc("/api/records/upload", fc.handleFinalize)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCorpus) handleChunk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	index, _ := strconv.Atoi(r.FormValue("chunk_index"))
	total, _ := strconv.Atoi(r.FormValue("total_chunks"))

	fc.mu.Lock()
	fc.attempts = append(fc.attempts, index)
	fc.authHeaders = append(fc.authHeaders, r.Header.Get("Authorization"))
	if fc.drops[index] > 0 {
		fc.drops[index]--
		fc.mu.Unlock()
		dropConnection(w)
		return
	}
	if fc.hangs[index] > 0 {
		fc.hangs[index]--
		hang := fc.hang
		fc.mu.Unlock()
		wait(r, hang)
		http.Error(w, "too late", http.StatusGatewayTimeout)
		return
	}
	remaining := fc.failures[index]
	if remaining != 0 {
		if remaining > 0 {
			fc.failures[index] = remaining - 1
		}
		fc.mu.Unlock()
		http.Error(w, fmt.Sprintf("chunk %d rejected", index), http.StatusServiceUnavailable)
		return
	}
	fc.mu.Unlock()

	file, _, err := r.FormFile("chunk")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fc.mu.Lock()
	fc.chunks = append(fc.chunks, receivedChunk{
		Index:    index,
		Total:    total,
		UUID:     r.FormValue("upload_uuid"),
		Filename: r.FormValue("filename"),
		Data:     data,
	})
	fc.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func (fc *fakeCorpus) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fc.mu.Lock()
	fc.finalizeForms = append(fc.finalizeForms, r.PostForm)
	fc.authHeaders = append(fc.authHeaders, r.Header.Get("Authorization"))
	status, body, hook := fc.finalizeStatus, fc.finalizeBody, fc.onFinalize
	drop, hang := fc.finalizeDrop, fc.finalizeHang
	fc.mu.Unlock()

	if hook != nil {
		hook()
	}
	if drop {
		dropConnection(w)
		return
	}
	if hang > 0 {
		wait(r, hang)
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// dropConnection closes the connection without writing a response.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	_ = conn.Close()
}

// wait blocks for d or until the client gives up on r.
func wait(r *http.Request, d time.Duration) {
	select {
	case <-r.Context().Done():
	case <-time.After(d):
	}
}

func (fc *fakeCorpus) attemptIndexes() []int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]int(nil), fc.attempts...)
}

func (fc *fakeCorpus) received() []receivedChunk {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]receivedChunk(nil), fc.chunks...)
}

func (fc *fakeCorpus) finalizes() []url.Values {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]url.Values(nil), fc.finalizeForms...)
}

// recordingSleeper replaces wall-clock backoff and remembers each requested delay.
type recordingSleeper struct {
	mu      sync.Mutex
	delays  []time.Duration
	onSleep func()
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	hook := s.onSleep
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestCoordinator(t *testing.T, srv *httptest.Server, chunkSize int64, sleeper *recordingSleeper) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Options{
		BaseURL:   srv.URL + "/api",
		Tokens:    StaticToken("secret-token"),
		UserId:    "user-7",
		ChunkSize: chunkSize,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Sleep:       sleeper.Sleep,
		},
		ChunkTimeout:    5 * time.Second,
		FinalizeTimeout: 5 * time.Second,
		Client:          srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c
}

type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) record(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, pct)
}

func (p *progressLog) snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}
