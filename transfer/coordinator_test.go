package transfer

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/corpus-uploader/types"
)

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func audioMeta() types.ContributionMetadata {
	return types.ContributionMetadata{
		Title:         "Morning song",
		Description:   "recorded at home",
		CategoryId:    "cat-3",
		Language:      "te",
		MediaType:     types.MediaTypeAudio,
		ReleaseRights: "creator",
	}
}

func TestUploadTwelveMiBInThreeChunks(t *testing.T) {
	const mib = 1024 * 1024
	fc, srv := newFakeCorpus(t)
	c := newTestCoordinator(t, srv, DefaultChunkSize, &recordingSleeper{})

	data := patterned(12 * mib)
	src := NewBytesSource("song.mp3", "audio/mpeg", data)
	progress := &progressLog{}

	recordId, err := c.Upload(context.Background(), src, audioMeta(), progress.record)
	require.NoError(t, err)
	assert.Equal(t, "rec-42", recordId)

	chunks := fc.received()
	require.Len(t, chunks, 3)
	wantLens := []int{5 * mib, 5 * mib, 2 * mib}
	var joined []byte
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 3, ch.Total)
		assert.Equal(t, "song.mp3", ch.Filename)
		assert.Equal(t, chunks[0].UUID, ch.UUID, "every chunk carries the same transfer id")
		assert.Len(t, ch.Data, wantLens[i])
		joined = append(joined, ch.Data...)
	}
	assert.True(t, bytes.Equal(data, joined), "chunks must reassemble to the source")

	forms := fc.finalizes()
	require.Len(t, forms, 1)
	assert.Equal(t, "3", forms[0].Get("total_chunks"))
	assert.Equal(t, chunks[0].UUID, forms[0].Get("upload_uuid"))

	assert.Equal(t, []int{33, 67, 99, 100}, progress.snapshot())
}

func TestUploadSendsFinalizeForm(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

	meta := audioMeta()
	_, err := c.Upload(context.Background(), NewBytesSource("clip.wav", "audio/wav", patterned(25)), meta, nil)
	require.NoError(t, err)

	forms := fc.finalizes()
	require.Len(t, forms, 1)
	form := forms[0]
	assert.Equal(t, meta.Title, form.Get("title"))
	assert.Equal(t, meta.Description, form.Get("description"))
	assert.Equal(t, meta.CategoryId, form.Get("category_id"))
	assert.Equal(t, "user-7", form.Get("user_id"))
	assert.Equal(t, "audio", form.Get("media_type"))
	assert.Equal(t, "clip.wav", form.Get("filename"))
	assert.Equal(t, "3", form.Get("total_chunks"))
	assert.Equal(t, "creator", form.Get("release_rights"))
	assert.Equal(t, "te", form.Get("language"))
	assert.Equal(t, "false", form.Get("use_uid_filename"))
	assert.NotEmpty(t, form.Get("upload_uuid"))

	for _, h := range fc.authHeaders {
		assert.Equal(t, "Bearer secret-token", h)
	}
}

func TestUploadChunksInIncreasingOrder(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.failures[2] = 1
	c := newTestCoordinator(t, srv, 4, &recordingSleeper{})

	_, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(22)), audioMeta(), nil)
	require.NoError(t, err)

	// chunk 2 is retried once in place; nothing is sent out of order
	assert.Equal(t, []int{0, 1, 2, 2, 3, 4, 5}, fc.attemptIndexes())
}

func TestUploadRetriesTwiceThenSucceeds(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.failures[0] = 2
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(t, srv, 10, sleeper)

	recordId, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(10)), audioMeta(), nil)
	require.NoError(t, err)
	assert.Equal(t, "rec-42", recordId)
	assert.Equal(t, []int{0, 0, 0}, fc.attemptIndexes())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond}, sleeper.recorded())
}

func TestUploadAbortsAfterThreeFailures(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.failures[1] = -1
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

	src := NewBytesSource("a.bin", "", patterned(35))
	sess, err := c.Begin(src)
	require.NoError(t, err)
	progress := &progressLog{}

	_, err = c.Run(context.Background(), sess, src, audioMeta(), progress.record)
	require.Error(t, err)

	var chunkErr *ChunkUploadFailedError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 1, chunkErr.ChunkIndex)
	assert.Equal(t, 3, chunkErr.Attempts)
	assert.Equal(t, sess.TransferId, chunkErr.TransferId)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)

	assert.Equal(t, []int{0, 1, 1, 1}, fc.attemptIndexes(), "no chunk after the failed one may be sent")
	assert.Empty(t, fc.finalizes())
	assert.Equal(t, types.SessionFailed, sess.State)
	assert.Equal(t, 1, sess.ChunksAcknowledged)
	assert.Equal(t, []int{25}, progress.snapshot())
}

func TestProgressHundredOnlyAfterFinalize(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})
	progress := &progressLog{}

	var seenAtFinalize []int
	fc.onFinalize = func() { seenAtFinalize = progress.snapshot() }

	_, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(30)), audioMeta(), progress.record)
	require.NoError(t, err)

	assert.NotContains(t, seenAtFinalize, 100)
	assert.Equal(t, []int{33, 67, 99}, seenAtFinalize)
	got := progress.snapshot()
	assert.Equal(t, 100, got[len(got)-1])
}

func TestUploadFinalizeFailed(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"json detail", http.StatusUnprocessableEntity, `{"detail": "unknown category"}`, "unknown category"},
		{"plain text", http.StatusInternalServerError, "database unavailable", ""},
		{"validation list", http.StatusUnprocessableEntity, `{"detail": ["title: field required"]}`, `["title: field required"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, srv := newFakeCorpus(t)
			fc.finalizeStatus = tt.status
			fc.finalizeBody = tt.body
			c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

			src := NewBytesSource("a.bin", "", patterned(15))
			sess, err := c.Begin(src)
			require.NoError(t, err)
			progress := &progressLog{}

			_, err = c.Run(context.Background(), sess, src, audioMeta(), progress.record)
			var finErr *FinalizeFailedError
			require.ErrorAs(t, err, &finErr)
			assert.Equal(t, tt.status, finErr.StatusCode)
			assert.Equal(t, tt.body, finErr.Body)
			assert.Equal(t, tt.wantDetail, finErr.Detail)

			assert.Len(t, fc.finalizes(), 1, "finalize is never retried")
			assert.Equal(t, types.SessionFailed, sess.State)
			assert.Equal(t, 2, sess.ChunksAcknowledged)
			assert.NotContains(t, progress.snapshot(), 100)
		})
	}
}

func TestUploadFinalizeMissingRecordId(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.finalizeBody = `{"status": "ok"}`
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

	_, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(5)), audioMeta(), nil)
	var finErr *FinalizeFailedError
	require.ErrorAs(t, err, &finErr)
	assert.Contains(t, finErr.Detail, "missing record id")
}

func TestUploadRecordIdShapes(t *testing.T) {
	tests := map[string]string{
		`{"id": 123}`:                  "123",
		`{"uid": "abc"}`:               "abc",
		`{"data": {"id": "nested"}}`:   "nested",
		`{"record_id": "r-1", "x": 1}`: "r-1",
	}
	for body, want := range tests {
		fc, srv := newFakeCorpus(t)
		fc.finalizeBody = body
		c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

		got, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(5)), audioMeta(), nil)
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}
}

func TestUploadCancelledDuringBackoff(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.failures[0] = -1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &recordingSleeper{onSleep: cancel}
	c := newTestCoordinator(t, srv, 10, sleeper)

	src := NewBytesSource("a.bin", "", patterned(30))
	sess, err := c.Begin(src)
	require.NoError(t, err)

	_, err = c.Run(ctx, sess, src, audioMeta(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var chunkErr *ChunkUploadFailedError
	assert.False(t, errors.As(err, &chunkErr), "cancellation is not a chunk failure")

	assert.Equal(t, []int{0}, fc.attemptIndexes())
	assert.Empty(t, fc.finalizes())
	assert.Equal(t, types.SessionFailed, sess.State)
}

func TestUploadCancelledBetweenChunks(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

	onProgress := func(pct int) {
		if pct > 0 {
			cancel()
		}
	}
	_, err := c.Upload(ctx, NewBytesSource("a.bin", "", patterned(30)), audioMeta(), onProgress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{0}, fc.attemptIndexes())
	assert.Empty(t, fc.finalizes())
}

func TestUploadRejectsEmptySource(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

	_, err := c.Upload(context.Background(), NewBytesSource("empty.bin", "", nil), audioMeta(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.Upload(context.Background(), nil, audioMeta(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, fc.attemptIndexes(), "invalid input never reaches the network")
}

func TestRunRejectsReusedSession(t *testing.T) {
	_, srv := newFakeCorpus(t)
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})

	src := NewBytesSource("a.bin", "", patterned(5))
	sess, err := c.Begin(src)
	require.NoError(t, err)
	_, err = c.Run(context.Background(), sess, src, audioMeta(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.SessionCompleted, sess.State)
	assert.Equal(t, sess.TotalChunks, sess.ChunksAcknowledged)

	_, err = c.Run(context.Background(), sess, src, audioMeta(), nil)
	assert.Error(t, err)
}

func TestBeginGeneratesFreshTransferIds(t *testing.T) {
	_, srv := newFakeCorpus(t)
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})
	src := NewBytesSource("a.bin", "", patterned(5))

	a, err := c.Begin(src)
	require.NoError(t, err)
	b, err := c.Begin(src)
	require.NoError(t, err)
	assert.NotEqual(t, a.TransferId, b.TransferId)
	assert.Len(t, a.TransferId, 36)
	assert.Equal(t, types.SessionPending, a.State)
}

func TestCleanupRunsAfterFinalizeFailure(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.finalizeStatus = http.StatusBadRequest
	fc.finalizeBody = `{"detail": "bad"}`

	var cleaned []string
	c, err := NewCoordinator(Options{
		BaseURL:   srv.URL + "/api",
		ChunkSize: 10,
		Retry:     RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: (&recordingSleeper{}).Sleep},
		Client:    srv.Client(),
		Cleanup: func(ctx context.Context, sess types.UploadSession) error {
			cleaned = append(cleaned, sess.TransferId)
			return errors.New("no cleanup endpoint")
		},
	})
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(5)), audioMeta(), nil)
	var finErr *FinalizeFailedError
	require.ErrorAs(t, err, &finErr, "cleanup errors never replace the finalize error")
	assert.Len(t, cleaned, 1)
}

func TestUploadTokenError(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	c, err := NewCoordinator(Options{
		BaseURL: srv.URL + "/api",
		Client:  srv.Client(),
		Tokens: TokenFunc(func(context.Context) (string, error) {
			return "", errors.New("logged out")
		}),
	})
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(5)), audioMeta(), nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "logged out"))
	assert.Empty(t, fc.attemptIndexes())
}

func TestNewCoordinatorRejectsBadBaseURL(t *testing.T) {
	_, err := NewCoordinator(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestNewCoordinatorFromConfig(t *testing.T) {
	cfg := types.AppConfig{
		BaseURL:        "https://corpus.example.org/api/v1",
		ChunkSizeBytes: 1024,
		MaxAttempts:    4,
		BackoffBaseMs:  250,
	}
	c, err := NewCoordinatorFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), c.ChunkSize())
	assert.Equal(t, "https://corpus.example.org/api/v1/records/upload/chunk", c.chunkURL)
	assert.Equal(t, "https://corpus.example.org/api/v1/records/upload", c.finalizeURL)
	assert.Equal(t, 4, c.opts.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, c.opts.Retry.BaseDelay)
	assert.Nil(t, c.opts.Cleanup)
}

func TestUploadRetriesDroppedConnections(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.drops[0] = 2
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(t, srv, 10, sleeper)

	recordId, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(10)), audioMeta(), nil)
	require.NoError(t, err)
	assert.Equal(t, "rec-42", recordId)
	assert.Equal(t, []int{0, 0, 0}, fc.attemptIndexes())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond}, sleeper.recorded())
	require.Len(t, fc.received(), 1)
}

func TestUploadRetriesTimedOutChunk(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.hangs[1] = 1
	fc.hang = 2 * time.Second
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(t, srv, 10, sleeper)
	c.opts.ChunkTimeout = 50 * time.Millisecond

	recordId, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(20)), audioMeta(), nil)
	require.NoError(t, err)
	assert.Equal(t, "rec-42", recordId)
	assert.Equal(t, []int{0, 1, 1}, fc.attemptIndexes())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, sleeper.recorded())
}

func TestUploadChunkTimeoutIsNotCancellation(t *testing.T) {
	fc, srv := newFakeCorpus(t)
	fc.hangs[0] = 3
	fc.hang = 2 * time.Second
	c := newTestCoordinator(t, srv, 10, &recordingSleeper{})
	c.opts.ChunkTimeout = 50 * time.Millisecond

	_, err := c.Upload(context.Background(), NewBytesSource("a.bin", "", patterned(10)), audioMeta(), nil)
	var chunkErr *ChunkUploadFailedError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 3, chunkErr.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "chunk upload timed out")
	assert.Empty(t, fc.finalizes())
}

func TestUploadFinalizeWithoutAnswer(t *testing.T) {
	tests := []struct {
		name        string
		drop        bool
		hang        time.Duration
		wantDetail  string
		wantTimeout bool
	}{
		{"connection dropped", true, 0, "failed to send finalize request", false},
		{"timed out", false, 2 * time.Second, "finalize request timed out", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, srv := newFakeCorpus(t)
			fc.finalizeDrop = tt.drop
			fc.finalizeHang = tt.hang
			c := newTestCoordinator(t, srv, 10, &recordingSleeper{})
			c.opts.FinalizeTimeout = 50 * time.Millisecond

			src := NewBytesSource("a.bin", "", patterned(15))
			sess, err := c.Begin(src)
			require.NoError(t, err)

			_, err = c.Run(context.Background(), sess, src, audioMeta(), nil)
			var finErr *FinalizeFailedError
			require.ErrorAs(t, err, &finErr)
			assert.Equal(t, 0, finErr.StatusCode)
			assert.Contains(t, finErr.Detail, tt.wantDetail)
			assert.Equal(t, tt.wantTimeout, errors.Is(err, context.DeadlineExceeded))
			assert.NotErrorIs(t, err, context.Canceled)

			assert.Len(t, fc.finalizes(), 1, "finalize is never retried")
			assert.Equal(t, types.SessionFailed, sess.State)
			assert.Equal(t, 2, sess.ChunksAcknowledged)
		})
	}
}
