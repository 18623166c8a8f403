package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// ProgressFunc receives the upload percentage (0-100).
type ProgressFunc func(percent int)

// Options configures a Coordinator. Zero values fall back to defaults.
type Options struct {
	BaseURL         string
	Tokens          TokenSource
	UserId          string
	UseUidFilename  bool
	ChunkSize       int64
	Retry           RetryPolicy
	ChunkTimeout    time.Duration
	FinalizeTimeout time.Duration
	ChunksPerSecond int // 0 = unlimited
	Client          *http.Client
	Cleanup         CleanupFunc
}

// Coordinator drives files from raw bytes to a confirmed corpus record.
// It holds no per-upload state, so one Coordinator serves concurrent uploads.
type Coordinator struct {
	opts        Options
	chunkURL    string
	finalizeURL string
}

func NewCoordinator(opts Options) (*Coordinator, error) {
	chunkURL, err := tool.BuildChunkURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build chunk URL: %v", err)
	}
	finalizeURL, err := tool.BuildFinalizeURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build finalize URL: %v", err)
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	def := DefaultRetryPolicy()
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = def.MaxAttempts
	}
	if opts.Retry.BaseDelay <= 0 {
		opts.Retry.BaseDelay = def.BaseDelay
	}
	if opts.Retry.Sleep == nil {
		opts.Retry.Sleep = def.Sleep
	}
	if opts.ChunkTimeout <= 0 {
		opts.ChunkTimeout = 60 * time.Second
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = 60 * time.Second
	}
	if opts.Client == nil {
		opts.Client = tool.GetHttpClient()
	}
	if opts.Tokens == nil {
		opts.Tokens = StaticToken("")
	}

	return &Coordinator{
		opts:        opts,
		chunkURL:    chunkURL,
		finalizeURL: finalizeURL,
	}, nil
}

// NewCoordinatorFromConfig builds a Coordinator from the loaded app config.
func NewCoordinatorFromConfig(cfg types.AppConfig) (*Coordinator, error) {
	opts := Options{
		BaseURL:        cfg.BaseURL,
		Tokens:         StaticToken(cfg.Token),
		UserId:         cfg.UserId,
		UseUidFilename: cfg.UseUidFilename,
		ChunkSize:      cfg.ChunkSizeBytes,
		Retry: RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
			Sleep:       SleepContext,
		},
		ChunkTimeout:    time.Duration(cfg.ChunkTimeoutSeconds) * time.Second,
		FinalizeTimeout: time.Duration(cfg.FinalizeTimeoutSeconds) * time.Second,
		ChunksPerSecond: cfg.ChunksPerSecond,
		Client:          tool.GetHttpClient(),
	}
	if cfg.CleanupURL != "" {
		opts.Cleanup = NewEndpointCleanup(opts.Client, cfg.CleanupURL, opts.Tokens)
	}
	return NewCoordinator(opts)
}

// ChunkSize returns the slice size this coordinator uses.
func (c *Coordinator) ChunkSize() int64 {
	return c.opts.ChunkSize
}

// Begin validates src and opens a Pending session with a fresh transfer id.
// Nothing is sent yet.
func (c *Coordinator) Begin(src Source) (*types.UploadSession, error) {
	if src == nil {
		return nil, invalidInput("source is required")
	}
	size := src.Size()
	if size <= 0 {
		return nil, invalidInput("source %s is empty", src.Name())
	}

	sess := &types.UploadSession{
		TransferId:     tool.GenerateRandomUUID(),
		FileName:       src.Name(),
		FileSizeBytes:  size,
		MimeType:       src.MimeType(),
		ChunkSizeBytes: c.opts.ChunkSize,
		TotalChunks:    TotalChunks(size, c.opts.ChunkSize),
		State:          types.SessionPending,
	}
	tool.DefaultLogger.Infof("[Upload] New transfer %s: %s (%s, %s, %d chunks)",
		sess.TransferId, sess.FileName, humanize.IBytes(uint64(size)), sess.MimeType, sess.TotalChunks)
	return sess, nil
}

// Upload sends src chunk by chunk, finalizes it with meta and returns the record id.
func (c *Coordinator) Upload(ctx context.Context, src Source, meta types.ContributionMetadata, onProgress ProgressFunc) (string, error) {
	sess, err := c.Begin(src)
	if err != nil {
		return "", err
	}
	return c.Run(ctx, sess, src, meta, onProgress)
}

// Run moves a Pending session through InProgress and Finalizing to Completed.
// Any failure leaves the session Failed; nothing is retried beyond the per-chunk
// policy. Cancelling ctx stops between chunks, between attempts and during backoff.
func (c *Coordinator) Run(ctx context.Context, sess *types.UploadSession, src Source, meta types.ContributionMetadata, onProgress ProgressFunc) (string, error) {
	if sess == nil || src == nil {
		return "", invalidInput("session and source are required")
	}
	if sess.State != types.SessionPending {
		return "", fmt.Errorf("session %s is %s, expected %s", sess.TransferId, sess.State, types.SessionPending)
	}
	if src.Size() != sess.FileSizeBytes {
		return "", invalidInput("source size %d does not match session size %d", src.Size(), sess.FileSizeBytes)
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}

	fail := func(err error) (string, error) {
		_ = sess.TransitionTo(types.SessionFailed)
		tool.DefaultLogger.Errorf("[Upload] Transfer %s failed after %d/%d chunks: %v",
			sess.TransferId, sess.ChunksAcknowledged, sess.TotalChunks, err)
		return "", err
	}

	token, err := c.opts.Tokens.Token(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to get bearer token: %w", err))
	}

	if err := sess.TransitionTo(types.SessionInProgress); err != nil {
		return fail(err)
	}
	if err := c.sendChunks(ctx, sess, src, token, onProgress); err != nil {
		return fail(err)
	}

	if err := sess.TransitionTo(types.SessionFinalizing); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(cancelled(err))
	}

	result, err := c.finalize(ctx, sess, meta, token)
	if err != nil {
		if ctx.Err() != nil {
			return fail(cancelled(ctx.Err()))
		}
		return fail(err)
	}

	if err := sess.TransitionTo(types.SessionCompleted); err != nil {
		return fail(err)
	}
	onProgress(100)
	tool.DefaultLogger.Infof("[Upload] Transfer %s completed: record %s", sess.TransferId, result.RecordId)
	return result.RecordId, nil
}

func (c *Coordinator) sendChunks(ctx context.Context, sess *types.UploadSession, src Source, token string, onProgress ProgressFunc) error {
	var limiter *rate.Limiter
	if c.opts.ChunksPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.opts.ChunksPerSecond), 1)
	}

	// one buffer for the whole transfer
	buf := make([]byte, min(sess.ChunkSizeBytes, sess.FileSizeBytes))

	for _, chunk := range PlanChunks(sess) {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		i := chunk.ChunkIndex
		data := buf[:chunk.Len()]
		n, err := src.ReadAt(data, chunk.Start)
		if err != nil && !(errors.Is(err, io.EOF) && int64(n) == chunk.Len()) {
			return fmt.Errorf("failed to read chunk %d of %s: %w", i, sess.FileName, err)
		}

		attempts, err := c.opts.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			attemptCtx, cancel := context.WithTimeout(ctx, c.opts.ChunkTimeout)
			defer cancel()
			err := UploadChunkWithContext(attemptCtx, c.opts.Client, c.chunkURL, token, chunk, data)
			if err != nil {
				tool.DefaultLogger.Warnf("[Chunk] Attempt %d/%d for chunk %d of %s failed: %v",
					attempt, c.opts.Retry.MaxAttempts, i, sess.TransferId, err)
			}
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cancelled(ctxErr)
			}
			return &ChunkUploadFailedError{
				TransferId: sess.TransferId,
				ChunkIndex: i,
				Attempts:   attempts,
				LastErr:    err,
			}
		}

		if err := sess.Acknowledge(); err != nil {
			return err
		}
		onProgress(ProgressPercent(sess.ChunksAcknowledged, sess.TotalChunks))
	}
	return nil
}

func (c *Coordinator) finalize(ctx context.Context, sess *types.UploadSession, meta types.ContributionMetadata, token string) (*types.FinalizeResult, error) {
	form := BuildFinalizeForm(sess, meta, c.opts.UserId, c.opts.UseUidFilename)

	finalizeCtx, cancel := context.WithTimeout(ctx, c.opts.FinalizeTimeout)
	defer cancel()
	result, err := FinalizeWithContext(finalizeCtx, c.opts.Client, c.finalizeURL, token, form)
	if err == nil {
		return result, nil
	}

	tool.DefaultLogger.Warnf("[Finalize] Transfer %s: %d chunks left on server without a record", sess.TransferId, sess.TotalChunks)
	if c.opts.Cleanup != nil {
		cleanupCtx, cancelCleanup := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FinalizeTimeout)
		defer cancelCleanup()
		if cleanupErr := c.opts.Cleanup(cleanupCtx, *sess); cleanupErr != nil {
			tool.DefaultLogger.Warnf("[Cleanup] Transfer %s: %v", sess.TransferId, cleanupErr)
		}
	}
	return nil, err
}
