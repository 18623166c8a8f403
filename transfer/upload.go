package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// maxErrorBody bounds how much of a failed response is kept for error messages.
const maxErrorBody = 4096

func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// UploadChunkWithContext sends one chunk as multipart/form-data to chunkURL.
// Any non-2xx answer is returned as *StatusError.
func UploadChunkWithContext(ctx context.Context, client *http.Client, chunkURL, token string, chunk types.ChunkRequest, data []byte) error {
	if client == nil {
		return fmt.Errorf("invalid parameters: client must not be nil")
	}
	if int64(len(data)) != chunk.Len() {
		return fmt.Errorf("invalid parameters: chunk %d has %d bytes, expected %d", chunk.ChunkIndex, len(data), chunk.Len())
	}

	// Check if already cancelled
	select {
	case <-ctx.Done():
		return contextError(ctx, "chunk upload")
	default:
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("chunk", chunk.FileName)
	if err != nil {
		return fmt.Errorf("failed to create chunk part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write chunk part: %v", err)
	}
	fields := [][2]string{
		{"filename", chunk.FileName},
		{"chunk_index", strconv.Itoa(chunk.ChunkIndex)},
		{"total_chunks", strconv.Itoa(chunk.TotalChunks)},
		{"upload_uuid", chunk.TransferId},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %v", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chunkURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create chunk request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setAuth(req, token)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return contextError(ctx, "chunk upload")
		}
		return fmt.Errorf("failed to send chunk request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		tool.DefaultLogger.Warnf("Failed to read chunk response body: %v", readErr)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
	}

	tool.DefaultLogger.Debugf("[Chunk] %d/%d of %s acknowledged (%d bytes)",
		chunk.ChunkIndex+1, chunk.TotalChunks, chunk.TransferId, chunk.Len())
	return nil
}
