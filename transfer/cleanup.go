package transfer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// CleanupFunc is a best-effort hook run after finalize fails, e.g. to discard the
// chunks already on the server. Its error is logged, never returned to the caller.
type CleanupFunc func(ctx context.Context, sess types.UploadSession) error

// NewEndpointCleanup posts upload_uuid to cleanupURL. The corpus API does not
// define such an endpoint; only configure one the server actually serves.
func NewEndpointCleanup(client *http.Client, cleanupURL string, tokens TokenSource) CleanupFunc {
	return func(ctx context.Context, sess types.UploadSession) error {
		if sess.TransferId == "" {
			return fmt.Errorf("invalid parameters: transferId must not be empty")
		}
		token := ""
		if tokens != nil {
			t, err := tokens.Token(ctx)
			if err != nil {
				return fmt.Errorf("failed to get token for cleanup: %v", err)
			}
			token = t
		}

		form := url.Values{}
		form.Set("upload_uuid", sess.TransferId)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cleanupURL, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create cleanup request: %v", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		setAuth(req, token)

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send cleanup request: %v", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
			}
		}()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("cleanup request failed: %s", resp.Status)
		}

		tool.DefaultLogger.Infof("[Cleanup] Discarded chunks of transfer %s", sess.TransferId)
		return nil
	}
}
