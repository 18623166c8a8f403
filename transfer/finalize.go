package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

// recordIdKeys are the response fields that may carry the created record's id, in order.
var recordIdKeys = []string{"id", "uid", "record_id", "recordId"}

// BuildFinalizeForm assembles the URL-encoded finalize body.
func BuildFinalizeForm(sess *types.UploadSession, meta types.ContributionMetadata, userId string, useUidFilename bool) url.Values {
	filename := meta.Filename
	if filename == "" {
		filename = sess.FileName
	}
	form := url.Values{}
	form.Set("title", meta.Title)
	form.Set("description", meta.Description)
	form.Set("category_id", meta.CategoryId)
	form.Set("user_id", userId)
	form.Set("media_type", string(meta.MediaType))
	form.Set("upload_uuid", sess.TransferId)
	form.Set("filename", filename)
	form.Set("total_chunks", strconv.Itoa(sess.TotalChunks))
	form.Set("release_rights", meta.ReleaseRights)
	form.Set("language", meta.Language)
	form.Set("use_uid_filename", strconv.FormatBool(useUidFilename))
	return form
}

// FinalizeWithContext asks the corpus API to assemble the uploaded chunks into a
// record. Non-2xx answers and requests that got no answer come back as
// *FinalizeFailedError.
func FinalizeWithContext(ctx context.Context, client *http.Client, finalizeURL, token string, form url.Values) (*types.FinalizeResult, error) {
	if client == nil {
		return nil, fmt.Errorf("invalid parameters: client must not be nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, finalizeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create finalize request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	setAuth(req, token)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = contextError(ctx, "finalize request")
		} else {
			err = fmt.Errorf("failed to send finalize request: %w", err)
		}
		return nil, &FinalizeFailedError{Detail: err.Error(), Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		tool.DefaultLogger.Warnf("Failed to read finalize response body: %v", readErr)
	} else if len(body) > 0 {
		tool.DefaultLogger.Debugf("Finalize response: %s", truncate(string(body), 512))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FinalizeFailedError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
			Detail:     parseErrorDetail(body),
		}
	}

	var raw map[string]any
	if len(body) > 0 {
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, &FinalizeFailedError{
				StatusCode: resp.StatusCode,
				Body:       truncate(string(body), maxErrorBody),
				Detail:     fmt.Sprintf("failed to parse finalize response: %v", err),
			}
		}
	}
	recordId := extractRecordId(raw)
	if recordId == "" {
		return nil, &FinalizeFailedError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
			Detail:     "finalize response missing record id",
		}
	}

	return &types.FinalizeResult{RecordId: recordId, Raw: raw}, nil
}

// parseErrorDetail returns the "detail" of a JSON error body. Validation errors may
// carry a list there; it is re-encoded as JSON text.
func parseErrorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var errorResponse struct {
		Detail any `json:"detail"`
	}
	if err := sonic.Unmarshal(body, &errorResponse); err != nil || errorResponse.Detail == nil {
		return ""
	}
	if s, ok := errorResponse.Detail.(string); ok {
		return s
	}
	encoded, err := sonic.MarshalString(errorResponse.Detail)
	if err != nil {
		return ""
	}
	return encoded
}

func extractRecordId(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	for _, key := range recordIdKeys {
		if id := stringifyId(raw[key]); id != "" {
			return id
		}
	}
	// some deployments wrap the record: {"data": {"id": ...}}
	if nested, ok := raw["data"].(map[string]any); ok {
		return extractRecordId(nested)
	}
	return ""
}

func stringifyId(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	}
	return ""
}
