package tool

import (
	"fmt"
	"net/url"
	"strings"
)

func joinBase(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL must be absolute: %s", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}

// BuildChunkURL builds the chunk ingest URL: <base>/records/upload/chunk.
func BuildChunkURL(baseURL string) (string, error) {
	return joinBase(baseURL, "/records/upload/chunk")
}

// BuildFinalizeURL builds the finalize URL: <base>/records/upload.
func BuildFinalizeURL(baseURL string) (string, error) {
	return joinBase(baseURL, "/records/upload")
}

// BuildRecordURL builds the public link of a created record, used for QR sharing.
func BuildRecordURL(baseURL, recordId string) (string, error) {
	if recordId == "" {
		return "", fmt.Errorf("record id must not be empty")
	}
	return joinBase(baseURL, "/records/"+url.PathEscape(recordId))
}
