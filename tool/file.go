package tool

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

const sniffLen = 3072

// DetectMimeType picks a MIME type from the file extension, falling back to
// content sniffing of head when the extension is unknown.
func DetectMimeType(fileName string, head []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		return byExt
	}
	if len(head) > 0 {
		return mimetype.Detect(head).String()
	}
	return "application/octet-stream"
}

// GetFileInfoFromPath reads file information from fsys.
// Returns fileName, size, fileType, error
func GetFileInfoFromPath(fsys afero.Fs, filePath string) (string, int64, string, error) {
	fileInfo, err := fsys.Stat(filePath)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to stat file: %v", err)
	}
	if fileInfo.IsDir() {
		return "", 0, "", fmt.Errorf("path is a directory, not a file")
	}

	fileName := filepath.Base(filePath)

	f, err := fsys.Open(filePath)
	if err != nil {
		return fileName, fileInfo.Size(), "", fmt.Errorf("failed to open file: %v", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fileName, fileInfo.Size(), "", fmt.Errorf("failed to read file header: %v", err)
	}

	return fileName, fileInfo.Size(), DetectMimeType(fileName, head[:n]), nil
}
