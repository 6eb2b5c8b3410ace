package aitools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FileInspectorTool reports mime type, extension, size, and a SHA-256
// checksum for a file. The mime type is sniffed from content, not guessed
// from the extension. Deterministic, no LLM call.
type FileInspectorTool struct {
	runtime *Runtime
}

func NewFileInspectorTool(runtime *Runtime) *FileInspectorTool {
	return &FileInspectorTool{runtime: runtime}
}

func (t *FileInspectorTool) GetInfo() Spec {
	return mustSpec("file_inspector")
}

type fileInspectorArgs struct {
	FileBlobID string `json:"file_blob_id"`
	Path       string `json:"path"`
}

func (t *FileInspectorTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params fileInspectorArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	file, err := t.runtime.MaterializeInput(ctx, params.FileBlobID, params.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", file.Path, err)
	}

	// Content sniffing uses the first 512 bytes, per the HTTP sniffing
	// algorithm.
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	mimeType := http.DetectContentType(head[:n])
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", file.Path, err)
	}
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("failed to checksum %s: %w", file.Path, err)
	}

	return map[string]any{
		"mime_type":  mimeType,
		"extension":  strings.TrimPrefix(filepath.Ext(file.Path), "."),
		"size_bytes": stat.Size(),
		"checksum":   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
