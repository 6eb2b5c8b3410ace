package aitools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/skchakri/medi-vault/pkg/blob"
	"github.com/skchakri/medi-vault/pkg/llm"
	"github.com/skchakri/medi-vault/pkg/settings"
)

// ErrMissingInput is returned when a tool is given neither a blob id nor a
// local path. This is a caller contract violation and is never retried.
var ErrMissingInput = errors.New("provide file_blob_id or path")

// FileHandle is a readable local file, tagged by whether it is a temporary
// copy the runtime created. Close removes temporary copies and leaves
// persistent paths alone; callers must Close on every exit path.
type FileHandle struct {
	Path      string
	temporary bool
}

// Temporary reports whether Close will remove the file.
func (h *FileHandle) Temporary() bool {
	return h.temporary
}

func (h *FileHandle) Close() error {
	if !h.temporary {
		return nil
	}
	return os.Remove(h.Path)
}

// Runtime is the execution base shared by every tool: provider resolution,
// call-context construction, and input materialization.
type Runtime struct {
	Settings settings.Store
	Blobs    blob.Store

	// TempDir is where temporary input copies land. Defaults to the
	// system temp directory.
	TempDir string

	// NewClient overrides client construction, used by tests to substitute
	// a stub backend.
	NewClient func(rp llm.ResolvedProvider) (llm.Client, error)
}

// ResolveProvider captures the current settings into an immutable snapshot
// and resolves a backend from it. Resolution is re-run on every invocation
// so administrator edits take effect without a restart.
func (r *Runtime) ResolveProvider(ctx context.Context, preferredModel string) (llm.ResolvedProvider, error) {
	snap, err := settings.TakeSnapshot(ctx, r.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider settings: %w", err)
	}
	return llm.Resolve(snap, preferredModel)
}

// BuildClient constructs a call context configured exactly per the resolved
// provider's captured values.
func (r *Runtime) BuildClient(rp llm.ResolvedProvider) (llm.Client, error) {
	if r.NewClient != nil {
		return r.NewClient(rp)
	}
	return llm.NewClientFor(rp)
}

// ResolveClient is the common resolve-then-build step.
func (r *Runtime) ResolveClient(ctx context.Context, preferredModel string) (llm.Client, error) {
	rp, err := r.ResolveProvider(ctx, preferredModel)
	if err != nil {
		return nil, err
	}
	return r.BuildClient(rp)
}

// MaterializeInput turns a blob reference or a local path into a readable
// file. Exactly one of blobID or path must be given. Blobs backed by local
// disk are served in place as a persistent handle; otherwise the contents
// are copied to a temporary file that the handle removes on Close.
func (r *Runtime) MaterializeInput(ctx context.Context, blobID, path string) (*FileHandle, error) {
	switch {
	case blobID != "":
		return r.materializeBlob(ctx, blobID)
	case path != "":
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("input path %s is not readable: %w", path, err)
		}
		return &FileHandle{Path: path}, nil
	default:
		return nil, ErrMissingInput
	}
}

func (r *Runtime) materializeBlob(ctx context.Context, blobID string) (*FileHandle, error) {
	if local, ok := r.Blobs.LocalPath(blobID); ok {
		return &FileHandle{Path: local}, nil
	}

	info, err := r.Blobs.Stat(ctx, blobID)
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob %s: %w", blobID, err)
	}

	reader, err := r.Blobs.Open(ctx, blobID)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", blobID, err)
	}
	defer reader.Close()

	tempDir := r.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	ext := filepath.Ext(info.Filename)
	tmp, err := os.CreateTemp(tempDir, "ai_tool_*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary input copy: %w", err)
	}

	_, err = io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to copy blob %s: %w", blobID, err)
	}

	return &FileHandle{Path: tmp.Name(), temporary: true}, nil
}

// decodeArgs decodes a loosely-typed argument map into a typed parameter
// struct, coercing compatible scalar types along the way.
func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
