package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DiskStore stores blobs on the local filesystem, one content file plus one
// metadata sidecar per blob.
type DiskStore struct {
	root string
}

type diskMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob store root: %w", err)
	}

	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Download(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(s.contentPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", id, err)
	}
	return data, nil
}

func (s *DiskStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	f, err := os.Open(s.contentPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	return f, nil
}

func (s *DiskStore) Stat(ctx context.Context, id string) (*Info, error) {
	fi, err := os.Stat(s.contentPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob %s: %w", id, err)
	}

	info := &Info{ID: id, ByteSize: fi.Size()}

	metaData, err := os.ReadFile(s.metaPath(id))
	if err == nil {
		var meta diskMeta
		if err := json.Unmarshal(metaData, &meta); err == nil {
			info.Filename = meta.Filename
			info.ContentType = meta.ContentType
		}
	}

	return info, nil
}

func (s *DiskStore) Put(ctx context.Context, filename, contentType string, content io.Reader) (*Info, error) {
	id := uuid.NewString()

	f, err := os.Create(s.contentPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to create blob: %w", err)
	}

	size, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(s.contentPath(id))
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}

	meta, err := json.Marshal(diskMeta{Filename: filename, ContentType: contentType})
	if err == nil {
		err = os.WriteFile(s.metaPath(id), meta, 0o644)
	}
	if err != nil {
		_ = os.Remove(s.contentPath(id))
		return nil, fmt.Errorf("failed to write blob metadata: %w", err)
	}

	return &Info{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		ByteSize:    size,
	}, nil
}

func (s *DiskStore) LocalPath(id string) (string, bool) {
	path := s.contentPath(id)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (s *DiskStore) contentPath(id string) string {
	return filepath.Join(s.root, id)
}

func (s *DiskStore) metaPath(id string) string {
	return filepath.Join(s.root, id+".meta.json")
}
