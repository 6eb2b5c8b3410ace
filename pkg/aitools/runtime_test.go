package aitools

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skchakri/medi-vault/pkg/blob"
	"github.com/skchakri/medi-vault/pkg/llm"
	"github.com/skchakri/medi-vault/pkg/settings"
)

// stubClient is a canned llm.Client for exercising tools without a backend.
type stubClient struct {
	chatContent   string
	embedVector   []float64
	transcription *llm.Transcription
	provider      llm.Provider
	model         string

	lastChat *llm.ChatRequest
}

func (c *stubClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	c.lastChat = req
	return &llm.ChatResponse{Content: c.chatContent}, nil
}

func (c *stubClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return c.embedVector, nil
}

func (c *stubClient) Transcribe(ctx context.Context, req *llm.TranscriptionRequest) (*llm.Transcription, error) {
	return c.transcription, nil
}

func (c *stubClient) Provider() llm.Provider { return c.provider }
func (c *stubClient) Model() string          { return c.model }

// remoteBlobStore wraps a DiskStore but hides its local paths, forcing the
// runtime down the temporary-copy path.
type remoteBlobStore struct {
	blob.Store
}

func (s *remoteBlobStore) LocalPath(id string) (string, bool) {
	return "", false
}

func newTestRuntime(t *testing.T, client llm.Client) (*Runtime, blob.Store) {
	t.Helper()

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_API_BASE", "")
	t.Setenv("OLLAMA_URL", "")
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("OPENAI_EMBEDDING_MODEL", "")

	store := settings.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), settings.KeyOpenAIAPIKey, "sk-test"))

	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	runtime := &Runtime{
		Settings: store,
		Blobs:    blobs,
		TempDir:  t.TempDir(),
	}
	if client != nil {
		runtime.NewClient = func(rp llm.ResolvedProvider) (llm.Client, error) {
			return client, nil
		}
	}
	return runtime, blobs
}

func TestMaterializeInputMissingBoth(t *testing.T) {
	runtime, _ := newTestRuntime(t, nil)
	_, err := runtime.MaterializeInput(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestMaterializeInputLocalPath(t *testing.T) {
	runtime, _ := newTestRuntime(t, nil)

	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	handle, err := runtime.MaterializeInput(context.Background(), "", path)
	require.NoError(t, err)
	assert.Equal(t, path, handle.Path)
	assert.False(t, handle.Temporary())

	// Closing a persistent handle leaves the file in place.
	require.NoError(t, handle.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestMaterializeInputDiskBackedBlob(t *testing.T) {
	runtime, blobs := newTestRuntime(t, nil)

	info, err := blobs.Put(context.Background(), "cert.pdf", "application/pdf", bytes.NewReader([]byte("%PDF-")))
	require.NoError(t, err)

	handle, err := runtime.MaterializeInput(context.Background(), info.ID, "")
	require.NoError(t, err)
	defer handle.Close()

	// Disk-backed blobs are served in place, no copy.
	assert.False(t, handle.Temporary())
	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data))
}

func TestMaterializeInputRemoteBlobCopiesAndCleansUp(t *testing.T) {
	runtime, blobs := newTestRuntime(t, nil)
	runtime.Blobs = &remoteBlobStore{Store: blobs}

	info, err := blobs.Put(context.Background(), "cert.png", "image/png", bytes.NewReader([]byte("pngdata")))
	require.NoError(t, err)

	handle, err := runtime.MaterializeInput(context.Background(), info.ID, "")
	require.NoError(t, err)
	assert.True(t, handle.Temporary())
	assert.Equal(t, ".png", filepath.Ext(handle.Path))

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))

	require.NoError(t, handle.Close())
	_, err = os.Stat(handle.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveProviderUsesSnapshot(t *testing.T) {
	runtime, _ := newTestRuntime(t, nil)

	rp, err := runtime.ResolveProvider(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, rp.Provider())
	assert.Equal(t, llm.DefaultOpenAIModel, rp.Model())
}

func TestDefaultRegistryHoldsEveryCatalogEntry(t *testing.T) {
	runtime, blobs := newTestRuntime(t, nil)

	r, err := NewDefaultRegistry(Dependencies{
		Runtime: runtime,
		Blobs:   blobs,
	})
	require.NoError(t, err)
	assert.Equal(t, Keys(), r.Names())
}
