package archive

import (
	"context"
	"fmt"
	"os"
	"sync"

	"ytpl/internal/ytpl"
)

// MemoryClient is an in-memory implementation of the archive client. It
// records uploaded items without any network access, making it useful for
// tests and dry runs. Safe for concurrent use.
type MemoryClient struct {
	mu    sync.RWMutex
	items map[string]*memoryItem
}

type memoryItem struct {
	metadata map[string]string
	files    map[string]int64 // remote name -> size
}

var _ ytpl.ArchiveClient = (*MemoryClient)(nil)

// NewMemoryClient creates an empty in-memory archive.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{items: make(map[string]*memoryItem)}
}

// Seed registers an existing remote item, for simulating duplicates.
func (m *MemoryClient) Seed(identifier string, metadata map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[identifier] = &memoryItem{metadata: metadata, files: make(map[string]int64)}
}

// Exists reports whether the identifier has been uploaded or seeded.
func (m *MemoryClient) Exists(_ context.Context, identifier string) (ytpl.RemoteItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[identifier]
	if !ok {
		return ytpl.RemoteItem{}, nil
	}
	return ytpl.RemoteItem{
		Exists:     true,
		ExternalID: item.metadata[ytpl.MetadataKeyExternalID],
		URL:        "https://archive.org/details/" + identifier,
	}, nil
}

// Upload records the item and the sizes of its files. Local files must
// exist; their contents are not retained.
func (m *MemoryClient) Upload(_ context.Context, identifier string, files map[string]string, metadata map[string]string, sink ytpl.ProgressFunc) error {
	item := &memoryItem{
		metadata: metadata,
		files:    make(map[string]int64, len(files)),
	}
	for remoteName, localPath := range files {
		info, err := os.Stat(localPath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", localPath, err)
		}
		item.files[remoteName] = info.Size()
		if sink != nil {
			sink(remoteName, info.Size(), info.Size(), 0, 100, "Uploading")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[identifier] = item
	return nil
}

// Files returns the recorded file sizes for an identifier, nil if absent.
func (m *MemoryClient) Files(identifier string) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[identifier]
	if !ok {
		return nil
	}
	out := make(map[string]int64, len(item.files))
	for k, v := range item.files {
		out[k] = v
	}
	return out
}

// Metadata returns the recorded catalog metadata for an identifier.
func (m *MemoryClient) Metadata(identifier string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[identifier]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(item.metadata))
	for k, v := range item.metadata {
		out[k] = v
	}
	return out
}
