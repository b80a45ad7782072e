package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytpl/internal/config"
	"ytpl/internal/ytpl"
)

func TestNewClientFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory type", func(t *testing.T) {
		client, err := NewClientFromConfig(ctx, config.ArchiveConfig{Type: "memory"}, Credentials{}, ytpl.NopLogger{})
		if err != nil {
			t.Fatalf("NewClientFromConfig() error = %v", err)
		}
		if _, ok := client.(*MemoryClient); !ok {
			t.Errorf("NewClientFromConfig() = %T, want *MemoryClient", client)
		}
	})

	t.Run("ia without credentials", func(t *testing.T) {
		_, err := NewClientFromConfig(ctx, config.ArchiveConfig{Type: "ia"}, Credentials{}, ytpl.NopLogger{})
		if err == nil {
			t.Fatal("NewClientFromConfig() succeeded without credentials")
		}
		if !strings.Contains(err.Error(), "ytpl auth archive") {
			t.Errorf("error = %q, want hint to run 'ytpl auth archive'", err)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewClientFromConfig(ctx, config.ArchiveConfig{Type: "ftp"}, Credentials{}, ytpl.NopLogger{})
		if err == nil || !strings.Contains(err.Error(), "unknown archive type") {
			t.Errorf("error = %v, want unknown archive type", err)
		}
	})
}

func TestMemoryClient_ExistsAfterUpload(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()

	item, err := client.Exists(ctx, "youtube-vid1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if item.Exists {
		t.Fatal("Exists() = true on empty archive")
	}

	local := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(local, []byte("mp4 bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	metadata := map[string]string{ytpl.MetadataKeyExternalID: "vid1"}
	if err := client.Upload(ctx, "youtube-vid1", map[string]string{"video.mp4": local}, metadata, nil); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	item, err = client.Exists(ctx, "youtube-vid1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !item.Exists {
		t.Fatal("Exists() = false after upload")
	}
	if item.ExternalID != "vid1" {
		t.Errorf("ExternalID = %q, want %q", item.ExternalID, "vid1")
	}
	if want := "https://archive.org/details/youtube-vid1"; item.URL != want {
		t.Errorf("URL = %q, want %q", item.URL, want)
	}

	files := client.Files("youtube-vid1")
	if files["video.mp4"] != int64(len("mp4 bytes")) {
		t.Errorf("Files() = %v, want video.mp4 size %d", files, len("mp4 bytes"))
	}
}

func TestMemoryClient_UploadMissingFile(t *testing.T) {
	client := NewMemoryClient()
	err := client.Upload(context.Background(), "youtube-vid1",
		map[string]string{"video.mp4": "/does/not/exist.mp4"}, nil, nil)
	if err == nil {
		t.Error("Upload() with missing local file succeeded, want error")
	}
}

func TestMemoryClient_Seed(t *testing.T) {
	client := NewMemoryClient()
	client.Seed("youtube-vid1", map[string]string{ytpl.MetadataKeyExternalID: "vid1"})

	item, err := client.Exists(context.Background(), "youtube-vid1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !item.Exists || item.ExternalID != "vid1" {
		t.Errorf("Exists() = %+v, want seeded item with ExternalID vid1", item)
	}
}
