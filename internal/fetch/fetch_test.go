package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ytpl/internal/model"
	"ytpl/internal/testutil"
	"ytpl/internal/ytpl"
)

type stubRunner struct {
	output   []byte
	err      error
	lastArgs []string
}

func (r *stubRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	r.lastArgs = args
	return r.output, r.err
}

var fetchNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestFetcher(runner Runner, cookiesPath string) *Fetcher {
	return New(runner, cookiesPath, testutil.NewStubClock(fetchNow), testutil.NewStubIDGenerator(), ytpl.NopLogger{})
}

const playlistDump = `{
	"id": "PLtest",
	"title": "My Playlist",
	"channel": "My Channel",
	"channel_id": "UCtest",
	"uploader": "My Channel",
	"webpage_url": "https://www.youtube.com/playlist?list=PLtest",
	"entries": [
		{
			"id": "vid1",
			"title": "First Video",
			"channel": "My Channel",
			"upload_date": "20230115",
			"duration": 120.5,
			"view_count": 1000,
			"tags": ["music"],
			"webpage_url": "https://www.youtube.com/watch?v=vid1",
			"availability": "public"
		},
		{
			"id": "vid2",
			"title": "[Private video]",
			"duration": 0
		},
		{
			"id": "vid3",
			"title": "[Deleted video]",
			"duration": 0
		},
		null
	]
}`

func TestFetcher_FetchPlaylist(t *testing.T) {
	runner := &stubRunner{output: []byte(playlistDump)}
	f := newTestFetcher(runner, "")

	playlist, err := f.FetchPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PLtest")
	if err != nil {
		t.Fatalf("FetchPlaylist() error = %v", err)
	}

	if playlist.PlaylistID != "PLtest" {
		t.Errorf("PlaylistID = %q", playlist.PlaylistID)
	}
	if playlist.Title != "My Playlist" {
		t.Errorf("Title = %q", playlist.Title)
	}
	if playlist.VideoCount != 4 {
		t.Fatalf("VideoCount = %d, want 4 (placeholder included)", playlist.VideoCount)
	}

	v1 := playlist.Videos["vid1"]
	if v1 == nil {
		t.Fatal("vid1 missing")
	}
	if v1.Status != model.StatusLive {
		t.Errorf("vid1 Status = %q, want %q", v1.Status, model.StatusLive)
	}
	if v1.UploadDate != "2023-01-15" {
		t.Errorf("vid1 UploadDate = %q, want dashed form", v1.UploadDate)
	}
	if v1.Duration != 120 {
		t.Errorf("vid1 Duration = %d, want 120", v1.Duration)
	}
	if v1.PlaylistIndex != 1 {
		t.Errorf("vid1 PlaylistIndex = %d, want 1", v1.PlaylistIndex)
	}
	if v1.ViewCount == nil || *v1.ViewCount != 1000 {
		t.Errorf("vid1 ViewCount = %v", v1.ViewCount)
	}

	if got := playlist.Videos["vid2"].Status; got != model.StatusPrivate {
		t.Errorf("vid2 Status = %q, want %q", got, model.StatusPrivate)
	}
	if got := playlist.Videos["vid3"].Status; got != model.StatusDeleted {
		t.Errorf("vid3 Status = %q, want %q", got, model.StatusDeleted)
	}

	// The nil entry becomes a placeholder, at its original position.
	placeholder := playlist.Videos["unknown-id-1"]
	if placeholder == nil {
		t.Fatal("placeholder for nil entry missing")
	}
	if placeholder.Status != model.StatusUnavailable {
		t.Errorf("placeholder Status = %q, want %q", placeholder.Status, model.StatusUnavailable)
	}
	if placeholder.PlaylistIndex != 4 {
		t.Errorf("placeholder PlaylistIndex = %d, want 4", placeholder.PlaylistIndex)
	}
	if placeholder.Title != "[Unavailable Video]" {
		t.Errorf("placeholder Title = %q", placeholder.Title)
	}
}

func TestFetcher_ArgsIncludeMetadataFlags(t *testing.T) {
	runner := &stubRunner{output: []byte(`{"id":"PLtest","title":"t"}`)}
	f := newTestFetcher(runner, "")

	if _, err := f.FetchPlaylist(context.Background(), "URL"); err != nil {
		t.Fatalf("FetchPlaylist() error = %v", err)
	}

	args := strings.Join(runner.lastArgs, " ")
	for _, flag := range []string{"--dump-single-json", "--no-warnings", "--ignore-errors", "--skip-download"} {
		if !strings.Contains(args, flag) {
			t.Errorf("args missing %s: %v", flag, runner.lastArgs)
		}
	}
	if strings.Contains(args, "--cookies") {
		t.Errorf("args carry --cookies without a cookies path: %v", runner.lastArgs)
	}
}

func TestFetcher_PassesCookies(t *testing.T) {
	runner := &stubRunner{output: []byte(`{"id":"PLtest","title":"t"}`)}
	f := newTestFetcher(runner, "/auth/cookies.txt")

	if _, err := f.FetchPlaylist(context.Background(), "URL"); err != nil {
		t.Fatalf("FetchPlaylist() error = %v", err)
	}

	args := strings.Join(runner.lastArgs, " ")
	if !strings.Contains(args, "--cookies /auth/cookies.txt") {
		t.Errorf("args missing cookies flag: %v", runner.lastArgs)
	}
}

func TestFetcher_Errors(t *testing.T) {
	t.Run("runner failure", func(t *testing.T) {
		f := newTestFetcher(&stubRunner{err: errors.New("exit status 1")}, "")
		if _, err := f.FetchPlaylist(context.Background(), "URL"); err == nil {
			t.Error("want error from runner failure")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		f := newTestFetcher(&stubRunner{output: []byte("not json")}, "")
		if _, err := f.FetchPlaylist(context.Background(), "URL"); err == nil {
			t.Error("want error from invalid json")
		}
	})

	t.Run("missing playlist id", func(t *testing.T) {
		f := newTestFetcher(&stubRunner{output: []byte(`{"title":"no id"}`)}, "")
		if _, err := f.FetchPlaylist(context.Background(), "URL"); err == nil {
			t.Error("want error when dump has no id")
		}
	})
}

func TestConvertEntry_Fallbacks(t *testing.T) {
	entry := &rawEntry{ID: "vid1", Uploader: "Uploader Name", UploaderID: "up1", Duration: 60}

	v := convertEntry(entry, 3, fetchNow)

	if v.Channel != "Uploader Name" {
		t.Errorf("Channel = %q, want uploader fallback", v.Channel)
	}
	if v.ChannelID != "up1" {
		t.Errorf("ChannelID = %q, want uploader id fallback", v.ChannelID)
	}
	if v.Title != "[Unknown]" {
		t.Errorf("Title = %q", v.Title)
	}
	if v.WebpageURL != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("WebpageURL = %q", v.WebpageURL)
	}
}

func TestEntryStatus(t *testing.T) {
	tests := []struct {
		name  string
		entry rawEntry
		want  model.VideoStatus
	}{
		{"live with duration", rawEntry{Title: "Video", Duration: 60}, model.StatusLive},
		{"private title", rawEntry{Title: "[Private video]"}, model.StatusPrivate},
		{"deleted title", rawEntry{Title: "[Deleted video]"}, model.StatusDeleted},
		{"private availability", rawEntry{Title: "Video", Duration: 60, Availability: "private"}, model.StatusPrivate},
		{"premium availability", rawEntry{Title: "Video", Duration: 60, Availability: "premium_only"}, model.StatusPrivate},
		{"zero duration", rawEntry{Title: "Video"}, model.StatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryStatus(&tt.entry); got != tt.want {
				t.Errorf("entryStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
