package testutil

import (
	"context"
	"fmt"
	"time"

	"ytpl/internal/model"
)

// TestTime is the reference time used by playlist builders.
var TestTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// NewTestVideo creates a live video with sensible defaults for tests.
func NewTestVideo(id, title string) *model.Video {
	return &model.Video{
		VideoID:        id,
		Title:          title,
		Channel:        "Test Channel",
		Status:         model.StatusLive,
		DownloadStatus: model.DownloadNotDownloaded,
		ArchiveStatus:  model.ArchiveNotArchived,
		FirstSeen:      TestTime,
		LastChecked:    TestTime,
	}
}

// NewTestPlaylist creates a playlist with n live videos ("video-1" .. "video-n").
func NewTestPlaylist(id string, n int) *model.Playlist {
	p := &model.Playlist{
		PlaylistID:  id,
		Title:       "Test Playlist",
		Channel:     "Test Channel",
		Videos:      make(map[string]*model.Video, n),
		LastUpdated: TestTime,
	}
	for i := 1; i <= n; i++ {
		vid := fmt.Sprintf("video-%d", i)
		v := NewTestVideo(vid, fmt.Sprintf("Video %d", i))
		v.PlaylistIndex = i
		p.Videos[vid] = v
	}
	p.VideoCount = len(p.Videos)
	return p
}

// StubFetcher returns a canned playlist (or error) from FetchPlaylist.
type StubFetcher struct {
	Playlist *model.Playlist
	Err      error
}

func (f *StubFetcher) FetchPlaylist(_ context.Context, _ string) (*model.Playlist, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Playlist, nil
}
