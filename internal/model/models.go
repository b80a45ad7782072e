package model

import "time"

// VideoStatus is the lifecycle state of a video on the source platform.
// Exactly one status holds at any time.
type VideoStatus string

const (
	StatusLive        VideoStatus = "live"
	StatusDeleted     VideoStatus = "deleted"
	StatusPrivate     VideoStatus = "private"
	StatusUnavailable VideoStatus = "unavailable"
)

// Valid reports whether s is one of the defined video statuses.
func (s VideoStatus) Valid() bool {
	switch s {
	case StatusLive, StatusDeleted, StatusPrivate, StatusUnavailable:
		return true
	}
	return false
}

// DownloadStatus tracks local download progress for a video.
type DownloadStatus string

const (
	DownloadNotDownloaded DownloadStatus = "not_downloaded"
	DownloadDownloading   DownloadStatus = "downloading"
	DownloadCompleted     DownloadStatus = "completed"
	DownloadFailed        DownloadStatus = "failed"
)

// Valid reports whether s is one of the defined download statuses.
func (s DownloadStatus) Valid() bool {
	switch s {
	case DownloadNotDownloaded, DownloadDownloading, DownloadCompleted, DownloadFailed:
		return true
	}
	return false
}

// ArchiveStatus tracks remote archival progress for a video.
type ArchiveStatus string

const (
	ArchiveNotArchived ArchiveStatus = "not_archived"
	ArchiveUploading   ArchiveStatus = "uploading"
	ArchiveArchived    ArchiveStatus = "archived"
	ArchiveFailed      ArchiveStatus = "failed"
	// ArchiveSkipped marks items whose remote identifier is already owned
	// by unrelated data. Terminal, never retried.
	ArchiveSkipped ArchiveStatus = "skipped"
)

// Valid reports whether s is one of the defined archive statuses.
func (s ArchiveStatus) Valid() bool {
	switch s {
	case ArchiveNotArchived, ArchiveUploading, ArchiveArchived, ArchiveFailed, ArchiveSkipped:
		return true
	}
	return false
}

// StatusChange is a single entry in a video's append-only status history.
type StatusChange struct {
	Timestamp time.Time   `json:"timestamp"`
	OldStatus VideoStatus `json:"old_status"`
	NewStatus VideoStatus `json:"new_status"`
	Note      string      `json:"note,omitempty"`
}

// Video is a single tracked unit of content within a playlist.
type Video struct {
	VideoID      string   `json:"video_id"`
	Title        string   `json:"title"`
	Channel      string   `json:"channel"`
	ChannelID    string   `json:"channel_id"`
	Uploader     string   `json:"uploader"`
	UploadDate   string   `json:"upload_date,omitempty"` // YYYY-MM-DD
	Duration     int      `json:"duration,omitempty"`    // seconds
	Description  string   `json:"description,omitempty"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	ViewCount    *int64   `json:"view_count,omitempty"`
	LikeCount    *int64   `json:"like_count,omitempty"`
	CommentCount *int64   `json:"comment_count,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	WebpageURL   string   `json:"webpage_url,omitempty"`

	PlaylistIndex int `json:"playlist_index"`

	Status         VideoStatus    `json:"status"`
	DownloadStatus DownloadStatus `json:"download_status"`

	VideoPath    string `json:"video_path,omitempty"`
	AudioPath    string `json:"audio_path,omitempty"`
	CommentsPath string `json:"comments_path,omitempty"`

	ArchiveStatus     ArchiveStatus `json:"archive_status"`
	ArchiveIdentifier string        `json:"archive_identifier,omitempty"`
	ArchiveURL        string        `json:"archive_url,omitempty"`
	ArchiveDate       string        `json:"archive_date,omitempty"` // RFC 3339
	ArchiveError      string        `json:"archive_error,omitempty"`

	FirstSeen    time.Time `json:"first_seen"`
	LastChecked  time.Time `json:"last_checked"`
	LastModified time.Time `json:"last_modified"`

	StatusHistory []StatusChange `json:"status_history"`
}

// UpdateStatus transitions the video to newStatus at the given time,
// appending exactly one history entry. A transition to the current status
// is a no-op: history is never padded with self-transitions.
func (v *Video) UpdateStatus(newStatus VideoStatus, note string, now time.Time) {
	if v.Status == newStatus {
		return
	}
	v.StatusHistory = append(v.StatusHistory, StatusChange{
		Timestamp: now,
		OldStatus: v.Status,
		NewStatus: newStatus,
		Note:      note,
	})
	v.Status = newStatus
	v.LastModified = now
}

// Playlist is the tracked group of videos with its own identity and metadata.
// Videos are owned by their parent playlist and have no independent lifetime.
type Playlist struct {
	PlaylistID  string `json:"playlist_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Channel     string `json:"channel,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	Uploader    string `json:"uploader,omitempty"`
	VideoCount  int    `json:"video_count"`
	WebpageURL  string `json:"webpage_url,omitempty"`

	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`

	Videos map[string]*Video `json:"videos"`
}

// StatusChangeRecord describes one video's status flip inside a version
// snapshot.
type StatusChangeRecord struct {
	VideoID   string      `json:"video_id"`
	Title     string      `json:"title"`
	OldStatus VideoStatus `json:"old_status"`
	NewStatus VideoStatus `json:"new_status"`
}

// PlaylistVersion is an immutable diff record appended to a playlist's
// history on a save that actually changed something. Versions are 1-based
// and contiguous per playlist.
type PlaylistVersion struct {
	Version       int                  `json:"version"`
	Timestamp     time.Time            `json:"timestamp"`
	Added         []string             `json:"videos_added"`
	Removed       []string             `json:"videos_removed"`
	StatusChanges []StatusChangeRecord `json:"videos_status_changed"`
	Note          string               `json:"note,omitempty"`
}

// Empty reports whether the version records no changes at all. Empty
// versions are never appended to history.
func (pv *PlaylistVersion) Empty() bool {
	return len(pv.Added) == 0 && len(pv.Removed) == 0 && len(pv.StatusChanges) == 0
}

// PlaylistSummary carries the fields needed by listing UIs without loading
// full playlist state.
type PlaylistSummary struct {
	PlaylistID  string
	Title       string
	Channel     string
	VideoCount  int
	LastUpdated time.Time
}
