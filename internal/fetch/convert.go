package fetch

import (
	"time"

	"ytpl/internal/model"
	"ytpl/internal/ytpl"
)

// rawPlaylist mirrors the fields of a yt-dlp --dump-single-json playlist
// document that the model needs.
type rawPlaylist struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Channel     string      `json:"channel"`
	ChannelID   string      `json:"channel_id"`
	Uploader    string      `json:"uploader"`
	UploaderID  string      `json:"uploader_id"`
	WebpageURL  string      `json:"webpage_url"`
	Entries     []*rawEntry `json:"entries"`
}

type rawEntry struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Channel      string   `json:"channel"`
	ChannelID    string   `json:"channel_id"`
	Uploader     string   `json:"uploader"`
	UploaderID   string   `json:"uploader_id"`
	UploadDate   string   `json:"upload_date"` // YYYYMMDD
	Duration     float64  `json:"duration"`
	Description  string   `json:"description"`
	Thumbnail    string   `json:"thumbnail"`
	ViewCount    *int64   `json:"view_count"`
	LikeCount    *int64   `json:"like_count"`
	CommentCount *int64   `json:"comment_count"`
	Tags         []string `json:"tags"`
	Categories   []string `json:"categories"`
	WebpageURL   string   `json:"webpage_url"`
	Availability string   `json:"availability"`
}

// convertPlaylist maps a raw playlist dump to the internal model. Nil
// entries (videos yt-dlp could not resolve at all) become placeholder
// records so the playlist never silently shrinks.
func convertPlaylist(raw *rawPlaylist, now time.Time, idgen ytpl.IDGenerator) *model.Playlist {
	channel := raw.Channel
	if channel == "" {
		channel = raw.Uploader
	}
	channelID := raw.ChannelID
	if channelID == "" {
		channelID = raw.UploaderID
	}

	title := raw.Title
	if title == "" {
		title = "Unknown Playlist"
	}

	playlist := &model.Playlist{
		PlaylistID:  raw.ID,
		Title:       title,
		Description: raw.Description,
		Channel:     channel,
		ChannelID:   channelID,
		Uploader:    raw.Uploader,
		WebpageURL:  raw.WebpageURL,
		Created:     now,
		LastUpdated: now,
		Videos:      make(map[string]*model.Video, len(raw.Entries)),
	}

	for i, entry := range raw.Entries {
		index := i + 1
		var video *model.Video
		if entry == nil {
			video = placeholderVideo(idgen.New(), index, now)
		} else {
			video = convertEntry(entry, index, now)
		}
		playlist.Videos[video.VideoID] = video
	}

	playlist.VideoCount = len(playlist.Videos)
	return playlist
}

func convertEntry(entry *rawEntry, index int, now time.Time) *model.Video {
	channel := entry.Channel
	if channel == "" {
		channel = entry.Uploader
	}
	if channel == "" {
		channel = "Unknown"
	}
	channelID := entry.ChannelID
	if channelID == "" {
		channelID = entry.UploaderID
	}

	uploadDate := entry.UploadDate
	if len(uploadDate) == 8 {
		uploadDate = uploadDate[:4] + "-" + uploadDate[4:6] + "-" + uploadDate[6:8]
	}

	webpageURL := entry.WebpageURL
	if webpageURL == "" && entry.ID != "" {
		webpageURL = "https://www.youtube.com/watch?v=" + entry.ID
	}

	title := entry.Title
	if title == "" {
		title = "[Unknown]"
	}

	return &model.Video{
		VideoID:        entry.ID,
		Title:          title,
		Channel:        channel,
		ChannelID:      channelID,
		Uploader:       entry.Uploader,
		UploadDate:     uploadDate,
		Duration:       int(entry.Duration),
		Description:    entry.Description,
		Thumbnail:      entry.Thumbnail,
		ViewCount:      entry.ViewCount,
		LikeCount:      entry.LikeCount,
		CommentCount:   entry.CommentCount,
		Tags:           entry.Tags,
		Categories:     entry.Categories,
		WebpageURL:     webpageURL,
		PlaylistIndex:  index,
		Status:         entryStatus(entry),
		DownloadStatus: model.DownloadNotDownloaded,
		ArchiveStatus:  model.ArchiveNotArchived,
		FirstSeen:      now,
		LastChecked:    now,
		LastModified:   now,
	}
}

// entryStatus infers the lifecycle status from the dump. yt-dlp reports
// titles like "[Private video]" and "[Deleted video]" for entries it can
// enumerate but not resolve; a resolvable entry with a duration is live.
func entryStatus(entry *rawEntry) model.VideoStatus {
	switch entry.Title {
	case "[Private video]":
		return model.StatusPrivate
	case "[Deleted video]":
		return model.StatusDeleted
	}
	switch entry.Availability {
	case "private", "premium_only", "subscriber_only":
		return model.StatusPrivate
	}
	if entry.Duration == 0 {
		return model.StatusUnavailable
	}
	return model.StatusLive
}

// placeholderVideo synthesizes a record for an entry that yielded no data
// at all, so its position in the playlist is still tracked.
func placeholderVideo(id string, index int, now time.Time) *model.Video {
	return &model.Video{
		VideoID:        "unknown-" + id,
		Title:          "[Unavailable Video]",
		Channel:        "Unknown",
		Uploader:       "Unknown",
		PlaylistIndex:  index,
		Status:         model.StatusUnavailable,
		DownloadStatus: model.DownloadNotDownloaded,
		ArchiveStatus:  model.ArchiveNotArchived,
		FirstSeen:      now,
		LastChecked:    now,
		LastModified:   now,
	}
}
