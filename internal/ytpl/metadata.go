package ytpl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ytpl/internal/model"
)

const maxSubjectTags = 10

// BuildItemMetadata assembles the curated remote-catalog metadata for an
// archived video. Source-platform fields are namespaced with a "youtube_"
// prefix so the archive item records where its custom fields came from.
func BuildItemMetadata(video *model.Video, playlist *model.Playlist, now time.Time) map[string]string {
	creator := video.Channel
	if creator == "" {
		creator = playlist.Channel
	}
	if creator == "" {
		creator = "Unknown"
	}

	title := video.Title
	if title == "" {
		title = "Untitled"
	}

	md := map[string]string{
		"mediatype":   "movies",
		"collection":  "opensource_movies",
		"title":       title,
		"creator":     creator,
		"description": formatDescription(video, playlist, now),
		"subject":     strings.Join(subjectTags(video), ";"),
		"language":    "eng",
		"originalurl": videoURL(video),
	}

	if video.UploadDate != "" {
		md["date"] = normalizeUploadDate(video.UploadDate)
	}
	if video.Duration > 0 {
		md["runtime"] = formatRuntime(video.Duration)
	}

	md["sound"] = "sound"
	md["color"] = "color"
	md["aspect_ratio"] = "16:9"

	md[MetadataKeyExternalID] = video.VideoID
	md["youtube_channel"] = orUnknown(video.Channel)
	md["youtube_channel_id"] = video.ChannelID
	md["youtube_upload_date"] = video.UploadDate
	if video.ViewCount != nil {
		md["youtube_view_count"] = strconv.FormatInt(*video.ViewCount, 10)
	}
	if video.LikeCount != nil {
		md["youtube_like_count"] = strconv.FormatInt(*video.LikeCount, 10)
	}
	if video.CommentCount != nil {
		md["youtube_comment_count"] = strconv.FormatInt(*video.CommentCount, 10)
	}

	md["archived_date"] = now.Format(time.RFC3339)
	md["archived_reason"] = archiveReason(video.Status)

	return md
}

// formatDescription embeds archival provenance around the original
// description so the remote item documents why and when it was preserved.
func formatDescription(video *model.Video, playlist *model.Playlist, now time.Time) string {
	var parts []string

	if video.Description != "" {
		parts = append(parts,
			"=== Original YouTube Description ===",
			video.Description,
			"")
	}

	parts = append(parts,
		"=== Archival Information ===",
		"Archived from YouTube: "+videoURL(video),
		"Original Channel: "+orUnknown(video.Channel))

	if video.UploadDate != "" {
		parts = append(parts, "Original Upload Date: "+video.UploadDate)
	}

	parts = append(parts,
		"Archived Date: "+now.Format("2006-01-02"),
		"Status at Archive Time: "+string(video.Status),
		"Playlist: "+playlist.Title)

	if video.ViewCount != nil {
		parts = append(parts, fmt.Sprintf("Views: %d", *video.ViewCount))
	}
	if video.LikeCount != nil {
		parts = append(parts, fmt.Sprintf("Likes: %d", *video.LikeCount))
	}
	if video.CommentCount != nil {
		parts = append(parts, fmt.Sprintf("Comments: %d", *video.CommentCount))
	}

	parts = append(parts,
		"",
		"This video was archived for preservation purposes using ytpl.")

	return strings.Join(parts, "\n")
}

// subjectTags derives deduplicated subject tags for the remote item,
// preserving first-seen order so output is deterministic.
func subjectTags(video *model.Video) []string {
	tags := []string{"youtube", "video", "archived"}

	videoTags := video.Tags
	if len(videoTags) > maxSubjectTags {
		videoTags = videoTags[:maxSubjectTags]
	}
	tags = append(tags, videoTags...)
	tags = append(tags, video.Categories...)

	switch video.Status {
	case model.StatusDeleted:
		tags = append(tags, "deleted")
	case model.StatusPrivate:
		tags = append(tags, "private")
	case model.StatusUnavailable:
		tags = append(tags, "unavailable")
	}

	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// normalizeUploadDate converts a raw YYYYMMDD date to YYYY-MM-DD; dates
// already carrying separators pass through unchanged.
func normalizeUploadDate(date string) string {
	if len(date) == 8 && isDigits(date) {
		return date[:4] + "-" + date[4:6] + "-" + date[6:8]
	}
	return date
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// formatRuntime converts a duration in seconds to HH:MM:SS.
func formatRuntime(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func archiveReason(status model.VideoStatus) string {
	switch status {
	case model.StatusDeleted, model.StatusPrivate, model.StatusUnavailable:
		return string(status)
	default:
		return "user_request"
	}
}

func videoURL(video *model.Video) string {
	if video.WebpageURL != "" {
		return video.WebpageURL
	}
	return "https://youtube.com/watch?v=" + video.VideoID
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
